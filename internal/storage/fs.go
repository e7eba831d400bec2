package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
)

// FSStore serves documents from the top level of an fs.FS, either the
// bundled embed.FS or a directory on disk.
type FSStore struct{ fsys fs.FS }

func NewFSStore(fsys fs.FS) *FSStore { return &FSStore{fsys: fsys} }

// NewDirStore opens a directory store. The directory must already exist.
func NewDirStore(dir string) (*FSStore, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("definitions dir: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("definitions dir %q: not a directory", dir)
	}
	return &FSStore{fsys: os.DirFS(dir)}, nil
}

func (s *FSStore) Open(key string) (io.ReadCloser, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	f, err := s.fsys.Open(key)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, &fs.PathError{Op: "open", Path: key, Err: fs.ErrNotExist}
	}
	return f, nil
}

// Keys lists the regular files at the top level, sorted.
func (s *FSStore) Keys() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
