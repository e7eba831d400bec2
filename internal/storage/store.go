package storage

import (
	"errors"
	"io"
	"io/fs"
	"strings"
)

// ErrInvalidKey is returned for keys that could escape the store root.
var ErrInvalidKey = errors.New("storage: invalid key")

// Store is a read-only keyed document store. A missing key yields an error
// satisfying errors.Is(err, fs.ErrNotExist).
type Store interface {
	Open(key string) (io.ReadCloser, error)
	Keys() ([]string, error)
}

// checkKey accepts a single path element only.
func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || !fs.ValidPath(key) {
		return ErrInvalidKey
	}
	return nil
}
