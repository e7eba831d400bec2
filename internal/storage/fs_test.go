package storage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStoreOpen(t *testing.T) {
	s := NewFSStore(fstest.MapFS{
		"laser.json":    {Data: []byte(`{"questions":[]}`)},
		"nested/x.json": {Data: []byte(`{}`)},
		"notes.txt":     {Data: []byte("hi")},
	})

	rc, err := s.Open("laser.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"questions":[]}`, string(data))

	_, err = s.Open("missing.json")
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)

	_, err = s.Open("nested")
	assert.True(t, errors.Is(err, fs.ErrNotExist), "directories are not documents, got %v", err)
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	s := NewFSStore(fstest.MapFS{"a.json": {Data: []byte(`{}`)}})
	for _, key := range []string{"", ".", "..", "../a.json", "nested/x.json", `..\a.json`, "/etc/passwd"} {
		_, err := s.Open(key)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestFSStoreKeys(t *testing.T) {
	s := NewFSStore(fstest.MapFS{
		"b.yaml":     {Data: []byte("questions: []")},
		"a.json":     {Data: []byte(`{}`)},
		"sub/c.json": {Data: []byte(`{}`)},
	})
	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.yaml"}, keys)
}

func TestNewDirStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.json"), []byte(`{}`), 0o644))

	s, err := NewDirStore(dir)
	require.NoError(t, err)
	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"shop.json"}, keys)

	_, err = NewDirStore(filepath.Join(dir, "nope"))
	assert.Error(t, err)

	_, err = NewDirStore(filepath.Join(dir, "shop.json"))
	assert.Error(t, err)
}
