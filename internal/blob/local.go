package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps uploads as files under a directory on local disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed. An empty dir means the OS temp
// directory.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "family-ledger")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("NewLocalStore: create %q: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Put writes r to a temp file carrying the extension of filename.
func (s *LocalStore) Put(ctx context.Context, filename string, r io.Reader) (string, error) {
	f, err := os.CreateTemp(s.dir, "upload-*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return "", fmt.Errorf("LocalStore.Put: create temp file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("LocalStore.Put: write: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("LocalStore.Put: close: %w", err)
	}
	return f.Name(), nil
}

// Get reads the file at key.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.contains(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("LocalStore.Get: %w", err)
	}
	return data, nil
}

// Delete removes the file at key.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := s.contains(key); err != nil {
		return err
	}
	if err := os.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("LocalStore.Delete: %w", err)
	}
	return nil
}

func (s *LocalStore) contains(key string) error {
	rel, err := filepath.Rel(s.dir, key)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("LocalStore: key %q is outside %q", key, s.dir)
	}
	return nil
}
