package checkpoint

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend keeps the checkpoint in a small text file
type FileBackend struct {
	Path string
}

// NewFileBackend returns a backend writing to path
func NewFileBackend(path string) *FileBackend { return &FileBackend{Path: path} }

// Load reads the file; a missing file means no checkpoint
func (f *FileBackend) Load(context.Context) (string, bool, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

// Save replaces the file atomically through a temp file in the same directory
func (f *FileBackend) Save(_ context.Context, raw string) error {
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.WriteString(raw + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, f.Path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}

// Close is a no-op
func (f *FileBackend) Close() error { return nil }
