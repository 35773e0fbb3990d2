package archive

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir implements [Backend] on top of a local directory tree.
// Keys map to file paths relative to the configured root.
type Dir struct {
	root string
}

// NewDir creates a Dir backend rooted at dir.
// The directory is created (with parents) if it does not already exist.
func NewDir(dir string) (*Dir, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Dir{root: abs}, nil
}

// Put writes data to the key's file, creating parent directories as
// needed.
func (d *Dir) Put(_ context.Context, key string, data []byte) error {
	full := filepath.Join(d.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

// Get reads the key's file. os.ReadFile already wraps fs.ErrNotExist
// for missing files.
func (d *Dir) Get(_ context.Context, key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.root, filepath.FromSlash(key)))
}

// List walks the prefix directory and returns the keys of every file
// under it. A missing directory yields an empty list.
func (d *Dir) List(_ context.Context, prefix string) ([]string, error) {
	base := filepath.Join(d.root, filepath.FromSlash(prefix))
	var keys []string
	err := filepath.WalkDir(base, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Compile-time interface check.
var _ Backend = (*Dir)(nil)
