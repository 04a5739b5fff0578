// internal/infrastructure/storage/local.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalDisk stores files below a directory served at PublicBaseURL
type LocalDisk struct {
	root    string
	baseURL string
}

// NewLocalDisk creates a disk rooted at root
func NewLocalDisk(root, baseURL string) *LocalDisk {
	return &LocalDisk{root: root, baseURL: baseURL}
}

// Root returns the directory files are written to
func (d *LocalDisk) Root() string {
	return d.root
}

func (d *LocalDisk) Store(ctx context.Context, r io.Reader, dir, filename string) (string, error) {
	key, err := objectKey(dir, filename)
	if err != nil {
		return "", err
	}

	full := filepath.Join(d.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return key, nil
}

func (d *LocalDisk) Delete(ctx context.Context, path string) error {
	key, err := cleanKey(path)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(d.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (d *LocalDisk) Exists(ctx context.Context, path string) (bool, error) {
	key, err := cleanKey(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(d.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *LocalDisk) URL(path string) string {
	if path == "" {
		return ""
	}
	return joinURL(d.baseURL, path)
}
