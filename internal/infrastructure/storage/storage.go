// internal/infrastructure/storage/storage.go
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/your-org/catalog-backend/internal/config"
)

// Disk is the public file store used for brand logos and product media.
// Paths are slash separated and relative to the disk root, e.g. "products/12/abc.jpg".
type Disk interface {
	Store(ctx context.Context, r io.Reader, dir, filename string) (string, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	URL(path string) string
}

// New returns the disk selected by STORAGE_PROVIDER
func New(ctx context.Context, cfg *config.Config) (Disk, error) {
	switch cfg.Storage.Provider {
	case "", "local":
		return NewLocalDisk(cfg.Storage.LocalPath, cfg.Storage.PublicBaseURL), nil
	case "s3":
		return NewS3Disk(ctx, cfg.Storage)
	case "cloudinary":
		return NewCloudinaryDisk(cfg.Storage.CloudinaryURL)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Storage.Provider)
	}
}

// objectKey joins dir and filename and refuses anything that escapes the root
func objectKey(dir, filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}
	key := path.Clean(path.Join("/", dir, filename))
	key = strings.TrimPrefix(key, "/")
	if key == "" || key == "." || strings.HasPrefix(key, "..") {
		return "", fmt.Errorf("invalid storage path: %s/%s", dir, filename)
	}
	return key, nil
}

func cleanKey(p string) (string, error) {
	key := strings.TrimPrefix(path.Clean("/"+p), "/")
	if key == "" || key == "." {
		return "", fmt.Errorf("invalid storage path: %q", p)
	}
	return key, nil
}

func joinURL(base, key string) string {
	if base == "" {
		return "/" + key
	}
	return strings.TrimRight(base, "/") + "/" + key
}
