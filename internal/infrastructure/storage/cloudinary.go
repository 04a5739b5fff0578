// internal/infrastructure/storage/cloudinary.go
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryDisk keeps images on Cloudinary. The stored path is "<public id>.<format>".
type CloudinaryDisk struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryDisk creates a disk from a cloudinary:// URL
func NewCloudinaryDisk(cloudinaryURL string) (*CloudinaryDisk, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary URL is required")
	}

	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	return &CloudinaryDisk{cld: cld}, nil
}

func (d *CloudinaryDisk) Store(ctx context.Context, r io.Reader, dir, filename string) (string, error) {
	key, err := objectKey(dir, filename)
	if err != nil {
		return "", err
	}

	result, err := d.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:       publicID(key),
		UniqueFilename: &[]bool{false}[0],
		Overwrite:      &[]bool{true}[0],
		ResourceType:   "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload image: %s", result.Error.Message)
	}

	if result.Format == "" {
		return result.PublicID, nil
	}
	return result.PublicID + "." + result.Format, nil
}

func (d *CloudinaryDisk) Delete(ctx context.Context, p string) error {
	key, err := cleanKey(p)
	if err != nil {
		return err
	}
	_, err = d.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID(key),
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func (d *CloudinaryDisk) Exists(ctx context.Context, p string) (bool, error) {
	key, err := cleanKey(p)
	if err != nil {
		return false, err
	}
	result, err := d.cld.Admin.Asset(ctx, admin.AssetParams{PublicID: publicID(key)})
	if err != nil {
		return false, fmt.Errorf("failed to look up image: %w", err)
	}
	return result.Error.Message == "", nil
}

func (d *CloudinaryDisk) URL(p string) string {
	if p == "" {
		return ""
	}
	return forceHTTPS(fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s", d.cld.Config.Cloud.CloudName, p))
}

func publicID(key string) string {
	return strings.TrimSuffix(key, path.Ext(key))
}

// forceHTTPS ensures Cloudinary URLs use https scheme
func forceHTTPS(in string) string {
	out := strings.TrimSpace(in)
	return strings.Replace(out, "http://", "https://", 1)
}
