// internal/domain/upload/service.go
package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/config"
	"github.com/your-org/catalog-backend/internal/infrastructure/storage"
	"github.com/your-org/catalog-backend/internal/pkg/apperror"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Service stores uploaded images on the public disk and renders their conversions
type Service struct {
	disk   storage.Disk
	config *config.Config
	log    *logrus.Logger
}

// NewService creates a new upload service
func NewService(disk storage.Disk, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		disk:   disk,
		config: cfg,
		log:    log,
	}
}

// Validate checks extension and size against the upload config. field names the
// request key reported in the error.
func (s *Service) Validate(field string, fh *multipart.FileHeader) error {
	if fh == nil {
		return apperror.FieldError(field, fmt.Sprintf("The %s field must be a file.", field))
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
	if !slices.Contains(s.config.Upload.AllowedExtensions, ext) {
		return apperror.FieldError(field, fmt.Sprintf("The %s field must be a file of type: %s.",
			field, strings.Join(s.config.Upload.AllowedExtensions, ", ")))
	}

	if fh.Size > s.config.Upload.MaxSize {
		return apperror.FieldError(field, fmt.Sprintf("The %s field must not be greater than %d kilobytes.",
			field, s.config.Upload.MaxSize/1024))
	}

	return nil
}

// StoreFile validates and stores the upload as-is under dir
func (s *Service) StoreFile(ctx context.Context, field string, fh *multipart.FileHeader, dir string) (string, error) {
	if err := s.Validate(field, fh); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	stored, err := s.disk.Store(ctx, src, dir, generateUniqueFilename(fh.Filename))
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return stored, nil
}

// StoreImage stores the original and renders thumb and preview conversions.
// Conversions that cannot be rendered are skipped; URLs then fall back to the original.
func (s *Service) StoreImage(ctx context.Context, field string, fh *multipart.FileHeader, dir string) (*StoredImage, error) {
	if err := s.Validate(field, fh); err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, s.config.Upload.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	filename := generateUniqueFilename(fh.Filename)
	stored := &StoredImage{
		Name:     strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename)),
		FileName: fh.Filename,
		MimeType: http.DetectContentType(data),
		Size:     int64(len(data)),
	}

	stored.Path, err = s.disk.Store(ctx, bytes.NewReader(data), dir, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.log.WithError(err).WithField("path", stored.Path).Warn("image could not be decoded, conversions skipped")
		return stored, nil
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	conversionDir := path.Join(dir, "conversions")

	for _, conv := range s.conversions() {
		p, err := s.storeConversion(ctx, img, format, conversionDir, base+"-"+conv.name, conv.width, conv.height)
		if err != nil {
			s.Discard(ctx, stored.Paths()...)
			return nil, fmt.Errorf("failed to store %s conversion: %w", conv.name, err)
		}
		switch conv.name {
		case ConversionThumb:
			stored.ThumbPath = p
		case ConversionPreview:
			stored.PreviewPath = p
		}
	}

	return stored, nil
}

type conversion struct {
	name          string
	width, height int
}

func (s *Service) conversions() []conversion {
	return []conversion{
		{ConversionThumb, s.config.Upload.ThumbWidth, s.config.Upload.ThumbHeight},
		{ConversionPreview, s.config.Upload.PreviewWidth, s.config.Upload.PreviewHeight},
	}
}

func (s *Service) storeConversion(ctx context.Context, img image.Image, format, dir, base string, width, height int) (string, error) {
	resized := Fit(img, width, height)

	var buf bytes.Buffer
	var ext string
	switch format {
	case "png":
		ext = ".png"
		if err := png.Encode(&buf, resized); err != nil {
			return "", err
		}
	case "gif":
		ext = ".gif"
		if err := gif.Encode(&buf, resized, nil); err != nil {
			return "", err
		}
	default:
		ext = ".jpg"
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
			return "", err
		}
	}

	return s.disk.Store(ctx, &buf, dir, base+ext)
}

// Fit scales img down to fit inside width x height keeping its aspect ratio.
// Images already inside the box are returned unchanged.
func Fit(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || (w <= width && h <= height) {
		return img
	}

	scale := float64(width) / float64(w)
	if hs := float64(height) / float64(h); hs < scale {
		scale = hs
	}

	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Discard deletes stored files, logging failures instead of returning them
func (s *Service) Discard(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := s.disk.Delete(ctx, p); err != nil {
			s.log.WithError(err).WithField("path", p).Warn("failed to delete stored file")
		}
	}
}

// Exists reports whether a stored file is still present
func (s *Service) Exists(ctx context.Context, p string) (bool, error) {
	return s.disk.Exists(ctx, p)
}

// URL returns the public URL of a stored path
func (s *Service) URL(p string) string {
	return s.disk.URL(p)
}

func generateUniqueFilename(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return uuid.NewString() + ext
}
