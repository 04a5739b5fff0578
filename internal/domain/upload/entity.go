// internal/domain/upload/entity.go
package upload

import "fmt"

// Conversion names
const (
	ConversionThumb   = "thumb"
	ConversionPreview = "preview"
)

// StoredImage describes the files written for one uploaded image
type StoredImage struct {
	Name        string `json:"name"`
	FileName    string `json:"file_name"`
	MimeType    string `json:"mime_type"`
	Size        int64  `json:"size"`
	Path        string `json:"path"`
	ThumbPath   string `json:"thumb_path,omitempty"`
	PreviewPath string `json:"preview_path,omitempty"`
}

// Paths returns every file written for the image
func (i *StoredImage) Paths() []string {
	var paths []string
	for _, p := range []string{i.Path, i.ThumbPath, i.PreviewPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// GetFormattedSize returns human-readable file size
func (i *StoredImage) GetFormattedSize() string {
	const unit = 1024
	if i.Size < unit {
		return fmt.Sprintf("%d B", i.Size)
	}

	div, exp := int64(unit), 0
	for n := i.Size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(i.Size)/float64(div), "KMGTPE"[exp])
}
