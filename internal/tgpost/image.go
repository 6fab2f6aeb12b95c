package tgpost

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// MaxImageSize is the largest photo the Bot API accepts, in bytes.
const MaxImageSize int64 = 10 * 1024 * 1024

var imageContentTypes = map[string]string{
	".gif":  "image/gif",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// SupportedImageExtensions returns the accepted extensions in sorted order.
func SupportedImageExtensions() []string {
	exts := make([]string, 0, len(imageContentTypes))
	for ext := range imageContentTypes {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// ValidateImage checks the extension and size of path. The file content is
// never read, so a renamed file passes as long as its extension is accepted.
func ValidateImage(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := imageContentTypes[ext]; !ok {
		return &InvalidFormatError{Extension: ext, Supported: SupportedImageExtensions()}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ImageNotFoundError{Path: path, Err: err}
		}
		return fmt.Errorf("stat image: %w", err)
	}
	if info.Size() > MaxImageSize {
		return &TooLargeError{Size: info.Size(), Limit: MaxImageSize}
	}

	return nil
}

// ImageContentType returns the MIME type for a supported image path.
func ImageContentType(path string) string {
	if ct, ok := imageContentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}
