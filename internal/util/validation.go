package util

import (
	"errors"
	"path/filepath"
	"strings"
)

// imageExtensions are the upload types the media endpoints accept
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
}

// IsValidImageFile checks if a filename has an accepted image extension
func IsValidImageFile(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ValidateFilename checks if a display filename is valid.
// Filename is required, cannot contain directory separators, and must be
// <= 255 chars.
func ValidateFilename(filename string) error {
	if filename == "" {
		return errors.New("filename is required")
	}
	if strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		return errors.New("filename cannot contain directory paths")
	}
	if len(filename) > 255 {
		return errors.New("filename too long (max 255 characters)")
	}
	return nil
}
