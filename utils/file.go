package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// MaxDocumentSize caps uploaded certification documents at 20MB.
const MaxDocumentSize = 20 * 1024 * 1024

var allowedDocumentExts = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ValidateDocument rejects oversized or unexpected certification uploads
// before anything touches R2.
func ValidateDocument(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxDocumentSize {
		return fmt.Errorf("document too large (max %d bytes)", MaxDocumentSize)
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedDocumentExts[ext] {
		return fmt.Errorf("unsupported document type %q (allowed: pdf, png, jpg)", ext)
	}
	return nil
}
