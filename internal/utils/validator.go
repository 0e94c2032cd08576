package utils

import (
	"errors"
	"mime/multipart"
)

// ValidateFileHeader rejects empty uploads and uploads over maxBytes. Any
// content type is accepted; non-images are stored verbatim.
func ValidateFileHeader(h *multipart.FileHeader, maxBytes int64) error {
	if h.Size == 0 {
		return errors.New("empty file")
	}
	if maxBytes > 0 && h.Size > maxBytes {
		return ErrFileTooLarge
	}
	return nil
}
