package utils

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode means the payload could not be decoded as an image at all
	// (unknown magic bytes, truncation, corruption).
	ErrDecode = errors.New("invalid image data")
	// ErrUnsupportedFormat means the image decoded fine but its codec has no
	// encoder here, so we cannot re-encode without changing the format.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrCollisionExhausted means short id generation kept colliding past the
	// retry budget. Should effectively never happen with 12-char tokens.
	ErrCollisionExhausted = errors.New("short id collision retries exhausted")
	// ErrDuplicateShortID surfaces the store's uniqueness-constraint
	// violation; the whole generate-and-insert sequence is retried on it.
	ErrDuplicateShortID    = errors.New("short id already taken")
	ErrUpstreamUnavailable = errors.New("storage backend unavailable")
	ErrNotFound            = errors.New("media not found")
	ErrFileTooLarge        = errors.New("file exceeds upload limit")
)

// PartialDeleteError reports a deletion that stopped halfway. Stage is
// "backend" when the object delete failed (record kept, safe to retry) or
// "metadata" when the object is gone but the record remains (retry converges
// because the backend delete is an idempotent ensure-absent).
type PartialDeleteError struct {
	Stage string
	Err   error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("delete incomplete at %s stage: %v", e.Stage, e.Err)
}

func (e *PartialDeleteError) Unwrap() error { return e.Err }
