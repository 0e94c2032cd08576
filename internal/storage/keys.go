package storage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const keyPrefix = "uploads/"

// DeriveKey maps an internal id and resolved MIME type to the object key
// "uploads/{id}{ext}". An unknown MIME type yields no extension, which is an
// accepted degenerate key, not an error.
func DeriveKey(internalID, mimeType string) string {
	ext := ""
	if m := mimetype.Lookup(mimeType); m != nil {
		ext = m.Extension()
	}
	return keyPrefix + internalID + ext
}

// ResolveURL builds the backend URL for a key without any I/O. publicBase is
// the configured public endpoint (e.g. an R2 public bucket link); when empty
// the virtual-hosted S3 form is used.
func ResolveURL(publicBase, bucket, region, key string) string {
	escaped := escapeKey(key)
	if publicBase != "" {
		return strings.TrimSuffix(publicBase, "/") + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, escaped)
}

func escapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
