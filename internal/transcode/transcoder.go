// Package transcode shrinks images under a byte ceiling without ever
// changing the image format: quality reduction first (cheap, keeps
// resolution), successive halving of dimensions only as a last resort.
package transcode

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // decode only; webp has no encoder here

	"github.com/looking-sharp/Media-Management-Microservice/internal/utils"
)

const (
	startQuality = 95
	qualityFloor = 20
	qualityStep  = 5
	minDimension = 1
)

type codec struct {
	format imaging.Format
	mime   string
	lossy  bool
}

// codecs maps image.Decode's registered format names to the formats we can
// re-encode. Decodable formats missing here (webp) are unsupported because
// output format must always equal input format.
var codecs = map[string]codec{
	"jpeg": {imaging.JPEG, "image/jpeg", true},
	"png":  {imaging.PNG, "image/png", false},
	"gif":  {imaging.GIF, "image/gif", false},
	"bmp":  {imaging.BMP, "image/bmp", false},
	"tiff": {imaging.TIFF, "image/tiff", false},
}

// Transcode re-encodes raw so the result fits under ceiling bytes, returning
// the encoded bytes and the canonical MIME type of the detected format.
//
// Inputs already under the ceiling are still re-encoded once at the starting
// quality, so stored bytes may differ from the upload even when no reduction
// was needed.
//
// If even a 1x1 re-encode stays over the ceiling the smallest achievable
// output is returned rather than an error; the loop always terminates.
func Transcode(raw []byte, ceiling int64) ([]byte, string, error) {
	img, name, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", utils.ErrDecode, err)
	}
	c, ok := codecs[name]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", utils.ErrUnsupportedFormat, name)
	}

	quality := startQuality
	level := png.DefaultCompression
	out, err := encode(img, c.format, quality, level)
	if err != nil {
		return nil, "", err
	}

	if c.lossy {
		for int64(len(out)) > ceiling && quality > qualityFloor {
			quality -= qualityStep
			if out, err = encode(img, c.format, quality, level); err != nil {
				return nil, "", err
			}
		}
	} else if int64(len(out)) > ceiling && c.format == imaging.PNG {
		// one maximal-compression attempt before touching pixels
		level = png.BestCompression
		if out, err = encode(img, c.format, quality, level); err != nil {
			return nil, "", err
		}
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for int64(len(out)) > ceiling && (w > minDimension || h > minDimension) {
		w = max(w/2, minDimension)
		h = max(h/2, minDimension)
		img = imaging.Resize(img, w, h, imaging.Lanczos)
		if out, err = encode(img, c.format, quality, level); err != nil {
			return nil, "", err
		}
	}
	return out, c.mime, nil
}

func encode(img image.Image, f imaging.Format, quality int, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	err := imaging.Encode(&buf, img, f,
		imaging.JPEGQuality(quality),
		imaging.PNGCompressionLevel(level),
	)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
