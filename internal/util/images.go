package util

import (
	"bufio"
	"bytes"
	"image"
	"io"
	"math"
	"net/http"
	"strings"

	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SniffMIME reports the content type of the stream without consuming it.
func SniffMIME(r *bufio.Reader) (string, error) {
	head, err := r.Peek(512)
	if err != nil && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(head), nil
}

func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// DecodeAndScaleJPEG decodes any supported image format, downscales it
// so neither dimension exceeds maxDim (never upscales), and re-encodes
// as JPEG. Normalizing uploads to JPEG keeps the media store format-
// agnostic for readers.
func DecodeAndScaleJPEG(r io.Reader, maxDim int) (*bytes.Buffer, error) {
	if maxDim <= 0 {
		maxDim = 1024
	}

	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, image.ErrFormat
	}

	largest := width
	if height > largest {
		largest = height
	}

	scale := float64(maxDim) / float64(largest)
	if scale > 1 {
		scale = 1
	}

	targetWidth := int(math.Round(float64(width) * scale))
	targetHeight := int(math.Round(float64(height) * scale))
	if targetWidth < 1 {
		targetWidth = 1
	}
	if targetHeight < 1 {
		targetHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return &buf, nil
}
