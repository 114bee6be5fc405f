// Package imaging normalises uploaded item photos.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// MaxDimension is the maximum width or height of a stored photo.
const MaxDimension = 1024

// MaxUploadBytes caps how much of an upload is read.
const MaxUploadBytes = 10 << 20

// JPEGQuality is the compression quality of stored photos.
const JPEGQuality = 85

// ContentType is the MIME type of every stored photo.
const ContentType = "image/jpeg"

var (
	// ErrUnsupportedFormat is returned for anything other than JPEG or PNG.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrTooLarge is returned when an upload exceeds MaxUploadBytes.
	ErrTooLarge = errors.New("image too large")
)

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is a processed item photo.
type Photo struct {
	Data          []byte
	Width, Height int
}

// ItemPhoto reads an upload, checks its real format by sniffing the bytes,
// shrinks it to fit MaxDimension and re-encodes it as JPEG. Transparent
// areas are flattened onto white.
func ItemPhoto(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, MaxUploadBytes)
	}

	detected := http.DetectContentType(data)
	if !accepted[detected] {
		return nil, fmt.Errorf("%w: %s (only JPEG and PNG accepted)", ErrUnsupportedFormat, detected)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", ErrUnsupportedFormat, err)
	}

	w, h := fit(src.Bounds().Dx(), src.Bounds().Dy(), MaxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == src.Bounds().Dx() && h == src.Bounds().Dy() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding photo: %w", err)
	}

	return &Photo{Data: buf.Bytes(), Width: w, Height: h}, nil
}

// fit returns the size of a w×h image scaled down, aspect preserved, so that
// neither side exceeds maxDim. Images already within bounds keep their size.
func fit(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w > h {
		h = max(1, h*maxDim/w)
		w = maxDim
	} else {
		w = max(1, w*maxDim/h)
		h = maxDim
	}
	return w, h
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
