// Package imaging normalises uploaded images before they are stored.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds width*height of an upload before it is decoded.
const MaxPixels = 40_000_000

var (
	ErrNotImage = errors.New("file is not a supported image")
	ErrTooLarge = errors.New("image dimensions are too large (max 40 megapixels)")
)

// Supported maps sniffed content types to whether they can be decoded.
var Supported = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type Options struct {
	MaxDimension int // long edge in pixels
	JPEGQuality  int
}

type Result struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
	// Recompressed is false when the original bytes were kept.
	Recompressed bool
}

// Sniff returns the content type detected from the first bytes of data.
func Sniff(data []byte) string {
	return http.DetectContentType(data)
}

// Compress downscales data so its long edge is at most MaxDimension and
// re-encodes it as JPEG. The original is returned unchanged when it is
// already within bounds and smaller than the re-encoded version.
func Compress(data []byte, opts Options) (*Result, error) {
	mimeType := Sniff(data)
	if !Supported[mimeType] {
		return nil, fmt.Errorf("%w (detected: %s)", ErrNotImage, mimeType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w (%dx%d)", ErrTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	nw, nh := fit(w, h, opts.MaxDimension)
	resized := nw != w || nh != h

	img := src
	if resized {
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		img = dst
	}

	// animated gifs lose frames when re-encoded
	if mimeType == "image/gif" && !resized {
		return &Result{Data: data, MimeType: mimeType, Width: w, Height: h}, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	if !resized && buf.Len() >= len(data) {
		return &Result{Data: data, MimeType: mimeType, Width: w, Height: h}, nil
	}

	return &Result{
		Data:         buf.Bytes(),
		MimeType:     "image/jpeg",
		Width:        nw,
		Height:       nh,
		Recompressed: true,
	}, nil
}

// fit scales w x h down so the long edge is at most limit, keeping aspect.
func fit(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

// flatten paints img onto white so transparent areas don't turn black in JPEG.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.White, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

// Extension returns the file extension for a supported content type.
func Extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
