package worker

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/amankumarsingh77/slideshow-encoder/internal/config"
	"github.com/gabriel-vasile/mimetype"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Normalizer turns arbitrary still images into opaque JPEGs with even
// dimensions, which is what a yuv420p encode needs.
type Normalizer struct {
	quality   int
	maxWidth  int
	maxHeight int
	maxPixels int
}

func NewNormalizer(cfg config.SlideshowConfig) *Normalizer {
	return &Normalizer{
		quality:   cfg.JPEGQuality,
		maxWidth:  cfg.MaxWidth,
		maxHeight: cfg.MaxHeight,
		maxPixels: cfg.MaxSourcePixels,
	}
}

func (n *Normalizer) Normalize(index int, data []byte, dst string) (string, error) {
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", &NormalizeError{Index: index, MimeType: mtype.String(), Err: ErrUnsupportedFormat}
	}

	// Oversized sources are rejected from the header alone, before any
	// pixel buffer is allocated.
	hdr, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", &NormalizeError{Index: index, MimeType: mtype.String(), Err: err}
	}
	if n.maxPixels > 0 && int64(hdr.Width)*int64(hdr.Height) > int64(n.maxPixels) {
		return "", &NormalizeError{
			Index:    index,
			MimeType: mtype.String(),
			Err:      fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, hdr.Width, hdr.Height, n.maxPixels),
		}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", &NormalizeError{Index: index, MimeType: mtype.String(), Err: err}
	}

	canvas := n.flatten(src)
	err = writeFileAtomic(dst, func(w io.Writer) error {
		return jpeg.Encode(w, canvas, &jpeg.Options{Quality: n.quality})
	})
	if err != nil {
		return "", &NormalizeError{Index: index, MimeType: mtype.String(), Err: err}
	}
	return dst, nil
}

// flatten composites src over white at the target size, dropping alpha.
func (n *Normalizer) flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), n.maxWidth, n.maxHeight)

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Over)
	} else {
		xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), src, b, xdraw.Over, nil)
	}
	return canvas
}

// fitWithin scales w×h down to fit maxW×maxH (non-positive limits are
// ignored), keeping aspect ratio, and rounds both sides down to even numbers.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && h > maxH {
		if s := float64(maxH) / float64(h); s < scale {
			scale = s
		}
	}
	if scale < 1 {
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
	}
	return evenAtLeastTwo(w), evenAtLeastTwo(h)
}

func evenAtLeastTwo(v int) int {
	v &^= 1
	if v < 2 {
		return 2
	}
	return v
}
