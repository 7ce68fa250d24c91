package ocr

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register the JPEG decoder
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.ImageEnhancer = (*Enhancer)(nil)

// Enhancer prepares scanned pages for OCR: grayscale, contrast stretch,
// sharpen, then Otsu binarisation. The result is written next to the input.
type Enhancer struct{}

// NewEnhancer creates an image enhancer.
func NewEnhancer() *Enhancer {
	return &Enhancer{}
}

// Enhance writes "<name>-enhanced.png" beside path and returns its path.
// Formats the standard decoders cannot read (TIFF) are returned unchanged;
// tesseract reads those natively.
func (e *Enhancer) Enhance(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := decode(path)
	if err != nil {
		if strings.EqualFold(filepath.Ext(path), ".tif") || strings.EqualFold(filepath.Ext(path), ".tiff") {
			return path, nil
		}
		return "", err
	}

	gray := toGray(src)
	stretchContrast(gray)
	gray = sharpen(gray)
	binarize(gray, otsuThreshold(gray))

	out := strings.TrimSuffix(path, filepath.Ext(path)) + "-enhanced.png"
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("create enhanced image: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, gray); err != nil {
		return "", fmt.Errorf("encode enhanced image: %w", err)
	}
	return out, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return gray
}

// stretchContrast maps the 1st..99th percentile range onto 0..255.
func stretchContrast(img *image.Gray) {
	hist := histogram(img)
	total := len(img.Pix)
	if total == 0 {
		return
	}

	cut := total / 100
	lo, hi := 0, 255
	for acc := 0; lo < 255; lo++ {
		acc += hist[lo]
		if acc > cut {
			break
		}
	}
	for acc := 0; hi > 0; hi-- {
		acc += hist[hi]
		if acc > cut {
			break
		}
	}
	if hi <= lo {
		return
	}

	scale := 255.0 / float64(hi-lo)
	for i, v := range img.Pix {
		img.Pix[i] = clamp((float64(v) - float64(lo)) * scale)
	}
}

// sharpen applies the 3x3 kernel [0 -1 0; -1 5 -1; 0 -1 0]. Edge pixels are copied.
func sharpen(img *image.Gray) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewGray(img.Rect)
	copy(out.Pix, img.Pix)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			at := func(dx, dy int) float64 {
				return float64(img.Pix[(y+dy)*img.Stride+x+dx])
			}
			v := 5*at(0, 0) - at(-1, 0) - at(1, 0) - at(0, -1) - at(0, 1)
			out.Pix[y*out.Stride+x] = clamp(v)
		}
	}
	return out
}

// otsuThreshold picks the threshold maximising between-class variance.
func otsuThreshold(img *image.Gray) uint8 {
	hist := histogram(img)
	total := len(img.Pix)

	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}

	var sumB, best float64
	var wB int
	threshold := 0
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = t
		}
	}
	return uint8(threshold)
}

func binarize(img *image.Gray, threshold uint8) {
	for i, v := range img.Pix {
		if v > threshold {
			img.Pix[i] = 255
		} else {
			img.Pix[i] = 0
		}
	}
}

func histogram(img *image.Gray) [256]int {
	var hist [256]int
	for _, v := range img.Pix {
		hist[v]++
	}
	return hist
}

func clamp(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
