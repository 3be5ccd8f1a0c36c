// Package imageproc implements the size-reconciliation and pixel-geometry
// primitives shared by every comparison engine: padding, cropping, resizing,
// hex color parsing, diff-percentage math, and the uniform-trailing-row
// trim, per spec.md §4.1.
package imageproc

import (
	"encoding/hex"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"go.vrtcore.dev/internal/skerr"
	"go.vrtcore.dev/vrt/types"
)

// PadFillColor is the fill color spec.md §4.1 mandates for the pad policy.
var PadFillColor = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// ParseHexColor parses a "#RRGGBB" string. Every byte must be valid hex.
func ParseHexColor(s string) (color.NRGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.NRGBA{}, skerr.Fmt("invalid hex color %q: expected #RRGGBB", s)
	}
	raw, err := hex.DecodeString(s[1:])
	if err != nil {
		return color.NRGBA{}, skerr.Wrapf(err, "invalid hex color %q", s)
	}
	return color.NRGBA{R: raw[0], G: raw[1], B: raw[2], A: 255}, nil
}

// CalculateDiffPercentage computes the percentage of differing pixels,
// returning 0 when there are no pixels to compare at all.
func CalculateDiffPercentage(diffPixels, totalPixels int) float64 {
	if totalPixels == 0 {
		return 0
	}
	return (float64(diffPixels) / float64(totalPixels)) * 100
}

// ToNRGBA converts img to *image.NRGBA, the canonical pixel format every
// engine adapter operates on. An img that is already an *image.NRGBA is
// returned as is, not copied.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}

// Pad places img at (0,0) on a target-sized canvas filled with fill.
func Pad(img *image.NRGBA, w, h int, fill color.Color) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), &image.Uniform{C: fill}, image.Point{}, draw.Src)
	draw.Draw(out, img.Bounds(), img, image.Point{}, draw.Src)
	return out
}

// Crop keeps the top-left w x h region of img.
func Crop(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	if w > b.Dx() {
		w = b.Dx()
	}
	if h > b.Dy() {
		h = b.Dy()
	}
	return imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+w, b.Min.Y+h))
}

// ResizeNearest resizes img to exactly w x h using nearest-neighbor
// sampling, the policy spec.md §4.1 mandates for the "resize" size
// normalization (it must not blend pixel values across a hard content
// boundary the way bilinear resampling would).
func ResizeNearest(img *image.NRGBA, w, h int) *image.NRGBA {
	return ToNRGBA(resize.Resize(uint(w), uint(h), img, resize.NearestNeighbor))
}

// ResizeBilinear resizes img to exactly w x h with bilinear interpolation,
// used for AI vision payload downscaling per spec.md §6.
func ResizeBilinear(img *image.NRGBA, w, h int) *image.NRGBA {
	return ToNRGBA(imaging.Resize(img, w, h, imaging.Linear))
}

// ResizeBilinearAspect scales img down so its longer side equals maxSide,
// preserving aspect ratio. It is a no-op if img is already within maxSide.
func ResizeBilinearAspect(img *image.NRGBA, maxSide int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxSide {
		return img
	}
	scale := float64(maxSide) / float64(longest)
	nw := maxInt(1, int(float64(w)*scale))
	nh := maxInt(1, int(float64(h)*scale))
	return ResizeBilinear(img, nw, nh)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Normalize reconciles the sizes of baseline and test per policy, per
// spec.md §4.1:
//   - pad: target is the elementwise max; the smaller image is placed at
//     (0,0) on a gray-filled canvas of the target size.
//   - crop: target is the elementwise min; both images keep their top-left
//     region.
//   - resize: target is the elementwise min; both images are resized with
//     nearest-neighbor sampling.
func Normalize(baseline, test *image.NRGBA, policy types.SizeNormalization) (*image.NRGBA, *image.NRGBA) {
	bb, tb := baseline.Bounds(), test.Bounds()
	bw, bh := bb.Dx(), bb.Dy()
	tw, th := tb.Dx(), tb.Dy()

	switch policy {
	case types.SizeNormalizationCrop:
		w, h := minInt(bw, tw), minInt(bh, th)
		return Crop(baseline, w, h), Crop(test, w, h)
	case types.SizeNormalizationResize:
		w, h := minInt(bw, tw), minInt(bh, th)
		return ResizeNearest(baseline, w, h), ResizeNearest(test, w, h)
	default: // pad, and the zero value
		w, h := maxInt(bw, tw), maxInt(bh, th)
		return Pad(baseline, w, h, PadFillColor), Pad(test, w, h, PadFillColor)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// TrimUniformTrailingRows implements spec.md §4.1's uniform-trailing-row
// trim: if one image is taller than the other and every pixel in every extra
// row is identical to that row's first pixel (strict equality), the taller
// image is trimmed down to the shorter height. This removes blank
// bottom-of-page whitespace from page-length changes without masking real
// content, since any row with actual content varies pixel-to-pixel.
func TrimUniformTrailingRows(a, b *image.NRGBA) (*image.NRGBA, *image.NRGBA) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() {
		return a, b
	}
	if ab.Dy() == bb.Dy() {
		return a, b
	}
	taller, shorter := a, b
	tallerIsA := true
	if bb.Dy() > ab.Dy() {
		taller, shorter = b, a
		tallerIsA = false
	}
	shortH := shorter.Bounds().Dy()
	tallH := taller.Bounds().Dy()

	for y := shortH; y < tallH; y++ {
		if !rowIsUniform(taller, y) {
			return a, b
		}
	}

	trimmed := Crop(taller, taller.Bounds().Dx(), shortH)
	if tallerIsA {
		return trimmed, b
	}
	return a, trimmed
}

func rowIsUniform(img *image.NRGBA, y int) bool {
	b := img.Bounds()
	first := img.NRGBAAt(b.Min.X, y)
	for x := b.Min.X + 1; x < b.Max.X; x++ {
		if img.NRGBAAt(x, y) != first {
			return false
		}
	}
	return true
}
