package engines

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"go.vrtcore.dev/internal/skerr"
	"go.vrtcore.dev/vrt/types"
)

// pixelmatchEngine is a from-scratch port of the mapbox/pixelmatch
// algorithm: per-pixel YIQ color-distance comparison with an
// anti-aliasing detector that suppresses false positives along
// antialiased edges, the same general approach used in pixelmatch.js.
type pixelmatchEngine struct{}

// Pixelmatch is the pixelmatch comparison engine.
var Pixelmatch Engine = pixelmatchEngine{}

func (pixelmatchEngine) Name() types.EngineName { return types.EnginePixelmatch }

func (e pixelmatchEngine) Compare(baseline, test *image.NRGBA, diffOutPrefix string, cfg Config) types.EngineResult {
	b := baseline.Bounds()
	if b != test.Bounds() {
		return errorResult(types.EnginePixelmatch, skerr.Fmt("pixelmatch: image dimensions differ after normalization"))
	}
	w, h := b.Dx(), b.Dy()
	diffImg := image.NewNRGBA(b)

	maxDelta := 35215 * cfg.PixelmatchThreshold * cfg.PixelmatchThreshold
	diffColor := cfg.DiffColor
	if diffColor == (color.NRGBA{}) {
		diffColor = color.NRGBA{R: 255, A: 255}
	}
	alpha := cfg.Alpha

	diffPixels := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p1 := baseline.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			p2 := test.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			delta := colorDelta(p1, p2, false)

			if math.Abs(delta) > maxDelta {
				isAA := !cfg.IncludeAA && (antialiased(baseline, x, y, w, h, test) || antialiased(test, x, y, w, h, baseline))
				if isAA {
					drawGrayPixel(diffImg, x, y, b, alpha, p1)
					continue
				}
				diffImg.SetNRGBA(b.Min.X+x, b.Min.Y+y, diffColor)
				diffPixels++
			} else {
				drawGrayPixel(diffImg, x, y, b, alpha, p1)
			}
		}
	}

	total := w * h
	diffPct := calculateDiffPercentage(diffPixels, total)
	result := types.EngineResult{
		Engine:      types.EnginePixelmatch,
		Similarity:  1 - diffPct/100,
		DiffPercent: diffPct,
		DiffPixels:  &diffPixels,
	}

	if diffPixels > 0 && diffOutPrefix != "" {
		path := diffOutPrefix + "-pixelmatch.png"
		if err := writePNG(path, diffImg); err != nil {
			result.Error = err.Error()
			return result
		}
		result.DiffImagePath = path
	}
	return result
}

func calculateDiffPercentage(diffPixels, total int) float64 {
	if total == 0 {
		return 0
	}
	return (float64(diffPixels) / float64(total)) * 100
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return skerr.Wrapf(err, "creating diff image %s", path)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return skerr.Wrapf(err, "encoding diff image %s", path)
	}
	return nil
}

func drawGrayPixel(diffImg *image.NRGBA, x, y int, b image.Rectangle, alpha float64, p color.NRGBA) {
	gray := uint8(blend(grayVal(p), alpha))
	diffImg.SetNRGBA(b.Min.X+x, b.Min.Y+y, color.NRGBA{R: gray, G: gray, B: gray, A: 255})
}

func grayVal(p color.NRGBA) float64 {
	y := rgb2y(float64(p.R), float64(p.G), float64(p.B))
	return y
}

func blend(channel, alpha float64) float64 {
	return 255 + (channel-255)*alpha
}

// colorDelta computes the squared YIQ-space color distance between two
// NRGBA pixels, alpha-composited over white, per the pixelmatch.js
// algorithm. When onlyBrightness is true only the Y (luma) term is used,
// which is what the anti-aliasing detector needs.
func colorDelta(p1, p2 color.NRGBA, onlyBrightness bool) float64 {
	r1, g1, b1, a1 := compositeOverWhite(p1)
	r2, g2, b2, a2 := compositeOverWhite(p2)

	if r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2 {
		return 0
	}

	y1 := rgb2y(r1, g1, b1)
	y2 := rgb2y(r2, g2, b2)
	y := y1 - y2

	if onlyBrightness {
		return y
	}

	i := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	q := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)
	delta := 0.5053*y*y + 0.299*i*i + 0.1957*q*q

	if y1 > y2 {
		return -delta
	}
	return delta
}

func compositeOverWhite(p color.NRGBA) (r, g, b, a float64) {
	alpha := float64(p.A) / 255
	r = 255 + (float64(p.R)-255)*alpha
	g = 255 + (float64(p.G)-255)*alpha
	b = 255 + (float64(p.B)-255)*alpha
	a = float64(p.A)
	return
}

func rgb2y(r, g, b float64) float64 { return r*0.29889531 + g*0.58662247 + b*0.11448223 }
func rgb2i(r, g, b float64) float64 { return r*0.59597799 - g*0.27417610 - b*0.32180189 }
func rgb2q(r, g, b float64) float64 { return r*0.21147017 - g*0.52261711 + b*0.31114694 }

// antialiased reports whether pixel (x,y) in img looks like part of an
// antialiased edge: it differs from at most one of its neighbors by more
// than minDelta brightness, and that neighbor also doesn't appear in the
// same position in the other image.
func antialiased(img *image.NRGBA, x1, y1, w, h int, other *image.NRGBA) bool {
	b := img.Bounds()
	x0, y0 := maxI(x1-1, 0), maxI(y1-1, 0)
	x2, y2 := minI(x1+1, w-1), minI(y1+1, h-1)

	pos := img.NRGBAAt(b.Min.X+x1, b.Min.Y+y1)
	zeroes := 0
	var minDelta, maxDelta float64
	var minX, minY, maxX, maxY int
	first := true

	for y := y0; y <= y2; y++ {
		for x := x0; x <= x2; x++ {
			if x == x1 && y == y1 {
				continue
			}
			delta := colorDelta(pos, img.NRGBAAt(b.Min.X+x, b.Min.Y+y), true)
			if delta == 0 {
				zeroes++
				if zeroes > 2 {
					return false
				}
				continue
			}
			if first {
				minDelta, maxDelta = delta, delta
				minX, minY, maxX, maxY = x, y, x, y
				first = false
				continue
			}
			if delta < minDelta {
				minDelta = delta
				minX, minY = x, y
			}
			if delta > maxDelta {
				maxDelta = delta
				maxX, maxY = x, y
			}
		}
	}

	if first || minDelta == 0 || maxDelta == 0 {
		return false
	}

	return (hasManySiblings(img, minX, minY, w, h) && hasManySiblings(other, minX, minY, w, h)) ||
		(hasManySiblings(img, maxX, maxY, w, h) && hasManySiblings(other, maxX, maxY, w, h))
}

// hasManySiblings reports whether pixel (x,y) has 3+ neighbors with the
// identical color, the pixelmatch.js heuristic for "this is part of a flat
// region, not real content."
func hasManySiblings(img *image.NRGBA, x1, y1, w, h int) bool {
	b := img.Bounds()
	x0, y0 := maxI(x1-1, 0), maxI(y1-1, 0)
	x2, y2 := minI(x1+1, w-1), minI(y1+1, h-1)
	val := img.NRGBAAt(b.Min.X+x1, b.Min.Y+y1)

	zeroes := 0
	for y := y0; y <= y2; y++ {
		for x := x0; x <= x2; x++ {
			if x == x1 && y == y1 {
				continue
			}
			if img.NRGBAAt(b.Min.X+x, b.Min.Y+y) == val {
				zeroes++
			}
		}
	}
	return zeroes >= 3
}

func maxI(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minI(a, b int) int {
	if a < b {
		return a
	}
	return b
}
