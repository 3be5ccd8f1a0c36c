package engines

import (
	"image"

	"go.vrtcore.dev/internal/skerr"
	"go.vrtcore.dev/vrt/types"
)

// ssimEngine computes the structural similarity index (Wang et al. 2004)
// between two grayscale images using the standard 8x8 non-overlapping block
// windowing, which is adequate for the whole-page screenshot comparisons
// this engine runs against and much cheaper than the paper's 11x11 Gaussian
// window for images this large.
type ssimEngine struct{}

// SSIM is the structural-similarity comparison engine.
var SSIM Engine = ssimEngine{}

const (
	ssimWindow = 8
	ssimC1     = (0.01 * 255) * (0.01 * 255)
	ssimC2     = (0.03 * 255) * (0.03 * 255)
)

func (ssimEngine) Name() types.EngineName { return types.EngineSSIM }

func (e ssimEngine) Compare(baseline, test *image.NRGBA, diffOutPrefix string, cfg Config) types.EngineResult {
	b := baseline.Bounds()
	if b != test.Bounds() {
		return errorResult(types.EngineSSIM, skerr.Fmt("ssim: image dimensions differ after normalization"))
	}

	maxSide := cfg.SSIMDownscaleAbove
	if maxSide <= 0 {
		maxSide = 3000
	}
	base, tst := baseline, test
	if b.Dx() > maxSide || b.Dy() > maxSide {
		base = downscaleToMax(baseline, maxSide)
		tst = downscaleToMax(test, maxSide)
	}

	gb := toGray(base)
	gt := toGray(tst)

	index := ssimIndex(gb, gt)
	diffPct := (1 - index) * 100

	return types.EngineResult{
		Engine:      types.EngineSSIM,
		Similarity:  index,
		DiffPercent: diffPct,
	}
}

// downscaleToMax scales img down (nearest-neighbor, cheap and sufficient
// for a structural-index computation) so neither side exceeds maxSide.
func downscaleToMax(img *image.NRGBA, maxSide int) *image.NRGBA {
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
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nearestResizeGray(img, nw, nh)
}

func nearestResizeGray(img *image.NRGBA, nw, nh int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	for y := 0; y < nh; y++ {
		sy := y * h / nh
		for x := 0; x < nw; x++ {
			sx := x * w / nw
			out.SetNRGBA(x, y, img.NRGBAAt(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return out
}

func toGray(img *image.NRGBA) [][]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([][]float64, h)
	for y := 0; y < h; y++ {
		out[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			p := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			out[y][x] = rgb2y(float64(p.R), float64(p.G), float64(p.B))
		}
	}
	return out
}

// ssimIndex computes the mean SSIM over non-overlapping ssimWindow x
// ssimWindow blocks.
func ssimIndex(a, b [][]float64) float64 {
	h := len(a)
	if h == 0 {
		return 1
	}
	w := len(a[0])

	var sum float64
	var count int
	for y := 0; y < h; y += ssimWindow {
		for x := 0; x < w; x += ssimWindow {
			y2 := minI(y+ssimWindow, h)
			x2 := minI(x+ssimWindow, w)
			sum += blockSSIM(a, b, x, y, x2, y2)
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return sum / float64(count)
}

func blockSSIM(a, b [][]float64, x0, y0, x1, y1 int) float64 {
	n := float64((x1 - x0) * (y1 - y0))
	if n == 0 {
		return 1
	}

	var sumA, sumB float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			sumA += a[y][x]
			sumB += b[y][x]
		}
	}
	meanA := sumA / n
	meanB := sumB / n

	var varA, varB, covAB float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			da := a[y][x] - meanA
			db := b[y][x] - meanB
			varA += da * da
			varB += db * db
			covAB += da * db
		}
	}
	varA /= n
	varB /= n
	covAB /= n

	numerator := (2*meanA*meanB + ssimC1) * (2*covAB + ssimC2)
	denominator := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)
	if denominator == 0 {
		return 1
	}
	return numerator / denominator
}
