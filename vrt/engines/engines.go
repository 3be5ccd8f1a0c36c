// Package engines implements the pixel/structural comparison engines named
// in spec.md §4.2: pixelmatch, odiff, SSIM, and perceptual hash. Every
// adapter implements the same Engine contract so the comparator and scorer
// can fan a pair of images out across all of them uniformly.
package engines

import (
	"image"
	"image/color"

	"go.vrtcore.dev/vrt/types"
)

// Config holds the tunables every engine adapter reads from, per spec.md
// §4.2/§7. Fields an adapter doesn't use are simply ignored.
type Config struct {
	// PixelmatchThreshold is the per-channel perceptual color-distance
	// threshold (0-1) above which a pixel is counted as different.
	PixelmatchThreshold float64
	// IncludeAA, when false (the default), excludes pixels pixelmatch
	// detects as anti-aliasing artifacts from the diff count.
	IncludeAA bool
	// Alpha is the opacity (0-1) applied to unchanged pixels in the
	// pixelmatch diff image, so the diff highlights stand out against a
	// dimmed backdrop.
	Alpha float64
	// DiffColor overrides the default diff-highlight color (red) used by
	// the pixelmatch adapter. The odiff adapter does not pass it to odiff.
	DiffColor color.NRGBA

	// SSIMDownscaleAbove is the side length (px) above which the SSIM
	// adapter downscales both images before computing the index, to keep
	// the windowed computation tractable on full-page screenshots.
	SSIMDownscaleAbove int

	// OdiffBinaryOverride pins an explicit path to the odiff binary,
	// taking priority over every other lookup strategy.
	OdiffBinaryOverride string
}

// DefaultConfig returns the engine tunables spec.md §4.2 specifies as
// defaults.
func DefaultConfig() Config {
	return Config{
		PixelmatchThreshold: 0.1,
		IncludeAA:           false,
		Alpha:               0.1,
		DiffColor:           color.NRGBA{R: 255, A: 255},
		SSIMDownscaleAbove:  3000,
	}
}

// Engine compares a baseline/test image pair, already size-normalized by
// vrt/imageproc, and returns a uniform EngineResult. diffOutPrefix is a
// path prefix (no extension) the engine may append its own suffix to when
// it writes a diff image; engines that cannot usefully visualize a diff
// (phash) leave DiffImagePath empty.
type Engine interface {
	Name() types.EngineName
	Compare(baseline, test *image.NRGBA, diffOutPrefix string, cfg Config) types.EngineResult
}

func errorResult(name types.EngineName, err error) types.EngineResult {
	return types.EngineResult{Engine: name, Error: err.Error()}
}

// All returns every engine adapter, in the fixed order the unified-
// confidence weighting in spec.md §4.5 assigns weights by
// (pixelmatch, odiff, ssim, phash).
func All() []Engine {
	return []Engine{Pixelmatch, Odiff, SSIM, PHash}
}
