// Package comparator implements the single-pair comparison algorithm from
// spec.md §4.4: decode two screenshots, reconcile their sizes, compute the
// optional DOM diff, run the pixelmatch engine to decide match-or-diff, and
// on a diff fan the remaining engines out before scoring and classifying the
// result.
package comparator

import (
	"image"
	"image/png"
	"os"

	"golang.org/x/sync/errgroup"

	"go.vrtcore.dev/internal/skerr"
	"go.vrtcore.dev/vrt/domdiff"
	"go.vrtcore.dev/vrt/engines"
	"go.vrtcore.dev/vrt/imageproc"
	"go.vrtcore.dev/vrt/scoring"
	"go.vrtcore.dev/vrt/types"
)

// tallPageCutoffPx is the page height at or above which the absolute-pixel-count
// tolerance is disabled: a full-page screenshot that's several times the
// viewport height will accumulate diff pixels from ordinary reflow in
// proportion to its length, so only a percentage-based tolerance remains
// meaningful. Not configurable — every worked example in spec.md uses this
// exact cutoff, and no sibling example in the pack threads a cutoff like
// this through config rather than a constant.
const tallPageCutoffPx = 4000

// AIAnalyzer is invoked with the diff image path once a real pixel diff is
// confirmed, to get an optional AI vision triage. Built by
// vrt/vision.NewAnalyzer around a vision Provider; kept as a function type here so the comparator
// has no import-time dependency on the HTTP/vision stack.
type AIAnalyzer func(diffImagePath string) (*types.AIAnalysis, error)

// Options configures one ComparePair call.
type Options struct {
	SizeNormalization    types.SizeNormalization
	SizeMismatchHandling types.SizeMismatchHandling

	// DiffThresholdPercent is the maximum diff percentage that still counts
	// as a match-by-tolerance. Optional: nil means no percentage tolerance
	// is applied and any nonzero pixel diff falls through to the pixel-count
	// tolerance (if configured) or is judged a Diff, per spec.md §4.4 step 5.
	DiffThresholdPercent *float64
	// DiffThresholdPixels is an optional absolute pixel-count tolerance,
	// disabled outright on tall pages (see tallPageCutoffPx).
	DiffThresholdPixels *int

	// KeepDiffOnMatch retains the pixelmatch diff image even when the pair
	// is ultimately judged a match (useful for auditing near-miss
	// tolerance matches).
	KeepDiffOnMatch bool

	EngineConfig engines.Config
	Rules        []scoring.Rule
	// Thresholds overrides the default confidence-verdict cut points. Zero
	// value means "use scoring.DefaultThresholds()".
	Thresholds *scoring.Thresholds
}

// DefaultOptions returns the tolerance/engine defaults spec.md §4.4/§7
// describes.
func DefaultOptions() Options {
	return Options{
		SizeNormalization:    types.SizeNormalizationPad,
		SizeMismatchHandling: types.SizeMismatchStrict,
		EngineConfig:         engines.DefaultConfig(),
		Rules:                scoring.DefaultRules(),
	}
}

// ComparePair runs the full comparison algorithm for one baseline/test
// image pair. diffOutPrefix is a path prefix (no extension) engines use to
// name any diff image they write. baselineDom/testDom are optional DOM
// snapshots: when both are present, a DOM diff is always computed (even on
// a tentative pixel match) so a literal text change can promote the result
// from Match to Diff, per spec.md §4.4's DOM gate.
func ComparePair(baselinePath, testPath, diffOutPrefix string, baselineDom, testDom *types.DomSnapshot, analyzer AIAnalyzer, opts Options) types.ComparisonResult {
	if !fileExists(baselinePath) {
		return types.NewNoBaseline(baselinePath, testPath)
	}
	if !fileExists(testPath) {
		return types.NewNoTest(baselinePath, testPath)
	}

	baselineImg, err := decodePNG(baselinePath)
	if err != nil {
		return types.NewError(baselinePath, testPath, skerr.Wrapf(err, "decoding baseline"))
	}
	testImg, err := decodePNG(testPath)
	if err != nil {
		return types.NewError(baselinePath, testPath, skerr.Wrapf(err, "decoding test"))
	}

	origBaseBounds := baselineImg.Bounds()
	origTestBounds := testImg.Bounds()
	sizeMismatchOriginal := origBaseBounds.Dx() != origTestBounds.Dx() || origBaseBounds.Dy() != origTestBounds.Dy()

	tallPage := maxI(origBaseBounds.Dy(), origTestBounds.Dy()) >= tallPageCutoffPx

	baselineImg, testImg = imageproc.TrimUniformTrailingRows(baselineImg, testImg)
	baselineImg, testImg = imageproc.Normalize(baselineImg, testImg, opts.SizeNormalization)

	pixelResult := engines.Pixelmatch.Compare(baselineImg, testImg, diffOutPrefix, opts.EngineConfig)
	if pixelResult.Failed() {
		return types.NewError(baselinePath, testPath, skerr.Fmt("pixelmatch: %s", pixelResult.Error))
	}

	var domDiff *types.DomDiffResult
	if baselineDom != nil && testDom != nil {
		d := domdiff.Compare(*baselineDom, *testDom)
		domDiff = &d
	}

	isMatch := withinTolerance(pixelResult, tallPage, opts)
	if sizeMismatchOriginal && opts.SizeMismatchHandling == types.SizeMismatchStrict {
		isMatch = false
	}
	if domDiff != nil && domDiff.Summary.TextChanged > 0 {
		isMatch = false
	}

	if isMatch {
		return buildMatch(baselinePath, testPath, testImg, pixelResult, opts)
	}

	return buildDiff(baselinePath, testPath, diffOutPrefix, baselineImg, testImg, pixelResult, domDiff, sizeMismatchOriginal, analyzer, opts)
}

func withinTolerance(r types.EngineResult, tallPage bool, opts Options) bool {
	if r.DiffPixels != nil && *r.DiffPixels == 0 {
		return true
	}
	if opts.DiffThresholdPercent != nil && r.DiffPercent <= *opts.DiffThresholdPercent {
		return true
	}
	if tallPage || opts.DiffThresholdPixels == nil || r.DiffPixels == nil {
		return false
	}
	return *r.DiffPixels <= *opts.DiffThresholdPixels
}

func buildMatch(baselinePath, testPath string, testImg *image.NRGBA, pixelResult types.EngineResult, opts Options) types.ComparisonResult {
	reason := types.MatchReasonExact
	if pixelResult.DiffPixels != nil && *pixelResult.DiffPixels > 0 {
		reason = types.MatchReasonTolerance
	}

	phashVal := int(engines.Hash64(testImg))

	if !opts.KeepDiffOnMatch && pixelResult.DiffImagePath != "" {
		_ = os.Remove(pixelResult.DiffImagePath)
		pixelResult.DiffImagePath = ""
	}

	diffPixels := 0
	if pixelResult.DiffPixels != nil {
		diffPixels = *pixelResult.DiffPixels
	}

	return types.NewMatch(baselinePath, testPath, diffPixels, pixelResult.DiffPercent, pixelResult.DiffImagePath, reason, nil, &phashVal)
}

func buildDiff(baselinePath, testPath, diffOutPrefix string, baselineImg, testImg *image.NRGBA, pixelResult types.EngineResult, domDiff *types.DomDiffResult, sizeMismatchOriginal bool, analyzer AIAnalyzer, opts Options) types.ComparisonResult {
	remaining := []engines.Engine{engines.Odiff, engines.SSIM, engines.PHash}
	results := make([]types.EngineResult, len(remaining))

	var g errgroup.Group
	for i, eng := range remaining {
		i, eng := i, eng
		g.Go(func() error {
			results[i] = eng.Compare(baselineImg, testImg, diffOutPrefix, opts.EngineConfig)
			return nil
		})
	}
	_ = g.Wait()

	allResults := append([]types.EngineResult{pixelResult}, results...)

	diffPixels := 0
	if pixelResult.DiffPixels != nil {
		diffPixels = *pixelResult.DiffPixels
	}

	result := types.ComparisonResult{
		Reason:         types.ReasonDiff,
		Baseline:       baselinePath,
		Test:           testPath,
		PixelDiff:      diffPixels,
		DiffPercentage: pixelResult.DiffPercent,
		DiffPath:       pixelResult.DiffImagePath,
		EngineResults:  allResults,
		DomDiff:        domDiff,
	}
	if sizeMismatchOriginal {
		result.SizeMismatchError = "baseline and test differ in original dimensions"
	}

	for _, r := range allResults {
		if r.Engine == types.EngineSSIM && !r.Failed() {
			ssim := r.Similarity
			result.SSIM = &ssim
		}
	}

	uc := scoring.UnifiedConfidence(allResults)
	result.UnifiedConfidence = &uc

	if analyzer != nil && pixelResult.DiffImagePath != "" {
		if ai, err := analyzer(pixelResult.DiffImagePath); err == nil && ai != nil {
			result.AIAnalysis = ai
		}
	}

	thresholds := scoring.DefaultThresholds()
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}
	score, verdict := scoring.WeightedConfidenceWithThresholds(pixelResult.DiffPercent, allResults, domDiff, result.AIAnalysis, thresholds)
	result.Confidence = &score
	result.ScoreVerdict = verdict

	category := categoryFromResult(result)
	domTextChanges := 0
	if domDiff != nil {
		domTextChanges = domDiff.Summary.TextChanged
	}
	ctx := scoring.EvalContext{
		Category:        category,
		Severity:        severityFromResult(result),
		Confidence:      score,
		DiffPercent:     pixelResult.DiffPercent,
		SSIM:            result.SSIM,
		PHashSimilarity: phashSimilarity(allResults),
		DomTextChanges:  domTextChanges,
	}
	rules := opts.Rules
	if rules == nil {
		rules = scoring.DefaultRules()
	}
	result.AutoAction = scoring.Evaluate(rules, ctx, types.AutoActionFlag)

	return result
}

func categoryFromResult(r types.ComparisonResult) types.ChangeCategory {
	if r.AIAnalysis != nil && r.AIAnalysis.Category != "" {
		return r.AIAnalysis.Category
	}
	if r.DomDiff != nil {
		return domdiff.ClassifyCategory(r.DomDiff.Summary)
	}
	return types.CategoryNoise
}

func severityFromResult(r types.ComparisonResult) types.Severity {
	if r.AIAnalysis != nil && r.AIAnalysis.Severity != "" {
		return r.AIAnalysis.Severity
	}
	if r.DomDiff != nil {
		worst := types.SeverityInfo
		for _, f := range r.DomDiff.Findings {
			if severityRank(f.Severity) > severityRank(worst) {
				worst = f.Severity
			}
		}
		return worst
	}
	return types.SeverityWarning
}

func severityRank(s types.Severity) int {
	switch s {
	case types.SeverityCritical:
		return 2
	case types.SeverityWarning:
		return 1
	default:
		return 0
	}
}

func phashSimilarity(results []types.EngineResult) *float64 {
	for _, r := range results {
		if r.Engine == types.EnginePHash && !r.Failed() {
			v := r.Similarity
			return &v
		}
	}
	return nil
}

func decodePNG(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, err
	}
	return imageproc.ToNRGBA(img), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func maxI(a, b int) int {
	if a > b {
		return a
	}
	return b
}
