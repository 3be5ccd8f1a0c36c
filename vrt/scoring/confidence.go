package scoring

import (
	"math"

	"go.vrtcore.dev/vrt/domdiff"
	"go.vrtcore.dev/vrt/types"
)

// confidenceWeights is the share each signal contributes to the weighted
// user-facing confidence score, per spec.md §4.5. ssim dominates either
// set since it's the most structure-aware signal short of AI triage.
var (
	confidenceWeightsWithAI = map[string]float64{"ssim": 0.25, "phash": 0.20, "pixel": 0.15, "ai": 0.40}
	confidenceWeightsNoAI   = map[string]float64{"ssim": 0.45, "phash": 0.30, "pixel": 0.25}
)

// Thresholds configures the score cut points WeightedConfidence buckets
// into a ScoreVerdict, per spec.md §4.5's "confidence thresholds" config
// section — an operator can tighten or loosen these per project without
// touching the scoring formula itself.
type Thresholds struct {
	Pass        float64 `json:"pass,omitempty" optional:"true" validate:"omitempty,gte=0,lte=1"`
	LikelyPass  float64 `json:"likely_pass,omitempty" optional:"true" validate:"omitempty,gte=0,lte=1"`
	NeedsReview float64 `json:"needs_review,omitempty" optional:"true" validate:"omitempty,gte=0,lte=1"`
	LikelyFail  float64 `json:"likely_fail,omitempty" optional:"true" validate:"omitempty,gte=0,lte=1"`
}

// DefaultThresholds matches spec.md §4.5's worked defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Pass: 0.9, LikelyPass: 0.75, NeedsReview: 0.5, LikelyFail: 0.3}
}

// BucketVerdict maps a 0-1 score to a ScoreVerdict under t.
func BucketVerdict(score float64, t Thresholds) types.ScoreVerdict {
	switch {
	case score >= t.Pass:
		return types.ScoreVerdictPass
	case score >= t.LikelyPass:
		return types.ScoreVerdictLikelyPass
	case score >= t.NeedsReview:
		return types.ScoreVerdictNeedsReview
	case score >= t.LikelyFail:
		return types.ScoreVerdictLikelyFail
	default:
		return types.ScoreVerdictFail
	}
}

// WeightedConfidence folds pixel, structural, perceptual-hash, optional AI
// triage, and optional DOM-diff signals into a single 0-1 confidence score
// and buckets it into a ScoreVerdict under the default thresholds, per
// spec.md §4.5.
func WeightedConfidence(diffPercent float64, engineResults []types.EngineResult, dom *types.DomDiffResult, ai *types.AIAnalysis) (float64, types.ScoreVerdict) {
	return WeightedConfidenceWithThresholds(diffPercent, engineResults, dom, ai, DefaultThresholds())
}

// WeightedConfidenceWithThresholds is WeightedConfidence with a caller-
// supplied verdict bucketing, for projects that configure their own
// confidence thresholds.
func WeightedConfidenceWithThresholds(diffPercent float64, engineResults []types.EngineResult, dom *types.DomDiffResult, ai *types.AIAnalysis, thresholds Thresholds) (float64, types.ScoreVerdict) {
	pixelScore := clamp01(math.Exp(-diffPercent / 10))

	ssimSim, ok := engineSimilarity(engineResults, types.EngineSSIM)
	if !ok {
		ssimSim = pixelScore
	}
	phashSim, ok := engineSimilarity(engineResults, types.EnginePHash)
	if !ok {
		phashSim = pixelScore
	}

	var score float64
	if ai != nil {
		w := confidenceWeightsWithAI
		score = w["pixel"]*pixelScore + w["ssim"]*ssimSim + w["phash"]*phashSim + w["ai"]*aiAdjustedScore(ai)
	} else {
		w := confidenceWeightsNoAI
		score = w["pixel"]*pixelScore + w["ssim"]*ssimSim + w["phash"]*phashSim
	}

	score = applyCategoryAdjustment(score, categoryFor(dom, ai))

	if dom != nil {
		switch {
		case dom.Summary.TextChanged >= 5:
			score = math.Min(score, thresholds.NeedsReview-0.01)
		case dom.Summary.TextChanged >= 1:
			score = math.Min(score, thresholds.LikelyPass-0.01)
		}
	}

	score = clamp01(score)
	return score, BucketVerdict(score, thresholds)
}

// aiAdjustedScore turns an AIAnalysis into a 0-1 "this is probably fine"
// score, per spec.md §4.5: approve nudges the model's stated confidence up,
// reject nudges it down, and review leaves it unadjusted.
func aiAdjustedScore(ai *types.AIAnalysis) float64 {
	base := clamp01(ai.Confidence)
	switch ai.Recommendation {
	case types.AIRecommendApprove:
		return clamp01(base + 0.10)
	case types.AIRecommendReject:
		return clamp01(base - 0.20)
	default:
		return clamp01(base)
	}
}

func categoryFor(dom *types.DomDiffResult, ai *types.AIAnalysis) types.ChangeCategory {
	if ai != nil && ai.Category != "" {
		return ai.Category
	}
	if dom != nil {
		return domdiff.ClassifyCategory(dom.Summary)
	}
	return types.CategoryNoise
}

// applyCategoryAdjustment nudges the raw signal-weighted score by an
// additive offset based on the semantic bucket the change falls into, per
// spec.md §4.5: real content regressions are penalized even if pixels
// mostly agree, purely cosmetic/noise changes get a small boost since
// they're the common case that should sail through.
func applyCategoryAdjustment(score float64, category types.ChangeCategory) float64 {
	switch category {
	case types.CategoryRegression:
		return clamp01(score - 0.25)
	case types.CategoryContentChange:
		return clamp01(score - 0.05)
	case types.CategoryLayoutShift:
		return clamp01(score - 0.10)
	case types.CategoryCosmetic:
		return clamp01(score + 0.15)
	case types.CategoryNoise:
		return clamp01(score + 0.20)
	default:
		return score
	}
}

