// Package scoring computes the two confidence signals spec.md §4.5 defines
// over a comparison: the fixed-weight multi-engine agreement score used for a
// quick pass/warn/fail read, and the fuller weighted confidence score (which
// folds in AI triage and DOM findings) used to drive the user-facing verdict
// and the auto-approve/flag/reject rule evaluator.
package scoring

import (
	"math"

	"go.vrtcore.dev/vrt/types"
)

// unifiedWeights assigns each engine a fixed share of the unified-confidence
// score, per spec.md §4.5. Engines that failed to produce a result are
// dropped and the remaining weights renormalized, so a missing odiff binary
// never drags the score down just because the engine wasn't available.
var unifiedWeights = map[types.EngineName]float64{
	types.EnginePixelmatch: 0.30,
	types.EngineOdiff:      0.30,
	types.EngineSSIM:       0.25,
	types.EnginePHash:      0.15,
}

// UnifiedConfidence computes the weighted multi-engine agreement score over
// every engine result that didn't fail, renormalizing the weights of
// whichever engines actually produced a usable similarity.
func UnifiedConfidence(results []types.EngineResult) types.UnifiedConfidence {
	var weightedSum, weightTotal float64
	for _, r := range results {
		if r.Failed() {
			continue
		}
		w, ok := unifiedWeights[r.Engine]
		if !ok {
			continue
		}
		weightedSum += w * clamp01(r.Similarity)
		weightTotal += w
	}

	if weightTotal == 0 {
		return types.UnifiedConfidence{Score100: 0, Verdict: types.EngineVerdictFail}
	}

	score := weightedSum / weightTotal
	score100 := int(math.Round(score * 100))

	var verdict types.EngineVerdict
	switch {
	case score100 >= 95:
		verdict = types.EngineVerdictPass
	case score100 >= 80:
		verdict = types.EngineVerdictWarn
	default:
		verdict = types.EngineVerdictFail
	}

	return types.UnifiedConfidence{Score100: score100, Verdict: verdict}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func engineSimilarity(results []types.EngineResult, name types.EngineName) (float64, bool) {
	for _, r := range results {
		if r.Engine == name && !r.Failed() {
			return r.Similarity, true
		}
	}
	return 0, false
}
