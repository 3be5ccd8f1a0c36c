package vision

import (
	"context"

	"go.vrtcore.dev/internal/sklog"
	"go.vrtcore.dev/vrt/comparator"
	"go.vrtcore.dev/vrt/types"
)

// NewAnalyzer closes over the baseline/test paths and prompt/model a single
// comparison needs, producing the comparator.AIAnalyzer function the
// comparator invokes with just the diff image path once a real diff is
// confirmed. A provider failure is logged and returns (nil, nil); a parse
// failure is logged and returns the analysis carrying only the raw text,
// with a nil error. Neither fails the whole comparison — an AI triage pass is advisory,
// never a precondition for producing a ComparisonResult.
func NewAnalyzer(ctx context.Context, provider Provider, baselinePath, testPath, prompt, model string) comparator.AIAnalyzer {
	return func(diffImagePath string) (*types.AIAnalysis, error) {
		resp, err := provider.Analyze(ctx, AnalyzeRequest{
			BaselinePath: baselinePath,
			TestPath:     testPath,
			DiffPath:     diffImagePath,
			Prompt:       prompt,
			Model:        model,
		})
		if err != nil {
			sklog.Warningf("AI triage call failed, continuing without it: %v", err)
			return nil, nil
		}

		analysis, err := ParseAnalysis(resp)
		if err != nil {
			sklog.Warningf("AI triage response could not be parsed, continuing without it: %v", err)
			return analysis, nil
		}
		return analysis, nil
	}
}
