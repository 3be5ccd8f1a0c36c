package vision

import (
	"encoding/json"
	"strings"

	"go.vrtcore.dev/internal/skerr"
	"go.vrtcore.dev/vrt/types"
)

// ExtractJSON locates the outermost {...} block in text and returns it
// verbatim, tolerating prose or code-fence markers before and after it, per
// spec.md §6's "callee returns raw text; scorer extracts JSON" contract.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", skerr.Fmt("no JSON object found in AI response text")
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", skerr.Fmt("unbalanced JSON object in AI response text")
}

type analysisPayload struct {
	Category       string  `json:"category"`
	Severity       string  `json:"severity"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
}

// ParseAnalysis extracts and decodes the structured triage fields out of a
// provider's raw response text. On extraction or decode failure it still
// returns an AIAnalysis carrying the raw text (so a caller can show it to a
// human) alongside the error.
func ParseAnalysis(resp AnalyzeResponse) (*types.AIAnalysis, error) {
	analysis := &types.AIAnalysis{RawText: resp.Text, TokensUsed: resp.TokensUsed}

	block, err := ExtractJSON(resp.Text)
	if err != nil {
		return analysis, err
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return analysis, skerr.Wrapf(err, "decoding AI triage JSON")
	}

	analysis.Category = types.ChangeCategory(payload.Category)
	analysis.Severity = types.Severity(payload.Severity)
	analysis.Confidence = payload.Confidence
	analysis.Recommendation = types.AIRecommendation(payload.Recommendation)
	return analysis, nil
}
