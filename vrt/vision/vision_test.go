package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.vrtcore.dev/internal/testutils"
	"go.vrtcore.dev/vrt/types"
)

func TestExtractJSONPlainObject(t *testing.T) {
	testutils.SmallTest(t)
	block, err := ExtractJSON(`{"category":"cosmetic"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"category":"cosmetic"}`, block)
}

func TestExtractJSONToleratesFencingAndProse(t *testing.T) {
	testutils.SmallTest(t)
	text := "Here's my analysis:\n```json\n{\"category\": \"regression\", \"severity\": \"critical\"}\n```\nLet me know if you need more."
	block, err := ExtractJSON(text)
	require.NoError(t, err)
	assert.Equal(t, `{"category": "regression", "severity": "critical"}`, block)
}

func TestExtractJSONNoObjectErrors(t *testing.T) {
	testutils.SmallTest(t)
	_, err := ExtractJSON("no json here")
	assert.Error(t, err)
}

func TestParseAnalysisPopulatesFields(t *testing.T) {
	testutils.SmallTest(t)
	resp := AnalyzeResponse{
		Text:       `{"category":"cosmetic","severity":"info","confidence":0.92,"recommendation":"approve"}`,
		TokensUsed: 123,
	}
	analysis, err := ParseAnalysis(resp)
	require.NoError(t, err)
	assert.Equal(t, types.CategoryCosmetic, analysis.Category)
	assert.Equal(t, types.SeverityInfo, analysis.Severity)
	assert.Equal(t, types.AIRecommendApprove, analysis.Recommendation)
	assert.Equal(t, 0.92, analysis.Confidence)
	assert.Equal(t, 123, analysis.TokensUsed)
}

func TestParseAnalysisReturnsRawTextOnFailure(t *testing.T) {
	testutils.SmallTest(t)
	resp := AnalyzeResponse{Text: "the model refused to answer"}
	analysis, err := ParseAnalysis(resp)
	assert.Error(t, err)
	require.NotNil(t, analysis)
	assert.Equal(t, "the model refused to answer", analysis.RawText)
}

type fakeProvider struct {
	resp AnalyzeResponse
	err  error
}

func (f *fakeProvider) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResponse, error) {
	return f.resp, f.err
}

func TestNewAnalyzerReturnsParsedAnalysis(t *testing.T) {
	testutils.SmallTest(t)
	provider := &fakeProvider{resp: AnalyzeResponse{Text: `{"category":"noise","severity":"info","confidence":0.5,"recommendation":"review"}`}}
	analyzer := NewAnalyzer(context.Background(), provider, "baseline.png", "test.png", "", "")

	analysis, err := analyzer("diff.png")
	require.NoError(t, err)
	require.NotNil(t, analysis)
	assert.Equal(t, types.CategoryNoise, analysis.Category)
}

func TestNewAnalyzerToleratesProviderFailure(t *testing.T) {
	testutils.SmallTest(t)
	provider := &fakeProvider{err: assertErr("timeout")}
	analyzer := NewAnalyzer(context.Background(), provider, "baseline.png", "test.png", "", "")

	analysis, err := analyzer("diff.png")
	assert.NoError(t, err)
	assert.Nil(t, analysis)
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
func assertErr(msg string) error  { return simpleErr(msg) }
