package types

// Severity is the closed set of DOM-finding and AI-triage severities.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ChangeCategory is the closed set of semantic buckets a diff can be
// classified into, used by both the DOM classifier and AI triage.
type ChangeCategory string

const (
	CategoryCosmetic      ChangeCategory = "cosmetic"
	CategoryNoise         ChangeCategory = "noise"
	CategoryContentChange ChangeCategory = "content_change"
	CategoryLayoutShift   ChangeCategory = "layout_shift"
	CategoryRegression    ChangeCategory = "regression"
)

// DomFindingType is the closed set of findings the DOM-snapshot comparator
// can emit, per spec.md §4.3.
type DomFindingType string

const (
	FindingTextChanged       DomFindingType = "text_changed"
	FindingTextMoved         DomFindingType = "text_moved"
	FindingLayoutShift       DomFindingType = "layout_shift"
	FindingSpacingChange     DomFindingType = "spacing_change"
	FindingBackgroundChange  DomFindingType = "background_change"
	FindingStyleChange       DomFindingType = "style_change"
	FindingElementAdded      DomFindingType = "element_added"
	FindingElementRemoved    DomFindingType = "element_removed"
)

// DomFinding is one semantic change detected between two DOM snapshots.
type DomFinding struct {
	Type     DomFindingType `json:"type"`
	Severity Severity       `json:"severity"`
	Path     string         `json:"path"`
	Message  string         `json:"message"`
}

// DomDiffSummary tallies findings by type, used both for the confidence
// score's text-change caps and for the classifier's category mapping.
type DomDiffSummary struct {
	TextChanged      int `json:"text_changed"`
	TextMoved        int `json:"text_moved"`
	LayoutShift      int `json:"layout_shift"`
	SpacingChange    int `json:"spacing_change"`
	BackgroundChange int `json:"background_change"`
	StyleChange      int `json:"style_change"`
	ElementAdded     int `json:"element_added"`
	ElementRemoved   int `json:"element_removed"`
}

// Total returns the number of findings represented by the summary.
func (s DomDiffSummary) Total() int {
	return s.TextChanged + s.TextMoved + s.LayoutShift + s.SpacingChange +
		s.BackgroundChange + s.StyleChange + s.ElementAdded + s.ElementRemoved
}

// DomDiffResult is the output of the DOM-snapshot comparator.
type DomDiffResult struct {
	Findings   []DomFinding   `json:"findings"`
	Summary    DomDiffSummary `json:"summary"`
	Similarity float64        `json:"similarity"`
}

// AIRecommendation is the closed set of dispositions a VisionProvider triage
// pass can recommend.
type AIRecommendation string

const (
	AIRecommendApprove AIRecommendation = "approve"
	AIRecommendReject  AIRecommendation = "reject"
	AIRecommendReview  AIRecommendation = "review"
)

// AIAnalysis is the scorer-extracted, structured result of an AI vision
// triage pass over a diff image.
type AIAnalysis struct {
	RawText        string           `json:"raw_text"`
	Category       ChangeCategory   `json:"category,omitempty"`
	Severity       Severity         `json:"severity,omitempty"`
	Confidence     float64          `json:"confidence"`
	Recommendation AIRecommendation `json:"recommendation,omitempty"`
	TokensUsed     int              `json:"tokens_used,omitempty"`
}

// EngineVerdict is the pass/warn/fail bucket computed from the fixed-weight
// multi-engine agreement score, per spec.md §4.5.
type EngineVerdict string

const (
	EngineVerdictPass EngineVerdict = "pass"
	EngineVerdictWarn EngineVerdict = "warn"
	EngineVerdictFail EngineVerdict = "fail"
)

// UnifiedConfidence is the weighted multi-engine agreement score, distinct
// from the user-facing ScoreVerdict computed by the weighted confidence
// scorer.
type UnifiedConfidence struct {
	Score100 int           `json:"score_100"`
	Verdict  EngineVerdict `json:"verdict"`
}

// ScoreVerdict is the user-facing confidence bucket, per spec.md §4.5.
type ScoreVerdict string

const (
	ScoreVerdictPass        ScoreVerdict = "pass"
	ScoreVerdictLikelyPass  ScoreVerdict = "likely-pass"
	ScoreVerdictNeedsReview ScoreVerdict = "needs-review"
	ScoreVerdictLikelyFail  ScoreVerdict = "likely-fail"
	ScoreVerdictFail        ScoreVerdict = "fail"
)

// AutoAction is the closed set of dispositions the rule evaluator can apply
// to a Diff result.
type AutoAction string

const (
	AutoActionApprove AutoAction = "approve"
	AutoActionFlag    AutoAction = "flag"
	AutoActionReject  AutoAction = "reject"
)

// MatchReason distinguishes a byte-for-byte match from one accepted only
// because it fell within a configured tolerance.
type MatchReason string

const (
	MatchReasonExact     MatchReason = "exact"
	MatchReasonTolerance MatchReason = "tolerance"
)

// Reason is the discriminant of the ComparisonResult tagged union.
type Reason string

const (
	ReasonMatch      Reason = "match"
	ReasonDiff       Reason = "diff"
	ReasonNoBaseline Reason = "no_baseline"
	ReasonNoTest     Reason = "no_test"
	ReasonError      Reason = "error"
)

// ComparisonResult is the discriminated union described in spec.md §3. Only
// the fields relevant to Reason are populated; use the Visit method (or the
// Is* guards) rather than reading fields for a Reason they don't belong to.
type ComparisonResult struct {
	Reason   Reason `json:"reason"`
	Baseline string `json:"baseline"`
	Test     string `json:"test"`

	// Shared by Match and Diff.
	PixelDiff      int     `json:"pixel_diff"`
	DiffPercentage float64 `json:"diff_percentage"`
	DiffPath       string  `json:"diff_path,omitempty"`
	SSIM           *float64 `json:"ssim,omitempty"`
	PHash          *int     `json:"phash,omitempty"`

	// Match-only.
	MatchReason MatchReason `json:"match_reason,omitempty"`

	// Diff-only.
	SizeMismatchError string             `json:"size_mismatch_error,omitempty"`
	EngineResults     []EngineResult     `json:"engine_results,omitempty"`
	UnifiedConfidence *UnifiedConfidence `json:"unified_confidence,omitempty"`
	DomDiff           *DomDiffResult     `json:"dom_diff,omitempty"`
	AIAnalysis        *AIAnalysis        `json:"ai_analysis,omitempty"`
	Confidence        *float64           `json:"confidence,omitempty"`
	ScoreVerdict      ScoreVerdict       `json:"score_verdict,omitempty"`
	AutoAction        AutoAction         `json:"auto_action,omitempty"`

	// Error-only.
	ErrorMessage string `json:"error,omitempty"`
}

func NewMatch(baseline, test string, pixelDiff int, diffPct float64, diffPath string, reason MatchReason, ssim *float64, phash *int) ComparisonResult {
	return ComparisonResult{
		Reason: ReasonMatch, Baseline: baseline, Test: test,
		PixelDiff: pixelDiff, DiffPercentage: diffPct, DiffPath: diffPath,
		MatchReason: reason, SSIM: ssim, PHash: phash,
	}
}

func NewNoBaseline(baseline, test string) ComparisonResult {
	return ComparisonResult{Reason: ReasonNoBaseline, Baseline: baseline, Test: test}
}

func NewNoTest(baseline, test string) ComparisonResult {
	return ComparisonResult{Reason: ReasonNoTest, Baseline: baseline, Test: test}
}

func NewError(baseline, test string, err error) ComparisonResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ComparisonResult{Reason: ReasonError, Baseline: baseline, Test: test, ErrorMessage: msg}
}

func (r ComparisonResult) IsMatch() bool      { return r.Reason == ReasonMatch }
func (r ComparisonResult) IsDiff() bool       { return r.Reason == ReasonDiff }
func (r ComparisonResult) IsNoBaseline() bool { return r.Reason == ReasonNoBaseline }
func (r ComparisonResult) IsNoTest() bool     { return r.Reason == ReasonNoTest }
func (r ComparisonResult) IsError() bool      { return r.Reason == ReasonError }
func (r ComparisonResult) HasPHash() bool     { return r.PHash != nil }
func (r ComparisonResult) HasAIAnalysis() bool {
	return r.Reason == ReasonDiff && r.AIAnalysis != nil
}

// Visitor is an exhaustive pattern match over ComparisonResult's variants,
// per spec.md §9's note that the discriminated union should be consumed via
// exhaustive pattern matches rather than ad hoc field reads.
type Visitor struct {
	Match      func(r ComparisonResult)
	Diff       func(r ComparisonResult)
	NoBaseline func(r ComparisonResult)
	NoTest     func(r ComparisonResult)
	Error      func(r ComparisonResult)
}

// Visit dispatches r to the matching handler in v. Any nil handler is
// silently skipped, so callers only need to supply the branches they care
// about.
func (r ComparisonResult) Visit(v Visitor) {
	switch r.Reason {
	case ReasonMatch:
		if v.Match != nil {
			v.Match(r)
		}
	case ReasonDiff:
		if v.Diff != nil {
			v.Diff(r)
		}
	case ReasonNoBaseline:
		if v.NoBaseline != nil {
			v.NoBaseline(r)
		}
	case ReasonNoTest:
		if v.NoTest != nil {
			v.NoTest(r)
		}
	case ReasonError:
		if v.Error != nil {
			v.Error(r)
		}
	}
}
