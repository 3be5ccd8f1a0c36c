package scoring

import "go.vrtcore.dev/vrt/types"

// EvalContext is the set of signals a rule can match against. Every pointer
// field is optional; a rule that names a condition whose context value is
// absent never matches that condition (conditions are conjunctive, so a
// missing value makes the whole rule not match rather than vacuously
// passing).
type EvalContext struct {
	Category        types.ChangeCategory
	Severity        types.Severity
	Confidence      float64
	DiffPercent     float64
	SSIM            *float64
	PHashSimilarity *float64
	DomTextChanges  int
}

// Rule is one conjunctive condition set mapped to an AutoAction. Rules are
// evaluated in order and the first match wins, per spec.md §4.6 — so more
// specific rules (e.g. "any text change always gets flagged") must be
// listed before general catch-alls.
type Rule struct {
	Name string

	Categories     []types.ChangeCategory // empty means "any category"
	MaxSeverity    types.Severity         // "" means unconstrained
	MinConfidence  *float64
	MaxConfidence  *float64
	MaxDiffPercent *float64
	MinSSIM        *float64
	MinPHash       *float64
	MaxDomText     *int
	MinDomText     *int

	Action types.AutoAction
}

var severityRank = map[types.Severity]int{
	types.SeverityInfo:     0,
	types.SeverityWarning:  1,
	types.SeverityCritical: 2,
}

// Matches reports whether every condition set on r holds for ctx.
func (r Rule) Matches(ctx EvalContext) bool {
	if len(r.Categories) > 0 && !containsCategory(r.Categories, ctx.Category) {
		return false
	}
	if r.MaxSeverity != "" && severityRank[ctx.Severity] > severityRank[r.MaxSeverity] {
		return false
	}
	if r.MinConfidence != nil && ctx.Confidence < *r.MinConfidence {
		return false
	}
	if r.MaxConfidence != nil && ctx.Confidence > *r.MaxConfidence {
		return false
	}
	if r.MaxDiffPercent != nil && ctx.DiffPercent > *r.MaxDiffPercent {
		return false
	}
	if r.MinSSIM != nil && (ctx.SSIM == nil || *ctx.SSIM < *r.MinSSIM) {
		return false
	}
	if r.MinPHash != nil && (ctx.PHashSimilarity == nil || *ctx.PHashSimilarity < *r.MinPHash) {
		return false
	}
	if r.MaxDomText != nil && ctx.DomTextChanges > *r.MaxDomText {
		return false
	}
	if r.MinDomText != nil && ctx.DomTextChanges < *r.MinDomText {
		return false
	}
	return true
}

func containsCategory(cats []types.ChangeCategory, c types.ChangeCategory) bool {
	for _, x := range cats {
		if x == c {
			return true
		}
	}
	return false
}

// Evaluate walks rules in order and returns the action of the first match,
// or fallback if none match.
func Evaluate(rules []Rule, ctx EvalContext, fallback types.AutoAction) types.AutoAction {
	for _, r := range rules {
		if r.Matches(ctx) {
			return r.Action
		}
	}
	return fallback
}

// DefaultRules is the out-of-the-box rule set spec.md §4.6 describes:
// never auto-dispose a literal text change, auto-approve high-confidence
// cosmetic/noise diffs, auto-reject clear regressions, and flag everything
// else for human review.
func DefaultRules() []Rule {
	one := 1
	highConfidence := 0.9
	lowConfidence := 0.3

	return []Rule{
		{
			Name:       "never-auto-dispose-text-changes",
			MinDomText: &one,
			Action:     types.AutoActionFlag,
		},
		{
			Name:          "auto-approve-high-confidence-cosmetic",
			Categories:    []types.ChangeCategory{types.CategoryCosmetic, types.CategoryNoise},
			MinConfidence: &highConfidence,
			MaxSeverity:   types.SeverityWarning,
			Action:        types.AutoActionApprove,
		},
		{
			Name:          "auto-reject-clear-regressions",
			Categories:    []types.ChangeCategory{types.CategoryRegression},
			MaxConfidence: &lowConfidence,
			Action:        types.AutoActionReject,
		},
	}
}
