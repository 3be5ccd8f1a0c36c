// Package domdiff implements the optional DOM-snapshot comparator from
// spec.md §4.3: given two flattened DOM snapshots it reports the semantic
// changes between them (text, layout, spacing, background, style,
// additions, removals) independent of anything pixel-based.
package domdiff

import (
	"math"

	"go.vrtcore.dev/vrt/types"
)

const (
	// positionNoiseThreshold is the pixel delta below which a box move is
	// treated as rendering noise (sub-pixel rounding, font hinting) rather
	// than a real layout change.
	positionNoiseThreshold = 2.0
	// fallbackMatchTolerance is how close two elements' boxes must be,
	// when falling back to tag+position matching, to be considered the
	// same element across snapshots.
	fallbackMatchTolerance = 10.0
)

// Compare diffs two DOM snapshots and returns every finding along with a
// summary tally and an overall similarity score.
func Compare(baseline, test types.DomSnapshot) types.DomDiffResult {
	baseIdx := indexByKey(baseline)
	testIdx := indexByKey(test)

	var findings []types.DomFinding
	matchedBase := make(map[int]bool, len(baseline.Elements))
	matchedTest := make(map[int]bool, len(test.Elements))

	for key, bi := range baseIdx {
		ti, ok := testIdx[key]
		if !ok {
			continue
		}
		matchedBase[bi] = true
		matchedTest[ti] = true
		findings = append(findings, comparePair(baseline.Elements[bi], test.Elements[ti])...)
	}

	// Fallback pass: unmatched elements, paired by identical tag and a
	// nearby box position, covers elements whose id/testid/path changed
	// (e.g. a regenerated list key) but that are clearly "the same thing"
	// rendered in roughly the same place.
	unmatchedBase := unmatchedIndices(baseline.Elements, matchedBase)
	unmatchedTest := unmatchedIndices(test.Elements, matchedTest)
	for _, bi := range unmatchedBase {
		best := -1
		bestDist := math.MaxFloat64
		for _, ti := range unmatchedTest {
			if matchedTest[ti] {
				continue
			}
			if baseline.Elements[bi].Tag != test.Elements[ti].Tag {
				continue
			}
			d := boxDistance(baseline.Elements[bi].Box, test.Elements[ti].Box)
			if d <= fallbackMatchTolerance && d < bestDist {
				best, bestDist = ti, d
			}
		}
		if best >= 0 {
			matchedBase[bi] = true
			matchedTest[best] = true
			findings = append(findings, comparePair(baseline.Elements[bi], test.Elements[best])...)
		}
	}

	vw, vh := float64(test.Viewport.W), float64(test.Viewport.H)
	for _, bi := range unmatchedIndices(baseline.Elements, matchedBase) {
		el := baseline.Elements[bi]
		findings = append(findings, types.DomFinding{
			Type:     types.FindingElementRemoved,
			Severity: visibilitySeverity(el.Box, vw, vh),
			Path:     el.Path,
			Message:  "element removed: " + describeElement(el),
		})
	}
	for _, ti := range unmatchedIndices(test.Elements, matchedTest) {
		el := test.Elements[ti]
		findings = append(findings, types.DomFinding{
			Type:     types.FindingElementAdded,
			Severity: visibilitySeverity(el.Box, vw, vh),
			Path:     el.Path,
			Message:  "element added: " + describeElement(el),
		})
	}

	summary := summarize(findings)
	total := maxI(len(baseline.Elements), len(test.Elements))
	similarity := 1.0
	if total > 0 {
		similarity = 1 - float64(len(findings))/float64(total)
		if similarity < 0 {
			similarity = 0
		}
	}

	return types.DomDiffResult{Findings: findings, Summary: summary, Similarity: similarity}
}

func indexByKey(snap types.DomSnapshot) map[string]int {
	idx := make(map[string]int, len(snap.Elements))
	for i, el := range snap.Elements {
		idx[stableKey(el)] = i
	}
	return idx
}

// stableKey prefers the most identity-stable attribute available on an
// element: a data-testid, then an id, then its structural path.
func stableKey(el types.DomElement) string {
	if el.TestID != nil && *el.TestID != "" {
		return "testid:" + *el.TestID
	}
	if el.ID != nil && *el.ID != "" {
		return "id:" + *el.ID
	}
	return "path:" + el.Path
}

func unmatchedIndices(elements []types.DomElement, matched map[int]bool) []int {
	out := make([]int, 0, len(elements))
	for i := range elements {
		if !matched[i] {
			out = append(out, i)
		}
	}
	return out
}

func boxDistance(a, b types.Box) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func visibilitySeverity(box types.Box, vw, vh float64) types.Severity {
	if vw > 0 && vh > 0 && box.Intersects(vw, vh) {
		return types.SeverityCritical
	}
	return types.SeverityInfo
}

func describeElement(el types.DomElement) string {
	if el.TestID != nil {
		return el.Tag + "[data-testid=" + *el.TestID + "]"
	}
	if el.ID != nil {
		return el.Tag + "#" + *el.ID
	}
	return el.Tag + " at " + el.Path
}

// comparePair emits every finding for two snapshots of what's believed to
// be the same element.
func comparePair(a, b types.DomElement) []types.DomFinding {
	var findings []types.DomFinding

	textChanged := !textEqual(a.Text, b.Text)
	moved := boxDistance(a.Box, b.Box) > positionNoiseThreshold

	switch {
	case textChanged:
		findings = append(findings, types.DomFinding{
			Type: types.FindingTextChanged, Severity: types.SeverityCritical,
			Path: b.Path, Message: "text content changed",
		})
	case moved:
		// A moved text node is a much lower-risk change than a moved
		// structural container: most often it's reflow from upstream
		// content changes, not a regression in this element itself.
		if b.Text != nil {
			findings = append(findings, types.DomFinding{
				Type: types.FindingTextMoved, Severity: types.SeverityWarning,
				Path: b.Path, Message: "text element moved",
			})
		} else {
			findings = append(findings, types.DomFinding{
				Type: types.FindingLayoutShift, Severity: types.SeverityWarning,
				Path: b.Path, Message: "element layout shifted",
			})
		}
	}

	if a.Styles.Padding != b.Styles.Padding || a.Styles.Margin != b.Styles.Margin {
		findings = append(findings, types.DomFinding{
			Type: types.FindingSpacingChange, Severity: types.SeverityInfo,
			Path: b.Path, Message: "padding/margin changed",
		})
	}

	if a.Styles.BackgroundColor != b.Styles.BackgroundColor {
		findings = append(findings, types.DomFinding{
			Type: types.FindingBackgroundChange, Severity: types.SeverityWarning,
			Path: b.Path, Message: "background color changed",
		})
	}

	if otherStyleChanged(a.Styles, b.Styles) {
		findings = append(findings, types.DomFinding{
			Type: types.FindingStyleChange, Severity: types.SeverityInfo,
			Path: b.Path, Message: "computed style changed",
		})
	}

	return findings
}

func textEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func otherStyleChanged(a, b types.DomElementStyles) bool {
	return a.Color != b.Color ||
		a.FontSize != b.FontSize ||
		a.FontFamily != b.FontFamily ||
		a.FontWeight != b.FontWeight ||
		a.LineHeight != b.LineHeight ||
		a.BorderWidth != b.BorderWidth ||
		a.BorderColor != b.BorderColor ||
		a.Display != b.Display ||
		a.Position != b.Position ||
		a.Opacity != b.Opacity
}

func summarize(findings []types.DomFinding) types.DomDiffSummary {
	var s types.DomDiffSummary
	for _, f := range findings {
		switch f.Type {
		case types.FindingTextChanged:
			s.TextChanged++
		case types.FindingTextMoved:
			s.TextMoved++
		case types.FindingLayoutShift:
			s.LayoutShift++
		case types.FindingSpacingChange:
			s.SpacingChange++
		case types.FindingBackgroundChange:
			s.BackgroundChange++
		case types.FindingStyleChange:
			s.StyleChange++
		case types.FindingElementAdded:
			s.ElementAdded++
		case types.FindingElementRemoved:
			s.ElementRemoved++
		}
	}
	return s
}

// ClassifyCategory maps a DOM-diff summary onto the ChangeCategory taxonomy
// used by the scorer and the rule evaluator, per spec.md §4.5. Content
// changes dominate the classification (text is the highest-fidelity signal
// of an actual regression), followed by layout shifts and additions/
// removals, then purely cosmetic style changes.
func ClassifyCategory(summary types.DomDiffSummary) types.ChangeCategory {
	switch {
	case summary.TextChanged > 0:
		return types.CategoryContentChange
	case summary.LayoutShift > 0 || summary.ElementAdded > 0 || summary.ElementRemoved > 0:
		return types.CategoryLayoutShift
	case summary.BackgroundChange > 0 || summary.StyleChange > 0 || summary.SpacingChange > 0 || summary.TextMoved > 0:
		return types.CategoryCosmetic
	default:
		return types.CategoryNoise
	}
}

func maxI(a, b int) int {
	if a > b {
		return a
	}
	return b
}
