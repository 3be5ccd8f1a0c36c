// Package crosscompare implements spec.md §4.8's N-way cross-browser-version
// comparison engine: the same scenario x viewport enumeration the planner
// uses, but resolved against an explicit pair of browser/version axes rather
// than a baseline directory, with its own per-pair result store instead of
// the project-wide acceptance ledger.
package crosscompare

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.vrtcore.dev/internal/atomicfile"
	"go.vrtcore.dev/internal/skerr"
	"go.vrtcore.dev/vrt/comparator"
	"go.vrtcore.dev/vrt/sanitize"
	"go.vrtcore.dev/vrt/types"
)

// Pair is one "A vs B" browser/version axis to diff every scenario x
// viewport combination across.
type Pair struct {
	A types.BrowserSpec
	B types.BrowserSpec
}

// Key returns the stable pair identifier from spec.md §10's glossary, e.g.
// "chromium@130 vs chromium@120".
func (p Pair) Key() string {
	return sideKey(p.A) + " vs " + sideKey(p.B)
}

func sideKey(b types.BrowserSpec) string {
	if b.Version == "" {
		return string(b.Variant)
	}
	return string(b.Variant) + "@" + b.Version
}

// ItemKey returns the "<scenario>__<viewport>" identifier spec.md §10 names.
func ItemKey(scenarioName, viewportName string) string {
	return scenarioName + "__" + viewportName
}

// Item is one scenario x viewport comparison's result within a pair report,
// carrying whatever acceptance/flag state a human has recorded against it
// directly (cross-compare has its own per-pair store, not the project-wide
// acceptance ledger).
type Item struct {
	ItemKey    string                  `json:"item_key"`
	Result     types.ComparisonResult  `json:"result"`
	Accepted   bool                    `json:"accepted"`
	AcceptedAt *time.Time              `json:"accepted_at,omitempty"`
	Flagged    bool                    `json:"flagged"`
}

// Report is the full contents of one pair's results.json.
type Report struct {
	PairKey string `json:"pair_key"`
	Items   []Item `json:"items"`
}

// Config configures how a Pair is resolved and compared.
type Config struct {
	OutputDir            string
	SizeNormalization    types.SizeNormalization
	SizeMismatchHandling types.SizeMismatchHandling
	ComparatorOptions    comparator.Options
}

// ReportDir returns the directory a pair's report and diff artifacts live
// under.
func ReportDir(outputDir, pairKey string) string {
	return filepath.Join(outputDir, "cross-reports", sanitize.Name(pairKey))
}

// ReportPath returns the results.json path for a pair.
func ReportPath(outputDir, pairKey string) string {
	return filepath.Join(ReportDir(outputDir, pairKey), "results.json")
}

// loadExisting reads a pair's prior report, if any, indexed by item key, so
// a rerun can carry forward acceptance/flag state for items that still
// exist. A missing or unreadable report is treated as "no prior state"
// rather than an error, since the first run of a pair has no report yet.
func loadExisting(path string) map[string]Item {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil
	}
	byKey := make(map[string]Item, len(report.Items))
	for _, item := range report.Items {
		byKey[item.ItemKey] = item
	}
	return byKey
}

// Run diffs pair across every scenario x viewport combination and writes
// the resulting report to <output_dir>/cross-reports/<pair_key>/results.json,
// preserving the accepted/flagged state of any item_key that survives the
// rerun. Item order follows the scenarios/viewports enumeration order, so
// reruns with an unchanged config produce byte-identical item ordering.
func Run(pair Pair, scenarios []types.Scenario, viewports []types.Viewport, cfg Config) (Report, error) {
	pairKey := pair.Key()
	reportDir := ReportDir(cfg.OutputDir, pairKey)
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return Report{}, skerr.Wrapf(err, "creating cross-compare report dir for %s", pairKey)
	}

	prior := loadExisting(ReportPath(cfg.OutputDir, pairKey))

	opts := cfg.ComparatorOptions
	opts.SizeNormalization = cfg.SizeNormalization
	opts.SizeMismatchHandling = cfg.SizeMismatchHandling

	var items []Item
	for _, scenario := range scenarios {
		for _, viewport := range viewports {
			itemKey := ItemKey(scenario.Name, viewport.Name)

			pathA := filepath.Join(cfg.OutputDir, sanitize.Filename(types.ScreenshotTask{Scenario: scenario, Browser: pair.A, Viewport: viewport}))
			pathB := filepath.Join(cfg.OutputDir, sanitize.Filename(types.ScreenshotTask{Scenario: scenario, Browser: pair.B, Viewport: viewport}))
			diffPrefix := filepath.Join(reportDir, sanitize.Name(itemKey))

			result := comparator.ComparePair(pathA, pathB, diffPrefix, nil, nil, nil, opts)

			item := Item{ItemKey: itemKey, Result: result}
			if p, ok := prior[itemKey]; ok {
				item.Accepted = p.Accepted
				item.AcceptedAt = p.AcceptedAt
				item.Flagged = p.Flagged
			}
			items = append(items, item)
		}
	}

	report := Report{PairKey: pairKey, Items: items}
	if err := atomicfile.WriteJSON(ReportPath(cfg.OutputDir, pairKey), report); err != nil {
		return Report{}, skerr.Wrapf(err, "writing cross-compare report for %s", pairKey)
	}
	return report, nil
}

// Accept records a human acceptance of item_key's current result within
// pair's report, rewriting the report file in place.
func Accept(outputDir string, pair Pair, itemKey string) error {
	return mutateItem(outputDir, pair, itemKey, func(item *Item) {
		now := time.Now().UTC()
		item.Accepted = true
		item.AcceptedAt = &now
		item.Flagged = false
	})
}

// Flag records that item_key needs human attention within pair's report.
func Flag(outputDir string, pair Pair, itemKey string) error {
	return mutateItem(outputDir, pair, itemKey, func(item *Item) {
		item.Flagged = true
	})
}

func mutateItem(outputDir string, pair Pair, itemKey string, mutate func(*Item)) error {
	path := ReportPath(outputDir, pair.Key())
	data, err := os.ReadFile(path)
	if err != nil {
		return skerr.Wrapf(err, "reading cross-compare report %s", path)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return skerr.Wrapf(err, "parsing cross-compare report %s", path)
	}
	found := false
	for i := range report.Items {
		if report.Items[i].ItemKey == itemKey {
			mutate(&report.Items[i])
			found = true
			break
		}
	}
	if !found {
		return skerr.Fmt("item_key %q not found in report for pair %q", itemKey, pair.Key())
	}
	return atomicfile.WriteJSON(path, report)
}
