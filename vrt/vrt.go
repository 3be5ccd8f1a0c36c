// Package vrt is the top-level entry point spec.md §2 describes: given a
// loaded VRTConfig, it wires the planner, capture orchestrator, comparator,
// and cross-compare engine together into the three operations a caller
// (vrtctl or any embedder) actually needs — RunTestJob, ComparePair, and
// RunCrossCompare — and owns the project-relative files those operations
// read and write: results.json, the acceptance ledger, and cross-compare
// reports.
package vrt

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.vrtcore.dev/internal/atomicfile"
	"go.vrtcore.dev/internal/ctxutil"
	"go.vrtcore.dev/internal/skerr"
	"go.vrtcore.dev/internal/sklog"
	"go.vrtcore.dev/vrt/capture"
	"go.vrtcore.dev/vrt/comparator"
	"go.vrtcore.dev/vrt/config"
	"go.vrtcore.dev/vrt/crosscompare"
	"go.vrtcore.dev/vrt/planner"
	"go.vrtcore.dev/vrt/sanitize"
	"go.vrtcore.dev/vrt/store"
	"go.vrtcore.dev/vrt/types"
	"go.vrtcore.dev/vrt/vision"
)

// JobItemResult is one task's capture+compare outcome within a completed
// test job.
type JobItemResult struct {
	TaskKey        string                 `json:"task_key"`
	Scenario       string                 `json:"scenario"`
	Browser        string                 `json:"browser"`
	Viewport       string                 `json:"viewport"`
	ScreenshotPath string                 `json:"screenshot_path,omitempty"`
	CaptureFailed  bool                   `json:"capture_failed"`
	Accepted       bool                   `json:"accepted"`
	Result         types.ComparisonResult `json:"result"`
}

// JobResult is the full output of RunTestJob, in the same order as the
// tasks the planner produced, per spec.md §5's ordering guarantee — and
// also what's recorded to results.json.
type JobResult struct {
	Results []JobItemResult `json:"results"`
}

// RunTestJob runs one full test job for cfg: builds the scenario x browser x
// viewport task list, captures every task through worker, compares each
// capture against its stored baseline, and writes the ordered result list to
// <output_dir>/results.json. projectDir is the project root the acceptance
// ledger lives under (<projectDir>/.vrt/acceptances.json); provider is the
// optional AI vision triage backend and may be nil when cfg.AI.Enabled is
// false. onProgress, if non-nil, receives every capture.ProgressEvent as
// tasks move through the capture pipeline (a CLI uses this to drive a
// progress bar); it may be nil. The returned JobResult preserves planner
// order regardless of capture completion order.
func RunTestJob(ctx context.Context, cfg *config.VRTConfig, projectDir string, worker capture.Worker, provider vision.Provider, onProgress func(capture.ProgressEvent)) (JobResult, error) {
	tasks := planner.BuildTasks(cfg.Scenarios, cfg.Browsers, cfg.Viewports, cfg.ScenarioDefaults)
	groups := planner.GroupTasksByBrowser(tasks)

	diffsDir := filepath.Join(cfg.OutputDir, "diffs")
	if err := os.MkdirAll(diffsDir, 0o755); err != nil {
		return JobResult{}, skerr.Wrapf(err, "creating diff output directory %s", diffsDir)
	}

	outcomes, captureErr := capture.Run(ctx, worker, groups, cfg.OutputDir, capture.Options{
		Concurrency: cfg.ConcurrencyOrDefault(),
		OnProgress:  onProgress,
	})
	byKey := make(map[string]capture.Outcome, len(outcomes))
	for _, o := range outcomes {
		byKey[store.TaskKey(o.Task)] = o
	}

	ledger, err := store.OpenLedger(filepath.Join(projectDir, store.LedgerFilename))
	if err != nil {
		return JobResult{}, skerr.Wrapf(err, "opening acceptance ledger")
	}

	engineCfg, err := cfg.Engines.Resolve(cfg.DiffColor)
	if err != nil {
		return JobResult{}, skerr.Wrapf(err, "resolving engine config")
	}
	thresholds := cfg.ConfidenceThresholdsOrDefault()
	baseOpts := comparator.DefaultOptions()
	baseOpts.EngineConfig = engineCfg
	baseOpts.KeepDiffOnMatch = cfg.KeepDiffOnMatch
	baseOpts.Thresholds = &thresholds
	if cfg.DiffThreshold > 0 {
		diffThreshold := cfg.DiffThreshold
		baseOpts.DiffThresholdPercent = &diffThreshold
	}

	results := make([]JobItemResult, 0, len(tasks))
	for _, task := range tasks {
		if ctxutil.Aborted(ctx) {
			return JobResult{Results: results}, ctx.Err()
		}

		key := store.TaskKey(task)
		item := JobItemResult{
			TaskKey:  key,
			Scenario: task.Scenario.Name,
			Browser:  task.Browser.DisplayKey(),
			Viewport: task.Viewport.Name,
			Accepted: ledger.IsAccepted(key),
		}

		outcome, ok := byKey[key]
		filename := sanitize.Filename(task)
		baselinePath := filepath.Join(cfg.BaselineDir, filename)
		testPath := filepath.Join(cfg.OutputDir, filename)
		if !ok {
			item.Result = types.NewError(baselinePath, testPath, skerr.Fmt("no capture outcome recorded for %s", key))
			results = append(results, item)
			continue
		}
		item.ScreenshotPath = outcome.ScreenshotPath
		item.CaptureFailed = outcome.CaptureFailed

		taskOpts := baseOpts
		if task.Scenario.DiffThreshold != nil {
			taskOpts.DiffThresholdPercent = task.Scenario.DiffThreshold
		}

		var baselineDom *types.DomSnapshot
		if cfg.DomSnapshot.Enabled {
			baselineDom = loadDomSnapshot(filepath.Join(cfg.BaselineDir, sanitize.SnapshotFilename(filename)))
		}

		diffPrefix := filepath.Join(diffsDir, strings.TrimSuffix(filename, ".png"))
		item.Result = compareTask(ctx, cfg, provider, baselinePath, testPath, diffPrefix, baselineDom, outcome.DomSnapshot, taskOpts)
		results = append(results, item)
	}

	jobResult := JobResult{Results: results}
	if err := atomicfile.WriteJSON(filepath.Join(cfg.OutputDir, "results.json"), jobResult); err != nil {
		return jobResult, skerr.Wrapf(err, "writing results.json")
	}
	if captureErr != nil {
		return jobResult, captureErr
	}
	return jobResult, nil
}

// compareTask constructs the AI analyzer (bound to its own request-scoped
// timeout) for one comparison and runs it, so a slow or unreachable vision
// endpoint can never block a different task's comparison past its own
// configured timeout.
func compareTask(ctx context.Context, cfg *config.VRTConfig, provider vision.Provider, baselinePath, testPath, diffPrefix string, baselineDom, testDom *types.DomSnapshot, opts comparator.Options) types.ComparisonResult {
	var analyzer comparator.AIAnalyzer
	if cfg.AI.Enabled && provider != nil {
		aictx, cancel := context.WithTimeout(ctx, cfg.AI.TimeoutOrDefault().Duration)
		defer cancel()
		analyzer = vision.NewAnalyzer(aictx, provider, baselinePath, testPath, cfg.AI.Prompt, cfg.AI.Model)
	}
	return comparator.ComparePair(baselinePath, testPath, diffPrefix, baselineDom, testDom, analyzer, opts)
}

func loadDomSnapshot(path string) *types.DomSnapshot {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var snap types.DomSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		sklog.Warningf("discarding unreadable DOM snapshot %s: %v", path, err)
		return nil
	}
	return &snap
}

// ComparePair runs a single ad hoc baseline/test comparison using cfg's
// resolved engine, tolerance, and confidence settings, independent of any
// project's scenario list or output directory — the entry point a `vrtctl
// compare <a> <b>` CLI invocation or a one-off script uses.
func ComparePair(ctx context.Context, cfg *config.VRTConfig, baselinePath, testPath, diffOutPrefix string, provider vision.Provider) (types.ComparisonResult, error) {
	engineCfg, err := cfg.Engines.Resolve(cfg.DiffColor)
	if err != nil {
		return types.ComparisonResult{}, skerr.Wrapf(err, "resolving engine config")
	}
	thresholds := cfg.ConfidenceThresholdsOrDefault()
	opts := comparator.DefaultOptions()
	opts.EngineConfig = engineCfg
	opts.KeepDiffOnMatch = cfg.KeepDiffOnMatch
	opts.Thresholds = &thresholds
	if cfg.DiffThreshold > 0 {
		diffThreshold := cfg.DiffThreshold
		opts.DiffThresholdPercent = &diffThreshold
	}

	return compareTask(ctx, cfg, provider, baselinePath, testPath, diffOutPrefix, nil, nil, opts), nil
}

// RunCrossCompare diffs every pair in cfg.CrossCompare.Pairs across the
// full scenario x viewport enumeration and writes each pair's report under
// <output_dir>/cross-reports/, per spec.md §4.8. Screenshots for both sides
// of every pair must already exist under cfg.OutputDir (a prior RunTestJob
// covering both browser variants/versions); a missing side surfaces as that
// item's NoBaseline/NoTest result rather than failing the whole pair.
func RunCrossCompare(cfg *config.VRTConfig) ([]crosscompare.Report, error) {
	if len(cfg.CrossCompare.Pairs) == 0 {
		return nil, nil
	}

	engineCfg, err := cfg.Engines.Resolve(cfg.DiffColor)
	if err != nil {
		return nil, skerr.Wrapf(err, "resolving engine config")
	}
	thresholds := cfg.ConfidenceThresholdsOrDefault()
	compOpts := comparator.DefaultOptions()
	compOpts.EngineConfig = engineCfg
	compOpts.KeepDiffOnMatch = cfg.KeepDiffOnMatch
	compOpts.Thresholds = &thresholds
	if cfg.DiffThreshold > 0 {
		diffThreshold := cfg.DiffThreshold
		compOpts.DiffThresholdPercent = &diffThreshold
	}

	ccCfg := crosscompare.Config{
		OutputDir:            cfg.OutputDir,
		SizeNormalization:    cfg.CrossCompare.SizeNormalization,
		SizeMismatchHandling: cfg.CrossCompare.SizeMismatchHandling,
		ComparatorOptions:    compOpts,
	}

	reports := make([]crosscompare.Report, 0, len(cfg.CrossCompare.Pairs))
	for _, p := range cfg.CrossCompare.Pairs {
		pair := crosscompare.Pair{A: p.A.ToBrowserSpec(), B: p.B.ToBrowserSpec()}
		report, err := crosscompare.Run(pair, cfg.Scenarios, cfg.Viewports, ccCfg)
		if err != nil {
			return reports, skerr.Wrapf(err, "cross-compare pair %s", pair.Key())
		}
		reports = append(reports, report)
	}
	return reports, nil
}
