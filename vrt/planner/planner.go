// Package planner turns a raw scenario/browser/viewport configuration into
// the ordered, deduplicated, grouped task list the capture orchestrator
// consumes, per spec.md §4.6.
package planner

import "go.vrtcore.dev/vrt/types"

// MergeScenarioDefaults overlays ScenarioDefaults onto a Scenario, per
// spec.md §4.6: scalar fields only fall back to the default when the
// scenario left them at their zero value, FullPage is the logical OR of
// both (a scenario can only ever ask for more page than the default, never
// less), before_screenshot scripts run default-then-scenario in sequence,
// and selector/URL lists are concatenated with the scenario's own entries
// first, deduplicated while preserving first occurrence.
func MergeScenarioDefaults(s types.Scenario, d types.ScenarioDefaults) types.Scenario {
	merged := s

	if merged.WaitFor == "" {
		merged.WaitFor = d.WaitFor
	}
	if merged.WaitForTimeoutMs == 0 {
		merged.WaitForTimeoutMs = d.WaitForTimeoutMs
	}
	if merged.PostInteractionWaitMs == 0 {
		merged.PostInteractionWaitMs = d.PostInteractionWaitMs
	}
	merged.FullPage = s.FullPage || d.FullPage
	if merged.DiffThreshold == nil {
		merged.DiffThreshold = d.DiffThreshold
	}

	merged.BeforeScreenshot = sequenceScripts(d.BeforeScreenshot, s.BeforeScreenshot)
	merged.HideSelectors = concatDedupe(s.HideSelectors, d.HideSelectors)
	merged.RemoveSelectors = concatDedupe(s.RemoveSelectors, d.RemoveSelectors)
	merged.BlockURLs = concatDedupe(s.BlockURLs, d.BlockURLs)

	return merged
}

func sequenceScripts(defaultScript, scenarioScript string) string {
	switch {
	case defaultScript == "":
		return scenarioScript
	case scenarioScript == "":
		return defaultScript
	default:
		return defaultScript + "\n" + scenarioScript
	}
}

func concatDedupe(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// BuildTasks expands scenarios x browsers x viewports into the full task
// list for a job, in config order, merging each scenario with defaults
// exactly once per browser so a before_screenshot script sequenced from
// defaults isn't re-concatenated per viewport. This is the
// "scenarios x viewports in config order" product spec.md §4.6's
// group_tasks_by_browser is built on; GroupTasksByBrowser does the actual
// grouping.
func BuildTasks(scenarios []types.Scenario, browsers []types.BrowserSpec, viewports []types.Viewport, defaults types.ScenarioDefaults) []types.ScreenshotTask {
	var tasks []types.ScreenshotTask
	for _, browser := range browsers {
		for _, scenario := range scenarios {
			merged := MergeScenarioDefaults(scenario, defaults)
			for _, viewport := range viewports {
				tasks = append(tasks, types.ScreenshotTask{Scenario: merged, Browser: browser, Viewport: viewport})
			}
		}
	}
	return tasks
}

// BrowserGroup is every task that shares one browser/version key, in the
// order tasks were first seen for that key.
type BrowserGroup struct {
	BrowserKey string
	Tasks      []types.ScreenshotTask
}

// GroupTasksByBrowser partitions tasks by BrowserSpec.DisplayKey(),
// preserving both the order groups first appear in and the order of tasks
// within each group, so capture output stays deterministic across runs.
func GroupTasksByBrowser(tasks []types.ScreenshotTask) []BrowserGroup {
	index := make(map[string]int)
	var groups []BrowserGroup

	for _, task := range tasks {
		key := task.Browser.DisplayKey()
		if i, ok := index[key]; ok {
			groups[i].Tasks = append(groups[i].Tasks, task)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, BrowserGroup{BrowserKey: key, Tasks: []types.ScreenshotTask{task}})
	}
	return groups
}

// FilterScenarios keeps every scenario for which keep returns true,
// preserving order.
func FilterScenarios(scenarios []types.Scenario, keep func(types.Scenario) bool) []types.Scenario {
	out := make([]types.Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// PartitionGroupsByImageAvailability splits each browser group's tasks into
// those that already have a stored baseline image and those that don't,
// preserving per-group browser keys and task order on both sides. Tasks
// without a baseline can skip straight to a NoBaseline result without
// waiting on a full capture-then-compare round trip for a pair that can
// never match anyway.
func PartitionGroupsByImageAvailability(groups []BrowserGroup, hasBaseline func(types.ScreenshotTask) bool) (withBaseline, withoutBaseline []BrowserGroup) {
	for _, g := range groups {
		var withG, withoutG BrowserGroup
		withG.BrowserKey = g.BrowserKey
		withoutG.BrowserKey = g.BrowserKey

		for _, task := range g.Tasks {
			if hasBaseline(task) {
				withG.Tasks = append(withG.Tasks, task)
			} else {
				withoutG.Tasks = append(withoutG.Tasks, task)
			}
		}
		if len(withG.Tasks) > 0 {
			withBaseline = append(withBaseline, withG)
		}
		if len(withoutG.Tasks) > 0 {
			withoutBaseline = append(withoutBaseline, withoutG)
		}
	}
	return withBaseline, withoutBaseline
}
