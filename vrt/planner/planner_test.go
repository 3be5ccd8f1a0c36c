package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.vrtcore.dev/internal/testutils"
	"go.vrtcore.dev/vrt/types"
)

func TestMergeScenarioDefaultsScalarFallback(t *testing.T) {
	testutils.SmallTest(t)

	scenario := types.Scenario{Name: "homepage", URL: "https://example.com"}
	defaults := types.ScenarioDefaults{WaitFor: types.WaitForNetworkIdle, WaitForTimeoutMs: 5000}

	merged := MergeScenarioDefaults(scenario, defaults)
	assert.Equal(t, types.WaitForNetworkIdle, merged.WaitFor)
	assert.Equal(t, 5000, merged.WaitForTimeoutMs)
}

func TestMergeScenarioDefaultsScenarioWins(t *testing.T) {
	testutils.SmallTest(t)

	scenario := types.Scenario{Name: "homepage", WaitFor: types.WaitForLoad}
	defaults := types.ScenarioDefaults{WaitFor: types.WaitForNetworkIdle}

	merged := MergeScenarioDefaults(scenario, defaults)
	assert.Equal(t, types.WaitForLoad, merged.WaitFor)
}

func TestMergeScenarioDefaultsConcatDedupe(t *testing.T) {
	testutils.SmallTest(t)

	scenario := types.Scenario{HideSelectors: []string{".cookie-banner", ".ad"}}
	defaults := types.ScenarioDefaults{HideSelectors: []string{".ad", ".chat-widget"}}

	merged := MergeScenarioDefaults(scenario, defaults)
	assert.Equal(t, []string{".cookie-banner", ".ad", ".chat-widget"}, merged.HideSelectors)
}

func TestMergeScenarioDefaultsBeforeScreenshotSequencing(t *testing.T) {
	testutils.SmallTest(t)

	scenario := types.Scenario{BeforeScreenshot: "document.body.scrollTo(0,0)"}
	defaults := types.ScenarioDefaults{BeforeScreenshot: "window.__testMode = true"}

	merged := MergeScenarioDefaults(scenario, defaults)
	assert.Equal(t, "window.__testMode = true\ndocument.body.scrollTo(0,0)", merged.BeforeScreenshot)
}

func TestBuildTasksProducesFullCrossProductInConfigOrder(t *testing.T) {
	testutils.SmallTest(t)

	scenarios := []types.Scenario{{Name: "home"}, {Name: "about"}}
	browsers := []types.BrowserSpec{{Variant: types.BrowserChromium}, {Variant: types.BrowserWebkit}}
	viewports := []types.Viewport{{Name: "desktop", Width: 1280, Height: 800}, {Name: "mobile", Width: 375, Height: 667}}

	tasks := BuildTasks(scenarios, browsers, viewports, types.ScenarioDefaults{})
	require.Len(t, tasks, 8)

	// chromium group first, in scenario-then-viewport config order.
	assert.Equal(t, "home", tasks[0].Scenario.Name)
	assert.Equal(t, "desktop", tasks[0].Viewport.Name)
	assert.Equal(t, types.BrowserChromium, tasks[0].Browser.Variant)
	assert.Equal(t, "home", tasks[1].Scenario.Name)
	assert.Equal(t, "mobile", tasks[1].Viewport.Name)
	assert.Equal(t, "about", tasks[2].Scenario.Name)
	assert.Equal(t, "about", tasks[3].Scenario.Name)

	assert.Equal(t, types.BrowserWebkit, tasks[4].Browser.Variant)
	assert.Equal(t, "home", tasks[4].Scenario.Name)
}

func TestBuildTasksMergesDefaultsPerTask(t *testing.T) {
	testutils.SmallTest(t)

	scenarios := []types.Scenario{{Name: "home"}}
	browsers := []types.BrowserSpec{{Variant: types.BrowserChromium}}
	viewports := []types.Viewport{{Name: "desktop", Width: 1280, Height: 800}}
	defaults := types.ScenarioDefaults{WaitFor: types.WaitForNetworkIdle}

	tasks := BuildTasks(scenarios, browsers, viewports, defaults)
	require.Len(t, tasks, 1)
	assert.Equal(t, types.WaitForNetworkIdle, tasks[0].Scenario.WaitFor)
}

func TestGroupTasksByBrowserPreservesOrder(t *testing.T) {
	testutils.SmallTest(t)

	tasks := []types.ScreenshotTask{
		{Scenario: types.Scenario{Name: "a"}, Browser: types.BrowserSpec{Variant: types.BrowserChromium}},
		{Scenario: types.Scenario{Name: "b"}, Browser: types.BrowserSpec{Variant: types.BrowserWebkit}},
		{Scenario: types.Scenario{Name: "c"}, Browser: types.BrowserSpec{Variant: types.BrowserChromium}},
	}
	groups := GroupTasksByBrowser(tasks)
	assert.Len(t, groups, 2)
	assert.Equal(t, "chromium", groups[0].BrowserKey)
	assert.Len(t, groups[0].Tasks, 2)
	assert.Equal(t, "webkit", groups[1].BrowserKey)
	assert.Len(t, groups[1].Tasks, 1)
}

func TestFilterScenariosPreservesOrder(t *testing.T) {
	testutils.SmallTest(t)

	scenarios := []types.Scenario{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	filtered := FilterScenarios(scenarios, func(s types.Scenario) bool { return s.Name != "b" })
	assert.Len(t, filtered, 2)
	assert.Equal(t, "a", filtered[0].Name)
	assert.Equal(t, "c", filtered[1].Name)
}

func TestPartitionGroupsByImageAvailability(t *testing.T) {
	testutils.SmallTest(t)

	groups := []BrowserGroup{
		{BrowserKey: "chromium", Tasks: []types.ScreenshotTask{
			{Scenario: types.Scenario{Name: "has-baseline"}},
			{Scenario: types.Scenario{Name: "no-baseline"}},
		}},
	}
	withBaseline, withoutBaseline := PartitionGroupsByImageAvailability(groups, func(t types.ScreenshotTask) bool {
		return t.Scenario.Name == "has-baseline"
	})

	assert.Len(t, withBaseline, 1)
	assert.Len(t, withBaseline[0].Tasks, 1)
	assert.Equal(t, "has-baseline", withBaseline[0].Tasks[0].Scenario.Name)

	assert.Len(t, withoutBaseline, 1)
	assert.Len(t, withoutBaseline[0].Tasks, 1)
	assert.Equal(t, "no-baseline", withoutBaseline[0].Tasks[0].Scenario.Name)
}
