package crosscompare

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.vrtcore.dev/internal/testutils"
	"go.vrtcore.dev/vrt/comparator"
	"go.vrtcore.dev/vrt/sanitize"
	"go.vrtcore.dev/vrt/types"
)

func writePNG(t *testing.T, path string, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestPairKeyFormat(t *testing.T) {
	testutils.SmallTest(t)

	pair := Pair{
		A: types.BrowserSpec{Variant: types.BrowserChromium, Version: "130"},
		B: types.BrowserSpec{Variant: types.BrowserChromium, Version: "120"},
	}
	assert.Equal(t, "chromium@130 vs chromium@120", pair.Key())
}

func TestItemKeyFormat(t *testing.T) {
	testutils.SmallTest(t)
	assert.Equal(t, "homepage__desktop", ItemKey("homepage", "desktop"))
}

func TestRunWritesReportAndComparesBothSides(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	pair := Pair{
		A: types.BrowserSpec{Variant: types.BrowserChromium, Version: "130"},
		B: types.BrowserSpec{Variant: types.BrowserChromium, Version: "120"},
	}
	scenario := types.Scenario{Name: "homepage"}
	viewport := types.Viewport{Name: "desktop", Width: 10, Height: 10}

	pathA := filepath.Join(dir, sanitize.Filename(types.ScreenshotTask{Scenario: scenario, Browser: pair.A, Viewport: viewport}))
	pathB := filepath.Join(dir, sanitize.Filename(types.ScreenshotTask{Scenario: scenario, Browser: pair.B, Viewport: viewport}))
	writePNG(t, pathA, color.NRGBA{R: 10, A: 255})
	writePNG(t, pathB, color.NRGBA{R: 10, A: 255})

	cfg := Config{OutputDir: dir, SizeNormalization: types.SizeNormalizationPad, ComparatorOptions: comparator.DefaultOptions()}
	report, err := Run(pair, []types.Scenario{scenario}, []types.Viewport{viewport}, cfg)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "homepage__desktop", report.Items[0].ItemKey)
	assert.True(t, report.Items[0].Result.IsMatch())
	assert.FileExists(t, ReportPath(dir, pair.Key()))
}

func TestRunPreservesAcceptanceAcrossRerun(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	pair := Pair{
		A: types.BrowserSpec{Variant: types.BrowserChromium, Version: "130"},
		B: types.BrowserSpec{Variant: types.BrowserChromium, Version: "120"},
	}
	scenario := types.Scenario{Name: "homepage"}
	viewport := types.Viewport{Name: "desktop", Width: 10, Height: 10}

	pathA := filepath.Join(dir, sanitize.Filename(types.ScreenshotTask{Scenario: scenario, Browser: pair.A, Viewport: viewport}))
	pathB := filepath.Join(dir, sanitize.Filename(types.ScreenshotTask{Scenario: scenario, Browser: pair.B, Viewport: viewport}))
	writePNG(t, pathA, color.NRGBA{R: 10, A: 255})
	writePNG(t, pathB, color.NRGBA{R: 200, A: 255})

	cfg := Config{OutputDir: dir, SizeNormalization: types.SizeNormalizationPad, ComparatorOptions: comparator.DefaultOptions()}
	_, err := Run(pair, []types.Scenario{scenario}, []types.Viewport{viewport}, cfg)
	require.NoError(t, err)

	require.NoError(t, Accept(dir, pair, "homepage__desktop"))

	report, err := Run(pair, []types.Scenario{scenario}, []types.Viewport{viewport}, cfg)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.True(t, report.Items[0].Accepted)
	require.NotNil(t, report.Items[0].AcceptedAt)
}
