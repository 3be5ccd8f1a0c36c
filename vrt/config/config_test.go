package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.vrtcore.dev/internal/testutils"
	"go.vrtcore.dev/vrt/scoring"
	"go.vrtcore.dev/vrt/store"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "vrt.config.json5")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalValidConfig = `{
  "baseline_dir": "./baselines",
  "output_dir": "./output",
  "browsers": [{"variant": "chromium"}],
  "viewports": [{"name": "desktop", "width": 1280, "height": 800}],
  "threshold": 0.1,
  "concurrency": 5,
  "scenarios": [{"name": "homepage", "url": "https://example.com"}]
}`

func TestLoadMinimalValidConfig(t *testing.T) {
	testutils.MediumTest(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, minimalValidConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./baselines", cfg.BaselineDir)
	assert.Equal(t, 5, cfg.Concurrency)
	require.Len(t, cfg.Scenarios, 1)
	assert.Equal(t, "homepage", cfg.Scenarios[0].Name)
}

func TestLoadMissingRequiredFieldErrors(t *testing.T) {
	testutils.MediumTest(t)
	dir := t.TempDir()
	// output_dir omitted.
	body := `{
  "baseline_dir": "./baselines",
  "browsers": [{"variant": "chromium"}],
  "viewports": [{"name": "desktop", "width": 1280, "height": 800}],
  "threshold": 0.1,
  "concurrency": 5,
  "scenarios": [{"name": "homepage", "url": "https://example.com"}]
}`
	path := writeConfig(t, dir, body)

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "output_dir")
}

func TestLoadInvalidConcurrencyBoundsErrors(t *testing.T) {
	testutils.MediumTest(t)
	dir := t.TempDir()
	body := `{
  "baseline_dir": "./baselines",
  "output_dir": "./output",
  "browsers": [{"variant": "chromium"}],
  "viewports": [{"name": "desktop", "width": 1280, "height": 800}],
  "threshold": 0.1,
  "concurrency": 99,
  "scenarios": [{"name": "homepage", "url": "https://example.com"}]
}`
	path := writeConfig(t, dir, body)

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadInvalidBrowserVariantErrors(t *testing.T) {
	testutils.MediumTest(t)
	dir := t.TempDir()
	body := `{
  "baseline_dir": "./baselines",
  "output_dir": "./output",
  "browsers": [{"variant": "ie6"}],
  "viewports": [{"name": "desktop", "width": 1280, "height": 800}],
  "threshold": 0.1,
  "concurrency": 5,
  "scenarios": [{"name": "homepage", "url": "https://example.com"}]
}`
	path := writeConfig(t, dir, body)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadToleratesOptionalSectionsOmitted(t *testing.T) {
	testutils.MediumTest(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, minimalValidConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.AI.TimeoutOrDefault().Duration)
	assert.Equal(t, scoring.DefaultThresholds(), cfg.ConfidenceThresholdsOrDefault())
	assert.Equal(t, store.DefaultAutoThresholdOptions(), cfg.AutoThresholdOrDefault())
}

func TestEnginesConfigResolveAppliesFallbackDiffColor(t *testing.T) {
	testutils.SmallTest(t)
	ec := EnginesConfig{}
	resolved, err := ec.Resolve("#00ff00")
	require.NoError(t, err)
	assert.Equal(t, uint8(0), resolved.DiffColor.R)
	assert.Equal(t, uint8(255), resolved.DiffColor.G)
}

func TestEnginesConfigResolveOwnColorWinsOverFallback(t *testing.T) {
	testutils.SmallTest(t)
	ec := EnginesConfig{DiffColor: "#0000ff"}
	resolved, err := ec.Resolve("#00ff00")
	require.NoError(t, err)
	assert.Equal(t, uint8(255), resolved.DiffColor.B)
}

func TestVRTConfigConcurrencyOrDefault(t *testing.T) {
	testutils.SmallTest(t)
	cfg := VRTConfig{}
	assert.Equal(t, 5, cfg.ConcurrencyOrDefault())
	cfg.Concurrency = 12
	assert.Equal(t, 12, cfg.ConcurrencyOrDefault())
}

func TestVRTConfigConfidenceThresholdsOrDefaultFillsGaps(t *testing.T) {
	testutils.SmallTest(t)
	cfg := VRTConfig{ConfidenceThresholds: scoring.Thresholds{Pass: 0.95}}
	resolved := cfg.ConfidenceThresholdsOrDefault()
	assert.Equal(t, 0.95, resolved.Pass)
	assert.Equal(t, scoring.DefaultThresholds().LikelyPass, resolved.LikelyPass)
}
