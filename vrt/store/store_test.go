package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.vrtcore.dev/internal/testutils"
	"go.vrtcore.dev/vrt/types"
)

func TestLedgerAcceptAndIsAccepted(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "acceptances.json")
	ledger, err := OpenLedger(path)
	require.NoError(t, err)

	key := "homepage::chromium::desktop"
	assert.False(t, ledger.IsAccepted(key))

	require.NoError(t, ledger.Accept(key, "alice", "intentional redesign"))
	assert.True(t, ledger.IsAccepted(key))

	entries := ledger.Entries()
	require.Contains(t, entries, key)
	assert.Equal(t, "alice", entries[key].AcceptedBy)
}

func TestLedgerPersistsAcrossReopen(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "acceptances.json")
	ledger, err := OpenLedger(path)
	require.NoError(t, err)
	require.NoError(t, ledger.Accept("k", "bob", ""))

	reopened, err := OpenLedger(path)
	require.NoError(t, err)
	assert.True(t, reopened.IsAccepted("k"))
}

func TestLedgerRevoke(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	ledger, err := OpenLedger(filepath.Join(dir, "acceptances.json"))
	require.NoError(t, err)
	require.NoError(t, ledger.Accept("k", "bob", ""))
	require.NoError(t, ledger.Revoke("k"))
	assert.False(t, ledger.IsAccepted("k"))
}

func TestApproveCopiesTestOverBaseline(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	baseline := filepath.Join(dir, "baselines", "home.png")
	test := filepath.Join(dir, "home.png")
	require.NoError(t, os.WriteFile(test, []byte("new-bytes"), 0o644))

	require.NoError(t, Approve(baseline, test))
	data, err := os.ReadFile(baseline)
	require.NoError(t, err)
	assert.Equal(t, "new-bytes", string(data))
}

func TestMetadataRoundTrip(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	filename := "homepage_chromium_desktop.png"
	task := types.ScreenshotTask{
		Scenario: types.Scenario{Name: "homepage"},
		Browser:  types.BrowserSpec{Variant: types.BrowserChromium},
		Viewport: types.Viewport{Name: "desktop", Width: 1280, Height: 800},
	}
	ms := NewMetadataStore(dir)
	m := MetadataFor(filename, task)
	require.NoError(t, ms.Put(filename, m, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	read, err := ms.Get(filename)
	require.NoError(t, err)
	assert.Equal(t, "homepage", read.Scenario)
	assert.Equal(t, "chromium", read.Browser)
	assert.Equal(t, "desktop", read.Viewport)

	raw, err := os.ReadFile(filepath.Join(dir, MetadataFilename))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "schemaVersion")
}

func TestMetadataRoundTripPreservesOtherEntries(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	ms := NewMetadataStore(dir)
	task := types.ScreenshotTask{
		Scenario: types.Scenario{Name: "homepage"},
		Browser:  types.BrowserSpec{Variant: types.BrowserChromium},
		Viewport: types.Viewport{Name: "desktop", Width: 1280, Height: 800},
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ms.Put("a.png", MetadataFor("a.png", task), now))
	require.NoError(t, ms.Put("b.png", MetadataFor("b.png", task), now))

	a, err := ms.Get("a.png")
	require.NoError(t, err)
	assert.Equal(t, "a.png", a.Filename)
	b, err := ms.Get("b.png")
	require.NoError(t, err)
	assert.Equal(t, "b.png", b.Filename)
}

func TestMetadataFallsBackToFilenameWhenSidecarMissing(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	filename := "homepage_webkit-v17.4_mobile.png"
	ms := NewMetadataStore(dir)

	read, err := ms.Get(filename)
	require.NoError(t, err)
	assert.Equal(t, "homepage", read.Scenario)
	assert.Equal(t, "webkit-v17.4", read.Browser)
	assert.Equal(t, "17.4", read.Version)
	assert.Equal(t, "mobile", read.Viewport)
}

func TestComputeAutoThresholdCapsGatesOnMinSampleSize(t *testing.T) {
	testutils.SmallTest(t)

	samples := []ThresholdSample{
		{Key: "a", DiffPercent: 1}, {Key: "a", DiffPercent: 2},
	}
	caps := ComputeAutoThresholdCaps(samples, AutoThresholdOptions{Percentile: 95, MinSampleSize: 10})
	assert.Empty(t, caps)
}

func TestComputeAutoThresholdCapsPercentile(t *testing.T) {
	testutils.SmallTest(t)

	var samples []ThresholdSample
	for i := 1; i <= 10; i++ {
		samples = append(samples, ThresholdSample{Key: "homepage::desktop", DiffPercent: float64(i)})
	}
	caps := ComputeAutoThresholdCaps(samples, AutoThresholdOptions{Percentile: 90, MinSampleSize: 10})
	require.Contains(t, caps, "homepage::desktop")
	assert.InDelta(t, 9.1, caps["homepage::desktop"], 0.01)
}
