package capture

import (
	"context"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.vrtcore.dev/internal/testutils"
	"go.vrtcore.dev/vrt/types"
)

// writeFakeCaptureWorker writes a shell script standing in for the real
// browser-driver subprocess: it drains stdin (the batch input) and emits a
// canned batch-results.json referencing a screenshot the test has already
// placed in dir, so SubprocessWorker's decode path has something real to
// read.
func writeFakeCaptureWorker(t *testing.T, dir, taskID, resultsJSON string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake capture worker script is POSIX-shell only")
	}
	script := filepath.Join(dir, "fake-worker.sh")
	body := "#!/bin/sh\ncat >/dev/null\ncat >" + filepath.Join(dir, "batch-results.json") + " <<'EOF'\n" + resultsJSON + "\nEOF\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func TestSubprocessWorkerDecodesReportedScreenshot(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	shotPath := filepath.Join(dir, "shot.png")
	f, err := os.Create(shotPath)
	require.NoError(t, err)
	img := solid(5, 5, color.NRGBA{R: 9, G: 8, B: 7, A: 255})
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	task := types.ScreenshotTask{
		Scenario: types.Scenario{Name: "home"},
		Browser:  types.BrowserSpec{Variant: types.BrowserChromium},
		Viewport: types.Viewport{Name: "desktop"},
	}
	resultsJSON := fmt.Sprintf(`{"browser":"chromium","totalTasks":1,"succeeded":1,"failed":0,"elapsed_seconds":0.1,"results":[{"task_id":"home::chromium::desktop","file":"shot.png"}]}`)
	script := writeFakeCaptureWorker(t, dir, "home::chromium::desktop", resultsJSON)

	worker := &SubprocessWorker{BinaryPath: script, OutputDir: dir, Concurrency: 1}
	ch, err := worker.RunBatch(context.Background(), []types.ScreenshotTask{task})
	require.NoError(t, err)

	var results []TaskResult
	for r := range ch {
		results = append(results, r)
	}
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	require.NotNil(t, results[0].Image)
	assert.Equal(t, 5, results[0].Image.Bounds().Dx())
}

func TestSubprocessWorkerReportsMissingResultAsFailure(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	task := types.ScreenshotTask{
		Scenario: types.Scenario{Name: "home"},
		Browser:  types.BrowserSpec{Variant: types.BrowserChromium},
		Viewport: types.Viewport{Name: "desktop"},
	}
	resultsJSON := `{"browser":"chromium","totalTasks":1,"succeeded":0,"failed":1,"elapsed_seconds":0.1,"results":[]}`
	script := writeFakeCaptureWorker(t, dir, "home::chromium::desktop", resultsJSON)

	worker := &SubprocessWorker{BinaryPath: script, OutputDir: dir, Concurrency: 1}
	ch, err := worker.RunBatch(context.Background(), []types.ScreenshotTask{task})
	require.NoError(t, err)

	var results []TaskResult
	for r := range ch {
		results = append(results, r)
	}
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestSubprocessWorkerEmptyBatchClosesImmediately(t *testing.T) {
	testutils.SmallTest(t)

	worker := &SubprocessWorker{BinaryPath: "/bin/true", OutputDir: t.TempDir()}
	ch, err := worker.RunBatch(context.Background(), nil)
	require.NoError(t, err)
	_, ok := <-ch
	assert.False(t, ok)
}
