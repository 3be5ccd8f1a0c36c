package capture

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.vrtcore.dev/internal/testutils"
	"go.vrtcore.dev/vrt/planner"
	"go.vrtcore.dev/vrt/store"
	"go.vrtcore.dev/vrt/types"
)

// fakeWorker streams a preset TaskResult per task, looked up by scenario
// name, simulating a real browser driver without launching one.
type fakeWorker struct {
	byScenario map[string]TaskResult
	batchErr   error
}

func (w *fakeWorker) RunBatch(ctx context.Context, tasks []types.ScreenshotTask) (<-chan TaskResult, error) {
	if w.batchErr != nil {
		return nil, w.batchErr
	}
	ch := make(chan TaskResult, len(tasks))
	go func() {
		defer close(ch)
		for _, task := range tasks {
			select {
			case <-ctx.Done():
				return
			default:
			}
			result, ok := w.byScenario[task.Scenario.Name]
			if !ok {
				result = TaskResult{Task: task}
			} else {
				result.Task = task
			}
			ch <- result
		}
	}()
	return ch, nil
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func task(name string, w, h int) types.ScreenshotTask {
	return types.ScreenshotTask{
		Scenario: types.Scenario{Name: name, URL: "https://example.com"},
		Browser:  types.BrowserSpec{Variant: types.BrowserChromium},
		Viewport: types.Viewport{Name: "desktop", Width: w, Height: h},
	}
}

func TestRunWritesScreenshotsAndSnapshots(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	img := solid(10, 10, color.NRGBA{R: 200, A: 255})
	worker := &fakeWorker{byScenario: map[string]TaskResult{
		"home": {Image: img, DomSnapshot: &types.DomSnapshot{Version: 1}},
	}}
	groups := planner.GroupTasksByBrowser([]types.ScreenshotTask{task("home", 10, 10)})

	outcomes, err := Run(context.Background(), worker, groups, dir, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	out := outcomes[0]
	assert.False(t, out.CaptureFailed)
	assert.FileExists(t, out.ScreenshotPath)
	assert.FileExists(t, out.SnapshotPath)

	ms := store.NewMetadataStore(dir)
	meta, err := ms.Get(filepath.Base(out.ScreenshotPath))
	require.NoError(t, err)
	assert.Equal(t, "home", meta.Scenario)
}

func TestRunWritesPlaceholderOnCaptureFailure(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	worker := &fakeWorker{byScenario: map[string]TaskResult{
		"broken": {Err: assertError("navigation timeout")},
	}}
	groups := planner.GroupTasksByBrowser([]types.ScreenshotTask{task("broken", 20, 20)})

	outcomes, err := Run(context.Background(), worker, groups, dir, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	out := outcomes[0]
	assert.True(t, out.CaptureFailed)
	assert.FileExists(t, out.ScreenshotPath)

	f, openErr := os.Open(out.ScreenshotPath)
	require.NoError(t, openErr)
	defer f.Close()
	cfg, decodeErr := image.DecodeConfig(f)
	require.NoError(t, decodeErr)
	assert.Equal(t, 20, cfg.Width)
	assert.Equal(t, 20, cfg.Height)
}

func TestRunFallsBackToPlaceholderWhenBatchFailsToStart(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	worker := &fakeWorker{batchErr: assertError("browser launch failed")}
	groups := planner.GroupTasksByBrowser([]types.ScreenshotTask{task("home", 10, 10)})

	outcomes, err := Run(context.Background(), worker, groups, dir, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].CaptureFailed)
}

func TestRunAbortsOnCancelledContext(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	worker := &fakeWorker{byScenario: map[string]TaskResult{}}
	groups := planner.GroupTasksByBrowser([]types.ScreenshotTask{task("a", 10, 10), task("b", 10, 10)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, worker, groups, dir, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunCreatesOutputDirectory(t *testing.T) {
	testutils.MediumTest(t)

	dir := filepath.Join(t.TempDir(), "nested", "output")
	worker := &fakeWorker{byScenario: map[string]TaskResult{}}
	groups := planner.GroupTasksByBrowser([]types.ScreenshotTask{task("home", 10, 10)})

	_, err := Run(context.Background(), worker, groups, dir, DefaultOptions())
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

func assertError(msg string) error { return simpleError(msg) }
