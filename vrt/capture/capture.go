// Package capture orchestrates screenshot/DOM-snapshot acquisition across
// browser groups produced by vrt/planner: one group at a time, bounded
// concurrency within a group, best-effort output on a per-task capture
// failure, and full cancellation once the caller aborts.
package capture

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"go.vrtcore.dev/internal/atomicfile"
	"go.vrtcore.dev/internal/ctxutil"
	"go.vrtcore.dev/internal/sklog"
	"go.vrtcore.dev/vrt/imageproc"
	"go.vrtcore.dev/vrt/planner"
	"go.vrtcore.dev/vrt/sanitize"
	"go.vrtcore.dev/vrt/store"
	"go.vrtcore.dev/vrt/types"
)

// TaskResult is what a Worker produces for one ScreenshotTask.
type TaskResult struct {
	Task        types.ScreenshotTask
	Image       image.Image
	DomSnapshot *types.DomSnapshot
	Err         error
}

// Worker is the browser-automation contract this package drives. A real
// implementation wraps a Playwright/Puppeteer-style driver; tests supply a
// fake. RunBatch is handed every task sharing one browser key and streams
// back one TaskResult per task, in any order, closing the channel when the
// batch is exhausted or ctx is cancelled.
type Worker interface {
	RunBatch(ctx context.Context, tasks []types.ScreenshotTask) (<-chan TaskResult, error)
}

// Phase names a point in a single task's capture lifecycle, reported through
// the Progress callback.
type Phase string

const (
	PhaseCapturing Phase = "capturing"
	PhaseWriting   Phase = "writing"
	PhaseDone      Phase = "done"
	PhaseFailed    Phase = "failed"
)

// ProgressEvent is one update emitted as a task moves through its lifecycle.
type ProgressEvent struct {
	BrowserKey string
	Task       types.ScreenshotTask
	Phase      Phase
	Err        error
}

// Outcome is the final, on-disk result of capturing one task.
type Outcome struct {
	Task           types.ScreenshotTask
	ScreenshotPath string
	SnapshotPath   string
	DomSnapshot    *types.DomSnapshot
	// CaptureFailed is true when the worker could not actually render the
	// page and ScreenshotPath holds a blank placeholder instead, per
	// spec.md §5's "never drop a task from the report" requirement.
	CaptureFailed bool
	Err           error
}

// Options configures a Run call.
type Options struct {
	// Concurrency bounds simultaneous in-flight writes within one browser
	// group. Defaults to 4.
	Concurrency int
	OnProgress  func(ProgressEvent)
}

// DefaultOptions returns sane defaults.
func DefaultOptions() Options {
	return Options{Concurrency: 4}
}

// Run captures every task in groups, one browser group at a time (so two
// incompatible browser contexts are never driven concurrently by the same
// worker), writing screenshots and DOM-snapshot sidecars into outDir. Within
// a group, up to opts.Concurrency tasks are written to disk concurrently as
// the worker streams results in. ctx cancellation stops issuing new work and
// Run returns the outcomes collected so far alongside ctx.Err().
func Run(ctx context.Context, worker Worker, groups []planner.BrowserGroup, outDir string, opts Options) ([]Outcome, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	metadataStore := store.NewMetadataStore(outDir)

	var all []Outcome
	for _, group := range groups {
		if ctxutil.Aborted(ctx) {
			return all, ctx.Err()
		}

		outcomes, err := runGroup(ctx, worker, group, outDir, metadataStore, opts)
		all = append(all, outcomes...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

func runGroup(ctx context.Context, worker Worker, group planner.BrowserGroup, outDir string, metadataStore *store.MetadataStore, opts Options) ([]Outcome, error) {
	ch, err := worker.RunBatch(ctx, group.Tasks)
	if err != nil {
		// The worker itself couldn't start this browser (binary missing,
		// context failed to launch): fall every task in the group back to
		// a placeholder rather than silently dropping it from the report.
		outcomes := make([]Outcome, 0, len(group.Tasks))
		for _, task := range group.Tasks {
			outcomes = append(outcomes, writeOutcome(outDir, metadataStore, TaskResult{Task: task, Err: err}, opts))
		}
		return outcomes, nil
	}

	sem := semaphore.NewWeighted(int64(opts.Concurrency))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []Outcome
		aborted  bool
	)

	for result := range ch {
		if ctxutil.Aborted(ctx) {
			aborted = true
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			aborted = true
			break
		}
		wg.Add(1)
		go func(result TaskResult) {
			defer wg.Done()
			defer sem.Release(1)
			out := writeOutcome(outDir, metadataStore, result, opts)
			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
		}(result)
	}
	wg.Wait()

	if aborted {
		return outcomes, ctx.Err()
	}
	return outcomes, nil
}

func writeOutcome(outDir string, metadataStore *store.MetadataStore, result TaskResult, opts Options) Outcome {
	report := func(phase Phase, err error) {
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressEvent{Task: result.Task, Phase: phase, Err: err})
		}
	}
	report(PhaseCapturing, nil)

	filename := sanitize.Filename(result.Task)
	screenshotPath := filepath.Join(outDir, filename)

	img := result.Image
	captureFailed := result.Err != nil || img == nil
	if captureFailed {
		sklog.Warningf("capture failed for %s, writing blank placeholder: %v", filename, result.Err)
		img = blankPlaceholder(result.Task.Viewport.Width, result.Task.Viewport.Height)
	}

	report(PhaseWriting, nil)
	if err := writePNGAtomic(screenshotPath, img); err != nil {
		report(PhaseFailed, err)
		return Outcome{Task: result.Task, CaptureFailed: true, Err: err}
	}

	var snapshotPath string
	if result.DomSnapshot != nil {
		snapshotPath = filepath.Join(outDir, sanitize.SnapshotFilename(filename))
		if err := atomicfile.WriteJSON(snapshotPath, result.DomSnapshot); err != nil {
			sklog.Warningf("writing DOM snapshot sidecar for %s: %v", filename, err)
			snapshotPath = ""
		}
	}

	if err := metadataStore.Put(filename, store.MetadataFor(filename, result.Task), time.Now()); err != nil {
		sklog.Warningf("writing metadata.json entry for %s: %v", filename, err)
	}

	report(PhaseDone, nil)
	return Outcome{
		Task:           result.Task,
		ScreenshotPath: screenshotPath,
		SnapshotPath:   snapshotPath,
		DomSnapshot:    result.DomSnapshot,
		CaptureFailed:  captureFailed,
		Err:            result.Err,
	}
}

// blankPlaceholder fills the viewport dimensions with imageproc.PadFillColor
// so a capture failure still produces an image of the expected size instead
// of one the comparator has to special-case.
func blankPlaceholder(w, h int) *image.NRGBA {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, imageproc.PadFillColor)
		}
	}
	return img
}

// writePNGAtomic encodes img to a temp file beside path and renames it into
// place, so a reader (or a second Run racing on the same outDir) never
// observes a half-written screenshot.
func writePNGAtomic(path string, img image.Image) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".capture-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
