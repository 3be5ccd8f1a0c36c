package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	"go.vrtcore.dev/internal/skerr"
	"go.vrtcore.dev/internal/sklog"
	"go.vrtcore.dev/vrt/imageproc"
	"go.vrtcore.dev/vrt/store"
	"go.vrtcore.dev/vrt/types"
)

// SnapshotOptions is the optional DOM-capture request embedded in a batch
// task, per spec.md §6's CaptureWorker contract.
type SnapshotOptions struct {
	MaxElements int `json:"max_elements,omitempty"`
}

// SubprocessWorker drives an external CaptureWorker process: a real
// browser-automation driver (Playwright/Puppeteer-backed, not shipped by
// this module) that this repo talks to over stdin/stdout using the batch
// JSON protocol spec.md §6 defines. One RunBatch call is one subprocess
// invocation.
type SubprocessWorker struct {
	// BinaryPath is the external capture driver executable.
	BinaryPath string
	// EngineDisplayName is passed through for the worker's own logging,
	// e.g. "Chromium 130".
	EngineDisplayName string
	// OutputDir is where the worker writes screenshot files and
	// batch-results.json; also used as the subprocess's working directory.
	OutputDir         string
	DisableAnimations bool
	Concurrency       int
	CaptureSnapshot   *SnapshotOptions
}

type batchTaskWire struct {
	Scenario          string           `json:"scenario"`
	Viewport          string           `json:"viewport"`
	DisableAnimations bool             `json:"disable_animations,omitempty"`
	CaptureSnapshot   *SnapshotOptions `json:"capture_snapshot,omitempty"`
}

type batchInput struct {
	Engine            string          `json:"engine"`
	EngineDisplayName string          `json:"engine_display_name,omitempty"`
	Concurrency       int             `json:"concurrency"`
	Tasks             []batchTaskWire `json:"tasks"`
}

type batchResultWire struct {
	TaskID   string `json:"task_id"`
	File     string `json:"file,omitempty"`
	Snapshot string `json:"snapshot,omitempty"`
	Error    string `json:"error,omitempty"`
}

type batchOutput struct {
	Browser        string            `json:"browser"`
	TotalTasks     int               `json:"totalTasks"`
	Succeeded      int               `json:"succeeded"`
	Failed         int               `json:"failed"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	Results        []batchResultWire `json:"results"`
}

// RunBatch writes tasks as one batch-input document to the worker's stdin,
// streams its stdout progress lines to sklog, waits for it to exit, and
// reads back <OutputDir>/batch-results.json for the final per-task
// outcomes. A task present in the input but missing from the worker's
// results is surfaced as its own failed TaskResult rather than silently
// dropped, per spec.md §5's "never drop a task" requirement.
func (w *SubprocessWorker) RunBatch(ctx context.Context, tasks []types.ScreenshotTask) (<-chan TaskResult, error) {
	ch := make(chan TaskResult, len(tasks))
	if len(tasks) == 0 {
		close(ch)
		return ch, nil
	}

	byTaskID := make(map[string]types.ScreenshotTask, len(tasks))
	input := batchInput{
		Engine:            string(tasks[0].Browser.Variant),
		EngineDisplayName: w.EngineDisplayName,
		Concurrency:       w.Concurrency,
		Tasks:             make([]batchTaskWire, 0, len(tasks)),
	}
	for _, task := range tasks {
		byTaskID[store.TaskKey(task)] = task
		input.Tasks = append(input.Tasks, batchTaskWire{
			Scenario:          task.Scenario.Name,
			Viewport:          task.Viewport.Name,
			DisableAnimations: w.DisableAnimations,
			CaptureSnapshot:   w.CaptureSnapshot,
		})
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, skerr.Wrapf(err, "encoding capture batch input")
	}

	cmd := exec.CommandContext(ctx, w.BinaryPath)
	cmd.Dir = w.OutputDir
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, skerr.Wrapf(err, "opening capture worker stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, skerr.Wrapf(err, "opening capture worker stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, skerr.Wrapf(err, "starting capture worker %s", w.BinaryPath)
	}

	if _, err := stdin.Write(payload); err != nil {
		return nil, skerr.Wrapf(err, "writing capture batch input")
	}
	if err := stdin.Close(); err != nil {
		return nil, skerr.Wrapf(err, "closing capture worker stdin")
	}

	logDone := make(chan struct{})
	go func() {
		defer close(logDone)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			sklog.Infof("capture worker: %s", scanner.Text())
		}
	}()

	waitErr := cmd.Wait()
	<-logDone
	if waitErr != nil {
		// A nonzero exit just means the contract's failed > 0; the batch
		// results file is still expected to exist and is authoritative.
		sklog.Warningf("capture worker %s exited with error: %v", w.BinaryPath, waitErr)
	}

	resultsPath := filepath.Join(w.OutputDir, "batch-results.json")
	data, err := os.ReadFile(resultsPath)
	if err != nil {
		return nil, skerr.Wrapf(err, "reading capture batch results %s", resultsPath)
	}
	var out batchOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, skerr.Wrapf(err, "parsing capture batch results %s", resultsPath)
	}

	go func() {
		defer close(ch)
		seen := make(map[string]bool, len(out.Results))
		for _, r := range out.Results {
			task, ok := byTaskID[r.TaskID]
			if !ok {
				continue
			}
			seen[r.TaskID] = true
			result := TaskResult{Task: task}
			if r.Error != "" {
				result.Err = skerr.Fmt("%s", r.Error)
			}
			if r.File != "" {
				img, err := decodeImageFile(filepath.Join(w.OutputDir, r.File))
				if err != nil {
					result.Err = err
				} else {
					result.Image = img
				}
			}
			if r.Snapshot != "" {
				if snap, err := loadSnapshotFile(filepath.Join(w.OutputDir, r.Snapshot)); err == nil {
					result.DomSnapshot = snap
				}
			}
			if !sendResult(ctx, ch, result) {
				return
			}
		}
		for taskID, task := range byTaskID {
			if seen[taskID] {
				continue
			}
			if !sendResult(ctx, ch, TaskResult{Task: task, Err: skerr.Fmt("capture worker reported no result for %s", taskID)}) {
				return
			}
		}
	}()
	return ch, nil
}

func sendResult(ctx context.Context, ch chan<- TaskResult, result TaskResult) bool {
	select {
	case ch <- result:
		return true
	case <-ctx.Done():
		return false
	}
}

func decodeImageFile(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, skerr.Wrapf(err, "opening capture worker output %s", path)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, skerr.Wrapf(err, "decoding capture worker output %s", path)
	}
	return imageproc.ToNRGBA(img), nil
}

func loadSnapshotFile(path string) (*types.DomSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap types.DomSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
