// Package store holds the durable, cross-run state a VRT test job reads and
// writes between invocations: the acceptance ledger (which diffs a human has
// signed off on), auto-computed per-scenario diff thresholds, and the
// metadata sidecar written alongside captured screenshots.
package store

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"go.vrtcore.dev/internal/atomicfile"
	"go.vrtcore.dev/internal/skerr"
	"go.vrtcore.dev/vrt/types"
)

// LedgerFilename is the acceptance ledger's fixed location within a VRT
// project, per spec.md §7.
const LedgerFilename = ".vrt/acceptances.json"

// AcceptanceEntry records one human decision to accept a diff as the new
// expected baseline.
type AcceptanceEntry struct {
	Key        string    `json:"key"`
	AcceptedAt time.Time `json:"accepted_at"`
	AcceptedBy string    `json:"accepted_by,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

type ledgerFile struct {
	Version int                        `json:"version"`
	Entries map[string]AcceptanceEntry `json:"entries"`
}

const ledgerVersion = 1

// Ledger is the on-disk acceptance ledger, guarded by an advisory file lock
// so two concurrent `vrtctl accept` invocations (or a CI job and a local run)
// don't clobber each other's writes.
type Ledger struct {
	path string
	lock *flock.Flock

	mu      sync.Mutex
	entries map[string]AcceptanceEntry
}

// TaskKey is the stable identity an acceptance, threshold, or report entry
// is keyed by: scenario, browser (with pinned version if any), and
// viewport, joined with "::" so it never collides with any single
// component's own separators.
func TaskKey(task types.ScreenshotTask) string {
	return task.Scenario.Name + "::" + task.Browser.DisplayKey() + "::" + task.Viewport.Name
}

// OpenLedger loads path (creating an empty ledger if it doesn't exist yet)
// and prepares its advisory lock. path's directory must already exist.
func OpenLedger(path string) (*Ledger, error) {
	l := &Ledger{
		path:    path,
		lock:    flock.New(path + ".lock"),
		entries: make(map[string]AcceptanceEntry),
	}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// reload re-reads the ledger file from disk, tolerating a missing file (a
// brand-new project has no acceptances yet).
func (l *Ledger) reload() error {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		l.entries = make(map[string]AcceptanceEntry)
		return nil
	}
	if err != nil {
		return skerr.Wrapf(err, "reading acceptance ledger %s", l.path)
	}
	var lf ledgerFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return skerr.Wrapf(err, "parsing acceptance ledger %s", l.path)
	}
	if lf.Entries == nil {
		lf.Entries = make(map[string]AcceptanceEntry)
	}
	l.entries = lf.Entries
	return nil
}

func (l *Ledger) save() error {
	return atomicfile.WriteJSON(l.path, ledgerFile{Version: ledgerVersion, Entries: l.entries})
}

// withLock runs f while holding the advisory file lock and with the
// in-memory entries refreshed from disk, so a writer never overwrites a
// concurrent process's acceptance with a stale in-memory copy.
func (l *Ledger) withLock(f func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.lock.Lock(); err != nil {
		return skerr.Wrapf(err, "locking acceptance ledger %s", l.path)
	}
	defer l.lock.Unlock()

	if err := l.reload(); err != nil {
		return err
	}
	if err := f(); err != nil {
		return err
	}
	return l.save()
}

// Accept records that key's current diff has been approved as the new
// baseline.
func (l *Ledger) Accept(key, acceptedBy, reason string) error {
	return l.withLock(func() error {
		l.entries[key] = AcceptanceEntry{
			Key:        key,
			AcceptedAt: time.Now().UTC(),
			AcceptedBy: acceptedBy,
			Reason:     reason,
		}
		return nil
	})
}

// Revoke removes any acceptance recorded for key, e.g. after the baseline
// is rolled back.
func (l *Ledger) Revoke(key string) error {
	return l.withLock(func() error {
		delete(l.entries, key)
		return nil
	})
}

// IsAccepted reports whether key currently has a recorded acceptance,
// reflecting the on-disk state at the time of the call.
func (l *Ledger) IsAccepted(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.reload()
	_, ok := l.entries[key]
	return ok
}

// Entries returns a snapshot of every recorded acceptance.
func (l *Ledger) Entries() map[string]AcceptanceEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.reload()
	out := make(map[string]AcceptanceEntry, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}

// Approve copies testPath over baselinePath atomically, the effect of a
// human accepting a diff: the test run's screenshot becomes the new
// expected baseline for future comparisons.
func Approve(baselinePath, testPath string) error {
	if err := os.MkdirAll(filepath.Dir(baselinePath), 0o755); err != nil {
		return skerr.Wrapf(err, "creating baseline directory for %s", baselinePath)
	}
	src, err := os.Open(testPath)
	if err != nil {
		return skerr.Wrapf(err, "opening test image %s", testPath)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return skerr.Wrapf(err, "reading test image %s", testPath)
	}
	return atomicfile.Write(baselinePath, data)
}
