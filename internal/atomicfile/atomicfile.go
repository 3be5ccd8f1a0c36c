// Package atomicfile writes files by staging to a temp file in the same
// directory, fsyncing, and renaming over the final path, so a reader never
// observes a partially-written acceptance ledger, cross-compare report, or
// capture output. Grounded on the util.WithWriteFile naming/usage pattern
// referenced throughout the teacher's go/util/counters.go (the package
// itself wasn't present in the retrieval pack; this reimplements the
// temp-file-then-rename contract its call sites assume).
package atomicfile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"go.vrtcore.dev/internal/skerr"
)

// Write atomically replaces path's contents with data.
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString())

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return skerr.Wrapf(err, "creating temp file for %s", path)
	}
	defer os.Remove(tmp) // no-op once the rename below succeeds

	if _, err := f.Write(data); err != nil {
		f.Close()
		return skerr.Wrapf(err, "writing temp file for %s", path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return skerr.Wrapf(err, "fsyncing temp file for %s", path)
	}
	if err := f.Close(); err != nil {
		return skerr.Wrapf(err, "closing temp file for %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return skerr.Wrapf(err, "renaming temp file onto %s", path)
	}
	return nil
}

// WriteJSON marshals v with indentation and writes it atomically.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return skerr.Wrapf(err, "marshaling %s", path)
	}
	return Write(path, data)
}
