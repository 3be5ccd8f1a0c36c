package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.vrtcore.dev/internal/atomicfile"
	"go.vrtcore.dev/internal/sklog"
	"go.vrtcore.dev/vrt/sanitize"
	"go.vrtcore.dev/vrt/types"
)

// MetadataFilename is the per-directory sidecar name from spec.md §6.
const MetadataFilename = "metadata.json"

// metadataSchemaVersion is bumped whenever the ImageMetadata shape changes
// incompatibly; a reader seeing a different version falls back to filename
// parsing for every entry, per spec.md §6's compatibility note.
const metadataSchemaVersion = 1

// ImageMetadata is one entry in metadata.json, the identity spec.md §6
// needs to re-associate a stored image with its scenario/browser/viewport
// after it's been separated from the filename schema that produced it.
type ImageMetadata struct {
	Filename string `json:"filename"`
	Scenario string `json:"scenario"`
	Browser  string `json:"browser"`
	Version  string `json:"version,omitempty"`
	Viewport string `json:"viewport"`
}

type metadataFile struct {
	SchemaVersion int                      `json:"schemaVersion"`
	GeneratedAt   time.Time                `json:"generatedAt"`
	Images        map[string]ImageMetadata `json:"images"`
}

// MetadataStore manages the metadata.json sidecar for one output directory.
// Writes reload-then-merge under a mutex so concurrent capture workers
// writing distinct filenames don't clobber each other's entries; spec.md
// §5 calls the output directory single-writer per run, so an in-process
// mutex is sufficient here (unlike the cross-process acceptance ledger,
// which needs vrt/store.Ledger's flock).
type MetadataStore struct {
	path string
	mu   sync.Mutex
}

// NewMetadataStore returns the metadata.json sidecar manager for dir.
func NewMetadataStore(dir string) *MetadataStore {
	return &MetadataStore{path: filepath.Join(dir, MetadataFilename)}
}

func (m *MetadataStore) load() metadataFile {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return metadataFile{SchemaVersion: metadataSchemaVersion, Images: map[string]ImageMetadata{}}
	}
	var f metadataFile
	if err := json.Unmarshal(data, &f); err != nil {
		sklog.Warningf("metadata sidecar at %s is malformed, treating as empty", m.path)
		return metadataFile{SchemaVersion: metadataSchemaVersion, Images: map[string]ImageMetadata{}}
	}
	if f.Images == nil {
		f.Images = map[string]ImageMetadata{}
	}
	return f
}

// Put records filename's metadata and atomically rewrites the sidecar.
func (m *MetadataStore) Put(filename string, meta ImageMetadata, generatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := m.load()
	f.SchemaVersion = metadataSchemaVersion
	f.GeneratedAt = generatedAt
	f.Images[filename] = meta
	return atomicfile.WriteJSON(m.path, f)
}

// Get returns filename's metadata, falling back to vrt/sanitize.Parse when
// the sidecar is missing, unreadable, schema-mismatched, or simply doesn't
// have an entry for filename yet — "the filename is always authoritative,
// the sidecar is an optimization" per spec.md §6.
func (m *MetadataStore) Get(filename string) (ImageMetadata, error) {
	m.mu.Lock()
	f := m.load()
	m.mu.Unlock()

	if f.SchemaVersion == metadataSchemaVersion {
		if meta, ok := f.Images[filename]; ok {
			return meta, nil
		}
	}
	return metadataFromFilename(filename)
}

func metadataFromFilename(filename string) (ImageMetadata, error) {
	parsed, err := sanitize.Parse(filepath.Base(filename))
	if err != nil {
		return ImageMetadata{}, err
	}
	browser := string(parsed.Browser)
	if parsed.Version != "" {
		browser += "-v" + parsed.Version
	}
	return ImageMetadata{
		Filename: filename,
		Scenario: parsed.Scenario,
		Browser:  browser,
		Version:  parsed.Version,
		Viewport: parsed.Viewport,
	}, nil
}

// MetadataFor builds the ImageMetadata record to write for a freshly
// captured screenshot.
func MetadataFor(filename string, task types.ScreenshotTask) ImageMetadata {
	return ImageMetadata{
		Filename: filename,
		Scenario: task.Scenario.Name,
		Browser:  task.Browser.DisplayKey(),
		Version:  task.Browser.Version,
		Viewport: task.Viewport.Name,
	}
}
