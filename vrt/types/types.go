// Package types holds the data model shared by every VRT engine component:
// scenarios, browsers, viewports, screenshot tasks, DOM snapshots, and engine
// results. It has no dependencies on the rest of the module so every other
// package can import it without cycles.
package types

import "time"

// WaitFor is the page-readiness signal Playwright/Puppeteer-style capture
// workers wait for before taking a screenshot.
type WaitFor string

const (
	WaitForLoad             WaitFor = "load"
	WaitForDOMContentLoaded WaitFor = "domcontentloaded"
	WaitForNetworkIdle      WaitFor = "networkidle"
)

// Valid reports whether w is one of the closed set of recognized values.
func (w WaitFor) Valid() bool {
	switch w {
	case WaitForLoad, WaitForDOMContentLoaded, WaitForNetworkIdle, "":
		return true
	default:
		return false
	}
}

// Scenario describes one named page under test: where to navigate, how to
// wait for it to settle, what to manipulate before capture, and how to crop
// the resulting screenshot.
type Scenario struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,url"`

	WaitFor                 WaitFor  `json:"wait_for,omitempty"`
	WaitForSelector         string   `json:"wait_for_selector,omitempty"`
	WaitForTimeoutMs        int      `json:"wait_for_timeout_ms,omitempty"`
	PostInteractionWaitMs   int      `json:"post_interaction_wait_ms,omitempty"`
	BeforeScreenshot        string   `json:"before_screenshot,omitempty"` // user JS snippet
	Selector                string   `json:"selector,omitempty"`
	FullPage                bool     `json:"full_page,omitempty"`
	HideSelectors           []string `json:"hide_selectors,omitempty"`
	RemoveSelectors         []string `json:"remove_selectors,omitempty"`
	BlockURLs               []string `json:"block_urls,omitempty"`
	DiffThreshold           *float64 `json:"diff_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// ScenarioDefaults holds the subset of Scenario fields that can be supplied
// once and merged into every scenario, per spec.md §4.6.
type ScenarioDefaults struct {
	WaitFor               WaitFor  `json:"wait_for,omitempty" optional:"true"`
	WaitForTimeoutMs      int      `json:"wait_for_timeout_ms,omitempty" optional:"true"`
	PostInteractionWaitMs int      `json:"post_interaction_wait_ms,omitempty" optional:"true"`
	BeforeScreenshot      string   `json:"before_screenshot,omitempty" optional:"true"`
	FullPage              bool     `json:"full_page,omitempty"`
	HideSelectors         []string `json:"hide_selectors,omitempty" optional:"true"`
	RemoveSelectors       []string `json:"remove_selectors,omitempty" optional:"true"`
	BlockURLs             []string `json:"block_urls,omitempty" optional:"true"`
	DiffThreshold         *float64 `json:"diff_threshold,omitempty" optional:"true"`
}

// Viewport is a named CSS-pixel browser window size.
type Viewport struct {
	Name   string `json:"name" validate:"required"`
	Width  int    `json:"width" validate:"required,gt=0"`
	Height int    `json:"height" validate:"required,gt=0"`
}

// BrowserVariant is the closed set of supported engines.
type BrowserVariant string

const (
	BrowserChromium BrowserVariant = "chromium"
	BrowserWebkit   BrowserVariant = "webkit"
)

func (b BrowserVariant) Valid() bool {
	return b == BrowserChromium || b == BrowserWebkit
}

// BrowserSpec names one browser engine and, optionally, a pinned version.
type BrowserSpec struct {
	Variant BrowserVariant `json:"variant" validate:"required,oneof=chromium webkit"`
	Version string         `json:"version,omitempty"`
}

// DisplayKey is the "<name>" or "<name>-v<version>" key used throughout the
// filename schema and grouping logic.
func (b BrowserSpec) DisplayKey() string {
	if b.Version == "" {
		return string(b.Variant)
	}
	return string(b.Variant) + "-v" + b.Version
}

// SizeNormalization is the size-reconciliation policy applied before a pair
// of images is diffed, per spec.md §4.1.
type SizeNormalization string

const (
	SizeNormalizationPad    SizeNormalization = "pad"
	SizeNormalizationCrop   SizeNormalization = "crop"
	SizeNormalizationResize SizeNormalization = "resize"
)

func (s SizeNormalization) Valid() bool {
	switch s {
	case SizeNormalizationPad, SizeNormalizationCrop, SizeNormalizationResize, "":
		return true
	default:
		return false
	}
}

// SizeMismatchHandling controls whether an original-dimension mismatch forces
// a non-match even when every pixel agrees post-normalization.
type SizeMismatchHandling string

const (
	SizeMismatchStrict SizeMismatchHandling = "strict"
	SizeMismatchIgnore SizeMismatchHandling = "ignore"
)

// ScreenshotTask names one unit of capture/compare work: a scenario rendered
// in one browser (at an optional pinned version) at one viewport.
type ScreenshotTask struct {
	Scenario Scenario
	Browser  BrowserSpec
	Viewport Viewport
}

// DomElementStyles is the subset of computed CSS properties the DOM snapshot
// captures per element, per spec.md §3.
type DomElementStyles struct {
	Color           string `json:"color,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	FontSize        string `json:"fontSize,omitempty"`
	FontFamily      string `json:"fontFamily,omitempty"`
	FontWeight      string `json:"fontWeight,omitempty"`
	LineHeight      string `json:"lineHeight,omitempty"`
	Padding         string `json:"padding,omitempty"`
	Margin          string `json:"margin,omitempty"`
	BorderWidth     string `json:"borderWidth,omitempty"`
	BorderColor     string `json:"borderColor,omitempty"`
	Display         string `json:"display,omitempty"`
	Position        string `json:"position,omitempty"`
	Opacity         string `json:"opacity,omitempty"`
}

// Box is an axis-aligned pixel rectangle relative to the page.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Intersects reports whether b overlaps the rectangle (0,0)-(w,h).
func (b Box) Intersects(w, h float64) bool {
	return b.X < w && b.Y < h && b.X+b.W > 0 && b.Y+b.H > 0
}

// DomElement is one node captured in a DomSnapshot. Children are stored as
// indices into the owning snapshot's Elements slice (an arena, per spec.md
// §9's design note on flat DOM representations), never as pointers.
type DomElement struct {
	Path     string            `json:"path"`
	Tag      string             `json:"tag"`
	Box      Box                `json:"box"`
	Styles   DomElementStyles   `json:"styles"`
	Text     *string            `json:"text,omitempty"`
	ID       *string            `json:"id,omitempty"`
	TestID   *string            `json:"testId,omitempty"`
	Children []int              `json:"children,omitempty"`
}

// DomSnapshot is a flattened capture of the rendered DOM taken alongside a
// screenshot, used by the optional DOM-diff comparator.
type DomSnapshot struct {
	Version    int          `json:"version"`
	Viewport   struct {
		W int `json:"w"`
		H int `json:"h"`
	} `json:"viewport"`
	ScrollSize struct {
		W int `json:"w"`
		H int `json:"h"`
	} `json:"scroll_size"`
	Elements   []DomElement `json:"elements"`
	CapturedAt time.Time    `json:"captured_at"`
}

// EngineName is the closed set of pixel/structural comparison engines.
type EngineName string

const (
	EnginePixelmatch EngineName = "pixelmatch"
	EngineOdiff      EngineName = "odiff"
	EngineSSIM       EngineName = "ssim"
	EnginePHash      EngineName = "phash"
)

// EngineResult is the uniform output every engine adapter produces, per
// spec.md §3/§4.2. Engine failures are carried in Error, never as a panic.
type EngineResult struct {
	Engine        EngineName `json:"engine"`
	Similarity    float64    `json:"similarity"`
	DiffPercent   float64    `json:"diff_percent"`
	DiffPixels    *int       `json:"diff_pixels,omitempty"`
	DiffImagePath string     `json:"diff_image_path,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Failed reports whether the engine could not produce a usable result.
func (r EngineResult) Failed() bool { return r.Error != "" }
