// Package config loads and validates VRTConfig, the single JSON5 document
// that describes a project's scenarios, browsers, viewports, and the tunables
// for every downstream package (engines, scoring, cross-compare, vision).
//
// Loading is two-phase, mirroring spec.md §9's "dynamic config object": a
// JSON5 decode (unknown keys are ignored, not rejected), followed by a reflection walk
// requiring every field to be non-zero unless it's a bool, a struct, or
// tagged `optional:"true"` — then a github.com/go-playground/validator/v10
// pass over `validate` struct tags for bounds and enum checks the required-
// field walk doesn't express. Both failure modes collect every offending
// path into one ConfigError rather than stopping at the first.
package config

import (
	"encoding/json"
	"io"
	"os"
	"reflect"

	"github.com/flynn/json5"
	"github.com/go-playground/validator/v10"

	vconfig "go.vrtcore.dev/internal/config"
	"go.vrtcore.dev/internal/skerr"
	"go.vrtcore.dev/vrt/engines"
	"go.vrtcore.dev/vrt/imageproc"
	"go.vrtcore.dev/vrt/scoring"
	"go.vrtcore.dev/vrt/store"
	"go.vrtcore.dev/vrt/types"
)

// ConfigError is the typed "schema-invalid config" variant from spec.md
// §4.9: it carries every failing path so a caller can report them all at
// once instead of forcing a fix-one-rerun-repeat loop.
type ConfigError struct {
	Paths []string
}

func (e *ConfigError) Error() string {
	if len(e.Paths) == 1 {
		return skerr.Fmt("invalid config: %s", e.Paths[0]).Error()
	}
	msg := "invalid config:"
	for _, p := range e.Paths {
		msg += "\n  - " + p
	}
	return msg
}

// EnginesConfig is the JSON-facing shape of engines.Config: DiffColor is a
// hex string here since color.NRGBA has no natural JSON encoding, resolved
// via Resolve.
type EnginesConfig struct {
	PixelmatchThreshold float64 `json:"pixelmatch_threshold,omitempty" optional:"true" validate:"omitempty,gte=0,lte=1"`
	IncludeAntiAliasing bool    `json:"include_anti_aliasing,omitempty"`
	Alpha               float64 `json:"alpha,omitempty" optional:"true" validate:"omitempty,gte=0,lte=1"`
	DiffColor           string  `json:"diff_color,omitempty" optional:"true" validate:"omitempty,hexcolor"`
	SSIMDownscaleAbove  int     `json:"ssim_downscale_above,omitempty" optional:"true" validate:"omitempty,gt=0"`
	OdiffBinaryOverride string  `json:"odiff_binary_override,omitempty" optional:"true"`
}

// Resolve overlays ec onto engines.DefaultConfig(), falling back to
// fallbackDiffColorHex (VRTConfig's top-level diff_color) when ec itself
// doesn't set one.
func (ec EnginesConfig) Resolve(fallbackDiffColorHex string) (engines.Config, error) {
	cfg := engines.DefaultConfig()
	if ec.PixelmatchThreshold != 0 {
		cfg.PixelmatchThreshold = ec.PixelmatchThreshold
	}
	cfg.IncludeAA = ec.IncludeAntiAliasing
	if ec.Alpha != 0 {
		cfg.Alpha = ec.Alpha
	}
	hex := ec.DiffColor
	if hex == "" {
		hex = fallbackDiffColorHex
	}
	if hex != "" {
		c, err := imageproc.ParseHexColor(hex)
		if err != nil {
			return cfg, skerr.Wrapf(err, "engines.diff_color")
		}
		cfg.DiffColor = c
	}
	if ec.SSIMDownscaleAbove != 0 {
		cfg.SSIMDownscaleAbove = ec.SSIMDownscaleAbove
	}
	cfg.OdiffBinaryOverride = ec.OdiffBinaryOverride
	return cfg, nil
}

// AIConfig configures the optional vision-triage pass, per spec.md §6.
type AIConfig struct {
	Enabled   bool             `json:"enabled,omitempty"`
	Endpoint  string           `json:"endpoint,omitempty" optional:"true" validate:"omitempty,url"`
	APIKeyEnv string           `json:"api_key_env,omitempty" optional:"true"`
	Model     string           `json:"model,omitempty" optional:"true"`
	Prompt    string           `json:"prompt,omitempty" optional:"true"`
	Timeout   vconfig.Duration `json:"timeout,omitempty" optional:"true"`
}

// TimeoutOrDefault returns the caller-configured AI request timeout, or
// spec.md §4.8's 45s default when unset.
func (c AIConfig) TimeoutOrDefault() vconfig.Duration {
	if c.Timeout.Duration <= 0 {
		return vconfig.Duration{Duration: defaultAITimeout}
	}
	return c.Timeout
}

// BrowserVersionConfig names one side of a cross-compare pair.
type BrowserVersionConfig struct {
	Variant types.BrowserVariant `json:"variant" validate:"required,oneof=chromium webkit"`
	Version string               `json:"version,omitempty" optional:"true"`
}

// ToBrowserSpec converts to the runtime type cross-compare operates on.
func (b BrowserVersionConfig) ToBrowserSpec() types.BrowserSpec {
	return types.BrowserSpec{Variant: b.Variant, Version: b.Version}
}

// CrossComparePairConfig is one entry in cross_compare.pairs.
type CrossComparePairConfig struct {
	A BrowserVersionConfig `json:"a" validate:"required"`
	B BrowserVersionConfig `json:"b" validate:"required"`
}

// CrossCompareConfig configures the N-way cross-compare engine from
// spec.md §4.8.
type CrossCompareConfig struct {
	Pairs                []CrossComparePairConfig  `json:"pairs,omitempty" optional:"true" validate:"omitempty,dive"`
	SizeNormalization    types.SizeNormalization    `json:"size_normalization,omitempty" optional:"true" validate:"omitempty,oneof=pad crop resize"`
	SizeMismatchHandling types.SizeMismatchHandling `json:"size_mismatch_handling,omitempty" optional:"true" validate:"omitempty,oneof=strict ignore"`
}

// DomSnapshotConfig configures the optional DOM-diff capture side-channel,
// per spec.md §3/§6's `capture_snapshot?: {max_elements}`.
type DomSnapshotConfig struct {
	Enabled     bool `json:"enabled,omitempty"`
	MaxElements int  `json:"max_elements,omitempty" optional:"true" validate:"omitempty,gt=0"`
}

const (
	defaultConcurrency = 5
	defaultAITimeout   = 45_000_000_000 // 45s, in time.Duration nanoseconds
)

// VRTConfig is the root configuration document, per spec.md §9's VRTConfig
// type.
type VRTConfig struct {
	BaselineDir string `json:"baseline_dir" validate:"required"`
	OutputDir   string `json:"output_dir" validate:"required"`

	Browsers  []types.BrowserSpec `json:"browsers" validate:"required,min=1,dive"`
	Viewports []types.Viewport    `json:"viewports" validate:"required,min=1,dive"`

	// Threshold is the global pixel-sensitivity knob in [0,1], distinct
	// from DiffThreshold (the percentage-of-page tolerance).
	Threshold         float64 `json:"threshold" validate:"gte=0,lte=1"`
	DiffColor         string  `json:"diff_color,omitempty" optional:"true" validate:"omitempty,hexcolor"`
	DisableAnimations bool    `json:"disable_animations,omitempty"`
	DiffThreshold     float64 `json:"diff_threshold,omitempty" optional:"true" validate:"omitempty,gte=0,lte=1"`

	Concurrency int  `json:"concurrency" validate:"gte=1,lte=20"`
	QuickMode   bool `json:"quick_mode,omitempty"`

	Scenarios        []types.Scenario       `json:"scenarios" validate:"required,min=1,dive"`
	ScenarioDefaults types.ScenarioDefaults `json:"scenario_defaults,omitempty" optional:"true"`

	AI                   AIConfig                   `json:"ai,omitempty" optional:"true"`
	Engines              EnginesConfig              `json:"engines,omitempty" optional:"true"`
	CrossCompare         CrossCompareConfig         `json:"cross_compare,omitempty" optional:"true"`
	AutoThreshold        store.AutoThresholdOptions `json:"auto_threshold,omitempty" optional:"true"`
	ConfidenceThresholds scoring.Thresholds         `json:"confidence_thresholds,omitempty" optional:"true"`
	DomSnapshot          DomSnapshotConfig          `json:"dom_snapshot,omitempty" optional:"true"`

	KeepDiffOnMatch bool `json:"keep_diff_on_match,omitempty"`
}

// ConcurrencyOrDefault returns the configured worker concurrency, or
// spec.md §4.8's default of 5 when unset.
func (c VRTConfig) ConcurrencyOrDefault() int {
	if c.Concurrency <= 0 {
		return defaultConcurrency
	}
	return c.Concurrency
}

// ConfidenceThresholdsOrDefault resolves the configured verdict cut points,
// falling back to scoring.DefaultThresholds() field-by-field so a config
// that only overrides Pass still gets sensible values for the rest.
func (c VRTConfig) ConfidenceThresholdsOrDefault() scoring.Thresholds {
	d := scoring.DefaultThresholds()
	t := c.ConfidenceThresholds
	if t.Pass == 0 {
		t.Pass = d.Pass
	}
	if t.LikelyPass == 0 {
		t.LikelyPass = d.LikelyPass
	}
	if t.NeedsReview == 0 {
		t.NeedsReview = d.NeedsReview
	}
	if t.LikelyFail == 0 {
		t.LikelyFail = d.LikelyFail
	}
	return t
}

// AutoThresholdOrDefault resolves the auto-threshold percentile/sample-size
// pair, falling back to store.DefaultAutoThresholdOptions() field-by-field.
func (c VRTConfig) AutoThresholdOrDefault() store.AutoThresholdOptions {
	d := store.DefaultAutoThresholdOptions()
	o := c.AutoThreshold
	if o.Percentile == 0 {
		o.Percentile = d.Percentile
	}
	if o.MinSampleSize == 0 {
		o.MinSampleSize = d.MinSampleSize
	}
	return o
}

var validate = validator.New()

// Load reads, decodes, and validates the JSON5 document at path.
func Load(path string) (*VRTConfig, error) {
	var cfg VRTConfig
	if err := decodeJSON5(path, &cfg); err != nil {
		return nil, err
	}

	var paths []string
	if err := checkRequired(reflect.ValueOf(&cfg).Elem(), ""); err != nil {
		paths = append(paths, err.(*ConfigError).Paths...)
	}
	if err := validate.Struct(&cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				paths = append(paths, fe.Namespace()+": "+fe.Tag())
			}
		} else {
			paths = append(paths, err.Error())
		}
	}
	if len(paths) > 0 {
		return nil, &ConfigError{Paths: paths}
	}
	return &cfg, nil
}

func decodeJSON5(path string, dst interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return skerr.Wrapf(err, "opening config %s", path)
	}
	defer f.Close()
	dec := json5.NewDecoder(f)
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return skerr.Fmt("config %s is empty", path)
		}
		return skerr.Wrapf(err, "decoding config %s", path)
	}
	return nil
}

// checkRequired walks rValue's fields, recursing into nested structs
// unconditionally and skipping bools, fields with no json tag, and fields
// tagged optional:"true" — any other field left at its zero value is
// reported at its dotted json path.
func checkRequired(rValue reflect.Value, prefix string) error {
	rType := rValue.Type()
	var paths []string
	for i := 0; i < rValue.NumField(); i++ {
		field := rType.Field(i)
		jsonTag := jsonName(field)

		if field.Type.Kind() == reflect.Struct {
			childPrefix := prefix + jsonTag + "."
			if jsonTag == "" {
				childPrefix = prefix
			}
			if err := checkRequired(rValue.Field(i), childPrefix); err != nil {
				paths = append(paths, err.(*ConfigError).Paths...)
			}
			continue
		}
		if field.Type.Kind() == reflect.Bool {
			continue
		}
		if jsonTag == "" {
			continue
		}
		if field.Tag.Get("optional") == "true" {
			continue
		}
		if rValue.Field(i).IsZero() {
			paths = append(paths, prefix+jsonTag+": required")
		}
	}
	if len(paths) > 0 {
		return &ConfigError{Paths: paths}
	}
	return nil
}

func jsonName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return ""
	}
	name := tag
	for i, c := range tag {
		if c == ',' {
			name = tag[:i]
			break
		}
	}
	return name
}

// MarshalIndent is a small convenience used by callers (e.g. vrtctl init)
// that write out a starter config.
func MarshalIndent(cfg *VRTConfig) ([]byte, error) {
	return json.MarshalIndent(cfg, "", "  ")
}
