// Package sanitize implements the screenshot filename schema from spec.md §3
// and §6: building a sanitized, parseable filename from a scenario/browser/
// viewport triple, and parsing one back out.
package sanitize

import (
	"regexp"
	"strings"

	"go.vrtcore.dev/internal/skerr"
	"go.vrtcore.dev/vrt/types"
)

var (
	pathSeparators = strings.NewReplacer(`/`, "-", `\`, "-")
	illegalChars   = regexp.MustCompile(`[<>:"|?*]`)
	whitespace     = regexp.MustCompile(`\s+`)
	runsOfDash     = regexp.MustCompile(`-+`)
	runsOfUnderscore = regexp.MustCompile(`_+`)

	versionPattern = `\d+(?:\.\d+)*`
	// browserSegment matches "chromium" or "webkit", optionally "-v<version>".
	browserSegment = regexp.MustCompile(`^(chromium|webkit)(?:-v(` + versionPattern + `))?$`)
)

// Name sanitizes an arbitrary scenario name into the form used in
// filenames: path separators become "-", a closed set of illegal characters
// become "_", whitespace becomes "_", and runs of "-" or "_" collapse to a
// single character, with leading/trailing instances of either trimmed.
//
// Name is idempotent: Name(Name(x)) == Name(x).
func Name(raw string) string {
	s := pathSeparators.Replace(raw)
	s = illegalChars.ReplaceAllString(s, "_")
	s = whitespace.ReplaceAllString(s, "_")
	s = runsOfDash.ReplaceAllString(s, "-")
	s = runsOfUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "-_")
	return s
}

// Filename builds "<sanitized_scenario>_<browser>[-v<version>]_<viewport>.png"
// for the given task.
func Filename(task types.ScreenshotTask) string {
	scenario := Name(task.Scenario.Name)
	browser := task.Browser.DisplayKey()
	viewport := Name(task.Viewport.Name)
	return scenario + "_" + browser + "_" + viewport + ".png"
}

// SnapshotFilename returns the DOM-snapshot sidecar filename for a screenshot
// filename, per spec.md §6 ("same base with .snapshot.json").
func SnapshotFilename(screenshotFilename string) string {
	base := strings.TrimSuffix(screenshotFilename, ".png")
	return base + ".snapshot.json"
}

// ParsedFilename is the result of reversing Filename.
type ParsedFilename struct {
	Scenario string
	Browser  types.BrowserVariant
	Version  string
	Viewport string
}

// Parse reverses Filename: it splits on "_", identifies the browser segment
// (chromium|webkit, optionally "-v<version>"), treats everything before it as
// the sanitized scenario name and everything after (with ".png" stripped) as
// the viewport name.
//
// Parse(Filename(t)) reconstructs (t.Scenario.Name sanitized, t.Browser,
// t.Viewport.Name sanitized) for any task whose names contain no characters
// Name() would alter.
func Parse(filename string) (ParsedFilename, error) {
	base := strings.TrimSuffix(filename, ".png")
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return ParsedFilename{}, skerr.Fmt("filename %q does not have enough _-delimited segments", filename)
	}

	browserIdx := -1
	var variant types.BrowserVariant
	var version string
	for i, p := range parts {
		if m := browserSegment.FindStringSubmatch(p); m != nil {
			browserIdx = i
			variant = types.BrowserVariant(m[1])
			version = m[2]
			break
		}
	}
	if browserIdx <= 0 || browserIdx >= len(parts)-1 {
		return ParsedFilename{}, skerr.Fmt("filename %q has no recognizable browser segment", filename)
	}

	scenario := strings.Join(parts[:browserIdx], "_")
	viewport := strings.Join(parts[browserIdx+1:], "_")
	return ParsedFilename{
		Scenario: scenario,
		Browser:  variant,
		Version:  version,
		Viewport: viewport,
	}, nil
}
