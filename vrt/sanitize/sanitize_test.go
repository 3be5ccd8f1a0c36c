package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.vrtcore.dev/internal/testutils"
	"go.vrtcore.dev/vrt/types"
)

func TestName(t *testing.T) {
	testutils.SmallTest(t)

	cases := []struct {
		in, want string
	}{
		{"homepage", "homepage"},
		{"login / signup", "login-signup"},
		{`weird\path`, "weird-path"},
		{"a:b<c>d\"e|f?g*h", "a_b_c_d_e_f_g_h"},
		{"double  space", "double_space"},
		{"--leading-trailing__", "leading-trailing"},
		{"a---b___c", "a-b_c"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Name(c.in), "input %q", c.in)
	}
}

func TestNameIdempotent(t *testing.T) {
	testutils.SmallTest(t)

	inputs := []string{"homepage", "login / signup", `weird\path`, "a:b<c>d", "  spaced  "}
	for _, in := range inputs {
		once := Name(in)
		twice := Name(once)
		assert.Equal(t, once, twice, "Name should be idempotent for %q", in)
	}
}

func TestFilenameAndParseRoundTrip(t *testing.T) {
	testutils.SmallTest(t)

	task := types.ScreenshotTask{
		Scenario: types.Scenario{Name: "homepage"},
		Browser:  types.BrowserSpec{Variant: types.BrowserChromium, Version: "120"},
		Viewport: types.Viewport{Name: "desktop", Width: 1280, Height: 800},
	}
	filename := Filename(task)
	assert.Equal(t, "homepage_chromium-v120_desktop.png", filename)

	parsed, err := Parse(filename)
	require.NoError(t, err)
	assert.Equal(t, "homepage", parsed.Scenario)
	assert.Equal(t, types.BrowserChromium, parsed.Browser)
	assert.Equal(t, "120", parsed.Version)
	assert.Equal(t, "desktop", parsed.Viewport)
}

func TestFilenameNoVersionRoundTrip(t *testing.T) {
	testutils.SmallTest(t)

	task := types.ScreenshotTask{
		Scenario: types.Scenario{Name: "login_page"},
		Browser:  types.BrowserSpec{Variant: types.BrowserWebkit},
		Viewport: types.Viewport{Name: "mobile", Width: 375, Height: 667},
	}
	filename := Filename(task)
	assert.Equal(t, "login_page_webkit_mobile.png", filename)

	parsed, err := Parse(filename)
	require.NoError(t, err)
	assert.Equal(t, "login_page", parsed.Scenario)
	assert.Equal(t, types.BrowserWebkit, parsed.Browser)
	assert.Equal(t, "", parsed.Version)
	assert.Equal(t, "mobile", parsed.Viewport)
}

func TestSnapshotFilename(t *testing.T) {
	testutils.SmallTest(t)
	assert.Equal(t, "homepage_chromium_desktop.snapshot.json", SnapshotFilename("homepage_chromium_desktop.png"))
}

func TestParseRejectsMalformed(t *testing.T) {
	testutils.SmallTest(t)

	cases := []string{
		"just_one.png",
		"chromium_desktop_extra.png",    // browser segment at the very start
		"homepage_extra_chromium.png",   // browser segment at the very end
		"homepage_firefox_desktop.png",  // unrecognized browser
	}
	for _, in := range cases {
		_, err := Parse(in)
		assert.Error(t, err, "expected Parse(%q) to fail", in)
	}
}
