// Package testutils marks tests by cost, the way golden's go/testutils does,
// so `go test -short` (see SmallTest) keeps the fast unit tests fast.
package testutils

import "testing"

// SmallTest marks t as a fast, parallel-safe unit test.
func SmallTest(t *testing.T) {
	t.Helper()
	t.Parallel()
}

// MediumTest marks t as a test that does real (but local-only) I/O, e.g.
// writing to a temp directory.
func MediumTest(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping medium test in -short mode")
	}
	t.Parallel()
}
