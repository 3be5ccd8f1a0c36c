// Package ctxutil holds small context.Context helpers shared across the
// domain packages, matching golden's go/ctxutil.
package ctxutil

import (
	"context"
	"time"

	"go.vrtcore.dev/internal/sklog"
	"go.vrtcore.dev/internal/skerr"
)

// ConfirmContextHasDeadline logs (with a stack trace) if ctx has no deadline.
// Useful for confirming every blocking capture/compare call has a timeout, per
// spec.md §5's local-timeout requirement.
func ConfirmContextHasDeadline(ctx context.Context) {
	if _, ok := ctx.Deadline(); !ok {
		stack := make([]string, 0, 4)
		for _, st := range skerr.CallStack(4, 2) {
			stack = append(stack, st.String())
		}
		sklog.Errorf("context is missing a deadline at %v", stack)
	}
}

// WithTimeout calls f with a context bound by timeout, cancelling it when f
// returns.
func WithTimeout(ctx context.Context, timeout time.Duration, f func(ctx context.Context)) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	f(tctx)
}

// Aborted reports whether ctx was cancelled, which the capture orchestrator
// and comparator use to distinguish a user-requested abort from any other
// context error.
func Aborted(ctx context.Context) bool {
	return ctx.Err() == context.Canceled
}
