// Package skerr provides annotated errors that carry the call site at which
// they were created or wrapped, so a logged error shows where it actually
// came from instead of just where it was finally printed.
package skerr

import (
	"fmt"
	"runtime"
	"strings"
)

// StackTrace is a single frame of a captured call stack.
type StackTrace struct {
	File string
	Line int
}

func (st StackTrace) String() string {
	return fmt.Sprintf("%s:%d", st.File, st.Line)
}

// CallStack returns up to height frames, starting startAt levels above the
// caller of CallStack (1 means the immediate caller).
func CallStack(height, startAt int) []StackTrace {
	stack := make([]StackTrace, 0, height)
	for i := 0; i < height; i++ {
		_, file, line, ok := runtime.Caller(startAt + i)
		if !ok {
			break
		}
		if slash := strings.LastIndex(file, "/"); slash >= 0 {
			file = file[slash+1:]
		}
		stack = append(stack, StackTrace{File: file, Line: line})
	}
	return stack
}

// skError is an error annotated with the call site that created it and,
// optionally, a wrapped cause.
type skError struct {
	msg   string
	cause error
	at    StackTrace
}

func (e *skError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	if e.msg == "" {
		return e.cause.Error()
	}
	return fmt.Sprintf("%s: %s", e.msg, e.cause.Error())
}

func (e *skError) Unwrap() error {
	return e.cause
}

// Format supports %+v to print the call site alongside the message.
func (e *skError) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('+') {
		_, _ = fmt.Fprintf(f, "%s (at %s)", e.Error(), e.at)
		return
	}
	_, _ = fmt.Fprint(f, e.Error())
}

func callSite() StackTrace {
	frames := CallStack(1, 3)
	if len(frames) == 0 {
		return StackTrace{File: "???", Line: 0}
	}
	return frames[0]
}

// Fmt formats a new error the same way fmt.Errorf does, annotated with the
// call site of Fmt itself.
func Fmt(format string, args ...interface{}) error {
	return &skError{msg: fmt.Sprintf(format, args...), at: callSite()}
}

// Wrap annotates err with the call site of Wrap. Returns nil if err is nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &skError{msg: "", cause: err, at: callSite()}
}

// Wrapf annotates err with a message and the call site of Wrapf. Returns nil
// if err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &skError{msg: fmt.Sprintf(format, args...), cause: err, at: callSite()}
}
