// Package sklog offers module-level logging functions backed by glog, the
// way golden's go/sklog package does. Unlike the teacher, this module has no
// Cloud Logging backend to fall back to (that integration lives entirely in
// the out-of-scope HTTP/server layer), so sklog here is glog plus file:line
// context, nothing more.
package sklog

import (
	"fmt"

	"github.com/golang/glog"
)

const (
	DEBUG   = "DEBUG"
	INFO    = "INFO"
	WARNING = "WARNING"
	ERROR   = "ERROR"
	ALERT   = "ALERT"
)

func Debug(msg ...interface{})                       { glog.InfoDepth(2, fmt.Sprint(msg...)) }
func Debugf(format string, v ...interface{})          { glog.InfoDepth(2, fmt.Sprintf(format, v...)) }
func Info(msg ...interface{})                         { glog.InfoDepth(2, fmt.Sprint(msg...)) }
func Infof(format string, v ...interface{})           { glog.InfoDepth(2, fmt.Sprintf(format, v...)) }
func Warning(msg ...interface{})                      { glog.WarningDepth(2, fmt.Sprint(msg...)) }
func Warningf(format string, v ...interface{})        { glog.WarningDepth(2, fmt.Sprintf(format, v...)) }
func Error(msg ...interface{})                        { glog.ErrorDepth(2, fmt.Sprint(msg...)) }
func Errorf(format string, v ...interface{})          { glog.ErrorDepth(2, fmt.Sprintf(format, v...)) }
func ErrorfWithDepth(depth int, format string, v ...interface{}) {
	glog.ErrorDepth(2+depth, fmt.Sprintf(format, v...))
}

// Fatalf logs at ERROR severity, flushes, and then panics, matching the teacher's
// sklog.Fatalf (it does not os.Exit, so defers still run and callers in
// tests can recover).
func Fatalf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	glog.ErrorDepth(2, msg)
	glog.Flush()
	panic(msg)
}

func Flush() { glog.Flush() }
