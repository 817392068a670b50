package ldtest

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strings"
)

// ReportedError is a test failure together with the place in the test code where it was reported.
type ReportedError struct {
	Message string
	Frames  []Frame
	Err     error
}

func (e ReportedError) Error() string { return e.Message }

func (e ReportedError) Unwrap() error { return e.Err }

// Frame is one line of a ReportedError's call stack.
type Frame struct {
	Package  string
	Function string
	File     string
	Line     int
}

// String shows the frame with the module path left out, e.g. "aemtests.doLoginTest (author_login.go:92)".
func (f Frame) String() string {
	return fmt.Sprintf("%s.%s (%s:%d)", strings.TrimPrefix(f.Package, modulePath+"/"), f.Function, f.File, f.Line)
}

var (
	ldtestPackage = reflect.TypeOf((*T)(nil)).Elem().PkgPath()            //nolint:gochecknoglobals
	modulePath    = strings.TrimSuffix(ldtestPackage, "/framework/ldtest") //nolint:gochecknoglobals

	testifyTracePrefix = regexp.MustCompile(`^(?s:\s*Error Trace:.*\sError:\s*)`)
)

// transformError attaches frames to err, after removing the trace that testify's assert and
// require functions put in their messages. The original error stays reachable with errors.As
// unless testify's message had to be rewritten.
func transformError(err error, frames []Frame) error {
	message := err.Error()
	if strings.Contains(message, "Error Trace:") {
		message = strings.TrimSpace(testifyTracePrefix.ReplaceAllLiteralString(message, ""))
		err = errors.New(message)
	}
	if len(frames) == 0 {
		return err
	}
	return ReportedError{Message: message, Frames: frames, Err: err}
}

// callerFrames returns the stack of the calling goroutine up to the ldtest.Run call at its root.
// Frames inside ldtest itself are left out unless includeLDTest is set, and so are goroutine entry
// points and any function named in helperFns.
func callerFrames(includeLDTest bool, helperFns []string) []Frame {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs) // skip runtime.Callers and callerFrames
	iter := runtime.CallersFrames(pcs[:n])

	var ret []Frame
	for {
		rf, more := iter.Next()
		pkg, fn := splitFunctionName(rf.Function)
		switch {
		case pkg == ldtestPackage && fn == "Run":
			return ret
		case rf.Function == "":
		case pkg == "runtime" || strings.HasPrefix(pkg, "golang.org/x/sync/"):
		case pkg == ldtestPackage && !includeLDTest:
		case isHelper(rf.Function, helperFns):
		default:
			ret = append(ret, Frame{Package: pkg, Function: fn, File: fileName(rf.File), Line: rf.Line})
		}
		if !more {
			return ret
		}
	}
}

func isHelper(fullName string, helperFns []string) bool {
	for _, h := range helperFns {
		if h == fullName {
			return true
		}
	}
	return false
}

func fileName(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// splitFunctionName splits "example.com/a/pkg.(*T).run" into "example.com/a/pkg" and "(*T).run".
func splitFunctionName(fullName string) (string, string) {
	lastSlash := strings.LastIndex(fullName, "/")
	dot := strings.Index(fullName[lastSlash+1:], ".")
	if dot < 0 {
		return fullName, ""
	}
	return fullName[:lastSlash+1+dot], fullName[lastSlash+2+dot:]
}
