package ldtest

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/adobe/aem-test-harness/framework"
	h "github.com/adobe/aem-test-harness/framework/helpers"
)

var consoleTestErrorColor = color.New(color.FgYellow)              //nolint:gochecknoglobals
var consoleTestFailedColor = color.New(color.FgRed)                //nolint:gochecknoglobals
var consoleTestRetryColor = color.New(color.FgMagenta)             //nolint:gochecknoglobals
var consoleTestSkippedColor = color.New(color.Faint, color.FgBlue) //nolint:gochecknoglobals
var consoleDebugOutputColor = color.New(color.Faint)               //nolint:gochecknoglobals
var allTestsPassedColor = color.New(color.FgGreen)                 //nolint:gochecknoglobals

// TestLogger receives status information about each test. Tests started with RunConcurrently
// report from several goroutines at once, so implementations must be safe for concurrent use.
type TestLogger interface {
	TestStarted(id TestID)
	TestError(id TestID, err error)
	TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput)
	TestSkipped(id TestID, reason string)
	// TestRetrying is called when a failed attempt is discarded and the test is about to be
	// run again. Errors reported before this call no longer count against the test.
	TestRetrying(id TestID, attempt int)
}

// ReportWriter is implemented by loggers that write a report file once all tests are done.
type ReportWriter interface {
	EndLog(results Results) error
}

type nullTestLogger struct{}

func (n nullTestLogger) TestStarted(TestID)                                        {}
func (n nullTestLogger) TestError(TestID, error)                                   {}
func (n nullTestLogger) TestFinished(TestID, TestResult, framework.CapturedOutput) {}
func (n nullTestLogger) TestSkipped(TestID, string)                                {}
func (n nullTestLogger) TestRetrying(TestID, int)                                  {}

// MultiTestLogger forwards every notification to each of its loggers in order.
type MultiTestLogger []TestLogger

func (m MultiTestLogger) TestStarted(id TestID) {
	for _, l := range m {
		l.TestStarted(id)
	}
}

func (m MultiTestLogger) TestError(id TestID, err error) {
	for _, l := range m {
		l.TestError(id, err)
	}
}

func (m MultiTestLogger) TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput) {
	for _, l := range m {
		l.TestFinished(id, result, debugOutput)
	}
}

func (m MultiTestLogger) TestSkipped(id TestID, reason string) {
	for _, l := range m {
		l.TestSkipped(id, reason)
	}
}

func (m MultiTestLogger) TestRetrying(id TestID, attempt int) {
	for _, l := range m {
		l.TestRetrying(id, attempt)
	}
}

// EndLog calls EndLog on every logger that is a ReportWriter. All of them are called even if
// one fails.
func (m MultiTestLogger) EndLog(results Results) error {
	var errs []error
	for _, l := range m {
		if w, ok := l.(ReportWriter); ok {
			if err := w.EndLog(results); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

type ConsoleTestLogger struct {
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
	// Out defaults to standard output.
	Out io.Writer

	lock sync.Mutex
}

func (c *ConsoleTestLogger) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *ConsoleTestLogger) TestStarted(id TestID) {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, _ = io.WriteString(c.out(), "["+id.String()+"]\n")
}

func (c *ConsoleTestLogger) TestError(id TestID, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, line := range strings.Split(err.Error(), "\n") {
		_, _ = consoleTestErrorColor.Fprintf(c.out(), "  [%s] %s\n", id, line)
	}
}

func (c *ConsoleTestLogger) TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput) {
	c.lock.Lock()
	defer c.lock.Unlock()
	failed := len(result.Errors) != 0
	switch {
	case failed && result.NonCritical:
		_, _ = consoleTestFailedColor.Fprintf(c.out(), "  FAILED (non-critical): %s (%s)\n", id, result.Explanation)
	case failed:
		_, _ = consoleTestFailedColor.Fprintf(c.out(), "  FAILED: %s\n", id)
	case result.Attempts > 1:
		_, _ = consoleTestRetryColor.Fprintf(c.out(), "  FLAKY: %s (passed on attempt %d)\n", id, result.Attempts)
	}
	if failed {
		for _, a := range result.Artifacts {
			_, _ = consoleDebugOutputColor.Fprintf(c.out(), "    %s: %s\n", a.Name, a.Path)
		}
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		_, _ = consoleDebugOutputColor.Fprintln(c.out(), debugOutput.ToString("    DEBUG "))
	}
}

func (c *ConsoleTestLogger) TestSkipped(id TestID, reason string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, _ = consoleTestSkippedColor.Fprintf(c.out(), "  SKIPPED: %s%s\n", id, h.IfElse(reason == "", "", " ("+reason+")"))
}

func (c *ConsoleTestLogger) TestRetrying(id TestID, attempt int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, _ = consoleTestRetryColor.Fprintf(c.out(), "  RETRYING: %s (retry %d)\n", id, attempt)
}

// PrintResults writes a summary of the run to out.
func PrintResults(out io.Writer, results Results) {
	if flaky := results.Flaky(); len(flaky) != 0 {
		_, _ = consoleTestRetryColor.Fprintf(out, "FLAKY TESTS (%d):\n", len(flaky))
		for _, f := range flaky {
			_, _ = consoleTestRetryColor.Fprintf(out, "  * %s\n", f.TestID)
		}
	}
	if len(results.NonCriticalFailures) != 0 {
		_, _ = consoleTestErrorColor.Fprintf(out, "NON-CRITICAL FAILURES (%d):\n", len(results.NonCriticalFailures))
		for _, f := range results.NonCriticalFailures {
			_, _ = consoleTestErrorColor.Fprintf(out, "  * %s (%s)\n", f.TestID, f.Explanation)
		}
	}
	if results.OK() {
		_, _ = allTestsPassedColor.Fprintln(out, "All tests passed")
	} else {
		_, _ = consoleTestFailedColor.Fprintf(out, "FAILED TESTS (%d):\n", len(results.Failures))
		for _, f := range results.Failures {
			_, _ = consoleTestFailedColor.Fprintf(out, "  * %s\n", f.TestID)
		}
	}
}
