package ldtest

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/adobe/aem-test-harness/framework"
	h "github.com/adobe/aem-test-harness/framework/helpers"
)

type environment struct {
	config  TestConfiguration
	results Results
	lock    sync.Mutex
}

func (e *environment) record(result TestResult, failed bool) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if failed {
		if result.NonCritical {
			e.results.NonCriticalFailures = append(e.results.NonCriticalFailures, result)
		} else {
			e.results.Failures = append(e.results.Failures, result)
		}
	}
	e.results.Tests = append(e.results.Tests, result)
}

// T represents a test scope. It is very similar to Go's testing.T type.
type T struct {
	env         *environment
	id          TestID
	attempt     int
	debugLogger framework.CapturingLogger
	nonCritical string
	failed      bool
	skipped     bool
	skipReason  string
	cleanups    []func()
	errors      []error
	artifacts   []Artifact
	helperFns   []string
}

// TestConfiguration contains options for the entire test run.
type TestConfiguration struct {
	// Filter is an optional function for determining which tests to run based on their names.
	Filter Filter

	// TestLogger receives status information about each test.
	TestLogger TestLogger

	// Context is an optional value of any type defined by the application which can be accessed from tests.
	Context interface{}
}

// Subtest is one entry in a set of tests passed to RunConcurrently.
type Subtest struct {
	Name    string
	Retries int
	Action  func(*T)
}

// Run starts a top-level test scope.
func Run(
	config TestConfiguration,
	action func(*T),
) Results {
	if config.TestLogger == nil {
		config.TestLogger = nullTestLogger{}
	}
	env := &environment{
		config: config,
	}
	t := &T{env: env}
	result := t.run(action)
	env.record(result, t.failed)
	return env.results
}

func (t *T) run(action func(*T)) (result TestResult) {
	result.TestID = t.id
	result.Attempts = t.attempt + 1
	defer func() {
		if r := recover(); r != nil {
			if t.skipped {
				t.runCleanups()
				return
			}
			t.failed = true
			var addError error
			if _, ok := r.(*T); ok {
				if len(t.errors) == 0 {
					addError = errors.New("test failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				t.errors = append(t.errors, addError)
				t.env.config.TestLogger.TestError(t.id, addError)
			}
		}
		// cleanups can still attach artifacts, so they run before the result is built
		t.runCleanups()
		result.Errors = h.CopyOf(t.errors)
		result.Artifacts = h.CopyOf(t.artifacts)
		if t.failed && t.nonCritical != "" {
			result.NonCritical = true
			result.Explanation = t.nonCritical
		}
	}()

	action(t)
	return result
}

func (t *T) runCleanups() {
	for i := len(t.cleanups) - 1; i >= 0; i-- {
		t.cleanups[i]()
	}
	t.cleanups = nil
}

// ID returns the full name of the current test.
func (t *T) ID() TestID {
	return t.id
}

// Failed reports whether the test has failed so far.
func (t *T) Failed() bool {
	return t.failed
}

// Attempt returns zero on a test's first run, one on its first retry, and so on.
func (t *T) Attempt() int {
	return t.attempt
}

// Run runs a subtest in its own scope.
//
// This is equivalent to Go's testing.T.Run.
func (t *T) Run(name string, action func(*T)) {
	t.RunWithRetries(name, 0, action)
}

// RunWithRetries is like Run, except that if the subtest fails it is run again, up to the
// specified number of extra times, until it passes. Only the outcome of the last attempt is
// recorded in the results, but the artifacts of the failed attempts are kept in front of its own,
// named "<name> (attempt N)". Subtests started inside a retried test are recorded for every attempt.
func (t *T) RunWithRetries(name string, retries int, action func(*T)) {
	id := t.id.Plus(name)
	logger := t.env.config.TestLogger

	logger.TestStarted(id)
	if t.env.config.Filter != nil && !t.env.config.Filter.Match(id) {
		logger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	var earlier []Artifact
	for attempt := 0; ; attempt++ {
		c1 := &T{
			id:      id,
			env:     t.env,
			attempt: attempt,
		}
		t.debugLogger.AddChildLogger(&c1.debugLogger) // see comments on t.DebugLogger()
		result := c1.run(action)
		t.debugLogger.RemoveChildLogger(&c1.debugLogger)

		if c1.skipped {
			logger.TestSkipped(id, c1.skipReason)
			return
		}
		if c1.failed && attempt < retries {
			for _, a := range result.Artifacts {
				earlier = append(earlier, Artifact{Name: fmt.Sprintf("%s (attempt %d)", a.Name, attempt+1), Path: a.Path})
			}
			logger.TestRetrying(id, attempt+1)
			continue
		}
		if len(earlier) != 0 {
			result.Artifacts = append(earlier, result.Artifacts...)
		}
		t.env.record(result, c1.failed)
		logger.TestFinished(id, result, c1.debugLogger.Output())
		return
	}
}

// RunConcurrently runs each of the subtests as in RunWithRetries, using at most the specified
// number of goroutines at a time. It returns when all of them have finished. A failure in one
// subtest has no effect on the others.
func (t *T) RunConcurrently(workers int, subtests []Subtest) {
	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, s := range subtests {
		g.Go(func() error {
			t.RunWithRetries(s.Name, s.Retries, s.Action)
			return nil
		})
	}
	_ = g.Wait()
}

// NonCritical indicates that if this test fails, we would like to know about it but we're willing to
// live with it. It will be shown in the output as a non-critical failure, accompanied by the
// explanation that is specified here. Non-critical failures do not cause the harness to return
// a non-zero exit code on termination, as regular failures do.
func (t *T) NonCritical(explanation string) {
	t.nonCritical = explanation
}

// Errorf reports a test failure. It is equivalent to Go's testing.T.Errorf. It does not cause the test
// to terminate, but adds the failure message to the output and marks the test as failed.
//
// This is part of this type's implementation of the base interfaces testing.T and assert.TestingT,
// allowing it to be called from assertion helpers.
func (t *T) Errorf(format string, args ...interface{}) {
	t.Error(fmt.Errorf(format, args...))
}

// Error is like Errorf, but keeps the original error value, so that loggers and callers can
// still inspect it with errors.As.
func (t *T) Error(err error) {
	t.failed = true
	err = transformError(err, callerFrames(false, t.helperFns))
	t.errors = append(t.errors, err)
	t.env.config.TestLogger.TestError(t.id, err)
}

// FailNow causes the test to immediately terminate and be marked as failed.
func (t *T) FailNow() {
	panic(t)
}

// Skip causes the test to immediately terminate and be marked as skipped.
func (t *T) Skip() {
	t.skipped = true
	panic(t)
}

// SkipWithReason is equivalent to Skip but provides a message.
func (t *T) SkipWithReason(reason string) {
	t.skipReason = reason
	t.Skip()
}

// Debug writes a message to the output for this test scope.
func (t *T) Debug(message string, args ...interface{}) {
	t.debugLogger.Printf(message, args...)
}

// DebugLogger returns a Logger instance for writing output for this test scope. It is safe to
// use from other goroutines, such as browser event callbacks.
//
// The output that is captured for a test will be passed to TestLogger.TestFinished at the end of
// the test. The test runner can choose whether to display this or not based on command-line options.
//
// When a test has subtests (created with t.Run), the logger for a subtest starts out with a copy of
// any output that was already logged for the parent test. During the lifetime of the subtest, any
// further output that is sent to the parent test's logger will go to the child test's logger
// instead.
func (t *T) DebugLogger() framework.Logger {
	return &t.debugLogger
}

// Attach records a file produced by this test, such as a screenshot. Attached files are listed
// in the test's result and shown by the report loggers.
func (t *T) Attach(name, path string) {
	t.artifacts = append(t.artifacts, Artifact{Name: name, Path: path})
	t.Debug("attached %s: %s", name, path)
}

// Defer schedules a cleanup function which is guaranteed to be called when this test scope
// exits for any reason. Unlike a Go defer statement, Defer can be used from within helper
// functions.
func (t *T) Defer(cleanupFn func()) {
	t.cleanups = append(t.cleanups, cleanupFn)
}

// Context returns the application-defined context value, if any, that was specified in the
// TestConfiguration.
func (t *T) Context() interface{} {
	return t.env.config.Context
}

// Helper marks the function that calls it as a test helper that shouldn't appear in stacktraces.
// Equivalent to Go's testing.T.Helper().
func (t *T) Helper() {
	pc, _, _, ok := runtime.Caller(1) // 0 is Helper() itself, 1 is who called it
	if !ok {
		return
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return
	}
	t.helperFns = append(t.helperFns, f.Name())
}
