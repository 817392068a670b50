package ldtest

import (
	"fmt"
	"regexp"
	"strings"
)

type Results struct {
	Tests               []TestResult
	Failures            []TestResult
	NonCriticalFailures []TestResult
}

type TestResult struct {
	TestID      TestID
	Errors      []error
	NonCritical bool
	Explanation string

	// Attempts is the number of times the test was run. It is greater than 1 only for tests that
	// were started with RunWithRetries and failed at least once.
	Attempts int

	Artifacts []Artifact
}

// Artifact is a file produced while running a test, such as a video or a screenshot.
type Artifact struct {
	Name string
	Path string
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Flaky returns the tests that passed only after being retried.
func (r Results) Flaky() []TestResult {
	var ret []TestResult
	for _, t := range r.Tests {
		if t.Attempts > 1 && len(t.Errors) == 0 {
			ret = append(ret, t)
		}
	}
	return ret
}

type TestID []string

func (t TestID) String() string {
	return strings.Join(t, "/")
}

func (t TestID) Plus(name string) TestID {
	return append(append(TestID(nil), t...), name)
}

var slugUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slug returns a form of the test ID that is safe to use as a file or directory name. Distinct
// test IDs made of ordinary words produce distinct slugs.
func (t TestID) Slug() string {
	parts := make([]string, 0, len(t))
	for _, p := range t {
		s := strings.Trim(slugUnsafeChars.ReplaceAllString(strings.ToLower(p), "-"), "-")
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "root"
	}
	return strings.Join(parts, "--")
}

type TestFailure struct {
	ID  TestID
	Err error
}

func (f TestFailure) Error() string {
	return fmt.Sprintf("[%s]: %s", f.ID, f.Err)
}
