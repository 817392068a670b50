package harness

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adobe/aem-test-harness/framework"
	"github.com/adobe/aem-test-harness/framework/browser"
	"github.com/adobe/aem-test-harness/framework/opt"
)

// TestHarness is the main component that manages communication with the system under test.
//
// It checks once, on startup, whether the target answers at all, and it owns the source of
// browser sessions that test cases use to drive the target. An unreachable target is reported
// but does not stop the run, so that the test cases themselves produce the failure details.
//
// It contains no domain-specific test logic, but only provides a general mechanism for test suites
// to build on.
type TestHarness struct {
	targetURL  string
	targetInfo TargetInfo
	sessions   browser.Sessions
	logger     framework.Logger
}

// NewTestHarness creates a TestHarness instance and checks that the target URL answers, waiting
// at most targetTimeout for an answer. Requests go through proxy if it is defined.
func NewTestHarness(
	targetURL string,
	proxy opt.Maybe[string],
	targetTimeout time.Duration,
	sessions browser.Sessions,
	debugLogger framework.Logger,
	startupOutput io.Writer,
) *TestHarness {
	if debugLogger == nil {
		debugLogger = framework.NullLogger()
	}
	if startupOutput == nil {
		startupOutput = io.Discard
	}
	if sessions == nil {
		sessions = UnavailableSessions(errors.New("no browser was configured"))
	}
	h := &TestHarness{
		targetURL: targetURL,
		sessions:  sessions,
		logger:    debugLogger,
	}
	h.targetInfo = queryTargetInfo(targetURL, proxy, targetTimeout, startupOutput)
	if !h.targetInfo.Reachable {
		debugLogger.Printf("Target %s did not answer: %s", targetURL, h.targetInfo.Error)
	}
	return h
}

// TargetURL returns the URL that the tests run against.
func (h *TestHarness) TargetURL() string {
	return h.targetURL
}

// TargetInfo returns the result of the startup reachability check.
func (h *TestHarness) TargetInfo() TargetInfo {
	return h.targetInfo
}

// Sessions returns the source of browser sessions for test cases.
func (h *TestHarness) Sessions() browser.Sessions {
	return h.sessions
}

type unavailableSessions struct {
	err error
}

// UnavailableSessions returns a browser.Sessions whose NewSession always fails with the given
// error. It stands in for a browser that could not be started, so that each test case still runs
// and reports the problem.
func UnavailableSessions(err error) browser.Sessions {
	return unavailableSessions{err: err}
}

func (u unavailableSessions) NewSession(browser.SessionOptions) (browser.Session, error) {
	return nil, &browser.ActionError{Action: "start browser session", Kind: browser.KindConnectivity, Err: u.err}
}

func describeResponse(resp *http.Response) string {
	return fmt.Sprintf("HTTP %d from %s", resp.StatusCode, resp.Request.URL)
}
