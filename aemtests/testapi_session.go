package aemtests

import (
	"github.com/adobe/aem-test-harness/config"
	"github.com/adobe/aem-test-harness/framework/browser"
	"github.com/adobe/aem-test-harness/framework/ldtest"
)

// newPage opens a browser session for the current attempt of the current test. The session is
// closed when the test ends, and the files it produced are attached to the test.
func newPage(t *ldtest.T) browser.Page {
	t.Helper()
	c := requireContext(t)
	session, err := c.harness.Sessions().NewSession(browser.SessionOptions{
		OutputDir:     c.config.TestOutputDir(t.ID(), t.Attempt()),
		Trace:         config.TraceOnAttempt(t.Attempt()),
		ActionTimeout: c.actionTimeout,
		ExpectTimeout: c.expectTimeout,
		Logger:        t.DebugLogger(),
	})
	if err != nil {
		t.Error(&StepError{Name: "open browser session", Kind: browser.KindOf(err), Err: err})
		t.FailNow()
	}
	t.Defer(func() {
		if err := session.Close(t.Failed(), t.Attach); err != nil {
			t.Debug("error closing browser session: %s", err)
		}
	})
	return session
}
