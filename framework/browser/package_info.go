// Package browser drives a real browser through Playwright. Each test case gets its own Session,
// backed by a fresh browser context that records a video and, optionally, a trace. Failures are
// returned as *ActionError values whose Kind says whether the target was unreachable, showed the
// wrong state, or no longer matched the expected markup.
package browser
