// Package aemtests contains the acceptance tests that are run against an AEM author instance.
//
// Each test opens its own browser session from the harness, so tests share nothing and can run
// in parallel. A test is a fixed sequence of steps; the first step that fails ends the test with
// a *StepError saying which step it was and what kind of problem it was.
package aemtests
