// Package framework contains the low-level implementation of test harness infrastructure
// that is independent of the system under test. The base package contains shared types
// such as Logger; other components are in the subpackages browser, harness and ldtest.
//
// The general model is:
//
// 1. The harness resolves where the target system lives and checks, before any test runs,
// whether it answers at all. An unreachable target does not stop the run.
//
// 2. Each browser-driven test case gets its own isolated browser session, which records
// video, optional traces and console output for the report.
//
// 3. There is a general notion of a test scope which is similar to Go's testing.T,
// allowing pieces of test logic to be associated with a test identifier and to accumulate
// success/failure results.
//
// The domain-specific code that knows what is being tested is responsible for deciding
// which pages to visit and what to expect on them.
package framework
