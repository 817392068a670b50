// Package harness connects the test framework to the system under test: it checks that the
// target answers before the run and hands out browser sessions for test cases to drive it with.
package harness
