// Package internal contains test helpers for ldtest.
package internal

// RunAction calls action. It lives outside ldtest so that tests can see a non-ldtest frame in a stack.
func RunAction(action func()) {
	action()
}
