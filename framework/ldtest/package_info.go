// Package ldtest contains a test runner framework that is similar to Go's testing package,
// but is run as regular Go application code rather than Go tests. It adds retries, bounded
// parallelism, artifacts and console, JUnit and HTML result reporting.
package ldtest
