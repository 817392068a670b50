// Package config resolves the harness settings from environment variables. Every variable has
// a fallback, so a Config can always be built even with an empty environment.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/spf13/viper"

	"github.com/adobe/aem-test-harness/framework/helpers"
	"github.com/adobe/aem-test-harness/framework/ldtest"
	"github.com/adobe/aem-test-harness/framework/opt"
)

// Environment variable names.
const (
	EnvReportsPath     = "REPORTS_PATH"
	EnvAuthorURL       = "AEM_AUTHOR_URL"
	EnvAuthorUsername  = "AEM_AUTHOR_USERNAME"
	EnvAuthorPassword  = "AEM_AUTHOR_PASSWORD"
	EnvPublishURL      = "AEM_PUBLISH_URL"
	EnvPublishUsername = "AEM_PUBLISH_USERNAME"
	EnvPublishPassword = "AEM_PUBLISH_PASSWORD"
	EnvHTTPProxy       = "HTTP_PROXY"
	EnvCI              = "CI"
)

// Fallback values. The credentials are placeholders that no real instance accepts.
const (
	DefaultReportsPath = "/var/task/results"
	DefaultURL         = "http://localhost"
	DefaultUsername    = "username"
	DefaultPassword    = "password"
)

// Endpoint is one AEM service the harness can talk to.
type Endpoint struct {
	URL      string
	Username string
	Password string
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s (user %q)", e.URL, e.Username)
}

// Config is resolved once at startup and not changed afterward.
type Config struct {
	ReportsPath string
	Author      Endpoint
	// Publish is resolved for completeness; no test uses it yet.
	Publish Endpoint
	Proxy   opt.Maybe[string]
	CI      bool
}

// FromEnvironment reads the configuration from the process environment. An empty variable counts
// as unset. Values are not validated or trimmed.
func FromEnvironment() *Config {
	v := viper.New()
	v.SetDefault(EnvReportsPath, DefaultReportsPath)
	v.SetDefault(EnvAuthorURL, DefaultURL)
	v.SetDefault(EnvAuthorUsername, DefaultUsername)
	v.SetDefault(EnvAuthorPassword, DefaultPassword)
	v.SetDefault(EnvPublishURL, DefaultURL)
	v.SetDefault(EnvPublishUsername, DefaultUsername)
	v.SetDefault(EnvPublishPassword, DefaultPassword)
	v.AutomaticEnv()

	return &Config{
		ReportsPath: v.GetString(EnvReportsPath),
		Author: Endpoint{
			URL:      v.GetString(EnvAuthorURL),
			Username: v.GetString(EnvAuthorUsername),
			Password: v.GetString(EnvAuthorPassword),
		},
		Publish: Endpoint{
			URL:      v.GetString(EnvPublishURL),
			Username: v.GetString(EnvPublishUsername),
			Password: v.GetString(EnvPublishPassword),
		},
		Proxy: opt.NonEmpty(v.GetString(EnvHTTPProxy)),
		CI:    v.GetString(EnvCI) != "",
	}
}

// JUnitPath is where the JUnit XML report is written.
func (c *Config) JUnitPath() string {
	return filepath.Join(c.ReportsPath, "result.xml")
}

// HTMLReportDir is where the HTML report bundle is written.
func (c *Config) HTMLReportDir() string {
	return filepath.Join(c.ReportsPath, "html")
}

// OutputDir is the parent of all per-test output directories.
func (c *Config) OutputDir() string {
	return filepath.Join(c.ReportsPath, "output")
}

// TestOutputDir returns the directory for one attempt of one test. Retries get their own
// directory so that they never overwrite the artifacts of the first attempt.
func (c *Config) TestOutputDir(id ldtest.TestID, attempt int) string {
	name := id.Slug()
	if attempt > 0 {
		name += "-retry" + strconv.Itoa(attempt)
	}
	return filepath.Join(c.OutputDir(), name)
}

// RunnerSettings controls how tests are scheduled.
type RunnerSettings struct {
	Workers int
	Retries int
}

// DefaultRunnerSettings returns the scheduling used when no flags override it: in CI, one worker
// and two retries; otherwise one worker per two CPUs and no retries.
func (c *Config) DefaultRunnerSettings() RunnerSettings {
	if c.CI {
		return RunnerSettings{Workers: 1, Retries: 2}
	}
	return RunnerSettings{Workers: max(1, runtime.NumCPU()/2), Retries: 0}
}

// TraceOnAttempt reports whether a browser trace is recorded for the given attempt. Traces are
// only kept for the first retry.
func TraceOnAttempt(attempt int) bool {
	return attempt == 1
}

// Properties describes the configuration for reports. Passwords are left out.
func (c *Config) Properties() []ldtest.ReportProperty {
	return []ldtest.ReportProperty{
		{Name: "config.reportsPath", Value: c.ReportsPath},
		{Name: "config.author", Value: c.Author.String()},
		{Name: "config.publish", Value: c.Publish.String()},
		{Name: "config.proxy", Value: helpers.RedactProxy(c.Proxy)},
		{Name: "config.ci", Value: strconv.FormatBool(c.CI)},
	}
}
