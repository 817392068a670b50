package main

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/adobe/aem-test-harness/aemtests"
	"github.com/adobe/aem-test-harness/config"
	"github.com/adobe/aem-test-harness/framework/browser"
	"github.com/adobe/aem-test-harness/framework/ldtest"
)

const defaultTargetTimeout = time.Second * 10

type commandParams struct {
	filters        ldtest.RegexFilters
	workers        int
	retries        int
	headless       bool
	browser        string
	actionTimeout  time.Duration
	expectTimeout  time.Duration
	targetTimeout  time.Duration
	assetTimeout   time.Duration
	jUnitFile      string
	htmlDir        string
	debug          bool
	debugAll       bool
	recordFailures string
	skipFile       string
	contractFile   string
}

// addFlags registers the run flags. The worker and retry defaults depend on whether we are in CI,
// and the report locations default to paths under REPORTS_PATH.
func (c *commandParams) addFlags(fs *pflag.FlagSet, cfg *config.Config) {
	runner := cfg.DefaultRunnerSettings()
	fs.IntVar(&c.workers, "workers", runner.Workers, "number of tests to run at the same time")
	fs.IntVar(&c.retries, "retries", runner.Retries, "number of times to rerun a failed test")
	fs.BoolVar(&c.headless, "headless", true, "run the browser without a window")
	fs.StringVar(&c.browser, "browser", browser.Chromium, "browser engine: chromium, firefox or webkit")
	fs.DurationVar(&c.actionTimeout, "action-timeout", browser.DefaultActionTimeout, "how long to wait for navigation, clicks and typing")
	fs.DurationVar(&c.expectTimeout, "expect-timeout", browser.DefaultExpectTimeout, "how long to wait for an expected page state")
	fs.DurationVar(&c.targetTimeout, "target-timeout", defaultTargetTimeout, "how long to wait for the target to answer before starting")
	fs.DurationVar(&c.assetTimeout, "asset-timeout", aemtests.DefaultAssetTimeout, "how long to wait for an uploaded asset to appear or disappear")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.StringVar(&c.jUnitFile, "junit", cfg.JUnitPath(), "write JUnit XML output to the specified path")
	fs.StringVar(&c.htmlDir, "html", cfg.HTMLReportDir(), "write the HTML report to the specified directory")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")
	fs.StringVar(&c.recordFailures, "record-failures", "", "write the IDs of failed tests to the specified file")
	fs.StringVar(&c.skipFile, "skip-from", "", "skip the tests listed in the specified file, one per line")
	fs.StringVar(&c.contractFile, "contract", "", "JSON or YAML file overriding the expected titles and selectors")
}

func (c *commandParams) runnerSettings() config.RunnerSettings {
	return config.RunnerSettings{Workers: c.workers, Retries: c.retries}
}

func (c *commandParams) launchOptions(cfg *config.Config) []browser.LaunchOption {
	return []browser.LaunchOption{
		browser.WithBrowser(c.browser),
		browser.Headless(c.headless),
		browser.WithProxy(cfg.Proxy),
	}
}
