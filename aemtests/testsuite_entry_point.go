package aemtests

import (
	"fmt"
	"io"
	"time"

	"github.com/adobe/aem-test-harness/config"
	"github.com/adobe/aem-test-harness/data"
	"github.com/adobe/aem-test-harness/framework/harness"
	"github.com/adobe/aem-test-harness/framework/ldtest"
)

// SuiteParams is everything the tests need besides the harness.
type SuiteParams struct {
	Config   *config.Config
	Contract data.LoginContract
	Runner   config.RunnerSettings
	// ActionTimeout and ExpectTimeout are passed to each browser session; zero means the
	// browser package's defaults.
	ActionTimeout time.Duration
	ExpectTimeout time.Duration
	// AssetTimeout bounds each wait for an uploaded asset to appear or disappear; zero means
	// DefaultAssetTimeout.
	AssetTimeout time.Duration
}

func RunAEMTestSuite(
	harness *harness.TestHarness,
	params SuiteParams,
	filter ldtest.Filter,
	testLogger ldtest.TestLogger,
	output io.Writer,
) ldtest.Results {
	if output == nil {
		output = io.Discard
	}
	_, _ = fmt.Fprintf(output, "Running AEM author tests against %s (workers: %d, retries: %d)\n",
		params.Config.Author, params.Runner.Workers, params.Runner.Retries)
	_, _ = fmt.Fprintln(output)
	if sdf, ok := filter.(ldtest.SelfDescribingFilter); ok {
		sdf.Describe(output)
	}

	if params.AssetTimeout <= 0 {
		params.AssetTimeout = DefaultAssetTimeout
	}

	testConfig := ldtest.TestConfiguration{
		Filter:     filter,
		TestLogger: testLogger,
		Context: AEMTestContext{
			harness:       harness,
			config:        params.Config,
			contract:      params.Contract,
			runner:        params.Runner,
			actionTimeout: params.ActionTimeout,
			expectTimeout: params.ExpectTimeout,
			assetTimeout:  params.AssetTimeout,
		},
	}

	return ldtest.Run(testConfig, func(t *ldtest.T) {
		t.Run("author", doAuthorTests)
	})
}

func doAuthorTests(t *ldtest.T) {
	c := requireContext(t)
	retries := c.runner.Retries
	t.RunConcurrently(c.runner.Workers, []ldtest.Subtest{
		{Name: "sign-in page", Action: func(t *ldtest.T) {
			t.RunWithRetries("has title", retries, doSignInPageTitleTest)
			t.RunWithRetries("login form", retries, doLoginFormTest)
		}},
		{Name: "login", Retries: retries, Action: doLoginTest},
		{Name: "start page", Action: func(t *ldtest.T) {
			t.RunWithRetries("shell", retries, doStartPageShellTest)
		}},
		{Name: "assets", Action: func(t *ldtest.T) {
			t.RunWithRetries("upload", retries, doAssetUploadTest)
		}},
	})
}
