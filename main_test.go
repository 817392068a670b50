package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adobe/aem-test-harness/aemtests"
	"github.com/adobe/aem-test-harness/config"
	"github.com/adobe/aem-test-harness/framework/browser"
	"github.com/adobe/aem-test-harness/framework/ldtest"
)

func parseParams(t *testing.T, cfg *config.Config, args ...string) commandParams {
	var params commandParams
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	params.addFlags(fs, cfg)
	require.NoError(t, fs.Parse(args))
	return params
}

func noBrowser(...browser.LaunchOption) (browser.Sessions, io.Closer, error) {
	return nil, nil, errors.New("no browser in unit tests")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand(&config.Config{ReportsPath: t.TempDir()}, &out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "aem-test-harness v"+version()+"\n", out.String())
}

func TestFlagDefaultsOutsideCI(t *testing.T) {
	cfg := &config.Config{ReportsPath: "/reports"}
	params := parseParams(t, cfg)
	assert.Equal(t, config.RunnerSettings{Workers: max(1, runtime.NumCPU()/2), Retries: 0}, params.runnerSettings())
	assert.True(t, params.headless)
	assert.Equal(t, browser.Chromium, params.browser)
	assert.Equal(t, browser.DefaultActionTimeout, params.actionTimeout)
	assert.Equal(t, browser.DefaultExpectTimeout, params.expectTimeout)
	assert.Equal(t, defaultTargetTimeout, params.targetTimeout)
	assert.Equal(t, aemtests.DefaultAssetTimeout, params.assetTimeout)
	assert.Equal(t, "/reports/result.xml", params.jUnitFile)
	assert.Equal(t, "/reports/html", params.htmlDir)
}

func TestFlagDefaultsInCI(t *testing.T) {
	params := parseParams(t, &config.Config{ReportsPath: "/reports", CI: true})
	assert.Equal(t, config.RunnerSettings{Workers: 1, Retries: 2}, params.runnerSettings())
}

func TestFlagsOverrideDefaults(t *testing.T) {
	params := parseParams(t, &config.Config{ReportsPath: "/reports", CI: true},
		"--workers", "3", "--retries", "0", "--headless=false", "--browser", "firefox",
		"--expect-timeout", "2s", "--target-timeout", "1s", "--asset-timeout", "30s", "--run", "author/login", "--run", "author/sign-in page")
	assert.Equal(t, config.RunnerSettings{Workers: 3, Retries: 0}, params.runnerSettings())
	assert.False(t, params.headless)
	assert.Equal(t, "firefox", params.browser)
	assert.Equal(t, 2*time.Second, params.expectTimeout)
	assert.Equal(t, time.Second, params.targetTimeout)
	assert.Equal(t, 30*time.Second, params.assetTimeout)
	assert.Len(t, params.filters.MustMatch, 2)
}

func TestRootCommandAcceptsRunFlags(t *testing.T) {
	cmd := newRootCommand(&config.Config{ReportsPath: "/reports"}, io.Discard)
	for _, name := range []string{"workers", "retries", "run", "skip", "junit", "html", "contract", "asset-timeout"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestRunWithoutBrowserStillWritesReports(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(http.StatusOK), func(server *httptest.Server) {
		cfg := &config.Config{ReportsPath: t.TempDir(), Author: config.Endpoint{URL: server.URL}}
		failuresFile := filepath.Join(cfg.ReportsPath, "failures.txt")
		params := parseParams(t, cfg, "--record-failures", failuresFile)
		var out bytes.Buffer

		results, err := run(cfg, params, noBrowser, zap.NewNop(), &out)
		require.NoError(t, err)
		assert.False(t, results.OK())
		assert.Len(t, results.Failures, 5)

		assert.FileExists(t, cfg.JUnitPath())
		assert.FileExists(t, filepath.Join(cfg.HTMLReportDir(), "index.html"))
		m.In(t).Assert(out.String(), m.AllOf(
			m.StringContains("Target answered with HTTP 200"),
			m.StringContains("FAILED TESTS (5)"),
		))

		recorded, err := os.ReadFile(failuresFile)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(recorded)), "\n")
		assert.ElementsMatch(t, []string{
			"author/sign-in page/has title",
			"author/sign-in page/login form",
			"author/login",
			"author/start page/shell",
			"author/assets/upload",
		}, lines)

		junit, err := os.ReadFile(cfg.JUnitPath())
		require.NoError(t, err)
		m.In(t).Assert(string(junit), m.AllOf(
			m.StringContains(`name="run.id"`),
			m.StringContains(`name="target.reachable" value="true"`),
		))
	})
}

func TestRecordedFailuresCanBeSkipped(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(http.StatusOK), func(server *httptest.Server) {
		cfg := &config.Config{ReportsPath: t.TempDir(), Author: config.Endpoint{URL: server.URL}}
		skipFile := filepath.Join(cfg.ReportsPath, "skip.txt")
		require.NoError(t, os.WriteFile(skipFile, []byte("author/login\n\nauthor/sign-in page/has title\nauthor/start page/shell\nauthor/assets/upload\n"), 0600))
		params := parseParams(t, cfg, "--skip-from", skipFile, "--junit", "", "--html", "")

		results, err := run(cfg, params, noBrowser, zap.NewNop(), io.Discard)
		require.NoError(t, err)
		require.Len(t, results.Failures, 1)
		assert.Equal(t, "author/sign-in page/login form", results.Failures[0].TestID.String())
		assert.NoFileExists(t, cfg.JUnitPath())
	})
}

func TestExactTestIDPattern(t *testing.T) {
	var filters ldtest.RegexFilters
	require.NoError(t, filters.MustNotMatch.Set(exactTestIDPattern("author/login")))
	assert.False(t, filters.Match(ldtest.TestID{"author", "login"}))
	assert.True(t, filters.Match(ldtest.TestID{"author", "sign-in page", "login form"}))
	assert.True(t, filters.Match(ldtest.TestID{"author", "login2"}))
}

func TestUnknownBrowserIsError(t *testing.T) {
	cfg := &config.Config{ReportsPath: t.TempDir(), Author: config.Endpoint{URL: "http://localhost:1"}}
	params := parseParams(t, cfg, "--browser", "netscape")
	_, err := run(cfg, params, noBrowser, zap.NewNop(), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown browser "netscape"`)
}

func TestMissingContractFileIsError(t *testing.T) {
	cfg := &config.Config{ReportsPath: t.TempDir(), Author: config.Endpoint{URL: "http://localhost:1"}}
	params := parseParams(t, cfg, "--contract", filepath.Join(cfg.ReportsPath, "nope.yaml"))
	_, err := run(cfg, params, noBrowser, zap.NewNop(), io.Discard)
	require.Error(t, err)

	err = serveMock(serveMockParams{contractFile: params.contractFile}, zap.NewNop(), io.Discard, nil)
	require.Error(t, err)
}

func TestServeMockStopsOnSignal(t *testing.T) {
	stop := make(chan os.Signal, 1)
	stop <- os.Interrupt
	var out bytes.Buffer
	err := serveMock(serveMockParams{port: 0, username: "admin", password: "admin"}, zap.NewNop(), &out, stop)
	require.NoError(t, err)
	m.In(t).Assert(out.String(), m.StringHasPrefix("Mock AEM author listening on http://localhost:"))
}
