package aemtests

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/aem-test-harness/config"
	"github.com/adobe/aem-test-harness/data"
	"github.com/adobe/aem-test-harness/framework/browser"
	"github.com/adobe/aem-test-harness/framework/harness"
	"github.com/adobe/aem-test-harness/framework/ldtest"
	"github.com/adobe/aem-test-harness/framework/opt"
)

const testAuthorURL = "http://author.example:4502"

var (
	loginTestID     = ldtest.TestID{"author", "login"}                      //nolint:gochecknoglobals
	titleTestID     = ldtest.TestID{"author", "sign-in page", "has title"}  //nolint:gochecknoglobals
	loginFormTestID = ldtest.TestID{"author", "sign-in page", "login form"} //nolint:gochecknoglobals
	shellTestID     = ldtest.TestID{"author", "start page", "shell"}        //nolint:gochecknoglobals
	uploadTestID    = ldtest.TestID{"author", "assets", "upload"}           //nolint:gochecknoglobals
)

// loginCalls is what a session records for a successful sign-in.
var loginCalls = []string{ //nolint:gochecknoglobals
	"Goto " + testAuthorURL,
	"ExpectTitle AEM Sign In",
	"Click #coral-id-0",
	"ExpectAttribute #login action=/libs/granite/core/content/login.html/j_security_check",
	"Fill #username",
	"Fill #password",
	"Click #submit-button",
	"ExpectTitle AEM Start",
	"ExpectHeading Navigation",
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		ReportsPath: t.TempDir(),
		Author:      config.Endpoint{URL: testAuthorURL, Username: "admin", Password: "secret"},
	}
}

// only matches the given test and its parents.
func only(id ldtest.TestID) ldtest.Filter {
	return ldtest.FilterFunc(func(candidate ldtest.TestID) bool {
		return strings.HasPrefix(id.String()+"/", candidate.String()+"/")
	})
}

func runSuite(
	t *testing.T,
	cfg *config.Config,
	sessions browser.Sessions,
	runner config.RunnerSettings,
	filter ldtest.Filter,
) ldtest.Results {
	return runSuiteWithParams(t, sessions, SuiteParams{Config: cfg, Runner: runner}, filter)
}

// runSuiteWithParams fills in the built-in contract.
func runSuiteWithParams(t *testing.T, sessions browser.Sessions, params SuiteParams, filter ldtest.Filter) ldtest.Results {
	contract, err := data.LoadLoginContract()
	require.NoError(t, err)
	params.Contract = contract
	var results ldtest.Results
	handler := httphelpers.HandlerWithStatus(http.StatusOK)
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		h := harness.NewTestHarness(server.URL, opt.None[string](), time.Second, sessions, nil, nil)
		results = RunAEMTestSuite(h, params, filter, nil, nil)
	})
	return results
}

func requireStepError(t *testing.T, result ldtest.TestResult) *StepError {
	require.Len(t, result.Errors, 1)
	var se *StepError
	require.True(t, errors.As(result.Errors[0], &se), "expected a StepError, got %T: %s", result.Errors[0], result.Errors[0])
	return se
}

func findResult(results ldtest.Results, id ldtest.TestID) (ldtest.TestResult, bool) {
	for _, r := range results.Tests {
		if r.TestID.String() == id.String() {
			return r, true
		}
	}
	return ldtest.TestResult{}, false
}

func TestLoginSucceeds(t *testing.T) {
	cfg := testConfig(t)
	sessions := newFakeSessions()
	results := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 1}, only(loginTestID))

	assert.True(t, results.OK())
	session := sessions.sessionFor(cfg.TestOutputDir(loginTestID, 0))
	require.NotNil(t, session)
	assert.Equal(t, loginCalls, session.recordedCalls())
	assert.True(t, session.closed)
	assert.False(t, session.failed)

	result, ok := findResult(results, loginTestID)
	require.True(t, ok)
	assert.Equal(t, []ldtest.Artifact{
		{Name: "video", Path: filepath.Join(cfg.TestOutputDir(loginTestID, 0), "video.webm")},
	}, result.Artifacts)
}

func TestSessionOptionsComeFromConfig(t *testing.T) {
	cfg := testConfig(t)
	sessions := newFakeSessions()
	contract, err := data.LoadLoginContract()
	require.NoError(t, err)
	h := harness.NewTestHarness("http://localhost:1", opt.None[string](), 0, sessions, nil, nil)
	RunAEMTestSuite(h, SuiteParams{
		Config:        cfg,
		Contract:      contract,
		Runner:        config.RunnerSettings{Workers: 1},
		ActionTimeout: 7 * time.Second,
		ExpectTimeout: 3 * time.Second,
	}, only(loginTestID), nil, nil)

	require.Len(t, sessions.opened, 1)
	opts := sessions.opened[0]
	assert.Equal(t, cfg.TestOutputDir(loginTestID, 0), opts.OutputDir)
	assert.False(t, opts.Trace)
	assert.Equal(t, 7*time.Second, opts.ActionTimeout)
	assert.Equal(t, 3*time.Second, opts.ExpectTimeout)
	assert.NotNil(t, opts.Logger)
}

func TestWrongSignInTitleStopsBeforeCredentials(t *testing.T) {
	cfg := testConfig(t)
	sessions := newFakeSessions().failOn("ExpectTitle AEM Sign In",
		&browser.ActionError{Action: "expect title", Kind: browser.KindAssertion, Err: errors.New("was \"Welcome\"")}, 0)
	results := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 1}, only(loginTestID))

	require.Len(t, results.Failures, 1)
	se := requireStepError(t, results.Failures[0])
	assert.Equal(t, 2, se.Step)
	assert.Equal(t, browser.KindAssertion, se.Kind)

	session := sessions.sessionFor(cfg.TestOutputDir(loginTestID, 0))
	require.NotNil(t, session)
	for _, c := range session.recordedCalls() {
		assert.False(t, strings.HasPrefix(c, "Fill"), "unexpected call %q", c)
	}
	assert.True(t, session.failed)
	assert.Contains(t, results.Failures[0].Artifacts, ldtest.Artifact{
		Name: "screenshot", Path: filepath.Join(cfg.TestOutputDir(loginTestID, 0), browser.ScreenshotFileName),
	})
}

func TestRejectedCredentialsFailAtLastStep(t *testing.T) {
	cfg := testConfig(t)
	sessions := newFakeSessions().failOn("ExpectTitle AEM Start",
		&browser.ActionError{Action: "expect title", Kind: browser.KindAssertion, Err: errors.New("was \"AEM Sign In\"")}, 0)
	results := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 1}, only(loginTestID))

	require.Len(t, results.Failures, 1)
	se := requireStepError(t, results.Failures[0])
	assert.Equal(t, 6, se.Step)
	assert.Equal(t, "check start page", se.Name)
	assert.Equal(t, browser.KindAssertion, se.Kind)
}

func TestUnreachableTargetIsConnectivityFailure(t *testing.T) {
	cfg := testConfig(t)
	sessions := newFakeSessions().failOn("Goto "+testAuthorURL,
		&browser.ActionError{Action: "navigate", Kind: browser.KindConnectivity, Err: errors.New("net::ERR_CONNECTION_REFUSED")}, 0)
	results := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 1}, only(loginTestID))

	require.Len(t, results.Failures, 1)
	se := requireStepError(t, results.Failures[0])
	assert.Equal(t, 1, se.Step)
	assert.Equal(t, browser.KindConnectivity, se.Kind)
}

func TestChangedMarkupIsContractFailure(t *testing.T) {
	for _, kind := range []browser.Kind{browser.KindTimeout, browser.KindAssertion, browser.KindMarkupContract} {
		t.Run(string(kind), func(t *testing.T) {
			cfg := testConfig(t)
			sessions := newFakeSessions().failOn("Click #coral-id-0",
				&browser.ActionError{Action: "click", Kind: kind, Err: errors.New("no such element")}, 0)
			results := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 1}, only(loginTestID))

			require.Len(t, results.Failures, 1)
			se := requireStepError(t, results.Failures[0])
			assert.Equal(t, 3, se.Step)
			assert.Equal(t, browser.KindMarkupContract, se.Kind)
		})
	}
}

func TestBrowserUnavailable(t *testing.T) {
	cfg := testConfig(t)
	sessions := harness.UnavailableSessions(errors.New("no chromium"))
	results := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 2}, nil)

	require.Len(t, results.Failures, 5)
	for _, f := range results.Failures {
		se := requireStepError(t, f)
		assert.Equal(t, 0, se.Step)
		assert.Equal(t, browser.KindConnectivity, se.Kind)
	}
}

func TestSignInPageTests(t *testing.T) {
	cfg := testConfig(t)
	sessions := newFakeSessions()
	results := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 1}, nil)

	assert.True(t, results.OK())
	title := sessions.sessionFor(cfg.TestOutputDir(titleTestID, 0))
	require.NotNil(t, title)
	assert.Equal(t, []string{"Goto " + testAuthorURL, "ExpectTitle AEM Sign In"}, title.recordedCalls())

	form := sessions.sessionFor(cfg.TestOutputDir(loginFormTestID, 0))
	require.NotNil(t, form)
	assert.Equal(t, []string{
		"ExpectVisible #username",
		"ExpectVisible #password",
		"ExpectVisible #submit-button",
	}, form.recordedCalls()[4:])
}

func TestMissingFormFieldIsContractFailure(t *testing.T) {
	cfg := testConfig(t)
	sessions := newFakeSessions().failOn("ExpectVisible #password",
		&browser.ActionError{Action: "expect visible", Kind: browser.KindAssertion, Err: errors.New("not found")}, 0)
	results := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 1}, only(loginFormTestID))

	require.Len(t, results.Failures, 1)
	se := requireStepError(t, results.Failures[0])
	assert.Equal(t, 4, se.Step)
	assert.Equal(t, browser.KindMarkupContract, se.Kind)
}

func TestFlakyLoginIsRetried(t *testing.T) {
	cfg := testConfig(t)
	sessions := newFakeSessions().failOn("ExpectHeading Navigation",
		&browser.ActionError{Action: "expect heading", Kind: browser.KindAssertion, Err: errors.New("empty")}, 1)
	results := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 1, Retries: 2}, only(loginTestID))

	assert.True(t, results.OK())
	require.Len(t, results.Flaky(), 1)
	assert.Equal(t, 2, results.Flaky()[0].Attempts)

	require.Len(t, sessions.opened, 2)
	assert.Equal(t, cfg.TestOutputDir(loginTestID, 0), sessions.opened[0].OutputDir)
	assert.False(t, sessions.opened[0].Trace)
	assert.Equal(t, cfg.TestOutputDir(loginTestID, 1), sessions.opened[1].OutputDir)
	assert.True(t, sessions.opened[1].Trace)
}

func TestTestsRunInParallelWithoutSharingSessions(t *testing.T) {
	cfg := testConfig(t)
	sessions := newFakeSessions()
	results := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 4}, nil)

	assert.True(t, results.OK())
	require.Len(t, sessions.opened, 5)
	dirs := make(map[string]bool)
	for _, o := range sessions.opened {
		dirs[o.OutputDir] = true
	}
	assert.Len(t, dirs, 5)
}

func TestStartPageShell(t *testing.T) {
	cfg := testConfig(t)
	sessions := newFakeSessions()
	results := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 1}, only(shellTestID))

	assert.True(t, results.OK())
	session := sessions.sessionFor(cfg.TestOutputDir(shellTestID, 0))
	require.NotNil(t, session)
	assert.Equal(t, append(append([]string(nil), loginCalls...),
		"ExpectPresent coral-shell",
		"ExpectPresent coral-shell-header",
	), session.recordedCalls())
}

func TestMissingStartPageShellIsContractFailure(t *testing.T) {
	cfg := testConfig(t)
	sessions := newFakeSessions().failOn("ExpectPresent coral-shell-header",
		&browser.ActionError{Action: "expect present", Kind: browser.KindAssertion, Err: errors.New("not found")}, 0)
	results := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 1}, only(shellTestID))

	require.Len(t, results.Failures, 1)
	se := requireStepError(t, results.Failures[0])
	assert.Equal(t, 7, se.Step)
	assert.Equal(t, "check start page shell", se.Name)
	assert.Equal(t, browser.KindMarkupContract, se.Kind)
}

func TestRepeatedRunSameOutcome(t *testing.T) {
	outcome := func(results ldtest.Results) map[string]string {
		ret := make(map[string]string)
		for _, r := range results.Tests {
			switch {
			case len(r.Errors) == 0:
				ret[r.TestID.String()] = "passed"
			default:
				var se *StepError
				require.True(t, errors.As(r.Errors[0], &se))
				ret[r.TestID.String()] = fmt.Sprintf("step %d %s", se.Step, se.Kind)
			}
		}
		return ret
	}

	for _, fail := range []bool{false, true} {
		t.Run(fmt.Sprintf("failing target: %t", fail), func(t *testing.T) {
			cfg := testConfig(t)
			sessions := newFakeSessions()
			if fail {
				sessions.failOn("ExpectTitle AEM Start",
					&browser.ActionError{Action: "expect title", Kind: browser.KindAssertion, Err: errors.New("was \"AEM Sign In\"")}, 0)
			}
			first := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 2}, nil)
			second := runSuite(t, cfg, sessions, config.RunnerSettings{Workers: 2}, nil)

			assert.Equal(t, first.OK(), second.OK())
			assert.Equal(t, len(first.Failures), len(second.Failures))
			assert.Equal(t, outcome(first), outcome(second))
			assert.False(t, sessions.hasAsset("image.png"))
		})
	}
}

func TestStepErrorMessage(t *testing.T) {
	err := &StepError{Step: 3, Name: "reveal login form", Kind: browser.KindMarkupContract, Err: errors.New("boom")}
	assert.Equal(t, "step 3 (reveal login form) [markup-contract]: boom", err.Error())

	err = &StepError{Name: "open browser session", Kind: browser.KindConnectivity, Err: errors.New("boom")}
	assert.Equal(t, "open browser session [connectivity]: boom", err.Error())
}

func TestMissingContextFailsTest(t *testing.T) {
	results := ldtest.Run(ldtest.TestConfiguration{}, func(t *ldtest.T) {
		requireContext(t)
	})
	require.Len(t, results.Failures, 1)
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "AEMTestContext was not included")
}
