package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adobe/aem-test-harness/aemtests"
	"github.com/adobe/aem-test-harness/config"
	"github.com/adobe/aem-test-harness/data"
	"github.com/adobe/aem-test-harness/framework"
	"github.com/adobe/aem-test-harness/framework/browser"
	"github.com/adobe/aem-test-harness/framework/harness"
	"github.com/adobe/aem-test-harness/framework/helpers"
	"github.com/adobe/aem-test-harness/framework/ldtest"
)

const reportTitle = "AEM acceptance tests"

// launchFunc starts the browser. It is a variable so that tests can run without one.
type launchFunc func(options ...browser.LaunchOption) (browser.Sessions, io.Closer, error)

func launchBrowser(options ...browser.LaunchOption) (browser.Sessions, io.Closer, error) {
	l, err := browser.Launch(options...)
	if err != nil {
		return nil, nil, err
	}
	return l, l, nil
}

func newRunCommand(cfg *config.Config, out io.Writer) *cobra.Command {
	var params commandParams
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the acceptance tests (the default)",
		Long: `Run the acceptance tests against AEM_AUTHOR_URL.

Reports are written under REPORTS_PATH: result.xml (JUnit), html/index.html, and one
directory per test in output/ containing its video, and on failure a screenshot.

Example:
  AEM_AUTHOR_URL=http://localhost:4502 aem-test-harness run --run 'login' --debug`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			logger, err := newProcessLogger(params.debugAll)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			results, err := run(cfg, params, launchBrowser, logger, out)
			if err != nil {
				return err
			}
			if !results.OK() {
				return errTestsFailed
			}
			return nil
		},
	}
	params.addFlags(cmd.Flags(), cfg)
	return cmd
}

func newProcessLogger(debug bool) (*zap.Logger, error) {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zapConfig.DisableStacktrace = true
	return zapConfig.Build()
}

func run(
	cfg *config.Config,
	params commandParams,
	launch launchFunc,
	logger *zap.Logger,
	out io.Writer,
) (*ldtest.Results, error) {
	runID := uuid.NewString()
	logger = logger.With(zap.String("runID", runID))
	logger.Info("starting test run",
		zap.String("version", version()),
		zap.Stringer("author", cfg.Author),
		zap.String("proxy", helpers.RedactProxy(cfg.Proxy)),
		zap.Bool("ci", cfg.CI),
	)

	if params.skipFile != "" {
		if err := loadSuppressions(&params); err != nil {
			return nil, err
		}
	}

	contract, err := loadContract(params.contractFile)
	if err != nil {
		return nil, err
	}

	launchOptions := params.launchOptions(cfg)
	if _, err := browser.NewLaunchConfig(launchOptions...); err != nil {
		return nil, err
	}
	launchOptions = append(launchOptions, browser.WithLogger(framework.ZapLogger(logger, zapcore.InfoLevel)))

	var sessions browser.Sessions
	s, closer, err := launch(launchOptions...)
	if err != nil {
		// the tests still run, so that every one of them reports the problem
		logger.Error("browser could not be started", zap.Error(err))
		sessions = harness.UnavailableSessions(err)
	} else {
		sessions = s
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Warn("error shutting down browser", zap.Error(err))
			}
		}()
	}

	h := harness.NewTestHarness(
		cfg.Author.URL,
		cfg.Proxy,
		params.targetTimeout,
		sessions,
		framework.ZapLogger(logger, zapcore.WarnLevel),
		out,
	)

	properties := []ldtest.ReportProperty{
		{Name: "run.id", Value: runID},
		{Name: "harness.version", Value: version()},
	}
	properties = append(properties, cfg.Properties()...)
	properties = append(properties, h.TargetInfo().Properties()...)

	testLogger := ldtest.MultiTestLogger{
		&ldtest.ConsoleTestLogger{
			DebugOutputOnFailure: params.debug || params.debugAll,
			DebugOutputOnSuccess: params.debugAll,
			Out:                  out,
		},
	}
	if params.jUnitFile != "" {
		testLogger = append(testLogger, ldtest.NewJUnitTestLogger(params.jUnitFile, properties))
	}
	if params.htmlDir != "" {
		testLogger = append(testLogger, ldtest.NewHTMLTestLogger(params.htmlDir, reportTitle, properties))
	}

	results := aemtests.RunAEMTestSuite(h, aemtests.SuiteParams{
		Config:        cfg,
		Contract:      contract,
		Runner:        params.runnerSettings(),
		ActionTimeout: params.actionTimeout,
		ExpectTimeout: params.expectTimeout,
		AssetTimeout:  params.assetTimeout,
	}, params.filters, testLogger, out)

	fmt.Fprintln(out)
	ldtest.PrintResults(out, results)
	if err := testLogger.EndLog(results); err != nil {
		return nil, fmt.Errorf("error writing reports: %w", err)
	}
	if params.jUnitFile != "" {
		logger.Info("wrote JUnit report", zap.String("path", params.jUnitFile))
	}
	if params.htmlDir != "" {
		logger.Info("wrote HTML report", zap.String("path", filepath.Join(params.htmlDir, "index.html")))
	}

	if params.recordFailures != "" {
		if err := recordFailures(params.recordFailures, results); err != nil {
			return nil, err
		}
	}

	return &results, nil
}

func loadContract(path string) (data.LoginContract, error) {
	if path == "" {
		return data.LoadLoginContract()
	}
	return data.LoadLoginContractOverride(path)
}

// recordFailures writes the failed test IDs in the format that --skip-from reads.
func recordFailures(path string, results ldtest.Results) error {
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("cannot create suppression file: %w", err)
	}
	defer func() { _ = f.Close() }()
	for _, test := range results.Failures {
		if _, err := fmt.Fprintln(f, test.TestID); err != nil {
			return fmt.Errorf("cannot write suppression file: %w", err)
		}
	}
	return nil
}

// exactTestIDPattern matches only the test whose ID is written in the line, and its subtests.
func exactTestIDPattern(line string) string {
	parts := strings.Split(strings.TrimSpace(line), "/")
	for i, p := range parts {
		parts[i] = "^" + regexp.QuoteMeta(p) + "$"
	}
	return strings.Join(parts, "/")
}

func loadSuppressions(params *commandParams) error {
	file, err := os.Open(params.skipFile)
	if err != nil {
		return fmt.Errorf("cannot open provided suppression file: %w", err)
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := params.filters.MustNotMatch.Set(exactTestIDPattern(line)); err != nil {
			return fmt.Errorf("cannot parse suppression: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("while processing suppression file: %w", err)
	}
	return nil
}
