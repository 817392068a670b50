package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adobe/aem-test-harness/framework"
	"github.com/adobe/aem-test-harness/framework/harness"
	"github.com/adobe/aem-test-harness/mockaem"
)

const defaultMockPort = 4502

type serveMockParams struct {
	port         int
	username     string
	password     string
	contractFile string
	debug        bool
}

func newServeMockCommand(out io.Writer) *cobra.Command {
	var params serveMockParams
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Serve a mock AEM author login flow to try the tests against",
		Long: `Serve a mock AEM author instance that implements only the sign-in flow, until interrupted.

Example:
  aem-test-harness serve-mock --port 4502 &
  AEM_AUTHOR_URL=http://localhost:4502 AEM_AUTHOR_USERNAME=admin AEM_AUTHOR_PASSWORD=admin aem-test-harness`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			logger, err := newProcessLogger(params.debug)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			return serveMock(params, logger, out, stop)
		},
	}
	cmd.Flags().IntVar(&params.port, "port", defaultMockPort, "port to listen on")
	cmd.Flags().StringVar(&params.username, "username", "admin", "user name the mock accepts")
	cmd.Flags().StringVar(&params.password, "password", "admin", "password the mock accepts")
	cmd.Flags().StringVar(&params.contractFile, "contract", "", "JSON or YAML file overriding the titles and selectors to serve")
	cmd.Flags().BoolVar(&params.debug, "debug", false, "log every request")
	return cmd
}

func serveMock(params serveMockParams, logger *zap.Logger, out io.Writer, stop <-chan os.Signal) error {
	contract, err := loadContract(params.contractFile)
	if err != nil {
		return err
	}
	debugLogger := framework.ZapLogger(logger, zapcore.DebugLevel)
	service := mockaem.NewService(contract, mockaem.Credentials{Username: params.username, Password: params.password}, debugLogger)
	server, err := harness.StartServer(params.port, service, framework.LoggerWithPrefix(debugLogger, "listener: "))
	if err != nil {
		return fmt.Errorf("cannot start mock service: %w", err)
	}
	fmt.Fprintf(out, "Mock AEM author listening on http://localhost:%d (user %q)\n", harness.ServerPort(server), params.username)

	<-stop
	logger.Info("stopping mock service", zap.Int("activeSessions", service.ActiveSessions()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
