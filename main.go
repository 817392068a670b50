package main

import (
	_ "embed" // this is required in order for go:embed to work
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adobe/aem-test-harness/config"
)

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

// errTestsFailed makes the process exit with status 1 without printing anything more, since the
// failures have already been reported.
var errTestsFailed = errors.New("tests failed")

func version() string {
	return strings.TrimSpace(versionString)
}

func main() {
	cfg := config.FromEnvironment()
	if err := newRootCommand(cfg, os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. Running the root command with no subcommand is the
// same as "run".
func newRootCommand(cfg *config.Config, out io.Writer) *cobra.Command {
	runCmd := newRunCommand(cfg, out)
	root := &cobra.Command{
		Use:           "aem-test-harness",
		Short:         "Browser acceptance tests for an AEM author instance",
		Long:          "Runs browser acceptance tests against the AEM author instance named by AEM_AUTHOR_URL.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCmd.RunE,
	}
	root.SetOut(out)
	root.Flags().AddFlagSet(runCmd.Flags())
	root.AddCommand(runCmd)
	root.AddCommand(newServeMockCommand(out))
	root.AddCommand(newVersionCommand(out))
	return root
}

func newVersionCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the harness version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(out, "aem-test-harness v%s\n", version())
		},
	}
}
