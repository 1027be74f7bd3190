package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vertti/presubmit/pkg/logging"
	"github.com/vertti/presubmit/pkg/report"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	verbose    bool
	logLevel   string
	logFormat  string
	configPath string
	rootDir    string
)

var rootCmd = &cobra.Command{
	Use:   "presubmit",
	Short: "Run the presubmit checks for a Go project",
	Long: `Presubmit builds, tests, vets, lints and format-checks every configured directory
of a project, running independent checks in parallel, and reports one verdict.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	Args:              cobra.NoArgs,
	PersistentPreRunE: setupLogger,
	RunE:              runPresubmit,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every launch and drain")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: nearest .presubmit.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "project root (default: config file dir or git root)")
}

func setupLogger(cmd *cobra.Command, _ []string) error {
	var jsonLogs bool
	switch logFormat {
	case "text":
	case "json":
		jsonLogs = true
	default:
		return fmt.Errorf("invalid log format %q: want text or json", logFormat)
	}

	logger, err := logging.New(logging.Config{
		Level:   logLevel,
		Verbose: verbose,
		JSON:    jsonLogs,
		Out:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		// The report already explains failed checks.
		if !errors.Is(err, ErrChecksFailed) {
			fmt.Fprintf(os.Stderr, "presubmit: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	var failed *failedRunError
	if errors.As(err, &failed) {
		return failed.report.ExitCode()
	}
	if err != nil {
		return report.ExitFailed
	}
	return report.ExitOK
}
