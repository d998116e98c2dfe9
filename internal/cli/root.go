package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// errNoCommand is returned for a bare invocation so the process exits 1
// after the usage text.
var errNoCommand = errors.New("no command given")

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "txsweep",
	Short:   "Drive a transaction engine through a benchmark sweep",
	Version: version,
	Long: `txsweep enumerates the experiment matrix of a transaction-processing
engine, rewrites the engine's configuration header for each point, rebuilds
and runs it, and stores the raw output under a name that encodes every
parameter. Points with a recorded result are skipped, so an interrupted
sweep picks up where it stopped.

Examples:
  txsweep RUN
  txsweep RUN tag@gc alg@SILO
  txsweep PREPARE alg@MICA__bench@TPCC
  txsweep list tag@backoff
  txsweep stale --dry-run`,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return errNoCommand
	},
}

// Execute runs the command tree until it finishes or SIGINT/SIGTERM arrives.
// This is called by main.Main.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := RootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(RootCmd.ErrOrStderr(), "Interrupted; unfinished points will run on the next sweep")
	default:
		fmt.Fprintln(RootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func init() {
	cobra.EnableCaseInsensitive = true

	flags := RootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Path to configuration file (YAML or JSON)")
	flags.String("results-dir", "", "Override the result directory")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.Bool("no-color", false, "Disable colored output")

	// Add subcommands to root command
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(prepareCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(staleCmd)
	RootCmd.AddCommand(retagCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(keysCmd)
}
