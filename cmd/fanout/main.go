package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// errIncomplete marks a run where at least one worker crashed. The report
// has already been printed, so main only sets the exit code.
var errIncomplete = errors.New("run incomplete")

func main() {
	// Setup Signal Handling for Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errIncomplete) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fanout",
		Short:         "Download a list of URLs with a fixed pool of workers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to a YAML config file (default ./fanout.yaml if present)")
	root.PersistentFlags().String("store", "", "run store: sqlite, postgres or none")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newRunCmd(), newRunsCmd(), newServeCmd())
	return root
}
