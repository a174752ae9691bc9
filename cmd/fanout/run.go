package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/datallboy/fanout/internal/domain"
	"github.com/datallboy/fanout/internal/engine"
	"github.com/datallboy/fanout/internal/infra/logger"
	"github.com/datallboy/fanout/internal/presentation"
	"github.com/datallboy/fanout/internal/tui"
	"github.com/datallboy/fanout/internal/worklist"
)

type runOptions struct {
	list         string
	urlColumn    int
	destPattern  string
	header       bool
	noWait       bool
	watch        bool
	pollInterval time.Duration
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Download every item of a CSV work list",
		Long: `Reads a CSV work list and downloads it with a fixed pool of workers.

Each row is "source,destination" unless --dest-pattern is given, in which case
the source comes from --url-column and the destination from the pattern.
{index} and {ext} in the pattern are replaced by the row number and the URL's
file extension.

Existing destination files are skipped unless --overwrite is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDownload(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.list, "list", "l", "", "CSV work list (required)")
	f.IntVar(&opts.urlColumn, "url-column", 0, "column holding the URL when --dest-pattern is set")
	f.StringVar(&opts.destPattern, "dest-pattern", "", "destination pattern, e.g. /tmp/image.{index}.{ext}")
	f.BoolVar(&opts.header, "header", false, "skip the first row of the work list")
	f.BoolVar(&opts.noWait, "no-wait", false, "print worker liveness while the run is in flight instead of blocking silently")
	f.BoolVar(&opts.watch, "watch", false, "show a live view of worker liveness")
	f.DurationVar(&opts.pollInterval, "poll-interval", time.Second, "liveness polling interval for --no-wait and --watch")

	f.IntP("workers", "w", 16, "number of workers")
	f.Bool("overwrite", false, "replace destinations that already exist")
	f.String("buffer-size", "1MiB", "copy chunk size")
	f.String("log-prefix", "/tmp/fanout.log", "log file prefix; writes <prefix>.main and <prefix>.<worker>")

	_ = cmd.MarkFlagRequired("list")
	return cmd
}

func runDownload(cmd *cobra.Command, opts runOptions) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	units, err := worklist.LoadFile(afero.NewOsFs(), opts.list, worklist.Options{
		URLColumn:   opts.urlColumn,
		DestPattern: opts.destPattern,
		Header:      opts.header,
	})
	if err != nil {
		return err
	}

	// Manager-level problems (store failures) go straight to stderr; per-item
	// detail lives in the run's log files.
	appCtx, cleanup, err := bootstrap(ctx, cfg, logger.NewWriter("fanout", cmd.ErrOrStderr(), logger.LevelWarn))
	if err != nil {
		return err
	}
	defer cleanup()

	console := consoleFor(cfg, cmd.ErrOrStderr())
	appCtx.Logs = func(string) (*logger.Set, error) {
		return logger.NewSet(cfg.Log.Prefix, logger.ParseLevel(cfg.Log.Level), console)
	}

	manager := engine.NewRunManager(appCtx)
	out := cmd.OutOrStdout()
	printer := presentation.Printer{Writer: out}

	run, err := manager.Start(ctx, units, cfg.Workers, cfg.Overwrite)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Run %s: %d items across %d workers, logging to %s.main\n",
		run.ID, run.Units, run.Workers, cfg.Log.Prefix)

	wait := cfg.Wait && !opts.noWait
	switch {
	case opts.watch:
		if err := watch(cmd, manager, run.ID, opts.pollInterval); err != nil {
			return err
		}
	case !wait:
		if err := poll(cmd, manager, printer, run.ID, opts.pollInterval); err != nil {
			return err
		}
	}

	final, err := manager.Wait(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("stopped waiting for run %s: %w", run.ID, err)
	}

	fmt.Fprintln(out)
	printer.PrintRun(final)

	if final.Status == domain.StatusIncomplete {
		return errIncomplete
	}
	return nil
}

// poll prints worker liveness until the run stops running.
func poll(cmd *cobra.Command, manager *engine.RunManager, printer presentation.Printer, id string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		run, err := manager.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		if run.Status != domain.StatusRunning {
			return nil
		}
		printer.PrintProgress(run)

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

func watch(cmd *cobra.Command, manager *engine.RunManager, id string, interval time.Duration) error {
	model := tui.NewModel(func() (*domain.Run, error) {
		return manager.Get(cmd.Context(), id)
	}, interval)

	p := tea.NewProgram(model, tea.WithContext(cmd.Context()), tea.WithOutput(cmd.OutOrStdout()))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	if m, ok := final.(tui.Model); ok && m.Err != nil {
		return m.Err
	}
	return nil
}
