package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/datallboy/fanout/internal/engine"
	"github.com/datallboy/fanout/internal/infra/logger"
	"github.com/datallboy/fanout/internal/presentation"
)

func newRunsCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "runs [ID]",
		Short: "List recorded runs, or show one run in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			appCtx, cleanup, err := bootstrap(cmd.Context(), cfg, logger.NewWriter("fanout", cmd.ErrOrStderr(), logger.LevelWarn))
			if err != nil {
				return err
			}
			defer cleanup()

			manager := engine.NewRunManager(appCtx)
			out := cmd.OutOrStdout()
			printer := presentation.Printer{Writer: out}

			if len(args) == 1 {
				run, err := manager.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, run)
				}
				printer.PrintRun(run)
				return nil
			}

			runs, err := manager.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runs)
			}
			printer.PrintRuns(runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
