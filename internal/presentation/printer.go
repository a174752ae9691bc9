package presentation

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/datallboy/fanout/internal/domain"
)

type Printer struct {
	Writer io.Writer
}

// PrintRun writes the per-worker table and totals of a finished run.
func (p Printer) PrintRun(run *domain.Run) {
	fmt.Fprintf(p.Writer, "Run %s: %s\n", run.ID, run.Status)
	fmt.Fprintln(p.Writer)

	tw := tabwriter.NewWriter(p.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKER\tITEMS\tOK\tSKIPPED\tFAILED\tERROR")
	for _, w := range run.Reports {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%s\n",
			w.WorkerID, w.Units, w.Result.OK, w.Result.Skipped, w.Result.Failed, w.Error)
	}
	tw.Flush()

	fmt.Fprintln(p.Writer)
	fmt.Fprintf(p.Writer, "Downloaded %d, skipped %d, failed %d of %d items across %d workers.\n",
		run.Totals.OK, run.Totals.Skipped, run.Totals.Failed, run.Units, run.Workers)

	if run.FinishedAt != nil {
		fmt.Fprintf(p.Writer, "Took %s.\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}

	if run.Status == domain.StatusIncomplete {
		fmt.Fprintln(p.Writer, "One or more workers crashed; their remaining items were not attempted.")
	}
}

// PrintRuns writes one line per recorded run.
func (p Printer) PrintRuns(runs []*domain.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(p.Writer, "No runs recorded.")
		return
	}

	tw := tabwriter.NewWriter(p.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTARTED\tITEMS\tWORKERS\tOK\tSKIPPED\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.ID, r.Status, humanize.Time(r.StartedAt), r.Units, r.Workers,
			r.Totals.OK, r.Totals.Skipped, r.Totals.Failed)
	}
	tw.Flush()
}

// PrintProgress writes a one-line liveness update for a run in flight.
func (p Printer) PrintProgress(run *domain.Run) {
	running := 0
	for _, alive := range run.Alive {
		if alive {
			running++
		}
	}
	fmt.Fprintf(p.Writer, "%d/%d workers still running\n", running, len(run.Alive))
}
