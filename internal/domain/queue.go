package domain

import "time"

type RunStatus string

const (
	StatusRunning    RunStatus = "running"
	StatusCompleted  RunStatus = "completed"
	StatusIncomplete RunStatus = "incomplete" // at least one worker crashed
)

// WorkerReport is what a joined worker leaves behind.
// Err is set only when the worker crashed; Result then covers the units
// processed before the crash.
type WorkerReport struct {
	WorkerID int       `json:"worker_id"`
	Units    int       `json:"units"`
	Result   RunResult `json:"result"`
	Err      error     `json:"-"`
}

// Crashed reports whether the worker stopped before finishing its partition.
func (w WorkerReport) Crashed() bool {
	return w.Err != nil
}

// Report collects the per-worker reports of a finished pool.
type Report struct {
	Workers []WorkerReport `json:"workers"`
}

// Totals sums the per-worker results.
func (r Report) Totals() RunResult {
	var total RunResult
	for _, w := range r.Workers {
		total = total.Merge(w.Result)
	}
	return total
}

// Complete is true when no worker crashed.
func (r Report) Complete() bool {
	for _, w := range r.Workers {
		if w.Crashed() {
			return false
		}
	}
	return true
}

// Run is the persisted record of one launch.
type Run struct {
	ID         string         `json:"id"`
	Status     RunStatus      `json:"status"`
	Units      int            `json:"units"`
	Workers    int            `json:"workers"`
	Overwrite  bool           `json:"overwrite"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Totals     RunResult      `json:"totals"`
	Reports    []WorkerRecord `json:"reports,omitempty"`

	// Alive is only populated for runs that are still in flight.
	Alive []bool `json:"alive,omitempty"`
}

// WorkerRecord is the storable form of a WorkerReport.
type WorkerRecord struct {
	WorkerID int       `json:"worker_id"`
	Units    int       `json:"units"`
	Result   RunResult `json:"result"`
	Error    string    `json:"error,omitempty"`
}

// Records converts the report into its storable form.
func (r Report) Records() []WorkerRecord {
	out := make([]WorkerRecord, 0, len(r.Workers))
	for _, w := range r.Workers {
		rec := WorkerRecord{WorkerID: w.WorkerID, Units: w.Units, Result: w.Result}
		if w.Err != nil {
			rec.Error = w.Err.Error()
		}
		out = append(out, rec)
	}
	return out
}
