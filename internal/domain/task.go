package domain

// TransferUnit is a single source-to-destination copy request.
type TransferUnit struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Outcome classifies one completed transfer attempt.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Partition is a contiguous slice of the work list owned by one worker.
type Partition struct {
	WorkerID int
	Units    []TransferUnit
}

// RunResult holds the outcome counts of one partition.
type RunResult struct {
	OK      int `json:"ok"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Add increments the counter matching o.
func (r *RunResult) Add(o Outcome) {
	switch o {
	case OutcomeOK:
		r.OK++
	case OutcomeSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// Total is the number of units that reached an outcome.
func (r RunResult) Total() int {
	return r.OK + r.Skipped + r.Failed
}

// Merge returns the element-wise sum of r and other.
func (r RunResult) Merge(other RunResult) RunResult {
	return RunResult{
		OK:      r.OK + other.OK,
		Skipped: r.Skipped + other.Skipped,
		Failed:  r.Failed + other.Failed,
	}
}
