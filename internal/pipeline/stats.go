package pipeline

import (
	"path/filepath"

	"github.com/backmassage/loopforge/internal/display"
)

// Status is the outcome of one item.
type Status string

const (
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusPlanned Status = "planned" // Dry run.
	StatusSkipped Status = "skipped" // Not started because the batch was interrupted.
)

// ItemResult is the outcome of one input.
type ItemResult struct {
	Input    string
	Output   string
	Status   Status
	Duration float64
	Size     int64
	Detail   string
	Err      error
}

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	Job              string
	Total            int
	Done             int
	Planned          int
	Skipped          int
	Failed           int
	TotalOutputBytes int64
	Results          []ItemResult
}

func (s *RunStats) add(r ItemResult) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case StatusDone:
		s.Done++
		s.TotalOutputBytes += r.Size
	case StatusPlanned:
		s.Planned++
	case StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// OK reports whether no item failed.
func (s *RunStats) OK() bool { return s.Failed == 0 }

// Rows converts the results for display.RenderResults.
func (s *RunStats) Rows() []display.ResultRow {
	rows := make([]display.ResultRow, 0, len(s.Results))
	for _, r := range s.Results {
		row := display.ResultRow{
			Input:    filepath.Base(r.Input),
			Status:   string(r.Status),
			Duration: r.Duration,
			Size:     r.Size,
			Detail:   r.Detail,
		}
		if (r.Status == StatusDone || r.Status == StatusPlanned) && r.Output != "" {
			row.Output = filepath.Base(r.Output)
		}
		if r.Err != nil {
			row.Detail = r.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}
