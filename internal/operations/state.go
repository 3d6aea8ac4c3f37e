package operations

import (
	"time"

	"outletqa/internal/exporter"
	"outletqa/pkg/contracts/domain"
)

// RunStatus represents the overall run status
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunState carries the results of each stage to the next. A run is
// single-threaded, so the state is not locked.
type RunState struct {
	ID        string
	Status    RunStatus
	StartTime time.Time
	EndTime   *time.Time
	Steps     []*StepState
	Error     error

	InputPath  string
	ReportPath string

	Dataset   *domain.Dataset
	Quality   domain.QualityReport
	Groupings []domain.Grouping
	Skipped   []exporter.SkippedGrouping
	Cooling   *domain.Grouping

	TopDischargers *domain.Grouping
}

// NewRunState creates a new run state
func NewRunState(id, inputPath, reportPath string) *RunState {
	return &RunState{
		ID:         id,
		Status:     RunStatusPending,
		StartTime:  time.Now(),
		InputPath:  inputPath,
		ReportPath: reportPath,
	}
}

// Start marks the run as running
func (r *RunState) Start() {
	r.Status = RunStatusRunning
	r.StartTime = time.Now()
}

// Complete marks the run as completed
func (r *RunState) Complete() {
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCompleted
}

// Fail marks the run as failed
func (r *RunState) Fail(err error) {
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	r.Error = err
}

// Duration returns the run time so far
func (r *RunState) Duration() time.Duration {
	if r.EndTime == nil {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// Step returns the state of the step with the given ID
func (r *RunState) Step(id string) *StepState {
	for _, s := range r.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// ReportData assembles what the report writer needs
func (r *RunState) ReportData() exporter.Data {
	source := r.InputPath
	if r.Dataset != nil {
		source = r.Dataset.Source
	}
	return exporter.Data{
		Source:    source,
		Quality:   r.Quality,
		Groupings: r.Groupings,
		Skipped:   r.Skipped,
		Cooling:   r.Cooling,

		TopDischargers: r.TopDischargers,
	}
}
