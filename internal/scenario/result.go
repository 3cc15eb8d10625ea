package scenario

import "time"

// Status is the outcome of a step.
type Status string

const (
	Passed  Status = "passed"
	Failed  Status = "failed"
	Skipped Status = "skipped"
)

// StepResult is the outcome of a single step.
type StepResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration"`
	Failure  string        `json:"failure,omitempty"`
}

// SpecResult is the outcome of one spec against one browser session.
type SpecResult struct {
	Name      string        `json:"name"`
	Browser   string        `json:"browser"`
	SessionID string        `json:"session_id,omitempty"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	Steps     []StepResult  `json:"steps"`
	// Error holds a setup, hook or teardown failure outside any step.
	Error string `json:"error,omitempty"`
}

// Failed reports whether any step failed or the spec errored outside its steps.
func (r SpecResult) Failed() bool {
	if r.Error != "" {
		return true
	}
	for _, s := range r.Steps {
		if s.Status == Failed {
			return true
		}
	}
	return false
}

// Count returns the number of steps with the given status.
func (r SpecResult) Count(status Status) int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}

// RunResult aggregates every spec of a run.
type RunResult struct {
	ID       string        `json:"id"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Specs    []SpecResult  `json:"specs"`
}

// Failed reports whether any spec failed.
func (r RunResult) Failed() bool {
	for _, s := range r.Specs {
		if s.Failed() {
			return true
		}
	}
	return false
}
