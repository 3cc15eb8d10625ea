package reporting

import (
	"io"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/observability"
	"github.com/xkilldash9x/petstore-e2e/internal/scenario"
)

type jsonStep struct {
	Name    string  `json:"name"`
	Status  string  `json:"status"`
	Seconds float64 `json:"seconds"`
	Failure string  `json:"failure,omitempty"`
}

type jsonSpec struct {
	Name      string     `json:"name"`
	Browser   string     `json:"browser,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Started   time.Time  `json:"started"`
	Seconds   float64    `json:"seconds"`
	Failed    bool       `json:"failed"`
	Error     string     `json:"error,omitempty"`
	Steps     []jsonStep `json:"steps"`
}

type jsonSummary struct {
	Specs   int  `json:"specs"`
	Steps   int  `json:"steps"`
	Passed  int  `json:"passed"`
	Failed  int  `json:"failed"`
	Skipped int  `json:"skipped"`
	Success bool `json:"success"`
}

type jsonReport struct {
	Tool    string      `json:"tool"`
	Summary jsonSummary `json:"summary"`
	Specs   []jsonSpec  `json:"specs"`
}

// JSONReporter renders results as a single JSON document. It is safe for
// concurrent use.
type JSONReporter struct {
	writer io.WriteCloser
	logger *zap.Logger

	mu     sync.Mutex
	report jsonReport
}

// NewJSONReporter creates a JSON reporter that owns writer.
func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		logger: observability.GetLogger().Named("json_reporter"),
		report: jsonReport{Tool: ToolName, Specs: []jsonSpec{}},
	}
}

func (r *JSONReporter) Write(result scenario.SpecResult) error {
	spec := jsonSpec{
		Name:      result.Name,
		Browser:   result.Browser,
		SessionID: result.SessionID,
		Started:   result.Started,
		Seconds:   result.Duration.Seconds(),
		Failed:    result.Failed(),
		Error:     result.Error,
		Steps:     make([]jsonStep, 0, len(result.Steps)),
	}
	for _, s := range result.Steps {
		spec.Steps = append(spec.Steps, jsonStep{Name: s.Name, Status: string(s.Status), Seconds: s.Duration.Seconds(), Failure: s.Failure})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	sum := &r.report.Summary
	sum.Specs++
	sum.Steps += len(result.Steps)
	sum.Passed += result.Count(scenario.Passed)
	sum.Failed += result.Count(scenario.Failed)
	sum.Skipped += result.Count(scenario.Skipped)
	r.report.Specs = append(r.report.Specs, spec)
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.Summary.Success = true
	for _, s := range r.report.Specs {
		if s.Failed {
			r.report.Summary.Success = false
		}
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(r.report)
	r.logger.Debug("Wrote JSON report.", zap.Int("specs", r.report.Summary.Specs))
	return finish(r.writer, err)
}
