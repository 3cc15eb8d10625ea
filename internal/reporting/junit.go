package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/observability"
	"github.com/xkilldash9x/petstore-e2e/internal/scenario"
)

// JUnitReporter renders results as a JUnit XML document, one testsuite per
// spec and one testcase per step. It is safe for concurrent use.
type JUnitReporter struct {
	writer io.WriteCloser
	logger *zap.Logger

	mu    sync.Mutex
	specs []scenario.SpecResult
}

// NewJUnitReporter creates a JUnit reporter that owns writer.
func NewJUnitReporter(writer io.WriteCloser) *JUnitReporter {
	return &JUnitReporter{writer: writer, logger: observability.GetLogger().Named("junit_reporter")}
}

func (r *JUnitReporter) Write(result scenario.SpecResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = append(r.specs, result)
	return nil
}

func (r *JUnitReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("testsuites")
	root.CreateAttr("name", ToolName)

	var tests, failures, skipped int
	var total time.Duration
	for _, spec := range r.specs {
		suite := root.CreateElement("testsuite")
		r.writeSuite(suite, spec)
		tests += len(spec.Steps)
		failures += spec.Count(scenario.Failed)
		skipped += spec.Count(scenario.Skipped)
		total += spec.Duration
	}
	root.CreateAttr("tests", fmt.Sprint(tests))
	root.CreateAttr("failures", fmt.Sprint(failures))
	root.CreateAttr("skipped", fmt.Sprint(skipped))
	root.CreateAttr("time", seconds(total))

	doc.Indent(2)
	_, err := doc.WriteTo(r.writer)
	r.logger.Debug("Wrote JUnit report.", zap.Int("suites", len(r.specs)), zap.Int("tests", tests))
	return finish(r.writer, err)
}

func (r *JUnitReporter) writeSuite(suite *etree.Element, spec scenario.SpecResult) {
	name := spec.Name
	if spec.Browser != "" {
		name = fmt.Sprintf("%s [%s]", spec.Name, spec.Browser)
	}
	suite.CreateAttr("name", name)
	suite.CreateAttr("tests", fmt.Sprint(len(spec.Steps)))
	suite.CreateAttr("failures", fmt.Sprint(spec.Count(scenario.Failed)))
	suite.CreateAttr("skipped", fmt.Sprint(spec.Count(scenario.Skipped)))
	errs := 0
	if spec.Error != "" {
		errs = 1
	}
	suite.CreateAttr("errors", fmt.Sprint(errs))
	suite.CreateAttr("time", seconds(spec.Duration))
	if !spec.Started.IsZero() {
		suite.CreateAttr("timestamp", spec.Started.UTC().Format(time.RFC3339))
	}

	props := suite.CreateElement("properties")
	addProperty(props, "browser", spec.Browser)
	addProperty(props, "session_id", spec.SessionID)

	for _, step := range spec.Steps {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", step.Name)
		tc.CreateAttr("classname", spec.Name)
		tc.CreateAttr("time", seconds(step.Duration))
		switch step.Status {
		case scenario.Failed:
			f := tc.CreateElement("failure")
			f.CreateAttr("message", firstLine(step.Failure))
			f.CreateAttr("type", "AssertionError")
			f.SetText(step.Failure)
		case scenario.Skipped:
			tc.CreateElement("skipped")
		}
	}

	if spec.Error != "" {
		suite.CreateElement("system-err").SetText(spec.Error)
	}
}

func addProperty(props *etree.Element, name, value string) {
	if value == "" {
		return
	}
	p := props.CreateElement("property")
	p.CreateAttr("name", name)
	p.CreateAttr("value", value)
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
