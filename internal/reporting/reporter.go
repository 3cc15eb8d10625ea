package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/petstore-e2e/internal/scenario"
)

// ToolName identifies the suite in rendered reports.
const ToolName = "petstore-e2e"

// Reporter collects spec results and renders them to an output.
type Reporter interface {
	// Write adds one finished spec.
	Write(result scenario.SpecResult) error
	// Close renders the report and closes the underlying writer.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	switch format {
	case "junit", "json":
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	if format == "junit" {
		return NewJUnitReporter(writer), nil
	}
	return NewJSONReporter(writer), nil
}

// WriteAll writes every spec of run to r and closes it.
func WriteAll(r Reporter, run scenario.RunResult) error {
	for _, spec := range run.Specs {
		if err := r.Write(spec); err != nil {
			r.Close()
			return err
		}
	}
	return r.Close()
}

// finish closes w after render, preferring the render error.
func finish(w io.WriteCloser, renderErr error) error {
	closeErr := w.Close()
	if renderErr != nil {
		return fmt.Errorf("failed to render report: %w", renderErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
