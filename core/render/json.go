package render

import (
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/pageaudit/core"
)

// JSONRenderer writes the report as indented JSON.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render marshals the report. Results are already in report order, so
// the output of two runs over the same pages differs only in run info.
func (r *JSONRenderer) Render(report *core.AuditReport) ([]byte, error) {
	if report == nil {
		return nil, errNilReport
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}
