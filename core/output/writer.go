// Package output writes rendered audit reports to disk.
// Report files are named after the audited host and the run ID, e.g.
// seo_audit_example_com_<run-id>.json.
package output

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/pageaudit/core"
)

const filePrefix = "seo_audit_"

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// WriteReport writes data rendered from report and returns the file path.
func (w *Writer) WriteReport(report *core.AuditReport, data []byte, ext string) (string, error) {
	if report == nil {
		return "", errors.New("output: nil report")
	}
	path := filepath.Join(w.OutputDir, Filename(report, ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// Filename returns the report file name: seo_audit_<host>_<run-id><ext>.
// The run ID part is omitted for reports without run info.
func Filename(report *core.AuditReport, ext string) string {
	parts := []string{hostOf(report.Site.BaseURL)}
	if report.Run != nil && report.Run.ID != "" {
		parts = append(parts, sanitize(report.Run.ID))
	}
	return filePrefix + strings.Join(parts, "_") + ext
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return sanitize(rawURL)
	}
	return sanitize(parsed.Host)
}

// sanitize replaces non-alphanumeric characters with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
