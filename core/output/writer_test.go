package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gaurav-prasanna/pageaudit/core"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name   string
		report *core.AuditReport
		want   string
	}{
		{
			"host and run id",
			&core.AuditReport{Run: &core.RunInfo{ID: "0b1c-42"}, Site: core.SiteSummary{BaseURL: "https://www.example.com:8080/shop"}},
			"seo_audit_www_example_com_8080_0b1c_42.md",
		},
		{
			"no run info",
			&core.AuditReport{Site: core.SiteSummary{BaseURL: "https://example.com/"}},
			"seo_audit_example_com.md",
		},
		{
			"relative base",
			&core.AuditReport{Site: core.SiteSummary{BaseURL: "localhost"}},
			"seo_audit_localhost.md",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.report, ".md"); got != tt.want {
				t.Errorf("Filename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	report := &core.AuditReport{Run: &core.RunInfo{ID: "r1"}, Site: core.SiteSummary{BaseURL: "https://a.test/"}}
	path, err := w.WriteReport(report, []byte("{}\n"), ".json")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "seo_audit_a_test_r1.json") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "{}\n" {
		t.Errorf("file content = %q, %v", data, err)
	}
	if _, err := w.WriteReport(nil, nil, ".json"); err == nil {
		t.Error("expected error for nil report")
	}
}
