package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gaurav-prasanna/pageaudit/core"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"PAGEAUDIT_USER_AGENT":         "AuditBot/2",
		"PAGEAUDIT_TIMEOUT":            "45",
		"PAGEAUDIT_RUN_TIMEOUT":        "2m",
		"PAGEAUDIT_RETRIES":            "0",
		"PAGEAUDIT_CONCURRENCY":        "8",
		"PAGEAUDIT_RENDER_CONCURRENCY": "3",
		"PAGEAUDIT_RATE_LIMIT":         "2.5",
		"PAGEAUDIT_RENDER_MODE":        "Browser",
	}))
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		UserAgent: "AuditBot/2", Timeout: 45 * time.Second, RunTimeout: 2 * time.Minute,
		Retries: 0, Concurrency: 8, RenderConcurrency: 3, RateLimit: 2.5, RenderMode: core.RenderBrowser,
	}
	if *cfg != want {
		t.Errorf("config = %+v, want %+v", *cfg, want)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *Default() {
		t.Errorf("config = %+v, want defaults", *cfg)
	}
}

func TestFromEnv_Malformed(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{
		"PAGEAUDIT_TIMEOUT":     "soon",
		"PAGEAUDIT_CONCURRENCY": "0",
		"PAGEAUDIT_RATE_LIMIT":  "-1",
		"PAGEAUDIT_RENDER_MODE": "gpu",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"PAGEAUDIT_TIMEOUT", "PAGEAUDIT_CONCURRENCY", "PAGEAUDIT_RATE_LIMIT", "PAGEAUDIT_RENDER_MODE"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("PAGEAUDIT_RETRIES=5\nPAGEAUDIT_CONCURRENCY=6\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PAGEAUDIT_CONCURRENCY", "2")
	t.Setenv("PAGEAUDIT_RETRIES", "")
	os.Unsetenv("PAGEAUDIT_RETRIES")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Retries != 5 {
		t.Errorf("retries = %d, want value from the file", cfg.Retries)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("concurrency = %d, environment should win over the file", cfg.Concurrency)
	}
}
