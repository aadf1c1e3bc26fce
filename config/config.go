// Package config loads run defaults from the environment. A .env file in
// the working directory is read first when present; variables already set
// in the environment win over it. CLI flags override these defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/joho/godotenv"
)

const envPrefix = "PAGEAUDIT_"

// Config holds run defaults.
type Config struct {
	UserAgent         string
	Timeout           time.Duration
	Retries           int
	Concurrency       int
	RenderConcurrency int
	RunTimeout        time.Duration
	RateLimit         float64 // requests per second per host, 0 = unlimited
	RenderMode        core.RenderMode
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		Retries:           2,
		Concurrency:       4,
		RenderConcurrency: 2,
		RenderMode:        core.RenderStatic,
	}
}

// Load reads the given .env files (default ".env"), skipping missing
// ones, then builds a Config from PAGEAUDIT_* variables. Malformed values
// are reported together in one error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a variable lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()
	p := parser{getenv: getenv}

	if v := p.get("USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	p.duration("TIMEOUT", &cfg.Timeout)
	p.duration("RUN_TIMEOUT", &cfg.RunTimeout)
	p.count("RETRIES", &cfg.Retries, 0)
	p.count("CONCURRENCY", &cfg.Concurrency, 1)
	p.count("RENDER_CONCURRENCY", &cfg.RenderConcurrency, 1)
	if v := p.get("RATE_LIMIT"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			p.fail("RATE_LIMIT", v, "want a non-negative number")
		} else {
			cfg.RateLimit = rps
		}
	}
	if v := p.get("RENDER_MODE"); v != "" {
		mode, err := core.ParseRenderMode(v)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%sRENDER_MODE: %w", envPrefix, err))
		} else {
			cfg.RenderMode = mode
		}
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) get(key string) string {
	return strings.TrimSpace(p.getenv(envPrefix + key))
}

func (p *parser) fail(key, val, want string) {
	p.errs = append(p.errs, fmt.Errorf("%s%s=%q: %s", envPrefix, key, val, want))
}

// duration accepts Go durations ("45s", "2m") or whole seconds ("45").
func (p *parser) duration(key string, dst *time.Duration) {
	v := p.get(key)
	if v == "" {
		return
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		*dst = time.Duration(secs) * time.Second
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.fail(key, v, "want a duration such as 30s")
		return
	}
	*dst = d
}

func (p *parser) count(key string, dst *int, minimum int) {
	v := p.get(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < minimum {
		p.fail(key, v, fmt.Sprintf("want an integer >= %d", minimum))
		return
	}
	*dst = n
}
