package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gaurav-prasanna/pageaudit/config"
	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/gaurav-prasanna/pageaudit/core/check"
	"github.com/gaurav-prasanna/pageaudit/core/engine"
	"github.com/gaurav-prasanna/pageaudit/core/extract"
	"github.com/gaurav-prasanna/pageaudit/core/fetch"
	"github.com/gaurav-prasanna/pageaudit/core/normalize"
	"github.com/gaurav-prasanna/pageaudit/core/output"
	"github.com/gaurav-prasanna/pageaudit/core/render"
	"github.com/gaurav-prasanna/pageaudit/crawl"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flag variables.
var (
	flagURLs              []string
	flagCatalogues        []string
	flagSitemap           string
	flagParse             bool
	flagRender            string
	flagTimeout           time.Duration
	flagRetries           int
	flagConcurrency       int
	flagRenderConcurrency int
	flagRunTimeout        time.Duration
	flagFormat            string
	flagOutputDir         string
	flagQuiet             bool
)

var auditCmd = &cobra.Command{
	Use:   "audit [url...]",
	Short: "Audit pages and write a report",
	Long: `Audit fetches the given pages, runs the built-in checks plus any checks
from --config catalogues, and writes a report. The first URL is the site's
base URL, used for robots.txt and sitemap discovery.

Defaults come from PAGEAUDIT_* environment variables (a .env file is read
when present); flags override them.

Examples:
  pageaudit audit --url https://example.com
  pageaudit audit --url https://example.com --parse --format markdown
  pageaudit audit https://example.com https://example.com/about --config shop.yaml --format pdf --output_dir ./out
  pageaudit audit --url https://example.com --render browser --render-concurrency 2`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	bindAuditFlags(auditCmd.Flags())
}

func bindAuditFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&flagURLs, "url", nil, "URL to audit (repeatable)")
	fs.StringSliceVar(&flagCatalogues, "config", nil, "YAML check catalogue extending the built-in checks (repeatable)")
	fs.StringVar(&flagSitemap, "sitemap", "", "Sitemap URL (default: discovered)")
	fs.BoolVar(&flagParse, "parse", false, "Also audit same-site URLs listed in the sitemap")
	fs.StringVar(&flagRender, "render", "", "Render mode: static or browser")

	fs.DurationVar(&flagTimeout, "timeout", 0, "Timeout per fetch attempt")
	fs.IntVar(&flagRetries, "retries", 0, "Retries on network errors and timeouts")
	fs.IntVar(&flagConcurrency, "concurrency", 0, "Pages fetched in parallel")
	fs.IntVar(&flagRenderConcurrency, "render-concurrency", 0, "Browser renders in parallel")
	fs.DurationVar(&flagRunTimeout, "run-timeout", 0, "Deadline for the whole run (0 = none)")

	fs.StringVar(&flagFormat, "format", "json", "Report format: json, markdown or pdf")
	fs.StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
	fs.BoolVar(&flagQuiet, "quiet", false, "Do not print the summary table")
}

func runAudit(cmd *cobra.Command, args []string) error {
	urls := append(append([]string{}, flagURLs...), args...)
	if len(urls) == 0 {
		return fmt.Errorf("at least one URL is required (--url)")
	}
	for _, u := range urls {
		if _, err := crawl.Root(u); err != nil {
			return fmt.Errorf("invalid URL: %s (must include scheme, e.g. https://example.com)", u)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts, err := runOptions(cmd, cfg)
	if err != nil {
		return err
	}

	// Catalogue errors are fatal before anything is fetched.
	registry, err := loadRegistry(flagCatalogues)
	if err != nil {
		return err
	}
	renderer, err := render.New(flagFormat)
	if err != nil {
		return err
	}
	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	fetcherOpts := []fetch.Option{
		fetch.WithStatic(fetch.NewHTTP(fetch.WithUserAgent(cfg.UserAgent), fetch.WithRateLimit(cfg.RateLimit))),
	}
	if opts.RenderMode == core.RenderBrowser {
		fetcherOpts = append(fetcherOpts, fetch.WithBrowser(fetch.NewBrowser(cfg.UserAgent)))
	}
	fetcher := fetch.New(log, fetcherOpts...)
	extractor := extract.New(normalize.New(), log)
	resolver := crawl.NewResolver(fetcher, robotsAgent(cfg.UserAgent), log)
	runner := engine.NewRunner(fetcher, extractor, registry, log, engine.WithResolver(resolver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stdout, "Auditing %d URL(s) with %d checks...\n", len(urls), registry.Len())
	report, err := runner.Run(ctx, urls, opts)
	if err != nil {
		return err
	}

	data, err := renderer.Render(report)
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	path, err := writer.WriteReport(report, data, renderer.Extension())
	if err != nil {
		return err
	}

	if !flagQuiet {
		printSummary(os.Stdout, report)
	}
	fmt.Fprintf(os.Stdout, "✓ Written: %s\n", path)
	return nil
}

// runOptions merges environment defaults with the flags that were set.
func runOptions(cmd *cobra.Command, cfg *config.Config) (core.RunOptions, error) {
	opts := core.RunOptions{
		RenderMode:           cfg.RenderMode,
		Timeout:              cfg.Timeout,
		Retries:              cfg.Retries,
		MaxConcurrency:       cfg.Concurrency,
		MaxRenderConcurrency: cfg.RenderConcurrency,
		RunTimeout:           cfg.RunTimeout,
		IncludeSitemapURLs:   flagParse,
		SitemapURL:           flagSitemap,
	}
	flags := cmd.Flags()
	if flags.Changed("render") {
		mode, err := core.ParseRenderMode(flagRender)
		if err != nil {
			return opts, err
		}
		opts.RenderMode = mode
	}
	if flags.Changed("timeout") {
		opts.Timeout = flagTimeout
	}
	if flags.Changed("retries") {
		opts.Retries = flagRetries
	}
	if flags.Changed("concurrency") {
		opts.MaxConcurrency = flagConcurrency
	}
	if flags.Changed("render-concurrency") {
		opts.MaxRenderConcurrency = flagRenderConcurrency
	}
	if flags.Changed("run-timeout") {
		opts.RunTimeout = flagRunTimeout
	}

	switch {
	case opts.Timeout <= 0:
		return opts, fmt.Errorf("--timeout must be positive")
	case opts.Retries < 0:
		return opts, fmt.Errorf("--retries must not be negative")
	case opts.MaxConcurrency < 1 || opts.MaxRenderConcurrency < 1:
		return opts, fmt.Errorf("concurrency limits must be at least 1")
	case opts.RunTimeout < 0:
		return opts, fmt.Errorf("--run-timeout must not be negative")
	}
	return opts, nil
}

// loadRegistry resolves the built-in catalogue and the given extension
// files into one registry.
func loadRegistry(paths []string) (*check.Registry, error) {
	catalogues := []check.Catalogue{check.Builtin()}
	for _, p := range paths {
		c, err := check.LoadCatalogueFile(p)
		if err != nil {
			return nil, err
		}
		catalogues = append(catalogues, c)
	}
	registry, err := check.LoadCatalogues(catalogues...)
	if err != nil {
		return nil, fmt.Errorf("loading checks: %w", err)
	}
	log.WithField("checks", registry.Len()).Debug("Check registry loaded")
	return registry, nil
}

// robotsAgent picks the robots.txt group name from a User-Agent string.
func robotsAgent(userAgent string) string {
	if userAgent == "" {
		return "PageAudit"
	}
	return userAgent
}
