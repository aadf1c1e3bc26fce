package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/gaurav-prasanna/pageaudit/core/render"
	"github.com/rodaine/table"
)

var verdictColors = map[core.Verdict]*color.Color{
	core.Pass:         color.New(color.FgGreen),
	core.Fail:         color.New(color.FgRed),
	core.Error:        color.New(color.FgYellow),
	core.Inapplicable: color.New(color.Faint),
}

// printSummary writes the site checks and per-check roll-ups as tables.
func printSummary(w io.Writer, report *core.AuditReport) {
	site := report.Site
	header := color.New(color.FgCyan, color.Underline).SprintfFunc()

	fmt.Fprintf(w, "\n%s: %d pages, %d fetched, %d unfetched\n", site.BaseURL, site.Pages, site.Fetched, site.Unfetched)
	if report.Run != nil && report.Run.Partial {
		color.New(color.FgYellow).Fprintln(w, "Run deadline reached: the report is partial")
	}

	if len(site.SiteChecks) > 0 {
		fmt.Fprintln(w)
		tbl := table.New("Site check", "Verdict", "Message").WithHeaderFormatter(header).WithWriter(w)
		for _, c := range site.SiteChecks {
			tbl.AddRow(c.CheckID, verdict(c.Verdict), c.Message)
		}
		tbl.Print()
	}

	if len(site.RollUps) > 0 {
		fmt.Fprintln(w)
		tbl := table.New("Check", "Severity", "Pass", "Fail", "Error", "N/A", "Unfetched", "Pass rate").
			WithHeaderFormatter(header).WithWriter(w)
		for _, ru := range site.RollUps {
			tbl.AddRow(ru.CheckID, ru.Severity, ru.Passed, colorCount(core.Fail, ru.Failed),
				colorCount(core.Error, ru.Errored), ru.Inapplicable, ru.Unfetched, render.FormatRate(ru.PassRate))
		}
		tbl.Print()
	}

	fmt.Fprintf(w, "\nTotals: %s %s %s %s\n",
		verdictColors[core.Pass].Sprintf("%d pass", site.Totals.Pass),
		verdictColors[core.Fail].Sprintf("%d fail", site.Totals.Fail),
		verdictColors[core.Error].Sprintf("%d error", site.Totals.Error),
		verdictColors[core.Inapplicable].Sprintf("%d inapplicable", site.Totals.Inapplicable))
}

func verdict(v core.Verdict) string {
	if c, ok := verdictColors[v]; ok {
		return c.Sprint(v)
	}
	return string(v)
}

func colorCount(v core.Verdict, n int) string {
	if n == 0 {
		return "0"
	}
	return verdictColors[v].Sprint(n)
}
