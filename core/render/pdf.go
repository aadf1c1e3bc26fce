package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/jung-kurt/gofpdf"
)

const rowHeight = 6.0

// PDFRenderer renders the report as a PDF document.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// pdfDoc wraps gofpdf with the translator for its cp1252 core fonts.
type pdfDoc struct {
	*gofpdf.Fpdf
	tr func(string) string
}

// Render lays out the summary, site checks, roll-ups, pages and findings.
func (r *PDFRenderer) Render(report *core.AuditReport) ([]byte, error) {
	if report == nil {
		return nil, errNilReport
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	d := &pdfDoc{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	site := report.Site

	d.SetFont("Helvetica", "B", 18)
	d.MultiCell(0, 8, d.tr("SEO audit: "+site.BaseURL), "", "L", false)
	if run := report.Run; run != nil {
		d.SetFont("Helvetica", "I", 9)
		d.SetTextColor(100, 100, 100)
		d.MultiCell(0, 5, fmt.Sprintf("Run %s, started %s, took %s", run.ID,
			run.StartedAt.UTC().Format(time.RFC3339), run.Duration.Round(time.Millisecond)), "", "L", false)
		if run.Partial {
			d.MultiCell(0, 5, "Run deadline reached: queued pages were not fetched.", "", "L", false)
		}
		d.SetTextColor(0, 0, 0)
	}

	d.heading("Summary")
	d.table([]float64{20, 20, 22, 22, 20, 20, 32, 24},
		[]string{"Pages", "Fetched", "Unfetched", "Degraded", "Pass", "Fail", "Inapplicable", "Error"},
		[][]string{{itoa(site.Pages), itoa(site.Fetched), itoa(site.Unfetched), itoa(site.Degraded),
			itoa(site.Totals.Pass), itoa(site.Totals.Fail), itoa(site.Totals.Inapplicable), itoa(site.Totals.Error)}})
	d.SetFont("Helvetica", "", 10)
	d.Ln(2)
	d.MultiCell(0, 5, fmt.Sprintf("Sitemap: %s. robots.txt: %s.", found(site.SitemapFound), found(site.RobotsFound)), "", "L", false)

	if len(site.SiteChecks) > 0 {
		d.heading("Site checks")
		rows := make([][]string, 0, len(site.SiteChecks))
		for _, c := range site.SiteChecks {
			rows = append(rows, []string{c.CheckID, string(c.Severity), string(c.Verdict), c.Message})
		}
		d.table([]float64{45, 22, 23, 90}, []string{"Check", "Severity", "Verdict", "Message"}, rows)
	}

	if len(site.RollUps) > 0 {
		d.heading("Checks across pages")
		rows := make([][]string, 0, len(site.RollUps))
		for _, ru := range site.RollUps {
			rows = append(rows, []string{ru.CheckID, string(ru.Scope), itoa(ru.Passed), itoa(ru.Failed),
				itoa(ru.Inapplicable), itoa(ru.Errored), itoa(ru.Unfetched), FormatRate(ru.PassRate)})
		}
		d.table([]float64{52, 18, 16, 16, 22, 18, 20, 18},
			[]string{"Check", "Scope", "Pass", "Fail", "Inapplic.", "Error", "Unfetched", "Rate"}, rows)
	}

	d.heading("Pages")
	rows := make([][]string, 0, len(report.Pages))
	for _, p := range report.Pages {
		status := string(p.Status)
		if p.FetchError != nil {
			status = string(p.FetchError.Kind)
		}
		rows = append(rows, []string{p.URL, status, itoa(p.Totals.Pass), itoa(p.Totals.Fail), itoa(p.Totals.Error)})
	}
	d.table([]float64{100, 26, 18, 18, 18}, []string{"URL", "Status", "Pass", "Fail", "Error"}, rows)

	for _, f := range findings(report) {
		d.heading(f.url)
		d.SetFont("Helvetica", "", 9)
		for _, res := range f.results {
			d.SetFont("Helvetica", "B", 9)
			d.Write(5, d.tr(res.CheckID+" "))
			d.SetFont("Helvetica", "", 9)
			d.Write(5, d.tr(fmt.Sprintf("(%s) %s", res.Severity, inline(describe(res)))))
			d.Ln(5)
		}
	}

	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("building PDF: %w", err)
	}
	var buf bytes.Buffer
	if err := d.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func (d *pdfDoc) heading(text string) {
	d.Ln(4)
	d.SetFont("Helvetica", "B", 13)
	d.MultiCell(0, 7, d.tr(text), "", "L", false)
	d.Ln(1)
}

// table draws a header row and body rows. Cells are clipped to width.
func (d *pdfDoc) table(widths []float64, header []string, rows [][]string) {
	d.SetFont("Helvetica", "B", 9)
	d.SetFillColor(230, 230, 230)
	for i, h := range header {
		d.CellFormat(widths[i], rowHeight, d.tr(h), "1", 0, "L", true, 0, "")
	}
	d.Ln(-1)
	d.SetFont("Helvetica", "", 8)
	for _, r := range rows {
		for i, c := range r {
			d.CellFormat(widths[i], rowHeight, d.clip(inline(c), widths[i]), "1", 0, "L", false, 0, "")
		}
		d.Ln(-1)
	}
}

func (d *pdfDoc) clip(s string, width float64) string {
	s = d.tr(s)
	limit := width - 2
	if d.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && d.GetStringWidth(s+"...") > limit {
		s = s[:len(s)-1]
	}
	return s + "..."
}
