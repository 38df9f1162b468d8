package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/query"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// money renders an amount with two decimals and thousands separators.
func money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

func amount(rec models.FinancialRecord) string {
	return money(decimal.NewFromFloat(rec.Amount()))
}

func renderResult(w io.Writer, res query.Result) {
	if res.Empty() {
		renderDiagnostic(w, res.Diagnostic)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PERIOD\tSHEET\tTYPE\tCODE\tTRADE\tAMOUNT\t")
	for _, rec := range res.Records {
		fmt.Fprintf(tw, "%04d-%02d\t%s\t%s\t%s\t%s\t%s\t\n",
			rec.Year, rec.Month, rec.SheetName, rec.FinancialType,
			rec.ItemCode, strings.TrimSpace(rec.Trade), amount(rec))
	}
	tw.Flush()
	if total, ok := res.Total(); ok {
		fmt.Fprintf(w, "%d records, total %s\n", len(res.Records), money(total))
		return
	}
	fmt.Fprintf(w, "%d records\n", len(res.Records))
}

func renderDiagnostic(w io.Writer, d *query.Diagnostic) {
	if d == nil {
		fmt.Fprintln(w, "no records")
		return
	}
	fmt.Fprintf(w, "no records (%s): %s\n", d.Reason, d.Message)
	if len(d.Available) > 0 {
		fmt.Fprintf(w, "available: %s\n", strings.Join(d.Available, ", "))
	}
}

func renderPresets(w io.Writer, presets []query.Preset) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range presets {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Description)
	}
	tw.Flush()
}

func renderPreset(w io.Writer, res *query.PresetResult) {
	fmt.Fprintf(w, "%s %04d-%02d\n", res.Preset, res.Year, res.Month)
	if res.Diagnostic != nil {
		renderDiagnostic(w, res.Diagnostic)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, rec := range res.Records {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", rec.ItemCode, strings.TrimSpace(rec.Trade), rec.FinancialType, amount(rec))
	}
	tw.Flush()
	fmt.Fprintf(w, "total %s\n", money(res.Total))
}

func renderSummary(w io.Writer, s query.Summary) {
	fmt.Fprintf(w, "financial summary %04d-%02d\n", s.Year, s.Month)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, line := range s.Lines {
		switch {
		case line.Total != nil:
			fmt.Fprintf(tw, "  %s\t%s\n", line.Preset, money(*line.Total))
		case line.Diagnostic != nil:
			fmt.Fprintf(tw, "  %s\tn/a (%s)\n", line.Preset, line.Diagnostic.Reason)
		default:
			fmt.Fprintf(tw, "  %s\terror: %s\n", line.Preset, line.Error)
		}
	}
	tw.Flush()
}

func renderProjects(w io.Writer, projects []models.ProjectInfo) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "no projects indexed")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PERIOD\tCODE\tNAME\tCOMPANY\tREPORT DATE")
	for _, p := range projects {
		report := "-"
		if p.ReportDate != nil {
			report = p.ReportDate.String()
		}
		fmt.Fprintf(tw, "%04d-%02d\t%s\t%s\t%s\t%s\n", p.Year, p.Month, p.ProjectCode, p.ProjectName, p.Company, report)
	}
	tw.Flush()
}

func renderReport(w io.Writer, r *models.IndexReport) {
	fmt.Fprintf(w, "run %s: %d files scanned, %d extracted, %d reused, %d removed, %d failed\n",
		r.RunID, r.Scanned, r.Reextracted, r.Skipped, r.Removed, r.Failed)
	fmt.Fprintf(w, "%d records, %d row issues, took %s\n", r.Records, r.Issues, r.Duration.Round(time.Millisecond))
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  failed %s: %s\n", f.Path, f.Reason)
	}
}
