package query

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/metrics"
)

// Preset names.
const (
	PresetProjectedGrossProfit = "projected_gross_profit"
	PresetWIPGrossProfit       = "wip_gross_profit"
	PresetCashFlowGrossProfit  = "cash_flow_gross_profit"
	PresetTotalIncome          = "total_income"
	PresetTotalCost            = "total_cost"
	PresetClaims               = "claims"
)

// WIPFinancialType is the status sheet column the WIP preset reads.
const WIPFinancialType = "Audit Report (WIP) J"

// Preset is a frozen filter for a figure the reports always carry.
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Filter      Filter `json:"filter"`
}

var presets = []Preset{
	{
		Name:        PresetProjectedGrossProfit,
		Description: "Gross profit on the Projection sheet",
		Filter:      Filter{SheetName: models.SheetProjection, Trade: "Gross Profit"},
	},
	{
		Name:        PresetWIPGrossProfit,
		Description: "Gross profit in the audit report (WIP) column of the Financial Status sheet",
		Filter:      Filter{SheetName: models.SheetFinancialStatus, FinancialType: WIPFinancialType, Trade: "Gross Profit"},
	},
	{
		Name:        PresetCashFlowGrossProfit,
		Description: "Gross profit on the Cash Flow sheet",
		Filter:      Filter{SheetName: models.SheetCashFlow, Trade: "Gross Profit"},
	},
	{
		Name:        PresetTotalIncome,
		Description: "Income items (category 1) on the Projection sheet",
		Filter:      Filter{SheetName: models.SheetProjection, ItemCodePrefix: "1"},
	},
	{
		Name:        PresetTotalCost,
		Description: "Cost items (category 2) on the Projection sheet",
		Filter:      Filter{SheetName: models.SheetProjection, ItemCodePrefix: "2"},
	},
	{
		Name:        PresetClaims,
		Description: "Claim lines on the Projection sheet",
		Filter:      Filter{SheetName: models.SheetProjection, Trade: "Claim"},
	},
}

// Presets lists the named presets.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// LookupPreset returns a preset by name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// PresetResult is a preset evaluated for one period.
type PresetResult struct {
	Preset  string                   `json:"preset"`
	Year    int                      `json:"year"`
	Month   int                      `json:"month"`
	Records []models.FinancialRecord `json:"records"`
	// Total sums the leaf records, so a subtotal row and its items are
	// not counted twice.
	Total decimal.Decimal `json:"total"`
	// Diagnostic is set when the period has no data at all.
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
}

// Preset evaluates a named preset for a period. Year and month zero select
// the latest indexed period; giving only one of them is an invalid filter.
// A preset that matches nothing in a period that has data returns a
// *StaleFilterError.
func (s *Store) Preset(name string, year, month int) (*PresetResult, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("preset").Observe(time.Since(start).Seconds())
	}()

	p, ok := LookupPreset(name)
	if !ok {
		metrics.QueryTotal.WithLabelValues(metrics.QueryInvalid).Inc()
		return nil, fmt.Errorf("%w: unknown preset %q", ErrInvalidFilter, name)
	}

	if err := checkPeriod(year, month); err != nil {
		metrics.QueryTotal.WithLabelValues(metrics.QueryInvalid).Inc()
		return nil, err
	}

	snap := s.snapshot()
	if year == 0 && month == 0 && len(snap.periods) > 0 {
		latest := snap.periods[len(snap.periods)-1]
		year, month = latest.Year, latest.Month
	}

	f := p.Filter
	f.Year, f.Month = year, month
	if err := f.Validate(); err != nil {
		metrics.QueryTotal.WithLabelValues(metrics.QueryInvalid).Inc()
		return nil, err
	}

	res := snap.query(f)
	out := &PresetResult{Preset: name, Year: year, Month: month, Records: res.Records, Total: decimal.Zero}

	if res.Empty() {
		if res.Diagnostic.Reason == ReasonNoDataForPeriod {
			metrics.QueryTotal.WithLabelValues(metrics.QueryEmpty).Inc()
			out.Diagnostic = res.Diagnostic
			return out, nil
		}
		metrics.QueryTotal.WithLabelValues(metrics.QueryStale).Inc()
		return nil, &StaleFilterError{Preset: name, Diagnostic: *res.Diagnostic}
	}

	metrics.QueryTotal.WithLabelValues(metrics.QueryMatched).Inc()
	out.Total = sumAmounts(leafRecords(res.Records))
	return out, nil
}

// ProjectedGrossProfit evaluates the projected_gross_profit preset.
func (s *Store) ProjectedGrossProfit(year, month int) (*PresetResult, error) {
	return s.Preset(PresetProjectedGrossProfit, year, month)
}

// WIPGrossProfit evaluates the wip_gross_profit preset.
func (s *Store) WIPGrossProfit(year, month int) (*PresetResult, error) {
	return s.Preset(PresetWIPGrossProfit, year, month)
}

// CashFlowGrossProfit evaluates the cash_flow_gross_profit preset.
func (s *Store) CashFlowGrossProfit(year, month int) (*PresetResult, error) {
	return s.Preset(PresetCashFlowGrossProfit, year, month)
}

// SummaryLine is one preset of a financial summary. Exactly one of Total,
// Diagnostic and Error is meaningful.
type SummaryLine struct {
	Preset     string           `json:"preset"`
	Total      *decimal.Decimal `json:"total,omitempty"`
	Diagnostic *Diagnostic      `json:"diagnostic,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Summary bundles the gross profit figures of a period.
type Summary struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Lines []SummaryLine `json:"lines"`
}

// FinancialSummary evaluates the three gross profit presets for a period.
// A failing preset is reported on its line and does not hide the others.
func (s *Store) FinancialSummary(year, month int) (Summary, error) {
	if err := checkPeriod(year, month); err != nil {
		return Summary{}, err
	}
	if year == 0 && month == 0 {
		if latest, ok := s.LatestPeriod(); ok {
			year, month = latest.Year, latest.Month
		}
	}
	if err := (Filter{Year: year, Month: month}).Validate(); err != nil {
		return Summary{}, err
	}

	summary := Summary{Year: year, Month: month}
	for _, name := range []string{PresetProjectedGrossProfit, PresetWIPGrossProfit, PresetCashFlowGrossProfit} {
		line := SummaryLine{Preset: name}
		res, err := s.Preset(name, year, month)
		switch {
		case err != nil:
			line.Error = err.Error()
			var stale *StaleFilterError
			if errors.As(err, &stale) {
				d := stale.Diagnostic
				line.Diagnostic = &d
			}
		case res.Diagnostic != nil:
			line.Diagnostic = res.Diagnostic
		default:
			total := res.Total
			line.Total = &total
		}
		summary.Lines = append(summary.Lines, line)
	}
	return summary, nil
}

// checkPeriod rejects a period given by year or month alone. Presets total
// one period, never a year or a month across years.
func checkPeriod(year, month int) error {
	if (year == 0) != (month == 0) {
		return fmt.Errorf("%w: year and month must be given together, got year=%d month=%d",
			ErrInvalidFilter, year, month)
	}
	return nil
}

// leafRecords drops records that have descendants in the same group, so
// that totals count each figure once.
func leafRecords(records []models.FinancialRecord) []models.FinancialRecord {
	type group struct {
		year, month int
		sheet       models.SheetName
		ftype       string
	}
	codes := make(map[group][]string)
	for _, rec := range records {
		g := group{rec.Year, rec.Month, rec.SheetName, rec.FinancialType}
		codes[g] = append(codes[g], rec.ItemCode)
	}
	for g := range codes {
		sort.Strings(codes[g])
	}

	var leaves []models.FinancialRecord
	for _, rec := range records {
		g := group{rec.Year, rec.Month, rec.SheetName, rec.FinancialType}
		if rec.ItemCode == "" || !hasDescendant(codes[g], rec.ItemCode) {
			leaves = append(leaves, rec)
		}
	}
	return leaves
}

// hasDescendant reports whether sorted holds a code below parent.
func hasDescendant(sorted []string, parent string) bool {
	prefix := parent + "."
	i := sort.SearchStrings(sorted, prefix)
	return i < len(sorted) && len(sorted[i]) > len(prefix) && sorted[i][:len(prefix)] == prefix
}
