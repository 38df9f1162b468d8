package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/indexer"
	"github.com/ukaji3/finstruct-go/pkg/metrics"
)

// Reason classifies why a query matched nothing.
type Reason string

const (
	// ReasonNoDataForPeriod: nothing is indexed for the requested period.
	ReasonNoDataForPeriod Reason = "no_data_for_period"
	// ReasonSheetNotInPeriod: the period has data but not for that sheet.
	ReasonSheetNotInPeriod Reason = "sheet_not_in_period"
	// ReasonFinancialTypeNotFound: the financial type label is not used in
	// the period, typically a renamed column.
	ReasonFinancialTypeNotFound Reason = "financial_type_not_found"
	// ReasonNoMatchingRows: item code or trade predicates matched no row.
	ReasonNoMatchingRows Reason = "no_matching_rows"
)

// Diagnostic explains an empty result.
type Diagnostic struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
	// Available lists what the narrowed data does hold: periods, sheets or
	// financial type labels depending on Reason.
	Available []string `json:"available,omitempty"`
}

// Result is the outcome of a query. An empty result always carries a
// Diagnostic, so "no data" is never mistaken for a zero figure.
type Result struct {
	Records    []models.FinancialRecord `json:"records"`
	Filter     Filter                   `json:"filter"`
	Generation string                   `json:"generation"`
	Diagnostic *Diagnostic              `json:"diagnostic,omitempty"`
}

// Empty reports whether nothing matched.
func (r Result) Empty() bool {
	return len(r.Records) == 0
}

// Total sums the amounts of the leaf records exactly, so a parent row is
// not counted on top of its children. ok is false when the records span
// more than one sheet or financial type, whose figures do not add up.
func (r Result) Total() (total decimal.Decimal, ok bool) {
	if len(r.Records) == 0 {
		return decimal.Zero, true
	}
	first := r.Records[0]
	for _, rec := range r.Records[1:] {
		if rec.SheetName != first.SheetName || rec.FinancialType != first.FinancialType {
			return decimal.Zero, false
		}
	}
	return sumAmounts(leafRecords(r.Records)), true
}

func sumAmounts(records []models.FinancialRecord) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range records {
		total = total.Add(decimal.NewFromFloat(rec.Amount()))
	}
	return total
}

// Query returns the records matching f in period then document order.
// Invalid filters return an error wrapping ErrInvalidFilter; an empty
// match returns a Result with a Diagnostic and no error.
func (s *Store) Query(f Filter) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("query").Observe(time.Since(start).Seconds())
	}()

	if err := f.Validate(); err != nil {
		metrics.QueryTotal.WithLabelValues(metrics.QueryInvalid).Inc()
		return Result{Filter: f}, err
	}

	snap := s.snapshot()
	res := snap.query(f)
	if res.Empty() {
		metrics.QueryTotal.WithLabelValues(metrics.QueryEmpty).Inc()
	} else {
		metrics.QueryTotal.WithLabelValues(metrics.QueryMatched).Inc()
	}
	return res, nil
}

func (snap *Snapshot) query(f Filter) Result {
	res := Result{Filter: f, Generation: snap.generation, Records: []models.FinancialRecord{}}
	for _, rec := range snap.records {
		if f.Match(rec) {
			res.Records = append(res.Records, rec)
		}
	}
	if res.Empty() {
		d := snap.diagnose(f)
		res.Diagnostic = &d
	}
	return res
}

// diagnose narrows the data one predicate at a time and reports the first
// predicate that empties it.
func (snap *Snapshot) diagnose(f Filter) Diagnostic {
	var inPeriod []models.FinancialRecord
	for _, rec := range snap.records {
		if f.matchPeriod(rec) {
			inPeriod = append(inPeriod, rec)
		}
	}
	if len(inPeriod) == 0 {
		available := make([]string, len(snap.periods))
		for i, p := range snap.periods {
			available[i] = p.String()
		}
		return Diagnostic{
			Reason:    ReasonNoDataForPeriod,
			Message:   fmt.Sprintf("no records indexed for %s", periodLabel(f)),
			Available: available,
		}
	}

	inSheet := inPeriod
	if f.SheetName != "" {
		inSheet = nil
		for _, rec := range inPeriod {
			if rec.SheetName == f.SheetName {
				inSheet = append(inSheet, rec)
			}
		}
		if len(inSheet) == 0 {
			return Diagnostic{
				Reason:    ReasonSheetNotInPeriod,
				Message:   fmt.Sprintf("sheet %q has no records for %s", f.SheetName, periodLabel(f)),
				Available: distinct(inPeriod, func(r models.FinancialRecord) string { return string(r.SheetName) }),
			}
		}
	}

	if f.FinancialType != "" {
		found := false
		for _, rec := range inSheet {
			if rec.FinancialType == f.FinancialType {
				found = true
				break
			}
		}
		if !found {
			return Diagnostic{
				Reason: ReasonFinancialTypeNotFound,
				Message: fmt.Sprintf("financial type %q is not used for %s; the status sheet labels may have changed",
					f.FinancialType, periodLabel(f)),
				Available: distinct(inSheet, func(r models.FinancialRecord) string { return r.FinancialType }),
			}
		}
	}

	return Diagnostic{
		Reason:  ReasonNoMatchingRows,
		Message: fmt.Sprintf("no rows match %s", f),
	}
}

func periodLabel(f Filter) string {
	switch {
	case f.Year != 0 && f.Month != 0:
		return indexer.Period{Year: f.Year, Month: f.Month}.String()
	case f.Year != 0:
		return fmt.Sprintf("year %d", f.Year)
	case f.Month != 0:
		return fmt.Sprintf("month %d of any year", f.Month)
	default:
		return "any period"
	}
}

// distinct returns the non-empty keys of records in first-seen order.
func distinct(records []models.FinancialRecord, key func(models.FinancialRecord) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range records {
		k := strings.TrimSpace(key(rec))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
