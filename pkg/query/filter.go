package query

import (
	"fmt"
	"strings"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
)

// Filter selects records. Zero fields impose no constraint.
type Filter struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	// SheetName must be one of models.KnownSheets.
	SheetName models.SheetName `json:"sheet_name,omitempty"`
	// FinancialType matches exactly; only status records carry one.
	FinancialType string `json:"financial_type,omitempty"`
	// ItemCode matches exactly.
	ItemCode string `json:"item_code,omitempty"`
	// ItemCodePrefix matches the code and its descendants: "2.3" selects
	// "2.3" and "2.3.1" but not "2.30".
	ItemCodePrefix string `json:"item_code_prefix,omitempty"`
	// Trade is a case-insensitive substring of the record trade.
	Trade string `json:"trade,omitempty"`
}

// Normalize canonicalizes a user supplied filter: the sheet name is matched
// case-insensitively and text fields are trimmed.
func (f Filter) Normalize() Filter {
	if f.SheetName != "" {
		if name, err := models.ParseSheetName(string(f.SheetName)); err == nil {
			f.SheetName = name
		}
	}
	f.FinancialType = strings.TrimSpace(f.FinancialType)
	f.ItemCode = strings.TrimSpace(f.ItemCode)
	f.ItemCodePrefix = strings.TrimSuffix(strings.TrimSpace(f.ItemCodePrefix), ".")
	f.Trade = strings.TrimSpace(f.Trade)
	return f
}

// Validate reports filters that can never match. The error wraps
// ErrInvalidFilter.
func (f Filter) Validate() error {
	if f.Year != 0 && (f.Year < 1000 || f.Year > 9999) {
		return fmt.Errorf("%w: year %d is not a 4-digit year", ErrInvalidFilter, f.Year)
	}
	if f.Month < 0 || f.Month > 12 {
		return fmt.Errorf("%w: month %d out of range 1-12", ErrInvalidFilter, f.Month)
	}
	if f.SheetName != "" && !f.SheetName.Valid() {
		return fmt.Errorf("%w: unknown sheet %q", ErrInvalidFilter, f.SheetName)
	}
	if f.FinancialType != "" && f.SheetName != "" && f.SheetName.Kind() == models.KindMonthly {
		return fmt.Errorf("%w: sheet %q has no financial types", ErrInvalidFilter, f.SheetName)
	}
	if f.ItemCode != "" && f.ItemCodePrefix != "" {
		return fmt.Errorf("%w: item_code and item_code_prefix are exclusive", ErrInvalidFilter)
	}
	return nil
}

// Match reports whether a record satisfies every set field.
func (f Filter) Match(rec models.FinancialRecord) bool {
	if !f.matchPeriod(rec) {
		return false
	}
	if f.SheetName != "" && rec.SheetName != f.SheetName {
		return false
	}
	if f.FinancialType != "" && rec.FinancialType != f.FinancialType {
		return false
	}
	return f.matchRow(rec)
}

func (f Filter) matchPeriod(rec models.FinancialRecord) bool {
	return (f.Year == 0 || rec.Year == f.Year) && (f.Month == 0 || rec.Month == f.Month)
}

func (f Filter) matchRow(rec models.FinancialRecord) bool {
	if f.ItemCode != "" && rec.ItemCode != f.ItemCode {
		return false
	}
	if f.ItemCodePrefix != "" && !HasCodePrefix(rec.ItemCode, f.ItemCodePrefix) {
		return false
	}
	if f.Trade != "" && !strings.Contains(strings.ToLower(rec.Trade), strings.ToLower(f.Trade)) {
		return false
	}
	return true
}

// HasCodePrefix reports whether code equals prefix or sits below it in the
// item hierarchy.
func HasCodePrefix(code, prefix string) bool {
	return code == prefix || strings.HasPrefix(code, prefix+".")
}

func (f Filter) String() string {
	var parts []string
	if f.Year != 0 {
		parts = append(parts, fmt.Sprintf("year=%d", f.Year))
	}
	if f.Month != 0 {
		parts = append(parts, fmt.Sprintf("month=%d", f.Month))
	}
	if f.SheetName != "" {
		parts = append(parts, fmt.Sprintf("sheet_name=%q", f.SheetName))
	}
	if f.FinancialType != "" {
		parts = append(parts, fmt.Sprintf("financial_type=%q", f.FinancialType))
	}
	if f.ItemCode != "" {
		parts = append(parts, fmt.Sprintf("item_code=%q", f.ItemCode))
	}
	if f.ItemCodePrefix != "" {
		parts = append(parts, fmt.Sprintf("item_code_prefix=%q", f.ItemCodePrefix))
	}
	if f.Trade != "" {
		parts = append(parts, fmt.Sprintf("trade~%q", f.Trade))
	}
	if len(parts) == 0 {
		return "(all records)"
	}
	return strings.Join(parts, " ")
}
