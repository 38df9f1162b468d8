package models

import "strings"

// FinancialRecord is one normalized line item of a report worksheet.
type FinancialRecord struct {
	// Year is the 4-digit reporting year.
	Year int `json:"year"`
	// Month is the reporting month (1-12).
	Month int `json:"month"`
	// SheetName is the worksheet the row came from.
	SheetName SheetName `json:"sheet_name"`
	// FinancialType is the Financial Status column header the figure was
	// read from, verbatim. Empty for monthly sheets.
	FinancialType string `json:"financial_type,omitempty"`
	// FinancialColumn is the status column FinancialType was bound to.
	// Values carries all four status columns of the row; Amount reads this
	// one. Empty for monthly sheets.
	FinancialColumn Column `json:"financial_column,omitempty"`
	// ItemCode is the dot-delimited hierarchical item code ("2.3.1").
	ItemCode string `json:"item_code"`
	// Trade is the item description. Leading whitespace marks nesting depth
	// and is kept as-is.
	Trade string `json:"trade"`
	// IsCategoryHeader marks top-level grouping rows such as "1 Income".
	IsCategoryHeader bool `json:"is_category_header"`
	// Values holds the amounts of the row's fixed column set.
	Values Values `json:"values"`
}

// Amount returns the figure the record stands for: Total on monthly
// sheets, the record's own financial type column on the status sheet.
func (r FinancialRecord) Amount() float64 {
	if r.SheetName.Kind() == KindMonthly {
		v, _ := r.Values.Get(ColTotal)
		return v
	}
	v, _ := r.Values.Get(r.FinancialColumn)
	return v
}

// IsCategoryCode reports whether an item code is a bare top-level integer.
func IsCategoryCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
