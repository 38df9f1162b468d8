// Package models defines data structures for financial report extraction.
package models

import (
	"fmt"
	"strings"
)

// SheetName identifies one of the worksheets a project report workbook carries.
type SheetName string

const (
	SheetFinancialStatus SheetName = "Financial Status"
	SheetProjection      SheetName = "Projection"
	SheetCommittedCost   SheetName = "Committed Cost"
	SheetAccrual         SheetName = "Accrual"
	SheetCashFlow        SheetName = "Cash Flow"
)

// KnownSheets lists every supported worksheet in workbook order.
var KnownSheets = []SheetName{
	SheetFinancialStatus,
	SheetProjection,
	SheetCommittedCost,
	SheetAccrual,
	SheetCashFlow,
}

// SheetKind is the layout family a worksheet belongs to.
type SheetKind string

const (
	// KindMonthly is a line-item sheet with Bal B/F, twelve fiscal months and a total.
	KindMonthly SheetKind = "monthly"
	// KindStatus is the Financial Status summary sheet.
	KindStatus SheetKind = "status"
)

// Kind returns the layout family of the sheet.
func (s SheetName) Kind() SheetKind {
	if s == SheetFinancialStatus {
		return KindStatus
	}
	return KindMonthly
}

// Valid reports whether s is one of KnownSheets.
func (s SheetName) Valid() bool {
	for _, known := range KnownSheets {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSheetName matches a worksheet title against KnownSheets,
// ignoring case and surrounding whitespace.
func ParseSheetName(s string) (SheetName, error) {
	s = strings.TrimSpace(s)
	for _, known := range KnownSheets {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown sheet name %q", s)
}

// Column is the canonical label of a value column.
type Column string

const (
	ColBalBF Column = "Bal_BF"
	ColApr   Column = "Apr"
	ColMay   Column = "May"
	ColJun   Column = "Jun"
	ColJul   Column = "Jul"
	ColAug   Column = "Aug"
	ColSep   Column = "Sep"
	ColOct   Column = "Oct"
	ColNov   Column = "Nov"
	ColDec   Column = "Dec"
	ColJan   Column = "Jan"
	ColFeb   Column = "Feb"
	ColMar   Column = "Mar"
	ColTotal Column = "Total"

	ColBudgetRevision Column = "Budget_Revision"
	ColBusinessPlan   Column = "Business_Plan"
	ColAuditReportWIP Column = "Audit_Report_WIP"
	ColProjection     Column = "Projection"
)

// MonthlyColumns is the fixed value column set of monthly sheets.
// The fiscal year runs April to March.
var MonthlyColumns = []Column{
	ColBalBF,
	ColApr, ColMay, ColJun, ColJul, ColAug, ColSep,
	ColOct, ColNov, ColDec, ColJan, ColFeb, ColMar,
	ColTotal,
}

// StatusColumns is the fixed value column set of the Financial Status sheet.
var StatusColumns = []Column{
	ColBudgetRevision,
	ColBusinessPlan,
	ColAuditReportWIP,
	ColProjection,
}

// ColumnsFor returns the value column set of a sheet kind.
func ColumnsFor(kind SheetKind) []Column {
	if kind == KindStatus {
		return StatusColumns
	}
	return MonthlyColumns
}

// ParseColumn resolves a canonical column label of a sheet kind.
func ParseColumn(kind SheetKind, s string) (Column, error) {
	for _, c := range ColumnsFor(kind) {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown %s column %q", kind, s)
}
