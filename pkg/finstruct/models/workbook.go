package models

// SheetData represents the extraction result of a single sheet.
type SheetData struct {
	// Kind is the layout family of the sheet.
	Kind SheetKind `json:"kind"`
	// Region is where the header and data rows were found.
	Region Region `json:"region"`
	// Records are the extracted rows in worksheet order.
	Records []FinancialRecord `json:"records"`
	// Issues lists non-fatal problems met while extracting.
	Issues []RowIssue `json:"issues,omitempty"`
}

// WorkbookData represents workbook-level container with per-sheet data.
type WorkbookData struct {
	// BookName is the workbook file name (no path).
	BookName string `json:"book_name"`
	// Year and Month are the reporting period of the workbook.
	Year  int `json:"year"`
	Month int `json:"month"`
	// Sheets maps sheet name to SheetData.
	Sheets map[SheetName]SheetData `json:"sheets"`
	// Project is the Financial Status metadata, nil when that sheet is absent.
	Project *ProjectInfo `json:"project,omitempty"`
	// ProjectIssues lists problems met while reading the metadata block.
	ProjectIssues []RowIssue `json:"project_issues,omitempty"`
}

// Records flattens all sheets in KnownSheets order.
func (w *WorkbookData) Records() []FinancialRecord {
	var out []FinancialRecord
	for _, name := range KnownSheets {
		if sheet, ok := w.Sheets[name]; ok {
			out = append(out, sheet.Records...)
		}
	}
	return out
}

// RecordsOfKind flattens the sheets of one kind in KnownSheets order.
func (w *WorkbookData) RecordsOfKind(kind SheetKind) []FinancialRecord {
	var out []FinancialRecord
	for _, name := range KnownSheets {
		if name.Kind() != kind {
			continue
		}
		if sheet, ok := w.Sheets[name]; ok {
			out = append(out, sheet.Records...)
		}
	}
	return out
}

// IssueCount sums issues across sheets and the metadata block.
func (w *WorkbookData) IssueCount() int {
	n := len(w.ProjectIssues)
	for _, s := range w.Sheets {
		n += len(s.Issues)
	}
	return n
}
