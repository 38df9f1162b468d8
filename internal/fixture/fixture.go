// Package fixture builds synthetic project report workbooks for tests.
package fixture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/xuri/excelize/v2"
)

// Options shapes a generated report.
type Options struct {
	Company     string
	ProjectCode string
	ProjectName string
	ReportDate  string
	// Factor scales every figure.
	Factor float64
	// WIPHeader is the header text of the Audit Report column.
	WIPHeader string
	// Sheets limits the generated sheets. Empty means all five.
	Sheets []models.SheetName
}

// Default returns the options of a complete, well-formed report.
func Default() Options {
	return Options{
		Company:     "Acme Construction Ltd",
		ProjectCode: "P-001",
		ProjectName: "Harbour Tower",
		ReportDate:  "2025-12-31",
		Factor:      1,
		WIPHeader:   "Audit Report (WIP) J",
	}
}

// Row is one line of the generated data block.
type Row struct {
	Code  string
	Trade string
	Base  float64 // 0 for category headers
}

// Rows are the data rows written to every sheet, in order.
var Rows = []Row{
	{"1", "Income", 0},
	{"1.1", "Contract Works", 100},
	{"1.2", "  -V.O. / C.E.", 10},
	{"2", "Cost", 0},
	{"2.1", "Subcontract", 60},
	{"2.2", "Claim", 5},
	{"3", "Gross Profit", 45},
}

// StatusRecordsPerRow is how many records one Financial Status row yields.
const StatusRecordsPerRow = 4

// MonthlyTotal is the Total column the generator writes for a base figure.
func MonthlyTotal(base, factor float64) float64 {
	return base * factor * 12
}

// StatusAmounts are the four Financial Status figures of a base figure, in
// column order: Budget_Revision, Business_Plan, Audit_Report_WIP, Projection.
func StatusAmounts(base, factor float64) [4]float64 {
	b := base * factor
	return [4]float64{b, b * 1.1, b * 1.05, b * 1.2}
}

// Workbook builds the report in memory.
func Workbook(opts Options) (*excelize.File, error) {
	sheets := opts.Sheets
	if len(sheets) == 0 {
		sheets = models.KnownSheets
	}

	f := excelize.NewFile()
	for i, name := range sheets {
		var err error
		if i == 0 {
			err = f.SetSheetName("Sheet1", string(name))
		} else {
			_, err = f.NewSheet(string(name))
		}
		if err != nil {
			f.Close()
			return nil, err
		}

		if name.Kind() == models.KindStatus {
			err = writeStatus(f, string(name), opts)
		} else {
			err = writeMonthly(f, string(name), opts)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}
	return f, nil
}

// Write saves the report to path.
func Write(path string, opts Options) error {
	f, err := Workbook(opts)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

// WriteTree writes a default workbook at each slash separated path under
// root, creating the period folders.
func WriteTree(root string, rels ...string) error {
	for _, rel := range rels {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := Write(path, Default()); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	return nil
}

func writeStatus(f *excelize.File, sheet string, opts Options) error {
	meta := [][]interface{}{
		{opts.Company},
		{"Project Code:", opts.ProjectCode},
		{"Project Name:", opts.ProjectName},
		{"Report Date:", opts.ReportDate},
		{"Start Date:", "2024-04-01"},
		{"Complete Date:", "TBC"},
		{"Target Complete Date:", "2026-06-30"},
	}
	for i, row := range meta {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	header := []interface{}{
		"Item", "Trade", "Contract Sum", "Variations", "Remarks",
		"Revision as at Nov", "Business Plan", opts.WIPHeader, "Movement", "Projection",
	}
	if err := f.SetSheetRow(sheet, "A11", &header); err != nil {
		return err
	}

	for i, r := range Rows {
		row := []interface{}{r.Code, r.Trade, "", "", ""}
		if r.Base != 0 {
			a := StatusAmounts(r.Base, opts.Factor)
			row = append(row, a[0], a[1], a[2], a[2]-a[1], a[3])
		}
		cell, _ := excelize.CoordinatesToCellName(1, 12+i)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeMonthly(f *excelize.File, sheet string, opts Options) error {
	if err := f.SetCellValue(sheet, "A1", sheet); err != nil {
		return err
	}
	header := []interface{}{"Item", "Trade", "Bal B/F",
		"Apr-25", "May-25", "Jun-25", "Jul-25", "Aug-25", "Sep-25",
		"Oct-25", "Nov-25", "Dec-25", "Jan-26", "Feb-26", "Mar-26", "Total"}
	if err := f.SetSheetRow(sheet, "A2", &header); err != nil {
		return err
	}

	for i, r := range Rows {
		row := []interface{}{r.Code, r.Trade}
		if r.Base != 0 {
			b := r.Base * opts.Factor
			row = append(row, 0)
			for m := 0; m < 12; m++ {
				row = append(row, b)
			}
			row = append(row, MonthlyTotal(r.Base, opts.Factor))
		}
		cell, _ := excelize.CoordinatesToCellName(1, 3+i)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
