package parser

import (
	"fmt"
	"io"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/xuri/excelize/v2"
)

type xlsxWorkbook struct {
	f *excelize.File
}

func openXLSX(r io.Reader) (Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	return &xlsxWorkbook{f: f}, nil
}

func (w *xlsxWorkbook) SheetNames() []string {
	return w.f.GetSheetList()
}

// Sheet reads raw cell values so that amounts are not subject to number
// formats and dates come back as serial numbers.
func (w *xlsxWorkbook) Sheet(name string) (Worksheet, error) {
	rows, err := w.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrFileUnreadable, name, err)
	}

	mergeCells, err := w.f.GetMergeCells(name)
	if err != nil {
		return nil, fmt.Errorf("%w: merged cells of %q: %v", ErrFileUnreadable, name, err)
	}

	var merged []models.CellRange
	for _, mc := range mergeCells {
		c1, r1, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			continue
		}
		c2, r2, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			continue
		}
		merged = append(merged, models.CellRange{R1: r1, C1: c1, R2: r2, C2: c2})
	}

	return NewGrid(name, rows, merged...), nil
}

func (w *xlsxWorkbook) Close() error {
	return w.f.Close()
}
