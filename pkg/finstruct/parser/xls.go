package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/extrame/xls"
)

// xlsWorkbook reads legacy BIFF workbooks. Merged ranges are not exposed by
// the decoder, so sheets come back without them.
type xlsWorkbook struct {
	wb *xls.WorkBook
}

func openXLS(r io.Reader) (wb Workbook, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}

	// The BIFF decoder panics on some truncated streams.
	defer func() {
		if rec := recover(); rec != nil {
			wb = nil
			err = fmt.Errorf("%w: corrupt xls: %v", ErrFileUnreadable, rec)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	return &xlsWorkbook{wb: book}, nil
}

func (w *xlsWorkbook) SheetNames() []string {
	var names []string
	for i := 0; i < w.wb.NumSheets(); i++ {
		if sheet := w.wb.GetSheet(i); sheet != nil {
			names = append(names, sheet.Name)
		}
	}
	return names
}

func (w *xlsWorkbook) Sheet(name string) (ws Worksheet, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ws = nil
			err = fmt.Errorf("%w: sheet %q: %v", ErrFileUnreadable, name, rec)
		}
	}()

	for i := 0; i < w.wb.NumSheets(); i++ {
		sheet := w.wb.GetSheet(i)
		if sheet == nil || sheet.Name != name {
			continue
		}
		rows := make([][]string, 0, int(sheet.MaxRow)+1)
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells[c] = row.Col(c)
			}
			rows = append(rows, cells)
		}
		return NewGrid(name, rows), nil
	}
	return nil, fmt.Errorf("%w: sheet %q not found", ErrFileUnreadable, name)
}

func (w *xlsWorkbook) Close() error {
	return nil
}
