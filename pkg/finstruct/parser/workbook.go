// Package parser provides worksheet readers, layout location and record
// extraction for project financial report workbooks.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
)

// Worksheet is a read-only grid of raw cell text.
type Worksheet interface {
	// Name is the worksheet title.
	Name() string
	// Rows returns the cells row by row, 0-based. Rows may be ragged.
	Rows() [][]string
	// MergedRanges returns the merged cell blocks of the sheet.
	MergedRanges() []models.CellRange
}

// Workbook gives access to the worksheets of one file.
type Workbook interface {
	SheetNames() []string
	Sheet(name string) (Worksheet, error)
	Close() error
}

// Grid is an in-memory Worksheet.
type Grid struct {
	name   string
	rows   [][]string
	merged []models.CellRange
}

// NewGrid creates a worksheet from raw rows.
func NewGrid(name string, rows [][]string, merged ...models.CellRange) *Grid {
	return &Grid{name: name, rows: rows, merged: merged}
}

func (g *Grid) Name() string                     { return g.name }
func (g *Grid) Rows() [][]string                 { return g.rows }
func (g *Grid) MergedRanges() []models.CellRange { return g.merged }

// cell returns the 0-based cell (r, c) or "" when out of bounds.
func cell(rows [][]string, r, c int) string {
	if r < 0 || r >= len(rows) || c < 0 || c >= len(rows[r]) {
		return ""
	}
	return rows[r][c]
}

// isBlankRow reports whether every cell of the row is empty or whitespace.
func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// IsSpreadsheet reports whether a file name has a supported extension.
// Office lock files ("~$name.xlsx") are rejected.
func IsSpreadsheet(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~") || strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".xlsx", ".xlsm", ".xls":
		return true
	}
	return false
}

// OpenWorkbook decodes a workbook, choosing the reader from the file name.
func OpenWorkbook(name string, r io.Reader) (Workbook, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return openXLSX(r)
	case ".xls":
		return openXLS(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// OpenFile opens a workbook from the local filesystem.
func OpenFile(path string) (Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	defer f.Close()
	return OpenWorkbook(path, f)
}
