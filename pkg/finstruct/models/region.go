package models

// CellRange represents 1-based cell coordinate bounds.
type CellRange struct {
	// R1 is the start row (1-based).
	R1 int `json:"r1"`
	// C1 is the start column (1-based).
	C1 int `json:"c1"`
	// R2 is the end row (1-based, inclusive).
	R2 int `json:"r2"`
	// C2 is the end column (1-based, inclusive).
	C2 int `json:"c2"`
}

// Contains reports whether the 1-based cell (row, col) lies in the range.
func (c CellRange) Contains(row, col int) bool {
	return row >= c.R1 && row <= c.R2 && col >= c.C1 && col <= c.C2
}

// ValueColumn binds a canonical column to its worksheet position.
type ValueColumn struct {
	// Column is the canonical label.
	Column Column `json:"column"`
	// Index is the 0-based worksheet column.
	Index int `json:"index"`
	// Header is the header cell text as found in the sheet.
	Header string `json:"header"`
}

// Region is the located layout of one worksheet.
type Region struct {
	// Sheet is the worksheet the region was located in.
	Sheet SheetName `json:"sheet"`
	// HeaderRow is the 0-based row holding the column labels.
	HeaderRow int `json:"header_row"`
	// ItemCol and TradeCol are 0-based column indexes.
	ItemCol  int `json:"item_col"`
	TradeCol int `json:"trade_col"`
	// Columns are the resolved value columns in canonical order.
	Columns []ValueColumn `json:"columns"`
	// FirstDataRow and LastDataRow bound the data rows (0-based, inclusive).
	// LastDataRow < FirstDataRow means the sheet has no data rows.
	FirstDataRow int `json:"first_data_row"`
	LastDataRow  int `json:"last_data_row"`
	// Metadata is the fixed project-info block, set for status sheets only.
	Metadata *CellRange `json:"metadata,omitempty"`
}

// Empty reports whether the region has no data rows.
func (r Region) Empty() bool {
	return r.LastDataRow < r.FirstDataRow
}
