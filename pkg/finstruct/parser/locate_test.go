package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
)

func monthlyHeader() []string {
	return []string{"Item", "Trade", "Bal B/F",
		"Apr", "May", "Jun", "Jul", "Aug", "Sep",
		"Oct", "Nov", "Dec", "Jan", "Feb", "Mar", "Total"}
}

func monthlyRow(code, trade string, base string) []string {
	row := []string{code, trade, "0"}
	for i := 0; i < 12; i++ {
		row = append(row, base)
	}
	return append(row, base+"0")
}

func layoutFor(t *testing.T, sheet models.SheetName) Layout {
	t.Helper()
	l, ok := DefaultLayouts().For(sheet)
	require.True(t, ok, "no layout for %q", sheet)
	return l
}

func TestLocateMonthly(t *testing.T) {
	ws := NewGrid("Projection", [][]string{
		{"Projection"},
		monthlyHeader(),
		monthlyRow("1", "Income", ""),
		monthlyRow("1.1", "Contract Works", "10"),
		{},
		{"Prepared by", "QS"},
	})

	region, err := Locate(ws, layoutFor(t, models.SheetProjection))
	require.NoError(t, err)

	assert.Equal(t, 1, region.HeaderRow)
	assert.Equal(t, 0, region.ItemCol)
	assert.Equal(t, 1, region.TradeCol)
	assert.Equal(t, 2, region.FirstDataRow)
	assert.Equal(t, 3, region.LastDataRow, "data stops at the first blank row")
	require.Len(t, region.Columns, len(models.MonthlyColumns))
	for i, col := range region.Columns {
		assert.Equal(t, models.MonthlyColumns[i], col.Column)
		assert.Equal(t, i+2, col.Index)
	}
	assert.Nil(t, region.Metadata)
}

func TestLocateShiftedAnchor(t *testing.T) {
	rows := [][]string{
		{"Acme Construction Ltd"},
		{"Harbour Tower"},
		{},
		{"", "Cash Flow Statement"},
		{"", "Item", "Trade", "Bal B/F", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec", "Jan", "Feb", "Mar", "Total"},
		append([]string{""}, monthlyRow("1.1", "Contract Works", "10")...),
	}

	region, err := Locate(NewGrid("Cash Flow", rows), layoutFor(t, models.SheetCashFlow))
	require.NoError(t, err)

	assert.Equal(t, 4, region.HeaderRow)
	assert.Equal(t, 1, region.ItemCol)
	assert.Equal(t, 2, region.TradeCol)
	assert.Equal(t, 3, region.Columns[0].Index)
	assert.Equal(t, 16, region.Columns[13].Index)
	assert.Equal(t, 5, region.FirstDataRow)
	assert.Equal(t, 5, region.LastDataRow)
}

func TestLocateBlankRowBelowAnchor(t *testing.T) {
	ws := NewGrid("Accrual", [][]string{
		{"Accrual"},
		{},
		monthlyHeader(),
		monthlyRow("2.1", "Subcontract", "5"),
	})

	region, err := Locate(ws, layoutFor(t, models.SheetAccrual))
	require.NoError(t, err)
	assert.Equal(t, 2, region.HeaderRow)
	assert.Equal(t, 3, region.FirstDataRow)
}

func TestLocateMergedHeader(t *testing.T) {
	// "Trade" spans B2:C2 and the status headers are merged over two rows.
	header := []string{"Item", "Trade", "", "", "", "Budget Revision", "Business Plan", "Audit Report (WIP) J", "", "Projection"}
	ws := NewGrid("Financial Status", [][]string{
		{"Acme Construction Ltd"},
		header,
		{"", "", "", "", "", "", "", "", "", ""},
		{"1.1", "Contract Works", "", "", "", "100", "110", "105", "", "120"},
	},
		models.CellRange{R1: 2, C1: 2, R2: 2, C2: 3},
		models.CellRange{R1: 2, C1: 6, R2: 3, C2: 6},
	)

	region, err := Locate(ws, layoutFor(t, models.SheetFinancialStatus))
	require.NoError(t, err)

	assert.Equal(t, 1, region.TradeCol, "leftmost cell of a merged label wins")
	assert.Equal(t, 0, region.ItemCol)
	require.Len(t, region.Columns, len(models.StatusColumns))
	assert.Equal(t, 5, region.Columns[0].Index)
	assert.Equal(t, "Budget Revision", region.Columns[0].Header)
	assert.Equal(t, 7, region.Columns[2].Index)
	assert.Equal(t, "Audit Report (WIP) J", region.Columns[2].Header)
	assert.Equal(t, 9, region.Columns[3].Index)
	assert.Equal(t, 3, region.FirstDataRow)

	require.NotNil(t, region.Metadata)
	assert.Equal(t, models.CellRange{R1: 1, C1: 1, R2: 9, C2: 3}, *region.Metadata)
}

func TestLocateFallbackColumns(t *testing.T) {
	// Month headers are dates rendered as serials, so only positions help.
	header := []string{"Item", "Trade", "", "45748", "45778", "45809", "45839", "45870", "45901",
		"45931", "45962", "45992", "46023", "46054", "46082", "Sum"}
	ws := NewGrid("Committed Cost", [][]string{
		{"Committed Cost"},
		header,
		monthlyRow("2.1", "Subcontract", "5"),
	})

	region, err := Locate(ws, layoutFor(t, models.SheetCommittedCost))
	require.NoError(t, err)
	for i, col := range region.Columns {
		assert.Equal(t, i+2, col.Index, string(col.Column))
	}
	assert.Equal(t, "Bal BF", region.Columns[0].Header, "blank header falls back to the column label")
	assert.Equal(t, "Sum", region.Columns[13].Header)
}

func TestLocateHeaderNotFound(t *testing.T) {
	tests := []struct {
		name  string
		sheet models.SheetName
		rows  [][]string
	}{
		{
			name:  "empty sheet",
			sheet: models.SheetProjection,
			rows:  nil,
		},
		{
			name:  "anchor outside window",
			sheet: models.SheetProjection,
			rows:  append(make([][]string, 20), []string{"Projection"}, monthlyHeader()),
		},
		{
			name:  "no trade column",
			sheet: models.SheetAccrual,
			rows:  [][]string{{"Accrual"}, {"Item", "Works"}},
		},
		{
			name:  "missing status column",
			sheet: models.SheetFinancialStatus,
			rows:  [][]string{{"Item", "Trade", "Budget Revision"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Locate(NewGrid(string(tt.sheet), tt.rows), layoutFor(t, tt.sheet))
			assert.ErrorIs(t, err, ErrHeaderNotFound)
		})
	}
}
