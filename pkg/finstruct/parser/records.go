package parser

import (
	"fmt"
	"strings"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
)

// ExtractRecords converts the data rows of a located region into records,
// in worksheet order. Rows with both item code and trade blank are
// separators and are skipped; every other row is emitted. Cells that are
// not numbers read as 0 and are reported as issues.
//
// On the Financial Status sheet each row yields one record per financial
// type column, carrying that column's header text as FinancialType. Every
// one of them holds the row's four amounts.
func ExtractRecords(ws Worksheet, region models.Region, year, month int) ([]models.FinancialRecord, []models.RowIssue) {
	rows := ws.Rows()
	kind := region.Sheet.Kind()

	var (
		records []models.FinancialRecord
		issues  []models.RowIssue
	)
	seen := make(map[string]int)

	for r := region.FirstDataRow; r <= region.LastDataRow && r < len(rows); r++ {
		code := normalizeItemCode(cell(rows, r, region.ItemCol))
		trade := strings.TrimRight(cell(rows, r, region.TradeCol), " \t\r\n\u00a0")

		amounts, rowIssues := readAmounts(rows, r, region)

		if code == "" && strings.TrimSpace(trade) == "" {
			if hasFigures(rows, r, region) {
				issues = append(issues, models.RowIssue{
					Sheet:   region.Sheet,
					Row:     r + 1,
					Kind:    models.IssueMalformedRow,
					Message: "figures without item code or trade skipped",
				})
			}
			continue
		}
		issues = append(issues, rowIssues...)

		if code == "" {
			issues = append(issues, models.RowIssue{
				Sheet:   region.Sheet,
				Row:     r + 1,
				Column:  "Item_Code",
				Kind:    models.IssueMalformedRow,
				Message: fmt.Sprintf("blank item code for trade %q", strings.TrimSpace(trade)),
			})
		} else if prev, dup := seen[code]; dup {
			issues = append(issues, models.RowIssue{
				Sheet:   region.Sheet,
				Row:     r + 1,
				Column:  "Item_Code",
				Kind:    models.IssueMalformedRow,
				Message: fmt.Sprintf("item code %q repeats row %d", code, prev),
			})
		} else {
			seen[code] = r + 1
		}

		base := models.FinancialRecord{
			Year:             year,
			Month:            month,
			SheetName:        region.Sheet,
			ItemCode:         code,
			Trade:            trade,
			IsCategoryHeader: models.IsCategoryCode(code) && strings.TrimSpace(trade) != "",
		}

		if kind == models.KindMonthly {
			var fixed [14]float64
			copy(fixed[:], amounts)
			base.Values = models.NewMonthlyValues(fixed)
			records = append(records, base)
			continue
		}

		var fixed [4]float64
		copy(fixed[:], amounts)
		values := models.NewStatusValues(fixed)
		for _, col := range region.Columns {
			rec := base
			rec.FinancialType = col.Header
			rec.FinancialColumn = col.Column
			rec.Values = values
			records = append(records, rec)
		}
	}

	return records, issues
}

func readAmounts(rows [][]string, r int, region models.Region) ([]float64, []models.RowIssue) {
	amounts := make([]float64, len(region.Columns))
	var issues []models.RowIssue
	for i, col := range region.Columns {
		raw := cell(rows, r, col.Index)
		v, ok := ParseAmount(raw)
		if !ok {
			issues = append(issues, models.RowIssue{
				Sheet:   region.Sheet,
				Row:     r + 1,
				Column:  string(col.Column),
				Kind:    models.IssueMalformedRow,
				Message: fmt.Sprintf("non-numeric value %q read as 0", raw),
			})
		}
		amounts[i] = v
	}
	return amounts, issues
}

func hasFigures(rows [][]string, r int, region models.Region) bool {
	for _, col := range region.Columns {
		if v, ok := ParseAmount(cell(rows, r, col.Index)); ok && v != 0 {
			return true
		}
	}
	return false
}
