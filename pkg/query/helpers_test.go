package query

import (
	"github.com/ukaji3/finstruct-go/internal/fixture"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
)

// reportRecords mirrors what extraction yields for a fixture workbook.
func reportRecords(year, month int, factor float64, wipHeader string) []models.FinancialRecord {
	statusHeaders := []string{"Revision as at Nov", "Business Plan", wipHeader, "Projection"}

	var out []models.FinancialRecord
	for _, sheet := range models.KnownSheets {
		for _, row := range fixture.Rows {
			base := models.FinancialRecord{
				Year:             year,
				Month:            month,
				SheetName:        sheet,
				ItemCode:         row.Code,
				Trade:            row.Trade,
				IsCategoryHeader: models.IsCategoryCode(row.Code),
			}
			if sheet.Kind() == models.KindMonthly {
				var amounts [14]float64
				if row.Base != 0 {
					for m := 1; m <= 12; m++ {
						amounts[m] = row.Base * factor
					}
					amounts[13] = fixture.MonthlyTotal(row.Base, factor)
				}
				base.Values = models.NewMonthlyValues(amounts)
				out = append(out, base)
				continue
			}
			values := models.NewStatusValues(fixture.StatusAmounts(row.Base, factor))
			for i, header := range statusHeaders {
				rec := base
				rec.FinancialType = header
				rec.FinancialColumn = models.StatusColumns[i]
				rec.Values = values
				out = append(out, rec)
			}
		}
	}
	return out
}

func project(code string, year, month int) models.ProjectInfo {
	return models.ProjectInfo{
		SourcePath:  "reports/" + code + ".xlsx",
		Year:        year,
		Month:       month,
		Company:     "Acme Construction Ltd",
		ProjectCode: code,
		ProjectName: "Harbour Tower",
	}
}
