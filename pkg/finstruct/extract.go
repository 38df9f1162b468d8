package finstruct

import (
	"fmt"
	"path/filepath"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/parser"
	"go.uber.org/zap"
)

// Extract extracts the report records of a workbook file for one period.
func Extract(path string, year, month int, opts Options) (*models.WorkbookData, error) {
	wb, err := parser.OpenFile(path)
	if err != nil {
		return nil, NewExtractionError("", "open", err)
	}
	defer wb.Close()

	return ExtractWorkbook(wb, filepath.Base(path), year, month, opts)
}

// ExtractWorkbook extracts every known sheet present in an open workbook.
// A known sheet that cannot be located fails the whole workbook, so a file
// never contributes a partial record set.
func ExtractWorkbook(wb parser.Workbook, bookName string, year, month int, opts Options) (*models.WorkbookData, error) {
	layouts := opts.layouts()
	log := opts.logger().With(zap.String("book", bookName), zap.Int("year", year), zap.Int("month", month))

	data := &models.WorkbookData{
		BookName: bookName,
		Year:     year,
		Month:    month,
		Sheets:   make(map[models.SheetName]models.SheetData),
	}

	for _, title := range wb.SheetNames() {
		name, err := models.ParseSheetName(title)
		if err != nil {
			continue
		}
		if _, done := data.Sheets[name]; done {
			continue
		}
		layout, ok := layouts.For(name)
		if !ok {
			continue
		}

		ws, err := wb.Sheet(title)
		if err != nil {
			return nil, NewExtractionError(title, "open", err)
		}

		region, err := parser.Locate(ws, layout)
		if err != nil {
			return nil, NewExtractionError(title, "locate", err)
		}
		region.Sheet = name

		records, issues := parser.ExtractRecords(ws, region, year, month)
		for _, issue := range issues {
			log.Warn("row issue", zap.String("sheet", string(name)), zap.Int("row", issue.Row),
				zap.String("column", issue.Column), zap.String("kind", string(issue.Kind)),
				zap.Error(issue.Err()))
		}

		data.Sheets[name] = models.SheetData{
			Kind:    name.Kind(),
			Region:  region,
			Records: records,
			Issues:  issues,
		}

		if name.Kind() == models.KindStatus && region.Metadata != nil {
			info, infoIssues := parser.ExtractProjectInfo(ws, *region.Metadata)
			info.Year = year
			info.Month = month
			data.Project = &info
			data.ProjectIssues = infoIssues
			for _, issue := range infoIssues {
				log.Warn("project info issue", zap.String("field", issue.Column), zap.Error(issue.Err()))
			}
		}
	}

	if len(data.Sheets) == 0 {
		return nil, NewExtractionError("", "locate", fmt.Errorf("%w in %s", ErrNoKnownSheets, bookName))
	}

	return data, nil
}
