package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/xuri/excelize/v2"
)

var isoDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

type infoField int

const (
	fieldNone infoField = iota
	fieldProjectCode
	fieldProjectName
	fieldReportDate
	fieldStartDate
	fieldCompleteDate
	fieldTargetCompleteDate
)

// Longer labels first: "Target Complete Date" must win over "Complete Date".
var infoLabels = []struct {
	label string
	field infoField
}{
	{"target complete date", fieldTargetCompleteDate},
	{"complete date", fieldCompleteDate},
	{"project code", fieldProjectCode},
	{"project name", fieldProjectName},
	{"report date", fieldReportDate},
	{"start date", fieldStartDate},
}

var fieldNames = map[infoField]string{
	fieldReportDate:         "report_date",
	fieldStartDate:          "start_date",
	fieldCompleteDate:       "complete_date",
	fieldTargetCompleteDate: "target_complete_date",
}

// ExtractProjectInfo reads the fixed metadata block of a Financial Status
// sheet. The company name is the first cell of the block; the other fields
// follow a "Label:" cell, either after the colon or in the next non-empty
// cell of the row. Date cells without a recognizable date yield nil and an
// issue; extraction itself never fails.
func ExtractProjectInfo(ws Worksheet, rng models.CellRange) (models.ProjectInfo, []models.RowIssue) {
	rows := ws.Rows()
	sheet := models.SheetName(ws.Name())

	var (
		info   models.ProjectInfo
		issues []models.RowIssue
	)

	for c := rng.C1 - 1; c <= rng.C2-1; c++ {
		if v := strings.TrimSpace(cell(rows, rng.R1-1, c)); v != "" && matchInfoLabel(v) == fieldNone {
			info.Company = v
			break
		}
	}

	for r := rng.R1 - 1; r <= rng.R2-1; r++ {
		for c := rng.C1 - 1; c <= rng.C2-1; c++ {
			text := strings.TrimSpace(cell(rows, r, c))
			field := matchInfoLabel(text)
			if field == fieldNone {
				continue
			}
			value := valueAfterLabel(text)
			for next := c + 1; value == "" && next <= rng.C2-1; next++ {
				value = strings.TrimSpace(cell(rows, r, next))
			}

			switch field {
			case fieldProjectCode:
				info.ProjectCode = value
			case fieldProjectName:
				info.ProjectName = value
			default:
				date, ok := ParseDateCell(value)
				if !ok {
					issues = append(issues, models.RowIssue{
						Sheet:   sheet,
						Row:     r + 1,
						Column:  fieldNames[field],
						Kind:    models.IssueDateNotParsed,
						Message: "no date in " + strconv.Quote(value),
					})
				}
				setDate(&info, field, date)
			}
			break
		}
	}

	return info, issues
}

func setDate(info *models.ProjectInfo, field infoField, d *models.Date) {
	switch field {
	case fieldReportDate:
		info.ReportDate = d
	case fieldStartDate:
		info.StartDate = d
	case fieldCompleteDate:
		info.CompleteDate = d
	case fieldTargetCompleteDate:
		info.TargetCompleteDate = d
	}
}

func matchInfoLabel(text string) infoField {
	norm := normalizeLabel(text)
	for _, l := range infoLabels {
		if strings.HasPrefix(norm, l.label) {
			return l.field
		}
	}
	return fieldNone
}

// valueAfterLabel returns the text following the first colon, if any.
func valueAfterLabel(text string) string {
	if idx := strings.Index(text, ":"); idx >= 0 {
		return strings.TrimSpace(text[idx+1:])
	}
	return ""
}

// ParseDateCell finds the first YYYY-MM-DD date in free text. Cells holding
// a bare number are read as Excel serial dates.
func ParseDateCell(text string) (*models.Date, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	if m := isoDatePattern.FindString(text); m != "" {
		t, err := time.Parse(models.DateLayout, m)
		if err != nil {
			return nil, false
		}
		return models.NewDate(t), true
	}
	if serial, err := strconv.ParseFloat(text, 64); err == nil && serial >= 1 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil, false
		}
		return models.NewDate(t), true
	}
	return nil, false
}
