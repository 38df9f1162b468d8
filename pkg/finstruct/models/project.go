package models

import (
	"encoding/json"
	"time"
)

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

// DateLayout is the wire format of Date.
const DateLayout = "2006-01-02"

// NewDate truncates t to its calendar date.
func NewDate(t time.Time) *Date {
	d := Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
	return &d
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON writes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON reads a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ProjectInfo is the metadata block at the top of a Financial Status sheet.
type ProjectInfo struct {
	// SourcePath is the workbook path relative to the source root.
	SourcePath string `json:"source_path"`
	// Year and Month are the reporting period of the workbook.
	Year  int `json:"year"`
	Month int `json:"month"`

	Company     string `json:"company"`
	ProjectCode string `json:"project_code"`
	ProjectName string `json:"project_name"`

	// Dates are nil when the cell held no recognizable date.
	ReportDate         *Date `json:"report_date"`
	StartDate          *Date `json:"start_date"`
	CompleteDate       *Date `json:"complete_date"`
	TargetCompleteDate *Date `json:"target_complete_date"`
}
