package models

import (
	"errors"
	"fmt"
)

// ErrMalformedRow classifies row-level issues. Rows are still emitted with
// defaulted values; the error only appears in logs and reports.
var ErrMalformedRow = errors.New("malformed row")

// ErrDateNotParsed classifies project dates that yielded no value.
var ErrDateNotParsed = errors.New("date not parsed")

// IssueKind classifies a non-fatal extraction problem.
type IssueKind string

const (
	// IssueMalformedRow marks a row emitted with defaulted values.
	IssueMalformedRow IssueKind = "malformed_row"
	// IssueDateNotParsed marks a project date cell without a recognizable date.
	IssueDateNotParsed IssueKind = "date_not_parsed"
)

// RowIssue records a problem found while reading a row. The row is still
// emitted; the issue only documents what was defaulted.
type RowIssue struct {
	Sheet SheetName `json:"sheet"`
	// Row is the 1-based worksheet row.
	Row int `json:"row"`
	// Column is the canonical column or field name involved, if any.
	Column string    `json:"column,omitempty"`
	Kind   IssueKind `json:"kind"`
	// Message describes the offending cell value.
	Message string `json:"message"`
}

func (i RowIssue) String() string {
	if i.Column != "" {
		return fmt.Sprintf("%s row %d (%s): %s: %s", i.Sheet, i.Row, i.Column, i.Kind, i.Message)
	}
	return fmt.Sprintf("%s row %d: %s: %s", i.Sheet, i.Row, i.Kind, i.Message)
}

// Err returns the issue as an error wrapping the sentinel of its kind.
func (i RowIssue) Err() error {
	switch i.Kind {
	case IssueMalformedRow:
		return fmt.Errorf("%w: %s", ErrMalformedRow, i)
	case IssueDateNotParsed:
		return fmt.Errorf("%w: %s", ErrDateNotParsed, i)
	}
	return errors.New(i.String())
}
