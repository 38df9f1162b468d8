package finstruct

import (
	"errors"
	"fmt"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/parser"
)

// ErrHeaderNotFound indicates a sheet does not match its expected layout.
var ErrHeaderNotFound = parser.ErrHeaderNotFound

// ErrFileUnreadable indicates the workbook could not be opened or decoded.
var ErrFileUnreadable = parser.ErrFileUnreadable

// ErrNoKnownSheets indicates the workbook carries none of the report sheets.
var ErrNoKnownSheets = errors.New("no known report sheets")

// ErrMalformedRow classifies row-level issues. Rows are still emitted with
// defaulted values; the error only appears in logs and reports.
var ErrMalformedRow = models.ErrMalformedRow

// ErrDateNotParsed classifies project dates that yielded no value.
var ErrDateNotParsed = models.ErrDateNotParsed

// ExtractionError represents an error during extraction.
type ExtractionError struct {
	SheetName string
	Component string // "locate", "records", "project_info", "open"
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error in sheet %q (%s): %v", e.SheetName, e.Component, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(sheetName, component string, err error) *ExtractionError {
	return &ExtractionError{
		SheetName: sheetName,
		Component: component,
		Err:       err,
	}
}
