package query

import (
	"errors"
	"fmt"
)

// ErrInvalidFilter is returned for filters that can never be answered,
// such as month 13 or a financial type on a monthly sheet.
var ErrInvalidFilter = errors.New("invalid filter")

// ErrStaleFilter is returned when a named preset matches nothing in a
// period that has data, which means the report labels it relies on moved.
var ErrStaleFilter = errors.New("stale filter")

// StaleFilterError carries the diagnostic of a preset that matched nothing.
type StaleFilterError struct {
	Preset     string
	Diagnostic Diagnostic
}

func (e *StaleFilterError) Error() string {
	return fmt.Sprintf("preset %q matched no records: %s", e.Preset, e.Diagnostic.Message)
}

func (e *StaleFilterError) Unwrap() error {
	return ErrStaleFilter
}
