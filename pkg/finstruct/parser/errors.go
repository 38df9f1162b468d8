package parser

import "errors"

// ErrHeaderNotFound indicates a worksheet does not match its expected layout.
var ErrHeaderNotFound = errors.New("header not found")

// ErrFileUnreadable indicates a workbook could not be opened or decoded.
var ErrFileUnreadable = errors.New("file unreadable")

// ErrUnsupportedFormat indicates a file extension no reader handles.
var ErrUnsupportedFormat = errors.New("unsupported workbook format")
