// Package finstruct extracts normalized financial records from project
// report workbooks.
package finstruct

import (
	"github.com/ukaji3/finstruct-go/pkg/finstruct/parser"
	"go.uber.org/zap"
)

// Options configures extraction behavior.
type Options struct {
	// Layouts locates each sheet. If nil, the built-in layouts are used.
	Layouts parser.LayoutSet
	// Logger receives row issues at warn level. If nil, nothing is logged.
	Logger *zap.Logger
}

// DefaultOptions returns default extraction options.
func DefaultOptions() Options {
	return Options{
		Layouts: parser.DefaultLayouts(),
	}
}

func (o Options) layouts() parser.LayoutSet {
	if o.Layouts != nil {
		return o.Layouts
	}
	return parser.DefaultLayouts()
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}
