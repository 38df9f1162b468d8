package parser

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"gopkg.in/yaml.v3"
)

//go:embed layouts.yaml
var defaultLayoutsYAML []byte

// DefaultWindow is the number of leading rows searched for an anchor label.
const DefaultWindow = 15

// ColumnSpec maps a canonical value column to the header labels that name it.
type ColumnSpec struct {
	Column models.Column `yaml:"column"`
	Labels []string      `yaml:"labels"`
	// Fallback is the 0-based column used when no header label matches and
	// the header row extends that far.
	// Nil means the column is required to be found by label.
	Fallback *int `yaml:"fallback"`
}

// Layout describes where the header and data of one sheet live.
type Layout struct {
	Sheet models.SheetName `yaml:"sheet"`
	// Anchor labels identify the row the header is positioned from.
	Anchor []string `yaml:"anchor"`
	// Window bounds the anchor search to the first rows of the sheet.
	Window int `yaml:"window"`
	// HeaderOffset is the distance from the anchor row to the header row.
	HeaderOffset int          `yaml:"header_offset"`
	ItemLabels   []string     `yaml:"item_labels"`
	TradeLabels  []string     `yaml:"trade_labels"`
	Columns      []ColumnSpec `yaml:"columns"`
	// MetadataRange is the fixed project-info block ("A1:C9").
	MetadataRange string `yaml:"metadata_range"`
}

// Kind returns the sheet kind of the layout.
func (l Layout) Kind() models.SheetKind {
	return l.Sheet.Kind()
}

// Validate checks that the layout names a known sheet and covers exactly the
// fixed column set of its kind, in order.
func (l Layout) Validate() error {
	if !l.Sheet.Valid() {
		return fmt.Errorf("layout: unknown sheet %q", l.Sheet)
	}
	if len(l.Anchor) == 0 {
		return fmt.Errorf("layout %q: no anchor labels", l.Sheet)
	}
	if len(l.TradeLabels) == 0 {
		return fmt.Errorf("layout %q: no trade labels", l.Sheet)
	}
	if l.HeaderOffset < 0 {
		return fmt.Errorf("layout %q: negative header offset", l.Sheet)
	}
	want := models.ColumnsFor(l.Kind())
	if len(l.Columns) != len(want) {
		return fmt.Errorf("layout %q: %d columns, want %d", l.Sheet, len(l.Columns), len(want))
	}
	for i, spec := range l.Columns {
		if spec.Column != want[i] {
			return fmt.Errorf("layout %q: column %d is %q, want %q", l.Sheet, i, spec.Column, want[i])
		}
		if len(spec.Labels) == 0 && spec.Fallback == nil {
			return fmt.Errorf("layout %q: column %q has neither labels nor fallback", l.Sheet, spec.Column)
		}
	}
	if l.MetadataRange != "" {
		if _, err := ParseCellRange(l.MetadataRange); err != nil {
			return fmt.Errorf("layout %q: %w", l.Sheet, err)
		}
	}
	return nil
}

// LayoutSet holds one layout per known sheet.
type LayoutSet map[models.SheetName]Layout

// For returns the layout of a sheet.
func (s LayoutSet) For(sheet models.SheetName) (Layout, bool) {
	l, ok := s[sheet]
	return l, ok
}

type layoutFile struct {
	Layouts []Layout `yaml:"layouts"`
}

// ParseLayouts decodes and validates a layout document.
func ParseLayouts(data []byte) (LayoutSet, error) {
	var doc layoutFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode layouts: %w", err)
	}
	set := make(LayoutSet, len(doc.Layouts))
	for _, l := range doc.Layouts {
		if l.Window <= 0 {
			l.Window = DefaultWindow
		}
		if err := l.Validate(); err != nil {
			return nil, err
		}
		if _, dup := set[l.Sheet]; dup {
			return nil, fmt.Errorf("layout %q declared twice", l.Sheet)
		}
		set[l.Sheet] = l
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no layouts declared")
	}
	return set, nil
}

// LoadLayouts reads a layout document from disk.
func LoadLayouts(path string) (LayoutSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLayouts(data)
}

// DefaultLayouts returns the built-in layouts of the five report sheets.
func DefaultLayouts() LayoutSet {
	set, err := ParseLayouts(defaultLayoutsYAML)
	if err != nil {
		panic(fmt.Sprintf("parser: embedded layouts: %v", err))
	}
	return set
}
