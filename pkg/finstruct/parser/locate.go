package parser

import (
	"fmt"
	"strings"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
)

// maxHeaderGap is how many blank rows may sit between the anchor offset and
// the actual header row.
const maxHeaderGap = 2

// Locate finds the header row, column positions and data row range of a
// worksheet according to its layout.
func Locate(ws Worksheet, layout Layout) (models.Region, error) {
	rows := ws.Rows()
	window := layout.Window
	if window <= 0 {
		window = DefaultWindow
	}

	limit := window + layout.HeaderOffset + maxHeaderGap + 1
	if limit > len(rows) {
		limit = len(rows)
	}
	header := fillMerged(rows, limit, ws.MergedRanges())

	anchorRow := findAnchor(header, window, layout.Anchor)
	if anchorRow < 0 {
		return models.Region{}, fmt.Errorf("%w: %q: none of %q in the first %d rows",
			ErrHeaderNotFound, layout.Sheet, layout.Anchor, window)
	}

	headerRow := anchorRow + layout.HeaderOffset
	for gap := 0; headerRow < len(header) && isBlankRow(header[headerRow]) && gap < maxHeaderGap; gap++ {
		headerRow++
	}
	if headerRow >= len(header) {
		return models.Region{}, fmt.Errorf("%w: %q: no header row below anchor at row %d",
			ErrHeaderNotFound, layout.Sheet, anchorRow+1)
	}
	labels := header[headerRow]

	claimed := make(map[int]bool)
	tradeCol := findLabel(labels, layout.TradeLabels, claimed)
	if tradeCol < 0 {
		return models.Region{}, fmt.Errorf("%w: %q: row %d has no %q column",
			ErrHeaderNotFound, layout.Sheet, headerRow+1, layout.TradeLabels)
	}
	claimed[tradeCol] = true

	itemCol := findLabel(labels, layout.ItemLabels, claimed)
	if itemCol < 0 {
		if tradeCol == 0 {
			return models.Region{}, fmt.Errorf("%w: %q: row %d has no item column",
				ErrHeaderNotFound, layout.Sheet, headerRow+1)
		}
		itemCol = tradeCol - 1
	}
	claimed[itemCol] = true

	columns, err := resolveColumns(labels, layout, claimed)
	if err != nil {
		return models.Region{}, fmt.Errorf("%w: %q: row %d: %v", ErrHeaderNotFound, layout.Sheet, headerRow+1, err)
	}

	first, last := dataExtent(rows, headerRow+1)

	region := models.Region{
		Sheet:        layout.Sheet,
		HeaderRow:    headerRow,
		ItemCol:      itemCol,
		TradeCol:     tradeCol,
		Columns:      columns,
		FirstDataRow: first,
		LastDataRow:  last,
	}
	if layout.MetadataRange != "" {
		rng, err := ParseCellRange(layout.MetadataRange)
		if err != nil {
			return models.Region{}, err
		}
		region.Metadata = &rng
	}
	return region, nil
}

func resolveColumns(labels []string, layout Layout, claimed map[int]bool) ([]models.ValueColumn, error) {
	columns := make([]models.ValueColumn, 0, len(layout.Columns))
	var missing []string
	for _, spec := range layout.Columns {
		idx := findLabel(labels, spec.Labels, claimed)
		if idx < 0 && spec.Fallback != nil && *spec.Fallback < len(labels) && !claimed[*spec.Fallback] {
			idx = *spec.Fallback
		}
		if idx < 0 {
			missing = append(missing, string(spec.Column))
			continue
		}
		claimed[idx] = true

		headerText := strings.TrimSpace(strings.Join(strings.Fields(cellAt(labels, idx)), " "))
		if headerText == "" {
			headerText = strings.ReplaceAll(string(spec.Column), "_", " ")
		}
		columns = append(columns, models.ValueColumn{Column: spec.Column, Index: idx, Header: headerText})
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns %v", missing)
	}
	return columns, nil
}

// findAnchor returns the first row within the window holding an anchor
// label, or -1.
func findAnchor(rows [][]string, window int, anchors []string) int {
	for r := 0; r < window && r < len(rows); r++ {
		for _, v := range rows[r] {
			for _, a := range anchors {
				if anchorMatches(v, a) {
					return r
				}
			}
		}
	}
	return -1
}

// findLabel returns the leftmost unclaimed column whose header matches one of
// the labels, trying labels in order of preference.
func findLabel(row []string, labels []string, claimed map[int]bool) int {
	for _, label := range labels {
		for c, v := range row {
			if claimed[c] {
				continue
			}
			if labelMatches(v, label) {
				return c
			}
		}
	}
	return -1
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRight(s, ": ")
}

// labelMatches accepts the label as a prefix of the header text, so "Apr"
// matches "Apr-25" and "Audit Report" matches "Audit Report (WIP) J".
func labelMatches(text, label string) bool {
	t, l := normalizeLabel(text), normalizeLabel(label)
	if t == "" || l == "" {
		return false
	}
	return strings.HasPrefix(t, l)
}

// anchorMatches requires the label to be the whole cell or its first words.
func anchorMatches(text, label string) bool {
	t, l := normalizeLabel(text), normalizeLabel(label)
	if t == "" || l == "" {
		return false
	}
	return t == l || strings.HasPrefix(t, l+" ") || strings.HasPrefix(t, l+"(")
}

// dataExtent skips blank rows after the header and returns the 0-based
// inclusive range up to the first fully blank row or the end of the sheet.
func dataExtent(rows [][]string, start int) (first, last int) {
	first = start
	for first < len(rows) && isBlankRow(rows[first]) {
		first++
	}
	last = first - 1
	for r := first; r < len(rows) && !isBlankRow(rows[r]); r++ {
		last = r
	}
	return first, last
}

// fillMerged copies the first limit rows and spreads the value of each
// merged block over every cell it covers.
func fillMerged(rows [][]string, limit int, merged []models.CellRange) [][]string {
	out := make([][]string, limit)
	for r := 0; r < limit; r++ {
		out[r] = append([]string(nil), rows[r]...)
	}
	for _, m := range merged {
		top, left := m.R1-1, m.C1-1
		if top < 0 || left < 0 || top >= limit {
			continue
		}
		value := cell(rows, top, left)
		if strings.TrimSpace(value) == "" {
			continue
		}
		for r := top; r <= m.R2-1 && r < limit; r++ {
			for c := left; c <= m.C2-1; c++ {
				for len(out[r]) <= c {
					out[r] = append(out[r], "")
				}
				if strings.TrimSpace(out[r][c]) == "" {
					out[r][c] = value
				}
			}
		}
	}
	return out
}

func cellAt(row []string, c int) string {
	if c < 0 || c >= len(row) {
		return ""
	}
	return row[c]
}
