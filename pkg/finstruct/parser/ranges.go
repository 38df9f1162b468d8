package parser

import (
	"fmt"
	"strings"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/xuri/excelize/v2"
)

// ParseCellRange parses a range string like $A$1:$C$9, optionally prefixed
// with a sheet name ('Financial Status'!A1:C9).
func ParseCellRange(ref string) (models.CellRange, error) {
	rangeStr := ref
	if idx := strings.LastIndex(rangeStr, "!"); idx >= 0 {
		rangeStr = rangeStr[idx+1:]
	}

	// Remove $ signs
	rangeStr = strings.ReplaceAll(strings.TrimSpace(rangeStr), "$", "")

	parts := strings.Split(rangeStr, ":")
	if len(parts) != 2 {
		return models.CellRange{}, fmt.Errorf("invalid cell range %q", ref)
	}

	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return models.CellRange{}, fmt.Errorf("invalid cell range %q: %w", ref, err)
	}
	endCol, endRow, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return models.CellRange{}, fmt.Errorf("invalid cell range %q: %w", ref, err)
	}

	if endRow < startRow {
		startRow, endRow = endRow, startRow
	}
	if endCol < startCol {
		startCol, endCol = endCol, startCol
	}

	return models.CellRange{R1: startRow, C1: startCol, R2: endRow, C2: endCol}, nil
}
