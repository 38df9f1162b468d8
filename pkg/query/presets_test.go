package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
)

func TestWIPGrossProfit(t *testing.T) {
	store := NewStore(reportRecords(2025, 12, 1, WIPFinancialType), nil, "g")

	res, err := store.WIPGrossProfit(2025, 12)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, WIPFinancialType, res.Records[0].FinancialType)
	assert.Nil(t, res.Diagnostic)
	assert.True(t, res.Total.IsPositive())
	assert.Equal(t, "47.25", res.Total.String())
}

func TestWIPGrossProfitRenamedColumn(t *testing.T) {
	store := NewStore(reportRecords(2025, 12, 1, "Audit Report (WIP) K"), nil, "g")

	res, err := store.WIPGrossProfit(2025, 12)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStaleFilter))

	var stale *StaleFilterError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, PresetWIPGrossProfit, stale.Preset)
	assert.Equal(t, ReasonFinancialTypeNotFound, stale.Diagnostic.Reason)
	assert.Contains(t, stale.Diagnostic.Available, "Audit Report (WIP) K")
}

func TestPresetNoDataForPeriod(t *testing.T) {
	store := NewStore(reportRecords(2025, 12, 1, WIPFinancialType), nil, "g")

	res, err := store.ProjectedGrossProfit(2024, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	require.NotNil(t, res.Diagnostic)
	assert.Equal(t, ReasonNoDataForPeriod, res.Diagnostic.Reason)
	assert.True(t, res.Total.IsZero())
}

func TestPresetTotals(t *testing.T) {
	store := NewStore(reportRecords(2025, 12, 2, WIPFinancialType), nil, "g")

	tests := []struct {
		preset string
		want   string
	}{
		{PresetProjectedGrossProfit, "1080"},
		{PresetCashFlowGrossProfit, "1080"},
		{PresetTotalIncome, "2640"}, // (100 + 10) * 2 * 12; the category row is not a leaf
		{PresetTotalCost, "1560"},   // (60 + 5) * 2 * 12
		{PresetClaims, "120"},
	}
	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			res, err := store.Preset(tt.preset, 2025, 12)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Total.String())
		})
	}
}

func TestPresetDefaultsToLatestPeriod(t *testing.T) {
	var records []models.FinancialRecord
	records = append(records, reportRecords(2025, 11, 1, WIPFinancialType)...)
	records = append(records, reportRecords(2025, 12, 3, WIPFinancialType)...)
	store := NewStore(records, nil, "g")

	res, err := store.CashFlowGrossProfit(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2025, res.Year)
	assert.Equal(t, 12, res.Month)
	assert.Equal(t, "1620", res.Total.String())
}

func TestPresetRequiresFullPeriod(t *testing.T) {
	var records []models.FinancialRecord
	records = append(records, reportRecords(2025, 11, 1, WIPFinancialType)...)
	records = append(records, reportRecords(2025, 12, 1, WIPFinancialType)...)
	store := NewStore(records, nil, "g")

	tests := []struct {
		name        string
		year, month int
	}{
		{"year only", 2025, 0},
		{"month only", 0, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := store.WIPGrossProfit(tt.year, tt.month)
			assert.ErrorIs(t, err, ErrInvalidFilter)
			assert.Nil(t, res)

			_, err = store.FinancialSummary(tt.year, tt.month)
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}

	res, err := store.WIPGrossProfit(2025, 11)
	require.NoError(t, err)
	assert.Equal(t, "47.25", res.Total.String())
}

func TestPresetUnknown(t *testing.T) {
	_, err := NewStore(nil, nil, "g").Preset("net_margin", 2025, 1)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, ok := LookupPreset(PresetClaims)
	assert.True(t, ok)
	assert.Len(t, Presets(), 6)
}

func TestFinancialSummary(t *testing.T) {
	store := NewStore(reportRecords(2025, 12, 1, "Audit Report (WIP) K"), nil, "g")

	summary, err := store.FinancialSummary(2025, 12)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 3)

	projected, wip, cash := summary.Lines[0], summary.Lines[1], summary.Lines[2]
	require.NotNil(t, projected.Total)
	assert.Equal(t, "540", projected.Total.String())
	require.NotNil(t, cash.Total)

	assert.Nil(t, wip.Total)
	assert.NotEmpty(t, wip.Error)
	require.NotNil(t, wip.Diagnostic)
	assert.Equal(t, ReasonFinancialTypeNotFound, wip.Diagnostic.Reason)

	_, err = store.FinancialSummary(2025, 13)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestLeafRecords(t *testing.T) {
	mk := func(code string) models.FinancialRecord {
		return models.FinancialRecord{Year: 2025, Month: 1, SheetName: models.SheetProjection, ItemCode: code}
	}
	leaves := leafRecords([]models.FinancialRecord{mk("2"), mk("2.1"), mk("2.1.1"), mk("2.10"), mk("2.2"), mk("")})
	assert.Equal(t, []string{"2.1.1", "2.10", "2.2", ""}, codes(leaves))
}
