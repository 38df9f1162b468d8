package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"", 0, true},
		{"-", 0, true},
		{"123", 123, true},
		{"123.45", 123.45, true},
		{"-100", -100, true},
		{"1,234,567.89", 1234567.89, true},
		{"$1,200", 1200, true},
		{"HK$ 3,000.50", 3000.5, true},
		{"(250)", -250, true},
		{"($1,000.00)", -1000, true},
		{"75-", -75, true},
		{"1.5E+3", 1500, true},
		{" 1 000", 1000, true},
		{"n/a", 0, false},
		{"#REF!", 0, false},
		{"12abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNormalizeItemCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{" 1 ", "1"},
		{"1.1", "1.1"},
		{"1.1000000000000001", "1.1"},
		{"2.2999999999999998", "2.3"},
		{"1E+1", "10"},
		{"A.1", "A.1"},
		{"1.2.3", "1.2.3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeItemCode(tt.input), "input %q", tt.input)
	}
}
