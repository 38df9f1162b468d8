package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var amountReplacer = strings.NewReplacer(
	"HK$", "", "US$", "", "$", "",
	"£", "", "€", "", "¥", "", "₹", "",
	",", "", " ", "", "\u00a0", "",
)

// ParseAmount parses a monetary cell. Currency symbols, thousands separators,
// accounting parentheses and trailing minus signs are accepted. Blank cells
// and a lone "-" read as zero. ok is false when the text is not a number;
// the returned amount is then 0.
func ParseAmount(s string) (amount float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "--" {
		return 0, true
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = amountReplacer.Replace(s)
	if len(s) > 1 && strings.HasSuffix(s, "-") {
		neg = !neg
		s = s[:len(s)-1]
	}
	if s == "" || s == "-" {
		return 0, true
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if neg {
		d = d.Neg()
	}
	f := d.InexactFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// normalizeItemCode trims the code and undoes binary float artifacts of
// numeric cells ("1.1000000000000001" becomes "1.1").
func normalizeItemCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if !strings.ContainsAny(s, "eE") {
		if dot := strings.IndexByte(s, '.'); dot < 0 || len(s)-dot-1 <= 6 {
			return s
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(math.Round(f*1e6)/1e6, 'f', -1, 64)
}
