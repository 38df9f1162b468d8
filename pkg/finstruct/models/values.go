package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Values holds the amounts of one record over the fixed column set of its
// sheet kind. Every column is always present; blank source cells are 0.
type Values struct {
	kind    SheetKind
	amounts []float64
}

// NewMonthlyValues builds the value set of a monthly sheet row, in
// MonthlyColumns order.
func NewMonthlyValues(amounts [14]float64) Values {
	return Values{kind: KindMonthly, amounts: sanitize(amounts[:])}
}

// NewStatusValues builds the value set of a Financial Status row, in
// StatusColumns order.
func NewStatusValues(amounts [4]float64) Values {
	return Values{kind: KindStatus, amounts: sanitize(amounts[:])}
}

// ZeroValues returns an all-zero value set for the kind.
func ZeroValues(kind SheetKind) Values {
	return Values{kind: kind, amounts: make([]float64, len(ColumnsFor(kind)))}
}

func sanitize(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[i] = v
	}
	return out
}

// Kind returns the sheet kind the value set belongs to.
func (v Values) Kind() SheetKind {
	return v.kind
}

// Columns returns the column labels in their stable order.
func (v Values) Columns() []Column {
	return ColumnsFor(v.kind)
}

// Amounts returns a copy of the amounts in column order.
func (v Values) Amounts() []float64 {
	out := make([]float64, len(v.Columns()))
	copy(out, v.amounts)
	return out
}

// Get returns the amount of a column. ok is false when the column does not
// belong to this kind.
func (v Values) Get(c Column) (float64, bool) {
	for i, col := range v.Columns() {
		if col == c {
			if i < len(v.amounts) {
				return v.amounts[i], true
			}
			return 0, true
		}
	}
	return 0, false
}

// Map returns the amounts keyed by column label.
func (v Values) Map() map[Column]float64 {
	cols := v.Columns()
	m := make(map[Column]float64, len(cols))
	for i, c := range cols {
		if i < len(v.amounts) {
			m[c] = v.amounts[i]
		} else {
			m[c] = 0
		}
	}
	return m
}

// MarshalJSON writes the amounts as an object in column order.
func (v Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range v.Columns() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(string(c))
		buf.Write(key)
		buf.WriteByte(':')
		amount := 0.0
		if i < len(v.amounts) {
			amount = v.amounts[i]
		}
		buf.WriteString(strconv.FormatFloat(amount, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts either column set and rejects unknown labels.
func (v *Values) UnmarshalJSON(data []byte) error {
	var raw map[Column]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind := KindMonthly
	if _, ok := raw[ColBudgetRevision]; ok {
		kind = KindStatus
	} else if _, ok := raw[ColAuditReportWIP]; ok {
		kind = KindStatus
	}
	cols := ColumnsFor(kind)
	amounts := make([]float64, len(cols))
	known := make(map[Column]bool, len(cols))
	for i, c := range cols {
		amounts[i] = raw[c]
		known[c] = true
	}
	for c := range raw {
		if !known[c] {
			return fmt.Errorf("unexpected %s value column %q", kind, c)
		}
	}
	v.kind = kind
	v.amounts = sanitize(amounts)
	return nil
}
