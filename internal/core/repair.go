package core

// repair.go implements the bounded, row-local corrections a repairable rule
// may apply. Every repaired row is replaced by a fresh Row so callers holding
// the previous row value keep seeing the original data, and every changed
// cell is recorded as a Change for provenance.

import (
	"fmt"
	"time"
)

// Operation names recorded on Change entries.
const (
	OperationSwap     = "swap"
	OperationOverride = "override"
)

// Change records one cell a repair modified.
type Change struct {
	Row       int    // Row index at repair time
	Column    string // Column that was changed
	Original  Value  // Value before the repair
	New       Value  // Value after the repair
	Operation string // "swap" or "override"
	Reason    string // Rule reason that triggered the change
}

// RepairResult reports what Apply did.
type RepairResult struct {
	Repaired int      // Rows actually changed
	Skipped  []int    // Violating rows left untouched (null operands, failed derivation)
	Changes  []Change // Cell-level provenance
}

// Deriver computes the corrected value for an override repair.
// The set of implementations is closed to this package's types.
type Deriver interface {
	Derive(row Row) (Value, bool)
	Columns() []string
}

// Override describes an override repair.
type Override struct {
	Column     string  // Column that receives the derived value
	Derive     Deriver // How the corrected value is computed
	PreserveAs string  // Optional side column keeping the original values
}

// CopyColumn derives the value of another column.
type CopyColumn struct{ Column string }

func (c CopyColumn) Derive(row Row) (Value, bool) {
	v := row.Get(c.Column)
	return v, !v.IsNull()
}

func (c CopyColumn) Columns() []string { return []string{c.Column} }

// ISOWeek derives the ISO-8601 week number of a date column.
type ISOWeek struct{ DateColumn string }

func (w ISOWeek) Derive(row Row) (Value, bool) {
	v := row.Get(w.DateColumn)
	if v.Kind != KindDate {
		return Null(), false
	}
	return Number(float64(isoWeek(v.Time))), true
}

func (w ISOWeek) Columns() []string { return []string{w.DateColumn} }

// ConstantValue derives a fixed value.
type ConstantValue struct{ Value Value }

func (c ConstantValue) Derive(Row) (Value, bool) { return c.Value, !c.Value.IsNull() }

func (c ConstantValue) Columns() []string { return nil }

func isoWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// Apply performs rule's repair on the violating rows of ds in place.
// Rows outside violating are never touched and row order never changes.
// RepairNone rules return an empty result.
func Apply(ds *Dataset, rule Rule, violating []int) (RepairResult, error) {
	if ds == nil {
		return RepairResult{}, ErrNilDataset
	}
	for _, i := range violating {
		if i < 0 || i >= ds.Len() {
			return RepairResult{}, fmt.Errorf("row index %d out of range [0,%d)", i, ds.Len())
		}
	}

	switch rule.Repair {
	case RepairSwap:
		return applySwap(ds, rule, violating), nil
	case RepairOverride:
		if rule.Override == nil {
			return RepairResult{}, fmt.Errorf("%w %q: override repair without override", ErrInvalidRule, rule.Name)
		}
		return applyOverride(ds, rule, violating), nil
	default:
		return RepairResult{}, nil
	}
}

// applySwap exchanges ColumnA and ColumnB where both are non-null.
func applySwap(ds *Dataset, rule Rule, violating []int) RepairResult {
	var res RepairResult
	a, b := rule.ColumnA, rule.ColumnB

	for _, i := range violating {
		old := ds.Rows[i]
		va, vb := old.Get(a), old.Get(b)
		if va.IsNull() || vb.IsNull() {
			res.Skipped = append(res.Skipped, i)
			continue
		}

		row := old.Clone()
		row[a], row[b] = vb, va
		ds.Rows[i] = row

		res.Repaired++
		res.Changes = append(res.Changes,
			Change{Row: i, Column: a, Original: va, New: vb, Operation: OperationSwap, Reason: rule.Reason},
			Change{Row: i, Column: b, Original: vb, New: va, Operation: OperationSwap, Reason: rule.Reason},
		)
	}
	return res
}

// applyOverride writes the derived value into Override.Column.
func applyOverride(ds *Dataset, rule Rule, violating []int) RepairResult {
	var res RepairResult
	ov := rule.Override

	if ov.PreserveAs != "" {
		preserveColumn(ds, ov.Column, ov.PreserveAs)
	}

	for _, i := range violating {
		old := ds.Rows[i]
		derived, ok := ov.Derive.Derive(old)
		if !ok {
			res.Skipped = append(res.Skipped, i)
			continue
		}
		original := old.Get(ov.Column)
		if original.Equal(derived) {
			continue
		}

		row := old.Clone()
		row[ov.Column] = derived
		ds.Rows[i] = row

		res.Repaired++
		res.Changes = append(res.Changes, Change{
			Row: i, Column: ov.Column, Original: original, New: derived,
			Operation: OperationOverride, Reason: rule.Reason,
		})
	}
	return res
}

// preserveColumn copies src into a side column dst for every row.
func preserveColumn(ds *Dataset, src, dst string) {
	t := FieldText
	if c, ok := ds.Column(src); ok {
		t = c.Type
	}
	ds.EnsureColumn(dst, t)
	for i, old := range ds.Rows {
		row := old.Clone()
		row[dst] = old.Get(src)
		ds.Rows[i] = row
	}
}
