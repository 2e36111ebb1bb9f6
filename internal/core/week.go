package core

import "fmt"

// Derived column names written by week reconciliation.
const (
	ColumnISOWeek      = "iso_week"
	ColumnWeekIsValid  = "week_is_valid"
	ColumnOriginalWeek = "original_week"
)

// WeekCheck reconciles a declared week-number column with the ISO week of
// a date column.
type WeekCheck struct {
	DateColumn string  // e.g. "reporting_date"
	WeekColumn string  // e.g. "week"
	Threshold  float64 // 0 uses the configured default
}

// Rule expresses the reconciliation as an override rule comparing the
// declared week with the derived iso_week column.
func (w WeekCheck) Rule() Rule {
	return MustRule(Rule{
		Name:      "Week Mismatch",
		Reason:    ReasonWeekMismatch,
		ColumnA:   w.WeekColumn,
		ColumnB:   ColumnISOWeek,
		Predicate: NotEqual(w.WeekColumn, ColumnISOWeek),
		Repair:    RepairOverride,
		Override: &Override{
			Column:     w.WeekColumn,
			Derive:     CopyColumn{Column: ColumnISOWeek},
			PreserveAs: ColumnOriginalWeek,
		},
		Threshold: w.Threshold,
	})
}

// Validate checks the columns are named.
func (w WeekCheck) Validate() error {
	if w.DateColumn == "" || w.WeekColumn == "" {
		return fmt.Errorf("%w: week check needs a date column and a week column", ErrInvalidDefinition)
	}
	if w.Threshold < 0 || w.Threshold > 1 {
		return fmt.Errorf("%w: week threshold %.3f must be within [0,1]", ErrInvalidDefinition, w.Threshold)
	}
	return nil
}

// DeriveWeekColumns adds iso_week and week_is_valid to ds.
// week_is_valid is null where either side is null or the week column is
// not numeric. Returns the number of rows with a decidable week.
func DeriveWeekColumns(ds *Dataset, w WeekCheck) int {
	ds.EnsureColumn(ColumnISOWeek, FieldNumeric)
	ds.EnsureColumn(ColumnWeekIsValid, FieldBool)

	derive := ISOWeek{DateColumn: w.DateColumn}
	decided := 0
	for i, old := range ds.Rows {
		row := old.Clone()
		iso, ok := derive.Derive(old)
		if !ok {
			iso = Null()
		}
		row[ColumnISOWeek] = iso

		valid := Null()
		if cmp, ok := old.Get(w.WeekColumn).Compare(iso); ok {
			valid = Bool(cmp == 0)
			decided++
		}
		row[ColumnWeekIsValid] = valid
		ds.Rows[i] = row
	}
	return decided
}
