package core

// definition.go describes how one dataset is cleaned. A DatasetDefinition
// is the per-dataset configuration the Cleaner consumes; DatasetSpec and
// RuleSpec are its serializable forms used by rule files and the API.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDefinition is returned when a dataset definition is malformed.
var ErrInvalidDefinition = errors.New("invalid dataset definition")

// DatasetDefinition declares the expected shape and cleaning policy of one
// dataset.
type DatasetDefinition struct {
	Key             string     // Registry key, e.g. "idsp"
	Label           string     // Human-readable name
	FileName        string     // Raw file name; defaults to Key + ".csv"
	ExpectedColumns []string   // Structural validation; empty skips it
	DateColumns     []string   // Coerced to dates before rules run
	Rules           []Rule     // Applied in this order
	Week            *WeekCheck // Optional ISO-week reconciliation
	DedupKey        []string   // Natural key; empty means exact duplicates only

	// Quality report inputs.
	TargetColumn       string              // Class-imbalance check
	ExpectedCategories map[string][]string // Allowed values per categorical column
}

// Validate checks the definition and every rule in it.
func (d DatasetDefinition) Validate() error {
	var errs []string

	if strings.TrimSpace(d.Key) == "" {
		errs = append(errs, "key is required")
	}
	seen := make(map[string]bool, len(d.Rules))
	for _, r := range d.Rules {
		if err := r.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
		if seen[r.Reason] {
			errs = append(errs, fmt.Sprintf("duplicate rule reason %q", r.Reason))
		}
		seen[r.Reason] = true
	}
	if d.Week != nil {
		if err := d.Week.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalidDefinition, d.Key, strings.Join(errs, "; "))
	}
	return nil
}

// DatasetSpec is the serializable form of a DatasetDefinition.
type DatasetSpec struct {
	Key             string     `json:"key"`
	Label           string     `json:"label,omitempty"`
	FileName        string     `json:"file,omitempty"`
	ExpectedColumns []string   `json:"expected_columns,omitempty"`
	DateColumns     []string   `json:"date_columns,omitempty"`
	Rules           []RuleSpec `json:"rules,omitempty"`
	Week            *WeekSpec  `json:"week,omitempty"`
	DedupKey        []string   `json:"dedup_key,omitempty"`

	TargetColumn       string              `json:"target_column,omitempty"`
	ExpectedCategories map[string][]string `json:"expected_categories,omitempty"`
}

// WeekSpec is the serializable form of a WeekCheck.
type WeekSpec struct {
	DateColumn string  `json:"date_column"`
	WeekColumn string  `json:"week_column"`
	Threshold  float64 `json:"threshold,omitempty"`
}

// RuleSpec is the serializable form of a Rule.
// Left and Right default to ColumnA and ColumnB.
type RuleSpec struct {
	Name      string        `json:"name"`
	Reason    string        `json:"reason,omitempty"`
	ColumnA   string        `json:"column_a"`
	ColumnB   string        `json:"column_b"`
	Operator  Operator      `json:"operator"`
	Left      string        `json:"left,omitempty"`
	Right     string        `json:"right,omitempty"`
	Constant  *string       `json:"constant,omitempty"`
	Repair    RepairMode    `json:"repair,omitempty"`
	Override  *OverrideSpec `json:"override,omitempty"`
	Threshold float64       `json:"threshold,omitempty"`
}

// OverrideSpec is the serializable form of an Override. Exactly one of
// CopyFrom, ISOWeekOf and Constant selects the deriver.
type OverrideSpec struct {
	Column     string  `json:"column"`
	CopyFrom   string  `json:"copy_from,omitempty"`
	ISOWeekOf  string  `json:"iso_week_of,omitempty"`
	Constant   *string `json:"constant,omitempty"`
	PreserveAs string  `json:"preserve_as,omitempty"`
}

// Definition converts s into a validated DatasetDefinition.
func (s DatasetSpec) Definition() (DatasetDefinition, error) {
	def := DatasetDefinition{
		Key:             s.Key,
		Label:           s.Label,
		FileName:        s.FileName,
		ExpectedColumns: s.ExpectedColumns,
		DateColumns:     s.DateColumns,
		DedupKey:        s.DedupKey,

		TargetColumn:       s.TargetColumn,
		ExpectedCategories: s.ExpectedCategories,
	}
	if def.Label == "" {
		def.Label = s.Key
	}
	for _, rs := range s.Rules {
		r, err := rs.Rule()
		if err != nil {
			return DatasetDefinition{}, fmt.Errorf("dataset %q: %w", s.Key, err)
		}
		def.Rules = append(def.Rules, r)
	}
	if s.Week != nil {
		def.Week = &WeekCheck{
			DateColumn: s.Week.DateColumn,
			WeekColumn: s.Week.WeekColumn,
			Threshold:  s.Week.Threshold,
		}
	}
	if err := def.Validate(); err != nil {
		return DatasetDefinition{}, err
	}
	return def, nil
}

// Rule converts s into a validated Rule.
func (s RuleSpec) Rule() (Rule, error) {
	left, right := s.Left, s.Right
	if left == "" {
		left = s.ColumnA
	}
	pred := Predicate{Op: s.Operator, Left: left}
	if s.Constant != nil {
		pred = pred.Against(parseConstant(*s.Constant))
	} else {
		if right == "" {
			right = s.ColumnB
		}
		pred.Right = right
	}

	r := Rule{
		Name:      s.Name,
		Reason:    s.Reason,
		ColumnA:   s.ColumnA,
		ColumnB:   s.ColumnB,
		Predicate: pred,
		Repair:    s.Repair,
		Threshold: s.Threshold,
	}

	if s.Override != nil {
		ov, err := s.Override.override()
		if err != nil {
			return Rule{}, fmt.Errorf("%w %q: %v", ErrInvalidRule, s.Name, err)
		}
		r.Override = ov
		if r.Repair == "" {
			r.Repair = RepairOverride
		}
	}

	return NewRule(r)
}

func (s OverrideSpec) override() (*Override, error) {
	ov := &Override{Column: s.Column, PreserveAs: s.PreserveAs}
	set := 0
	if s.CopyFrom != "" {
		ov.Derive = CopyColumn{Column: s.CopyFrom}
		set++
	}
	if s.ISOWeekOf != "" {
		ov.Derive = ISOWeek{DateColumn: s.ISOWeekOf}
		set++
	}
	if s.Constant != nil {
		ov.Derive = ConstantValue{Value: parseConstant(*s.Constant)}
		set++
	}
	if set != 1 {
		return nil, errors.New("override needs exactly one of copy_from, iso_week_of, constant")
	}
	return ov, nil
}

// parseConstant reads a rule-file constant as a number, then a date, then text.
func parseConstant(s string) Value {
	s = strings.TrimSpace(s)
	if f, ok := ParseNumber(s); ok {
		return Number(f)
	}
	if t, ok := ParseDate(s); ok {
		return Date(t)
	}
	return Text(s)
}

// Spec returns the serializable form of d.
func (d DatasetDefinition) Spec() DatasetSpec {
	s := DatasetSpec{
		Key:             d.Key,
		Label:           d.Label,
		FileName:        d.FileName,
		ExpectedColumns: d.ExpectedColumns,
		DateColumns:     d.DateColumns,
		DedupKey:        d.DedupKey,

		TargetColumn:       d.TargetColumn,
		ExpectedCategories: d.ExpectedCategories,
	}
	for _, r := range d.Rules {
		s.Rules = append(s.Rules, r.Spec())
	}
	if d.Week != nil {
		s.Week = &WeekSpec{
			DateColumn: d.Week.DateColumn,
			WeekColumn: d.Week.WeekColumn,
			Threshold:  d.Week.Threshold,
		}
	}
	return s
}

// Spec returns the serializable form of r.
func (r Rule) Spec() RuleSpec {
	s := RuleSpec{
		Name:      r.Name,
		Reason:    r.Reason,
		ColumnA:   r.ColumnA,
		ColumnB:   r.ColumnB,
		Operator:  r.Predicate.Op,
		Left:      r.Predicate.Left,
		Right:     r.Predicate.Right,
		Repair:    r.Repair,
		Threshold: r.Threshold,
	}
	if r.Predicate.Constant != nil {
		c := r.Predicate.Constant.String()
		s.Constant = &c
	}
	if ov := r.Override; ov != nil {
		os := &OverrideSpec{Column: ov.Column, PreserveAs: ov.PreserveAs}
		switch d := ov.Derive.(type) {
		case CopyColumn:
			os.CopyFrom = d.Column
		case ISOWeek:
			os.ISOWeekOf = d.DateColumn
		case ConstantValue:
			c := d.Value.String()
			os.Constant = &c
		}
		s.Override = os
	}
	return s
}
