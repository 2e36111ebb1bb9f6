package core

// rule.go defines the declarative consistency checks the evaluator runs.
//
// A Rule never carries executable logic: its predicate is drawn from a
// small closed set of comparison operators and its override derivation from
// a closed set of Derivers. RuleSpec is the serializable form loaded from
// rule files.

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRule is returned when a rule cannot be constructed.
var ErrInvalidRule = errors.New("invalid rule")

// Operator is a comparison between the predicate's left and right sides.
type Operator string

const (
	OpLessThan    Operator = "lt"
	OpGreaterThan Operator = "gt"
	OpNotEqual    Operator = "ne"
)

// RepairMode selects what the repair executor does with violating rows.
type RepairMode string

const (
	RepairNone     RepairMode = "none"
	RepairSwap     RepairMode = "swap"
	RepairOverride RepairMode = "override"
)

// Predicate flags a row as violating when Left Op Right holds.
// Right is a column name unless Constant is set.
type Predicate struct {
	Op       Operator
	Left     string
	Right    string
	Constant *Value
}

// LessThan builds a column-vs-column "<" predicate.
func LessThan(left, right string) Predicate {
	return Predicate{Op: OpLessThan, Left: left, Right: right}
}

// GreaterThan builds a column-vs-column ">" predicate.
func GreaterThan(left, right string) Predicate {
	return Predicate{Op: OpGreaterThan, Left: left, Right: right}
}

// NotEqual builds a column-vs-column "!=" predicate.
func NotEqual(left, right string) Predicate {
	return Predicate{Op: OpNotEqual, Left: left, Right: right}
}

// Against returns a copy of p comparing Left with a constant.
func (p Predicate) Against(c Value) Predicate {
	p.Right = ""
	p.Constant = &c
	return p
}

// Columns returns the columns the predicate reads.
func (p Predicate) Columns() []string {
	if p.Constant != nil {
		return []string{p.Left}
	}
	return []string{p.Left, p.Right}
}

// Violates reports whether row fails the check.
// Null or incomparable operands never violate: the row cannot be judged.
func (p Predicate) Violates(row Row) bool {
	left := row.Get(p.Left)
	right := row.Get(p.Right)
	if p.Constant != nil {
		right = *p.Constant
	}

	cmp, ok := left.Compare(right)
	if !ok {
		return false
	}

	switch p.Op {
	case OpLessThan:
		return cmp < 0
	case OpGreaterThan:
		return cmp > 0
	case OpNotEqual:
		return cmp != 0
	}
	return false
}

// String renders the predicate for logs.
func (p Predicate) String() string {
	right := p.Right
	if p.Constant != nil {
		right = fmt.Sprintf("%q", p.Constant.String())
	}
	sym := map[Operator]string{OpLessThan: "<", OpGreaterThan: ">", OpNotEqual: "!="}[p.Op]
	return fmt.Sprintf("%s %s %s", p.Left, sym, right)
}

// Rule is one declared consistency check.
type Rule struct {
	Name      string     // Display name: "Deaths vs Cases"
	Reason    string     // Machine-readable quarantine reason; derived from Name if empty
	ColumnA   string     // First column the rule is about
	ColumnB   string     // Second column the rule is about
	Predicate Predicate  // Violation test
	Repair    RepairMode // What to do with violating rows when repairable
	Override  *Override  // Required when Repair is RepairOverride
	Threshold float64    // Fraction in [0,1]; 0 uses the configured default
}

// NewRule validates and returns a rule with its reason filled in.
func NewRule(r Rule) (Rule, error) {
	if r.Reason == "" {
		r.Reason = ReasonFor(r.Name)
	}
	if r.Repair == "" {
		r.Repair = RepairNone
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// MustRule is NewRule for package-level definitions. Panics on error.
func MustRule(r Rule) Rule {
	out, err := NewRule(r)
	if err != nil {
		panic(err)
	}
	return out
}

// Validate checks the rule is well formed.
func (r Rule) Validate() error {
	var errs []string

	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if r.ColumnA == "" || r.ColumnB == "" {
		errs = append(errs, "column_a and column_b are required")
	}
	if r.Predicate.Left == "" || (r.Predicate.Right == "" && r.Predicate.Constant == nil) {
		errs = append(errs, "predicate needs a left column and a right column or constant")
	}
	switch r.Predicate.Op {
	case OpLessThan, OpGreaterThan, OpNotEqual:
	default:
		errs = append(errs, fmt.Sprintf("unknown operator %q", r.Predicate.Op))
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("threshold %.3f must be within [0,1]", r.Threshold))
	}

	switch r.Repair {
	case RepairNone, RepairSwap:
		if r.Override != nil {
			errs = append(errs, "override is only valid with repair mode override")
		}
	case RepairOverride:
		if r.Override == nil || r.Override.Column == "" || r.Override.Derive == nil {
			errs = append(errs, "override repair needs a target column and a deriver")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown repair mode %q", r.Repair))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalidRule, r.Name, strings.Join(errs, "; "))
	}
	return nil
}

// Columns returns every column the rule reads or writes.
func (r Rule) Columns() []string {
	seen := map[string]bool{}
	var cols []string
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	add(r.ColumnA)
	add(r.ColumnB)
	for _, c := range r.Predicate.Columns() {
		add(c)
	}
	if r.Override != nil {
		add(r.Override.Column)
		for _, c := range r.Override.Derive.Columns() {
			add(c)
		}
	}
	return cols
}

// EffectiveThreshold returns the rule threshold or def when unset.
func (r Rule) EffectiveThreshold(def float64) float64 {
	if r.Threshold > 0 {
		return r.Threshold
	}
	return def
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ReasonFor derives a stable machine-readable reason from a display name:
// "Deaths vs Cases" becomes "deaths_vs_cases".
func ReasonFor(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return strings.Trim(s, "_")
}
