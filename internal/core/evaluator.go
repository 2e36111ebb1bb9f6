package core

import (
	"errors"
	"fmt"
)

// ErrNilDataset is returned when a component is handed no dataset at all.
// It is the only condition that aborts a cleaning run.
var ErrNilDataset = errors.New("dataset is nil")

// Classification is the threshold-gated decision for one rule.
type Classification string

const (
	// Repairable: violation ratio below threshold, rows go to the repair executor.
	Repairable Classification = "repairable"
	// Untrusted: ratio at or above threshold, rows are quarantined untouched.
	Untrusted Classification = "untrusted"
	// DetectOnly: the rule has no safe repair, violations are always quarantined.
	DetectOnly Classification = "detect_only"
	// Inapplicable: a referenced column is missing, nothing was evaluated.
	Inapplicable Classification = "inapplicable"
)

// ViolationReport is the outcome of evaluating one rule against a dataset.
type ViolationReport struct {
	RuleName       string
	Reason         string
	ViolationCount int
	TotalRows      int
	Ratio          float64
	ViolatingRows  []int // Row indices in dataset order
	Applicable     bool
	MissingColumns []string
}

// Percent returns the ratio as a percentage for display.
func (r ViolationReport) Percent() float64 {
	return r.Ratio * 100
}

// Evaluate applies rule to every row and reports the violations.
// The dataset is not modified. A rule referencing absent columns reports
// zero violations with Applicable=false instead of failing.
func Evaluate(ds *Dataset, rule Rule) (ViolationReport, error) {
	if ds == nil {
		return ViolationReport{}, ErrNilDataset
	}

	report := ViolationReport{
		RuleName:  rule.Name,
		Reason:    rule.Reason,
		TotalRows: ds.Len(),
	}
	if report.Reason == "" {
		report.Reason = ReasonFor(rule.Name)
	}

	if missing := ds.MissingColumns(rule.ColumnA, rule.ColumnB); len(missing) > 0 {
		report.MissingColumns = missing
		return report, nil
	}
	if missing := ds.MissingColumns(rule.Predicate.Columns()...); len(missing) > 0 {
		report.MissingColumns = missing
		return report, nil
	}
	report.Applicable = true

	for i, row := range ds.Rows {
		if rule.Predicate.Violates(row) {
			report.ViolatingRows = append(report.ViolatingRows, i)
		}
	}
	report.ViolationCount = len(report.ViolatingRows)
	report.Ratio = violationRatio(report.ViolationCount, report.TotalRows)

	return report, nil
}

// violationRatio is count/total, defined as 0 for an empty dataset.
func violationRatio(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// Classify decides what happens to a rule's violations.
// threshold is the configured default used when the rule sets none.
func Classify(report ViolationReport, rule Rule, threshold float64) Classification {
	if !report.Applicable {
		return Inapplicable
	}
	if report.Ratio >= rule.EffectiveThreshold(threshold) {
		return Untrusted
	}
	if rule.Repair == RepairNone {
		return DetectOnly
	}
	return Repairable
}

// String summarises the report for logs.
func (r ViolationReport) String() string {
	if !r.Applicable {
		return fmt.Sprintf("%s: inapplicable (missing %v)", r.RuleName, r.MissingColumns)
	}
	return fmt.Sprintf("%s: %d of %d rows (%.2f%%)", r.RuleName, r.ViolationCount, r.TotalRows, r.Percent())
}
