package profile

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/dataclean/internal/core"
)

// Quality issue kinds.
const (
	IssueMissingValues          = "Missing Values"
	IssueDuplicateRows          = "Duplicate Rows"
	IssueOutliers               = "Outliers"
	IssueInconsistentCategories = "Inconsistent Categories"
	IssueClassImbalance         = "Class Imbalance"
)

// Heuristics used by Quality.
const (
	// OutlierIQRFactor scales the interquartile range to the fences outside
	// which a value is an outlier.
	OutlierIQRFactor = 1.5
	// ImbalanceThreshold is the spread in percentage points between the most
	// and least common target class above which the target is imbalanced.
	ImbalanceThreshold = 40.0
)

// QualityIssue is one finding of a data-quality report.
type QualityIssue struct {
	Table      string   `json:"table"`
	Column     string   `json:"column"` // "ALL" for row-level findings
	Kind       string   `json:"kind"`
	Values     []string `json:"values,omitempty"` // Unexpected categories
	RowCount   int      `json:"row_count"`        // Zero for class imbalance
	Magnitude  float64  `json:"magnitude_pct"`
	Solvable   bool     `json:"solvable"`
	Suggestion string   `json:"suggestion"`
}

// QualityOptions select the optional checks.
type QualityOptions struct {
	TargetColumn       string
	ExpectedCategories map[string][]string
}

// Quality runs the data-quality checks over ds: missing values per column,
// exact duplicate rows, IQR outliers in numeric columns, values outside the
// expected categories and target class imbalance.
func Quality(ds *core.Dataset, opts QualityOptions) []QualityIssue {
	var issues []QualityIssue
	total := ds.Len()
	add := func(col, kind string, count int, magnitude float64, suggestion string, values ...string) {
		issues = append(issues, QualityIssue{
			Table:      ds.Name,
			Column:     col,
			Kind:       kind,
			Values:     values,
			RowCount:   count,
			Magnitude:  round2(magnitude),
			Solvable:   true,
			Suggestion: suggestion,
		})
	}

	for _, c := range ds.Columns {
		missing := 0
		for _, row := range ds.Rows {
			if row.Get(c.Name).IsNull() {
				missing++
			}
		}
		if missing > 0 {
			add(c.Name, IssueMissingValues, missing, pct(missing, total),
				"Impute with mean/median/mode or drop rows")
		}
	}

	if dups := core.CountExactDuplicates(ds); dups > 0 {
		add("ALL", IssueDuplicateRows, dups, pct(dups, total),
			"Drop exact duplicate rows")
	}

	for _, c := range ds.Columns {
		if c.Type != core.FieldNumeric {
			continue
		}
		if n := countOutliers(ds, c.Name); n > 0 {
			add(c.Name, IssueOutliers, n, pct(n, total),
				"Cap, transform, or remove extreme values")
		}
	}

	for _, col := range sortedKeys(opts.ExpectedCategories) {
		if !ds.HasColumn(col) {
			continue
		}
		unexpected, n := unexpectedCategories(ds, col, opts.ExpectedCategories[col])
		if n > 0 {
			add(col, IssueInconsistentCategories, n, pct(n, total),
				"Map or replace with valid categories: "+strings.Join(opts.ExpectedCategories[col], ", "),
				unexpected...)
		}
	}

	if opts.TargetColumn != "" && ds.HasColumn(opts.TargetColumn) {
		if spread, ok := classSpread(ds, opts.TargetColumn); ok && spread > ImbalanceThreshold {
			add(opts.TargetColumn, IssueClassImbalance, 0, spread,
				"Apply resampling: oversampling or undersampling")
		}
	}

	return issues
}

// countOutliers counts cells outside [Q1 - k*IQR, Q3 + k*IQR].
func countOutliers(ds *core.Dataset, col string) int {
	x := numericValues(ds, col)
	if len(x) == 0 {
		return 0
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	q1, q3 := quantile(sorted, 0.25), quantile(sorted, 0.75)
	iqr := q3 - q1
	lo, hi := q1-OutlierIQRFactor*iqr, q3+OutlierIQRFactor*iqr

	n := 0
	for _, v := range x {
		if v < lo || v > hi {
			n++
		}
	}
	return n
}

// unexpectedCategories returns the sorted distinct non-null values of col
// not in expected, and how many rows hold one of them.
func unexpectedCategories(ds *core.Dataset, col string, expected []string) ([]string, int) {
	allowed := make(map[string]bool, len(expected))
	for _, e := range expected {
		allowed[e] = true
	}

	seen := make(map[string]bool)
	var values []string
	n := 0
	for _, row := range ds.Rows {
		v := row.Get(col)
		if v.IsNull() {
			continue
		}
		s := v.String()
		if allowed[s] {
			continue
		}
		n++
		if !seen[s] {
			seen[s] = true
			values = append(values, s)
		}
	}
	sort.Strings(values)
	return values, n
}

// classSpread returns the difference in percentage points between the most
// and least frequent non-null values of col.
func classSpread(ds *core.Dataset, col string) (float64, bool) {
	counts := make(map[string]int)
	total := 0
	for _, row := range ds.Rows {
		v := row.Get(col)
		if v.IsNull() {
			continue
		}
		counts[v.String()]++
		total++
	}
	if total == 0 {
		return 0, false
	}

	lo, hi := math.MaxInt, 0
	for _, c := range counts {
		lo = min(lo, c)
		hi = max(hi, c)
	}
	return pct(hi, total) - pct(lo, total), true
}

// WriteQualityText renders issues as an aligned text table.
func WriteQualityText(w io.Writer, issues []QualityIssue) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Table\tColumn\tIssue\tRow Count\tMagnitude (%)\tSuggestion")
	for _, is := range issues {
		kind := is.Kind
		if len(is.Values) > 0 {
			kind += ": " + strings.Join(is.Values, ", ")
		}
		count := "-"
		if is.Kind != IssueClassImbalance {
			count = fmt.Sprint(is.RowCount)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
			is.Table, is.Column, kind, count, is.Magnitude, is.Suggestion)
	}
	return tw.Flush()
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
