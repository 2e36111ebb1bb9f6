// Package profile summarizes datasets: shape, memory footprint, missing
// values, duplicate rows, column kinds and numeric statistics, plus a
// data-quality report of issues worth a human look.
package profile

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/JonMunkholm/dataclean/internal/core"
)

// Describe holds summary statistics for one numeric column. Null cells are
// skipped. Std is the sample standard deviation, zero below two values; all
// fields are zero when Count is zero.
type Describe struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// Profile is a snapshot of a dataset.
type Profile struct {
	Name           string              `json:"name"`
	Rows           int                 `json:"rows"`
	Columns        int                 `json:"columns"`
	MemoryMB       float64             `json:"memory_mb"`
	Missing        map[string]int      `json:"missing"`
	DuplicateRows  int                 `json:"duplicate_rows"`
	Types          map[string]string   `json:"types"`
	NumericColumns []string            `json:"numeric_columns"`
	DateColumns    []string            `json:"date_columns"`
	TextColumns    []string            `json:"text_columns"`
	NumericStats   map[string]Describe `json:"numeric_stats,omitempty"`
}

// Build profiles ds.
func Build(ds *core.Dataset) Profile {
	p := Profile{
		Name:          ds.Name,
		Rows:          ds.Len(),
		Columns:       len(ds.Columns),
		MemoryMB:      EstimateMB(ds),
		Missing:       make(map[string]int, len(ds.Columns)),
		DuplicateRows: core.CountExactDuplicates(ds),
		Types:         make(map[string]string, len(ds.Columns)),
	}

	for _, c := range ds.Columns {
		p.Types[c.Name] = c.Type.String()
		missing := 0
		for _, row := range ds.Rows {
			if row.Get(c.Name).IsNull() {
				missing++
			}
		}
		p.Missing[c.Name] = missing

		switch c.Type {
		case core.FieldNumeric:
			p.NumericColumns = append(p.NumericColumns, c.Name)
		case core.FieldDate:
			p.DateColumns = append(p.DateColumns, c.Name)
		case core.FieldText, core.FieldEnum:
			p.TextColumns = append(p.TextColumns, c.Name)
		}
	}

	if len(p.NumericColumns) > 0 {
		p.NumericStats = make(map[string]Describe, len(p.NumericColumns))
		for _, col := range p.NumericColumns {
			p.NumericStats[col] = DescribeColumn(ds, col)
		}
	}
	return p
}

// DescribeColumn computes summary statistics over the numeric cells of col.
func DescribeColumn(ds *core.Dataset, col string) Describe {
	x := numericValues(ds, col)
	d := Describe{Count: len(x)}
	if len(x) == 0 {
		return d
	}

	sort.Float64s(x)
	d.Mean = stat.Mean(x, nil)
	if len(x) > 1 {
		d.Std = stat.StdDev(x, nil)
	}
	d.Min = floats.Min(x)
	d.Max = floats.Max(x)
	d.Q25 = quantile(x, 0.25)
	d.Median = quantile(x, 0.5)
	d.Q75 = quantile(x, 0.75)
	return d
}

// numericValues returns the non-null numbers of col in row order.
func numericValues(ds *core.Dataset, col string) []float64 {
	x := make([]float64, 0, ds.Len())
	for _, row := range ds.Rows {
		v := row.Get(col)
		if v.Kind == core.KindNumber && !math.IsNaN(v.Num) {
			x = append(x, v.Num)
		}
	}
	return x
}

// quantile interpolates linearly between the closest ranks of sorted x,
// the (n-1)p definition used by most dataframe libraries. gonum's
// stat.Quantile offers only the empirical and CDF-interpolating variants.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
