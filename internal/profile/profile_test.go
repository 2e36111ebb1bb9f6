package profile

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/dataclean/internal/core"
)

func surveillance() *core.Dataset {
	ds := core.NewDataset("idsp", []core.Column{
		{Name: "district", Type: core.FieldText},
		{Name: "cases", Type: core.FieldNumeric},
		{Name: "reporting_date", Type: core.FieldDate},
		{Name: "status", Type: core.FieldText},
	})
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	cases := []float64{10, 12, 11, 13, 12, 11, 500}
	status := []string{"Under Control", "Under Control", "Under Control", "Under Control", "Under Control", "Under Control", "Contained"}
	for i, c := range cases {
		ds.Append(core.Row{
			"district":       core.Text("D" + string(rune('A'+i))),
			"cases":          core.Number(c),
			"reporting_date": core.Date(day.AddDate(0, 0, 7*i)),
			"status":         core.Text(status[i]),
		})
	}
	return ds
}

func TestBuild(t *testing.T) {
	ds := surveillance()
	ds.Append(ds.Rows[0].Clone())
	ds.Append(core.Row{"district": core.Text("DZ"), "status": core.Text("Under Control")})

	p := Build(ds)

	if p.Rows != 9 || p.Columns != 4 {
		t.Errorf("shape = %dx%d, want 9x4", p.Rows, p.Columns)
	}
	if p.DuplicateRows != 1 {
		t.Errorf("DuplicateRows = %d, want 1", p.DuplicateRows)
	}
	if p.Missing["cases"] != 1 || p.Missing["reporting_date"] != 1 || p.Missing["district"] != 0 {
		t.Errorf("Missing = %v", p.Missing)
	}
	if len(p.NumericColumns) != 1 || p.NumericColumns[0] != "cases" {
		t.Errorf("NumericColumns = %v", p.NumericColumns)
	}
	if len(p.DateColumns) != 1 || len(p.TextColumns) != 2 {
		t.Errorf("DateColumns = %v, TextColumns = %v", p.DateColumns, p.TextColumns)
	}
	if p.Types["reporting_date"] != "date" {
		t.Errorf("Types = %v", p.Types)
	}
	if p.MemoryMB <= 0 {
		t.Errorf("MemoryMB = %v, want > 0", p.MemoryMB)
	}
	if p.NumericStats["cases"].Count != 8 {
		t.Errorf("cases count = %d, want 8", p.NumericStats["cases"].Count)
	}

	if _, err := json.Marshal(p); err != nil {
		t.Errorf("profile does not marshal: %v", err)
	}
}

func TestDescribeColumn(t *testing.T) {
	ds := core.NewDataset("t", []core.Column{{Name: "x", Type: core.FieldNumeric}})
	for _, v := range []float64{1, 2, 3, 4} {
		ds.Append(core.Row{"x": core.Number(v)})
	}
	ds.Append(core.Row{"x": core.Null()})

	d := DescribeColumn(ds, "x")
	want := Describe{Count: 4, Mean: 2.5, Min: 1, Q25: 1.75, Median: 2.5, Q75: 3.25, Max: 4}
	if d.Count != want.Count || d.Mean != want.Mean || d.Min != want.Min || d.Max != want.Max ||
		d.Q25 != want.Q25 || d.Median != want.Median || d.Q75 != want.Q75 {
		t.Errorf("DescribeColumn = %+v, want %+v", d, want)
	}
	if math.Abs(d.Std-1.2909944) > 1e-6 {
		t.Errorf("Std = %v, want sample std 1.2910", d.Std)
	}

	empty := DescribeColumn(core.NewDataset("e", nil), "x")
	if empty != (Describe{}) {
		t.Errorf("empty column = %+v, want zero", empty)
	}
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		x    []float64
		p    float64
		want float64
	}{
		{x: []float64{5}, p: 0.75, want: 5},
		{x: []float64{1, 2}, p: 0.5, want: 1.5},
		{x: []float64{1, 2, 3, 4, 5}, p: 0.25, want: 2},
		{x: []float64{1, 2, 3, 4, 5}, p: 1, want: 5},
		{x: []float64{10, 11, 11, 12, 12, 13, 500}, p: 0.75, want: 12.5},
	}
	for _, tt := range tests {
		if got := quantile(tt.x, tt.p); got != tt.want {
			t.Errorf("quantile(%v, %v) = %v, want %v", tt.x, tt.p, got, tt.want)
		}
	}
}

func TestQuality(t *testing.T) {
	ds := surveillance()
	ds.Append(ds.Rows[0].Clone())
	ds.Append(core.Row{"district": core.Text("DZ"), "cases": core.Number(12), "status": core.Text("under control")})

	issues := Quality(ds, QualityOptions{
		TargetColumn:       "status",
		ExpectedCategories: map[string][]string{"status": {"Under Control", "Contained"}, "absent": {"x"}},
	})

	byKind := make(map[string]QualityIssue)
	for _, is := range issues {
		byKind[is.Kind+"/"+is.Column] = is
	}

	if is, ok := byKind[IssueMissingValues+"/reporting_date"]; !ok || is.RowCount != 1 || is.Magnitude != 11.11 {
		t.Errorf("missing values issue = %+v", is)
	}
	if is, ok := byKind[IssueDuplicateRows+"/ALL"]; !ok || is.RowCount != 1 {
		t.Errorf("duplicate issue = %+v", is)
	}
	if is, ok := byKind[IssueOutliers+"/cases"]; !ok || is.RowCount != 1 {
		t.Errorf("outlier issue = %+v", is)
	}
	is, ok := byKind[IssueInconsistentCategories+"/status"]
	if !ok || is.RowCount != 1 || len(is.Values) != 1 || is.Values[0] != "under control" {
		t.Errorf("category issue = %+v", is)
	}
	if is, ok := byKind[IssueClassImbalance+"/status"]; !ok || is.Magnitude <= ImbalanceThreshold {
		t.Errorf("imbalance issue = %+v", is)
	}
	for _, is := range issues {
		if is.Table != "idsp" || !is.Solvable {
			t.Errorf("issue %+v: table/solvable not set", is)
		}
	}
}

func TestQuality_Clean(t *testing.T) {
	ds := core.NewDataset("t", []core.Column{{Name: "k", Type: core.FieldText}, {Name: "n", Type: core.FieldNumeric}})
	for i, k := range []string{"a", "b", "a", "b"} {
		ds.Append(core.Row{"k": core.Text(k), "n": core.Number(float64(i))})
	}
	if issues := Quality(ds, QualityOptions{TargetColumn: "k"}); len(issues) != 0 {
		t.Errorf("Quality = %+v, want none", issues)
	}
	if issues := Quality(core.NewDataset("e", nil), QualityOptions{}); len(issues) != 0 {
		t.Errorf("empty dataset issues = %+v", issues)
	}
}

func TestWriteQualityText(t *testing.T) {
	issues := []QualityIssue{
		{Table: "idsp", Column: "status", Kind: IssueInconsistentCategories, Values: []string{"x"}, RowCount: 2, Magnitude: 5},
		{Table: "idsp", Column: "status", Kind: IssueClassImbalance, Magnitude: 61.5},
	}
	var buf bytes.Buffer
	if err := WriteQualityText(&buf, issues); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "Inconsistent Categories: x") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "61.50") || !strings.Contains(lines[2], " - ") {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestMemoryMonitor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ds := surveillance()

	mb, high := NewMemoryMonitor(1000, logger).Check(ds, "initial")
	if high || mb <= 0 {
		t.Errorf("Check = %v, %v; want small, not high", mb, high)
	}
	if strings.Contains(buf.String(), "high memory") {
		t.Error("warned below threshold")
	}

	if _, high := NewMemoryMonitor(1e-9, logger).Check(ds, "final"); !high {
		t.Error("tiny threshold did not trigger")
	}
	if !strings.Contains(buf.String(), "high memory usage detected") {
		t.Errorf("missing warning in log: %s", buf.String())
	}

	if _, high := NewMemoryMonitor(0, slog.New(slog.NewTextHandler(io.Discard, nil))).Check(ds, "x"); high {
		t.Error("zero threshold warned")
	}
}

func TestEstimateBytes(t *testing.T) {
	ds := core.NewDataset("t", []core.Column{{Name: "s", Type: core.FieldText}, {Name: "n", Type: core.FieldNumeric}})
	ds.Append(core.Row{"s": core.Text("abcd"), "n": core.Number(1)})
	ds.Append(core.Row{"s": core.Null(), "n": core.Number(2)})

	want := int64(indexBytes + (textCellBytes + 4) + nullCellBytes + 2*fixedCellBytes)
	if got := EstimateBytes(ds); got != want {
		t.Errorf("EstimateBytes = %d, want %d", got, want)
	}
}
