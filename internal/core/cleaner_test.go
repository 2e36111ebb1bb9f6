package core

import (
	"errors"
	"testing"
)

func newTestCleaner(t *testing.T, def DatasetDefinition) *Cleaner {
	t.Helper()
	c, err := NewCleaner(DefaultSettings(), def, discardLogger())
	if err != nil {
		t.Fatalf("NewCleaner: %v", err)
	}
	return c
}

func rulesOnly() DatasetDefinition {
	def := outbreakDefinition()
	def.Week = nil
	return def
}

func TestCleaner_LowInconsistencyIsRepaired(t *testing.T) {
	ds := outbreakDataset(1000)
	for i := 0; i < 1000; i += 10 {
		swapDates(ds, i)
	}

	res, err := newTestCleaner(t, rulesOnly()).Run(ds)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	o, ok := res.Outcome("reporting_date_vs_outbreak_starting_date")
	if !ok {
		t.Fatal("no outcome for date rule")
	}
	if o.Classification != Repairable {
		t.Errorf("Classification = %s, want %s", o.Classification, Repairable)
	}
	if o.Report.ViolationCount != 100 {
		t.Errorf("ViolationCount = %d, want 100", o.Report.ViolationCount)
	}
	if o.Repaired != 100 {
		t.Errorf("Repaired = %d, want 100", o.Repaired)
	}
	if _, ok := res.Batch("reporting_date_vs_outbreak_starting_date"); ok {
		t.Error("repairable rule produced a quarantine batch")
	}

	after, _ := Evaluate(res.Dataset, reportingVsOutbreak())
	if after.ViolationCount != 0 {
		t.Errorf("violations after run = %d, want 0", after.ViolationCount)
	}
	if len(res.Changes) != 200 {
		t.Errorf("len(Changes) = %d, want 200", len(res.Changes))
	}
}

func TestCleaner_HighInconsistencyIsQuarantined(t *testing.T) {
	ds := outbreakDataset(1000)
	var violating []int
	for i := 0; i < 1000; i++ {
		if i%10 < 3 {
			swapDates(ds, i)
			violating = append(violating, i)
		}
	}
	before := ds.Clone()

	res, err := newTestCleaner(t, rulesOnly()).Run(ds)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	o, _ := res.Outcome("reporting_date_vs_outbreak_starting_date")
	if o.Classification != Untrusted {
		t.Errorf("Classification = %s, want %s", o.Classification, Untrusted)
	}
	if o.Repaired != 0 {
		t.Errorf("Repaired = %d, want 0", o.Repaired)
	}

	batch, ok := res.Batch("reporting_date_vs_outbreak_starting_date")
	if !ok {
		t.Fatal("no quarantine batch")
	}
	if batch.Len() != 300 {
		t.Errorf("batch has %d rows, want 300", batch.Len())
	}
	if batch.Source != "idsp" {
		t.Errorf("Source = %q", batch.Source)
	}

	for _, i := range violating {
		for _, col := range []string{"reporting_date", "outbreak_starting_date"} {
			if !res.Dataset.Rows[i].Get(col).Equal(before.Rows[i].Get(col)) {
				t.Fatalf("row %d column %s modified", i, col)
			}
		}
	}

	found := false
	for _, is := range res.Issues {
		if is.Kind == IssueHighInconsistency {
			found = true
		}
	}
	if !found {
		t.Error("no high-inconsistency issue recorded")
	}
}

func TestCleaner_DeathsAboveCasesFlagged(t *testing.T) {
	ds := outbreakDataset(50)
	ds.Rows[7]["deaths"] = Number(40)
	ds.Rows[7]["cases"] = Number(12)

	res, err := newTestCleaner(t, rulesOnly()).Run(ds)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	o, _ := res.Outcome("deaths_vs_cases")
	if o.Classification != DetectOnly {
		t.Errorf("Classification = %s, want %s", o.Classification, DetectOnly)
	}
	batch, ok := res.Batch("deaths_vs_cases")
	if !ok || batch.Len() != 1 {
		t.Fatalf("deaths batch = %+v, %v", batch, ok)
	}
	if batch.RowIndices[0] != 7 {
		t.Errorf("quarantined row %d, want 7", batch.RowIndices[0])
	}
	row := res.Dataset.Rows[7]
	if row.Get("deaths").Num != 40 || row.Get("cases").Num != 12 {
		t.Errorf("deaths/cases modified: %v / %v", row.Get("deaths"), row.Get("cases"))
	}
	for _, c := range res.Changes {
		if c.Reason == "deaths_vs_cases" {
			t.Errorf("no-repair rule produced change %+v", c)
		}
	}
}

func TestCleaner_ExactDuplicateRemoved(t *testing.T) {
	ds := outbreakDataset(4)
	ds.Rows = []Row{ds.Rows[0], ds.Rows[1], ds.Rows[1].Clone(), ds.Rows[2], ds.Rows[3]}

	res, err := newTestCleaner(t, rulesOnly()).Run(ds)
	if err != nil {
		t.Fatal(err)
	}
	if res.Dedup.ExactRemoved != 1 {
		t.Errorf("ExactRemoved = %d, want 1", res.Dedup.ExactRemoved)
	}
	want := []string{"District 0", "District 1", "District 2", "District 3"}
	if res.Dataset.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", res.Dataset.Len(), len(want))
	}
	for i, d := range want {
		if got := res.Dataset.Rows[i].Get("district").Str; got != d {
			t.Errorf("row %d = %q, want %q", i, got, d)
		}
	}
}

func TestCleaner_PartialDuplicatesQuarantined(t *testing.T) {
	ds := outbreakDataset(5)
	for _, i := range []int{2, 4} {
		row := ds.Rows[0].Clone()
		row["status"] = Text("Under Surveillance")
		row["cases"] = Number(float64(20 + i))
		ds.Rows[i] = row
	}

	res, err := newTestCleaner(t, rulesOnly()).Run(ds)
	if err != nil {
		t.Fatal(err)
	}
	batch, ok := res.Batch(ReasonPartialDuplicate)
	if !ok || batch.Len() != 3 {
		t.Fatalf("partial batch = %d rows, %v; want 3", batch.Len(), ok)
	}
	if res.Dataset.Len() != 5 {
		t.Errorf("Len = %d, want 5", res.Dataset.Len())
	}
}

func TestCleaner_QuarantineRepairExclusive(t *testing.T) {
	ds := outbreakDataset(200)
	for i := 0; i < 200; i += 20 {
		swapDates(ds, i)
	}
	for _, i := range []int{5, 15} {
		ds.Rows[i]["deaths"] = Number(100)
	}

	res, err := newTestCleaner(t, outbreakDefinition()).Run(ds)
	if err != nil {
		t.Fatal(err)
	}

	repaired := map[string]map[int]bool{}
	for _, c := range res.Changes {
		if repaired[c.Reason] == nil {
			repaired[c.Reason] = map[int]bool{}
		}
		repaired[c.Reason][c.Row] = true
	}
	for _, b := range res.Quarantine {
		for _, i := range b.RowIndices {
			if repaired[b.Reason][i] {
				t.Errorf("row %d both repaired and quarantined for %s", i, b.Reason)
			}
		}
	}
}

func TestCleaner_WeekReconciliation(t *testing.T) {
	tests := []struct {
		name          string
		wrong         int
		wantCorrected bool
	}{
		{"few mismatches are corrected", 5, true},
		{"many mismatches are quarantined", 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := outbreakDataset(100)
			for i := 0; i < tt.wrong; i++ {
				ds.Rows[i]["week"] = Number(60)
			}

			res, err := newTestCleaner(t, outbreakDefinition()).Run(ds)
			if err != nil {
				t.Fatal(err)
			}

			o, ok := res.Outcome(ReasonWeekMismatch)
			if !ok {
				t.Fatal("no week outcome")
			}
			if o.Report.ViolationCount != tt.wrong {
				t.Errorf("mismatches = %d, want %d", o.Report.ViolationCount, tt.wrong)
			}
			if !res.Dataset.HasColumn(ColumnISOWeek) || !res.Dataset.HasColumn(ColumnWeekIsValid) {
				t.Error("derived week columns missing")
			}

			first := res.Dataset.Rows[0]
			batch, quarantined := res.Batch(ReasonWeekMismatch)
			if tt.wantCorrected {
				if !first.Get("week").Equal(first.Get(ColumnISOWeek)) {
					t.Errorf("week = %v, want iso week %v", first.Get("week"), first.Get(ColumnISOWeek))
				}
				if got := first.Get(ColumnOriginalWeek); got.Num != 60 {
					t.Errorf("original_week = %v, want 60", got)
				}
				if quarantined {
					t.Error("corrected weeks were also quarantined")
				}
				return
			}
			if first.Get("week").Num != 60 {
				t.Errorf("week changed to %v", first.Get("week"))
			}
			if res.Dataset.HasColumn(ColumnOriginalWeek) {
				t.Error("original_week added without a correction")
			}
			if !quarantined || batch.Len() != tt.wrong {
				t.Errorf("week batch = %d rows, %v; want %d", batch.Len(), quarantined, tt.wrong)
			}
			if first.Get(ColumnWeekIsValid).Bool {
				t.Error("week_is_valid = true for a mismatching row")
			}
		})
	}
}

func TestCleaner_WeekSkippedWithoutDateColumn(t *testing.T) {
	cols := []Column{{Name: "week", Type: FieldNumeric}, {Name: "cases", Type: FieldNumeric}}
	ds := NewDataset("idsp", cols)
	ds.Append(Row{"week": Number(3), "cases": Number(1)})

	res, err := newTestCleaner(t, outbreakDefinition()).Run(ds)
	if err != nil {
		t.Fatal(err)
	}
	if ds.HasColumn(ColumnISOWeek) {
		t.Error("week columns derived without a date column")
	}
	if _, ok := res.Outcome(ReasonWeekMismatch); ok {
		t.Error("week rule evaluated without a date column")
	}
	if !res.Dedup.Skipped {
		t.Error("dedup should be skipped when key columns are missing")
	}
	mismatches := 0
	for _, is := range res.Issues {
		if is.Kind == IssueStructuralMismatch {
			mismatches++
		}
	}
	// Expected columns, both rules, week validation, dedup.
	if mismatches != 5 {
		t.Errorf("structural issues = %d, want 5: %v", mismatches, res.Issues)
	}
}

func TestCleaner_DateCoercion(t *testing.T) {
	ds := NewDataset("idsp", []Column{
		{Name: "reporting_date", Type: FieldText},
		{Name: "outbreak_starting_date", Type: FieldText},
	})
	ds.Append(Row{"reporting_date": Text("2024-01-05"), "outbreak_starting_date": Text("01/01/2024")})
	ds.Append(Row{"reporting_date": Text("not a date"), "outbreak_starting_date": Text("NA")})
	ds.Append(Row{"reporting_date": Text("31-02-2024"), "outbreak_starting_date": Null()})

	def := outbreakDefinition()
	def.ExpectedColumns = nil
	res, err := newTestCleaner(t, def).Run(ds)
	if err != nil {
		t.Fatal(err)
	}

	if got := res.Coercion["reporting_date"]; got != 2 {
		t.Errorf("reporting_date nulled = %d, want 2", got)
	}
	if got := res.Coercion["outbreak_starting_date"]; got != 0 {
		t.Errorf("outbreak_starting_date nulled = %d, want 0", got)
	}
	if v := res.Dataset.Rows[0].Get("reporting_date"); v.Kind != KindDate {
		t.Errorf("row 0 reporting_date kind = %v, want date", v.Kind)
	}
	if v := res.Dataset.Rows[1].Get("reporting_date"); !v.IsNull() {
		t.Errorf("row 1 reporting_date = %v, want null", v)
	}
	if c, _ := res.Dataset.Column("reporting_date"); c.Type != FieldDate {
		t.Errorf("column type = %v, want date", c.Type)
	}

	coercion := 0
	for _, is := range res.Issues {
		if is.Kind == IssueTypeCoercion {
			coercion++
			if is.Stage != StageTypeNormalized {
				t.Errorf("coercion issue stage = %s", is.Stage)
			}
		}
	}
	if coercion != 1 {
		t.Errorf("coercion issues = %d, want 1", coercion)
	}
}

func TestCleaner_EmptyDataset(t *testing.T) {
	ds := NewDataset("idsp", outbreakColumns)
	res, err := newTestCleaner(t, outbreakDefinition()).Run(ds)
	if err != nil {
		t.Fatalf("empty dataset must not fail: %v", err)
	}
	for _, o := range res.Outcomes {
		if o.Report.Ratio != 0 {
			t.Errorf("%s ratio = %v, want 0", o.Report.RuleName, o.Report.Ratio)
		}
	}
	if len(res.Quarantine) != 0 {
		t.Errorf("quarantine = %d batches, want 0", len(res.Quarantine))
	}
}

func TestCleaner_Stages(t *testing.T) {
	res, err := newTestCleaner(t, outbreakDefinition()).Run(outbreakDataset(3))
	if err != nil {
		t.Fatal(err)
	}
	want := []Stage{StageLoaded, StageTypeNormalized, StageRulesApplied, StageDeduplicated, StageFinalized}
	if len(res.Stages) != len(want) {
		t.Fatalf("Stages = %v, want %v", res.Stages, want)
	}
	for i := range want {
		if res.Stages[i] != want[i] {
			t.Errorf("Stages[%d] = %s, want %s", i, res.Stages[i], want[i])
		}
	}
}

func TestStageGuard(t *testing.T) {
	g := newStageGuard()
	if err := g.advance(StageRulesApplied); !errors.Is(err, ErrStageOrder) {
		t.Errorf("skipping a stage: err = %v, want ErrStageOrder", err)
	}
	if err := g.advance(StageTypeNormalized); err != nil {
		t.Fatalf("valid transition: %v", err)
	}
	if err := g.advance(StageTypeNormalized); !errors.Is(err, ErrStageOrder) {
		t.Errorf("repeating a stage: err = %v, want ErrStageOrder", err)
	}
}

func TestCleaner_NilDataset(t *testing.T) {
	if _, err := newTestCleaner(t, outbreakDefinition()).Run(nil); !errors.Is(err, ErrNilDataset) {
		t.Errorf("err = %v, want ErrNilDataset", err)
	}
}

func TestNewCleaner_Invalid(t *testing.T) {
	if _, err := NewCleaner(Settings{InconsistencyThreshold: 1.5}, outbreakDefinition(), nil); err == nil {
		t.Error("threshold above one accepted")
	}
	if _, err := NewCleaner(DefaultSettings(), DatasetDefinition{}, nil); !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("empty definition: err = %v, want ErrInvalidDefinition", err)
	}
}
