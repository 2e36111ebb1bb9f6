package core

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

var baseDay = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) Value {
	return Date(baseDay.AddDate(0, 0, n))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var outbreakColumns = []Column{
	{Name: "year", Type: FieldNumeric},
	{Name: "week", Type: FieldNumeric},
	{Name: "outbreak_starting_date", Type: FieldDate},
	{Name: "reporting_date", Type: FieldDate},
	{Name: "state", Type: FieldText},
	{Name: "district", Type: FieldText},
	{Name: "disease_illness_name", Type: FieldText},
	{Name: "status", Type: FieldText},
	{Name: "cases", Type: FieldNumeric},
	{Name: "deaths", Type: FieldNumeric},
}

// outbreakRow builds a consistent row: reported two days after the outbreak
// started, week matching the reporting date, deaths below cases.
func outbreakRow(i int) Row {
	start := baseDay.AddDate(0, 0, i%300)
	report := start.AddDate(0, 0, 2)
	_, week := report.ISOWeek()
	return Row{
		"year":                   Number(float64(report.Year())),
		"week":                   Number(float64(week)),
		"outbreak_starting_date": Date(start),
		"reporting_date":         Date(report),
		"state":                  Text("Kerala"),
		"district":               Text(fmt.Sprintf("District %d", i)),
		"disease_illness_name":   Text("Cholera"),
		"status":                 Text("Under Control"),
		"cases":                  Number(float64(10 + i%7)),
		"deaths":                 Number(float64(i % 3)),
	}
}

// outbreakDataset returns n distinct consistent rows.
func outbreakDataset(n int) *Dataset {
	ds := NewDataset("idsp", outbreakColumns)
	for i := 0; i < n; i++ {
		ds.Append(outbreakRow(i))
	}
	return ds
}

// swapDates makes row i violate reporting_date >= outbreak_starting_date.
func swapDates(ds *Dataset, i int) {
	row := ds.Rows[i]
	row["reporting_date"], row["outbreak_starting_date"] = row["outbreak_starting_date"], row["reporting_date"]
}

func reportingVsOutbreak() Rule {
	return MustRule(Rule{
		Name:      "Reporting Date vs Outbreak Starting Date",
		ColumnA:   "reporting_date",
		ColumnB:   "outbreak_starting_date",
		Predicate: LessThan("reporting_date", "outbreak_starting_date"),
		Repair:    RepairSwap,
	})
}

func deathsVsCases() Rule {
	return MustRule(Rule{
		Name:      "Deaths vs Cases",
		ColumnA:   "deaths",
		ColumnB:   "cases",
		Predicate: GreaterThan("deaths", "cases"),
	})
}

var outbreakKey = []string{"reporting_date", "outbreak_starting_date", "state", "district", "disease_illness_name"}

func outbreakDefinition() DatasetDefinition {
	return DatasetDefinition{
		Key:             "idsp",
		Label:           "IDSP",
		ExpectedColumns: []string{"year", "week", "outbreak_starting_date", "reporting_date", "state", "district", "disease_illness_name", "status", "cases", "deaths"},
		DateColumns:     []string{"reporting_date", "outbreak_starting_date"},
		Rules:           []Rule{reportingVsOutbreak(), deathsVsCases()},
		Week:            &WeekCheck{DateColumn: "reporting_date", WeekColumn: "week"},
		DedupKey:        outbreakKey,
	}
}
