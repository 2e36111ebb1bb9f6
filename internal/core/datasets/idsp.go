package datasets

import "github.com/JonMunkholm/dataclean/internal/core"

// IDSP column names.
const (
	colYear                 = "year"
	colWeek                 = "week"
	colOutbreakStartingDate = "outbreak_starting_date"
	colReportingDate        = "reporting_date"
	colState                = "state"
	colDistrict             = "district"
	colDiseaseIllnessName   = "disease_illness_name"
	colStatus               = "status"
	colCases                = "cases"
	colDeaths               = "deaths"
)

func init() {
	core.Register(IDSP())
}

// IDSP returns the definition of the Integrated Disease Surveillance
// Programme outbreak dataset.
func IDSP() core.DatasetDefinition {
	return core.DatasetDefinition{
		Key:      "idsp",
		Label:    "IDSP Disease Outbreaks",
		FileName: "idsp.csv",
		ExpectedColumns: []string{
			colYear, colWeek, colOutbreakStartingDate, colReportingDate,
			colState, colDistrict, colDiseaseIllnessName, colStatus, colCases, colDeaths,
		},
		DateColumns: []string{colReportingDate, colOutbreakStartingDate},
		Rules: []core.Rule{
			// A report cannot precede the outbreak it reports; the two
			// dates are usually entered in each other's field.
			core.MustRule(core.Rule{
				Name:      "Reporting Date vs Outbreak Starting Date",
				ColumnA:   colReportingDate,
				ColumnB:   colOutbreakStartingDate,
				Predicate: core.LessThan(colReportingDate, colOutbreakStartingDate),
				Repair:    core.RepairSwap,
			}),
			core.MustRule(core.Rule{
				Name:      "Deaths vs Cases",
				ColumnA:   colDeaths,
				ColumnB:   colCases,
				Predicate: core.GreaterThan(colDeaths, colCases),
				Repair:    core.RepairNone,
			}),
		},
		Week: &core.WeekCheck{
			DateColumn: colReportingDate,
			WeekColumn: colWeek,
		},
		DedupKey: []string{
			colReportingDate, colOutbreakStartingDate, colState, colDistrict, colDiseaseIllnessName,
		},
		TargetColumn: colStatus,
	}
}
