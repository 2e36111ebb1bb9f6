// Package core provides the consistency and duplicate-resolution engine for
// tabular public-health datasets.
//
// This package holds all cleaning decisions and none of the I/O: it consumes
// an already loaded [Dataset] and a [DatasetDefinition] and produces a
// cleaned dataset plus [QuarantineBatch]es. File reading, encoding
// detection, profiling and persistence live in other packages.
//
// # Architecture
//
//   - Rules: declarative two-column checks with a closed set of operators
//     ([Rule], [Predicate]) and repair modes (none, swap, override).
//   - Evaluator: [Evaluate] computes the violation ratio of one rule and
//     [Classify] decides between repair and quarantine.
//   - Repair: [Apply] performs row-local, copy-on-write corrections and
//     records every changed cell as a [Change].
//   - Duplicates: [Resolve] removes exact duplicates and quarantines
//     natural-key collisions.
//   - Orchestration: [Cleaner] runs the stages LOADED, TYPE_NORMALIZED,
//     RULES_APPLIED, DEDUPLICATED and FINALIZED in order.
//
// # Threshold Policy
//
// A rule whose violation ratio is at or above its threshold is untrusted:
// nothing is repaired and every violating row is quarantined under the
// rule's reason. Below the threshold the rule's repair runs. Rules without
// a safe repair always quarantine their violations.
//
// # Dataset Registry
//
// Definitions are registered at init time using [Register]:
//
//	core.Register(core.DatasetDefinition{
//	    Key:         "idsp",
//	    DateColumns: []string{"reporting_date", "outbreak_starting_date"},
//	    Rules: []core.Rule{
//	        core.MustRule(core.Rule{
//	            Name:      "Deaths vs Cases",
//	            ColumnA:   "deaths",
//	            ColumnB:   "cases",
//	            Predicate: core.GreaterThan("deaths", "cases"),
//	        }),
//	    },
//	    DedupKey: []string{"reporting_date", "state", "district"},
//	})
//
// # Error Handling
//
// Only a nil dataset aborts a run ([ErrNilDataset]). Missing columns,
// unparseable cells and high inconsistency are reported as [Issue]s.
// Technical errors are mapped to coded user messages using [MapError].
package core
