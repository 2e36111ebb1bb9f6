package core

import "fmt"

// IssueKind classifies a recoverable problem found during a run.
type IssueKind string

const (
	// IssueStructuralMismatch: an expected or referenced column is absent.
	IssueStructuralMismatch IssueKind = "structural_mismatch"
	// IssueExtraColumns: the dataset carries columns the definition does not declare.
	IssueExtraColumns IssueKind = "extra_columns"
	// IssueTypeCoercion: cells that failed to parse and were set to null.
	IssueTypeCoercion IssueKind = "type_coercion"
	// IssueHighInconsistency: a rule crossed its threshold and was not repaired.
	IssueHighInconsistency IssueKind = "high_inconsistency"
)

// Issue is a non-fatal finding. Issues never abort a run.
type Issue struct {
	Kind    IssueKind
	Stage   Stage
	Subject string   // Rule name, column or step the issue is about
	Columns []string // Columns involved, when relevant
	Count   int      // Affected cells or rows, when relevant
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Kind, i.Subject, i.Message)
}
