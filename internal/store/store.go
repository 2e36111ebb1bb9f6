// Package store persists cleaning run records. Two backends are provided:
// PostgreSQL through pgx for shared deployments and an embedded bbolt file
// for single-node use and the CLI.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/profile"
)

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunRecord is the persisted summary of one cleaning run.
type RunRecord struct {
	ID         string    `json:"id"`
	Dataset    string    `json:"dataset"`
	Source     string    `json:"source"` // "cli" or "http"
	FileName   string    `json:"file_name"`
	Encoding   string    `json:"encoding,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	InitialRows       int `json:"initial_rows"`
	FinalRows         int `json:"final_rows"`
	QuarantinedRows   int `json:"quarantined_rows"`
	ExactDuplicates   int `json:"exact_duplicates"`
	PartialDuplicates int `json:"partial_duplicates"`

	Outcomes   []OutcomeRecord        `json:"outcomes,omitempty"`
	Quarantine []BatchRecord          `json:"quarantine,omitempty"`
	Issues     []IssueRecord          `json:"issues,omitempty"`
	Coercion   map[string]int         `json:"coercion,omitempty"`
	Profile    *profile.Profile       `json:"profile,omitempty"`
	Quality    []profile.QualityIssue `json:"quality,omitempty"`
	Artifacts  Artifacts              `json:"artifacts"`
	Changes    []ChangeRecord         `json:"changes,omitempty"`
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Artifacts are the files a run wrote.
type Artifacts struct {
	Cleaned    string            `json:"cleaned,omitempty"`
	Quarantine map[string]string `json:"quarantine,omitempty"` // reason -> path
}

// OutcomeRecord summarizes how one rule was handled.
type OutcomeRecord struct {
	Rule           string  `json:"rule"`
	Reason         string  `json:"reason"`
	Classification string  `json:"classification"`
	Violations     int     `json:"violations"`
	TotalRows      int     `json:"total_rows"`
	Ratio          float64 `json:"ratio"`
	Repaired       int     `json:"repaired"`
	Skipped        int     `json:"skipped"`
	Quarantined    int     `json:"quarantined"`
}

// BatchRecord summarizes one quarantine batch.
type BatchRecord struct {
	Reason string `json:"reason"`
	Rows   int    `json:"rows"`
}

// IssueRecord is a persisted core.Issue.
type IssueRecord struct {
	Kind    string   `json:"kind"`
	Stage   string   `json:"stage"`
	Subject string   `json:"subject"`
	Columns []string `json:"columns,omitempty"`
	Count   int      `json:"count,omitempty"`
	Message string   `json:"message"`
}

// ChangeRecord is the provenance of one repaired cell.
type ChangeRecord struct {
	Row       int    `json:"row"`
	Column    string `json:"column"`
	Original  string `json:"original"`
	New       string `json:"new"`
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

// ListOptions filter ListRuns.
type ListOptions struct {
	Dataset string // Empty lists every dataset
	Limit   int    // Zero or less means DefaultListLimit
}

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 50

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// Store persists run records. ListRuns returns newest first and omits
// Changes; GetRun returns the full record.
type Store interface {
	SaveRun(ctx context.Context, rec RunRecord) error
	GetRun(ctx context.Context, id string) (RunRecord, error)
	ListRuns(ctx context.Context, opts ListOptions) ([]RunRecord, error)
	Close() error
}

// Summarize copies the outcome of a cleaning run into rec.
func (rec *RunRecord) Summarize(res *core.Result) {
	rec.InitialRows = res.Dedup.InitialRows
	if res.Dataset != nil {
		rec.FinalRows = res.Dataset.Len()
	}
	rec.QuarantinedRows = res.QuarantinedRows()
	rec.ExactDuplicates = res.Dedup.ExactRemoved
	rec.PartialDuplicates = res.Dedup.PartialCount()
	rec.Coercion = res.Coercion

	rec.Outcomes = make([]OutcomeRecord, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		rec.Outcomes = append(rec.Outcomes, OutcomeRecord{
			Rule:           o.Report.RuleName,
			Reason:         o.Report.Reason,
			Classification: string(o.Classification),
			Violations:     o.Report.ViolationCount,
			TotalRows:      o.Report.TotalRows,
			Ratio:          o.Report.Ratio,
			Repaired:       o.Repaired,
			Skipped:        len(o.Skipped),
			Quarantined:    o.Quarantined,
		})
	}

	rec.Quarantine = make([]BatchRecord, 0, len(res.Quarantine))
	for _, b := range res.Quarantine {
		rec.Quarantine = append(rec.Quarantine, BatchRecord{Reason: b.Reason, Rows: b.Len()})
	}

	rec.Issues = make([]IssueRecord, 0, len(res.Issues))
	for _, is := range res.Issues {
		rec.Issues = append(rec.Issues, IssueRecord{
			Kind:    string(is.Kind),
			Stage:   is.Stage.String(),
			Subject: is.Subject,
			Columns: is.Columns,
			Count:   is.Count,
			Message: is.Message,
		})
	}

	rec.Changes = make([]ChangeRecord, 0, len(res.Changes))
	for _, c := range res.Changes {
		rec.Changes = append(rec.Changes, ChangeRecord{
			Row:       c.Row,
			Column:    c.Column,
			Original:  c.Original.String(),
			New:       c.New.String(),
			Operation: c.Operation,
			Reason:    c.Reason,
		})
	}
}

// withoutChanges returns rec with the provenance list dropped.
func withoutChanges(rec RunRecord) RunRecord {
	rec.Changes = nil
	return rec
}
