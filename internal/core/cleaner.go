package core

// cleaner.go sequences one dataset through the cleaning stages:
//
//	LOADED -> TYPE_NORMALIZED -> RULES_APPLIED -> DEDUPLICATED -> FINALIZED
//
// Every stage runs exactly once and in order. Recoverable problems become
// Issues on the Result; only a nil dataset aborts a run.

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInconsistencyThreshold is the violation ratio at or above which a
// rule is considered untrusted.
const DefaultInconsistencyThreshold = 0.2

// ErrStageOrder is returned when a stage transition is skipped or repeated.
var ErrStageOrder = errors.New("invalid stage transition")

// Stage is a step of the cleaning state machine.
type Stage int

const (
	StageLoaded Stage = iota
	StageTypeNormalized
	StageRulesApplied
	StageDeduplicated
	StageFinalized
)

func (s Stage) String() string {
	switch s {
	case StageLoaded:
		return "LOADED"
	case StageTypeNormalized:
		return "TYPE_NORMALIZED"
	case StageRulesApplied:
		return "RULES_APPLIED"
	case StageDeduplicated:
		return "DEDUPLICATED"
	case StageFinalized:
		return "FINALIZED"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// stageGuard enforces strictly sequential transitions.
type stageGuard struct {
	current Stage
	visited []Stage
}

func newStageGuard() *stageGuard {
	return &stageGuard{current: StageLoaded, visited: []Stage{StageLoaded}}
}

func (g *stageGuard) advance(next Stage) error {
	if next != g.current+1 {
		return fmt.Errorf("%w: %s -> %s", ErrStageOrder, g.current, next)
	}
	g.current = next
	g.visited = append(g.visited, next)
	return nil
}

// Settings holds the engine configuration that is not part of a dataset
// definition.
type Settings struct {
	InconsistencyThreshold float64
}

// DefaultSettings returns Settings with the default threshold.
func DefaultSettings() Settings {
	return Settings{InconsistencyThreshold: DefaultInconsistencyThreshold}
}

// Validate checks the threshold is a fraction.
func (s Settings) Validate() error {
	if s.InconsistencyThreshold < 0 || s.InconsistencyThreshold > 1 {
		return fmt.Errorf("inconsistency threshold %.3f must be within [0,1]", s.InconsistencyThreshold)
	}
	return nil
}

// RuleOutcome records how one rule was handled.
type RuleOutcome struct {
	Report         ViolationReport
	Classification Classification
	Repaired       int
	Skipped        []int // Violating rows the repair could not fix
	Quarantined    int
}

// Result is everything a run hands back to its caller.
type Result struct {
	Dataset    *Dataset
	Quarantine []QuarantineBatch // In the order produced
	Outcomes   []RuleOutcome     // In rule order, week reconciliation last
	Changes    []Change          // Repair provenance
	Coercion   map[string]int    // Newly-nulled cells per date column
	Dedup      DedupResult
	Issues     []Issue
	Stages     []Stage
	Duration   time.Duration
}

// QuarantinedRows returns the total number of rows across all batches.
func (r *Result) QuarantinedRows() int {
	n := 0
	for _, b := range r.Quarantine {
		n += b.Len()
	}
	return n
}

// Batch returns the quarantine batch for reason, if any.
func (r *Result) Batch(reason string) (QuarantineBatch, bool) {
	for _, b := range r.Quarantine {
		if b.Reason == reason {
			return b, true
		}
	}
	return QuarantineBatch{}, false
}

// Outcome returns the outcome of the rule with the given reason.
func (r *Result) Outcome(reason string) (RuleOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Report.Reason == reason {
			return o, true
		}
	}
	return RuleOutcome{}, false
}

// Cleaner runs one dataset definition. It holds no per-run state and is
// safe to use from several goroutines on different datasets.
type Cleaner struct {
	settings Settings
	def      DatasetDefinition
	logger   *slog.Logger
}

// NewCleaner validates settings and def and returns a Cleaner.
// A nil logger uses slog.Default().
func NewCleaner(settings Settings, def DatasetDefinition, logger *slog.Logger) (*Cleaner, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		settings: settings,
		def:      def,
		logger:   logger.With("dataset", def.Key),
	}, nil
}

// Definition returns the definition the cleaner runs.
func (c *Cleaner) Definition() DatasetDefinition {
	return c.def
}

// run carries the state of a single Run call.
type run struct {
	*Cleaner
	ds     *Dataset
	guard  *stageGuard
	result *Result
}

// Run cleans ds and returns the result. Run takes ownership of ds: the
// returned Result.Dataset is ds itself, modified in place.
func (c *Cleaner) Run(ds *Dataset) (*Result, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}

	start := time.Now()
	r := &run{
		Cleaner: c,
		ds:      ds,
		guard:   newStageGuard(),
		result:  &Result{Dataset: ds, Coercion: map[string]int{}},
	}

	c.logger.Info("starting dataset cleaning", "rows", ds.Len(), "columns", len(ds.Columns))
	r.validateStructure()

	steps := []struct {
		stage Stage
		fn    func() error
	}{
		{StageTypeNormalized, r.normalizeTypes},
		{StageRulesApplied, r.applyRules},
		{StageDeduplicated, r.deduplicate},
		{StageFinalized, func() error { return nil }},
	}
	for _, s := range steps {
		if err := r.guard.advance(s.stage); err != nil {
			return nil, err
		}
		if err := s.fn(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.stage, err)
		}
	}

	r.result.Stages = r.guard.visited
	r.result.Duration = time.Since(start)

	c.logger.Info("dataset cleaning complete",
		"rows", ds.Len(),
		"quarantined", r.result.QuarantinedRows(),
		"repairs", len(r.result.Changes),
		"issues", len(r.result.Issues),
		"duration", r.result.Duration,
	)
	return r.result, nil
}

func (r *run) issue(i Issue) {
	i.Stage = r.guard.current
	r.result.Issues = append(r.result.Issues, i)
}

// validateStructure compares the dataset columns with the expected ones.
func (r *run) validateStructure() {
	if len(r.def.ExpectedColumns) == 0 {
		return
	}

	if missing := r.ds.MissingColumns(r.def.ExpectedColumns...); len(missing) > 0 {
		r.logger.Warn("missing columns", "columns", missing)
		r.issue(Issue{
			Kind:    IssueStructuralMismatch,
			Subject: r.def.Key,
			Columns: missing,
			Count:   len(missing),
			Message: fmt.Sprintf("missing expected columns %v", missing),
		})
	}

	expected := make(map[string]bool, len(r.def.ExpectedColumns))
	for _, c := range r.def.ExpectedColumns {
		expected[c] = true
	}
	var extra []string
	for _, c := range r.ds.ColumnNames() {
		if !expected[c] {
			extra = append(extra, c)
		}
	}
	if len(extra) > 0 {
		r.logger.Info("extra columns found", "columns", extra)
		r.issue(Issue{
			Kind:    IssueExtraColumns,
			Subject: r.def.Key,
			Columns: extra,
			Count:   len(extra),
			Message: fmt.Sprintf("extra columns %v", extra),
		})
	}
}

func (r *run) normalizeTypes() error {
	r.result.Coercion = CoerceDates(r.ds, r.def.DateColumns)
	for _, col := range r.def.DateColumns {
		n := r.result.Coercion[col]
		if n == 0 {
			continue
		}
		r.logger.Warn("unparseable dates set to null", "column", col, "count", n)
		r.issue(Issue{
			Kind:    IssueTypeCoercion,
			Subject: col,
			Columns: []string{col},
			Count:   n,
			Message: fmt.Sprintf("%d unparseable values set to null", n),
		})
	}
	return nil
}

func (r *run) applyRules() error {
	for _, rule := range r.def.Rules {
		if err := r.applyRule(rule); err != nil {
			return err
		}
	}
	if r.def.Week != nil {
		return r.reconcileWeek(*r.def.Week)
	}
	return nil
}

// applyRule evaluates one rule and either repairs or quarantines its
// violations, never both.
func (r *run) applyRule(rule Rule) error {
	report, err := Evaluate(r.ds, rule)
	if err != nil {
		return err
	}

	outcome := RuleOutcome{Report: report, Classification: Classify(report, rule, r.settings.InconsistencyThreshold)}
	log := r.logger.With("rule", rule.Name)

	if !report.Applicable {
		log.Warn("rule skipped, columns not found", "columns", report.MissingColumns)
		r.issue(Issue{
			Kind:    IssueStructuralMismatch,
			Subject: rule.Name,
			Columns: report.MissingColumns,
			Message: fmt.Sprintf("rule skipped, missing columns %v", report.MissingColumns),
		})
		r.result.Outcomes = append(r.result.Outcomes, outcome)
		return nil
	}

	log.Info("checked logical consistency",
		"violations", report.ViolationCount,
		"total", report.TotalRows,
		"percent", fmt.Sprintf("%.2f", report.Percent()),
	)

	switch outcome.Classification {
	case Untrusted:
		threshold := rule.EffectiveThreshold(r.settings.InconsistencyThreshold)
		log.Warn("high inconsistency, skipping auto-fix",
			"percent", fmt.Sprintf("%.2f", report.Percent()),
			"threshold_percent", threshold*100,
		)
		r.issue(Issue{
			Kind:    IssueHighInconsistency,
			Subject: rule.Name,
			Columns: rule.Columns(),
			Count:   report.ViolationCount,
			Message: fmt.Sprintf("%.2f%% violations at or above threshold %.2f%%", report.Percent(), threshold*100),
		})
		outcome.Quarantined = r.quarantine(rule.Reason, report.ViolatingRows)

	case DetectOnly:
		outcome.Quarantined = r.quarantine(rule.Reason, report.ViolatingRows)
		if outcome.Quarantined > 0 {
			log.Warn("flagged rows without a safe repair", "rows", outcome.Quarantined)
		}

	case Repairable:
		res, err := Apply(r.ds, rule, report.ViolatingRows)
		if err != nil {
			return err
		}
		outcome.Repaired = res.Repaired
		outcome.Skipped = res.Skipped
		r.result.Changes = append(r.result.Changes, res.Changes...)
		if res.Repaired > 0 || len(res.Skipped) > 0 {
			log.Info("repaired rows", "mode", string(rule.Repair), "repaired", res.Repaired, "unrepairable", len(res.Skipped))
		}
	}

	r.result.Outcomes = append(r.result.Outcomes, outcome)
	return nil
}

// quarantine snapshots rows into a new batch. Empty batches are not kept.
func (r *run) quarantine(reason string, rows []int) int {
	if len(rows) == 0 {
		return 0
	}
	r.result.Quarantine = append(r.result.Quarantine, newQuarantineBatch(r.ds, reason, rows))
	return len(rows)
}

func (r *run) reconcileWeek(w WeekCheck) error {
	if missing := r.ds.MissingColumns(w.DateColumn, w.WeekColumn); len(missing) > 0 {
		r.logger.Warn("skipping week validation, columns not found", "columns", missing)
		r.issue(Issue{
			Kind:    IssueStructuralMismatch,
			Subject: "week validation",
			Columns: missing,
			Message: fmt.Sprintf("week validation skipped, missing columns %v", missing),
		})
		return nil
	}
	if col, _ := r.ds.Column(w.DateColumn); col.Type != FieldDate {
		r.logger.Warn("skipping week validation, date column is not a date", "column", w.DateColumn, "type", col.Type.String())
		r.issue(Issue{
			Kind:    IssueStructuralMismatch,
			Subject: "week validation",
			Columns: []string{w.DateColumn},
			Message: fmt.Sprintf("week validation skipped, %s is %s", w.DateColumn, col.Type),
		})
		return nil
	}

	decided := DeriveWeekColumns(r.ds, w)
	if err := r.applyRule(w.Rule()); err != nil {
		return err
	}

	if o, ok := r.result.Outcome(ReasonWeekMismatch); ok {
		r.logger.Info("week validation",
			"valid", decided-o.Report.ViolationCount,
			"decidable", decided,
			"total", r.ds.Len(),
			"classification", string(o.Classification),
		)
	}
	return nil
}

func (r *run) deduplicate() error {
	res, err := Resolve(r.ds, r.def.DedupKey)
	if err != nil {
		return err
	}
	r.result.Dedup = res

	if res.Skipped {
		r.logger.Warn("key columns not found, skipping duplicate check", "columns", res.MissingColumns)
		r.issue(Issue{
			Kind:    IssueStructuralMismatch,
			Subject: "duplicate resolution",
			Columns: res.MissingColumns,
			Message: fmt.Sprintf("duplicate resolution skipped, missing key columns %v", res.MissingColumns),
		})
		return nil
	}

	if res.ExactRemoved > 0 {
		r.logger.Info("removed exact duplicates", "count", res.ExactRemoved)
	}
	if n := res.PartialCount(); n > 0 {
		r.logger.Warn("found partial duplicates", "rows", n, "groups", len(res.Groups), "key", r.def.DedupKey)
		r.result.Quarantine = append(r.result.Quarantine, res.Partial)
	}
	r.logger.Info("duplicate handling complete", "before", res.InitialRows, "after", res.FinalRows)
	return nil
}
