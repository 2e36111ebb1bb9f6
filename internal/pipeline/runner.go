package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/csvfile"
	"github.com/JonMunkholm/dataclean/internal/store"
)

// Runner defaults.
const (
	DefaultWorkers    = 4
	DefaultRunTimeout = 10 * time.Minute
)

// RunnerConfig configures a batch Runner.
type RunnerConfig struct {
	DataDir  string
	Paths    Paths
	Datasets []string      // Empty means every registered dataset
	Workers  int           // Datasets cleaned in parallel
	Timeout  time.Duration // Per dataset
	Encoding csvfile.Encoding
}

// Runner cleans every configured dataset found in the raw data directory.
type Runner struct {
	cfg    RunnerConfig
	proc   *Processor
	logger *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig, proc *Processor, logger *slog.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRunTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, proc: proc, logger: logger}
}

// Report summarizes one batch run.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  []string // Dataset keys cleaned successfully, in registry order
	Missing    []string // Input files that did not exist
	Errors     []string
	Runs       []store.RunRecord
}

// Duration returns how long the batch took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Success reports whether no dataset failed.
func (r *Report) Success() bool {
	return len(r.Errors) == 0
}

// WriteReport renders the report in its plain text log format.
func (r *Report) WriteReport(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Data Cleaning Pipeline Report\n")
	fmt.Fprintf(&b, "Started: %s\n", r.StartedAt.Format(time.DateTime))
	fmt.Fprintf(&b, "Completed: %s\n", r.FinishedAt.Format(time.DateTime))
	fmt.Fprintf(&b, "Duration: %s\n", r.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "Datasets Processed: %s\n", strings.Join(r.Processed, ", "))
	fmt.Fprintf(&b, "Errors: %d\n", len(r.Errors))
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  - %s\n", e)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// outcome is the result slot of one dataset.
type outcome struct {
	key     string
	rec     *store.RunRecord
	missing bool
	err     error
}

// Run cleans the configured datasets in parallel and writes the run report.
// Failures of individual datasets are collected in the report; the
// returned error is reserved for failures of the batch itself.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: time.Now()}

	defs, unknown := r.definitions()
	for _, key := range unknown {
		report.Errors = append(report.Errors, fmt.Sprintf("%v %q", ErrUnknownDataset, key))
	}

	results := make([]outcome, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i, def := range defs {
		g.Go(func() error {
			results[i] = r.runOne(gctx, def)
			// Only cancellation of the whole batch stops other datasets.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	batchErr := g.Wait()

	for _, o := range results {
		switch {
		case o.key == "":
			// Never started because the batch was cancelled.
		case o.missing:
			report.Missing = append(report.Missing, o.key)
		case o.err != nil:
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to process %s: %v", o.key, o.err))
		default:
			report.Processed = append(report.Processed, o.key)
		}
		if o.rec != nil {
			report.Runs = append(report.Runs, *o.rec)
		}
	}
	report.FinishedAt = time.Now()

	path := r.cfg.Paths.ReportPath(report.StartedAt)
	if err := csvfile.WriteFile(path, report.WriteReport); err != nil {
		return report, errors.Join(batchErr, fmt.Errorf("write run report: %w", err))
	}
	r.logger.Info("pipeline complete",
		"processed", len(report.Processed),
		"errors", len(report.Errors),
		"duration", report.Duration(),
		"report", path,
	)
	return report, batchErr
}

func (r *Runner) definitions() ([]core.DatasetDefinition, []string) {
	if len(r.cfg.Datasets) == 0 {
		return core.All(), nil
	}
	var defs []core.DatasetDefinition
	var unknown []string
	for _, key := range r.cfg.Datasets {
		def, ok := core.Get(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		defs = append(defs, def)
	}
	return defs, unknown
}

func (r *Runner) runOne(ctx context.Context, def core.DatasetDefinition) outcome {
	o := outcome{key: def.Key}
	logger := r.logger.With("dataset", def.Key)

	path := filepath.Join(r.cfg.DataDir, def.FileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("input file not found", "path", path)
		o.missing = true
		return o
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	ds, info, err := csvfile.LoadFile(path, csvfile.Options{Encoding: r.cfg.Encoding})
	if err != nil {
		logger.Error("failed to load dataset", "path", path, "error", err)
		o.err = fmt.Errorf("load: %w", err)
		return o
	}

	rec, err := r.proc.Process(ctx, Job{
		Definition: def,
		Dataset:    ds,
		Info:       info,
		Source:     SourceCLI,
		FileName:   def.FileName,
		Paths:      r.cfg.Paths,
	})
	o.rec = &rec
	o.err = err
	return o
}
