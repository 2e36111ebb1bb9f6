package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/csvfile"
	"github.com/JonMunkholm/dataclean/internal/profile"
	"github.com/JonMunkholm/dataclean/internal/store"
)

// Run sources recorded on each RunRecord.
const (
	SourceCLI  = "cli"
	SourceHTTP = "http"
)

// Processor cleans one loaded dataset end to end: profile, clean, quality
// report, artifacts and run record.
type Processor struct {
	settings core.Settings
	store    store.Store
	monitor  *profile.MemoryMonitor
	logger   *slog.Logger
}

// NewProcessor creates a Processor. A nil store skips persistence.
func NewProcessor(settings core.Settings, st store.Store, memoryThresholdMB float64, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		settings: settings,
		store:    st,
		monitor:  profile.NewMemoryMonitor(memoryThresholdMB, logger),
		logger:   logger,
	}
}

// Job is one dataset ready for cleaning.
type Job struct {
	ID         string // Generated when empty
	Definition core.DatasetDefinition
	Dataset    *core.Dataset
	Info       csvfile.LoadInfo
	Source     string
	FileName   string
	Paths      Paths
}

// Process runs job and persists its record. The record is saved even when
// cleaning fails, with StatusFailed and the error text.
func (p *Processor) Process(ctx context.Context, job Job) (store.RunRecord, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	rec := store.RunRecord{
		ID:        job.ID,
		Dataset:   job.Definition.Key,
		Source:    job.Source,
		FileName:  job.FileName,
		Encoding:  string(job.Info.Encoding),
		StartedAt: time.Now().UTC(),
	}
	logger := p.logger.With("run_id", rec.ID, "dataset", rec.Dataset)

	runErr := p.clean(ctx, logger, job, &rec)
	rec.FinishedAt = time.Now().UTC()
	if runErr != nil {
		rec.Status = store.StatusFailed
		rec.Error = runErr.Error()
		logger.Error("cleaning run failed", "error", runErr)
	} else {
		rec.Status = store.StatusSucceeded
		logger.Info("cleaning run complete",
			"initial_rows", rec.InitialRows,
			"final_rows", rec.FinalRows,
			"quarantined", rec.QuarantinedRows,
			"duration", rec.Duration(),
		)
	}

	if p.store != nil {
		// Failed and timed-out runs are recorded too.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := p.store.SaveRun(saveCtx, rec); err != nil {
			if runErr == nil {
				runErr = fmt.Errorf("save run: %w", err)
			}
			logger.Error("failed to save run", "error", err)
		}
	}
	return rec, runErr
}

func (p *Processor) clean(ctx context.Context, logger *slog.Logger, job Job, rec *store.RunRecord) error {
	ds := job.Dataset
	if ds == nil {
		return core.ErrNilDataset
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ds.Name = job.Definition.Key

	prof := profile.Build(ds)
	rec.Profile = &prof
	logger.Info("dataset loaded", "rows", prof.Rows, "columns", prof.Columns, "encoding", job.Info.Encoding)
	p.monitor.Check(ds, "initial")

	cleaner, err := core.NewCleaner(p.settings, job.Definition, logger)
	if err != nil {
		return err
	}
	res, err := cleaner.Run(ds)
	if err != nil {
		return err
	}
	rec.Summarize(res)
	p.monitor.Check(res.Dataset, "final")

	rec.Quality = profile.Quality(res.Dataset, profile.QualityOptions{
		TargetColumn:       job.Definition.TargetColumn,
		ExpectedCategories: job.Definition.ExpectedCategories,
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	art, err := job.Paths.WriteArtifacts(res)
	if err != nil {
		return err
	}
	rec.Artifacts = art
	return nil
}
