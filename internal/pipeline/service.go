package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/csvfile"
	"github.com/JonMunkholm/dataclean/internal/store"
)

var (
	// ErrUnknownDataset is returned for a key with no registered definition.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrQuarantineNotFound is returned for a reason a run did not quarantine.
	ErrQuarantineNotFound = errors.New("quarantine batch not found")
)

// ServiceConfig configures the on-demand cleaning Service.
type ServiceConfig struct {
	Paths         Paths
	Timeout       time.Duration // Per cleaning run
	MaxConcurrent int
	MaxWait       time.Duration
}

// Service cleans uploaded files on demand and serves their results.
type Service struct {
	proc    *Processor
	store   store.Store
	paths   Paths
	timeout time.Duration
	limiter *RunLimiter
}

// NewService creates a Service. Runs are read back from st, which should
// be the store proc saves to.
func NewService(cfg ServiceConfig, proc *Processor, st store.Store) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRunTimeout
	}
	return &Service{
		proc:    proc,
		store:   st,
		paths:   cfg.Paths,
		timeout: cfg.Timeout,
		limiter: NewRunLimiter(cfg.MaxConcurrent, cfg.MaxWait),
	}
}

// Datasets returns the registered dataset definitions.
func (s *Service) Datasets() []core.DatasetDefinition {
	return core.All()
}

// Limiter exposes the run limiter for status reporting and drain on shutdown.
func (s *Service) Limiter() *RunLimiter {
	return s.limiter
}

// Clean reads a CSV for dataset key from r and cleans it. Artifacts of each
// run are kept in their own directory named after the run ID.
func (s *Service) Clean(ctx context.Context, key string, r io.Reader, fileName string) (store.RunRecord, error) {
	def, ok := core.Get(key)
	if !ok {
		return store.RunRecord{}, fmt.Errorf("%w %q", ErrUnknownDataset, key)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return store.RunRecord{}, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ds, info, err := csvfile.Read(r, key, csvfile.Options{})
	if err != nil {
		return store.RunRecord{}, err
	}

	id := uuid.NewString()
	return s.proc.Process(ctx, Job{
		ID:         id,
		Definition: def,
		Dataset:    ds,
		Info:       info,
		Source:     SourceHTTP,
		FileName:   fileName,
		Paths:      s.paths.Under(id),
	})
}

// GetRun returns the full record of a run.
func (s *Service) GetRun(ctx context.Context, id string) (store.RunRecord, error) {
	return s.store.GetRun(ctx, id)
}

// ListRuns returns recent runs, newest first.
func (s *Service) ListRuns(ctx context.Context, opts store.ListOptions) ([]store.RunRecord, error) {
	return s.store.ListRuns(ctx, opts)
}

// OpenCleaned opens the cleaned CSV written by run id.
func (s *Service) OpenCleaned(ctx context.Context, id string) (io.ReadCloser, store.RunRecord, error) {
	rec, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, rec, err
	}
	if rec.Artifacts.Cleaned == "" {
		return nil, rec, fmt.Errorf("%w: %s has no cleaned output", store.ErrNotFound, id)
	}
	f, err := os.Open(rec.Artifacts.Cleaned)
	if err != nil {
		return nil, rec, fmt.Errorf("open cleaned output: %w", err)
	}
	return f, rec, nil
}

// OpenQuarantine opens the rows run id quarantined for reason.
func (s *Service) OpenQuarantine(ctx context.Context, id, reason string) (io.ReadCloser, store.RunRecord, error) {
	rec, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, rec, err
	}
	path, ok := rec.Artifacts.Quarantine[reason]
	if !ok {
		return nil, rec, fmt.Errorf("%w: %s", ErrQuarantineNotFound, reason)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, rec, fmt.Errorf("open quarantine output: %w", err)
	}
	return f, rec, nil
}
