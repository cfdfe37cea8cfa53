package app

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mmrzaf/tdgen/internal/config"
	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/mmrzaf/tdgen/internal/exec"
	"github.com/mmrzaf/tdgen/internal/hashing"
	"github.com/mmrzaf/tdgen/internal/infra/repos/runs"
	"github.com/mmrzaf/tdgen/internal/logging"
	"github.com/mmrzaf/tdgen/internal/registry"
	"github.com/mmrzaf/tdgen/internal/validation"
	"github.com/mmrzaf/tdgen/internal/writers"
)

// ErrHistoryDisabled is returned by run lookups on a service built without a
// runs repository.
var ErrHistoryDisabled = errors.New("run history is not configured")

// pcgStream is the fixed second PCG word. Only the seed varies between runs.
const pcgStream = 0x9e3779b97f4a7c15

type PartialOutputPolicy string

const (
	PartialOutputKeep   PartialOutputPolicy = config.PartialOutputKeep
	PartialOutputDelete PartialOutputPolicy = config.PartialOutputDelete
)

type Settings struct {
	MaxRows          int64
	MaxColumns       int
	DefaultBatchSize int
	MaxBatchSize     int
	Prefetch         int
	PartialOutput    PartialOutputPolicy
	SkipFailedRows   bool
}

func DefaultSettings() Settings {
	l := validation.DefaultLimits()
	return Settings{
		MaxRows:          l.MaxRows,
		MaxColumns:       l.MaxColumns,
		DefaultBatchSize: l.DefaultBatchSize,
		MaxBatchSize:     l.MaxBatchSize,
		PartialOutput:    PartialOutputKeep,
	}
}

// SettingsFromConfig copies the generation limits out of a loaded Config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		MaxRows:          cfg.MaxRows,
		MaxColumns:       cfg.MaxColumns,
		DefaultBatchSize: cfg.BatchSize,
		MaxBatchSize:     cfg.MaxBatchSize,
		Prefetch:         cfg.Prefetch,
		PartialOutput:    PartialOutputPolicy(cfg.PartialOutput),
		SkipFailedRows:   cfg.SkipFailedRows,
	}
}

func (s Settings) limits() validation.Limits {
	return validation.Limits{
		MaxRows:          s.MaxRows,
		MaxColumns:       s.MaxColumns,
		DefaultBatchSize: s.DefaultBatchSize,
		MaxBatchSize:     s.MaxBatchSize,
	}
}

type Option func(*GenerationService)

func WithRunRepository(repo runs.Repository) Option {
	return func(s *GenerationService) { s.runRepo = repo }
}

// WithProgress installs a callback that receives the running total of rows
// written after every batch.
func WithProgress(fn func(written, total int64)) Option {
	return func(s *GenerationService) { s.progress = fn }
}

func WithStateObserver(fn func(runID string, from, to State)) Option {
	return func(s *GenerationService) { s.observer = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *GenerationService) { s.now = now }
}

// GenerationService runs one request at a time per Submit call. Separate
// Submit calls share nothing mutable and may run in parallel.
type GenerationService struct {
	genRegistry *registry.GeneratorRegistry
	fmtRegistry *registry.FormatRegistry
	validator   *validation.Validator
	settings    Settings
	runRepo     runs.Repository
	logger      *logging.Logger
	progress    func(written, total int64)
	observer    func(runID string, from, to State)
	now         func() time.Time
}

func NewGenerationService(
	genRegistry *registry.GeneratorRegistry,
	fmtRegistry *registry.FormatRegistry,
	settings Settings,
	logger *logging.Logger,
	opts ...Option,
) *GenerationService {
	if settings.PartialOutput == "" {
		settings.PartialOutput = PartialOutputKeep
	}
	s := &GenerationService{
		genRegistry: genRegistry,
		fmtRegistry: fmtRegistry,
		validator:   validation.NewValidator(genRegistry, fmtRegistry, settings.limits()),
		settings:    settings,
		logger:      logger.WithComponent("generation"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GenerationService) Settings() Settings { return s.settings }

func (s *GenerationService) Types() []domain.DataType { return s.genRegistry.Types() }

func (s *GenerationService) Formats() []domain.Format { return s.fmtRegistry.Formats() }

// Validate runs every check Submit runs before touching the destination.
// Nothing is created on disk either way.
func (s *GenerationService) Validate(req *domain.GenerationRequest) error {
	_, err := s.validator.ValidateRequest(req)
	return err
}

// Submit validates req, generates its rows batch by batch and writes them to
// req.File. On failure the error carries the stage, and for generation and
// write failures the batch index. Partial output is removed for
// whole-document formats and, under the delete policy, for incremental ones.
func (s *GenerationService) Submit(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	runID := uuid.NewString()
	started := s.now()
	m := newStateMachine(runID, s.observer)

	m.to(StateValidating)
	plan, err := s.validator.ValidateRequest(req)
	if err != nil {
		m.to(StateFailed)
		s.logger.Warnw("request.rejected", map[string]any{"run_id": runID, "error": err.Error()})
		return nil, err
	}

	seed := generateSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	run := s.startRun(runID, req, plan, seed, started)

	s.logger.Infow("generation.started", map[string]any{
		"run_id":     runID,
		"format":     string(req.File.Format),
		"path":       req.File.Path,
		"rows":       req.Rows,
		"columns":    len(req.Columns),
		"batch_size": plan.BatchSize,
		"seed":       seed,
	})

	rng := mrand.New(mrand.NewPCG(uint64(seed), pcgStream))
	stream := exec.NewBatchEngine(plan.BatchSize).
		WithSkipFailedRows(s.settings.SkipFailedRows).
		Generate(req.Rows, exec.NewRowProducer(plan.Bindings, rng))

	m.to(StateGenerating)
	session, err := plan.Writer.Open(req.File, plan.Columns)
	if err != nil {
		werr := &domain.WriteError{Batch: -1, Op: "open", Path: req.File.Path, Err: err}
		s.cleanup(plan.Writer, req.File.Path)
		return nil, s.fail(m, run, werr)
	}

	var written, failed int64
	incremental := plan.Writer.Incremental()
	sink := func(b domain.Batch) error {
		if incremental && m.state == StateGenerating {
			m.to(StateWriting)
		}
		if err := session.WriteBatch(b); err != nil {
			return &domain.WriteError{Batch: b.Index, Op: "write", Path: req.File.Path, Err: err}
		}
		written += int64(len(b.Rows))
		failed += b.FailedRows
		if s.progress != nil {
			s.progress(written, req.Rows)
		}
		return nil
	}

	if err := exec.Drain(ctx, stream, s.settings.Prefetch, sink); err != nil {
		if abortErr := session.Abort(); abortErr != nil {
			s.logger.Warnw("generation.abort_failed", map[string]any{"run_id": runID, "error": abortErr.Error()})
		}
		s.cleanup(plan.Writer, req.File.Path)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			err = fmt.Errorf("generation cancelled after %d batches: %w", stream.Batches(), err)
		}
		return nil, s.fail(m, run, err)
	}

	if m.state == StateGenerating {
		m.to(StateWriting)
	}
	stats, err := session.Close()
	if err != nil {
		werr := &domain.WriteError{Batch: -1, Op: "close", Path: req.File.Path, Err: err}
		s.cleanup(plan.Writer, req.File.Path)
		return nil, s.fail(m, run, werr)
	}
	m.to(StateDone)

	result := &domain.GenerationResult{
		RunID:        runID,
		OutputPath:   req.File.Path,
		Format:       req.File.Format,
		RowsWritten:  stats.Rows,
		BytesWritten: stats.Bytes,
		Batches:      stream.Batches(),
		FailedRows:   failed,
		Seed:         seed,
		Duration:     s.now().Sub(started),
	}
	s.finishRun(run, result)

	s.logger.Infow("generation.completed", map[string]any{
		"run_id":        runID,
		"rows_written":  result.RowsWritten,
		"bytes_written": result.BytesWritten,
		"batches":       result.Batches,
		"failed_rows":   result.FailedRows,
		"duration_ms":   result.Duration.Milliseconds(),
	})
	return result, nil
}

func (s *GenerationService) startRun(id string, req *domain.GenerationRequest, plan *validation.Plan, seed int64, started time.Time) *domain.Run {
	if s.runRepo == nil {
		return nil
	}
	hash, err := hashing.HashRequest(req, plan.BatchSize, seed)
	if err != nil {
		s.logger.Warn("Failed to hash request for run %s: %v", id, err)
	}
	run := &domain.Run{
		ID:         id,
		Name:       req.Name,
		Format:     req.File.Format,
		OutputPath: req.File.Path,
		Rows:       req.Rows,
		Columns:    len(req.Columns),
		Seed:       seed,
		ConfigHash: hash,
		Status:     domain.RunStatusRunning,
		StartedAt:  started,
	}
	if err := s.runRepo.Create(run); err != nil {
		s.logger.Error("Failed to record run %s: %v", id, err)
		return nil
	}
	return run
}

func (s *GenerationService) finishRun(run *domain.Run, result *domain.GenerationResult) {
	if run == nil {
		return
	}
	now := s.now()
	run.Status = domain.RunStatusSuccess
	run.CompletedAt = &now
	run.RowsWritten = result.RowsWritten
	run.BytesWritten = result.BytesWritten
	if err := s.runRepo.Update(run); err != nil {
		s.logger.Error("Failed to update run %s: %v", run.ID, err)
	}
}

func (s *GenerationService) fail(m *stateMachine, run *domain.Run, err error) error {
	m.to(StateFailed)
	fields := map[string]any{"run_id": m.runID, "error": err.Error()}
	if stage := domain.StageOf(err); stage != "" {
		fields["stage"] = string(stage)
	}
	s.logger.Errorw("generation.failed", fields)

	if run != nil {
		now := s.now()
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
		run.CompletedAt = &now
		if uerr := s.runRepo.Update(run); uerr != nil {
			s.logger.Error("Failed to update run %s: %v", run.ID, uerr)
		}
	}
	return err
}

// cleanup removes output that must not outlive a failed run. Incremental
// formats hold complete batches, so they are kept unless the policy says
// otherwise.
func (s *GenerationService) cleanup(w writers.Writer, path string) {
	if w.Incremental() && s.settings.PartialOutput != PartialOutputDelete {
		s.logger.Warn("Keeping partial output %s", path)
		return
	}
	s.removeOutput(path)
}

func (s *GenerationService) removeOutput(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("Failed to remove partial output %s: %v", path, err)
	}
}

// GetRun returns a recorded run by ID.
func (s *GenerationService) GetRun(id string) (*domain.Run, error) {
	if s.runRepo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.runRepo.Get(id)
}

func (s *GenerationService) ListRuns(limit int, status domain.RunStatus) ([]*domain.Run, error) {
	if s.runRepo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.runRepo.List(limit, status)
}

func generateSeed() int64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}
