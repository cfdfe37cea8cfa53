package exec

import (
	"context"
	"errors"
	"io"

	"github.com/mmrzaf/tdgen/internal/domain"
)

const DefaultBatchSize = 1000

type BatchEngine struct {
	batchSize      int
	skipFailedRows bool
}

// NewBatchEngine falls back to DefaultBatchSize when batchSize is not
// positive.
func NewBatchEngine(batchSize int) *BatchEngine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BatchEngine{batchSize: batchSize}
}

// WithSkipFailedRows switches the engine to partial-failure mode: a row whose
// generation fails is dropped and counted in Batch.FailedRows instead of
// aborting the stream.
func (e *BatchEngine) WithSkipFailedRows(skip bool) *BatchEngine {
	e.skipFailedRows = skip
	return e
}

func (e *BatchEngine) BatchSize() int { return e.batchSize }

// Generate returns a lazy stream over rowCount rows. Nothing is produced
// until Next is called, and only one batch is resident at a time.
func (e *BatchEngine) Generate(rowCount int64, src RowSource) *BatchStream {
	return &BatchStream{
		src:   src,
		total: rowCount,
		size:  int64(e.batchSize),
		skip:  e.skipFailedRows,
	}
}

// BatchStream is single-use and not safe for concurrent calls to Next.
type BatchStream struct {
	src      RowSource
	total    int64
	size     int64
	skip     bool
	produced int64
	index    int
	err      error
}

// Next produces the next batch. It returns io.EOF once every row has been
// attempted. ctx is only checked here, before a batch starts, so a batch is
// never cut short by cancellation.
func (s *BatchStream) Next(ctx context.Context) (domain.Batch, error) {
	if s.err != nil {
		return domain.Batch{}, s.err
	}
	if s.produced >= s.total {
		s.err = io.EOF
		return domain.Batch{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		s.err = err
		return domain.Batch{}, err
	}

	n := min(s.size, s.total-s.produced)
	batch := domain.Batch{
		Index:    s.index,
		StartRow: s.produced,
		Rows:     make([]domain.Row, 0, n),
	}
	for i := int64(0); i < n; i++ {
		rowIdx := s.produced + i
		row, err := s.src.ProduceRow()
		if err != nil {
			if s.skip {
				batch.FailedRows++
				continue
			}
			s.err = s.generationError(rowIdx, err)
			return domain.Batch{}, s.err
		}
		batch.Rows = append(batch.Rows, row)
	}
	s.produced += n
	s.index++
	return batch, nil
}

func (s *BatchStream) generationError(row int64, err error) error {
	ge := &domain.GenerationError{Batch: s.index, Row: row, Err: err}
	var ce *columnError
	if errors.As(err, &ce) {
		ge.Column = ce.column
		ge.Err = ce.err
	}
	return ge
}

// Batches reports how many batches have been produced so far.
func (s *BatchStream) Batches() int { return s.index }
