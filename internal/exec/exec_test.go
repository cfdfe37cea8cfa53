package exec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/mmrzaf/tdgen/internal/generators"
)

// counterSource numbers rows and fails on the rows listed in failAt.
type counterSource struct {
	n      int64
	failAt map[int64]bool
}

func (s *counterSource) ProduceRow() (domain.Row, error) {
	i := s.n
	s.n++
	if s.failAt[i] {
		return nil, &columnError{column: "n", err: errors.New("boom")}
	}
	return domain.Row{{Name: "n", Value: i}}, nil
}

func collect(t *testing.T, stream *BatchStream) []domain.Batch {
	t.Helper()
	var out []domain.Batch
	for {
		b, err := stream.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, b)
	}
}

func TestBatchCounts(t *testing.T) {
	cases := []struct {
		rows  int64
		size  int
		sizes []int
	}{
		{rows: 0, size: 10, sizes: nil},
		{rows: 3, size: 10, sizes: []int{3}},
		{rows: 10, size: 10, sizes: []int{10}},
		{rows: 25, size: 10, sizes: []int{10, 10, 5}},
		{rows: 30, size: 10, sizes: []int{10, 10, 10}},
		{rows: 7, size: 1, sizes: []int{1, 1, 1, 1, 1, 1, 1}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d/%d", tc.rows, tc.size), func(t *testing.T) {
			batches := collect(t, NewBatchEngine(tc.size).Generate(tc.rows, &counterSource{}))
			var sizes []int
			var next int64
			for i, b := range batches {
				if b.Index != i || b.StartRow != next {
					t.Fatalf("batch %d: index=%d start=%d, want start %d", i, b.Index, b.StartRow, next)
				}
				for j, row := range b.Rows {
					if row[0].Value != next+int64(j) {
						t.Fatalf("batch %d row %d out of order: %v", i, j, row[0].Value)
					}
				}
				next += int64(len(b.Rows))
				sizes = append(sizes, len(b.Rows))
			}
			if diff := cmp.Diff(tc.sizes, sizes); diff != "" {
				t.Fatalf("batch sizes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefaultBatchSize(t *testing.T) {
	if got := NewBatchEngine(0).BatchSize(); got != DefaultBatchSize {
		t.Fatalf("batch size = %d, want %d", got, DefaultBatchSize)
	}
}

func TestStreamIsNotRestartable(t *testing.T) {
	stream := NewBatchEngine(2).Generate(2, &counterSource{})
	collect(t, stream)
	if _, err := stream.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after exhaustion, got %v", err)
	}
}

func TestGenerationErrorCarriesPosition(t *testing.T) {
	stream := NewBatchEngine(4).Generate(10, &counterSource{failAt: map[int64]bool{6: true}})
	ctx := context.Background()
	if _, err := stream.Next(ctx); err != nil {
		t.Fatal(err)
	}
	_, err := stream.Next(ctx)

	var ge *domain.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected *domain.GenerationError, got %v", err)
	}
	if ge.Batch != 1 || ge.Row != 6 || ge.Column != "n" {
		t.Fatalf("unexpected position: %+v", ge)
	}
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatal("expected ErrGeneration to match")
	}
	if _, again := stream.Next(ctx); again != err {
		t.Fatalf("expected the same error on later calls, got %v", again)
	}
}

func TestSkipFailedRows(t *testing.T) {
	src := &counterSource{failAt: map[int64]bool{1: true, 4: true}}
	batches := collect(t, NewBatchEngine(3).WithSkipFailedRows(true).Generate(6, src))
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	var written, failed int64
	for _, b := range batches {
		written += int64(len(b.Rows))
		failed += b.FailedRows
	}
	if written != 4 || failed != 2 {
		t.Fatalf("written=%d failed=%d", written, failed)
	}
}

func TestCancellationAtBatchBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream := NewBatchEngine(5).Generate(20, &counterSource{})

	b, err := stream.Next(ctx)
	if err != nil || len(b.Rows) != 5 {
		t.Fatalf("first batch: %v rows=%d", err, len(b.Rows))
	}
	cancel()
	if _, err := stream.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stream.Batches() != 1 {
		t.Fatalf("expected one completed batch, got %d", stream.Batches())
	}
}

func TestRowProducerOrderAndNames(t *testing.T) {
	bindings := []Binding{
		{Column: domain.ColumnConfig{Name: "zeta", Type: domain.DataTypeInteger}, Generator: &generators.IntegerGenerator{}},
		{Column: domain.ColumnConfig{Name: "alpha", Type: domain.DataTypeBoolean}, Generator: &generators.BooleanGenerator{}},
		{Column: domain.ColumnConfig{Name: "mid", Type: domain.DataTypeUUID}, Generator: &generators.UUID4Generator{}},
	}
	p := NewRowProducer(bindings, rand.New(rand.NewPCG(1, 2)))
	row, err := p.ProduceRow()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range row {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, names); diff != "" {
		t.Fatalf("column order mismatch (-want +got):\n%s", diff)
	}
	if _, ok := row.Get("alpha"); !ok {
		t.Fatal("expected Get to find alpha")
	}
}

func TestRowProducerIsDeterministic(t *testing.T) {
	bindings := []Binding{
		{Column: domain.ColumnConfig{Name: "id"}, Generator: &generators.IntegerGenerator{}},
		{Column: domain.ColumnConfig{Name: "email"}, Generator: generators.EmailGenerator()},
	}
	run := func(seed uint64) []domain.Row {
		stream := NewBatchEngine(2).Generate(5, NewRowProducer(bindings, rand.New(rand.NewPCG(seed, 0))))
		var rows []domain.Row
		for _, b := range collect(t, stream) {
			rows = append(rows, b.Rows...)
		}
		return rows
	}
	if diff := cmp.Diff(run(42), run(42)); diff != "" {
		t.Fatalf("same seed produced different rows:\n%s", diff)
	}
	if cmp.Equal(run(42), run(43)) {
		t.Fatal("different seeds produced identical rows")
	}
}

func TestDrainPreservesOrder(t *testing.T) {
	for _, prefetch := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("prefetch=%d", prefetch), func(t *testing.T) {
			stream := NewBatchEngine(3).Generate(20, &counterSource{})
			var seen []int
			var inFlight atomic.Int32
			err := Drain(context.Background(), stream, prefetch, func(b domain.Batch) error {
				if inFlight.Add(1) != 1 {
					t.Error("sink called concurrently")
				}
				defer inFlight.Add(-1)
				time.Sleep(time.Millisecond)
				seen = append(seen, b.Index)
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
			want := []int{0, 1, 2, 3, 4, 5, 6}
			if diff := cmp.Diff(want, seen); diff != "" {
				t.Fatalf("batch order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDrainPropagatesSinkError(t *testing.T) {
	sinkErr := errors.New("disk full")
	for _, prefetch := range []int{0, 2} {
		stream := NewBatchEngine(2).Generate(10, &counterSource{})
		calls := 0
		err := Drain(context.Background(), stream, prefetch, func(b domain.Batch) error {
			calls++
			if b.Index == 1 {
				return sinkErr
			}
			return nil
		})
		if !errors.Is(err, sinkErr) {
			t.Fatalf("prefetch=%d: expected sink error, got %v", prefetch, err)
		}
		if calls != 2 {
			t.Fatalf("prefetch=%d: sink called %d times after failure", prefetch, calls)
		}
	}
}

func TestDrainPropagatesGenerationError(t *testing.T) {
	for _, prefetch := range []int{0, 2} {
		stream := NewBatchEngine(2).Generate(10, &counterSource{failAt: map[int64]bool{5: true}})
		var written []int
		err := Drain(context.Background(), stream, prefetch, func(b domain.Batch) error {
			written = append(written, b.Index)
			return nil
		})
		var ge *domain.GenerationError
		if !errors.As(err, &ge) || ge.Batch != 2 {
			t.Fatalf("prefetch=%d: expected generation error in batch 2, got %v", prefetch, err)
		}
		for _, idx := range written {
			if idx >= 2 {
				t.Fatalf("prefetch=%d: batch %d written after failure", prefetch, idx)
			}
		}
	}
}
