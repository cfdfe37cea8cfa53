package app

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/mmrzaf/tdgen/internal/infra/repos/runs"
	"github.com/mmrzaf/tdgen/internal/logging"
	"github.com/mmrzaf/tdgen/internal/registry"
	"github.com/mmrzaf/tdgen/internal/writers"
)

func seedPtr(v int64) *int64 { return &v }

func floatPtr(v float64) *float64 { return &v }

func newService(t *testing.T, opts ...Option) *GenerationService {
	t.Helper()
	return NewGenerationService(
		registry.DefaultGeneratorRegistry(),
		registry.DefaultFormatRegistry(),
		DefaultSettings(),
		logging.NewLoggerWithWriter("error", &bytes.Buffer{}),
		opts...,
	)
}

func idEmailRequest(path string, seed int64) *domain.GenerationRequest {
	return &domain.GenerationRequest{
		Rows: 3,
		Columns: []domain.ColumnConfig{
			{Name: "id", Type: domain.DataTypeInteger, Params: domain.ColumnParams{Min: floatPtr(1), Max: floatPtr(1000)}},
			{Name: "email", Type: domain.DataTypeEmail},
		},
		File: domain.FileConfig{Format: domain.FormatCSV, Path: path},
		Seed: seedPtr(seed),
	}
}

func TestSubmitIsReproducibleForSeed(t *testing.T) {
	dir := t.TempDir()
	svc := newService(t)

	read := func(name string, seed int64) []byte {
		t.Helper()
		path := filepath.Join(dir, name)
		res, err := svc.Submit(context.Background(), idEmailRequest(path, seed))
		if err != nil {
			t.Fatal(err)
		}
		if res.RowsWritten != 3 || res.Seed != seed || res.Batches != 1 {
			t.Fatalf("unexpected result: %+v", res)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if res.BytesWritten != int64(len(data)) {
			t.Fatalf("bytes written %d, file has %d", res.BytesWritten, len(data))
		}
		return data
	}

	a := read("a.csv", 42)
	b := read("b.csv", 42)
	c := read("c.csv", 43)

	if !bytes.Equal(a, b) {
		t.Fatalf("same seed produced different output:\n%s\n---\n%s", a, b)
	}
	if bytes.Equal(a, c) {
		t.Fatal("different seeds produced identical output")
	}

	for _, data := range [][]byte{a, c} {
		lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 rows, got %q", lines)
		}
		if lines[0] != "id,email" {
			t.Fatalf("unexpected header %q", lines[0])
		}
		for _, l := range lines[1:] {
			if strings.Count(l, ",") != 1 || !strings.Contains(l, "@") {
				t.Fatalf("unexpected row %q", l)
			}
		}
	}
}

func TestSubmitPrefetchMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	seq := newService(t)
	settings := DefaultSettings()
	settings.Prefetch = 2
	pre := NewGenerationService(registry.DefaultGeneratorRegistry(), registry.DefaultFormatRegistry(),
		settings, logging.NewLoggerWithWriter("error", &bytes.Buffer{}))

	reqA := idEmailRequest(filepath.Join(dir, "seq.csv"), 7)
	reqA.Rows, reqA.BatchSize = 250, 40
	reqB := idEmailRequest(filepath.Join(dir, "pre.csv"), 7)
	reqB.Rows, reqB.BatchSize = 250, 40

	resA, err := seq.Submit(context.Background(), reqA)
	if err != nil {
		t.Fatal(err)
	}
	resB, err := pre.Submit(context.Background(), reqB)
	if err != nil {
		t.Fatal(err)
	}
	if resA.Batches != 7 || resB.Batches != 7 {
		t.Fatalf("expected 7 batches, got %d and %d", resA.Batches, resB.Batches)
	}

	a, _ := os.ReadFile(reqA.File.Path)
	b, _ := os.ReadFile(reqB.File.Path)
	if !bytes.Equal(a, b) {
		t.Fatal("prefetching changed the output")
	}
}

func TestSubmitValidationFailureCreatesNothing(t *testing.T) {
	dir := t.TempDir()
	var states []State
	svc := newService(t, WithStateObserver(func(_ string, _, to State) { states = append(states, to) }))

	req := idEmailRequest(filepath.Join(dir, "out.csv"), 1)
	req.Columns = append(req.Columns, domain.ColumnConfig{Name: "x", Type: "nope"})

	_, err := svc.Submit(context.Background(), req)
	if !errors.Is(err, domain.ErrUnknownDataType) || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected unknown data type validation error, got %v", err)
	}
	if domain.StageOf(err) != domain.StageValidating {
		t.Fatalf("unexpected stage %q", domain.StageOf(err))
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no files, found %d", len(entries))
	}
	if diff := cmp.Diff([]State{StateValidating, StateFailed}, states); diff != "" {
		t.Fatalf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitZeroRowsWithoutColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	res, err := newService(t).Submit(context.Background(), &domain.GenerationRequest{
		File: domain.FileConfig{Format: domain.FormatJSON, Path: path},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsWritten != 0 || res.Batches != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]\n" {
		t.Fatalf("unexpected document %q", data)
	}
}

func TestSubmitStateSequence(t *testing.T) {
	for _, format := range []domain.Format{domain.FormatCSV, domain.FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			var states []State
			svc := newService(t, WithStateObserver(func(_ string, _, to State) { states = append(states, to) }))
			req := idEmailRequest(filepath.Join(t.TempDir(), "out."+string(format)), 5)
			req.File.Format = format
			if _, err := svc.Submit(context.Background(), req); err != nil {
				t.Fatal(err)
			}
			want := []State{StateValidating, StateGenerating, StateWriting, StateDone}
			if diff := cmp.Diff(want, states); diff != "" {
				t.Fatalf("states mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSubmitReportsProgress(t *testing.T) {
	var seen []int64
	svc := newService(t, WithProgress(func(written, total int64) {
		if total != 25 {
			t.Errorf("unexpected total %d", total)
		}
		seen = append(seen, written)
	}))
	req := idEmailRequest(filepath.Join(t.TempDir(), "out.csv"), 3)
	req.Rows, req.BatchSize = 25, 10
	if _, err := svc.Submit(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{10, 20, 25}, seen); diff != "" {
		t.Fatalf("progress mismatch (-want +got):\n%s", diff)
	}
}

type failingGenerator struct{}

func (failingGenerator) Generate(*rand.Rand, domain.ColumnParams) (any, error) {
	return nil, errors.New("boom")
}
func (failingGenerator) Validate(domain.ColumnParams) error { return nil }
func (failingGenerator) Kind() domain.ValueKind             { return domain.KindString }

func TestSubmitGenerationErrorRemovesWholeDocument(t *testing.T) {
	genReg := registry.DefaultGeneratorRegistry()
	genReg.Register("broken", failingGenerator{})
	svc := NewGenerationService(genReg, registry.DefaultFormatRegistry(), DefaultSettings(),
		logging.NewLoggerWithWriter("error", &bytes.Buffer{}))

	path := filepath.Join(t.TempDir(), "out.json")
	req := idEmailRequest(path, 1)
	req.File.Format = domain.FormatJSON
	req.Columns = append(req.Columns, domain.ColumnConfig{Name: "bad", Type: "broken"})

	_, err := svc.Submit(context.Background(), req)
	var ge *domain.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if ge.Batch != 0 || ge.Row != 0 || ge.Column != "bad" {
		t.Fatalf("unexpected error position: %+v", ge)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected partial document to be removed, stat err=%v", statErr)
	}
}

// flakyWriter writes one line per batch and fails on failAt.
type flakyWriter struct {
	incremental bool
	failAt      int
}

func (w *flakyWriter) Incremental() bool { return w.incremental }
func (w *flakyWriter) Extension() string { return ".out" }
func (w *flakyWriter) Validate(domain.FormatOptions, []writers.Column, int64) error {
	return nil
}

func (w *flakyWriter) Open(cfg domain.FileConfig, _ []writers.Column) (writers.Session, error) {
	f, err := os.Create(cfg.Path)
	if err != nil {
		return nil, err
	}
	return &flakySession{f: f, failAt: w.failAt}, nil
}

type flakySession struct {
	f      *os.File
	failAt int
	rows   int64
}

func (s *flakySession) WriteBatch(b domain.Batch) error {
	if b.Index == s.failAt {
		return errors.New("disk full")
	}
	s.rows += int64(len(b.Rows))
	_, err := s.f.WriteString("batch\n")
	return err
}

func (s *flakySession) Close() (writers.Stats, error) {
	return writers.Stats{Rows: s.rows}, s.f.Close()
}

func (s *flakySession) Abort() error { return s.f.Close() }

func TestSubmitWriteErrorCleanup(t *testing.T) {
	cases := []struct {
		name        string
		incremental bool
		policy      PartialOutputPolicy
		wantFile    bool
	}{
		{"whole document", false, PartialOutputKeep, false},
		{"incremental keep", true, PartialOutputKeep, true},
		{"incremental delete", true, PartialOutputDelete, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fmtReg := registry.DefaultFormatRegistry()
			fmtReg.Register("flaky", &flakyWriter{incremental: tc.incremental, failAt: 1})
			settings := DefaultSettings()
			settings.PartialOutput = tc.policy
			svc := NewGenerationService(registry.DefaultGeneratorRegistry(), fmtReg, settings,
				logging.NewLoggerWithWriter("error", &bytes.Buffer{}))

			path := filepath.Join(t.TempDir(), "out.flaky")
			req := idEmailRequest(path, 9)
			req.Rows, req.BatchSize = 10, 4
			req.File.Format = "flaky"

			_, err := svc.Submit(context.Background(), req)
			var we *domain.WriteError
			if !errors.As(err, &we) {
				t.Fatalf("expected WriteError, got %v", err)
			}
			if we.Batch != 1 || we.Op != "write" || we.Path != path {
				t.Fatalf("unexpected write error: %+v", we)
			}
			if !errors.Is(err, domain.ErrWrite) || domain.StageOf(err) != domain.StageWriting {
				t.Fatalf("unexpected classification: %v", err)
			}

			data, statErr := os.ReadFile(path)
			if tc.wantFile {
				if statErr != nil {
					t.Fatal(statErr)
				}
				if string(data) != "batch\n" {
					t.Fatalf("expected first batch to survive, got %q", data)
				}
			} else if !errors.Is(statErr, os.ErrNotExist) {
				t.Fatalf("expected output removed, stat err=%v", statErr)
			}
		})
	}
}

func TestSubmitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "out.json")
	req := idEmailRequest(path, 1)
	req.File.Format = domain.FormatJSON

	_, err := newService(t).Submit(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected output removed, stat err=%v", statErr)
	}
}

func TestSubmitRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	repo := runs.NewSQLiteRepository(filepath.Join(dir, "history.sqlite"))
	if err := repo.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	svc := newService(t, WithRunRepository(repo))

	ok := idEmailRequest(filepath.Join(dir, "ok.csv"), 42)
	ok.Name = "people"
	res, err := svc.Submit(context.Background(), ok)
	if err != nil {
		t.Fatal(err)
	}

	bad := idEmailRequest(filepath.Join(dir, "bad.csv"), 42)
	bad.Columns = append(bad.Columns, domain.ColumnConfig{Name: "x", Type: "nope"})
	if _, err := svc.Submit(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}

	got, err := svc.GetRun(res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.RunStatusSuccess || got.Name != "people" || got.Seed != 42 {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.RowsWritten != 3 || got.BytesWritten != res.BytesWritten || got.CompletedAt == nil {
		t.Fatalf("unexpected run totals: %+v", got)
	}
	if len(got.ConfigHash) != 64 {
		t.Fatalf("expected sha256 hex hash, got %q", got.ConfigHash)
	}

	all, err := svc.ListRuns(10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("rejected requests must not be recorded, got %d runs", len(all))
	}
}

func TestHistoryDisabled(t *testing.T) {
	svc := newService(t)
	if _, err := svc.GetRun("x"); !errors.Is(err, ErrHistoryDisabled) {
		t.Fatalf("expected ErrHistoryDisabled, got %v", err)
	}
	if _, err := svc.ListRuns(1, ""); !errors.Is(err, ErrHistoryDisabled) {
		t.Fatalf("expected ErrHistoryDisabled, got %v", err)
	}
}

func TestStateTransitions(t *testing.T) {
	if !canTransition(StateWriting, StateDone) || canTransition(StateDone, StateFailed) {
		t.Fatal("unexpected transition table")
	}
	if !StateFailed.Terminal() || StateWriting.Terminal() {
		t.Fatal("unexpected terminal states")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on invalid transition")
		}
	}()
	newStateMachine("r", nil).to(StateDone)
}
