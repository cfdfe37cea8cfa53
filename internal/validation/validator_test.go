package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/mmrzaf/tdgen/internal/registry"
)

func newValidator() *Validator {
	limits := DefaultLimits()
	limits.MaxRows = 1000
	limits.MaxColumns = 3
	limits.MaxBatchSize = 50
	return NewValidator(registry.DefaultGeneratorRegistry(), registry.DefaultFormatRegistry(), limits)
}

func floatPtr(v float64) *float64 { return &v }

func validRequest(dir string) *domain.GenerationRequest {
	return &domain.GenerationRequest{
		Rows: 3,
		Columns: []domain.ColumnConfig{
			{Name: "id", Type: domain.DataTypeInteger, Params: domain.ColumnParams{Min: floatPtr(1), Max: floatPtr(1000)}},
			{Name: "email", Type: domain.DataTypeEmail},
		},
		File: domain.FileConfig{Format: domain.FormatCSV, Path: filepath.Join(dir, "out.csv")},
	}
}

func TestValidateRequestBuildsPlan(t *testing.T) {
	dir := t.TempDir()
	plan, err := newValidator().ValidateRequest(validRequest(dir))
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Bindings) != 2 || plan.Bindings[1].Column.Name != "email" {
		t.Fatalf("unexpected bindings: %+v", plan.Bindings)
	}
	if plan.Columns[0].Kind != domain.KindInteger || plan.Columns[1].Kind != domain.KindString {
		t.Fatalf("unexpected column kinds: %+v", plan.Columns)
	}
	if plan.BatchSize != DefaultLimits().DefaultBatchSize {
		t.Fatalf("expected default batch size, got %d", plan.BatchSize)
	}
	if plan.Writer == nil || !plan.Writer.Incremental() {
		t.Fatal("expected the csv writer")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("validation left files behind: %v", entries)
	}
}

func TestValidateRequestAcceptsEmptyRequest(t *testing.T) {
	req := &domain.GenerationRequest{
		Rows: 0,
		File: domain.FileConfig{Format: domain.FormatCSV, Path: filepath.Join(t.TempDir(), "empty.csv")},
	}
	if _, err := newValidator().ValidateRequest(req); err != nil {
		t.Fatalf("expected rows=0 with no columns to be valid, got %v", err)
	}
}

func TestValidateRequestRejects(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "sub")
	if err := os.Mkdir(subdir, 0o755); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		mutate func(*domain.GenerationRequest)
		field  string
		column string
		is     error
	}{
		{"negative rows", func(r *domain.GenerationRequest) { r.Rows = -1 }, "rows", "", nil},
		{"too many rows", func(r *domain.GenerationRequest) { r.Rows = 1001 }, "rows", "", nil},
		{"no columns", func(r *domain.GenerationRequest) { r.Columns = nil }, "columns", "", nil},
		{"too many columns", func(r *domain.GenerationRequest) {
			r.Columns = append(r.Columns,
				domain.ColumnConfig{Name: "a", Type: domain.DataTypeName},
				domain.ColumnConfig{Name: "b", Type: domain.DataTypeName})
		}, "columns", "", nil},
		{"empty name", func(r *domain.GenerationRequest) { r.Columns[0].Name = "" }, "columns[0].name", "", nil},
		{"padded name", func(r *domain.GenerationRequest) { r.Columns[0].Name = " id" }, "name", " id", nil},
		{"duplicate name", func(r *domain.GenerationRequest) { r.Columns[1].Name = "ID" }, "name", "ID", nil},
		{"missing type", func(r *domain.GenerationRequest) { r.Columns[1].Type = "" }, "type", "email", nil},
		{"unknown type", func(r *domain.GenerationRequest) { r.Columns[1].Type = "zodiac" }, "type", "email", domain.ErrUnknownDataType},
		{"bad params", func(r *domain.GenerationRequest) { r.Columns[0].Params.Min = floatPtr(5000) }, "params", "id", domain.ErrInvalidParameter},
		{"negative batch", func(r *domain.GenerationRequest) { r.BatchSize = -1 }, "batch_size", "", nil},
		{"huge batch", func(r *domain.GenerationRequest) { r.BatchSize = 51 }, "batch_size", "", nil},
		{"missing format", func(r *domain.GenerationRequest) { r.File.Format = "" }, "file.format", "", nil},
		{"unknown format", func(r *domain.GenerationRequest) { r.File.Format = "pdf" }, "file.format", "", domain.ErrUnknownFormat},
		{"missing path", func(r *domain.GenerationRequest) { r.File.Path = "" }, "file.path", "", nil},
		{"path is dir", func(r *domain.GenerationRequest) { r.File.Path = subdir }, "file.path", "", nil},
		{"missing dir", func(r *domain.GenerationRequest) { r.File.Path = filepath.Join(dir, "nope", "x.csv") }, "file.path", "", nil},
		{"bad table name", func(r *domain.GenerationRequest) {
			r.File.Format = domain.FormatSQLite
			r.File.Options.TableName = "drop"
		}, "file.options.table_name", "", nil},
		{"bad writer option", func(r *domain.GenerationRequest) { r.File.Options.Delimiter = "||" }, "file.options", "", nil},
		{"xml column name", func(r *domain.GenerationRequest) {
			r.File.Format = domain.FormatXML
			r.Columns[1].Name = "e mail"
		}, "file.options", "", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest(dir)
			tc.mutate(req)
			_, err := newValidator().ValidateRequest(req)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("expected %v, got %v", tc.is, err)
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *domain.ValidationError, got %T", err)
			}
			if ve.Field != tc.field || ve.Column != tc.column {
				t.Fatalf("field=%q column=%q, want %q %q (%v)", ve.Field, ve.Column, tc.field, tc.column, err)
			}
			if domain.StageOf(err) != domain.StageValidating {
				t.Fatalf("unexpected stage %q", domain.StageOf(err))
			}
		})
	}
}

func TestCheckDestinationRejectsFileAsParent(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(parent, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := checkDestination(filepath.Join(parent, "out.csv"))
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Fatalf("expected not-a-directory error, got %v", err)
	}
}
