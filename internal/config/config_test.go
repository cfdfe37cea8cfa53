package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var tdgenVars = []string{
	"TDGEN_MAX_ROWS", "TDGEN_MAX_COLUMNS", "TDGEN_BATCH_SIZE", "TDGEN_MAX_BATCH_SIZE",
	"TDGEN_PREFETCH", "TDGEN_PARTIAL_OUTPUT", "TDGEN_SKIP_FAILED_ROWS", "TDGEN_HISTORY_DB",
	"TDGEN_PRESETS_DIR", "TDGEN_OUTPUT_DIR", "TDGEN_LOG_LEVEL", "TDGEN_BIND_ADDR",
}

// isolateEnv runs the test from an empty directory with every TDGEN_*
// variable unset, restoring both afterwards.
func isolateEnv(t *testing.T) string {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	d := t.TempDir()
	if err := os.Chdir(d); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	for _, key := range tdgenVars {
		old, had := os.LookupEnv(key)
		_ = os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				_ = os.Setenv(key, old)
			} else {
				_ = os.Unsetenv(key)
			}
		})
	}
	return d
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	d := isolateEnv(t)
	dotenv := "TDGEN_HISTORY_DB=postgres://u:p@localhost:5432/tdgen?sslmode=disable\nTDGEN_LOG_LEVEL=debug\nTDGEN_MAX_ROWS=5_000\n"
	if err := os.WriteFile(filepath.Join(d, ".env"), []byte(dotenv), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	if cfg.HistoryDB != "postgres://u:p@localhost:5432/tdgen?sslmode=disable" {
		t.Fatalf("expected TDGEN_HISTORY_DB from .env, got %q", cfg.HistoryDB)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected TDGEN_LOG_LEVEL from .env, got %q", cfg.LogLevel)
	}
	if cfg.MaxRows != 5000 {
		t.Fatalf("expected TDGEN_MAX_ROWS=5000, got %d", cfg.MaxRows)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)
	cfg := Load()
	if cfg.MaxRows != 1_000_000 || cfg.MaxColumns != 100 || cfg.BatchSize != 1000 || cfg.MaxBatchSize != 100_000 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
	if cfg.PartialOutput != PartialOutputKeep || cfg.Prefetch != 0 || cfg.SkipFailedRows {
		t.Fatalf("unexpected run defaults: %+v", cfg)
	}
	if !strings.HasPrefix(cfg.HistoryDB, DataDir()) || !strings.HasPrefix(cfg.PresetsDir, ConfigDir()) {
		t.Fatalf("expected XDG defaults, got %q and %q", cfg.HistoryDB, cfg.PresetsDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidate_ReportsBadValues(t *testing.T) {
	isolateEnv(t)
	t.Setenv("TDGEN_PREFETCH", "lots")
	if err := Load().Validate(); err == nil || !strings.Contains(err.Error(), "TDGEN_PREFETCH") {
		t.Fatalf("expected TDGEN_PREFETCH error, got %v", err)
	}

	t.Setenv("TDGEN_PREFETCH", "2")
	t.Setenv("TDGEN_PARTIAL_OUTPUT", "sometimes")
	if err := Load().Validate(); err == nil {
		t.Fatal("expected partial output policy error")
	}

	t.Setenv("TDGEN_PARTIAL_OUTPUT", "DELETE")
	t.Setenv("TDGEN_BATCH_SIZE", "200000")
	if err := Load().Validate(); err == nil {
		t.Fatal("expected batch size above max to fail")
	}
}
