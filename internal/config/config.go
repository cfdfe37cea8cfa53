package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const AppName = "tdgen"

const (
	PartialOutputKeep   = "keep"
	PartialOutputDelete = "delete"
)

type Config struct {
	MaxRows        int64
	MaxColumns     int
	BatchSize      int
	MaxBatchSize   int
	Prefetch       int
	PartialOutput  string
	SkipFailedRows bool

	HistoryDB  string
	PresetsDir string
	OutputDir  string
	LogLevel   string
	BindAddr   string

	invalid []string
}

// Load reads .env from the working directory (if present) and then the
// TDGEN_* environment. Variables already set in the environment win over
// .env. Unparseable numbers keep their default and are reported by Validate.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		PartialOutput: strings.ToLower(getEnv("TDGEN_PARTIAL_OUTPUT", PartialOutputKeep)),
		HistoryDB:     getEnv("TDGEN_HISTORY_DB", filepath.Join(DataDir(), "history.sqlite")),
		PresetsDir:    getEnv("TDGEN_PRESETS_DIR", filepath.Join(ConfigDir(), "presets")),
		OutputDir:     getEnv("TDGEN_OUTPUT_DIR", "."),
		LogLevel:      getEnv("TDGEN_LOG_LEVEL", "info"),
		BindAddr:      getEnv("TDGEN_BIND_ADDR", ":8080"),
	}
	c.MaxRows = int64(c.getEnvInt("TDGEN_MAX_ROWS", 1_000_000))
	c.MaxColumns = c.getEnvInt("TDGEN_MAX_COLUMNS", 100)
	c.BatchSize = c.getEnvInt("TDGEN_BATCH_SIZE", 1000)
	c.MaxBatchSize = c.getEnvInt("TDGEN_MAX_BATCH_SIZE", 100_000)
	c.Prefetch = c.getEnvInt("TDGEN_PREFETCH", 0)
	c.SkipFailedRows = c.getEnvBool("TDGEN_SKIP_FAILED_ROWS", false)
	return c
}

// DataDir is where run history lives, e.g. ~/.local/share/tdgen on Linux.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ConfigDir holds saved presets, e.g. ~/.config/tdgen on Linux.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

func (c *Config) Validate() error {
	if len(c.invalid) > 0 {
		return fmt.Errorf("invalid configuration values: %s", strings.Join(c.invalid, ", "))
	}
	if c.MaxRows < 1 {
		return fmt.Errorf("TDGEN_MAX_ROWS must be >= 1, got %d", c.MaxRows)
	}
	if c.MaxColumns < 1 {
		return fmt.Errorf("TDGEN_MAX_COLUMNS must be >= 1, got %d", c.MaxColumns)
	}
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("TDGEN_MAX_BATCH_SIZE must be >= 1, got %d", c.MaxBatchSize)
	}
	if c.BatchSize < 1 || c.BatchSize > c.MaxBatchSize {
		return fmt.Errorf("TDGEN_BATCH_SIZE must be between 1 and %d, got %d", c.MaxBatchSize, c.BatchSize)
	}
	if c.Prefetch < 0 {
		return fmt.Errorf("TDGEN_PREFETCH must be >= 0, got %d", c.Prefetch)
	}
	switch c.PartialOutput {
	case PartialOutputKeep, PartialOutputDelete:
	default:
		return fmt.Errorf("TDGEN_PARTIAL_OUTPUT must be %q or %q, got %q", PartialOutputKeep, PartialOutputDelete, c.PartialOutput)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.ReplaceAll(raw, "_", ""))
	if err != nil {
		c.invalid = append(c.invalid, fmt.Sprintf("%s=%q", key, raw))
		return defaultValue
	}
	return n
}

func (c *Config) getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		c.invalid = append(c.invalid, fmt.Sprintf("%s=%q", key, raw))
		return defaultValue
	}
	return b
}
