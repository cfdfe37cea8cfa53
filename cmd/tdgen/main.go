package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmrzaf/tdgen/internal/app"
	"github.com/mmrzaf/tdgen/internal/config"
	"github.com/mmrzaf/tdgen/internal/infra/repos/requests"
	"github.com/mmrzaf/tdgen/internal/infra/repos/runs"
	"github.com/mmrzaf/tdgen/internal/logging"
	"github.com/mmrzaf/tdgen/internal/registry"
)

var (
	cfg        *config.Config
	presetsDir string
	historyDB  string
	noHistory  bool
	logLevel   string
)

func main() {
	cfg = config.Load()

	// JSON log lines would fight with the progress bar, so the CLI is quiet
	// unless a level is asked for.
	defaultLevel := "warn"
	if os.Getenv("TDGEN_LOG_LEVEL") != "" {
		defaultLevel = cfg.LogLevel
	}

	rootCmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "Synthetic tabular data generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Validate()
		},
	}

	rootCmd.PersistentFlags().StringVar(&presetsDir, "presets-dir", cfg.PresetsDir, "Presets directory")
	rootCmd.PersistentFlags().StringVar(&historyDB, "history-db", cfg.HistoryDB, "Run history DSN (SQLite path or PostgreSQL URL)")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not record runs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLevel, "Log level")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(typesCmd())
	rootCmd.AddCommand(formatsCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(presetCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func presetRepo() *requests.FileRepository {
	return requests.NewFileRepository(presetsDir)
}

// openHistory returns nil when history is disabled.
func openHistory() (runs.Repository, error) {
	if noHistory || historyDB == "" {
		return nil, nil
	}
	repo := runs.NewRepository(historyDB)
	if err := repo.Init(); err != nil {
		return nil, fmt.Errorf("failed to open run history %s: %w", runs.RedactDSN(historyDB), err)
	}
	return repo, nil
}

func newService(opts ...app.Option) *app.GenerationService {
	return app.NewGenerationService(
		registry.DefaultGeneratorRegistry(),
		registry.DefaultFormatRegistry(),
		app.SettingsFromConfig(cfg),
		logging.NewLogger(logLevel),
		opts...,
	)
}

// loadPreset accepts a preset ID, a request name or a file path.
func loadPreset(ref string) (*requests.Preset, error) {
	if looksLikePath(ref) {
		if _, err := os.Stat(ref); err == nil {
			return requests.NewFileRepository(filepath.Dir(ref)).GetByPath(filepath.Base(ref))
		}
		return presetRepo().GetByPath(ref)
	}
	return presetRepo().Get(ref)
}

func typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List column data types",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.DefaultGeneratorRegistry()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tKIND")
			for _, t := range reg.Types() {
				gen, err := reg.Resolve(t)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\n", t, gen.Kind())
			}
			return w.Flush()
		},
	}
}

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List output formats",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.DefaultFormatRegistry()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FORMAT\tEXTENSION\tINCREMENTAL")
			for _, f := range reg.Formats() {
				wr, err := reg.Resolve(f)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%t\n", f, wr.Extension(), wr.Incremental())
			}
			return w.Flush()
		},
	}
}
