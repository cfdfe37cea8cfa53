package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmrzaf/tdgen/internal/api"
	"github.com/mmrzaf/tdgen/internal/app"
	"github.com/mmrzaf/tdgen/internal/config"
	"github.com/mmrzaf/tdgen/internal/infra/repos/requests"
	"github.com/mmrzaf/tdgen/internal/infra/repos/runs"
	"github.com/mmrzaf/tdgen/internal/logging"
	"github.com/mmrzaf/tdgen/internal/registry"
	"github.com/mmrzaf/tdgen/internal/web"
)

func main() {
	cfg := config.Load()

	presetsDir := flag.String("presets-dir", cfg.PresetsDir, "Presets directory")
	historyDB := flag.String("history-db", cfg.HistoryDB, "Run history DSN (SQLite path or PostgreSQL URL)")
	outputDir := flag.String("output-dir", cfg.OutputDir, "Directory all output paths are resolved in")
	bindAddr := flag.String("bind", cfg.BindAddr, "Bind address")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level")
	flag.Parse()

	logger := logging.NewLogger(*logLevel).WithComponent("api_main")

	if err := cfg.Validate(); err != nil {
		logger.Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "config"})
		os.Exit(1)
	}
	if info, err := os.Stat(*outputDir); err != nil || !info.IsDir() {
		logger.Errorw("startup.failed", map[string]any{"error": "output directory does not exist", "path": *outputDir, "stage": "config"})
		os.Exit(1)
	}

	runRepo := runs.NewRepository(*historyDB)
	if err := runRepo.Init(); err != nil {
		logger.Errorw("startup.failed", map[string]any{
			"error": err.Error(),
			"stage": "init_run_repo",
			"dsn":   runs.RedactDSN(*historyDB),
		})
		os.Exit(1)
	}
	defer runRepo.Close()

	service := app.NewGenerationService(
		registry.DefaultGeneratorRegistry(),
		registry.DefaultFormatRegistry(),
		app.SettingsFromConfig(cfg),
		logger,
		app.WithRunRepository(runRepo),
	)
	handler := api.NewHandler(service, requests.NewFileRepository(*presetsDir), *outputDir)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /", web.IndexHandler)
	mux.HandleFunc("GET /runs/{id}", web.RunDetailHandler)

	mux.HandleFunc("POST /api/v1/generate", handler.Generate)
	mux.HandleFunc("POST /api/v1/validate", handler.Validate)
	mux.HandleFunc("GET /api/v1/types", handler.ListTypes)
	mux.HandleFunc("GET /api/v1/formats", handler.ListFormats)
	mux.HandleFunc("GET /api/v1/presets", handler.ListPresets)
	mux.HandleFunc("GET /api/v1/presets/{id}", handler.GetPreset)
	mux.HandleFunc("GET /api/v1/runs", handler.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", handler.GetRun)

	srv := &http.Server{
		Addr:              *bindAddr,
		Handler:           loggingMiddleware(logger.WithComponent("http"), mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infow("startup.listening", map[string]any{
		"bind":       *bindAddr,
		"output_dir": *outputDir,
		"history":    runs.RedactDSN(*historyDB),
	})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "listen"})
		os.Exit(1)
	}
	logger.Infow("shutdown.completed", nil)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(started).Milliseconds(),
			"remote":      r.RemoteAddr,
		}
		if sw.status >= 500 {
			logger.Errorw("request.completed", fields)
			return
		}
		if sw.status >= 400 {
			logger.Warnw("request.completed", fields)
			return
		}
		logger.Infow("request.completed", fields)
	})
}
