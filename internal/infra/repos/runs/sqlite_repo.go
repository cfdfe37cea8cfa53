package runs

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mmrzaf/tdgen/internal/domain"
)

type SQLiteRepository struct {
	dbPath string
	db     *sql.DB
}

func NewSQLiteRepository(dbPath string) *SQLiteRepository {
	return &SQLiteRepository{dbPath: dbPath}
}

func (r *SQLiteRepository) Init() error {
	if dir := filepath.Dir(r.dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", r.dbPath)
	if err != nil {
		return err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	r.db = db

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT,
		format TEXT NOT NULL,
		output_path TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		column_count INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		config_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		rows_written INTEGER NOT NULL DEFAULT 0,
		bytes_written INTEGER NOT NULL DEFAULT 0,
		error TEXT
	)`

	if _, err := r.db.Exec(createTableSQL); err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`)
	return err
}

func (r *SQLiteRepository) DB() *sql.DB { return r.db }

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (r *SQLiteRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	query := `
		INSERT INTO runs (
			id, name, format, output_path, row_count, column_count, seed, config_hash,
			status, started_at, completed_at, rows_written, bytes_written, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID, run.Name, run.Format, run.OutputPath, run.Rows, run.Columns, run.Seed, run.ConfigHash,
		run.Status, formatTime(&run.StartedAt), formatTime(run.CompletedAt),
		run.RowsWritten, run.BytesWritten, run.Error,
	)
	return err
}

func (r *SQLiteRepository) Update(run *domain.Run) error {
	query := `
		UPDATE runs SET
			status = ?, completed_at = ?, rows_written = ?, bytes_written = ?, error = ?
		WHERE id = ?
	`

	res, err := r.db.Exec(query, run.Status, formatTime(run.CompletedAt), run.RowsWritten, run.BytesWritten, run.Error, run.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
	}
	return nil
}

const selectRunSQLite = `
	SELECT id, name, format, output_path, row_count, column_count, seed, config_hash,
	       status, started_at, completed_at, rows_written, bytes_written, error
	FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(s rowScanner) (*domain.Run, error) {
	var run domain.Run
	var name, completedAt, errMsg sql.NullString
	var startedAt string

	err := s.Scan(
		&run.ID, &name, &run.Format, &run.OutputPath, &run.Rows, &run.Columns, &run.Seed, &run.ConfigHash,
		&run.Status, &startedAt, &completedAt, &run.RowsWritten, &run.BytesWritten, &errMsg,
	)
	if err != nil {
		return nil, err
	}

	run.Name = name.String
	run.Error = errMsg.String
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, completedAt.String)
		run.CompletedAt = &t
	}
	return &run, nil
}

func (r *SQLiteRepository) Get(id string) (*domain.Run, error) {
	run, err := scanSQLiteRun(r.db.QueryRow(selectRunSQLite+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

func (r *SQLiteRepository) List(limit int, status domain.RunStatus) ([]*domain.Run, error) {
	query := selectRunSQLite
	args := make([]any, 0)
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}

	query += " ORDER BY started_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0)
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
