package runs

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mmrzaf/tdgen/internal/domain"
)

type PostgresRepository struct {
	dsn string
	db  *sql.DB
}

func NewPostgresRepository(dsn string) *PostgresRepository {
	return &PostgresRepository{dsn: strings.TrimSpace(dsn)}
}

func (r *PostgresRepository) Init() error {
	if r.dsn == "" {
		return fmt.Errorf("history db dsn is required")
	}
	db, err := sql.Open("postgres", r.dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return err
	}
	r.db = db
	return r.applyMigrations()
}

func (r *PostgresRepository) DB() *sql.DB { return r.db }

func (r *PostgresRepository) applyMigrations() error {
	if _, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}
	var cur int
	if err := r.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&cur); err != nil {
		return err
	}

	type mig struct {
		v  int
		up func(*sql.DB) error
	}
	migs := []mig{
		{1, migrateV1RunsPG},
		{2, migrateV2RunsStartedAtIndexPG},
	}

	for _, m := range migs {
		if cur >= m.v {
			continue
		}
		if err := m.up(r.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.v, err)
		}
		if _, err := r.db.Exec(`INSERT INTO schema_migrations(version) VALUES ($1)`, m.v); err != nil {
			return err
		}
		cur = m.v
	}
	return nil
}

func migrateV1RunsPG(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT,
		format TEXT NOT NULL,
		output_path TEXT NOT NULL,
		row_count BIGINT NOT NULL,
		column_count INTEGER NOT NULL,
		seed BIGINT NOT NULL,
		config_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		rows_written BIGINT NOT NULL DEFAULT 0,
		bytes_written BIGINT NOT NULL DEFAULT 0,
		error TEXT
	)`)
	return err
}

func migrateV2RunsStartedAtIndexPG(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`)
	return err
}

func (r *PostgresRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := r.db.Exec(`
	INSERT INTO runs (
		id, name, format, output_path, row_count, column_count, seed, config_hash,
		status, started_at, completed_at, rows_written, bytes_written, error
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		run.ID, run.Name, run.Format, run.OutputPath, run.Rows, run.Columns, run.Seed, run.ConfigHash,
		run.Status, run.StartedAt.UTC(), run.CompletedAt, run.RowsWritten, run.BytesWritten, run.Error,
	)
	return err
}

func (r *PostgresRepository) Update(run *domain.Run) error {
	res, err := r.db.Exec(`
	UPDATE runs SET
		status = $1, completed_at = $2, rows_written = $3, bytes_written = $4, error = $5
	WHERE id = $6`,
		run.Status, run.CompletedAt, run.RowsWritten, run.BytesWritten, run.Error, run.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
	}
	return nil
}

const selectRunPG = `
	SELECT id, name, format, output_path, row_count, column_count, seed, config_hash,
	       status, started_at, completed_at, rows_written, bytes_written, error
	FROM runs`

func scanPGRun(s rowScanner) (*domain.Run, error) {
	var run domain.Run
	var name, errMsg sql.NullString
	var completedAt sql.NullTime

	err := s.Scan(
		&run.ID, &name, &run.Format, &run.OutputPath, &run.Rows, &run.Columns, &run.Seed, &run.ConfigHash,
		&run.Status, &run.StartedAt, &completedAt, &run.RowsWritten, &run.BytesWritten, &errMsg,
	)
	if err != nil {
		return nil, err
	}
	run.Name = name.String
	run.Error = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time.In(time.UTC)
		run.CompletedAt = &t
	}
	return &run, nil
}

func (r *PostgresRepository) Get(id string) (*domain.Run, error) {
	run, err := scanPGRun(r.db.QueryRow(selectRunPG+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

func (r *PostgresRepository) List(limit int, status domain.RunStatus) ([]*domain.Run, error) {
	query := selectRunPG
	args := make([]any, 0, 2)
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0)
	for rows.Next() {
		run, err := scanPGRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *PostgresRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
