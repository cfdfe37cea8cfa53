package writers

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mmrzaf/tdgen/internal/domain"
)

const defaultTableName = "data"

// SQLiteWriter writes rows into a single table of a fresh database file. Each
// batch is its own transaction, so committed batches survive a later failure.
type SQLiteWriter struct{}

func (w *SQLiteWriter) Incremental() bool { return true }

func (w *SQLiteWriter) Extension() string { return ".db" }

func (w *SQLiteWriter) Validate(opts domain.FormatOptions, columns []Column, rows int64) error {
	if len(columns) == 0 {
		return errors.New("sqlite output needs at least one column")
	}
	if strings.HasPrefix(strings.ToLower(opts.TableName), "sqlite_") {
		return fmt.Errorf("table_name %q uses the reserved sqlite_ prefix", opts.TableName)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqliteType(kind domain.ValueKind) string {
	switch kind {
	case domain.KindInteger, domain.KindBool:
		return "INTEGER"
	case domain.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (w *SQLiteWriter) Open(cfg domain.FileConfig, columns []Column) (Session, error) {
	if err := os.Remove(cfg.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	table := cfg.Options.TableName
	if table == "" {
		table = defaultTableName
	}
	defs := make([]string, len(columns))
	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		names[i] = quoteIdent(col.Name)
		defs[i] = fmt.Sprintf("%s %s NOT NULL", names[i], sqliteType(col.Kind))
		placeholders[i] = "?"
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := db.Exec(createSQL); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteSession{
		db:   db,
		path: cfg.Path,
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(table), strings.Join(names, ", "), strings.Join(placeholders, ", ")),
	}, nil
}

type sqliteSession struct {
	db        *sql.DB
	path      string
	insertSQL string
	rows      int64
}

func (s *sqliteSession) WriteBatch(batch domain.Batch) error {
	if len(batch.Rows) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range batch.Rows {
		args := make([]any, len(row))
		for i, f := range row {
			if b, ok := f.Value.(bool); ok {
				if b {
					args[i] = 1
				} else {
					args[i] = 0
				}
			} else {
				args[i] = f.Value
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.rows += int64(len(batch.Rows))
	return nil
}

func (s *sqliteSession) Close() (Stats, error) {
	if err := s.db.Close(); err != nil {
		return Stats{}, err
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Rows: s.rows, Bytes: info.Size()}, nil
}

func (s *sqliteSession) Abort() error { return s.db.Close() }
