package runs

import (
	"errors"
	"strings"

	"github.com/mmrzaf/tdgen/internal/domain"
)

var ErrNotFound = errors.New("run not found")

// Repository stores the history of generation runs.
type Repository interface {
	Init() error
	Create(run *domain.Run) error
	Update(run *domain.Run) error
	Get(id string) (*domain.Run, error)
	List(limit int, status domain.RunStatus) ([]*domain.Run, error)
	Close() error
}

// NewRepository picks the backend from the DSN: PostgreSQL for postgres://
// URLs and keyword DSNs, SQLite for anything else (a file path).
func NewRepository(dsn string) Repository {
	if IsPostgresDSN(dsn) {
		return NewPostgresRepository(dsn)
	}
	return NewSQLiteRepository(dsn)
}

func IsPostgresDSN(dsn string) bool {
	d := strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(d, "postgres://") ||
		strings.HasPrefix(d, "postgresql://") ||
		strings.Contains(d, "host=") ||
		strings.Contains(d, "dbname=")
}
