package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/mmrzaf/tdgen/internal/writers"
)

type FormatRegistry struct {
	mu      sync.RWMutex
	writers map[domain.Format]writers.Writer
}

func NewFormatRegistry() *FormatRegistry {
	return &FormatRegistry{
		writers: make(map[domain.Format]writers.Writer),
	}
}

func (r *FormatRegistry) Register(format domain.Format, w writers.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writers[normalizeFormat(format)] = w
}

// Resolve is case-insensitive. Misses return a *domain.ValidationError
// matching domain.ErrUnknownFormat.
func (r *FormatRegistry) Resolve(format domain.Format) (writers.Writer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.writers[normalizeFormat(format)]
	if !ok {
		return nil, &domain.ValidationError{
			Field: "file.format",
			Err:   fmt.Errorf("%w: %q", domain.ErrUnknownFormat, format),
		}
	}
	return w, nil
}

func (r *FormatRegistry) Formats() []domain.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]domain.Format, 0, len(r.writers))
	for f := range r.writers {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

func normalizeFormat(f domain.Format) domain.Format {
	return domain.Format(strings.ToLower(strings.TrimSpace(string(f))))
}

func DefaultFormatRegistry() *FormatRegistry {
	r := NewFormatRegistry()
	r.Register(domain.FormatCSV, &writers.CSVWriter{})
	r.Register(domain.FormatTXT, &writers.TXTWriter{})
	r.Register(domain.FormatJSON, &writers.JSONWriter{})
	r.Register(domain.FormatXML, &writers.XMLWriter{})
	xlsx := &writers.XLSXWriter{}
	r.Register(domain.FormatXLSX, xlsx)
	r.Register(domain.FormatExcel, xlsx)
	r.Register(domain.FormatParquet, &writers.ParquetWriter{})
	md := &writers.MarkdownWriter{}
	r.Register(domain.FormatMarkdown, md)
	r.Register(domain.FormatMD, md)
	r.Register(domain.FormatSQLite, &writers.SQLiteWriter{})
	return r
}
