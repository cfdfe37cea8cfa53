package writers

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mmrzaf/tdgen/internal/domain"
)

// dialect encodes delimited records. quote == 0 disables quoting, which is
// how the TXT writer reuses it.
type dialect struct {
	delimiter string
	quote     rune
	quoteAll  bool
	lineEnd   string
}

func (d dialect) needsQuotes(field string) bool {
	if d.quoteAll {
		return true
	}
	if field == "" {
		return false
	}
	if strings.Contains(field, d.delimiter) || strings.ContainsRune(field, d.quote) || strings.ContainsAny(field, "\r\n") {
		return true
	}
	r, _ := utf8.DecodeRuneInString(field)
	return r == ' ' || r == '\t'
}

func (d dialect) appendField(sb *strings.Builder, field string) {
	if d.quote == 0 {
		sb.WriteString(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(field))
		return
	}
	if !d.needsQuotes(field) {
		sb.WriteString(field)
		return
	}
	q := string(d.quote)
	sb.WriteString(q)
	sb.WriteString(strings.ReplaceAll(field, q, q+q))
	sb.WriteString(q)
}

func (d dialect) record(fields []string) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteString(d.delimiter)
		}
		d.appendField(&sb, f)
	}
	sb.WriteString(d.lineEnd)
	return sb.String()
}

func lineEnd(opts domain.FormatOptions) string {
	if opts.CRLF {
		return "\r\n"
	}
	return "\n"
}

type CSVWriter struct{}

func (w *CSVWriter) Incremental() bool { return true }

func (w *CSVWriter) Extension() string { return ".csv" }

func (w *CSVWriter) dialect(opts domain.FormatOptions) dialect {
	d := dialect{delimiter: ",", quote: '"', quoteAll: opts.QuoteAll, lineEnd: lineEnd(opts)}
	if opts.Delimiter != "" {
		d.delimiter = opts.Delimiter
	}
	if opts.Quote != "" {
		d.quote, _ = utf8.DecodeRuneInString(opts.Quote)
	}
	return d
}

func (w *CSVWriter) Validate(opts domain.FormatOptions, columns []Column, rows int64) error {
	if opts.Delimiter != "" && utf8.RuneCountInString(opts.Delimiter) != 1 {
		return fmt.Errorf("csv delimiter must be a single character, got %q", opts.Delimiter)
	}
	if opts.Quote != "" && utf8.RuneCountInString(opts.Quote) != 1 {
		return fmt.Errorf("csv quote must be a single character, got %q", opts.Quote)
	}
	d := w.dialect(opts)
	if strings.ContainsAny(d.delimiter, "\r\n") || d.quote == '\r' || d.quote == '\n' {
		return errors.New("csv delimiter and quote cannot be line breaks")
	}
	if d.delimiter == string(d.quote) {
		return fmt.Errorf("csv delimiter and quote must differ, both are %q", d.delimiter)
	}
	return nil
}

func (w *CSVWriter) Open(cfg domain.FileConfig, columns []Column) (Session, error) {
	sink, err := createSink(cfg.Path)
	if err != nil {
		return nil, err
	}
	s := &delimitedSession{sink: sink, dialect: w.dialect(cfg.Options)}
	if !cfg.Options.NoHeader && len(columns) > 0 {
		if _, err := sink.WriteString(s.dialect.record(columnNames(columns))); err != nil {
			_ = sink.Abort()
			return nil, err
		}
		if err := sink.Flush(); err != nil {
			_ = sink.Abort()
			return nil, err
		}
	}
	return s, nil
}

// delimitedSession flushes after every batch.
type delimitedSession struct {
	sink    *fileSink
	dialect dialect
	rows    int64
}

func (s *delimitedSession) WriteBatch(batch domain.Batch) error {
	for _, row := range batch.Rows {
		if _, err := s.sink.WriteString(s.dialect.record(rowStrings(row))); err != nil {
			return err
		}
	}
	if err := s.sink.Flush(); err != nil {
		return err
	}
	s.rows += int64(len(batch.Rows))
	return nil
}

func (s *delimitedSession) Close() (Stats, error) {
	n, err := s.sink.Close()
	return Stats{Rows: s.rows, Bytes: n}, err
}

func (s *delimitedSession) Abort() error { return s.sink.Abort() }
