package writers

import (
	"errors"
	"strings"

	"github.com/mmrzaf/tdgen/internal/domain"
	"golang.org/x/text/width"
)

const defaultTXTDelimiter = " | "

// TXTWriter writes plain text: a header line, a dash rule as wide as the
// header, then one line per row. It accepts the delimiter, crlf and
// no_header options of the CSV writer but never quotes; line breaks inside
// values become spaces. With aligned set, column widths are fixed from the
// header and the first batch and cells are padded to them. Later values that
// are wider than their column are written in full.
type TXTWriter struct{}

func (w *TXTWriter) Incremental() bool { return true }

func (w *TXTWriter) Extension() string { return ".txt" }

func (w *TXTWriter) Validate(opts domain.FormatOptions, columns []Column, rows int64) error {
	if opts.Quote != "" || opts.QuoteAll {
		return errors.New("txt output does not support quoting")
	}
	if strings.ContainsAny(opts.Delimiter, "\r\n") {
		return errors.New("txt delimiter cannot contain line breaks")
	}
	return nil
}

func (w *TXTWriter) Open(cfg domain.FileConfig, columns []Column) (Session, error) {
	sink, err := createSink(cfg.Path)
	if err != nil {
		return nil, err
	}
	d := dialect{delimiter: defaultTXTDelimiter, lineEnd: lineEnd(cfg.Options)}
	if cfg.Options.Delimiter != "" {
		d.delimiter = cfg.Options.Delimiter
	}
	s := &txtSession{
		sink:    sink,
		dialect: d,
		header:  !cfg.Options.NoHeader && len(columns) > 0,
		aligned: cfg.Options.Aligned,
		names:   columnNames(columns),
	}
	if !s.aligned && s.header {
		if err := s.writeHeader(nil); err != nil {
			_ = sink.Abort()
			return nil, err
		}
	}
	return s, nil
}

type txtSession struct {
	sink    *fileSink
	dialect dialect
	header  bool
	aligned bool
	names   []string
	widths  []int
	started bool
	rows    int64
}

func (s *txtSession) writeHeader(widths []int) error {
	line := s.line(s.names, widths)
	rule := strings.Repeat("-", displayWidth(strings.TrimRight(line, "\r\n")))
	if _, err := s.sink.WriteString(line); err != nil {
		return err
	}
	_, err := s.sink.WriteString(rule + s.dialect.lineEnd)
	return err
}

func (s *txtSession) line(fields []string, widths []int) string {
	if widths == nil {
		return s.dialect.record(fields)
	}
	padded := make([]string, len(fields))
	for i, f := range fields {
		padded[i] = f
		if i < len(fields)-1 {
			padded[i] = padRight(f, widths[i])
		}
	}
	return s.dialect.record(padded)
}

func (s *txtSession) start(batch domain.Batch) error {
	s.started = true
	if !s.aligned {
		return nil
	}
	s.widths = make([]int, len(s.names))
	if s.header {
		for i, n := range s.names {
			s.widths[i] = displayWidth(n)
		}
	}
	for _, row := range batch.Rows {
		for i, v := range rowStrings(row) {
			if w := displayWidth(v); w > s.widths[i] {
				s.widths[i] = w
			}
		}
	}
	if s.header {
		return s.writeHeader(s.widths)
	}
	return nil
}

func (s *txtSession) WriteBatch(batch domain.Batch) error {
	if !s.started {
		if err := s.start(batch); err != nil {
			return err
		}
	}
	for _, row := range batch.Rows {
		if _, err := s.sink.WriteString(s.line(rowStrings(row), s.widths)); err != nil {
			return err
		}
	}
	if err := s.sink.Flush(); err != nil {
		return err
	}
	s.rows += int64(len(batch.Rows))
	return nil
}

func (s *txtSession) Close() (Stats, error) {
	if !s.started && s.aligned && s.header {
		if err := s.start(domain.Batch{}); err != nil {
			_ = s.sink.Abort()
			return Stats{}, err
		}
	}
	n, err := s.sink.Close()
	return Stats{Rows: s.rows, Bytes: n}, err
}

func (s *txtSession) Abort() error { return s.sink.Abort() }

// displayWidth counts East Asian wide and fullwidth runes as two columns.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func padRight(s string, w int) string {
	if pad := w - displayWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}
