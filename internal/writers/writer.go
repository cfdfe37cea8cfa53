package writers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mmrzaf/tdgen/internal/domain"
)

type Column struct {
	Name string
	Kind domain.ValueKind
}

// Writer is one output format. Incremental formats write every batch as it
// arrives; the others keep what they need in memory (or an open encoder) and
// only produce a valid document on Close.
type Writer interface {
	Incremental() bool
	Extension() string
	Validate(opts domain.FormatOptions, columns []Column, rows int64) error
	Open(cfg domain.FileConfig, columns []Column) (Session, error)
}

// Session owns the destination resource for one run. Exactly one of Close or
// Abort must be called, and calls are never concurrent.
type Session interface {
	WriteBatch(batch domain.Batch) error
	Close() (Stats, error)
	Abort() error
}

type Stats struct {
	Rows  int64
	Bytes int64
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// fileSink is a created file behind a byte counter and a buffer.
type fileSink struct {
	path  string
	file  *os.File
	count *countingWriter
	buf   *bufio.Writer
}

func createSink(path string) (*fileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	cw := &countingWriter{w: f}
	return &fileSink{
		path:  path,
		file:  f,
		count: cw,
		buf:   bufio.NewWriterSize(cw, 64*1024),
	}, nil
}

func (s *fileSink) Write(p []byte) (int, error) { return s.buf.Write(p) }

func (s *fileSink) WriteString(str string) (int, error) { return s.buf.WriteString(str) }

func (s *fileSink) Flush() error { return s.buf.Flush() }

func (s *fileSink) Close() (int64, error) {
	if err := s.buf.Flush(); err != nil {
		_ = s.file.Close()
		return s.count.n, err
	}
	if err := s.file.Close(); err != nil {
		return s.count.n, err
	}
	return s.count.n, nil
}

func (s *fileSink) Abort() error {
	return s.file.Close()
}

// FormatValue renders a generated value for text-based formats.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func columnNames(columns []Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

func rowStrings(row domain.Row) []string {
	out := make([]string, len(row))
	for i, f := range row {
		out[i] = FormatValue(f.Value)
	}
	return out
}

func errInvalidIndent(indent string) error {
	return fmt.Errorf("indent must contain only spaces or tabs, got %q", indent)
}
