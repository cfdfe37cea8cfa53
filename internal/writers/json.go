package writers

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mmrzaf/tdgen/internal/domain"
)

// JSONWriter writes an array with one object per row. Object keys follow
// column order, which encoding/json cannot do for maps, so objects are
// assembled by hand and only scalars go through the encoder.
type JSONWriter struct{}

func (w *JSONWriter) Incremental() bool { return false }

func (w *JSONWriter) Extension() string { return ".json" }

func (w *JSONWriter) Validate(opts domain.FormatOptions, columns []Column, rows int64) error {
	if strings.Trim(opts.Indent, " \t") != "" {
		return errInvalidIndent(opts.Indent)
	}
	return nil
}

func (w *JSONWriter) Open(cfg domain.FileConfig, columns []Column) (Session, error) {
	sink, err := createSink(cfg.Path)
	if err != nil {
		return nil, err
	}
	s := &jsonSession{sink: sink}
	if cfg.Options.Pretty {
		s.indent = cfg.Options.Indent
		if s.indent == "" {
			s.indent = "  "
		}
	}
	return s, nil
}

type jsonSession struct {
	sink   *fileSink
	indent string
	rows   []domain.Row
}

func (s *jsonSession) WriteBatch(batch domain.Batch) error {
	s.rows = append(s.rows, batch.Rows...)
	return nil
}

func (s *jsonSession) Close() (Stats, error) {
	if err := s.encode(); err != nil {
		_ = s.sink.Abort()
		return Stats{}, err
	}
	n, err := s.sink.Close()
	return Stats{Rows: int64(len(s.rows)), Bytes: n}, err
}

func (s *jsonSession) Abort() error {
	s.rows = nil
	return s.sink.Abort()
}

func (s *jsonSession) encode() error {
	if len(s.rows) == 0 {
		_, err := s.sink.WriteString("[]\n")
		return err
	}
	var buf bytes.Buffer
	nl, in1, in2, sep := "", "", "", ":"
	if s.indent != "" {
		nl, in1, in2, sep = "\n", s.indent, s.indent+s.indent, ": "
	}
	buf.WriteString("[" + nl)
	for i, row := range s.rows {
		buf.WriteString(in1 + "{" + nl)
		for j, f := range row {
			buf.WriteString(in2)
			if err := encodeScalar(&buf, f.Name); err != nil {
				return err
			}
			buf.WriteString(sep)
			if err := encodeScalar(&buf, f.Value); err != nil {
				return err
			}
			if j < len(row)-1 {
				buf.WriteString(",")
			}
			buf.WriteString(nl)
		}
		buf.WriteString(in1 + "}")
		if i < len(s.rows)-1 {
			buf.WriteString(",")
		}
		buf.WriteString(nl)
		if buf.Len() >= 64*1024 {
			if _, err := s.sink.Write(buf.Bytes()); err != nil {
				return err
			}
			buf.Reset()
		}
	}
	buf.WriteString("]\n")
	_, err := s.sink.Write(buf.Bytes())
	return err
}

func encodeScalar(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
