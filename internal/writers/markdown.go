package writers

import (
	"errors"
	"strings"

	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/nao1215/markdown"
)

var markdownCell = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// MarkdownWriter writes a single GitHub-flavored table.
type MarkdownWriter struct{}

func (w *MarkdownWriter) Incremental() bool { return false }

func (w *MarkdownWriter) Extension() string { return ".md" }

func (w *MarkdownWriter) Validate(opts domain.FormatOptions, columns []Column, rows int64) error {
	if len(columns) == 0 {
		return errors.New("markdown output needs at least one column")
	}
	if opts.NoHeader {
		return errors.New("markdown tables always carry a header")
	}
	return nil
}

func (w *MarkdownWriter) Open(cfg domain.FileConfig, columns []Column) (Session, error) {
	sink, err := createSink(cfg.Path)
	if err != nil {
		return nil, err
	}
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = markdownCell.Replace(c.Name)
	}
	return &markdownSession{sink: sink, header: header}, nil
}

type markdownSession struct {
	sink   *fileSink
	header []string
	rows   [][]string
}

func (s *markdownSession) WriteBatch(batch domain.Batch) error {
	for _, row := range batch.Rows {
		cells := rowStrings(row)
		for i := range cells {
			cells[i] = markdownCell.Replace(cells[i])
		}
		s.rows = append(s.rows, cells)
	}
	return nil
}

func (s *markdownSession) Close() (Stats, error) {
	md := markdown.NewMarkdown(s.sink)
	md.Table(markdown.TableSet{Header: s.header, Rows: s.rows})
	if err := md.Build(); err != nil {
		_ = s.sink.Abort()
		return Stats{}, err
	}
	n, err := s.sink.Close()
	return Stats{Rows: int64(len(s.rows)), Bytes: n}, err
}

func (s *markdownSession) Abort() error {
	s.rows = nil
	return s.sink.Abort()
}
