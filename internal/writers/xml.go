package writers

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/mmrzaf/tdgen/internal/domain"
)

const (
	defaultRootElement = "data"
	defaultRowElement  = "record"
)

var xmlNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

func validXMLName(name string) bool {
	return xmlNameRe.MatchString(name) && !strings.HasPrefix(strings.ToLower(name), "xml")
}

// XMLWriter writes <root><row><column>value</column>...</row>...</root>
// after an XML declaration.
type XMLWriter struct{}

func (w *XMLWriter) Incremental() bool { return false }

func (w *XMLWriter) Extension() string { return ".xml" }

func (w *XMLWriter) Validate(opts domain.FormatOptions, columns []Column, rows int64) error {
	if opts.RootElement != "" && !validXMLName(opts.RootElement) {
		return fmt.Errorf("root_element %q is not a valid XML element name", opts.RootElement)
	}
	if opts.RowElement != "" && !validXMLName(opts.RowElement) {
		return fmt.Errorf("row_element %q is not a valid XML element name", opts.RowElement)
	}
	if strings.Trim(opts.Indent, " \t") != "" {
		return errInvalidIndent(opts.Indent)
	}
	for _, c := range columns {
		if !validXMLName(c.Name) {
			return fmt.Errorf("column name %q is not a valid XML element name", c.Name)
		}
	}
	return nil
}

func (w *XMLWriter) Open(cfg domain.FileConfig, columns []Column) (Session, error) {
	sink, err := createSink(cfg.Path)
	if err != nil {
		return nil, err
	}
	s := &xmlSession{sink: sink, root: defaultRootElement, row: defaultRowElement}
	if cfg.Options.RootElement != "" {
		s.root = cfg.Options.RootElement
	}
	if cfg.Options.RowElement != "" {
		s.row = cfg.Options.RowElement
	}
	if cfg.Options.Pretty {
		s.indent = cfg.Options.Indent
		if s.indent == "" {
			s.indent = "  "
		}
	}
	return s, nil
}

type xmlSession struct {
	sink      *fileSink
	root, row string
	indent    string
	rows      []domain.Row
}

func (s *xmlSession) WriteBatch(batch domain.Batch) error {
	s.rows = append(s.rows, batch.Rows...)
	return nil
}

func (s *xmlSession) Close() (Stats, error) {
	if err := s.encode(); err != nil {
		_ = s.sink.Abort()
		return Stats{}, err
	}
	n, err := s.sink.Close()
	return Stats{Rows: int64(len(s.rows)), Bytes: n}, err
}

func (s *xmlSession) Abort() error {
	s.rows = nil
	return s.sink.Abort()
}

func (s *xmlSession) encode() error {
	if _, err := s.sink.WriteString(xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(s.sink)
	if s.indent != "" {
		enc.Indent("", s.indent)
	}
	root := xml.StartElement{Name: xml.Name{Local: s.root}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for _, row := range s.rows {
		rec := xml.StartElement{Name: xml.Name{Local: s.row}}
		if err := enc.EncodeToken(rec); err != nil {
			return err
		}
		for _, f := range row {
			if err := enc.EncodeElement(FormatValue(f.Value), xml.StartElement{Name: xml.Name{Local: f.Name}}); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(rec.End()); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := s.sink.WriteString("\n")
	return err
}
