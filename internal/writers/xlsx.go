package writers

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	defaultSheetName = "Sheet1"
	maxSheetRows     = 1048576
)

// XLSXWriter writes a single-sheet workbook. Rows go through excelize's
// stream writer, so numbers and booleans land as typed cells.
type XLSXWriter struct{}

func (w *XLSXWriter) Incremental() bool { return false }

func (w *XLSXWriter) Extension() string { return ".xlsx" }

func (w *XLSXWriter) Validate(opts domain.FormatOptions, columns []Column, rows int64) error {
	if name := opts.SheetName; name != "" {
		if utf8.RuneCountInString(name) > 31 {
			return fmt.Errorf("sheet_name %q is longer than 31 characters", name)
		}
		if strings.ContainsAny(name, `[]:*?/\`) {
			return fmt.Errorf("sheet_name %q contains one of []:*?/\\", name)
		}
		if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
			return fmt.Errorf("sheet_name %q may not start or end with an apostrophe", name)
		}
		if strings.EqualFold(name, "History") {
			return fmt.Errorf("sheet_name %q is reserved by Excel", name)
		}
	}
	if rows+1 > maxSheetRows {
		return fmt.Errorf("%d rows do not fit in one sheet (limit %d including header)", rows, maxSheetRows-1)
	}
	return nil
}

func (w *XLSXWriter) Open(cfg domain.FileConfig, columns []Column) (Session, error) {
	out, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	sheet := cfg.Options.SheetName
	if sheet == "" {
		sheet = defaultSheetName
	}

	xf := excelize.NewFile()
	fail := func(err error) (Session, error) {
		_ = xf.Close()
		_ = out.Close()
		return nil, err
	}
	if sheet != defaultSheetName {
		if err := xf.SetSheetName(defaultSheetName, sheet); err != nil {
			return fail(err)
		}
	}
	sw, err := xf.NewStreamWriter(sheet)
	if err != nil {
		return fail(err)
	}

	s := &xlsxSession{out: out, xf: xf, sw: sw, next: 1}
	if !cfg.Options.NoHeader && len(columns) > 0 {
		header := make([]any, len(columns))
		for i, c := range columns {
			header[i] = c.Name
		}
		if err := s.setRow(header); err != nil {
			return fail(err)
		}
	}
	return s, nil
}

type xlsxSession struct {
	out  *os.File
	xf   *excelize.File
	sw   *excelize.StreamWriter
	next int
	rows int64
}

func (s *xlsxSession) setRow(values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, s.next)
	if err != nil {
		return err
	}
	if err := s.sw.SetRow(cell, values); err != nil {
		return err
	}
	s.next++
	return nil
}

func (s *xlsxSession) WriteBatch(batch domain.Batch) error {
	for _, row := range batch.Rows {
		if err := s.setRow(row.Values()); err != nil {
			return err
		}
	}
	s.rows += int64(len(batch.Rows))
	return nil
}

func (s *xlsxSession) Close() (Stats, error) {
	if err := s.sw.Flush(); err != nil {
		_ = s.Abort()
		return Stats{}, err
	}
	cw := &countingWriter{w: s.out}
	if err := s.xf.Write(cw); err != nil {
		_ = s.Abort()
		return Stats{}, err
	}
	if err := s.xf.Close(); err != nil {
		_ = s.out.Close()
		return Stats{}, err
	}
	if err := s.out.Close(); err != nil {
		return Stats{}, err
	}
	return Stats{Rows: s.rows, Bytes: cw.n}, nil
}

func (s *xlsxSession) Abort() error {
	_ = s.xf.Close()
	return s.out.Close()
}
