package writers

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/mmrzaf/tdgen/internal/domain"
)

var parquetCodecs = map[string]compress.Compression{
	"":       compress.Codecs.Snappy,
	"snappy": compress.Codecs.Snappy,
	"gzip":   compress.Codecs.Gzip,
	"zstd":   compress.Codecs.Zstd,
	"none":   compress.Codecs.Uncompressed,
}

// ParquetWriter writes one row group per batch. The file is only readable
// once Close has written the footer.
type ParquetWriter struct{}

func (w *ParquetWriter) Incremental() bool { return false }

func (w *ParquetWriter) Extension() string { return ".parquet" }

func (w *ParquetWriter) Validate(opts domain.FormatOptions, columns []Column, rows int64) error {
	if _, ok := parquetCodecs[strings.ToLower(opts.Compression)]; !ok {
		return fmt.Errorf("unsupported parquet compression %q (allowed: snappy, gzip, zstd, none)", opts.Compression)
	}
	if len(columns) == 0 {
		return errors.New("parquet output needs at least one column")
	}
	return nil
}

func arrowSchema(columns []Column) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		var dt arrow.DataType
		switch c.Kind {
		case domain.KindInteger:
			dt = arrow.PrimitiveTypes.Int64
		case domain.KindFloat:
			dt = arrow.PrimitiveTypes.Float64
		case domain.KindBool:
			dt = arrow.FixedWidthTypes.Boolean
		default:
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: c.Name, Type: dt}
	}
	return arrow.NewSchema(fields, nil)
}

func (w *ParquetWriter) Open(cfg domain.FileConfig, columns []Column) (Session, error) {
	out, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	schema := arrowSchema(columns)
	cw := &countingWriter{w: out}
	props := parquet.NewWriterProperties(parquet.WithCompression(parquetCodecs[strings.ToLower(cfg.Options.Compression)]))
	fw, err := pqarrow.NewFileWriter(schema, cw, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	return &parquetSession{out: out, count: cw, fw: fw, schema: schema, columns: columns}, nil
}

type parquetSession struct {
	out     *os.File
	count   *countingWriter
	fw      *pqarrow.FileWriter
	schema  *arrow.Schema
	columns []Column
	rows    int64
}

func (s *parquetSession) WriteBatch(batch domain.Batch) error {
	if len(batch.Rows) == 0 {
		return nil
	}
	b := array.NewRecordBuilder(memory.DefaultAllocator, s.schema)
	defer b.Release()

	for i, c := range s.columns {
		fb := b.Field(i)
		for _, row := range batch.Rows {
			v := row[i].Value
			var ok bool
			switch c.Kind {
			case domain.KindInteger:
				var n int64
				if n, ok = v.(int64); ok {
					fb.(*array.Int64Builder).Append(n)
				}
			case domain.KindFloat:
				var f float64
				if f, ok = v.(float64); ok {
					fb.(*array.Float64Builder).Append(f)
				}
			case domain.KindBool:
				var t bool
				if t, ok = v.(bool); ok {
					fb.(*array.BooleanBuilder).Append(t)
				}
			default:
				fb.(*array.StringBuilder).Append(FormatValue(v))
				ok = true
			}
			if !ok {
				return fmt.Errorf("column %q: value %v (%T) does not match kind %s", c.Name, v, v, c.Kind)
			}
		}
	}

	rec := b.NewRecord()
	defer rec.Release()
	if err := s.fw.Write(rec); err != nil {
		return err
	}
	s.rows += int64(len(batch.Rows))
	return nil
}

func (s *parquetSession) Close() (Stats, error) {
	if err := s.fw.Close(); err != nil {
		_ = s.out.Close()
		return Stats{}, err
	}
	if err := s.out.Close(); err != nil {
		return Stats{}, err
	}
	return Stats{Rows: s.rows, Bytes: s.count.n}, nil
}

func (s *parquetSession) Abort() error {
	return s.out.Close()
}
