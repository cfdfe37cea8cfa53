package domain

import (
	"time"
)

type DataType string

const (
	DataTypeName       DataType = "name"
	DataTypeEmail      DataType = "email"
	DataTypePhone      DataType = "phone"
	DataTypeAddress    DataType = "address"
	DataTypeCompany    DataType = "company"
	DataTypeJob        DataType = "job"
	DataTypeDate       DataType = "date"
	DataTypeDatetime   DataType = "datetime"
	DataTypeInteger    DataType = "integer"
	DataTypeFloat      DataType = "float"
	DataTypeBoolean    DataType = "boolean"
	DataTypeText       DataType = "text"
	DataTypeURL        DataType = "url"
	DataTypeIPAddress  DataType = "ip_address"
	DataTypeUUID       DataType = "uuid"
	DataTypeCreditCard DataType = "credit_card"
	DataTypeChoice     DataType = "choice"
)

// ValueKind is the Go representation a generator promises for its values.
// Writers that need a schema up front (parquet, sqlite, spreadsheets) read it
// before the first row exists.
type ValueKind string

const (
	KindString  ValueKind = "string"
	KindInteger ValueKind = "integer"
	KindFloat   ValueKind = "float"
	KindBool    ValueKind = "bool"
)

type ColumnParams struct {
	Min       *float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64  `json:"max,omitempty" yaml:"max,omitempty"`
	Precision *int      `json:"precision,omitempty" yaml:"precision,omitempty"`
	Length    *int      `json:"length,omitempty" yaml:"length,omitempty"`
	Start     string    `json:"start,omitempty" yaml:"start,omitempty"`
	End       string    `json:"end,omitempty" yaml:"end,omitempty"`
	Layout    string    `json:"layout,omitempty" yaml:"layout,omitempty"`
	Values    []string  `json:"values,omitempty" yaml:"values,omitempty"`
	Weights   []float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// Present lists the parameter keys that carry a value, in declaration order.
func (p ColumnParams) Present() []string {
	keys := make([]string, 0, 4)
	if p.Min != nil {
		keys = append(keys, "min")
	}
	if p.Max != nil {
		keys = append(keys, "max")
	}
	if p.Precision != nil {
		keys = append(keys, "precision")
	}
	if p.Length != nil {
		keys = append(keys, "length")
	}
	if p.Start != "" {
		keys = append(keys, "start")
	}
	if p.End != "" {
		keys = append(keys, "end")
	}
	if p.Layout != "" {
		keys = append(keys, "layout")
	}
	if p.Values != nil {
		keys = append(keys, "values")
	}
	if p.Weights != nil {
		keys = append(keys, "weights")
	}
	return keys
}

type ColumnConfig struct {
	Name   string       `json:"name" yaml:"name"`
	Type   DataType     `json:"type" yaml:"type"`
	Params ColumnParams `json:"params,omitempty" yaml:"params,omitempty"`
}

type Format string

const (
	FormatCSV      Format = "csv"
	FormatTXT      Format = "txt"
	FormatJSON     Format = "json"
	FormatXML      Format = "xml"
	FormatXLSX     Format = "xlsx"
	FormatExcel    Format = "excel"
	FormatParquet  Format = "parquet"
	FormatMarkdown Format = "markdown"
	FormatMD       Format = "md"
	FormatSQLite   Format = "sqlite"
)

type FormatOptions struct {
	Delimiter   string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	Quote       string `json:"quote,omitempty" yaml:"quote,omitempty"`
	QuoteAll    bool   `json:"quote_all,omitempty" yaml:"quote_all,omitempty"`
	CRLF        bool   `json:"crlf,omitempty" yaml:"crlf,omitempty"`
	NoHeader    bool   `json:"no_header,omitempty" yaml:"no_header,omitempty"`
	Aligned     bool   `json:"aligned,omitempty" yaml:"aligned,omitempty"`
	Pretty      bool   `json:"pretty,omitempty" yaml:"pretty,omitempty"`
	Indent      string `json:"indent,omitempty" yaml:"indent,omitempty"`
	RootElement string `json:"root_element,omitempty" yaml:"root_element,omitempty"`
	RowElement  string `json:"row_element,omitempty" yaml:"row_element,omitempty"`
	SheetName   string `json:"sheet_name,omitempty" yaml:"sheet_name,omitempty"`
	TableName   string `json:"table_name,omitempty" yaml:"table_name,omitempty"`
	Compression string `json:"compression,omitempty" yaml:"compression,omitempty"`
}

type FileConfig struct {
	Format  Format        `json:"format" yaml:"format"`
	Path    string        `json:"path" yaml:"path"`
	Options FormatOptions `json:"options,omitempty" yaml:"options,omitempty"`
}

type GenerationRequest struct {
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
	Rows      int64          `json:"rows" yaml:"rows"`
	Columns   []ColumnConfig `json:"columns" yaml:"columns"`
	File      FileConfig     `json:"file" yaml:"file"`
	Seed      *int64         `json:"seed,omitempty" yaml:"seed,omitempty"`
	BatchSize int            `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
}

// ColumnNames returns the configured names in column order.
func (r *GenerationRequest) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		names[i] = col.Name
	}
	return names
}

type GenerationResult struct {
	RunID        string        `json:"run_id,omitempty"`
	OutputPath   string        `json:"output_path"`
	Format       Format        `json:"format"`
	RowsWritten  int64         `json:"rows_written"`
	BytesWritten int64         `json:"bytes_written"`
	Batches      int           `json:"batches"`
	FailedRows   int64         `json:"failed_rows,omitempty"`
	Seed         int64         `json:"seed"`
	Duration     time.Duration `json:"duration"`
}

type Field struct {
	Name  string
	Value any
}

// Row is an ordered column-name to value mapping.
type Row []Field

func (r Row) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func (r Row) Values() []any {
	vals := make([]any, len(r))
	for i, f := range r {
		vals[i] = f.Value
	}
	return vals
}

type Batch struct {
	Index      int
	StartRow   int64
	Rows       []Row
	FailedRows int64
}

type Run struct {
	ID           string     `json:"id"`
	Name         string     `json:"name,omitempty"`
	Format       Format     `json:"format"`
	OutputPath   string     `json:"output_path"`
	Rows         int64      `json:"rows"`
	Columns      int        `json:"columns"`
	Seed         int64      `json:"seed"`
	ConfigHash   string     `json:"config_hash"`
	Status       RunStatus  `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	RowsWritten  int64      `json:"rows_written"`
	BytesWritten int64      `json:"bytes_written"`
	Error        string     `json:"error,omitempty"`
}

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)
