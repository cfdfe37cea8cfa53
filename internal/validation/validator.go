package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/mmrzaf/tdgen/internal/exec"
	"github.com/mmrzaf/tdgen/internal/registry"
	"github.com/mmrzaf/tdgen/internal/writers"
)

// Limits bound a request. They are fixed at construction time.
type Limits struct {
	MaxRows          int64
	MaxColumns       int
	DefaultBatchSize int
	MaxBatchSize     int
}

func DefaultLimits() Limits {
	return Limits{
		MaxRows:          1_000_000,
		MaxColumns:       100,
		DefaultBatchSize: exec.DefaultBatchSize,
		MaxBatchSize:     100_000,
	}
}

// Plan is a validated request with every generator and the writer resolved.
type Plan struct {
	Bindings  []exec.Binding
	Columns   []writers.Column
	Writer    writers.Writer
	BatchSize int
}

type Validator struct {
	genRegistry *registry.GeneratorRegistry
	fmtRegistry *registry.FormatRegistry
	limits      Limits
}

func NewValidator(genRegistry *registry.GeneratorRegistry, fmtRegistry *registry.FormatRegistry, limits Limits) *Validator {
	return &Validator{genRegistry: genRegistry, fmtRegistry: fmtRegistry, limits: limits}
}

func (v *Validator) Limits() Limits { return v.limits }

// identifier validation: allow simple SQL identifiers only.
var (
	identRe       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reservedWords = map[string]struct{}{
		"add": {}, "all": {}, "alter": {}, "and": {}, "any": {}, "as": {},
		"asc": {}, "between": {}, "by": {}, "case": {}, "check": {},
		"column": {}, "constraint": {}, "create": {}, "cross": {}, "current_date": {},
		"current_time": {}, "current_timestamp": {}, "database": {}, "default": {}, "delete": {},
		"desc": {}, "distinct": {}, "do": {}, "drop": {}, "else": {},
		"end": {}, "except": {}, "exists": {}, "false": {}, "for": {},
		"foreign": {}, "from": {}, "full": {}, "grant": {}, "group": {},
		"having": {}, "in": {}, "index": {}, "inner": {}, "insert": {},
		"intersect": {}, "into": {}, "is": {}, "join": {}, "key": {},
		"left": {}, "like": {}, "limit": {}, "natural": {}, "not": {},
		"null": {}, "offset": {}, "on": {}, "or": {}, "order": {},
		"outer": {}, "primary": {}, "references": {}, "returning": {}, "revoke": {},
		"right": {}, "schema": {}, "select": {}, "set": {}, "table": {},
		"then": {}, "to": {}, "true": {}, "truncate": {}, "union": {},
		"unique": {}, "update": {}, "user": {}, "using": {}, "values": {},
		"view": {}, "when": {}, "where": {}, "with": {},
	}
)

func IsValidIdentifier(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if !identRe.MatchString(s) {
		return false
	}
	if _, ok := reservedWords[strings.ToLower(s)]; ok {
		return false
	}
	return true
}

// ValidateRequest checks req against the limits and registries and resolves
// it into a Plan. It never creates the output file; the writability probe is
// a temporary file that is removed before returning. Every error is a
// *domain.ValidationError.
func (v *Validator) ValidateRequest(req *domain.GenerationRequest) (*Plan, error) {
	if req == nil {
		return nil, domain.NewValidationError("", "", "request is required")
	}

	if req.Rows < 0 {
		return nil, domain.NewValidationError("rows", "", "must be >= 0, got %d", req.Rows)
	}
	if req.Rows > v.limits.MaxRows {
		return nil, domain.NewValidationError("rows", "", "%d exceeds the maximum of %d", req.Rows, v.limits.MaxRows)
	}

	if len(req.Columns) > v.limits.MaxColumns {
		return nil, domain.NewValidationError("columns", "", "%d columns exceed the maximum of %d", len(req.Columns), v.limits.MaxColumns)
	}
	if len(req.Columns) == 0 && req.Rows > 0 {
		return nil, domain.NewValidationError("columns", "", "at least one column is required when rows > 0")
	}

	plan := &Plan{
		Bindings: make([]exec.Binding, 0, len(req.Columns)),
		Columns:  make([]writers.Column, 0, len(req.Columns)),
	}
	seen := make(map[string]string, len(req.Columns))
	for i, col := range req.Columns {
		b, err := v.validateColumn(i, col, seen)
		if err != nil {
			return nil, err
		}
		plan.Bindings = append(plan.Bindings, b)
		plan.Columns = append(plan.Columns, writers.Column{Name: col.Name, Kind: b.Generator.Kind()})
	}

	batchSize, err := v.batchSize(req.BatchSize)
	if err != nil {
		return nil, err
	}
	plan.BatchSize = batchSize

	w, err := v.validateFile(req.File, plan.Columns, req.Rows)
	if err != nil {
		return nil, err
	}
	plan.Writer = w
	return plan, nil
}

func (v *Validator) validateColumn(i int, col domain.ColumnConfig, seen map[string]string) (exec.Binding, error) {
	if col.Name == "" {
		return exec.Binding{}, domain.NewValidationError(fmt.Sprintf("columns[%d].name", i), "", "column name is required")
	}
	if strings.TrimSpace(col.Name) != col.Name {
		return exec.Binding{}, domain.NewValidationError("name", col.Name, "column name has leading or trailing whitespace")
	}
	key := strings.ToLower(col.Name)
	if prev, dup := seen[key]; dup {
		return exec.Binding{}, domain.NewValidationError("name", col.Name, "duplicate column name (conflicts with %q, names are case-insensitive)", prev)
	}
	seen[key] = col.Name

	if col.Type == "" {
		return exec.Binding{}, domain.NewValidationError("type", col.Name, "column type is required")
	}
	gen, err := v.genRegistry.Resolve(col.Type)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			ve.Column = col.Name
			return exec.Binding{}, ve
		}
		return exec.Binding{}, &domain.ValidationError{Field: "type", Column: col.Name, Err: err}
	}

	if err := gen.Validate(col.Params); err != nil {
		return exec.Binding{}, &domain.ValidationError{Field: "params", Column: col.Name, Err: err}
	}
	return exec.Binding{Column: col, Generator: gen}, nil
}

func (v *Validator) batchSize(n int) (int, error) {
	switch {
	case n == 0:
		return v.limits.DefaultBatchSize, nil
	case n < 0:
		return 0, domain.NewValidationError("batch_size", "", "must be >= 1, got %d", n)
	case n > v.limits.MaxBatchSize:
		return 0, domain.NewValidationError("batch_size", "", "%d exceeds the maximum of %d", n, v.limits.MaxBatchSize)
	default:
		return n, nil
	}
}

func (v *Validator) validateFile(file domain.FileConfig, columns []writers.Column, rows int64) (writers.Writer, error) {
	if file.Format == "" {
		return nil, domain.NewValidationError("file.format", "", "format is required")
	}
	w, err := v.fmtRegistry.Resolve(file.Format)
	if err != nil {
		return nil, err
	}

	if err := checkDestination(file.Path); err != nil {
		return nil, &domain.ValidationError{Field: "file.path", Err: err}
	}

	if t := file.Options.TableName; t != "" && !IsValidIdentifier(t) {
		return nil, domain.NewValidationError("file.options.table_name", "", "invalid identifier: %s", t)
	}
	if err := w.Validate(file.Options, columns, rows); err != nil {
		return nil, &domain.ValidationError{Field: "file.options", Err: err}
	}
	return w, nil
}

// checkDestination requires an existing, writable parent directory and a
// path that is not itself a directory.
func checkDestination(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("output path is required")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("directory %s does not exist", dir)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".tdgen-probe-*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
