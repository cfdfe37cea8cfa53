package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mmrzaf/tdgen/internal/domain"
)

var defaultColumnTypes = []string{"name", "email", "phone", "company", "job"}

// columnFlags is the column part of `tdgen generate`. Every list is cycled
// to the column count, so "--column-types integer,text" over four columns
// yields integer,text,integer,text.
type columnFlags struct {
	count   int
	types   []string
	names   []string
	mins    []string
	maxs    []string
	lengths []string
}

func buildColumns(f columnFlags) ([]domain.ColumnConfig, error) {
	if f.count < 0 {
		return nil, fmt.Errorf("--columns must be >= 0, got %d", f.count)
	}
	types := f.types
	if len(types) == 0 {
		types = defaultColumnTypes
	}

	mins, err := parseOptionalFloats("--min-values", f.mins)
	if err != nil {
		return nil, err
	}
	maxs, err := parseOptionalFloats("--max-values", f.maxs)
	if err != nil {
		return nil, err
	}
	lengths, err := parseOptionalInts("--text-lengths", f.lengths)
	if err != nil {
		return nil, err
	}

	columns := make([]domain.ColumnConfig, f.count)
	for i := range columns {
		name := fmt.Sprintf("Column_%d", i+1)
		if len(f.names) > 0 {
			name = cycle(f.names, i)
		}
		col := domain.ColumnConfig{
			Name: name,
			Type: domain.DataType(strings.ToLower(strings.TrimSpace(cycle(types, i)))),
		}

		// min/max only mean something to numeric columns and length only to
		// text, so positions that do not apply are ignored.
		switch col.Type {
		case domain.DataTypeInteger, domain.DataTypeFloat:
			col.Params.Min = cycle(mins, i)
			col.Params.Max = cycle(maxs, i)
		case domain.DataTypeText:
			col.Params.Length = cycle(lengths, i)
		}
		columns[i] = col
	}
	return columns, nil
}

func cycle[T any](list []T, i int) T {
	var zero T
	if len(list) == 0 {
		return zero
	}
	return list[i%len(list)]
}

func isNone(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "none")
}

func parseOptionalFloats(flag string, raw []string) ([]*float64, error) {
	out := make([]*float64, len(raw))
	for i, s := range raw {
		if isNone(s) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid numeric value %q", flag, s)
		}
		out[i] = &v
	}
	return out, nil
}

func parseOptionalInts(flag string, raw []string) ([]*int, error) {
	out := make([]*int, len(raw))
	for i, s := range raw {
		if isNone(s) {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%s: invalid length %q", flag, s)
		}
		out[i] = &v
	}
	return out, nil
}

// withExtension appends ext unless path already ends with it.
func withExtension(path, ext string) string {
	if ext == "" || strings.EqualFold(filepath.Ext(path), ext) {
		return path
	}
	return path + ext
}

// looksLikePath tells a preset file path apart from a preset name.
func looksLikePath(s string) bool {
	if strings.ContainsRune(s, '/') || strings.ContainsRune(s, filepath.Separator) {
		return true
	}
	switch strings.ToLower(filepath.Ext(s)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// splitLines returns the non-blank lines of s, trimmed.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
