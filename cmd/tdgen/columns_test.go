package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mmrzaf/tdgen/internal/domain"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func TestBuildColumnsDefaults(t *testing.T) {
	cols, err := buildColumns(columnFlags{count: 7})
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.ColumnConfig{
		{Name: "Column_1", Type: "name"},
		{Name: "Column_2", Type: "email"},
		{Name: "Column_3", Type: "phone"},
		{Name: "Column_4", Type: "company"},
		{Name: "Column_5", Type: "job"},
		{Name: "Column_6", Type: "name"},
		{Name: "Column_7", Type: "email"},
	}
	if diff := cmp.Diff(want, cols); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildColumnsCyclesListsAndSkipsForeignParams(t *testing.T) {
	cols, err := buildColumns(columnFlags{
		count:   4,
		types:   []string{"Integer", "float", "text", "boolean"},
		names:   []string{"a", "b", "c", "d"},
		mins:    []string{"0", "0.5"},
		maxs:    []string{"100", "None"},
		lengths: []string{"none", "none", "12"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.ColumnConfig{
		{Name: "a", Type: "integer", Params: domain.ColumnParams{Min: fp(0), Max: fp(100)}},
		{Name: "b", Type: "float", Params: domain.ColumnParams{Min: fp(0.5)}},
		{Name: "c", Type: "text", Params: domain.ColumnParams{Length: ip(12)}},
		{Name: "d", Type: "boolean"},
	}
	if diff := cmp.Diff(want, cols); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildColumnsRejectsBadNumbers(t *testing.T) {
	if _, err := buildColumns(columnFlags{count: 1, mins: []string{"ten"}}); err == nil {
		t.Fatal("expected bad min to fail")
	}
	if _, err := buildColumns(columnFlags{count: 1, lengths: []string{"1.5"}}); err == nil {
		t.Fatal("expected bad length to fail")
	}
	if _, err := buildColumns(columnFlags{count: -1}); err == nil {
		t.Fatal("expected negative count to fail")
	}
}

func TestWithExtension(t *testing.T) {
	cases := []struct {
		path, ext, want string
	}{
		{"out", ".csv", "out.csv"},
		{"out.csv", ".csv", "out.csv"},
		{"OUT.CSV", ".csv", "OUT.CSV"},
		{"data.csv", ".json", "data.csv.json"},
		{"sheet", ".xlsx", "sheet.xlsx"},
	}
	for _, tc := range cases {
		if got := withExtension(tc.path, tc.ext); got != tc.want {
			t.Errorf("withExtension(%q, %q) = %q, want %q", tc.path, tc.ext, got, tc.want)
		}
	}
}

func TestLooksLikePath(t *testing.T) {
	for s, want := range map[string]bool{
		"people":         false,
		"people.yaml":    true,
		"./people":       true,
		"presets/x.json": true,
		"nightly-orders": false,
	} {
		if got := looksLikePath(s); got != want {
			t.Errorf("looksLikePath(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestSplitLines(t *testing.T) {
	got := splitLines("red\n\n  green \r\nblue\n")
	if diff := cmp.Diff([]string{"red", "green", "blue"}, got); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}
