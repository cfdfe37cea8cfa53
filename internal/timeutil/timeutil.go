package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseDate accepts absolute dates only. Relative expressions such as "-30d"
// resolve differently from one day to the next and are rejected.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date string")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return time.Time{}, fmt.Errorf("relative dates are not supported: %s", s)
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", s)
}

// ParseRange parses start and end, falling back to the given defaults when
// either is empty, and requires start < end.
func ParseRange(start, end string, defStart, defEnd time.Time) (time.Time, time.Time, error) {
	from, to := defStart, defEnd
	var err error
	if start != "" {
		if from, err = ParseDate(start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
		}
	}
	if end != "" {
		if to, err = ParseDate(end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
		}
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("start (%s) must be before end (%s)", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return from, to, nil
}

// ValidLayout reports whether layout contains at least one time element.
// A layout of literal text would render every value identically.
func ValidLayout(layout string) bool {
	if strings.TrimSpace(layout) == "" {
		return false
	}
	ref := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	out := ref.Format(layout)
	return out != layout
}
