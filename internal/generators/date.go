package generators

import (
	"math/rand/v2"
	"time"

	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/mmrzaf/tdgen/internal/timeutil"
)

var (
	defaultDateStart = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultDateEnd   = time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC)
)

// DateGenerator draws a uniform instant in [start, end) and renders it with
// layout. Resolution is one day for dates and one second for datetimes.
type DateGenerator struct {
	resolution    time.Duration
	defaultLayout string
}

func NewDateGenerator() *DateGenerator {
	return &DateGenerator{resolution: 24 * time.Hour, defaultLayout: timeutil.DateLayout}
}

func NewDatetimeGenerator() *DateGenerator {
	return &DateGenerator{resolution: time.Second, defaultLayout: time.RFC3339}
}

func (g *DateGenerator) Kind() domain.ValueKind { return domain.KindString }

func (g *DateGenerator) Validate(params domain.ColumnParams) error {
	if err := allowOnly(params, "start", "end", "layout"); err != nil {
		return err
	}
	from, to, err := timeutil.ParseRange(params.Start, params.End, defaultDateStart, defaultDateEnd)
	if err != nil {
		return invalid("%v", err)
	}
	if g.steps(from, to) < 1 {
		return invalid("range %s..%s is shorter than one %s", params.Start, params.End, g.resolution)
	}
	if params.Layout != "" && !timeutil.ValidLayout(params.Layout) {
		return invalid("layout %q has no time elements", params.Layout)
	}
	return nil
}

func (g *DateGenerator) Generate(rng *rand.Rand, params domain.ColumnParams) (any, error) {
	from, to, err := timeutil.ParseRange(params.Start, params.End, defaultDateStart, defaultDateEnd)
	if err != nil {
		return nil, err
	}
	step := int64(g.resolution / time.Second)
	k := rng.Int64N(g.steps(from, to))
	t := time.Unix(from.Unix()+k*step, 0).In(from.Location())

	layout := g.defaultLayout
	if params.Layout != "" {
		layout = params.Layout
	}
	return t.Format(layout), nil
}

// steps counts whole resolution steps in [from, to). It works on Unix
// seconds because time.Duration overflows past about 292 years.
func (g *DateGenerator) steps(from, to time.Time) int64 {
	return (to.Unix() - from.Unix()) / int64(g.resolution/time.Second)
}
