package exec

import (
	"math/rand/v2"

	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/mmrzaf/tdgen/internal/generators"
)

// Binding is a column with its resolved generator.
type Binding struct {
	Column    domain.ColumnConfig
	Generator generators.Generator
}

// RowSource yields one row per call.
type RowSource interface {
	ProduceRow() (domain.Row, error)
}

// RowProducer calls every column's generator once per row, in column order,
// drawing from a single rng. Reproducibility is therefore a property of the
// whole row sequence, and adding a column changes the values of the columns
// after it.
type RowProducer struct {
	bindings []Binding
	rng      *rand.Rand
}

func NewRowProducer(bindings []Binding, rng *rand.Rand) *RowProducer {
	return &RowProducer{bindings: bindings, rng: rng}
}

func (p *RowProducer) ProduceRow() (domain.Row, error) {
	row := make(domain.Row, len(p.bindings))
	for i, b := range p.bindings {
		v, err := b.Generator.Generate(p.rng, b.Column.Params)
		if err != nil {
			return nil, &columnError{column: b.Column.Name, err: err}
		}
		row[i] = domain.Field{Name: b.Column.Name, Value: v}
	}
	return row, nil
}

type columnError struct {
	column string
	err    error
}

func (e *columnError) Error() string { return e.column + ": " + e.err.Error() }

func (e *columnError) Unwrap() error { return e.err }
