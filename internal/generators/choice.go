package generators

import (
	"math"
	"math/rand/v2"

	"github.com/mmrzaf/tdgen/internal/domain"
)

type ChoiceGenerator struct{}

func (g *ChoiceGenerator) Kind() domain.ValueKind { return domain.KindString }

func (g *ChoiceGenerator) Validate(params domain.ColumnParams) error {
	if err := allowOnly(params, "values", "weights"); err != nil {
		return err
	}
	if len(params.Values) == 0 {
		return invalid("choice requires a non-empty 'values' list")
	}
	if params.Weights == nil {
		return nil
	}
	if len(params.Weights) != len(params.Values) {
		return invalid("'weights' and 'values' must have the same length (%d != %d)", len(params.Weights), len(params.Values))
	}
	total := 0.0
	for _, w := range params.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return invalid("weights must be finite and non-negative, got %v", w)
		}
		total += w
	}
	if total == 0 {
		return invalid("total weight is zero")
	}
	return nil
}

func (g *ChoiceGenerator) Generate(rng *rand.Rand, params domain.ColumnParams) (any, error) {
	values := params.Values
	if len(values) == 0 {
		return nil, invalid("choice requires a non-empty 'values' list")
	}
	if params.Weights == nil {
		return values[rng.IntN(len(values))], nil
	}

	totalWeight := 0.0
	for _, w := range params.Weights {
		totalWeight += w
	}

	r := rng.Float64() * totalWeight
	cumWeight := 0.0
	for i, w := range params.Weights {
		cumWeight += w
		if r < cumWeight {
			return values[i], nil
		}
	}

	return values[len(values)-1], nil
}
