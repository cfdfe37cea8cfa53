package generators

import (
	"math"
	"math/rand/v2"

	"github.com/mmrzaf/tdgen/internal/domain"
)

const (
	defaultNumericMin = 0.0
	defaultNumericMax = 1000.0
	defaultPrecision  = 2
	maxPrecision      = 10
	// integers stay within the range a float64 param represents exactly
	maxSafeInteger = 1 << 53
)

func numericRange(params domain.ColumnParams) (float64, float64, error) {
	lo, hi := defaultNumericMin, defaultNumericMax
	if params.Min != nil {
		lo = *params.Min
	}
	if params.Max != nil {
		hi = *params.Max
	}
	if math.IsNaN(lo) || math.IsInf(lo, 0) || math.IsNaN(hi) || math.IsInf(hi, 0) {
		return 0, 0, invalid("min and max must be finite numbers")
	}
	if lo >= hi {
		return 0, 0, invalid("min (%v) must be less than max (%v)", lo, hi)
	}
	if math.IsInf(hi-lo, 0) {
		return 0, 0, invalid("range %v..%v is too wide to sample", lo, hi)
	}
	return lo, hi, nil
}

type IntegerGenerator struct{}

func (g *IntegerGenerator) Kind() domain.ValueKind { return domain.KindInteger }

func (g *IntegerGenerator) Validate(params domain.ColumnParams) error {
	if err := allowOnly(params, "min", "max"); err != nil {
		return err
	}
	lo, hi, err := numericRange(params)
	if err != nil {
		return err
	}
	if math.Abs(lo) > maxSafeInteger || math.Abs(hi) > maxSafeInteger {
		return invalid("integer bounds must be within ±%d", int64(maxSafeInteger))
	}
	if min, max := integerBounds(lo, hi); min > max {
		return invalid("no integer lies between min (%v) and max (%v)", lo, hi)
	}
	return nil
}

// integerBounds rounds fractional bounds inward.
func integerBounds(lo, hi float64) (int64, int64) {
	return int64(math.Ceil(lo)), int64(math.Floor(hi))
}

// Generate returns an int64 in [min, max], both ends inclusive.
func (g *IntegerGenerator) Generate(rng *rand.Rand, params domain.ColumnParams) (any, error) {
	lo, hi, err := numericRange(params)
	if err != nil {
		return nil, err
	}
	min, max := integerBounds(lo, hi)
	return min + rng.Int64N(max-min+1), nil
}

type FloatGenerator struct{}

func (g *FloatGenerator) Kind() domain.ValueKind { return domain.KindFloat }

func (g *FloatGenerator) Validate(params domain.ColumnParams) error {
	if err := allowOnly(params, "min", "max", "precision"); err != nil {
		return err
	}
	if params.Precision != nil && (*params.Precision < 0 || *params.Precision > maxPrecision) {
		return invalid("precision must be between 0 and %d, got %d", maxPrecision, *params.Precision)
	}
	_, _, err := numericRange(params)
	return err
}

func (g *FloatGenerator) Generate(rng *rand.Rand, params domain.ColumnParams) (any, error) {
	lo, hi, err := numericRange(params)
	if err != nil {
		return nil, err
	}
	precision := defaultPrecision
	if params.Precision != nil {
		precision = *params.Precision
	}
	v := lo + rng.Float64()*(hi-lo)
	scale := math.Pow10(precision)
	scaled := math.Round(v * scale)
	if math.IsInf(scaled, 0) {
		return v, nil
	}
	return scaled / scale, nil
}

type BooleanGenerator struct{}

func (g *BooleanGenerator) Kind() domain.ValueKind { return domain.KindBool }

func (g *BooleanGenerator) Validate(params domain.ColumnParams) error { return allowOnly(params) }

func (g *BooleanGenerator) Generate(rng *rand.Rand, params domain.ColumnParams) (any, error) {
	return rng.IntN(2) == 1, nil
}
