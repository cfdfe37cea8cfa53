package generators

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/mmrzaf/tdgen/internal/domain"
)

// Generator produces one value for one column per call. Implementations keep
// no state between calls: everything random comes from rng, which belongs to
// the run. Validate is called once per column before any row is produced, so
// Generate must not fail for params that passed Validate.
type Generator interface {
	Generate(rng *rand.Rand, params domain.ColumnParams) (any, error)
	Validate(params domain.ColumnParams) error
	Kind() domain.ValueKind
}

// allowOnly rejects any parameter key outside allowed.
func allowOnly(params domain.ColumnParams, allowed ...string) error {
	for _, key := range params.Present() {
		ok := false
		for _, a := range allowed {
			if key == a {
				ok = true
				break
			}
		}
		if !ok {
			if len(allowed) == 0 {
				return fmt.Errorf("%w: %q is not accepted, this type takes no params", domain.ErrInvalidParameter, key)
			}
			return fmt.Errorf("%w: %q is not accepted (allowed: %s)", domain.ErrInvalidParameter, key, strings.Join(allowed, ", "))
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidParameter, fmt.Sprintf(format, args...))
}
