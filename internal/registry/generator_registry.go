package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/mmrzaf/tdgen/internal/generators"
)

type GeneratorRegistry struct {
	mu         sync.RWMutex
	generators map[domain.DataType]generators.Generator
}

func NewGeneratorRegistry() *GeneratorRegistry {
	return &GeneratorRegistry{
		generators: make(map[domain.DataType]generators.Generator),
	}
}

// Register binds a data type to a generator. Registering a type again
// replaces the previous binding.
func (r *GeneratorRegistry) Register(dataType domain.DataType, gen generators.Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[dataType] = gen
}

// Resolve returns a *domain.ValidationError matching domain.ErrUnknownDataType
// for unregistered types.
func (r *GeneratorRegistry) Resolve(dataType domain.DataType) (generators.Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen, ok := r.generators[dataType]
	if !ok {
		return nil, &domain.ValidationError{
			Field: "type",
			Err:   fmt.Errorf("%w: %q", domain.ErrUnknownDataType, dataType),
		}
	}
	return gen, nil
}

func (r *GeneratorRegistry) Types() []domain.DataType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.DataType, 0, len(r.generators))
	for t := range r.generators {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func DefaultGeneratorRegistry() *GeneratorRegistry {
	r := NewGeneratorRegistry()
	r.Register(domain.DataTypeName, generators.NameGenerator())
	r.Register(domain.DataTypeEmail, generators.EmailGenerator())
	r.Register(domain.DataTypePhone, generators.PhoneGenerator())
	r.Register(domain.DataTypeAddress, generators.AddressGenerator())
	r.Register(domain.DataTypeCompany, generators.CompanyGenerator())
	r.Register(domain.DataTypeJob, generators.JobGenerator())
	r.Register(domain.DataTypeDate, generators.NewDateGenerator())
	r.Register(domain.DataTypeDatetime, generators.NewDatetimeGenerator())
	r.Register(domain.DataTypeInteger, &generators.IntegerGenerator{})
	r.Register(domain.DataTypeFloat, &generators.FloatGenerator{})
	r.Register(domain.DataTypeBoolean, &generators.BooleanGenerator{})
	r.Register(domain.DataTypeText, &generators.TextGenerator{})
	r.Register(domain.DataTypeURL, generators.URLGenerator())
	r.Register(domain.DataTypeIPAddress, generators.IPAddressGenerator())
	r.Register(domain.DataTypeUUID, &generators.UUID4Generator{})
	r.Register(domain.DataTypeCreditCard, generators.CreditCardGenerator())
	r.Register(domain.DataTypeChoice, &generators.ChoiceGenerator{})
	return r
}
