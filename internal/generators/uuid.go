package generators

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/mmrzaf/tdgen/internal/domain"
)

// UUID4Generator builds version 4 UUIDs from the run's rng instead of
// crypto/rand so seeded runs repeat.
type UUID4Generator struct{}

func (g *UUID4Generator) Kind() domain.ValueKind { return domain.KindString }

func (g *UUID4Generator) Validate(params domain.ColumnParams) error { return allowOnly(params) }

func (g *UUID4Generator) Generate(rng *rand.Rand, params domain.ColumnParams) (any, error) {
	uuidBytes := make([]byte, 16)
	binary.LittleEndian.PutUint64(uuidBytes[:8], rng.Uint64())
	binary.LittleEndian.PutUint64(uuidBytes[8:], rng.Uint64())
	uuidBytes[6] = (uuidBytes[6] & 0x0f) | 0x40
	uuidBytes[8] = (uuidBytes[8] & 0x3f) | 0x80
	u, err := uuid.FromBytes(uuidBytes)
	if err != nil {
		return nil, err
	}
	return u.String(), nil
}
