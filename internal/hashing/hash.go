package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/mmrzaf/tdgen/internal/domain"
)

type requestHashPayload struct {
	Rows      int64                 `json:"rows"`
	Columns   []domain.ColumnConfig `json:"columns"`
	Format    string                `json:"format"`
	Options   domain.FormatOptions  `json:"options"`
	BatchSize int                   `json:"batch_size"`
	Seed      int64                 `json:"seed"`
}

// HashRequest fingerprints everything that determines the bytes of a run's
// output: shape, column params, format, options, batch size and seed. The
// request name and output path are left out, so the same data written to two
// places hashes the same. batchSize should be the resolved value.
func HashRequest(req *domain.GenerationRequest, batchSize int, seed int64) (string, error) {
	columns := req.Columns
	if columns == nil {
		columns = []domain.ColumnConfig{}
	}
	p := requestHashPayload{
		Rows:      req.Rows,
		Columns:   columns,
		Format:    strings.ToLower(strings.TrimSpace(string(req.File.Format))),
		Options:   req.File.Options,
		BatchSize: batchSize,
		Seed:      seed,
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
