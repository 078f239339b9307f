package integrity

import (
	"time"

	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/logging"
	"github.com/datapipe-project/datapipe/pkg/metrics"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// Hasher attaches calculated hashes to resolved records.
type Hasher struct {
	logger  *logging.Logger
	metrics *metrics.Registry
}

// NewHasher creates a Hasher. Nil arguments select a discarding logger and
// a private metrics registry.
func NewHasher(logger *logging.Logger, reg *metrics.Registry) *Hasher {
	if logger == nil {
		logger = logging.Nop()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Hasher{logger: logger, metrics: reg}
}

// AddHash refreshes record.CalculatedHash from the file the record points at.
// Records without a verified hash are returned unchanged and no file is read.
// When verify is set, a calculated hash that differs from the verified hash
// yields a *errclass.HashMismatchError; the returned record still carries
// the fresh calculated hash.
func (h *Hasher) AddHash(record model.Record, verify bool) (model.Record, error) {
	if record.VerifiedHash == "" {
		return record, nil
	}
	out, err := h.Calculate(record)
	if err != nil {
		return record, err
	}
	if verify && out.CalculatedHash != out.VerifiedHash {
		path, _ := out.Path()
		h.metrics.RecordMismatch()
		h.logger.Error("hash mismatch", map[string]any{
			"path":            path,
			"verified_hash":   out.VerifiedHash.String(),
			"calculated_hash": out.CalculatedHash.String(),
		})
		return out, &errclass.HashMismatchError{
			Path:       path,
			Verified:   out.VerifiedHash.String(),
			Calculated: out.CalculatedHash.String(),
		}
	}
	return out, nil
}

// Calculate unconditionally hashes the file the record points at and
// returns the record with CalculatedHash set.
func (h *Hasher) Calculate(record model.Record) (model.Record, error) {
	path, err := record.Path()
	if err != nil {
		return record, err
	}
	start := time.Now()
	sum, n, err := FileHash(path)
	if err != nil {
		return record, errclass.IO("hash "+path, err)
	}
	h.metrics.RecordHash(time.Since(start), n)
	h.logger.Debug("hashed file", map[string]any{"path": path, "bytes": n, "hash": sum.Short()})

	out := record.Clone()
	out.CalculatedHash = sum
	return out, nil
}
