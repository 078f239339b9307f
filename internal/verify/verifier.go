// Package verify checks every hash-carrying catalog entry against the file
// it describes.
package verify

import (
	"context"
	"errors"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/datapipe-project/datapipe/internal/catalog"
	"github.com/datapipe-project/datapipe/internal/integrity"
	"github.com/datapipe-project/datapipe/pkg/model"
	"github.com/datapipe-project/datapipe/pkg/progress"
)

// Result contains verification results for a single catalog entry.
type Result struct {
	DataProduct    string               `json:"data_product,omitempty"`
	Version        string               `json:"version,omitempty"`
	Filename       string               `json:"filename"`
	State          model.IntegrityState `json:"state"`
	VerifiedHash   model.HashValue      `json:"verified_hash,omitempty"`
	CalculatedHash model.HashValue      `json:"calculated_hash,omitempty"`
	TamperDetected bool                 `json:"tamper_detected"`
	Severity       string               `json:"severity,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// Verifier performs integrity verification over a catalog.
type Verifier struct {
	catalog     *catalog.Catalog
	hasher      *integrity.Hasher
	concurrency int
	progress    progress.Callback
}

// NewVerifier creates a verifier hashing up to concurrency files at once.
// A non-positive concurrency uses GOMAXPROCS.
func NewVerifier(c *catalog.Catalog, hasher *integrity.Hasher, concurrency int) *Verifier {
	if hasher == nil {
		hasher = integrity.NewHasher(nil, nil)
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &Verifier{catalog: c, hasher: hasher, concurrency: concurrency}
}

// SetProgress installs a callback invoked after each entry is verified.
func (v *Verifier) SetProgress(cb progress.Callback) {
	v.progress = cb
}

// VerifyEntry verifies a single catalog entry. Problems with the entry are
// reported in the Result, not as an error.
func (v *Verifier) VerifyEntry(entry model.Record) *Result {
	result := &Result{
		DataProduct:  entry.DataProduct,
		Version:      entry.Version,
		Filename:     entry.Filename,
		VerifiedHash: entry.VerifiedHash,
	}
	if entry.VerifiedHash == "" {
		result.State = model.IntegrityUnverified
		return result
	}

	hashed, err := v.hasher.Calculate(entry)
	if err != nil {
		result.Error = err.Error()
		if errors.Is(err, os.ErrNotExist) {
			result.State = model.IntegrityMissing
			result.Severity = "critical"
		} else {
			result.State = model.IntegrityUnverified
			result.Severity = "error"
		}
		return result
	}

	result.CalculatedHash = hashed.CalculatedHash
	if hashed.CalculatedHash != entry.VerifiedHash {
		result.State = model.IntegrityTampered
		result.TamperDetected = true
		result.Severity = "critical"
		result.Error = "calculated hash does not match verified hash"
		return result
	}
	result.State = model.IntegrityVerified
	return result
}

// VerifyAll verifies every catalog entry, hashing in parallel. Results are
// in catalog order. Only cancellation of ctx produces an error.
func (v *Verifier) VerifyAll(ctx context.Context) ([]*Result, error) {
	entries := v.catalog.Entries()
	results := make([]*Result, len(entries))
	counter := progress.New("verify", len(entries), v.progress)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, entry := range entries {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = v.VerifyEntry(entry)
			counter.Increment(entry.Filename)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Failed reports whether any result indicates tampering or a missing file.
func Failed(results []*Result) bool {
	for _, r := range results {
		if r.Severity == "critical" {
			return true
		}
	}
	return false
}
