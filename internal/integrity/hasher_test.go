package integrity_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datapipe-project/datapipe/internal/integrity"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/metrics"
	"github.com/datapipe-project/datapipe/pkg/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) model.Record {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "human"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "human", "a.txt"), []byte("hello"), 0644))
	return model.Record{DataDirectory: dir, Filename: "human/a.txt"}
}

func TestAddHash_NoVerifiedHashIsUnchanged(t *testing.T) {
	h := integrity.NewHasher(nil, nil)
	rec := model.Record{Filename: "does/not/exist.csv", DataProduct: "p"}

	out, err := h.AddHash(rec, true)
	require.NoError(t, err)
	assert.Equal(t, rec, out)
	assert.Empty(t, out.CalculatedHash)
}

func TestAddHash_Matching(t *testing.T) {
	h := integrity.NewHasher(nil, nil)
	rec := fixture(t)
	rec.VerifiedHash = helloSHA1

	out, err := h.AddHash(rec, true)
	require.NoError(t, err)
	assert.Equal(t, helloSHA1, out.CalculatedHash)
	assert.Empty(t, rec.CalculatedHash, "input is not mutated")
}

func TestAddHash_MismatchWithVerify(t *testing.T) {
	reg := metrics.NewRegistry()
	h := integrity.NewHasher(nil, reg)
	rec := fixture(t)
	rec.VerifiedHash = "0000000000000000000000000000000000000000"

	out, err := h.AddHash(rec, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, errclass.ErrIntegrityMismatch)

	var mismatch *errclass.HashMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "0000000000000000000000000000000000000000", mismatch.Verified)
	assert.Equal(t, helloSHA1.String(), mismatch.Calculated)
	assert.Equal(t, filepath.Join(rec.DataDirectory, "human", "a.txt"), mismatch.Path)
	assert.Equal(t, helloSHA1, out.CalculatedHash)

	count, err := testutil.GatherAndCount(reg.Gatherer(), "datapipe_hash_mismatches_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddHash_MismatchWithoutVerify(t *testing.T) {
	h := integrity.NewHasher(nil, nil)
	rec := fixture(t)
	rec.VerifiedHash = "0000000000000000000000000000000000000000"
	rec.CalculatedHash = "stale"

	out, err := h.AddHash(rec, false)
	require.NoError(t, err)
	assert.Equal(t, helloSHA1, out.CalculatedHash, "calculated hash is refreshed even without verification")
}

func TestAddHash_MissingFile(t *testing.T) {
	h := integrity.NewHasher(nil, nil)
	rec := model.Record{DataDirectory: t.TempDir(), Filename: "gone.csv", VerifiedHash: helloSHA1}

	_, err := h.AddHash(rec, true)
	assert.ErrorIs(t, err, errclass.ErrIOFailure)
}

func TestAddHash_RequiresFilename(t *testing.T) {
	h := integrity.NewHasher(nil, nil)
	rec := model.Record{DataDirectory: t.TempDir(), VerifiedHash: helloSHA1}

	_, err := h.AddHash(rec, true)
	assert.ErrorIs(t, err, errclass.ErrRequiredFieldMissing)
}

func TestCalculate_AlwaysHashes(t *testing.T) {
	reg := metrics.NewRegistry()
	h := integrity.NewHasher(nil, reg)
	rec := fixture(t)

	out, err := h.Calculate(rec)
	require.NoError(t, err)
	assert.Equal(t, helloSHA1, out.CalculatedHash)

	expected := `
# HELP datapipe_hashed_bytes_total Bytes read while hashing file contents
# TYPE datapipe_hashed_bytes_total counter
datapipe_hashed_bytes_total 5
`
	assert.NoError(t, testutil.GatherAndCompare(reg.Gatherer(), strings.NewReader(expected), "datapipe_hashed_bytes_total"))
}
