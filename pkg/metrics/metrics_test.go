package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/datapipe-project/datapipe/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	r := metrics.NewRegistry()

	r.RecordAccess("read")
	r.RecordAccess("read")
	r.RecordAccess("write")
	r.RecordMismatch()
	r.RecordResolveFailure("write")
	r.SetCatalogEntries(7)
	r.RecordHash(10*time.Millisecond, 2048)

	g := r.Gatherer()
	families, err := g.Gather()
	require.NoError(t, err)

	byName := map[string]bool{}
	for _, mf := range families {
		byName[mf.GetName()] = true
	}
	assert.True(t, byName["datapipe_accesses_total"])
	assert.True(t, byName["datapipe_hash_duration_seconds"])

	count, err := testutil.GatherAndCount(g, "datapipe_accesses_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per access type")
}

func TestRegistry_Values(t *testing.T) {
	r := metrics.NewRegistry()
	r.RecordMismatch()
	r.RecordMismatch()
	r.RecordHash(time.Millisecond, 100)
	r.RecordHash(time.Millisecond, 28)
	r.SetCatalogEntries(3)

	expected := `
# HELP datapipe_hash_mismatches_total Files whose calculated hash differed from the verified hash
# TYPE datapipe_hash_mismatches_total counter
datapipe_hash_mismatches_total 2
# HELP datapipe_hashed_bytes_total Bytes read while hashing file contents
# TYPE datapipe_hashed_bytes_total counter
datapipe_hashed_bytes_total 128
# HELP datapipe_catalog_entries Entries in the loaded metadata catalog
# TYPE datapipe_catalog_entries gauge
datapipe_catalog_entries 3
`
	err := testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(expected),
		"datapipe_hash_mismatches_total", "datapipe_hashed_bytes_total", "datapipe_catalog_entries")
	assert.NoError(t, err)
}

func TestRegistry_Isolated(t *testing.T) {
	a := metrics.NewRegistry()
	b := metrics.NewRegistry()
	a.RecordAccess("read")

	count, err := testutil.GatherAndCount(b.Gatherer(), "datapipe_accesses_total")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRegistry_WriteTextfile(t *testing.T) {
	r := metrics.NewRegistry()
	r.RecordAccess("write")

	path := filepath.Join(t.TempDir(), "datapipe.prom")
	require.NoError(t, r.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `datapipe_accesses_total{type="write"} 1`)
}
