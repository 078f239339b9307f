package audit_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/datapipe-project/datapipe/internal/audit"
	"github.com/datapipe-project/datapipe/pkg/clock"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/metrics"
	"github.com/datapipe-project/datapipe/pkg/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var opened = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newLedger(t *testing.T, dataDir string) (*audit.Ledger, string, *metrics.Registry) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "access.yaml")
	fake := clock.Fake(opened)
	fake.SetStep(time.Second)
	reg := metrics.NewRegistry()
	l := audit.NewLedger(audit.Options{
		Path:          logPath,
		DataDirectory: dataDir,
		RunID:         "run-1",
		Config:        map[string]any{"run_id": "run-1"},
		Clock:         fake,
		Metrics:       reg,
	})
	return l, logPath, reg
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	return doc
}

func TestFlush_EmptySessionHasEmptyIOList(t *testing.T) {
	l, path, _ := newLedger(t, "/data")
	require.NoError(t, l.Flush())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "io: []")

	doc := readDoc(t, path)
	assert.Equal(t, "/data", doc["data_directory"])
	assert.Equal(t, "run-1", doc["run_id"])
	assert.Contains(t, doc, "open_timestamp")
	assert.Contains(t, doc, "close_timestamp")
	assert.Contains(t, doc, "config")
	assert.NotContains(t, doc, "metadata", "empty run metadata is omitted")
}

func TestLedger_ReadAndWriteInOrder(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "out.csv"), []byte("hello"), 0644))

	l, path, reg := newLedger(t, dataDir)
	l.LogRead(model.Record{DataProduct: "in"}, model.Record{DataProduct: "in", Filename: "in.csv", CalculatedHash: "abc"})
	hashed, err := l.LogWrite(model.Record{DataProduct: "out"}, model.Record{DataDirectory: dataDir, Filename: "out.csv"})
	require.NoError(t, err)
	assert.Equal(t, model.HashValue("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"), hashed.CalculatedHash)
	require.NoError(t, l.Flush())

	doc := readDoc(t, path)
	io, ok := doc["io"].([]any)
	require.True(t, ok)
	require.Len(t, io, 2)

	first := io[0].(map[string]any)
	second := io[1].(map[string]any)
	assert.Equal(t, "read", first["type"])
	assert.Equal(t, "write", second["type"])
	assert.Equal(t, map[string]any{"data_product": "out"}, second["callMetadata"])
	access := second["accessMetadata"].(map[string]any)
	assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", access["calculated_hash"])
	assert.NotContains(t, access, "data_directory")
	assert.Contains(t, first, "timestamp")

	count, err := testutil.GatherAndCount(reg.Gatherer(), "datapipe_accesses_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLedger_TimestampsFromClock(t *testing.T) {
	l, _, _ := newLedger(t, "/d")
	l.LogRead(model.Record{}, model.Record{Filename: "a"})
	l.LogRead(model.Record{}, model.Record{Filename: "b"})

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Timestamp.Before(entries[1].Timestamp))
	assert.True(t, l.Summary().OpenTimestamp.Before(entries[0].Timestamp))
}

func TestLogWrite_HashFailureRecordsNothing(t *testing.T) {
	l, _, _ := newLedger(t, "/d")
	_, err := l.LogWrite(model.Record{}, model.Record{DataDirectory: t.TempDir(), Filename: "missing.csv"})
	assert.ErrorIs(t, err, errclass.ErrIOFailure)
	assert.Empty(t, l.Entries())
}

func TestFlush_Idempotent(t *testing.T) {
	l, path, _ := newLedger(t, "/d")
	require.NoError(t, l.Flush())
	require.NoError(t, os.Remove(path))

	require.NoError(t, l.Flush())
	assert.NoFileExists(t, path, "second flush must not write again")
}

func TestLedger_LogAfterFlushPanics(t *testing.T) {
	l, _, _ := newLedger(t, "/d")
	require.NoError(t, l.Flush())

	assert.Panics(t, func() { l.LogRead(model.Record{}, model.Record{}) })
	assert.Panics(t, func() { _, _ = l.LogWrite(model.Record{}, model.Record{}) })
	assert.Panics(t, func() { l.UpdateMetadata(map[string]string{"k": "v"}) })
}

func TestLedger_Metadata(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "access.yaml")
	l := audit.NewLedger(audit.Options{
		Path:     logPath,
		RunID:    "r",
		Metadata: map[string]string{"a": "1", "b": "2"},
	})
	l.UpdateMetadata(map[string]string{"b": "3", "c": "4"})
	require.NoError(t, l.Flush())

	doc := readDoc(t, logPath)
	assert.Equal(t, map[string]any{"a": "1", "b": "3", "c": "4"}, doc["metadata"])
}

func TestLedger_ConcurrentAppends(t *testing.T) {
	dataDir := t.TempDir()
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, fmt.Sprintf("f%d", i)), []byte{byte(i)}, 0644))
	}
	l, path, _ := newLedger(t, dataDir)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			l.LogRead(model.Record{}, model.Record{Filename: fmt.Sprintf("r%d", i)})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := l.LogWrite(model.Record{}, model.Record{DataDirectory: dataDir, Filename: fmt.Sprintf("f%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	require.NoError(t, l.Flush())

	io := readDoc(t, path)["io"].([]any)
	assert.Len(t, io, 20)
}

func TestFlush_UnwritablePath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	l := audit.NewLedger(audit.Options{Path: filepath.Join(blocker, "access.yaml")})
	assert.ErrorIs(t, l.Flush(), errclass.ErrIOFailure)
}

func TestNoop(t *testing.T) {
	var r audit.Recorder = audit.Noop{}
	r.LogRead(model.Record{}, model.Record{})
	in := model.Record{Filename: "x"}
	out, err := r.LogWrite(model.Record{}, in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	r.UpdateMetadata(map[string]string{"k": "v"})
	assert.NoError(t, r.Flush())
	assert.NoError(t, r.Flush())
}
