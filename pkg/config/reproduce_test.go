package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/datapipe-project/datapipe/pkg/config"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordedLedger = `data_directory: /data
open_timestamp: 2024-03-01T12:00:00Z
close_timestamp: 2024-03-01T12:00:05Z
run_id: abc
config:
  run_id: abc
  data_directory: data
  fail_on_hash_mismatch: false
  write:
    - use:
        namespace: out
io:
  - type: read
    timestamp: 2024-03-01T12:00:01Z
    callMetadata:
      data_product: human/estimate
    accessMetadata:
      filename: human/estimate/1.csv
      data_product: human/estimate
      component: r0
      version: 1.0.0
  - type: write
    timestamp: 2024-03-01T12:00:02Z
    callMetadata:
      data_product: out
    accessMetadata:
      filename: out/abc.csv
`

func TestReproduce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.yaml")
	require.NoError(t, os.WriteFile(path, []byte(recordedLedger), 0644))

	cfg, err := config.Reproduce(path, false)
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.RunID)
	assert.Equal(t, "data", cfg.DataDirectoryPath)
	assert.False(t, cfg.FailOnHashMismatch())
	require.Len(t, cfg.Write, 1)
	assert.Equal(t, "out", cfg.Write[0].Use.Namespace)

	require.Len(t, cfg.Read, 1, "only reads become rules")
	rule := cfg.Read[0]
	assert.Equal(t, "human/estimate", rule.Where.DataProduct)
	assert.Equal(t, "1.0.0", rule.Use.Version)
	assert.Equal(t, "r0", rule.Use.Component)
	assert.Empty(t, rule.Use.DataProduct, "fields the caller already gave are not repeated")
	assert.Empty(t, rule.Use.Filename)
}

func TestReproduce_UseFilenames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.yaml")
	require.NoError(t, os.WriteFile(path, []byte(recordedLedger), 0644))

	cfg, err := config.Reproduce(path, true)
	require.NoError(t, err)
	require.Len(t, cfg.Read, 1)
	assert.Equal(t, "human/estimate/1.csv", cfg.Read[0].Use.Filename)
	assert.Empty(t, cfg.Read[0].Use.Version)
}

func TestReproduce_MissingLedger(t *testing.T) {
	_, err := config.Reproduce(filepath.Join(t.TempDir(), "nope.yaml"), false)
	assert.ErrorIs(t, err, errclass.ErrIOFailure)
}
