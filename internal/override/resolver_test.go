package override_test

import (
	"bytes"
	"testing"

	"github.com/datapipe-project/datapipe/internal/override"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/logging"
	"github.com/datapipe-project/datapipe/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadQuery_ForcesDataDirectory(t *testing.T) {
	r := &override.Resolver{
		ReadRules:     []model.OverrideRule{{Use: rec(model.Record{Version: "1.0.0"})}},
		DataDirectory: "/session/data",
	}
	out := r.ReadQuery(model.Record{DataProduct: "p", DataDirectory: "/elsewhere"})
	assert.Equal(t, "/session/data", out.DataDirectory)
	assert.Equal(t, "1.0.0", out.Version)
}

func TestReadQuery_RulesCannotBypassDataDirectory(t *testing.T) {
	r := &override.Resolver{
		ReadRules:     []model.OverrideRule{{Use: rec(model.Record{DataDirectory: "/evil"})}},
		DataDirectory: "/session/data",
	}
	assert.Equal(t, "/session/data", r.ReadQuery(model.Record{}).DataDirectory)
}

func TestWriteQuery_SynthesisesFilename(t *testing.T) {
	r := &override.Resolver{DataDirectory: "/d", RunID: "run42"}
	out, err := r.WriteQuery(model.Record{DataProduct: "human/estimate", Extension: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "human/estimate/run42.csv", out.Filename)
	assert.Equal(t, "run42", out.RunID)
	assert.Equal(t, "/d", out.DataDirectory)
}

func TestWriteQuery_KeepsExistingFilename(t *testing.T) {
	r := &override.Resolver{
		WriteRules:    []model.OverrideRule{{Use: rec(model.Record{Filename: "pinned/out.csv"})}},
		DataDirectory: "/d",
		RunID:         "run42",
	}
	out, err := r.WriteQuery(model.Record{DataProduct: "p"})
	require.NoError(t, err)
	assert.Equal(t, "pinned/out.csv", out.Filename)
}

func TestWriteQuery_RunIDForced(t *testing.T) {
	r := &override.Resolver{
		WriteRules: []model.OverrideRule{{Use: rec(model.Record{RunID: "configured"})}},
		RunID:      "session",
	}
	out, err := r.WriteQuery(model.Record{RunID: "caller", DataProduct: "p", Extension: "h5"})
	require.NoError(t, err)
	assert.Equal(t, "session", out.RunID)
	assert.Equal(t, "p/session.h5", out.Filename)
}

func TestWriteQuery_RulesSupplyExtension(t *testing.T) {
	r := &override.Resolver{
		WriteRules: []model.OverrideRule{
			{Where: rec(model.Record{DataProduct: "p"}), Use: rec(model.Record{Extension: "toml"})},
		},
		RunID: "r",
	}
	out, err := r.WriteQuery(model.Record{DataProduct: "p"})
	require.NoError(t, err)
	assert.Equal(t, "p/r.toml", out.Filename)
}

func TestWriteQuery_RequiredFields(t *testing.T) {
	r := &override.Resolver{RunID: "r"}

	_, err := r.WriteQuery(model.Record{Extension: "csv"})
	var missing *errclass.RequiredFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "data_product", missing.Field)
	assert.ErrorIs(t, err, errclass.ErrRequiredFieldMissing)

	_, err = r.WriteQuery(model.Record{DataProduct: "p"})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "extension", missing.Field)
}

func TestResolver_LogsChangedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.LevelDebug)
	logger.SetOutput(&buf)

	r := &override.Resolver{
		ReadRules: []model.OverrideRule{{Use: rec(model.Record{Version: "7"})}},
		Logger:    logger,
	}
	r.ReadQuery(model.Record{DataProduct: "p"})
	assert.Contains(t, buf.String(), `"version":"7"`)
	assert.Contains(t, buf.String(), "applied read overrides")
}
