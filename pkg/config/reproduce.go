package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// ledgerDocument is the subset of an access log needed to rebuild a config.
type ledgerDocument struct {
	Config *Config             `yaml:"config"`
	IO     []model.AccessEntry `yaml:"io"`
}

// Reproduce builds a configuration that replays the reads recorded in the
// access log at ledgerPath. Each read becomes a rule pinning the fields the
// resolver picked beyond what the caller asked for: the catalog coordinates
// by default, or only the filename when useFilenames is set. Top-level
// settings and write rules are carried over from the recorded config.
func Reproduce(ledgerPath string, useFilenames bool) (*Config, error) {
	data, err := os.ReadFile(ledgerPath)
	if err != nil {
		return nil, errclass.IO("read access log", err)
	}
	var doc ledgerDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errclass.IO("parse access log", err)
	}

	out := Default()
	if prev := doc.Config; prev != nil {
		out.RunID = prev.RunID
		out.DataDirectoryPath = prev.DataDirectoryPath
		out.AccessLog = prev.AccessLog
		out.FailOnMismatch = prev.FailOnMismatch
		out.Write = prev.Write
	}

	pinned := []model.Field{model.FieldNamespace, model.FieldDataProduct, model.FieldComponent, model.FieldVersion}
	if useFilenames {
		pinned = []model.Field{model.FieldFilename}
	}
	for _, entry := range doc.IO {
		if entry.Type != model.AccessRead {
			continue
		}
		where := entry.CallMetadata.Clone()
		use := model.Record{}
		for _, f := range pinned {
			v := entry.AccessMetadata.Get(f)
			if v != "" && v != where.Get(f) {
				use.Set(f, v)
			}
		}
		out.Read = append(out.Read, model.OverrideRule{Where: &where, Use: &use})
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("reproduce config: %w", err)
	}
	return out, nil
}
