package override

import (
	"path"

	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/logging"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// Resolver composes the configured rules with the session-forced fields
// for the read and write paths. The forced passes run after the user rules
// so configuration cannot bypass them.
type Resolver struct {
	ReadRules     []model.OverrideRule
	WriteRules    []model.OverrideRule
	DataDirectory string
	RunID         string
	Logger        *logging.Logger
}

// ReadQuery applies the read rules, then forces the data directory.
func (r *Resolver) ReadQuery(query model.Record) model.Record {
	out := Apply(query, r.ReadRules, Always)
	r.logApplied("read", query, out)
	return Force(out, model.Record{DataDirectory: r.DataDirectory}, Always)
}

// WriteQuery applies the write rules, forces the run id, keeps or
// synthesises the filename as <data_product>/<run_id>.<extension>, then
// forces the data directory.
func (r *Resolver) WriteQuery(query model.Record) (model.Record, error) {
	out := Apply(query, r.WriteRules, Always)
	r.logApplied("write", query, out)

	out = Force(out, model.Record{RunID: r.RunID}, Always)

	filename, err := writeFilename(out)
	if err != nil {
		return model.Record{}, err
	}
	out = Force(out, model.Record{Filename: filename}, IfEmpty)

	return Force(out, model.Record{DataDirectory: r.DataDirectory}, Always), nil
}

func writeFilename(rec model.Record) (string, error) {
	if rec.Filename != "" {
		return rec.Filename, nil
	}
	if rec.DataProduct == "" {
		return "", errclass.RequiredField(string(model.FieldDataProduct), "synthesize write filename")
	}
	if rec.Extension == "" {
		return "", errclass.RequiredField(string(model.FieldExtension), "synthesize write filename")
	}
	if rec.RunID == "" {
		return "", errclass.RequiredField(string(model.FieldRunID), "synthesize write filename")
	}
	return path.Join(rec.DataProduct, rec.RunID+"."+rec.Extension), nil
}

var loggedFields = append(append([]model.Field(nil), policyFields...), model.FieldNamespace, model.FieldDescription)

func (r *Resolver) logApplied(kind string, before, after model.Record) {
	if r.Logger == nil {
		return
	}
	changed := map[string]any{}
	for _, f := range loggedFields {
		if b, a := before.Get(f), after.Get(f); b != a {
			changed[string(f)] = a
		}
	}
	if len(changed) == 0 {
		return
	}
	r.Logger.Debug("applied "+kind+" overrides", changed)
}
