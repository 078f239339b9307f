// Package override rewrites query records with configured where/use rules.
package override

import (
	"github.com/datapipe-project/datapipe/internal/catalog"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// Policy decides whether a rule may replace a field the record already has.
type Policy int

const (
	// Always replaces a field whenever the rule supplies a value.
	Always Policy = iota
	// IfEmpty replaces a field only when the record has no value for it.
	IfEmpty
)

// policyFields are subject to the Policy. Namespace and Description are
// not: a rule that supplies them always wins.
var policyFields = []model.Field{
	model.FieldFilename,
	model.FieldComponent,
	model.FieldDataProduct,
	model.FieldVersion,
	model.FieldExtension,
	model.FieldVerifiedHash,
	model.FieldCalculatedHash,
	model.FieldRunID,
	model.FieldSource,
	model.FieldDataDirectory,
}

// Apply folds the use records of every rule whose where pattern matches base
// onto a copy of base, in rule order, so later rules win. Where patterns are
// tested against the original base, not the partially rewritten record.
func Apply(base model.Record, rules []model.OverrideRule, policy Policy) model.Record {
	out := base.Clone()
	for _, rule := range rules {
		if rule.Use == nil {
			continue
		}
		if rule.Where != nil && !catalog.IsSupersetOf(base, *rule.Where) {
			continue
		}
		out = applyOne(out, rule.Use, policy)
	}
	return out
}

// Force applies a single unconditional rule carrying use.
func Force(base model.Record, use model.Record, policy Policy) model.Record {
	return Apply(base, []model.OverrideRule{{Use: &use}}, policy)
}

func applyOne(base model.Record, use *model.Record, policy Policy) model.Record {
	out := base.Clone()
	for _, f := range policyFields {
		v := use.Get(f)
		if v == "" {
			continue
		}
		if policy == IfEmpty && base.Get(f) != "" {
			continue
		}
		out.Set(f, v)
	}
	if len(use.Issues) > 0 && (policy == Always || len(base.Issues) == 0) {
		out.Issues = append([]model.Issue(nil), use.Issues...)
	}
	if use.Namespace != "" {
		out.Namespace = use.Namespace
	}
	if use.Description != "" {
		out.Description = use.Description
	}
	return out
}
