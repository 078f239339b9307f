package catalog

import (
	"sort"

	"github.com/datapipe-project/datapipe/pkg/jsonutil"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// matchKeys lists the accessors compared by IsSupersetOf, in order.
// DataDirectory is deliberately absent.
var matchKeys = []func(*model.Record) string{
	func(r *model.Record) string { return r.Filename },
	func(r *model.Record) string { return r.Component },
	func(r *model.Record) string { return r.DataProduct },
	func(r *model.Record) string { return r.Version },
	func(r *model.Record) string { return r.Extension },
	func(r *model.Record) string { return string(r.VerifiedHash) },
	func(r *model.Record) string { return string(r.CalculatedHash) },
	func(r *model.Record) string { return r.RunID },
	func(r *model.Record) string { return r.Source },
	func(r *model.Record) string { return CanonicalIssues(r.Issues) },
	func(r *model.Record) string { return r.Namespace },
	func(r *model.Record) string { return r.Description },
}

// IsSupersetOf reports whether candidate agrees with query on every field
// query sets. An empty string counts as unset, so it never constrains.
func IsSupersetOf(candidate, query model.Record) bool {
	for _, key := range matchKeys {
		want := key(&query)
		if want == "" {
			continue
		}
		if key(&candidate) != want {
			return false
		}
	}
	return true
}

// CanonicalIssues renders issues as an order-independent string, sorted by
// description then severity. No issues render as "".
func CanonicalIssues(issues []model.Issue) string {
	if len(issues) == 0 {
		return ""
	}
	sorted := append([]model.Issue(nil), issues...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Description != sorted[j].Description {
			return sorted[i].Description < sorted[j].Description
		}
		return sorted[i].Severity < sorted[j].Severity
	})
	out, err := jsonutil.CanonicalMarshal(sorted)
	if err != nil {
		// Issues hold only strings and ints.
		panic("canonical issues: " + err.Error())
	}
	return string(out)
}
