package catalog_test

import (
	"testing"

	"github.com/datapipe-project/datapipe/internal/catalog"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// Run with: go test -fuzz=FuzzIsSupersetOf -fuzztime=30s ./internal/catalog/
func FuzzIsSupersetOf(f *testing.F) {
	f.Add("human/estimate", "1.0.0", "human/estimate.csv", "issue", 1)
	f.Add("", "", "", "", 0)
	f.Add("a", "1", "a.txt", "", 3)

	f.Fuzz(func(t *testing.T, dataProduct, ver, filename, issue string, severity int) {
		rec := model.Record{DataProduct: dataProduct, Version: ver, Filename: filename}
		if issue != "" {
			rec.Issues = []model.Issue{{Description: issue, Severity: severity}}
		}

		if !catalog.IsSupersetOf(rec, rec) {
			t.Errorf("record is not a superset of itself: %+v", rec)
		}
		if !catalog.IsSupersetOf(rec, model.Record{}) {
			t.Errorf("empty query does not match %+v", rec)
		}
		narrowed := rec.Clone()
		narrowed.DataProduct = dataProduct + "x"
		if catalog.IsSupersetOf(rec, narrowed) {
			t.Errorf("query with a different data product matched %+v", rec)
		}
	})
}
