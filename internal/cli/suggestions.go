package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/datapipe-project/datapipe/internal/catalog"
	"github.com/datapipe-project/datapipe/pkg/color"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// suggestDataProducts returns a hint naming catalog data products that
// share a prefix or substring with the one queried.
func suggestDataProducts(query model.Record, cat *catalog.Catalog) string {
	if cat.Len() == 0 {
		return "The catalog is empty."
	}
	want := strings.ToLower(query.DataProduct)
	seen := map[string]bool{}
	var matches []string
	for _, e := range cat.Entries() {
		name := e.DataProduct
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		lower := strings.ToLower(name)
		if want != "" && (strings.HasPrefix(lower, want) || strings.Contains(lower, want) || strings.Contains(want, lower)) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return fmt.Sprintf("Run %s to see available data products.", color.Info("datapipe catalog list"))
	}
	sort.Strings(matches)
	if len(matches) > 3 {
		matches = matches[:3]
	}
	for i, m := range matches {
		matches[i] = color.Success(m)
	}
	hint := "Did you mean"
	if len(matches) > 1 {
		hint += " one of"
	}
	return fmt.Sprintf("%s: %s?", hint, strings.Join(matches, ", "))
}
