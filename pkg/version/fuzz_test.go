package version_test

import (
	"testing"

	"github.com/datapipe-project/datapipe/pkg/version"
)

// Run with: go test -fuzz=FuzzCompare -fuzztime=30s ./pkg/version/
func FuzzCompare(f *testing.F) {
	f.Add("1.0", "1")
	f.Add("1.2rc1", "1.2")
	f.Add("1-alpha", "1")
	f.Add("", "0")
	f.Add("0009", "10")
	f.Add("a.b.c", "1.2.3")
	f.Add("1__2", "1.2")

	f.Fuzz(func(t *testing.T, a, b string) {
		va, vb := version.Parse(a), version.Parse(b)
		if a == "" && va.String() != "0" {
			t.Errorf("empty version prints as %q, want \"0\"", va.String())
		}
		if a != "" && va.String() != a {
			t.Errorf("String() does not preserve %q", a)
		}
		ab, ba := version.Compare(va, vb), version.Compare(vb, va)
		if ab != -ba {
			t.Errorf("Compare(%q, %q)=%d but Compare(%q, %q)=%d", a, b, ab, b, a, ba)
		}
		if version.Compare(va, va) != 0 {
			t.Errorf("Compare(%q, %q) != 0", a, a)
		}
		if va.Less(vb) != (ab < 0) {
			t.Errorf("Less disagrees with Compare for %q, %q", a, b)
		}
	})
}
