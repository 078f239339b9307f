// Package version orders the opaque dotted version strings carried by
// catalog records.
//
// A version is split into items on '.', '-' and '_' separators and on every
// transition between ASCII digits and anything else, so "1.2rc1" reads as 1, 2, "rc", 1.
// Items compare pairwise from the left:
//   - numeric items compare by value, whatever their digit count ("9" < "10")
//   - non-numeric items compare lexically
//   - a non-numeric item sorts below any numeric item
//
// When one version runs out of items it is padded with numeric zeros, so
// "1" == "1.0", "0" < "0.1" and "1-alpha" < "1".
package version

import "strings"

// Version is a parsed, comparable version. The zero value is the lowest
// ordinary version and compares equal to "0".
type Version struct {
	raw   string
	items []item
}

type item struct {
	numeric bool
	value   string // digits without leading zeros for numeric items
}

var zeroItem = item{numeric: true, value: "0"}

// Parse splits s into comparable items. Parse never fails: any string is a
// valid version.
func Parse(s string) Version {
	v := Version{raw: s}

	var cur strings.Builder
	curDigits := false
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		v.items = append(v.items, newItem(cur.String(), curDigits))
		cur.Reset()
	}

	for _, r := range s {
		if r == '.' || r == '-' || r == '_' {
			flush()
			continue
		}
		isDigit := r >= '0' && r <= '9'
		if cur.Len() > 0 && isDigit != curDigits {
			flush()
		}
		curDigits = isDigit
		cur.WriteRune(r)
	}
	flush()

	return v
}

func newItem(s string, digits bool) item {
	if !digits {
		return item{value: s}
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return item{numeric: true, value: trimmed}
}

// String returns the version as it was written. The zero Version prints as "0".
func (v Version) String() string {
	if v.raw == "" {
		return "0"
	}
	return v.raw
}

// Compare returns -1, 0 or +1 when a sorts before, equal to or after b.
func Compare(a, b Version) int {
	n := len(a.items)
	if len(b.items) > n {
		n = len(b.items)
	}
	for i := 0; i < n; i++ {
		if c := compareItems(a.at(i), b.at(i)); c != 0 {
			return c
		}
	}
	return 0
}

// Less reports whether v sorts strictly before other.
func (v Version) Less(other Version) bool {
	return Compare(v, other) < 0
}

func (v Version) at(i int) item {
	if i < len(v.items) {
		return v.items[i]
	}
	return zeroItem
}

func compareItems(a, b item) int {
	switch {
	case a.numeric && b.numeric:
		if len(a.value) != len(b.value) {
			if len(a.value) < len(b.value) {
				return -1
			}
			return 1
		}
		return strings.Compare(a.value, b.value)
	case a.numeric:
		return 1
	case b.numeric:
		return -1
	default:
		return strings.Compare(a.value, b.value)
	}
}
