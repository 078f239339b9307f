package codec_test

import (
	"testing"

	"github.com/datapipe-project/datapipe/pkg/codec"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// Run with: go test -fuzz=FuzzDecode -fuzztime=30s ./pkg/codec/
func FuzzDecode(f *testing.F) {
	f.Add([]byte("- data_product: a\n  filename: a.txt\n"), true)
	f.Add([]byte("[[read]]\nwhere = { data_product = \"a\" }\n"), false)
	f.Add([]byte("{"), true)
	f.Add([]byte(""), false)

	f.Fuzz(func(t *testing.T, data []byte, yaml bool) {
		format := codec.FormatTOML
		if yaml {
			format = codec.FormatYAML
		}
		var records []model.Record
		_ = codec.Decode(format, data, &records)
		var rules struct {
			Read []model.OverrideRule `yaml:"read"`
		}
		_ = codec.Decode(format, data, &rules)
	})
}
