package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/datapipe-project/datapipe/pkg/config"
	"github.com/datapipe-project/datapipe/pkg/jsonutil"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// loadConfig loads the file named by --config or DATAPIPE_CONFIG, or the
// defaults when neither is set.
func loadConfig() (*config.Config, error) {
	return config.Load(settings.GetString("config"))
}

// outputJSON writes v as indented canonical JSON.
func outputJSON(w io.Writer, v any) error {
	data, err := jsonutil.CanonicalIndent(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// queryFlags are the metadata fields a command accepts as a query.
type queryFlags struct {
	record model.Record
}

func (q *queryFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&q.record.DataProduct, "data-product", "", "data product")
	fs.StringVar(&q.record.Component, "component", "", "component")
	fs.StringVar(&q.record.Version, "version", "", "version")
	fs.StringVar(&q.record.Namespace, "namespace", "", "namespace")
	fs.StringVar(&q.record.Extension, "extension", "", "file extension")
	fs.StringVar(&q.record.Filename, "filename", "", "filename relative to the data directory")
	fs.StringVar(&q.record.Source, "source", "", "source")
}

func (q *queryFlags) query() model.Record {
	return q.record.Clone()
}

// describeRecord renders the non-empty fields of r as key=value pairs.
func describeRecord(r model.Record) string {
	var parts []string
	for _, f := range []model.Field{
		model.FieldNamespace, model.FieldDataProduct, model.FieldComponent,
		model.FieldVersion, model.FieldFilename, model.FieldRunID,
	} {
		if v := r.Get(f); v != "" {
			parts = append(parts, string(f)+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

func printField(cmd *cobra.Command, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %s\n", name+":", value)
}
