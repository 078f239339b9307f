package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/datapipe-project/datapipe/internal/catalog"
	"github.com/datapipe-project/datapipe/internal/integrity"
	"github.com/datapipe-project/datapipe/pkg/color"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/logging"
	"github.com/datapipe-project/datapipe/pkg/model"
	"github.com/datapipe-project/datapipe/pkg/pathutil"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog <command>",
		Short: "Inspect and maintain the data directory catalog",
		Long: `Inspect and maintain <data_directory>/metadata.yaml.

Available commands:
  list   - List entries, optionally filtered by a query
  add    - Hash a file and record it as a catalog entry`,
	}
	cmd.AddCommand(newCatalogListCmd(), newCatalogAddCmd())
	return cmd
}

func openCatalog() (*catalog.Catalog, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return catalog.Load(cfg.DataDirectory(), catalog.WithLogger(logging.Global()))
}

func newCatalogListCmd() *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Long: `List catalog entries. Query flags keep only entries that match every
given field.

Examples:
  datapipe catalog list
  datapipe catalog list --data-product human/estimate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := openCatalog()
			if err != nil {
				return err
			}
			entries := cat.Matches(q.query())

			if jsonOutput {
				if entries == nil {
					entries = []model.Record{}
				}
				return outputJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No catalog entries.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", color.Hash(e.VerifiedHash), describeRecord(e))
			}
			return nil
		},
	}
	q.register(cmd.Flags())
	return cmd
}

func newCatalogAddCmd() *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Record a file in the catalog with its content hash",
		Long: `Hash a file inside the data directory and record it in the catalog.
An existing entry for the same data product is replaced.

Examples:
  datapipe catalog add data/human/estimate.csv --data-product human/estimate --version 1.0.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := openCatalog()
			if err != nil {
				return err
			}
			if q.record.DataProduct == "" {
				return errclass.RequiredField(string(model.FieldDataProduct), "catalog add")
			}

			abs, err := filepath.Abs(args[0])
			if err != nil {
				return errclass.IO("resolve "+args[0], err)
			}
			if err := pathutil.ValidatePathSafety(cat.Dir(), abs); err != nil {
				return err
			}
			root, err := filepath.Abs(cat.Dir())
			if err != nil {
				return errclass.IO("resolve "+cat.Dir(), err)
			}
			rel, err := filepath.Rel(root, abs)
			if err != nil {
				return errclass.IO("relativise "+args[0], err)
			}

			entry := q.query()
			entry.Filename = filepath.ToSlash(rel)
			if entry.Extension == "" {
				if ext := filepath.Ext(rel); ext != "" {
					entry.Extension = ext[1:]
				}
			}
			sum, _, err := integrity.FileHash(abs)
			if err != nil {
				return errclass.IO("hash "+args[0], err)
			}
			entry.VerifiedHash = sum

			cat.Add(entry)
			if err := cat.Save(); err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s  %s\n", color.Hash(sum), describeRecord(entry))
			return nil
		},
	}
	q.register(cmd.Flags())
	return cmd
}
