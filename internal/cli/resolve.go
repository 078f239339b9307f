package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datapipe-project/datapipe/pkg/config"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/fileapi"
	"github.com/datapipe-project/datapipe/pkg/model"
)

type resolveOutput struct {
	Path     string       `json:"path"`
	RunID    string       `json:"run_id"`
	Metadata model.Record `json:"metadata"`
}

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <read|write>",
		Short: "Resolve a metadata query to a file path",
		Long: `Resolve a metadata query the way a pipeline session would, without
touching the file or writing an access log.

Examples:
  datapipe resolve read --data-product human/estimate
  datapipe resolve write --data-product result --extension csv`,
	}
	cmd.AddCommand(newResolveReadCmd(), newResolveWriteCmd())
	return cmd
}

func newResolveReadCmd() *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Resolve a read query against the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := openDryRun()
			if err != nil {
				return err
			}
			defer api.Close()

			path, meta, err := api.ResolveForRead(q.query())
			if err != nil {
				if errors.Is(err, errclass.ErrRequiredFieldMissing) {
					return fmt.Errorf("%w\n%s", err, suggestDataProducts(q.query(), api.Catalog()))
				}
				return err
			}
			return printResolved(cmd, api, path, meta)
		},
	}
	q.register(cmd.Flags())
	return cmd
}

func newResolveWriteCmd() *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Resolve where a write query would land",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := openDryRun()
			if err != nil {
				return err
			}
			defer api.Close()

			path, meta, err := api.ResolveForWrite(q.query())
			if err != nil {
				return err
			}
			return printResolved(cmd, api, path, meta)
		},
	}
	q.register(cmd.Flags())
	return cmd
}

// openDryRun starts a session that never writes an access log.
func openDryRun() (*fileapi.API, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.AccessLog = config.AccessLog{Disabled: true}
	return fileapi.New(cfg, fileapi.Options{})
}

func printResolved(cmd *cobra.Command, api *fileapi.API, path string, meta model.Record) error {
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), resolveOutput{Path: path, RunID: api.RunID(), Metadata: meta})
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	printField(cmd, "data_product", meta.DataProduct)
	printField(cmd, "version", meta.Version)
	printField(cmd, "component", meta.Component)
	printField(cmd, "namespace", meta.Namespace)
	printField(cmd, "run_id", meta.RunID)
	printField(cmd, "verified_hash", meta.VerifiedHash.String())
	printField(cmd, "calculated_hash", meta.CalculatedHash.String())
	return nil
}
