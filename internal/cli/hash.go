package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/datapipe-project/datapipe/internal/integrity"
	"github.com/datapipe-project/datapipe/pkg/config"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/model"
)

type hashOutput struct {
	Path  string          `json:"path"`
	Hash  model.HashValue `json:"hash"`
	Bytes int64           `json:"bytes"`
}

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the content hash of files",
		Long: `Print the SHA-1 content hash of each file, in the form recorded as
verified_hash and calculated_hash.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []hashOutput
			for _, path := range args {
				sum, n, err := integrity.FileHash(path)
				if err != nil {
					return errclass.IO("hash "+path, err)
				}
				out = append(out, hashOutput{Path: path, Hash: sum, Bytes: n})
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), out)
			}
			for _, o := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", o.Hash, o.Path)
			}
			return nil
		},
	}
}

func newRunIDCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "runid <config>",
		Short: "Print the run id a session would use",
		Long: `Print the run id a session opened with this configuration would use.
A configured run_id is printed as is; otherwise the id is derived from the
configuration bytes and the open time (--at, default now).

Examples:
  datapipe runid config.yaml
  datapipe runid config.yaml --at 2024-03-01T12:00:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			opened := time.Now()
			if at != "" {
				opened, err = time.Parse(time.RFC3339Nano, at)
				if err != nil {
					return errclass.ErrUnsupportedPattern.WithMessagef("--at: %v", err)
				}
			}
			runID := cfg.ResolveRunID(opened)
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]string{"run_id": runID})
			}
			fmt.Fprintln(cmd.OutOrStdout(), runID)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "session open time (RFC 3339)")
	return cmd
}
