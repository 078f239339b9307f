package cli

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/datapipe-project/datapipe/pkg/color"
	"github.com/datapipe-project/datapipe/pkg/config"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/model"
)

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger <command>",
		Short: "Inspect access logs",
		Long: `Inspect the access log a session writes when it closes.

Available commands:
  show <file>                  - Summarise an access log
  reproduce <file> <config>    - Write a config that replays the logged reads`,
	}
	cmd.AddCommand(newLedgerShowCmd(), newLedgerReproduceCmd())
	return cmd
}

func readAccessLog(path string) (*model.AccessLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errclass.IO("read "+path, err)
	}
	var doc model.AccessLog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errclass.IO("parse "+path, err)
	}
	return &doc, nil
}

func newLedgerShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Summarise an access log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readAccessLog(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				if doc.IO == nil {
					doc.IO = []model.AccessEntry{}
				}
				return outputJSON(cmd.OutOrStdout(), doc)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, color.Header("Run "+doc.RunID))
			fmt.Fprintf(w, "  data directory: %s\n", doc.DataDirectory)
			fmt.Fprintf(w, "  opened:         %s\n", doc.OpenTimestamp.Format(time.RFC3339))
			fmt.Fprintf(w, "  closed:         %s\n", doc.CloseTimestamp.Format(time.RFC3339))
			keys := make([]string, 0, len(doc.Metadata))
			for k := range doc.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "  %s: %s\n", k, doc.Metadata[k])
			}

			var reads, writes int
			for _, e := range doc.IO {
				switch e.Type {
				case model.AccessRead:
					reads++
				case model.AccessWrite:
					writes++
				}
				fmt.Fprintf(w, "%-5s %s  %s\n", e.Type, color.Hash(e.AccessMetadata.CalculatedHash), e.AccessMetadata.Filename)
			}
			fmt.Fprintf(w, "%d reads, %d writes\n", reads, writes)
			return nil
		},
	}
}

func newLedgerReproduceCmd() *cobra.Command {
	var useFilenames bool
	cmd := &cobra.Command{
		Use:   "reproduce <access-log> <config-out>",
		Short: "Write a config that replays the reads of a run",
		Long: `Build a configuration whose read rules pin every read recorded in an
access log to the catalog entry it resolved to, so a later run reads exactly
the same data.

Examples:
  datapipe ledger reproduce access-abc123.yaml replay.yaml
  datapipe ledger reproduce access-abc123.yaml replay.yaml --use-filenames`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Reproduce(args[0], useFilenames)
			if err != nil {
				return err
			}
			if err := config.Save(args[1], cfg); err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]any{"path": args[1], "read_rules": len(cfg.Read)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s with %d read rules\n", args[1], len(cfg.Read))
			return nil
		},
	}
	cmd.Flags().BoolVar(&useFilenames, "use-filenames", false, "pin reads by filename instead of catalog coordinates")
	return cmd
}
