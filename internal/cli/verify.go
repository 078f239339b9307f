package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datapipe-project/datapipe/internal/catalog"
	"github.com/datapipe-project/datapipe/internal/integrity"
	"github.com/datapipe-project/datapipe/internal/verify"
	"github.com/datapipe-project/datapipe/pkg/color"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/logging"
	"github.com/datapipe-project/datapipe/pkg/progress"
)

func newVerifyCmd() *cobra.Command {
	var (
		concurrency  int
		showProgress bool
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify catalog entries against their files",
		Long: `Verify every catalog entry that carries a verified_hash by hashing the
file it describes.

Exits non-zero when a file is missing or its content has changed.

Examples:
  datapipe verify
  datapipe verify --concurrency 8 --progress`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cat, err := catalog.Load(cfg.DataDirectory(), catalog.WithLogger(logging.Global()))
			if err != nil {
				return err
			}

			verifier := verify.NewVerifier(cat, integrity.NewHasher(logging.Global(), nil), concurrency)
			var term *progress.Terminal
			if showProgress && !jsonOutput {
				term = progress.NewTerminalWriter(cmd.ErrOrStderr(), "verify", cat.Len(), true)
				verifier.SetProgress(term.Callback())
			}

			results, err := verifier.VerifyAll(cmd.Context())
			if err != nil {
				return err
			}
			if term != nil {
				term.Done("")
			}

			if jsonOutput {
				if err := outputJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else {
				for _, res := range results {
					label := res.DataProduct
					if res.Version != "" {
						label += "@" + res.Version
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-40s %-10s %s\n", label, color.State(res.State), res.Filename)
					if res.Error != "" && res.State != "unverified" {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", color.Dim(res.Error))
					}
				}
			}

			if verify.Failed(results) {
				return errclass.ErrIntegrityMismatch.WithMessage("catalog verification failed")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "files hashed in parallel (default GOMAXPROCS)")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show a progress bar")
	return cmd
}
