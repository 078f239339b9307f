package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datapipe-project/datapipe/internal/doctor"
	"github.com/datapipe-project/datapipe/pkg/color"
	"github.com/datapipe-project/datapipe/pkg/errclass"
)

func newDoctorCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration, data directory and catalog",
		Long: `Diagnose the setup named by --config: data directory, catalog
consistency, access log location and temp files left by interrupted writes.

With --strict every hash-carrying catalog entry is re-hashed as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			result, err := doctor.NewDoctor(cfg).Check(cmd.Context(), strict)
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := outputJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				w := cmd.OutOrStdout()
				for _, f := range result.Findings {
					sev := f.Severity
					switch sev {
					case "critical", "error":
						sev = color.Error(sev)
					case "warning":
						sev = color.Warning(sev)
					default:
						sev = color.Dim(sev)
					}
					fmt.Fprintf(w, "[%s] %s: %s\n", sev, f.Category, f.Description)
				}
				if result.Healthy {
					fmt.Fprintln(w, color.Success("healthy"))
				}
			}
			if !result.Healthy {
				return errclass.ErrUnsupportedPattern.WithMessage("setup is unhealthy")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "re-hash catalog entries")
	return cmd
}
