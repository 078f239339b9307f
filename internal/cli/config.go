package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type configOutput struct {
	Path               string `json:"path,omitempty"`
	RunID              string `json:"run_id,omitempty"`
	DataDirectory      string `json:"data_directory"`
	AccessLog          string `json:"access_log,omitempty"`
	AccessLogDisabled  bool   `json:"access_log_disabled"`
	FailOnHashMismatch bool   `json:"fail_on_hash_mismatch"`
	ReadRules          int    `json:"read_rules"`
	WriteRules         int    `json:"write_rules"`
	LogLevel           string `json:"log_level,omitempty"`
	MetricsTextfile    string `json:"metrics_textfile,omitempty"`
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config <command>",
		Short: "Inspect the session configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration named by --config (or DATAPIPE_CONFIG) with
relative paths resolved and defaults applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := configOutput{
				Path:               settings.GetString("config"),
				RunID:              cfg.RunID,
				DataDirectory:      cfg.DataDirectory(),
				AccessLogDisabled:  cfg.AccessLogDisabled(),
				FailOnHashMismatch: cfg.FailOnHashMismatch(),
				ReadRules:          len(cfg.Read),
				WriteRules:         len(cfg.Write),
				LogLevel:           cfg.LogLevel,
				MetricsTextfile:    cfg.MetricsPath(),
			}
			if !out.AccessLogDisabled {
				out.AccessLog = cfg.AccessLogPath("{run_id}")
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			if out.Path == "" {
				fmt.Fprintln(w, "# defaults (no config file)")
			} else {
				fmt.Fprintf(w, "# %s\n", out.Path)
			}
			runID := out.RunID
			if runID == "" {
				runID = "(derived per session)"
			}
			fmt.Fprintf(w, "run_id: %s\n", runID)
			fmt.Fprintf(w, "data_directory: %s\n", out.DataDirectory)
			if out.AccessLogDisabled {
				fmt.Fprintln(w, "access_log: disabled")
			} else {
				fmt.Fprintf(w, "access_log: %s\n", out.AccessLog)
			}
			fmt.Fprintf(w, "fail_on_hash_mismatch: %v\n", out.FailOnHashMismatch)
			fmt.Fprintf(w, "read rules: %d\n", out.ReadRules)
			fmt.Fprintf(w, "write rules: %d\n", out.WriteRules)
			if out.MetricsTextfile != "" {
				fmt.Fprintf(w, "metrics_textfile: %s\n", out.MetricsTextfile)
			}
			return nil
		},
	})
	return cmd
}
