// Package cli implements the datapipe command line.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/datapipe-project/datapipe/pkg/color"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/logging"
)

var (
	jsonOutput bool
	noColor    bool
	settings   *viper.Viper
)

// NewRootCmd builds the datapipe command tree. Each call returns a fresh
// tree with flags reset to their defaults.
func NewRootCmd() *cobra.Command {
	settings = viper.New()
	settings.SetEnvPrefix("DATAPIPE")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	settings.SetDefault("log-level", "warn")

	cmd := &cobra.Command{
		Use:   "datapipe",
		Short: "datapipe - metadata resolution for versioned data products",
		Long: `datapipe resolves partial metadata queries to files in a data directory,
verifies their content hashes against the catalog, and records every access
in a per-run access log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.Disable()
			}
			color.Init(noColor)
			level, err := logging.ParseLevel(settings.GetString("log-level"))
			if err != nil {
				return err
			}
			logger := logging.NewLogger(level)
			logger.SetOutput(cmd.ErrOrStderr())
			logging.SetGlobal(logger)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVar(&jsonOutput, "json", false, "output in JSON format")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.StringP("config", "c", "", "configuration file (env DATAPIPE_CONFIG)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error (env DATAPIPE_LOG_LEVEL)")
	_ = settings.BindPFlag("config", flags.Lookup("config"))
	_ = settings.BindPFlag("log-level", flags.Lookup("log-level"))

	cmd.AddCommand(
		newResolveCmd(),
		newVerifyCmd(),
		newCatalogCmd(),
		newHashCmd(),
		newRunIDCmd(),
		newLedgerCmd(),
		newConfigCmd(),
		newDoctorCmd(),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmtErr("%v", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps error classes to process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, errclass.ErrIntegrityMismatch):
		return 3
	case errors.Is(err, errclass.ErrRequiredFieldMissing):
		return 4
	}
	return 1
}

func fmtErr(format string, args ...any) {
	prefix := "datapipe: "
	if color.Enabled() {
		prefix = color.Error("datapipe:") + " "
	}
	fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
}
