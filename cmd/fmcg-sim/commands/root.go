package commands

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fmcg-sim/internal/config"
	"fmcg-sim/internal/finance"
	"fmcg-sim/internal/logging"
	"fmcg-sim/internal/projection"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfgPath string
	cfg     *config.RunConfig
)

var rootCmd = &cobra.Command{
	Use:   "fmcg-sim",
	Short: "fmcg-sim generates synthetic FMCG distribution datasets",
	Long: `A Monte Carlo generator for FMCG route-to-market data: multi-year
commercial transactions with full financial derivation, 2026 margin
projections, and churn/stockout risk signals, written as partitioned
parquet tables for dashboard consumption.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("fmcg-sim starting")
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps an error from Execute to the process exit code:
// 2 for configuration errors, 3 for data integrity violations, 4 for
// a projection without enough history, 1 for everything else.
func ExitCode(err error) int {
	var cfgErr *config.ConfigurationError
	var dataErr *finance.DataIntegrityError
	var projErr *projection.InsufficientDataError
	switch {
	case errors.As(err, &cfgErr):
		return 2
	case errors.As(err, &dataErr):
		return 3
	case errors.As(err, &projErr):
		return 4
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to the run configuration file")
	rootCmd.Version = Version
}
