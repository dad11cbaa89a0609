package commands

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fmcg-sim/internal/pipeline"
)

var (
	outDir string
	seed   int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate the full dataset",
	Long: `Runs the whole pipeline: catalog, historical simulation, financial
derivation, risk detectors, the 2026 projection, and the partitioned
parquet output with its manifest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("out") {
			cfg.OutDir = outDir
		}
		if cmd.Flags().Changed("seed") {
			cfg.GlobalSeed = seed
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		summary, err := pipeline.Run(ctx, cfg)
		if summary != nil && err != nil {
			log.Warn().
				Str("out", summary.OutDir).
				Int("facts", summary.Facts).
				Msg("Run finished without a projection")
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (overrides configuration)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "global seed (overrides configuration)")
	rootCmd.AddCommand(runCmd)
}
