package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration without generating anything",
	Long: `Loads the configuration (file, .env, environment overrides), applies
defaults, and runs full validation. Exit code 2 reports the first
violation; on success the resolved configuration and its digest are
printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load in PersistentPreRunE already validated; reaching this
		// point means the configuration is usable.
		resolved, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render configuration: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\ndigest: %s\n", resolved, cfg.Digest())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
