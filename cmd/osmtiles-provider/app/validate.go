package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file without fetching anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(v)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Valid configuration\n")
			fmt.Fprintf(out, "  Output root: %s\n", cfg.Output.Root)
			fmt.Fprintf(out, "  Timeout: %s\n", cfg.GetTimeout())
			fmt.Fprintf(out, "  Masters: %d\n", len(cfg.Masters))
			fmt.Fprintf(out, "  Sources: %d\n", len(cfg.Sources))
			for _, src := range cfg.Sources {
				fmt.Fprintf(out, "    - %s (%s)\n", src.Name, src.GetType())
			}
			return nil
		},
	}
}
