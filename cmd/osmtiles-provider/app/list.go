package app

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/osmtiles-provider/internal/generator"
)

func newListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured sources and the files they produce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, baseDir, err := loadConfig(v)
			if err != nil {
				return err
			}

			gen, err := generator.New(cmd.Context(),
				generator.WithConfig(cfg),
				generator.WithBaseDir(baseDir),
			)
			if err != nil {
				return fmt.Errorf("failed to build generator: %w", err)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Name", "Type", "Config", "Sidecar")
			for _, entry := range gen.Registry().Entries() {
				sidecar := entry.SidecarFile()
				if sidecar == "" {
					sidecar = "-"
				}
				if err := table.Append([]string{entry.Name, entry.Type, entry.ConfigFile(), sidecar}); err != nil {
					return fmt.Errorf("failed to add table row: %w", err)
				}
			}
			return table.Render()
		},
	}
}
