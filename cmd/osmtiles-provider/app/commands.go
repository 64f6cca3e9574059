// Package app provides the command line interface of osmtiles-provider.
package app

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stacklok/osmtiles-provider/internal/config"
	"github.com/stacklok/osmtiles-provider/internal/versions"
)

const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagSingle   = "single"
	flagFormat   = "format"
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:               "osmtiles-provider",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Generate tile proxy configuration from live provider metadata",
		Long: `osmtiles-provider pulls live metadata (timestamps, signed credentials, capability
documents) from external map tile providers, renders one nginx configuration
snippet per provider, and composes them into master configuration files.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(v.GetString(flagLogLevel))
			if err != nil {
				return err
			}
			cmd.SetContext(logr.NewContext(cmd.Context(), logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String(flagConfig, "", "Path to configuration file (YAML format)")
	rootCmd.PersistentFlags().String(flagLogLevel, "info", "Log level (debug, info, warn, error)")
	mustBind(v, flagConfig, rootCmd.PersistentFlags().Lookup(flagConfig))
	mustBind(v, flagLogLevel, rootCmd.PersistentFlags().Lookup(flagLogLevel))

	rootCmd.AddCommand(newGenerateCmd(v))
	rootCmd.AddCommand(newListCmd(v))
	rootCmd.AddCommand(newValidateCmd(v))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig loads the configuration named by --config and returns it with
// the directory relative paths in it are resolved against
func loadConfig(v *viper.Viper) (*config.Config, string, error) {
	path := v.GetString(flagConfig)
	if path == "" {
		return nil, "", fmt.Errorf("--%s (or %s_CONFIG) is required", flagConfig, config.EnvPrefix)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to load configuration: %w", err)
	}

	baseDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve configuration directory: %w", err)
	}
	return cfg, baseDir, nil
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString(flagFormat)
			if err != nil {
				return err
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "osmtiles-provider %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().String(flagFormat, "", "Output format (json)")
	return cmd
}

// mustBind binds a flag to a viper key; failure means a programming error
func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q: %v", key, err))
	}
}
