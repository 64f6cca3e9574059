package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/osmtiles-provider/internal/config"
	"github.com/stacklok/osmtiles-provider/internal/generator"
	"github.com/stacklok/osmtiles-provider/internal/telemetry"
	"github.com/stacklok/osmtiles-provider/internal/versions"
)

const telemetryShutdownTimeout = 10 * time.Second

// ErrSourcesFailed is returned by generate when the run completed but at
// least one source could not be regenerated
var ErrSourcesFailed = errors.New("one or more sources failed")

func newGenerateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate provider configuration and master files",
		Long: `Regenerate fetches metadata for every configured source (or only the one named
with --single), writes each source's configuration under the output tree, and
rewrites every master configuration so it includes all known sources.

Sources that fail keep their previous files; the command exits non-zero after
the masters have been written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, v)
		},
	}

	// Not bound through viper: a selective run is only ever asked for on the command line
	cmd.Flags().String(flagSingle, "", "Regenerate only the named source")

	if err := cmd.RegisterFlagCompletionFunc(flagSingle, func(
		_ *cobra.Command, _ []string, _ string,
	) ([]string, cobra.ShellCompDirective) {
		cfg, _, err := loadConfig(v)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return cfg.SourceNames(), cobra.ShellCompDirectiveNoFileComp
	}); err != nil {
		panic(fmt.Sprintf("failed to register completion for --%s: %v", flagSingle, err))
	}

	return cmd
}

func runGenerate(cmd *cobra.Command, v *viper.Viper) error {
	ctx := cmd.Context()

	cfg, baseDir, err := loadConfig(v)
	if err != nil {
		return err
	}

	tel, err := newTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Telemetry shutdown failed", "error", err)
		}
	}()

	gen, err := generator.New(ctx,
		generator.WithConfig(cfg),
		generator.WithBaseDir(baseDir),
		generator.WithTracer(tel.Tracer(telemetry.TracerName)),
		generator.WithMeterProvider(tel.MeterProvider()),
	)
	if err != nil {
		return fmt.Errorf("failed to build generator: %w", err)
	}

	selection, err := cmd.Flags().GetString(flagSingle)
	if err != nil {
		return err
	}

	report, err := gen.Generate(ctx, selection)
	if err != nil {
		return err
	}

	if report.Failed() {
		names := make([]string, 0, len(report.Run.Failures))
		for _, f := range report.Run.Failures {
			names = append(names, f.Source)
		}
		return fmt.Errorf("%w: %s", ErrSourcesFailed, strings.Join(names, ", "))
	}
	return nil
}

// newTelemetry initializes telemetry, defaulting the service version to the build version
func newTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Telemetry, error) {
	telCfg := cfg.Telemetry
	if telCfg != nil && telCfg.ServiceVersion == "" {
		withVersion := *telCfg
		withVersion.ServiceVersion = versions.GetVersionInfo().Version
		telCfg = &withVersion
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(telCfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return tel, nil
}
