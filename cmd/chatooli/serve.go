package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chatooli/chatooli/pkg/config"
	"github.com/chatooli/chatooli/pkg/logger"
	"github.com/chatooli/chatooli/pkg/server"
	"github.com/chatooli/chatooli/pkg/telemetry"
	"github.com/chatooli/chatooli/pkg/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Chatooli server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}

		if cfg.Tracing.Enabled {
			shutdown, err := telemetry.InitTracer(ctx, telemetry.Config{
				Enabled:        true,
				ServiceName:    "chatooli",
				ServiceVersion: version.Version,
				SamplerType:    cfg.Tracing.SamplerType,
				SamplerRatio:   cfg.Tracing.SamplerRatio,
			})
			if err != nil {
				logger.G(ctx).WithError(err).Warn("tracing unavailable")
			} else {
				defer shutdown(context.Background())
			}
		}

		srv, err := server.NewServer(ctx, cfg)
		if err != nil {
			return err
		}
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().String("host", "127.0.0.1", "Host to bind")
	serveCmd.Flags().Int("port", 8000, "Port to listen on")
	serveCmd.Flags().String("workspace", "workspace", "Workspace directory the agent works in")
	serveCmd.Flags().String("skills-dir", "skills", "Directory containing skill packs")
	serveCmd.Flags().Bool("tracing", false, "Enable OpenTelemetry tracing")
	viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("workspace", serveCmd.Flags().Lookup("workspace"))
	viper.BindPFlag("skills_dir", serveCmd.Flags().Lookup("skills-dir"))
	viper.BindPFlag("tracing.enabled", serveCmd.Flags().Lookup("tracing"))
}
