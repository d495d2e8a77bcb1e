package serve

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"whisper-asr-webservice/cmd/asr/cmd/env"
	"whisper-asr-webservice/internal/app"
	"whisper-asr-webservice/internal/config"
)

var (
	host string
	port string
)

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ASR webservice",
	Long: `Starts the HTTP API on HOST:PORT. The model selected by ASR_ENGINE, ASR_MODEL
and ASR_DEVICE serves requests and is loaded on the first one.`,
	Example: "asr serve -H 127.0.0.1 -p 9000",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := env.Load()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if host != "" {
			cfg.Server.Host = host
		}
		if port != "" {
			if err := config.ValidatePort(port, "--port"); err != nil {
				return err
			}
			cfg.Server.Port = port
		}

		svc, err := app.InitializeService(cfg, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("ASR service configured",
			zap.Stringer("model", cfg.DefaultKey()),
			zap.String("runtime", cfg.Runtime),
			zap.Duration("idle_timeout", cfg.IdleTimeout),
			zap.Int("max_loaded_models", cfg.MaxLoadedModels))
		return svc.Run(ctx)
	},
}

func init() {
	Cmd.Flags().StringVarP(&host, "host", "H", "", "listen host (overrides HOST)")
	Cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
}
