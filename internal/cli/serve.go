package cli

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/vitals/internal/api"
	"github.com/rileyhilliard/vitals/internal/logger"
)

var serveAddrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the monitoring HTTP API",
	Long: `Start the HTTP API. Clients connect to hosts with POST /api/connect
and poll GET /api/monitoring-data/:connectionId, or open the websocket at
GET /api/stream/:connectionId.

Every SSH session is closed on SIGINT or SIGTERM.

Examples:
  vitals serve
  vitals serve --addr 127.0.0.1:8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "", "listen address (default from server.addr, ':3001')")
}

func serveCommand(ctx context.Context) error {
	cfg := appConfig
	addr := cfg.Server.Addr
	if serveAddrFlag != "" {
		addr = serveAddrFlag
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := newRegistry(cfg, logger.WithPrefix(appLog, "registry"))
	defer reg.CloseAll()

	srv := api.New(api.Options{
		Sampler:         newSampler(reg, cfg, logger.WithPrefix(appLog, "sampler")),
		Logger:          logger.WithPrefix(appLog, "http"),
		CORSOrigin:      cfg.Server.CORSOrigin,
		PollInterval:    cfg.Sampler.PollInterval,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	return srv.ListenAndServe(ctx, addr)
}
