package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/leafshift/internal/server"
	"github.com/matzehuels/leafshift/pkg/observability"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API for uploading plans, downloading converted plans,
previewing apertures and editing the linac configuration.

The server stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			runner, err := c.newRunner(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			observability.SetHTTPHooks(observability.NewLogHTTPHooks(logger))

			srv := server.New(runner, logger, server.Options{
				MaxUploadBytes: cfg.MaxUploadBytes(),
				ReadTimeout:    cfg.Server.ReadTimeout,
				Translator:     c.tr,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}
