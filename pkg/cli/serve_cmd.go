package cli

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fireant/internal/app"
)

func newServeCmd(g *globals) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dataset catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				g.cfg.ListenAddr = listen
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: g.cfg.SlogLevel()}))
			for _, w := range g.cfg.Warnings {
				logger.Warn(w)
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()
			return app.Serve(ctx, g.cfg, logger, app.ServeOptions{})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (env LISTEN_ADDR)")
	return cmd
}
