package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/born-ml/gradstate/internal/config"
	"github.com/born-ml/gradstate/internal/monitor"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the updater state of the reference network over HTTP.",
		Long: `serve sets up the same network as inspect, runs the synthetic ` +
			`steps and then serves the monitoring API until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.run(); err != nil {
				return err
			}

			m := monitor.NewMonitor(s.updater).
				WithLogger(s.logger).
				WithPortNumber(s.cfg.Port)
			if s.store != nil {
				m.WithStore(s.store)
			}

			url, err := m.StartServer()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Monitoring updater with %s\n", url)

			if open, _ := cmd.Flags().GetBool("open"); open {
				if err := browser.OpenURL(url + "/api/layers"); err != nil {
					s.logger.Warn("could not open browser", "err", err)
				}
			}

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return m.Shutdown(shutdownCtx)
		},
	}

	addSessionFlags(serveCmd.Flags())
	serveCmd.Flags().Int("port", config.Default().Port, "Port to listen on (0 picks a free port)")
	serveCmd.Flags().Bool("open", false, "Open the API in a browser")

	return serveCmd
}
