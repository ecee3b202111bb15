package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/tradesim/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(rc *RootConfig) *cobra.Command {
	var (
		addr     string
		barsPath string
		ticker   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a replay session over HTTP and websocket",
		Long: `Start an HTTP server exposing one replay session.

Routes:
  GET  /api/health    liveness
  GET  /api/state     current session state
  POST /api/commands  apply a command, e.g. {"kind":"stepForward"}
  GET  /ws            state stream; send commands as JSON frames

Example:
  tradesim serve --addr :8080 --bars aapl.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			s, err := rc.startSession(ctx, 0)
			if err != nil {
				return err
			}
			defer s.journal.Close()

			if barsPath != "" {
				series, err := rc.loadBars(barsPath, ticker)
				if err != nil {
					return err
				}
				if err := s.player.Load(ctx, series); err != nil {
					return err
				}
			}

			scfg := rc.Config.Server
			if addr != "" {
				scfg.Addr = addr
			}
			srv := server.New(s.player, server.Config{
				Addr:              scfg.Addr,
				CommandsPerSecond: scfg.CommandsPerSecond,
				Burst:             scfg.Burst,
			}, rc.Logger)

			err = srv.ListenAndServe(ctx)
			if err != nil && !errors.Is(err, ctx.Err()) {
				return err
			}
			rc.Logger.Info("server stopped", zap.String("addr", scfg.Addr))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&barsPath, "bars", "", "bar file to preload (.csv or .json)")
	cmd.Flags().StringVar(&ticker, "ticker", "", "ticker symbol for the preloaded bars")

	return cmd
}
