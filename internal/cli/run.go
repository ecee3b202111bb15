package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/replay"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(rc *RootConfig) *cobra.Command {
	var (
		barsPath    string
		ticker      string
		scriptPath  string
		realtime    bool
		speed       int
		stopOnError bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a bar file against a scripted set of orders",
		Long: `Load bars from a CSV or JSON file, apply a replay script and print
an Org-mode session report.

Script rows are bar,event,args with events:
  PLACE  side,type,size[,entry[,takeProfit[,stopLoss]]]
  CANCEL n   (the n-th PLACE row)
  CLOSE

Example:
  tradesim run --bars aapl.csv --ticker AAPL --script orders.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := rc.loadBars(barsPath, ticker)
			if err != nil {
				return err
			}

			var events []replay.ScriptEvent
			if scriptPath != "" {
				if events, err = replay.LoadScript(scriptPath); err != nil {
					return fmt.Errorf("load script: %w", err)
				}
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			s, err := rc.startSession(ctx, speed)
			if err != nil {
				return err
			}
			defer s.journal.Close()

			p := s.player
			if err := p.Load(ctx, series); err != nil {
				return err
			}

			opts := replay.ScriptOptions{ToEnd: !realtime, StopOnError: stopOnError}
			if err := replay.RunScript(ctx, p, events, opts); err != nil {
				return fmt.Errorf("script: %w", err)
			}
			if realtime {
				if err := playToEnd(ctx, p); err != nil {
					return err
				}
			}

			st, err := p.Snapshot(ctx)
			if err != nil {
				return err
			}
			rc.Logger.Info("replay finished",
				zap.String("ticker", st.Ticker),
				zap.Int("trades", st.Stats.TotalTrades),
				zap.Float64("net_pl", st.Stats.NetPL),
			)

			rep := sessionReport(id.New(), filepath.Base(barsPath), st, s.engine.Visible())
			return rep.WriteOrg(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&barsPath, "bars", "", "bar file (.csv or .json)")
	cmd.Flags().StringVar(&ticker, "ticker", "", "ticker symbol (defaults to the file's or the config's)")
	cmd.Flags().StringVar(&scriptPath, "script", "", "replay script CSV")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "play the remaining bars on a timer instead of stepping at once")
	cmd.Flags().IntVar(&speed, "speed", 0, "realtime ticks per second, 1-15 (defaults to config)")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "abort on the first rejected script event")
	_ = cmd.MarkFlagRequired("bars")

	return cmd
}

// playToEnd starts timed playback and waits for the last bar.
func playToEnd(ctx context.Context, p *replay.Player) error {
	done := make(chan struct{})
	var once sync.Once
	remove := p.OnChange(func(st replay.State) {
		if !st.Playing && st.VisibleCount == st.TotalBars {
			once.Do(func() { close(done) })
		}
	})
	defer remove()

	st, err := p.Snapshot(ctx)
	if err != nil {
		return err
	}
	if st.VisibleCount == st.TotalBars {
		return nil
	}
	if err := p.Play(ctx); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
