package cli

import (
	"context"
	"fmt"

	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/replay"
	"github.com/rustyeddy/tradesim/sim"
)

// session is a running player and the journal behind its engine.
type session struct {
	engine  *sim.Engine
	player  *replay.Player
	journal journal.Journal
	errCh   chan error
}

// startSession opens the configured journal and starts a player loop
// that stops with ctx.
func (rc *RootConfig) startSession(ctx context.Context, speed int) (*session, error) {
	cfg := rc.Config

	j, err := cfg.Journal.OpenJournal()
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if speed == 0 {
		speed = cfg.Session.Speed
	}

	e := sim.NewEngine(
		sim.WithStartingBalance(cfg.Session.StartingBalance),
		sim.WithJournal(j),
		sim.WithLogger(rc.Logger),
	)
	p := replay.NewPlayer(e,
		replay.WithSettings(cfg.Indicators),
		replay.WithLogger(rc.Logger),
		replay.WithSpeed(speed),
		replay.WithRiskPolicy(cfg.Risk),
	)

	s := &session{engine: e, player: p, journal: j, errCh: make(chan error, 1)}
	go func() { s.errCh <- p.Run(ctx) }()
	return s, nil
}

// loadBars reads a bar file, falling back to the configured ticker.
func (rc *RootConfig) loadBars(path, ticker string) (market.Series, error) {
	if ticker == "" {
		ticker = rc.Config.Session.Ticker
	}
	s, err := market.Load(path, ticker)
	if err != nil {
		return market.Series{}, fmt.Errorf("load bars: %w", err)
	}
	return s, nil
}
