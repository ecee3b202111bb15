// Package replay drives a simulation engine through time. A Player owns
// an engine and runs every command and timer tick on one goroutine.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/tradesim/indicators"
	"github.com/rustyeddy/tradesim/internal/logging"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/risk"
	"github.com/rustyeddy/tradesim/sim"
	"go.uber.org/zap"
)

const (
	MinSpeed     = 1
	MaxSpeed     = 15
	DefaultSpeed = 2
)

var (
	ErrStopped  = errors.New("player stopped")
	ErrBadSpeed = fmt.Errorf("speed must be between %d and %d", MinSpeed, MaxSpeed)
)

// State is an engine snapshot plus playback status and chart overlays.
type State struct {
	sim.Snapshot
	Playing  bool                `json:"playing"`
	Speed    int                 `json:"speed"`
	Overlays []indicators.Result `json:"overlays"`
	Risk     *risk.Plan          `json:"risk,omitempty"` // open position only
}

type request struct {
	cmd   Command
	reply chan reply
}

type reply struct {
	res Result
	err error
}

// Player serializes access to a sim.Engine. Nothing happens until Run
// is started; Run must be running for any command to complete.
type Player struct {
	engine   *sim.Engine
	settings indicators.Settings
	policy   risk.Policy
	logger   *zap.Logger

	reqs chan request
	done chan struct{}
	once sync.Once

	// owned by the Run goroutine
	playing bool
	speed   int
	ticker  *time.Ticker

	mu        sync.Mutex
	listeners map[int]func(State)
	nextID    int
}

type PlayerOption func(*Player)

func WithSettings(s indicators.Settings) PlayerOption {
	return func(p *Player) { p.settings = s }
}

// WithRiskPolicy sets the limits the open position's plan is graded on.
func WithRiskPolicy(pol risk.Policy) PlayerOption {
	return func(p *Player) { p.policy = pol }
}

func WithLogger(l *zap.Logger) PlayerOption {
	return func(p *Player) { p.logger = logging.OrNop(l) }
}

// WithSpeed sets the initial tick rate. Out of range values are ignored.
func WithSpeed(n int) PlayerOption {
	return func(p *Player) {
		if validSpeed(n) {
			p.speed = n
		}
	}
}

func NewPlayer(engine *sim.Engine, opts ...PlayerOption) *Player {
	p := &Player{
		engine:    engine,
		settings:  indicators.DefaultSettings(),
		policy:    risk.DefaultPolicy(),
		logger:    zap.NewNop(),
		reqs:      make(chan request),
		done:      make(chan struct{}),
		speed:     DefaultSpeed,
		listeners: map[int]func(State){},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnChange registers fn to receive the state after every change. fn runs
// on the player goroutine and must not call back into the player. The
// returned func removes the registration.
func (p *Player) OnChange(fn func(State)) (remove func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// Run processes commands and ticks until ctx is done.
func (p *Player) Run(ctx context.Context) error {
	defer p.once.Do(func() { close(p.done) })
	defer p.stopTicker()

	for {
		var tick <-chan time.Time
		if p.ticker != nil {
			tick = p.ticker.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-p.reqs:
			res, err := p.handle(req.cmd)
			req.reply <- reply{res: res, err: err}
		case <-tick:
			p.tick()
		}
	}
}

// Apply submits cmd and waits for its result.
func (p *Player) Apply(ctx context.Context, cmd Command) (Result, error) {
	cmd, err := cmd.Normalize()
	if err != nil {
		return Result{}, err
	}

	req := request{cmd: cmd, reply: make(chan reply, 1)}
	select {
	case p.reqs <- req:
	case <-p.done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r.res, r.err
	case <-p.done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (p *Player) Load(ctx context.Context, s market.Series) error {
	_, err := p.Apply(ctx, Command{Kind: CmdLoad, Series: &s})
	return err
}

func (p *Player) Place(ctx context.Context, f sim.OrderForm) (sim.Order, error) {
	res, err := p.Apply(ctx, Command{Kind: CmdPlace, Order: &f})
	if err != nil {
		return sim.Order{}, err
	}
	return *res.Order, nil
}

func (p *Player) Cancel(ctx context.Context, orderID string) (bool, error) {
	res, err := p.Apply(ctx, Command{Kind: CmdCancel, OrderID: orderID})
	return res.Cancelled, err
}

func (p *Player) Close(ctx context.Context) (sim.TradeRecord, error) {
	res, err := p.Apply(ctx, Command{Kind: CmdClose})
	if err != nil {
		return sim.TradeRecord{}, err
	}
	return *res.Trade, nil
}

func (p *Player) StepForward(ctx context.Context) (bool, error) {
	res, err := p.Apply(ctx, Command{Kind: CmdStepForward})
	return res.Moved, err
}

func (p *Player) StepBackward(ctx context.Context) (bool, error) {
	res, err := p.Apply(ctx, Command{Kind: CmdStepBackward})
	return res.Moved, err
}

func (p *Player) Play(ctx context.Context) error {
	_, err := p.Apply(ctx, Command{Kind: CmdPlay})
	return err
}

func (p *Player) Pause(ctx context.Context) error {
	_, err := p.Apply(ctx, Command{Kind: CmdPause})
	return err
}

func (p *Player) SetSpeed(ctx context.Context, n int) error {
	_, err := p.Apply(ctx, Command{Kind: CmdSpeed, Speed: n})
	return err
}

func (p *Player) Snapshot(ctx context.Context) (State, error) {
	res, err := p.Apply(ctx, Command{Kind: CmdSnapshot})
	return res.State, err
}

func (p *Player) handle(cmd Command) (Result, error) {
	var res Result
	changed := true

	switch cmd.Kind {
	case CmdLoad:
		p.pause()
		if err := p.engine.LoadSeries(*cmd.Series); err != nil {
			return Result{State: p.state()}, err
		}

	case CmdPlace:
		o, err := p.engine.PlaceOrderForm(*cmd.Order)
		if err != nil {
			return Result{State: p.state()}, err
		}
		res.Order = &o

	case CmdCancel:
		res.Cancelled = p.engine.CancelOrder(cmd.OrderID)
		changed = res.Cancelled

	case CmdClose:
		tr, err := p.engine.ClosePosition()
		if err != nil {
			return Result{State: p.state()}, err
		}
		res.Trade = &tr

	case CmdStepForward:
		p.pause()
		res.Moved = p.engine.StepForward()

	case CmdStepBackward:
		p.pause()
		res.Moved = p.engine.StepBackward()

	case CmdPlay:
		changed = p.play()

	case CmdPause:
		changed = p.pause()

	case CmdSpeed:
		if !validSpeed(cmd.Speed) {
			return Result{State: p.state()}, fmt.Errorf("set speed %d: %w", cmd.Speed, ErrBadSpeed)
		}
		p.speed = cmd.Speed
		if p.ticker != nil {
			p.ticker.Reset(p.period())
		}
		p.logger.Debug("speed changed", zap.Int("speed", p.speed))

	case CmdSnapshot:
		changed = false

	default:
		return Result{State: p.state()}, fmt.Errorf("unknown command %q", cmd.Kind)
	}

	res.State = p.state()
	if changed {
		p.emit(res.State)
	}
	return res, nil
}

func (p *Player) tick() {
	moved := p.engine.StepForward()
	if !moved || p.engine.AtEnd() {
		p.pause()
		p.logger.Debug("playback reached the last bar")
	}
	p.emit(p.state())
}

func (p *Player) play() bool {
	if p.playing || !p.engine.Loaded() || p.engine.AtEnd() {
		return false
	}
	p.playing = true
	p.ticker = time.NewTicker(p.period())
	p.logger.Debug("playing", zap.Int("speed", p.speed))
	return true
}

func (p *Player) pause() bool {
	if !p.playing {
		return false
	}
	p.stopTicker()
	p.playing = false
	p.logger.Debug("paused")
	return true
}

func (p *Player) stopTicker() {
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
	}
}

func (p *Player) period() time.Duration {
	return time.Second / time.Duration(p.speed)
}

func (p *Player) state() State {
	st := State{
		Snapshot: p.engine.Snapshot(),
		Playing:  p.playing,
		Speed:    p.speed,
		Overlays: p.settings.Overlays(p.engine.Visible()),
	}
	if pos := st.ActivePosition; pos != nil {
		plan := risk.Evaluate(p.policy, st.Balance, pos.Size, pos.EntryPrice, pos.StopLoss, pos.TakeProfit)
		st.Risk = &plan
	}
	return st
}

func (p *Player) emit(s State) {
	p.mu.Lock()
	fns := make([]func(State), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

func validSpeed(n int) bool {
	return n >= MinSpeed && n <= MaxSpeed
}
