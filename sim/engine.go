package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/internal/logging"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/market"
	"go.uber.org/zap"
)

var (
	ErrNoSeries     = errors.New("no bar series loaded")
	ErrPositionOpen = errors.New("a position is already open")
	ErrNoPosition   = errors.New("no open position")
)

// Engine is one replay session: a bar series, the cursor over it, the
// order book, at most one open position and the trade history. All
// methods are safe for concurrent use; mutations are serialized.
type Engine struct {
	mu sync.Mutex

	series market.Series
	cursor Cursor
	book   OrderBook
	pos    *Position

	history         []TradeRecord
	startingBalance float64
	balance         float64

	journal  journal.Journal
	logger   *zap.Logger
	listener Listener
	now      func() time.Time
}

type Option func(*Engine)

// WithStartingBalance sets the account size. Non-positive values are ignored.
func WithStartingBalance(b float64) Option {
	return func(e *Engine) {
		if b > 0 {
			e.startingBalance = b
		}
	}
}

// WithJournal sends closed trades and per-bar equity to j.
func WithJournal(j journal.Journal) Option {
	return func(e *Engine) {
		if j != nil {
			e.journal = j
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

func WithListener(fn Listener) Option {
	return func(e *Engine) { e.listener = fn }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		startingBalance: DefaultStartingBalance,
		journal:         journal.Discard,
		logger:          zap.NewNop(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.balance = e.startingBalance
	return e
}

// SetListener replaces the event listener.
func (e *Engine) SetListener(fn Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = fn
}

// LoadSeries starts a new run over s: the cursor goes back to the first
// bar and orders, position, history and balance are reset. Only the
// newest MaxBars bars are kept.
func (e *Engine) LoadSeries(s market.Series) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("load series: %w", err)
	}
	s = s.Tail(market.MaxBars)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.series = s
	e.cursor.Reset(len(s.Bars))
	e.book.Clear()
	e.pos = nil
	e.history = nil
	e.balance = e.startingBalance

	e.logger.Info("series loaded",
		zap.String("ticker", s.Ticker),
		zap.Int("bars", len(s.Bars)),
	)
	return nil
}

// PlaceOrderForm parses a form and places the resulting order.
func (e *Engine) PlaceOrderForm(f OrderForm) (Order, error) {
	req, err := ParseOrderForm(f)
	if err != nil {
		return Order{}, err
	}
	return e.PlaceOrder(req)
}

// PlaceOrder accepts an order. Market orders open a position at the
// current close straight away; limit orders join the book. A Market
// order while a position is open is rejected with ErrPositionOpen.
func (e *Engine) PlaceOrder(req OrderRequest) (Order, error) {
	e.mu.Lock()

	if !e.loadedLocked() {
		e.mu.Unlock()
		return Order{}, ErrNoSeries
	}

	idx := e.cursor.Index()
	bar := e.series.Bars[idx]

	entry := req.EntryPrice
	if req.Type == Market {
		entry = bar.Close
	}
	if err := req.Validate(entry); err != nil {
		e.mu.Unlock()
		return Order{}, err
	}
	if req.Type == Market && e.pos != nil {
		e.mu.Unlock()
		return Order{}, ErrPositionOpen
	}

	o := Order{
		ID:         id.New(),
		Side:       req.Side,
		Type:       req.Type,
		Size:       req.Size,
		EntryPrice: entry,
		TakeProfit: clonePrice(req.TakeProfit),
		StopLoss:   clonePrice(req.StopLoss),
		CreatedAt:  e.now(),
		CreatedBar: idx,
	}

	placed := o.clone()
	events := []Event{{Kind: EventOrderPlaced, BarIndex: idx, Order: &placed}}
	if o.Type == Market {
		events = append(events, e.openLocked(o, idx, bar))
	} else {
		e.book.Add(o)
		e.logger.Info("limit order queued",
			zap.String("order", o.ID),
			zap.Stringer("side", o.Side),
			zap.Float64("price", o.EntryPrice),
			zap.Float64("size", o.Size),
		)
	}

	listener := e.listener
	e.mu.Unlock()

	notify(listener, events)
	return o.clone(), nil
}

// CancelOrder removes a pending order. It reports whether anything was
// removed; unknown or already filled ids are ignored.
func (e *Engine) CancelOrder(orderID string) bool {
	e.mu.Lock()

	o, ok := e.book.Cancel(orderID)
	if !ok {
		e.mu.Unlock()
		return false
	}
	e.logger.Info("order cancelled", zap.String("order", o.ID))

	ev := Event{Kind: EventOrderCancelled, BarIndex: e.cursor.Index(), Order: &o}
	listener := e.listener
	e.mu.Unlock()

	notify(listener, []Event{ev})
	return true
}

// ClosePosition closes the open position at the current bar's close.
func (e *Engine) ClosePosition() (TradeRecord, error) {
	e.mu.Lock()

	if e.pos == nil {
		e.mu.Unlock()
		return TradeRecord{}, ErrNoPosition
	}

	idx := e.cursor.Index()
	bar := e.series.Bars[idx]
	rec, ev := e.closeLocked(bar.Close, ManualClose, idx, bar)

	listener := e.listener
	e.mu.Unlock()

	notify(listener, []Event{ev})
	return rec, nil
}

// StepForward reveals the next bar, fills pending orders against it,
// marks the position and applies take-profit/stop-loss. It returns false
// when there is no next bar.
func (e *Engine) StepForward() bool {
	e.mu.Lock()

	if !e.loadedLocked() || !e.cursor.Forward() {
		e.mu.Unlock()
		return false
	}

	idx := e.cursor.Index()
	bar := e.series.Bars[idx]

	var events []Event
	if e.cursor.Visible() > 1 {
		e.book.Match(bar, func(o Order) bool {
			if e.pos != nil {
				// One position at a time; the order waits for a later bar.
				return false
			}
			events = append(events, e.openLocked(o, idx, bar))
			return true
		})
	}

	if e.pos != nil {
		e.pos.mark(bar.Close)
		if exit, reason, hit := checkExit(*e.pos, bar); hit {
			_, ev := e.closeLocked(exit, reason, idx, bar)
			events = append(events, ev)
		}
	}

	e.recordEquityLocked(idx, bar)

	listener := e.listener
	e.mu.Unlock()

	notify(listener, events)
	return true
}

// StepBackward hides the newest bar and re-marks the open position. It
// never fills orders or closes positions.
func (e *Engine) StepBackward() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loadedLocked() || !e.cursor.Backward() {
		return false
	}
	if e.pos != nil {
		e.pos.mark(e.series.Bars[e.cursor.Index()].Close)
	}
	return true
}

// Loaded reports whether a series has been loaded.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadedLocked()
}

// AtEnd reports whether the last bar is visible.
func (e *Engine) AtEnd() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor.AtEnd()
}

// CurrentBar returns the newest visible bar.
func (e *Engine) CurrentBar() (market.Bar, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loadedLocked() {
		return market.Bar{}, false
	}
	return e.series.Bars[e.cursor.Index()], true
}

// CurrentClose returns the close of the newest visible bar, or 0.
func (e *Engine) CurrentClose() float64 {
	b, _ := e.CurrentBar()
	return b.Close
}

// Visible returns a copy of the visible window.
func (e *Engine) Visible() []market.Bar {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.series.Window(e.cursor.Visible())
	out := make([]market.Bar, len(w))
	copy(out, w)
	return out
}

// Stats derives performance figures from the trade history.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ComputeStats(e.history, e.startingBalance, e.balance)
}

func (e *Engine) loadedLocked() bool {
	return e.cursor.Total() > 0
}

func (e *Engine) openLocked(o Order, idx int, bar market.Bar) Event {
	e.pos = &Position{
		OrderID:    o.ID,
		Side:       o.Side,
		Size:       o.Size,
		EntryPrice: o.EntryPrice,
		TakeProfit: clonePrice(o.TakeProfit),
		StopLoss:   clonePrice(o.StopLoss),
		OpenBar:    idx,
		OpenTime:   bar.Timestamp(),
	}
	e.pos.mark(bar.Close)

	e.logger.Info("position opened",
		zap.String("order", o.ID),
		zap.Stringer("type", o.Type),
		zap.Stringer("side", o.Side),
		zap.Float64("entry", o.EntryPrice),
		zap.Float64("size", o.Size),
		zap.Int("bar", idx),
	)

	filled := o.clone()
	pos := e.pos.clone()
	return Event{Kind: EventOrderFilled, BarIndex: idx, Order: &filled, Position: &pos}
}

func (e *Engine) closeLocked(exit float64, reason CloseReason, idx int, bar market.Bar) (TradeRecord, Event) {
	p := e.pos.clone()
	pl := UnrealizedPL(p, exit)

	rec := TradeRecord{
		ID:         id.New(),
		OrderID:    p.OrderID,
		Side:       p.Side,
		Size:       p.Size,
		EntryPrice: p.EntryPrice,
		TakeProfit: clonePrice(p.TakeProfit),
		StopLoss:   clonePrice(p.StopLoss),
		OpenBar:    p.OpenBar,
		OpenTime:   p.OpenTime,
		ExitPrice:  exit,
		FinalPL:    pl,
		Reason:     reason,
		CloseBar:   idx,
		CloseTime:  bar.Timestamp(),
		Duration:   idx - p.OpenBar,
	}

	e.history = append(e.history, rec)
	e.balance += pl
	e.pos = nil

	e.logger.Info("position closed",
		zap.String("trade", rec.ID),
		zap.String("reason", string(reason)),
		zap.Float64("exit", exit),
		zap.Float64("pl", pl),
		zap.Float64("balance", e.balance),
	)

	if err := e.journal.RecordTrade(rec.JournalRecord(e.series.Ticker)); err != nil {
		e.logger.Warn("journal trade failed", zap.String("trade", rec.ID), zap.Error(err))
	}

	closed := rec.clone()
	return rec.clone(), Event{Kind: EventPositionClosed, BarIndex: idx, Position: &p, Trade: &closed}
}

func (e *Engine) recordEquityLocked(idx int, bar market.Bar) {
	var upl float64
	if e.pos != nil {
		upl = e.pos.UnrealizedPL
	}
	err := e.journal.RecordEquity(journal.EquitySnapshot{
		Time:         bar.Timestamp(),
		BarIndex:     idx,
		Balance:      e.balance,
		Equity:       e.balance + upl,
		UnrealizedPL: upl,
	})
	if err != nil {
		e.logger.Warn("journal equity failed", zap.Int("bar", idx), zap.Error(err))
	}
}

func notify(l Listener, events []Event) {
	if l == nil {
		return
	}
	for _, ev := range events {
		l(ev)
	}
}
