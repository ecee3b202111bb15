package sim

import (
	"errors"
	"testing"

	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type testJournal struct {
	trades []journal.TradeRecord
	equity []journal.EquitySnapshot
	fail   bool
}

func (j *testJournal) RecordTrade(rec journal.TradeRecord) error {
	if j.fail {
		return errors.New("disk full")
	}
	j.trades = append(j.trades, rec)
	return nil
}

func (j *testJournal) RecordEquity(rec journal.EquitySnapshot) error {
	if j.fail {
		return errors.New("disk full")
	}
	j.equity = append(j.equity, rec)
	return nil
}

func (j *testJournal) Close() error { return nil }

func ptr(v float64) *float64 { return &v }

// fiveBars is a short run that rallies, drops through 8.2 and recovers.
func fiveBars() market.Series {
	return market.Series{
		Ticker: "ACME",
		Bars: []market.Bar{
			{Time: 1_700_000_000, Open: 9.5, High: 10, Low: 9, Close: 9.5},
			{Time: 1_700_086_400, Open: 10.5, High: 11, Low: 10, Close: 10.5},
			{Time: 1_700_172_800, Open: 11.5, High: 12, Low: 11, Close: 11.5},
			{Time: 1_700_259_200, Open: 8.5, High: 9, Low: 8, Close: 8.5},
			{Time: 1_700_345_600, Open: 12.5, High: 13, Low: 12, Close: 12.5},
		},
	}
}

func newEngine(t *testing.T) (*Engine, *testJournal) {
	t.Helper()
	j := &testJournal{}
	e := NewEngine(WithJournal(j), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, e.LoadSeries(fiveBars()))
	return e, j
}

func stepTo(t *testing.T, e *Engine, visible int) {
	t.Helper()
	for e.Snapshot().VisibleCount < visible {
		require.True(t, e.StepForward())
	}
}

func TestEngineLimitStopLossRoundTrip(t *testing.T) {
	t.Parallel()
	e, j := newEngine(t)

	o, err := e.PlaceOrder(OrderRequest{
		Side: Buy, Type: Limit, Size: 1, EntryPrice: 10, StopLoss: ptr(8.2),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, o.CreatedBar)
	assert.Len(t, e.Snapshot().PendingOrders, 1)

	stepTo(t, e, 2)
	snap := e.Snapshot()
	require.NotNil(t, snap.ActivePosition)
	assert.Equal(t, 10.0, snap.ActivePosition.EntryPrice)
	assert.Equal(t, 1, snap.ActivePosition.OpenBar)
	assert.Empty(t, snap.PendingOrders)
	assert.InDelta(t, 0.5, snap.ActivePL, 1e-9)

	stepTo(t, e, 4)
	snap = e.Snapshot()
	assert.Nil(t, snap.ActivePosition)
	require.Len(t, snap.TradeHistory, 1)

	tr := snap.TradeHistory[0]
	assert.Equal(t, StopLoss, tr.Reason)
	assert.Equal(t, 8.2, tr.ExitPrice)
	assert.InDelta(t, -1.8, tr.FinalPL, 1e-9)
	assert.Equal(t, 3, tr.CloseBar)
	assert.Equal(t, 2, tr.Duration)
	assert.Equal(t, o.ID, tr.OrderID)
	assert.InDelta(t, 10_000-1.8, snap.Balance, 1e-9)

	require.Len(t, j.trades, 1)
	assert.Equal(t, "ACME", j.trades[0].Ticker)
	assert.Equal(t, "Buy", j.trades[0].Side)
	assert.Equal(t, "StopLoss", j.trades[0].Reason)
	assert.Len(t, j.equity, 3)
}

func TestEngineTakeProfit(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	_, err := e.PlaceOrder(OrderRequest{
		Side: Buy, Type: Limit, Size: 2, EntryPrice: 10, TakeProfit: ptr(11.5), StopLoss: ptr(8.2),
	})
	require.NoError(t, err)

	stepTo(t, e, 3)
	snap := e.Snapshot()
	require.Len(t, snap.TradeHistory, 1)
	assert.Equal(t, TakeProfit, snap.TradeHistory[0].Reason)
	assert.Equal(t, 11.5, snap.TradeHistory[0].ExitPrice)
	assert.InDelta(t, 3.0, snap.TradeHistory[0].FinalPL, 1e-9)
}

func TestEngineExitOnFillBar(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	_, err := e.PlaceOrder(OrderRequest{
		Side: Buy, Type: Limit, Size: 1, EntryPrice: 10, TakeProfit: ptr(10.8),
	})
	require.NoError(t, err)

	stepTo(t, e, 2)
	snap := e.Snapshot()
	assert.Nil(t, snap.ActivePosition)
	require.Len(t, snap.TradeHistory, 1)
	assert.Equal(t, TakeProfit, snap.TradeHistory[0].Reason)
	assert.Equal(t, 0, snap.TradeHistory[0].Duration)
}

func TestEngineMarketOrder(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	o, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Market, Size: 1, EntryPrice: 123})
	require.NoError(t, err)
	assert.Equal(t, 9.5, o.EntryPrice, "market orders fill at the current close")

	snap := e.Snapshot()
	require.NotNil(t, snap.ActivePosition)
	assert.Equal(t, 0, snap.ActivePosition.OpenBar)

	_, err = e.PlaceOrder(OrderRequest{Side: Sell, Type: Market, Size: 1})
	assert.ErrorIs(t, err, ErrPositionOpen)

	stepTo(t, e, 2)
	tr, err := e.ClosePosition()
	require.NoError(t, err)
	assert.Equal(t, ManualClose, tr.Reason)
	assert.Equal(t, 10.5, tr.ExitPrice)
	assert.InDelta(t, 1.0, tr.FinalPL, 1e-9)

	_, err = e.ClosePosition()
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestEngineSellStopLoss(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	_, err := e.PlaceOrder(OrderRequest{
		Side: Sell, Type: Market, Size: 1, TakeProfit: ptr(8.6), StopLoss: ptr(10.5),
	})
	require.NoError(t, err)

	stepTo(t, e, 2)
	snap := e.Snapshot()
	require.Len(t, snap.TradeHistory, 1)
	assert.Equal(t, StopLoss, snap.TradeHistory[0].Reason)
	assert.InDelta(t, -1.0, snap.TradeHistory[0].FinalPL, 1e-9)
}

func TestEngineSellLimitTakeProfit(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	// Sell limits fill when the high reaches the entry.
	_, err := e.PlaceOrder(OrderRequest{
		Side: Sell, Type: Limit, Size: 1, EntryPrice: 11.8, TakeProfit: ptr(9), StopLoss: ptr(13.5),
	})
	require.NoError(t, err)

	stepTo(t, e, 2)
	assert.Nil(t, e.Snapshot().ActivePosition)

	stepTo(t, e, 3)
	require.NotNil(t, e.Snapshot().ActivePosition)

	stepTo(t, e, 4)
	snap := e.Snapshot()
	require.Len(t, snap.TradeHistory, 1)
	assert.Equal(t, TakeProfit, snap.TradeHistory[0].Reason)
	assert.InDelta(t, 2.8, snap.TradeHistory[0].FinalPL, 1e-9)
}

func TestEngineHeldLimitOrders(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	first, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 10})
	require.NoError(t, err)
	second, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Limit, Size: 3, EntryPrice: 10})
	require.NoError(t, err)

	stepTo(t, e, 2)
	snap := e.Snapshot()
	require.NotNil(t, snap.ActivePosition)
	assert.Equal(t, first.ID, snap.ActivePosition.OrderID)
	require.Len(t, snap.PendingOrders, 1)
	assert.Equal(t, second.ID, snap.PendingOrders[0].ID)

	_, err = e.ClosePosition()
	require.NoError(t, err)

	stepTo(t, e, 3)
	assert.Nil(t, e.Snapshot().ActivePosition, "bar 3 never trades down to 10")

	stepTo(t, e, 4)
	snap = e.Snapshot()
	require.NotNil(t, snap.ActivePosition)
	assert.Equal(t, second.ID, snap.ActivePosition.OrderID)
	assert.Equal(t, 3.0, snap.ActivePosition.Size)
	assert.Empty(t, snap.PendingOrders)
}

func TestEngineCancel(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	o, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 10})
	require.NoError(t, err)

	assert.True(t, e.CancelOrder(o.ID))
	assert.False(t, e.CancelOrder(o.ID))
	assert.False(t, e.CancelOrder("nope"))

	stepTo(t, e, 5)
	snap := e.Snapshot()
	assert.Nil(t, snap.ActivePosition)
	assert.Empty(t, snap.TradeHistory)
	assert.Equal(t, 10_000.0, snap.Balance)
}

func TestEngineRejectsInvalidOrders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		req   OrderRequest
		field string
	}{
		{"zero size", OrderRequest{Side: Buy, Type: Limit, Size: 0, EntryPrice: 10}, FieldSize},
		{"no entry", OrderRequest{Side: Buy, Type: Limit, Size: 1}, FieldEntryPrice},
		{"buy tp below entry", OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 10, TakeProfit: ptr(9), StopLoss: ptr(8)}, FieldTakeProfit},
		{"buy sl above entry", OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 10, TakeProfit: ptr(12), StopLoss: ptr(11)}, FieldStopLoss},
		{"sell tp above entry", OrderRequest{Side: Sell, Type: Limit, Size: 1, EntryPrice: 10, TakeProfit: ptr(11), StopLoss: ptr(12)}, FieldTakeProfit},
		{"market checked against close", OrderRequest{Side: Buy, Type: Market, Size: 1, TakeProfit: ptr(9), StopLoss: ptr(8)}, FieldTakeProfit},
		{"negative stop", OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 10, StopLoss: ptr(-1)}, FieldStopLoss},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, _ := newEngine(t)

			_, err := e.PlaceOrder(tt.req)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs, tt.field)

			snap := e.Snapshot()
			assert.Empty(t, snap.PendingOrders)
			assert.Nil(t, snap.ActivePosition)
		})
	}
}

func TestEngineTPWithoutStopSkipsRelationCheck(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	_, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 10, TakeProfit: ptr(9)})
	assert.NoError(t, err)
}

func TestEnginePlaceOrderForm(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	o, err := e.PlaceOrderForm(OrderForm{
		Side: "Buy", Type: "Limit", Size: "1", EntryPrice: "10", StopLoss: "8.2",
	})
	require.NoError(t, err)
	assert.Equal(t, Limit, o.Type)
	require.NotNil(t, o.StopLoss)
	assert.Nil(t, o.TakeProfit)

	_, err = e.PlaceOrderForm(OrderForm{Side: "up", Type: "Limit", Size: "x", EntryPrice: "10"})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, FieldSide)
	assert.Contains(t, verrs, FieldSize)
}

func TestEngineNoSeries(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	_, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Market, Size: 1})
	assert.ErrorIs(t, err, ErrNoSeries)
	assert.False(t, e.StepForward())
	assert.False(t, e.StepBackward())
	assert.False(t, e.Loaded())

	snap := e.Snapshot()
	assert.Nil(t, snap.CurrentBar)
	assert.Zero(t, snap.VisibleCount)
	assert.Equal(t, DefaultStartingBalance, snap.Balance)
}

func TestEngineCursorBounds(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	assert.False(t, e.StepBackward())
	assert.Equal(t, 1, e.Snapshot().VisibleCount)

	stepTo(t, e, 5)
	assert.True(t, e.AtEnd())
	assert.False(t, e.StepForward())
	assert.Equal(t, 5, e.Snapshot().VisibleCount)
	assert.Len(t, e.Visible(), 5)
	assert.Equal(t, 12.5, e.CurrentClose())
}

func TestEngineStepBackwardOnlyRemarks(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	_, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Market, Size: 1})
	require.NoError(t, err)
	stepTo(t, e, 3)
	assert.InDelta(t, 2.0, e.Snapshot().ActivePL, 1e-9)

	require.True(t, e.StepBackward())
	snap := e.Snapshot()
	assert.Equal(t, 2, snap.VisibleCount)
	require.NotNil(t, snap.ActivePosition)
	assert.InDelta(t, 1.0, snap.ActivePL, 1e-9)
	assert.Empty(t, snap.TradeHistory)
}

func TestEngineNetPLMatchesHistory(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	_, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Market, Size: 1})
	require.NoError(t, err)
	stepTo(t, e, 3)
	_, err = e.ClosePosition()
	require.NoError(t, err)

	_, err = e.PlaceOrder(OrderRequest{Side: Sell, Type: Market, Size: 2})
	require.NoError(t, err)
	stepTo(t, e, 4)
	_, err = e.ClosePosition()
	require.NoError(t, err)

	snap := e.Snapshot()
	var sum float64
	for _, tr := range snap.TradeHistory {
		sum += tr.FinalPL
	}
	assert.InDelta(t, sum, snap.Stats.NetPL, 1e-9)
	assert.InDelta(t, snap.StartingBalance+sum, snap.Balance, 1e-9)
	assert.Equal(t, 2, snap.Stats.Wins)
}

func TestEngineLoadSeriesResets(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	_, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Market, Size: 1})
	require.NoError(t, err)
	_, err = e.PlaceOrder(OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 9})
	require.NoError(t, err)
	stepTo(t, e, 3)
	_, err = e.ClosePosition()
	require.NoError(t, err)

	require.NoError(t, e.LoadSeries(fiveBars()))
	snap := e.Snapshot()
	assert.Equal(t, 1, snap.VisibleCount)
	assert.Empty(t, snap.PendingOrders)
	assert.Empty(t, snap.TradeHistory)
	assert.Nil(t, snap.ActivePosition)
	assert.Equal(t, snap.StartingBalance, snap.Balance)

	assert.Error(t, e.LoadSeries(market.Series{Ticker: "ACME"}))
	assert.Equal(t, 1, e.Snapshot().VisibleCount, "a rejected series leaves the session alone")
}

func TestEngineLoadSeriesCapsBars(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	s := market.Series{Ticker: "ACME"}
	for i := 1; i <= market.MaxBars+5; i++ {
		s.Bars = append(s.Bars, market.Bar{Time: int64(i), Open: 1, High: 1, Low: 1, Close: 1})
	}
	require.NoError(t, e.LoadSeries(s))

	snap := e.Snapshot()
	assert.Equal(t, market.MaxBars, snap.TotalBars)
	require.NotNil(t, snap.CurrentBar)
	assert.Equal(t, int64(6), snap.CurrentBar.Time)
}

func TestEngineSnapshotDoesNotAlias(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	_, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 5})
	require.NoError(t, err)

	snap := e.Snapshot()
	snap.PendingOrders[0].EntryPrice = 1
	assert.Equal(t, 5.0, e.Snapshot().PendingOrders[0].EntryPrice)
}

func TestEngineSnapshotDoesNotAliasPrices(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)

	_, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 10, TakeProfit: ptr(20), StopLoss: ptr(8.2)})
	require.NoError(t, err)

	snap := e.Snapshot()
	*snap.PendingOrders[0].TakeProfit = 1
	*snap.PendingOrders[0].StopLoss = 50
	assert.Equal(t, 20.0, *e.Snapshot().PendingOrders[0].TakeProfit)
	assert.Equal(t, 8.2, *e.Snapshot().PendingOrders[0].StopLoss)

	stepTo(t, e, 2)
	snap = e.Snapshot()
	require.NotNil(t, snap.ActivePosition)
	*snap.ActivePosition.StopLoss = 50
	assert.Equal(t, 8.2, *e.Snapshot().ActivePosition.StopLoss)

	stepTo(t, e, 4)
	snap = e.Snapshot()
	require.Len(t, snap.TradeHistory, 1)
	*snap.TradeHistory[0].TakeProfit = 999
	assert.Equal(t, 20.0, *e.Snapshot().TradeHistory[0].TakeProfit)
	assert.InDelta(t, -1.8, e.Snapshot().TradeHistory[0].FinalPL, 1e-9)
}

func TestEngineKeepsValidatedPrices(t *testing.T) {
	t.Parallel()
	e, _ := newEngine(t)
	e.SetListener(func(ev Event) {
		if ev.Order != nil && ev.Order.StopLoss != nil {
			*ev.Order.StopLoss = 0
		}
		if ev.Position != nil && ev.Position.StopLoss != nil {
			*ev.Position.StopLoss = 0
		}
	})

	sl := 8.2
	o, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 10, StopLoss: &sl})
	require.NoError(t, err)
	sl = 50
	*o.StopLoss = 50

	stepTo(t, e, 2)
	require.NotNil(t, e.Snapshot().ActivePosition)

	stepTo(t, e, 4)
	snap := e.Snapshot()
	require.Len(t, snap.TradeHistory, 1)
	rec := snap.TradeHistory[0]
	assert.Equal(t, StopLoss, rec.Reason)
	assert.InDelta(t, 8.2, rec.ExitPrice, 1e-9)
	assert.InDelta(t, -1.8, rec.FinalPL, 1e-9)
}

func TestEngineJournalErrorsDoNotStopReplay(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.WarnLevel)
	j := &testJournal{fail: true}
	e := NewEngine(WithJournal(j), WithStartingBalance(500), WithLogger(zap.New(core)))
	require.NoError(t, e.LoadSeries(fiveBars()))

	_, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 10, StopLoss: ptr(8.2)})
	require.NoError(t, err)
	stepTo(t, e, 5)

	snap := e.Snapshot()
	assert.Len(t, snap.TradeHistory, 1)
	assert.InDelta(t, 500-1.8, snap.Balance, 1e-9)

	assert.Equal(t, 1, logs.FilterMessage("journal trade failed").Len())
	assert.Equal(t, 4, logs.FilterMessage("journal equity failed").Len())
}

func TestEngineListener(t *testing.T) {
	t.Parallel()

	var kinds []EventKind
	e := NewEngine()
	e.SetListener(func(ev Event) {
		kinds = append(kinds, ev.Kind)
		// Listeners run outside the lock.
		_ = e.Snapshot()
	})
	require.NoError(t, e.LoadSeries(fiveBars()))

	o, err := e.PlaceOrder(OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 4})
	require.NoError(t, err)
	e.CancelOrder(o.ID)

	_, err = e.PlaceOrder(OrderRequest{Side: Buy, Type: Limit, Size: 1, EntryPrice: 10, StopLoss: ptr(8.2)})
	require.NoError(t, err)
	stepTo(t, e, 4)

	assert.Equal(t, []EventKind{
		EventOrderPlaced,
		EventOrderCancelled,
		EventOrderPlaced,
		EventOrderFilled,
		EventPositionClosed,
	}, kinds)
}
