package sim

import "github.com/rustyeddy/tradesim/market"

// Snapshot is a read-only copy of the session state. Nothing in it
// aliases the engine.
type Snapshot struct {
	Ticker          string        `json:"ticker"`
	VisibleCount    int           `json:"visibleCount"`
	TotalBars       int           `json:"totalBars"`
	CurrentBar      *market.Bar   `json:"currentBar,omitempty"`
	ActivePosition  *Position     `json:"activePosition,omitempty"`
	ActivePL        float64       `json:"activePL"`
	PendingOrders   []Order       `json:"pendingOrders"`
	TradeHistory    []TradeRecord `json:"tradeHistory"`
	Balance         float64       `json:"balance"`
	StartingBalance float64       `json:"startingBalance"`
	Stats           Stats         `json:"stats"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Ticker:          e.series.Ticker,
		VisibleCount:    e.cursor.Visible(),
		TotalBars:       e.cursor.Total(),
		PendingOrders:   e.book.Pending(),
		TradeHistory:    make([]TradeRecord, 0, len(e.history)),
		Balance:         e.balance,
		StartingBalance: e.startingBalance,
		Stats:           ComputeStats(e.history, e.startingBalance, e.balance),
	}
	for _, t := range e.history {
		s.TradeHistory = append(s.TradeHistory, t.clone())
	}

	if e.loadedLocked() {
		b := e.series.Bars[e.cursor.Index()]
		s.CurrentBar = &b
	}
	if e.pos != nil {
		p := e.pos.clone()
		s.ActivePosition = &p
		s.ActivePL = p.UnrealizedPL
	}
	return s
}
