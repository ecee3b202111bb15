package sim

import (
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// Order is an instruction to open a position. Limit orders wait in the
// book until a bar trades through EntryPrice.
type Order struct {
	ID         string    `json:"id"`
	Side       Side      `json:"side"`
	Type       OrderType `json:"type"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entryPrice"`
	TakeProfit *float64  `json:"takeProfit,omitempty"`
	StopLoss   *float64  `json:"stopLoss,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	CreatedBar int       `json:"createdBar"`
}

func (o Order) clone() Order {
	o.TakeProfit = clonePrice(o.TakeProfit)
	o.StopLoss = clonePrice(o.StopLoss)
	return o
}

func clonePrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// OrderRequest is a parsed order before it is accepted. EntryPrice is
// ignored for Market orders.
type OrderRequest struct {
	Side       Side      `json:"side"`
	Type       OrderType `json:"type"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entryPrice"`
	TakeProfit *float64  `json:"takeProfit,omitempty"`
	StopLoss   *float64  `json:"stopLoss,omitempty"`
}

// OrderBook holds pending limit orders in placement order.
type OrderBook struct {
	pending []Order
}

func (b *OrderBook) Add(o Order) {
	b.pending = append(b.pending, o.clone())
}

// Cancel removes the order with the given id. It reports whether an order
// was removed; cancelling an unknown id does nothing.
func (b *OrderBook) Cancel(id string) (Order, bool) {
	for i, o := range b.pending {
		if o.ID == id {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return o, true
		}
	}
	return Order{}, false
}

// Pending returns a copy of the waiting orders.
func (b *OrderBook) Pending() []Order {
	out := make([]Order, len(b.pending))
	for i, o := range b.pending {
		out[i] = o.clone()
	}
	return out
}

func (b *OrderBook) Len() int { return len(b.pending) }

func (b *OrderBook) Clear() { b.pending = nil }

// Match walks the book in placement order and calls fill for every order
// the bar would fill. Orders for which fill returns true leave the book;
// the rest stay pending.
func (b *OrderBook) Match(bar market.Bar, fill func(Order) bool) {
	kept := b.pending[:0]
	for _, o := range b.pending {
		if shouldFill(o, bar) && fill(o) {
			continue
		}
		kept = append(kept, o)
	}
	b.pending = kept
}

// shouldFill reports whether bar traded through the order's limit price.
// Buys fill when the low reaches the limit, sells when the high does.
func shouldFill(o Order, bar market.Bar) bool {
	switch o.Side {
	case Buy:
		return bar.Low <= o.EntryPrice
	case Sell:
		return bar.High >= o.EntryPrice
	}
	return false
}
