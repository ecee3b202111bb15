package sim

import "time"

// Position is the single open position of a session.
type Position struct {
	OrderID      string    `json:"orderId"`
	Side         Side      `json:"side"`
	Size         float64   `json:"size"`
	EntryPrice   float64   `json:"entryPrice"`
	TakeProfit   *float64  `json:"takeProfit,omitempty"`
	StopLoss     *float64  `json:"stopLoss,omitempty"`
	OpenBar      int       `json:"openBarIndex"`
	OpenTime     time.Time `json:"openTime"`
	UnrealizedPL float64   `json:"unrealizedPL"`
}

func (p Position) clone() Position {
	p.TakeProfit = clonePrice(p.TakeProfit)
	p.StopLoss = clonePrice(p.StopLoss)
	return p
}

func (p *Position) mark(price float64) {
	p.UnrealizedPL = UnrealizedPL(*p, price)
}
