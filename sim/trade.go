package sim

import (
	"time"

	"github.com/rustyeddy/tradesim/journal"
)

// TradeRecord is a closed position. Records are never modified once
// they are in the history.
type TradeRecord struct {
	ID         string      `json:"id"`
	OrderID    string      `json:"orderId"`
	Side       Side        `json:"side"`
	Size       float64     `json:"size"`
	EntryPrice float64     `json:"entryPrice"`
	TakeProfit *float64    `json:"takeProfit,omitempty"`
	StopLoss   *float64    `json:"stopLoss,omitempty"`
	OpenBar    int         `json:"openBarIndex"`
	OpenTime   time.Time   `json:"openTime"`
	ExitPrice  float64     `json:"exitPrice"`
	FinalPL    float64     `json:"finalPL"`
	Reason     CloseReason `json:"closeReason"`
	CloseBar   int         `json:"closeBarIndex"`
	CloseTime  time.Time   `json:"closeTime"`
	Duration   int         `json:"duration"`
}

func (t TradeRecord) clone() TradeRecord {
	t.TakeProfit = clonePrice(t.TakeProfit)
	t.StopLoss = clonePrice(t.StopLoss)
	return t
}

func (t TradeRecord) Win() bool  { return t.FinalPL > 0 }
func (t TradeRecord) Loss() bool { return t.FinalPL < 0 }

// JournalRecord converts t to the journal's row format.
func (t TradeRecord) JournalRecord(ticker string) journal.TradeRecord {
	return journal.TradeRecord{
		TradeID:    t.ID,
		OrderID:    t.OrderID,
		Ticker:     ticker,
		Side:       t.Side.String(),
		Size:       t.Size,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		TakeProfit: clonePrice(t.TakeProfit),
		StopLoss:   clonePrice(t.StopLoss),
		OpenBar:    t.OpenBar,
		CloseBar:   t.CloseBar,
		OpenTime:   t.OpenTime,
		CloseTime:  t.CloseTime,
		RealizedPL: t.FinalPL,
		Reason:     string(t.Reason),
	}
}
