// Package journal records closed trades and balance snapshots from a
// simulation session.
package journal

import "time"

// TradeRecord is one closed trade as written to the journal.
type TradeRecord struct {
	TradeID    string
	OrderID    string
	Ticker     string
	Side       string
	Size       float64
	EntryPrice float64
	ExitPrice  float64
	TakeProfit *float64
	StopLoss   *float64
	OpenBar    int
	CloseBar   int
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

// EquitySnapshot is the account state after a replay step.
type EquitySnapshot struct {
	Time         time.Time
	BarIndex     int
	Balance      float64
	Equity       float64
	UnrealizedPL float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Discard is a Journal that drops everything.
var Discard Journal = discard{}

type discard struct{}

func (discard) RecordTrade(TradeRecord) error     { return nil }
func (discard) RecordEquity(EquitySnapshot) error { return nil }
func (discard) Close() error                      { return nil }
