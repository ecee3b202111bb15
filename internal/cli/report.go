package cli

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/replay"
)

func sessionReport(runID, dataset string, st replay.State, visible []market.Bar) journal.SessionReport {
	rep := journal.SessionReport{
		RunID:        runID,
		Created:      time.Now(),
		Ticker:       st.Ticker,
		Dataset:      dataset,
		Bars:         st.VisibleCount,
		StartBalance: st.StartingBalance,
		EndBalance:   st.Balance,
		NetPL:        st.Stats.NetPL,
		MaxDrawdown:  st.Stats.MaxDrawdown,
		TradeCount:   st.Stats.TotalTrades,
		Wins:         st.Stats.Wins,
		Losses:       st.Stats.Losses,
		WinRate:      st.Stats.WinRate,
		AverageRR:    st.Stats.AverageRR.String(),
	}
	if st.StartingBalance > 0 {
		rep.ReturnPct = st.Stats.NetPL / st.StartingBalance * 100
	}
	if len(visible) > 0 {
		rep.Start = visible[0].Timestamp()
		rep.End = visible[len(visible)-1].Timestamp()
	}
	for _, t := range st.TradeHistory {
		rep.Trades = append(rep.Trades, t.JournalRecord(st.Ticker))
	}
	if st.ActivePosition != nil {
		rep.Notes = append(rep.Notes, "position still open at the last bar")
	}
	if n := len(st.PendingOrders); n > 0 {
		rep.Notes = append(rep.Notes, fmt.Sprintf("%d limit order(s) never filled", n))
	}
	return rep
}
