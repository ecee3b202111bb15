package sim

import "github.com/rustyeddy/tradesim/market"

func hitTakeProfit(p Position, bar market.Bar) bool {
	if p.TakeProfit == nil {
		return false
	}
	if p.Side == Buy {
		return bar.High >= *p.TakeProfit
	}
	return bar.Low <= *p.TakeProfit
}

func hitStopLoss(p Position, bar market.Bar) bool {
	if p.StopLoss == nil {
		return false
	}
	if p.Side == Buy {
		return bar.Low <= *p.StopLoss
	}
	return bar.High >= *p.StopLoss
}

// checkExit tests the bar's range against take-profit first, then
// stop-loss. The exit fills at the trigger level.
func checkExit(p Position, bar market.Bar) (exit float64, reason CloseReason, hit bool) {
	if hitTakeProfit(p, bar) {
		return *p.TakeProfit, TakeProfit, true
	}
	if hitStopLoss(p, bar) {
		return *p.StopLoss, StopLoss, true
	}
	return 0, "", false
}
