package indicators

import "github.com/rustyeddy/tradesim/market"

const DefaultRSIPeriod = 14

// RSI returns Wilder's relative strength index. It needs period+1 bars and
// the first point lines up with bar period. A window with no losses
// reads 100.
func RSI(bars []market.Bar, period int) []Point {
	pts, ok := closes(bars)
	if !ok || !valid(len(pts), period, period+1) {
		return nil
	}

	gains := make([]float64, len(pts)-1)
	losses := make([]float64, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		change := pts[i].Value - pts[i-1].Value
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]Point, 0, len(pts)-period)
	out = append(out, Point{Time: pts[period].Time, Value: rsiValue(avgGain, avgLoss)})

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		out = append(out, Point{Time: pts[i+1].Time, Value: rsiValue(avgGain, avgLoss)})
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
