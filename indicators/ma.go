package indicators

import "github.com/rustyeddy/tradesim/market"

// SMA returns the simple moving average of closes. The first point lines
// up with bar period-1.
func SMA(bars []market.Bar, period int) []Point {
	pts, ok := closes(bars)
	if !ok {
		return nil
	}
	return smaPoints(pts, period)
}

// EMA returns the exponential moving average of closes, seeded with the
// SMA of the first period closes.
func EMA(bars []market.Bar, period int) []Point {
	pts, ok := closes(bars)
	if !ok {
		return nil
	}
	return emaPoints(pts, period)
}

func smaPoints(pts []Point, period int) []Point {
	if !valid(len(pts), period, period) {
		return nil
	}

	out := make([]Point, 0, len(pts)-period+1)
	for i := period - 1; i < len(pts); i++ {
		sum := 0.0
		for _, p := range pts[i-period+1 : i+1] {
			sum += p.Value
		}
		out = append(out, Point{Time: pts[i].Time, Value: sum / float64(period)})
	}
	return out
}

func emaPoints(pts []Point, period int) []Point {
	if !valid(len(pts), period, period) {
		return nil
	}

	k := 2.0 / float64(period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += pts[i].Value
	}
	ema := sum / float64(period)

	out := make([]Point, 0, len(pts)-period+1)
	out = append(out, Point{Time: pts[period-1].Time, Value: ema})
	for i := period; i < len(pts); i++ {
		ema = pts[i].Value*k + ema*(1-k)
		out = append(out, Point{Time: pts[i].Time, Value: ema})
	}
	return out
}
