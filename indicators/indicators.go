// Package indicators computes technical indicator series over bars.
//
// Every function is pure and tolerant of short input: too few bars, a bad
// period or a non-finite close produce an empty series rather than an error.
package indicators

import (
	"math"

	"github.com/rustyeddy/tradesim/market"
)

// Point is one indicator value aligned to the time of the bar it was
// computed on.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// closes converts bars to points carrying the close price. It returns false
// if any close is not finite.
func closes(bars []market.Bar) ([]Point, bool) {
	pts := make([]Point, len(bars))
	for i, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			return nil, false
		}
		pts[i] = Point{Time: b.Time, Value: b.Close}
	}
	return pts, true
}

// valid reports whether period and data length allow a computation that
// needs at least minLen points.
func valid(n, period, minLen int) bool {
	return n > 0 && period > 0 && period <= n && n >= minLen
}
