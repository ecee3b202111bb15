package indicators

import "github.com/rustyeddy/tradesim/market"

const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// MACDResult holds the three MACD series. All three have the same length
// and share timestamps.
type MACDResult struct {
	MACD      []Point `json:"macdLine"`
	Signal    []Point `json:"signalLine"`
	Histogram []Point `json:"histogram"`
}

// Empty reports whether there was not enough data to compute anything.
func (r MACDResult) Empty() bool { return len(r.Signal) == 0 }

// MACD computes the moving average convergence/divergence of closes. It
// needs 0 < fast < slow, signal > 0 and at least slow+signal bars.
func MACD(bars []market.Bar, fast, slow, signal int) MACDResult {
	if fast <= 0 || fast >= slow || signal <= 0 {
		return MACDResult{}
	}
	pts, ok := closes(bars)
	if !ok || !valid(len(pts), slow, slow+signal) {
		return MACDResult{}
	}

	fastEMA := emaPoints(pts, fast)
	slowEMA := emaPoints(pts, slow)

	// The slow EMA starts slow-fast bars after the fast one.
	offset := slow - fast
	line := make([]Point, 0, len(slowEMA))
	for i, s := range slowEMA {
		fi := i + offset
		if fi >= len(fastEMA) {
			break
		}
		line = append(line, Point{Time: s.Time, Value: fastEMA[fi].Value - s.Value})
	}

	sig := emaPoints(line, signal)
	if len(sig) == 0 {
		return MACDResult{}
	}

	hist := make([]Point, 0, len(sig))
	for i, s := range sig {
		mi := i + signal - 1
		if mi >= len(line) {
			break
		}
		hist = append(hist, Point{Time: s.Time, Value: line[mi].Value - s.Value})
	}

	return MACDResult{
		MACD:      line[signal-1:],
		Signal:    sig,
		Histogram: hist,
	}
}
