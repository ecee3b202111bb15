package indicators

import (
	"math"
	"testing"

	"github.com/rustyeddy/tradesim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func barsFromCloses(closes ...float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{Time: int64(i + 1), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func createTestBars() []market.Bar {
	return barsFromCloses(102, 105, 106, 108, 110, 111, 113, 114, 116, 118)
}

func values(pts []Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}

func TestSMA(t *testing.T) {
	t.Parallel()

	sma := SMA(createTestBars(), 5)
	require.Len(t, sma, 6)
	// First window: 102,105,106,108,110 => 531/5
	assert.InDelta(t, 106.2, sma[0].Value, 1e-9)
	assert.Equal(t, int64(5), sma[0].Time)
	// Last window: 111,113,114,116,118 => 572/5
	assert.InDelta(t, 114.4, sma[5].Value, 1e-9)
	assert.Equal(t, int64(10), sma[5].Time)
}

func TestSMAPeriodOneIsIdentity(t *testing.T) {
	t.Parallel()

	bars := barsFromCloses(0.1, 0.2, 0.3, 1.7, 2.9)
	sma := SMA(bars, 1)
	require.Len(t, sma, len(bars))
	for i, b := range bars {
		assert.Equal(t, b.Close, sma[i].Value)
		assert.Equal(t, b.Time, sma[i].Time)
	}
}

func TestEMA(t *testing.T) {
	t.Parallel()

	bars := barsFromCloses(1, 2, 3, 4, 5)
	ema := EMA(bars, 3)
	require.Len(t, ema, 3)

	// seed = mean(1,2,3) = 2, k = 0.5
	assert.InDelta(t, 2.0, ema[0].Value, 1e-12)
	assert.InDelta(t, 3.0, ema[1].Value, 1e-12) // 4*0.5 + 2*0.5
	assert.InDelta(t, 4.0, ema[2].Value, 1e-12) // 5*0.5 + 3*0.5
	assert.Equal(t, int64(3), ema[0].Time)
}

func TestRSI(t *testing.T) {
	t.Parallel()

	// deltas: +1, -1, +2, -1 ; period 2
	bars := barsFromCloses(10, 11, 10, 12, 11)
	rsi := RSI(bars, 2)
	require.Len(t, rsi, 3)
	assert.Equal(t, int64(3), rsi[0].Time, "first RSI aligns to bar index period")

	// seed: avgGain 0.5, avgLoss 0.5 => 50
	assert.InDelta(t, 50.0, rsi[0].Value, 1e-9)
	// gain 2: avgGain (0.5+2)/2 = 1.25, avgLoss 0.25 => rs 5 => 83.333
	assert.InDelta(t, 100-100/6.0, rsi[1].Value, 1e-9)
	// loss 1: avgGain 0.625, avgLoss 0.625 => 50
	assert.InDelta(t, 50.0, rsi[2].Value, 1e-9)
}

func TestRSIConstantPrice(t *testing.T) {
	t.Parallel()

	rsi := RSI(barsFromCloses(5, 5, 5, 5, 5, 5), 3)
	require.NotEmpty(t, rsi)
	for _, p := range rsi {
		assert.Equal(t, 100.0, p.Value)
	}
}

func TestMACDLengthsAlign(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/5)
	}
	m := MACD(barsFromCloses(closes...), DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	require.False(t, m.Empty())

	// slow EMA yields 60-26+1 = 35 points; signal yields 35-9+1 = 27.
	assert.Len(t, m.Signal, 27)
	assert.Len(t, m.Histogram, len(m.Signal))
	assert.Len(t, m.MACD, len(m.Signal))

	for i := range m.Signal {
		assert.Equal(t, m.Signal[i].Time, m.MACD[i].Time)
		assert.Equal(t, m.Signal[i].Time, m.Histogram[i].Time)
		assert.InDelta(t, m.MACD[i].Value-m.Signal[i].Value, m.Histogram[i].Value, 1e-12)
	}
}

func TestMACDMatchesEMADifference(t *testing.T) {
	t.Parallel()

	bars := barsFromCloses(1, 3, 2, 5, 4, 6, 8, 7, 9, 12)
	m := MACD(bars, 2, 4, 3)
	require.False(t, m.Empty())

	fast := values(EMA(bars, 2))
	slow := values(EMA(bars, 4))
	// macd[j] (untrimmed) = fast[j+2] - slow[j]; trimmed by signal-1 = 2
	for i, p := range m.MACD {
		j := i + 2
		assert.InDelta(t, fast[j+2]-slow[j], p.Value, 1e-12)
	}
}

func TestInsufficientData(t *testing.T) {
	t.Parallel()

	for n := 0; n < 5; n++ {
		bars := createTestBars()[:n]
		assert.Empty(t, SMA(bars, 5), "sma n=%d", n)
		assert.Empty(t, EMA(bars, 5), "ema n=%d", n)
		assert.Empty(t, RSI(bars, 5), "rsi n=%d", n)
		assert.True(t, MACD(bars, 2, 5, 3).Empty(), "macd n=%d", n)
	}

	// RSI needs period+1 bars.
	assert.Empty(t, RSI(createTestBars()[:5], 5))
	// MACD needs slow+signal bars.
	assert.True(t, MACD(createTestBars()[:7], 2, 5, 3).Empty())
	assert.False(t, MACD(createTestBars()[:8], 2, 5, 3).Empty())
}

func TestInvalidInput(t *testing.T) {
	t.Parallel()

	bars := createTestBars()
	assert.Empty(t, SMA(bars, 0))
	assert.Empty(t, EMA(bars, -1))
	assert.Empty(t, SMA(bars, len(bars)+1))

	assert.True(t, MACD(bars, 5, 5, 2).Empty(), "fast must be below slow")
	assert.True(t, MACD(bars, 2, 5, 0).Empty(), "signal must be positive")

	bad := createTestBars()
	bad[3].Close = math.NaN()
	assert.Empty(t, SMA(bad, 2))
	assert.Empty(t, RSI(bad, 2))
}
