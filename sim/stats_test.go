package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func trade(pl float64, duration int) TradeRecord {
	return TradeRecord{FinalPL: pl, Duration: duration}
}

func TestComputeStatsEmpty(t *testing.T) {
	t.Parallel()
	s := ComputeStats(nil, 10_000, 10_000)
	assert.Zero(t, s.TotalTrades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.NetPL)
	assert.False(t, s.AverageRR.Infinite)
	assert.Equal(t, "0.00", s.AverageRR.String())
}

func TestComputeStatsOnlyWinners(t *testing.T) {
	t.Parallel()
	s := ComputeStats([]TradeRecord{trade(2, 1), trade(3, 3)}, 100, 105)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 100.0, s.WinRate)
	assert.True(t, s.AverageRR.Infinite)
	assert.Equal(t, "∞", s.AverageRR.String())
	assert.True(t, math.IsInf(s.AverageRR.Float(), 1))
	assert.Equal(t, 2.0, s.AverageDuration)
	assert.Zero(t, s.MaxDrawdown)
}

func TestComputeStatsMixed(t *testing.T) {
	t.Parallel()
	history := []TradeRecord{trade(4, 2), trade(-1, 1), trade(-2, 1), trade(0, 0), trade(3, 4)}
	s := ComputeStats(history, 100, 104)

	assert.Equal(t, 5, s.TotalTrades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.InDelta(t, 40.0, s.WinRate, 1e-9)
	assert.InDelta(t, 7.0/3.0, s.AverageRR.Value, 1e-9)
	assert.Equal(t, "2.33", s.AverageRR.String())
	assert.Equal(t, 4.0, s.LargestWin)
	assert.Equal(t, -2.0, s.LargestLoss)
	assert.Equal(t, 4.0, s.NetPL)
	assert.Equal(t, 3.0, s.MaxDrawdown)
	assert.InDelta(t, 1.6, s.AverageDuration, 1e-9)
}

func TestUnrealizedPL(t *testing.T) {
	t.Parallel()
	long := Position{Side: Buy, Size: 2, EntryPrice: 10}
	short := Position{Side: Sell, Size: 2, EntryPrice: 10}

	assert.Equal(t, 4.0, UnrealizedPL(long, 12))
	assert.Equal(t, -4.0, UnrealizedPL(short, 12))
	assert.Equal(t, 2.0, UnrealizedPL(short, 9))
}

func TestCursor(t *testing.T) {
	t.Parallel()
	var c Cursor
	assert.Equal(t, -1, c.Index())
	assert.False(t, c.Forward())
	assert.False(t, c.AtEnd())

	c.Reset(2)
	assert.Equal(t, 1, c.Visible())
	assert.False(t, c.Backward())
	assert.True(t, c.Forward())
	assert.True(t, c.AtEnd())
	assert.False(t, c.Forward())
	assert.Equal(t, 1, c.Index())
	assert.True(t, c.Backward())
	assert.Equal(t, 1, c.Visible())
}

func TestParseOrderForm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		form   OrderForm
		fields []string
	}{
		{"valid limit", OrderForm{Side: "buy", Type: "limit", Size: "1", EntryPrice: "10"}, nil},
		{"market ignores entry", OrderForm{Side: "Sell", Type: "Market", Size: "0.5", EntryPrice: "junk"}, nil},
		{"blank tp and sl", OrderForm{Side: "Buy", Type: "Limit", Size: "1", EntryPrice: "10", TakeProfit: " ", StopLoss: ""}, nil},
		{"bad everything", OrderForm{Side: "", Type: "stop", Size: "-1", EntryPrice: "0"}, []string{FieldSide, FieldType, FieldSize, FieldEntryPrice}},
		{"bad tp", OrderForm{Side: "Buy", Type: "Limit", Size: "1", EntryPrice: "10", TakeProfit: "abc"}, []string{FieldTakeProfit}},
		{"nan size", OrderForm{Side: "Buy", Type: "Market", Size: "NaN"}, []string{FieldSize}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseOrderForm(tt.form)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			verrs, ok := err.(ValidationErrors)
			if assert.True(t, ok, "want ValidationErrors, got %v", err) {
				assert.Len(t, verrs, len(tt.fields))
				for _, f := range tt.fields {
					assert.Contains(t, verrs, f)
				}
			}
		})
	}
}
