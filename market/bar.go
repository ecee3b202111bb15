package market

import (
	"fmt"
	"math"
	"time"
)

// Bar is one OHLCV sample. Time is unix seconds at the bar open.
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume,omitempty"`
}

// Timestamp returns the bar open as a UTC time.
func (b Bar) Timestamp() time.Time {
	return time.Unix(b.Time, 0).UTC()
}

// Validate checks that prices are finite and positive and that the
// open and close sit inside the high/low range.
func (b Bar) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
	} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return fmt.Errorf("bar %d: %s is not finite", b.Time, v.name)
		}
		if v.val <= 0 {
			return fmt.Errorf("bar %d: %s must be positive, got %v", b.Time, v.name, v.val)
		}
	}
	if b.Low > b.High {
		return fmt.Errorf("bar %d: low %v above high %v", b.Time, b.Low, b.High)
	}
	if b.Open < b.Low || b.Open > b.High {
		return fmt.Errorf("bar %d: open %v outside [%v, %v]", b.Time, b.Open, b.Low, b.High)
	}
	if b.Close < b.Low || b.Close > b.High {
		return fmt.Errorf("bar %d: close %v outside [%v, %v]", b.Time, b.Close, b.Low, b.High)
	}
	if b.Volume < 0 || math.IsNaN(b.Volume) {
		return fmt.Errorf("bar %d: volume must be non-negative", b.Time)
	}
	return nil
}
