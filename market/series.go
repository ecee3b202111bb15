package market

import (
	"errors"
	"fmt"
)

// MaxBars caps how many bars a single series may carry. The data
// endpoint the simulator was built against never returns more.
const MaxBars = 999

var ErrEmptySeries = errors.New("series has no bars")

// Series is an ordered run of bars for one ticker.
type Series struct {
	Ticker string `json:"ticker"`
	Bars   []Bar  `json:"data"`
}

func (s Series) Len() int { return len(s.Bars) }

// Validate checks every bar and that times are strictly increasing.
func (s Series) Validate() error {
	if len(s.Bars) == 0 {
		return ErrEmptySeries
	}
	for i, b := range s.Bars {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bar %d: %w", i, err)
		}
		if i > 0 && b.Time <= s.Bars[i-1].Time {
			return fmt.Errorf("bar %d: time %d not after %d", i, b.Time, s.Bars[i-1].Time)
		}
	}
	return nil
}

// Tail returns a series holding at most the last n bars. The bar slice
// is copied so callers can't alias the original.
func (s Series) Tail(n int) Series {
	bars := s.Bars
	if n >= 0 && len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	out := Series{Ticker: s.Ticker, Bars: make([]Bar, len(bars))}
	copy(out.Bars, bars)
	return out
}

// Window returns the visible prefix [0, count). count is clamped to the
// series length.
func (s Series) Window(count int) []Bar {
	if count < 0 {
		count = 0
	}
	if count > len(s.Bars) {
		count = len(s.Bars)
	}
	return s.Bars[:count]
}
