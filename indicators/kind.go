package indicators

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/tradesim/market"
)

// Kind selects an indicator calculation.
type Kind int

const (
	KindSMA Kind = iota + 1
	KindEMA
	KindRSI
	KindMACD
)

func (k Kind) String() string {
	switch k {
	case KindSMA:
		return "sma"
	case KindEMA:
		return "ema"
	case KindRSI:
		return "rsi"
	case KindMACD:
		return "macd"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText writes the zero Kind as an empty string, so settings that
// leave the kind to their slot round-trip.
func (k Kind) MarshalText() ([]byte, error) {
	if k == 0 {
		return []byte{}, nil
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*k = 0
		return nil
	}
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseKind maps a case-insensitive name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sma":
		return KindSMA, nil
	case "ema":
		return KindEMA, nil
	case "rsi":
		return KindRSI, nil
	case "macd":
		return KindMACD, nil
	}
	return 0, fmt.Errorf("unknown indicator %q", s)
}

// Spec configures one indicator. Period is used by SMA, EMA and RSI;
// Fast, Slow and Signal by MACD.
type Spec struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Color   string `json:"color,omitempty" yaml:"color,omitempty"`
	Period  int    `json:"period,omitempty" yaml:"period,omitempty"`
	Fast    int    `json:"fastPeriod,omitempty" yaml:"fast_period,omitempty"`
	Slow    int    `json:"slowPeriod,omitempty" yaml:"slow_period,omitempty"`
	Signal  int    `json:"signalPeriod,omitempty" yaml:"signal_period,omitempty"`
}

// Name returns a label such as "SMA(20)" or "MACD(12,26,9)".
func (s Spec) Name() string {
	switch s.Kind {
	case KindMACD:
		return fmt.Sprintf("MACD(%d,%d,%d)", s.Fast, s.Slow, s.Signal)
	default:
		return fmt.Sprintf("%s(%d)", strings.ToUpper(s.Kind.String()), s.Period)
	}
}

// Validate checks the periods the kind depends on.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindSMA, KindEMA, KindRSI:
		if s.Period <= 0 {
			return fmt.Errorf("%s: period must be positive", s.Kind)
		}
	case KindMACD:
		if s.Fast <= 0 || s.Slow <= 0 || s.Signal <= 0 {
			return fmt.Errorf("macd: periods must be positive")
		}
		if s.Fast >= s.Slow {
			return fmt.Errorf("macd: fast period must be below slow period")
		}
	default:
		return fmt.Errorf("unknown indicator kind %d", int(s.Kind))
	}
	return nil
}

// Result is one computed indicator. Series is set for single-line
// indicators and MACD for MACD.
type Result struct {
	Name   string      `json:"name"`
	Kind   Kind        `json:"kind"`
	Color  string      `json:"color,omitempty"`
	Series []Point     `json:"series,omitempty"`
	MACD   *MACDResult `json:"macd,omitempty"`
}

// Empty reports whether the indicator had too little data.
func (r Result) Empty() bool {
	if r.MACD != nil {
		return r.MACD.Empty()
	}
	return len(r.Series) == 0
}

// Compute runs the indicator described by spec over bars.
func Compute(spec Spec, bars []market.Bar) Result {
	res := Result{Name: spec.Name(), Kind: spec.Kind, Color: spec.Color}
	switch spec.Kind {
	case KindSMA:
		res.Series = SMA(bars, spec.Period)
	case KindEMA:
		res.Series = EMA(bars, spec.Period)
	case KindRSI:
		res.Series = RSI(bars, spec.Period)
	case KindMACD:
		m := MACD(bars, spec.Fast, spec.Slow, spec.Signal)
		res.MACD = &m
	}
	return res
}
