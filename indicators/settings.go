package indicators

import "github.com/rustyeddy/tradesim/market"

// Settings is the chart's indicator configuration.
type Settings struct {
	SMA  Spec `json:"sma" yaml:"sma"`
	EMA  Spec `json:"ema" yaml:"ema"`
	RSI  Spec `json:"rsi" yaml:"rsi"`
	MACD Spec `json:"macd" yaml:"macd"`
}

// DefaultSettings matches the chart defaults: everything configured,
// only the moving averages switched on.
func DefaultSettings() Settings {
	return Settings{
		SMA:  Spec{Kind: KindSMA, Enabled: true, Color: "#2962FF", Period: 20},
		EMA:  Spec{Kind: KindEMA, Enabled: true, Color: "#FF6D00", Period: 20},
		RSI:  Spec{Kind: KindRSI, Color: "#7E57C2", Period: DefaultRSIPeriod},
		MACD: Spec{Kind: KindMACD, Color: "#26A69A", Fast: DefaultMACDFast, Slow: DefaultMACDSlow, Signal: DefaultMACDSignal},
	}
}

// Specs returns the four specs in display order. Kinds are forced to
// match their slot so a config file can omit them.
func (s Settings) Specs() []Spec {
	sma, ema, rsi, macd := s.SMA, s.EMA, s.RSI, s.MACD
	sma.Kind, ema.Kind, rsi.Kind, macd.Kind = KindSMA, KindEMA, KindRSI, KindMACD
	return []Spec{sma, ema, rsi, macd}
}

// Validate checks every enabled spec.
func (s Settings) Validate() error {
	for _, sp := range s.Specs() {
		if !sp.Enabled {
			continue
		}
		if err := sp.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Overlays computes every enabled indicator over bars.
func (s Settings) Overlays(bars []market.Bar) []Result {
	var out []Result
	for _, sp := range s.Specs() {
		if !sp.Enabled {
			continue
		}
		out = append(out, Compute(sp, bars))
	}
	return out
}
