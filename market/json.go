package market

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// stockResponse is the payload returned by the stock data endpoint:
// {"ticker": "AAPL", "data": [{...}, ...]}.
type stockResponse struct {
	Ticker string    `json:"ticker"`
	Error  string    `json:"error"`
	Data   []jsonBar `json:"data"`
}

// jsonBar accepts either "time" (unix seconds or a date string) or the
// "datetime" column pandas produces.
type jsonBar struct {
	Time     json.RawMessage `json:"time"`
	Datetime string          `json:"datetime"`
	Open     float64         `json:"open"`
	High     float64         `json:"high"`
	Low      float64         `json:"low"`
	Close    float64         `json:"close"`
	Volume   float64         `json:"volume"`
}

func (jb jsonBar) unixTime() (int64, error) {
	raw := strings.TrimSpace(string(jb.Time))
	if raw == "" || raw == "null" {
		return ParseTime(jb.Datetime)
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(jb.Time, &s); err != nil {
			return 0, err
		}
		return ParseTime(s)
	}
	return ParseTime(raw)
}

// DecodeJSON reads a stock endpoint payload into a validated Series.
func DecodeJSON(r io.Reader) (Series, error) {
	var resp stockResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return Series{}, fmt.Errorf("decode bars: %w", err)
	}
	if resp.Error != "" {
		return Series{}, fmt.Errorf("stock endpoint: %s", resp.Error)
	}

	s := Series{Ticker: resp.Ticker, Bars: make([]Bar, 0, len(resp.Data))}
	for i, jb := range resp.Data {
		ts, err := jb.unixTime()
		if err != nil {
			return Series{}, fmt.Errorf("bar %d: %w", i, err)
		}
		s.Bars = append(s.Bars, Bar{
			Time:   ts,
			Open:   jb.Open,
			High:   jb.High,
			Low:    jb.Low,
			Close:  jb.Close,
			Volume: jb.Volume,
		})
	}

	s = s.Tail(MaxBars)
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	return s, nil
}

// Load reads bars from a .json or .csv file, chosen by extension.
func Load(path, ticker string) (Series, error) {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		f, err := os.Open(path)
		if err != nil {
			return Series{}, err
		}
		defer f.Close()

		s, err := DecodeJSON(f)
		if err != nil {
			return Series{}, err
		}
		if ticker != "" {
			s.Ticker = ticker
		}
		return s, nil
	}
	return LoadCSV(path, ticker)
}
