package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadCSV reads bars in the form
//
//	time,open,high,low,close[,volume]
//
// A single header row ("time,...") is allowed and empty rows are skipped.
// The returned series is validated and capped at MaxBars.
func ReadCSV(r io.Reader, ticker string) (Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	s := Series{Ticker: ticker}
	first := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Series{}, err
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		b, err := parseBarRow(row)
		if err != nil {
			return Series{}, err
		}
		s.Bars = append(s.Bars, b)
	}

	s = s.Tail(MaxBars)
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	return s, nil
}

// LoadCSV opens path and reads it with ReadCSV.
func LoadCSV(path, ticker string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, err
	}
	defer f.Close()

	return ReadCSV(f, ticker)
}

func parseBarRow(row []string) (Bar, error) {
	if len(row) < 5 {
		return Bar{}, fmt.Errorf("bad row (need time,open,high,low,close): %v", row)
	}

	ts, err := ParseTime(row[0])
	if err != nil {
		return Bar{}, err
	}

	var vals [5]float64
	names := [...]string{"open", "high", "low", "close", "volume"}
	for i := 0; i < 5; i++ {
		col := i + 1
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			if i == 4 {
				break
			}
			return Bar{}, fmt.Errorf("missing %s in row %v", names[i], row)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad %s %q: %w", names[i], row[col], err)
		}
		vals[i] = v
	}

	return Bar{
		Time:   ts,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
