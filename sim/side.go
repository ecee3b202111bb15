package sim

import (
	"fmt"
	"strings"
)

// Side is the direction of an order or position.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	}
	return fmt.Sprintf("Side(%d)", int8(s))
}

// Sign is +1 for Buy and -1 for Sell.
func (s Side) Sign() float64 { return float64(s) }

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSide accepts buy/sell (also long/short) in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long":
		return Buy, nil
	case "sell", "short":
		return Sell, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// OrderType is Market or Limit.
type OrderType int8

const (
	Market OrderType = iota + 1
	Limit
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "Market"
	case Limit:
		return "Limit"
	}
	return fmt.Sprintf("OrderType(%d)", int8(t))
}

func (t OrderType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *OrderType) UnmarshalText(b []byte) error {
	v, err := ParseOrderType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "market":
		return Market, nil
	case "limit":
		return Limit, nil
	}
	return 0, fmt.Errorf("unknown order type %q", s)
}

// CloseReason says why a position was closed.
type CloseReason string

const (
	TakeProfit  CloseReason = "TakeProfit"
	StopLoss    CloseReason = "StopLoss"
	ManualClose CloseReason = "ManualClose"
)
