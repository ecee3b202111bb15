package sim

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Field names used in ValidationErrors.
const (
	FieldSide       = "side"
	FieldType       = "type"
	FieldSize       = "size"
	FieldEntryPrice = "entryPrice"
	FieldTakeProfit = "takeProfit"
	FieldStopLoss   = "stopLoss"
)

// ValidationErrors maps an order field to what is wrong with it. A
// rejected order leaves the session untouched.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + v[f]
	}
	return "invalid order: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// OrderForm is an order as typed into a form: every value is a string
// and take-profit/stop-loss may be blank.
type OrderForm struct {
	Side       string `json:"side"`
	Type       string `json:"type"`
	Size       string `json:"size"`
	EntryPrice string `json:"entryPrice"`
	TakeProfit string `json:"takeProfit,omitempty"`
	StopLoss   string `json:"stopLoss,omitempty"`
}

// ParseOrderForm converts a form into an OrderRequest. It checks that
// every number parses and is positive; price relationships are checked
// when the order is placed, once the market price is known.
func ParseOrderForm(f OrderForm) (OrderRequest, error) {
	errs := ValidationErrors{}
	var req OrderRequest

	side, err := ParseSide(f.Side)
	if err != nil {
		errs.add(FieldSide, "side must be Buy or Sell")
	}
	req.Side = side

	typ, err := ParseOrderType(f.Type)
	if err != nil {
		errs.add(FieldType, "type must be Market or Limit")
	}
	req.Type = typ

	if v, ok := parsePositive(f.Size); ok {
		req.Size = v
	} else {
		errs.add(FieldSize, "position size must be a positive number")
	}

	if typ != Market {
		if v, ok := parsePositive(f.EntryPrice); ok {
			req.EntryPrice = v
		} else {
			errs.add(FieldEntryPrice, "entry price must be a positive number")
		}
	}

	if strings.TrimSpace(f.TakeProfit) != "" {
		if v, ok := parsePositive(f.TakeProfit); ok {
			req.TakeProfit = &v
		} else {
			errs.add(FieldTakeProfit, "take profit must be a positive number")
		}
	}
	if strings.TrimSpace(f.StopLoss) != "" {
		if v, ok := parsePositive(f.StopLoss); ok {
			req.StopLoss = &v
		} else {
			errs.add(FieldStopLoss, "stop loss must be a positive number")
		}
	}

	if err := errs.orNil(); err != nil {
		return OrderRequest{}, err
	}
	return req, nil
}

// Validate checks the request against entry, the price it would open at
// (the limit price, or the current close for a Market order).
func (r OrderRequest) Validate(entry float64) error {
	errs := ValidationErrors{}

	if r.Side != Buy && r.Side != Sell {
		errs.add(FieldSide, "side must be Buy or Sell")
	}
	if r.Type != Market && r.Type != Limit {
		errs.add(FieldType, "type must be Market or Limit")
	}
	if !positive(r.Size) {
		errs.add(FieldSize, "position size must be a positive number")
	}
	if !positive(entry) {
		errs.add(FieldEntryPrice, "entry price must be a positive number")
	}
	if r.TakeProfit != nil && !positive(*r.TakeProfit) {
		errs.add(FieldTakeProfit, "take profit must be a positive number")
	}
	if r.StopLoss != nil && !positive(*r.StopLoss) {
		errs.add(FieldStopLoss, "stop loss must be a positive number")
	}

	if r.TakeProfit != nil && r.StopLoss != nil && positive(entry) {
		tp, sl := *r.TakeProfit, *r.StopLoss
		switch r.Side {
		case Buy:
			if tp <= entry {
				errs.add(FieldTakeProfit, fmt.Sprintf("take profit must be above entry price %g for a buy", entry))
			}
			if sl >= entry {
				errs.add(FieldStopLoss, fmt.Sprintf("stop loss must be below entry price %g for a buy", entry))
			}
		case Sell:
			if tp >= entry {
				errs.add(FieldTakeProfit, fmt.Sprintf("take profit must be below entry price %g for a sell", entry))
			}
			if sl <= entry {
				errs.add(FieldStopLoss, fmt.Sprintf("stop loss must be above entry price %g for a sell", entry))
			}
		}
	}

	return errs.orNil()
}

func parsePositive(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, positive(v)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
