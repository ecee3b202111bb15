// Package risk sizes positions and grades an order's planned risk
// against a policy.
package risk

import (
	"fmt"
	"math"
)

// Policy holds the limits a planned trade is checked against. RiskPct
// values are fractions of the balance (0.01 = 1%).
type Policy struct {
	DefaultRiskPct float64 `json:"default_risk_pct" yaml:"default_risk_pct"`
	MaxRiskPct     float64 `json:"max_risk_pct" yaml:"max_risk_pct"`
	MinRR          float64 `json:"min_rr" yaml:"min_rr"`
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultRiskPct: 0.01,
		MaxRiskPct:     0.02,
		MinRR:          1.5,
	}
}

type Violation struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Plan describes what a trade stands to lose and gain if its stop or
// target is hit. Amounts are zero when the level is not set. NoBalance
// is set, and RiskPct left at zero, when there is no balance to measure
// the risk against.
type Plan struct {
	RiskAmount   float64     `json:"riskAmount"`
	RewardAmount float64     `json:"rewardAmount"`
	RiskPct      float64     `json:"riskPct"`
	NoBalance    bool        `json:"noBalance,omitempty"`
	RR           float64     `json:"rr"`
	Violations   []Violation `json:"violations,omitempty"`
}

func (p *Plan) add(code, msg string) {
	p.Violations = append(p.Violations, Violation{Code: code, Msg: msg})
}

// OK reports whether the plan passed every check.
func (p Plan) OK() bool { return len(p.Violations) == 0 }

// PlannedRisk is the loss on size units if price moves from entry to stop.
func PlannedRisk(size, entry, stop float64) float64 {
	return size * math.Abs(entry-stop)
}

// RR is reward over risk for the given levels, or 0 without risk.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}

// RiskPct is amount as a fraction of balance. ok is false when balance
// is zero or negative.
func RiskPct(amount, balance float64) (pct float64, ok bool) {
	if balance <= 0 {
		return 0, false
	}
	return amount / balance, true
}

// SizeForRisk returns the whole number of units that loses at most
// riskPct of balance between entry and stop.
func SizeForRisk(balance, riskPct, entry, stop float64) float64 {
	perUnit := math.Abs(entry - stop)
	if perUnit == 0 || balance <= 0 || riskPct <= 0 {
		return 0
	}
	return math.Floor(balance * riskPct / perUnit)
}

// Evaluate builds the plan for a trade and checks it against pol.
func Evaluate(pol Policy, balance, size, entry float64, stop, takeProfit *float64) Plan {
	var p Plan

	if stop == nil {
		p.add("NO_STOP", "no stop loss: risk is unbounded")
	} else {
		p.RiskAmount = PlannedRisk(size, entry, *stop)
		pct, ok := RiskPct(p.RiskAmount, balance)
		p.RiskPct = pct
		switch {
		case !ok:
			p.NoBalance = true
			p.add("RISK_TOO_HIGH", fmt.Sprintf("balance %.2f leaves no room for risk", balance))
		case pct > pol.MaxRiskPct:
			p.add("RISK_TOO_HIGH", fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%",
				100*pct, 100*pol.MaxRiskPct))
		}
	}

	if takeProfit != nil {
		p.RewardAmount = size * math.Abs(*takeProfit-entry)
	}
	if stop != nil && takeProfit != nil {
		p.RR = RR(entry, *stop, *takeProfit)
		if p.RR < pol.MinRR {
			p.add("RR_TOO_LOW", fmt.Sprintf("RR %.2f below minimum %.2f", p.RR, pol.MinRR))
		}
	}
	return p
}
