package sim

import (
	"math"
	"strconv"
)

// DefaultStartingBalance is the account size a session starts with.
const DefaultStartingBalance = 10_000.0

// RewardRisk is gross profit over gross loss. With winners and no losers
// the ratio is unbounded and Infinite is set instead of Value.
type RewardRisk struct {
	Value    float64 `json:"value"`
	Infinite bool    `json:"infinite"`
}

func (r RewardRisk) String() string {
	if r.Infinite {
		return "∞"
	}
	return strconv.FormatFloat(r.Value, 'f', 2, 64)
}

// Float returns the ratio with +Inf for the unbounded case.
func (r RewardRisk) Float() float64 {
	if r.Infinite {
		return math.Inf(1)
	}
	return r.Value
}

// Stats summarises a trade history.
type Stats struct {
	TotalTrades     int        `json:"totalTrades"`
	Wins            int        `json:"wins"`
	Losses          int        `json:"losses"`
	WinRate         float64    `json:"winRate"`
	AverageRR       RewardRisk `json:"averageRR"`
	GrossProfit     float64    `json:"grossProfit"`
	GrossLoss       float64    `json:"grossLoss"`
	NetPL           float64    `json:"netPL"`
	LargestWin      float64    `json:"largestWin"`
	LargestLoss     float64    `json:"largestLoss"`
	AverageDuration float64    `json:"averageDuration"`
	MaxDrawdown     float64    `json:"maxDrawdown"`
}

// ComputeStats derives performance figures from history. netPL is
// balance minus startingBalance.
func ComputeStats(history []TradeRecord, startingBalance, balance float64) Stats {
	s := Stats{
		TotalTrades: len(history),
		NetPL:       balance - startingBalance,
	}
	if len(history) == 0 {
		return s
	}

	var (
		durations int
		running   = startingBalance
		peak      = startingBalance
	)
	for _, t := range history {
		switch {
		case t.Win():
			s.Wins++
			s.GrossProfit += t.FinalPL
			s.LargestWin = math.Max(s.LargestWin, t.FinalPL)
		case t.Loss():
			s.Losses++
			s.GrossLoss += -t.FinalPL
			s.LargestLoss = math.Min(s.LargestLoss, t.FinalPL)
		}
		durations += t.Duration

		running += t.FinalPL
		peak = math.Max(peak, running)
		s.MaxDrawdown = math.Max(s.MaxDrawdown, peak-running)
	}

	s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100
	s.AverageDuration = float64(durations) / float64(s.TotalTrades)

	switch {
	case s.GrossLoss > 0:
		s.AverageRR = RewardRisk{Value: s.GrossProfit / s.GrossLoss}
	case s.GrossProfit > 0:
		s.AverageRR = RewardRisk{Infinite: true}
	}
	return s
}
