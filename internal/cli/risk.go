package cli

import (
	"fmt"

	"github.com/rustyeddy/tradesim/risk"
	"github.com/spf13/cobra"
)

func newRiskCmd(rc *RootConfig) *cobra.Command {
	var (
		balance float64
		pct     float64
		entry   float64
		stop    float64
		target  float64
		size    float64
	)

	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Size a position from a risk budget and grade the plan",
		Long: `Work out how many units to buy or sell so that hitting the stop costs
at most --risk-pct of the balance, then check the plan against the
configured risk policy.

Example:
  tradesim risk --entry 50 --stop 48 --target 56`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pol := rc.Config.Risk
			if balance == 0 {
				balance = rc.Config.Session.StartingBalance
			}
			if pct == 0 {
				pct = pol.DefaultRiskPct
			}
			if entry <= 0 || stop <= 0 || entry == stop {
				return fmt.Errorf("--entry and --stop must be positive and different")
			}

			units := size
			if units == 0 {
				units = risk.SizeForRisk(balance, pct, entry, stop)
			}
			if units <= 0 {
				return fmt.Errorf("risk budget too small for one unit")
			}

			var tp *float64
			if target > 0 {
				tp = &target
			}
			plan := risk.Evaluate(pol, balance, units, entry, &stop, tp)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Size:    %g\n", units)
			fmt.Fprintf(out, "Risk:    %.2f (%.2f%% of %.2f)\n", plan.RiskAmount, 100*plan.RiskPct, balance)
			if tp != nil {
				fmt.Fprintf(out, "Reward:  %.2f\n", plan.RewardAmount)
				fmt.Fprintf(out, "R:R:     %.2f\n", plan.RR)
			}
			for _, v := range plan.Violations {
				fmt.Fprintf(out, "! %s: %s\n", v.Code, v.Msg)
			}
			if plan.OK() {
				fmt.Fprintln(out, "✓ Plan within policy")
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&balance, "balance", 0, "account balance (defaults to session.starting_balance)")
	cmd.Flags().Float64Var(&pct, "risk-pct", 0, "fraction of balance to risk (defaults to risk.default_risk_pct)")
	cmd.Flags().Float64Var(&entry, "entry", 0, "entry price")
	cmd.Flags().Float64Var(&stop, "stop", 0, "stop loss price")
	cmd.Flags().Float64Var(&target, "target", 0, "take profit price (optional)")
	cmd.Flags().Float64Var(&size, "size", 0, "grade this size instead of computing one")

	return cmd
}
