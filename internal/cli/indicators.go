package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/tradesim/indicators"
	"github.com/spf13/cobra"
)

func newIndicatorsCmd(rc *RootConfig) *cobra.Command {
	var (
		barsPath string
		ticker   string
		kind     string
		period   int
		fast     int
		slow     int
		signal   int
		last     int
	)

	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "Compute indicator overlays for a bar file",
		Long: `Compute SMA, EMA, RSI or MACD over a bar file. Without --kind every
indicator enabled in the config is printed.

Examples:
  tradesim indicators --bars aapl.csv
  tradesim indicators --bars aapl.csv --kind rsi --period 7 --last 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := rc.loadBars(barsPath, ticker)
			if err != nil {
				return err
			}

			var results []indicators.Result
			if kind == "" {
				if err := rc.Config.Indicators.Validate(); err != nil {
					return err
				}
				results = rc.Config.Indicators.Overlays(series.Bars)
			} else {
				k, err := indicators.ParseKind(kind)
				if err != nil {
					return err
				}
				spec := indicators.Spec{Kind: k, Enabled: true, Period: period, Fast: fast, Slow: slow, Signal: signal}
				if err := spec.Validate(); err != nil {
					return err
				}
				results = []indicators.Result{indicators.Compute(spec, series.Bars)}
			}

			out := cmd.OutOrStdout()
			for i, r := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if err := writeResult(out, r, last); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&barsPath, "bars", "", "bar file (.csv or .json)")
	cmd.Flags().StringVar(&ticker, "ticker", "", "ticker symbol")
	cmd.Flags().StringVar(&kind, "kind", "", "sma|ema|rsi|macd (default: configured overlays)")
	cmd.Flags().IntVar(&period, "period", 14, "period for sma, ema and rsi")
	cmd.Flags().IntVar(&fast, "fast", indicators.DefaultMACDFast, "MACD fast period")
	cmd.Flags().IntVar(&slow, "slow", indicators.DefaultMACDSlow, "MACD slow period")
	cmd.Flags().IntVar(&signal, "signal", indicators.DefaultMACDSignal, "MACD signal period")
	cmd.Flags().IntVar(&last, "last", 0, "only print the last N points (0 = all)")
	_ = cmd.MarkFlagRequired("bars")

	return cmd
}

func writeResult(w io.Writer, r indicators.Result, last int) error {
	fmt.Fprintf(w, "* %s\n", r.Name)
	if r.Empty() {
		fmt.Fprintln(w, "not enough bars")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if r.MACD != nil {
		fmt.Fprintln(tw, "time\tmacd\tsignal\thistogram")
		m := r.MACD
		for i := tailStart(len(m.Signal), last); i < len(m.Signal); i++ {
			fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\n",
				stamp(m.Signal[i].Time), m.MACD[i].Value, m.Signal[i].Value, m.Histogram[i].Value)
		}
		return tw.Flush()
	}

	fmt.Fprintln(tw, "time\t"+strings.ToLower(r.Kind.String()))
	for _, p := range r.Series[tailStart(len(r.Series), last):] {
		fmt.Fprintf(tw, "%s\t%.4f\n", stamp(p.Time), p.Value)
	}
	return tw.Flush()
}

func tailStart(n, last int) int {
	if last <= 0 || last >= n {
		return 0
	}
	return n - last
}

func stamp(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}
