package journal

import (
	"io"
	"text/template"
	"time"
)

// SessionReport summarises one replay session for an Org-mode journal.
type SessionReport struct {
	RunID   string
	Created time.Time
	Ticker  string
	Dataset string

	Start time.Time
	End   time.Time
	Bars  int

	StartBalance float64
	EndBalance   float64
	NetPL        float64
	ReturnPct    float64
	MaxDrawdown  float64

	TradeCount int
	Wins       int
	Losses     int
	WinRate    float64
	AverageRR  string

	Trades []TradeRecord
	Notes  []string
}

var sessionOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"held": func(t TradeRecord) int { return t.CloseBar - t.OpenBar },
}

var sessionOrgTmpl = template.Must(template.New("session").Funcs(sessionOrgFuncs).Parse(SessionOrgTemplate))

// WriteOrg renders the report as an Org-mode entry.
func (r SessionReport) WriteOrg(w io.Writer) error {
	return sessionOrgTmpl.Execute(w, r)
}

const SessionOrgTemplate = `* REPLAY: {{.Ticker}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:TICKER:      {{.Ticker}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:BARS:        {{.Bars}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD:      {{printf "%.2f" .MaxDrawdown}}
:TRADES:      {{.TradeCount}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:AVG_RR:      {{.AverageRR}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:      *{{printf "%.2f" .NetPL}}*
- Return:       *{{printf "%.2f" .ReturnPct}}%*
- Win Rate:     *{{printf "%.2f" .WinRate}}%*
- Reward/Risk:  *{{.AverageRR}}*

** Trades
| Side | Size | Entry | Exit | Bars | P/L | Reason |
|------+------+-------+------+------+-----+--------|
{{- range .Trades }}
| {{.Side}} | {{.Size}} | {{printf "%.4f" .EntryPrice}} | {{printf "%.4f" .ExitPrice}} | {{held .}} | {{printf "%.2f" .RealizedPL}} | {{.Reason}} |
{{- end }}

{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
