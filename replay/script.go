package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rustyeddy/tradesim/sim"
	"go.uber.org/zap"
)

// ScriptEvent is one row of a replay script: an action taken once Bar
// bars are visible.
type ScriptEvent struct {
	Bar   int
	Event string
	Args  []string
}

// ParseScript reads a CSV script.
//
// Format:
//
//	bar,event,arg1,arg2,...
//
// Events (case-insensitive):
//
//	PLACE:  side,type,size[,entry[,takeProfit[,stopLoss]]]
//	CANCEL: n, the 1-based PLACE row to cancel
//	CLOSE:  no args
//
// Bars must not decrease. A header row starting with "bar" is skipped.
func ParseScript(r io.Reader) ([]ScriptEvent, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var (
		events []ScriptEvent
		line   int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "bar") {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: need at least bar,event: %v", line, row)
		}

		bar, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil || bar < 1 {
			return nil, fmt.Errorf("row %d: bad bar %q", line, row[0])
		}
		if n := len(events); n > 0 && bar < events[n-1].Bar {
			return nil, fmt.Errorf("row %d: bar %d before bar %d", line, bar, events[n-1].Bar)
		}

		ev := ScriptEvent{Bar: bar, Event: strings.ToUpper(strings.TrimSpace(row[1]))}
		for _, a := range row[2:] {
			ev.Args = append(ev.Args, strings.TrimSpace(a))
		}
		if err := ev.check(); err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		events = append(events, ev)
	}
}

// LoadScript parses the script at path.
func LoadScript(path string) ([]ScriptEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseScript(f)
}

func (ev ScriptEvent) check() error {
	switch ev.Event {
	case "PLACE":
		if len(ev.Args) < 3 {
			return errors.New("PLACE: need side,type,size")
		}
	case "CANCEL":
		if len(ev.Args) < 1 {
			return errors.New("CANCEL: need the PLACE number")
		}
		if _, err := strconv.Atoi(ev.Args[0]); err != nil {
			return fmt.Errorf("CANCEL: bad number %q", ev.Args[0])
		}
	case "CLOSE":
	default:
		return fmt.Errorf("unknown event %q", ev.Event)
	}
	return nil
}

func (ev ScriptEvent) orderForm() sim.OrderForm {
	arg := func(i int) string {
		if i < len(ev.Args) {
			return ev.Args[i]
		}
		return ""
	}
	return sim.OrderForm{
		Side:       arg(0),
		Type:       arg(1),
		Size:       arg(2),
		EntryPrice: arg(3),
		TakeProfit: arg(4),
		StopLoss:   arg(5),
	}
}

// ScriptOptions controls RunScript.
type ScriptOptions struct {
	// ToEnd keeps stepping after the last event until the series ends.
	ToEnd bool
	// StopOnError aborts on a rejected order instead of skipping it.
	StopOnError bool
}

// RunScript steps p forward and applies each event when its bar is
// visible. Steps go through the player so listeners see every bar.
func RunScript(ctx context.Context, p *Player, events []ScriptEvent, opts ScriptOptions) error {
	var placed []string

	for _, ev := range events {
		if err := stepUntil(ctx, p, ev.Bar); err != nil {
			return err
		}

		err := applyEvent(ctx, p, ev, &placed)
		if err == nil {
			continue
		}
		if opts.StopOnError || isFatal(err) {
			return fmt.Errorf("bar %d %s: %w", ev.Bar, ev.Event, err)
		}
		p.logger.Warn("script event rejected",
			zap.Int("bar", ev.Bar),
			zap.String("event", ev.Event),
			zap.Error(err),
		)
	}

	if !opts.ToEnd {
		return nil
	}
	for {
		moved, err := p.StepForward(ctx)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
	}
}

func stepUntil(ctx context.Context, p *Player, bar int) error {
	for {
		st, err := p.Snapshot(ctx)
		if err != nil {
			return err
		}
		if st.VisibleCount >= bar {
			return nil
		}
		moved, err := p.StepForward(ctx)
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("script wants bar %d but the series has %d", bar, st.TotalBars)
		}
	}
}

func applyEvent(ctx context.Context, p *Player, ev ScriptEvent, placed *[]string) error {
	switch ev.Event {
	case "PLACE":
		o, err := p.Place(ctx, ev.orderForm())
		// Keep numbering aligned with PLACE rows even when one is rejected.
		*placed = append(*placed, o.ID)
		return err

	case "CANCEL":
		n, _ := strconv.Atoi(ev.Args[0])
		if n < 1 || n > len(*placed) {
			return fmt.Errorf("no PLACE number %d", n)
		}
		_, err := p.Cancel(ctx, (*placed)[n-1])
		return err

	case "CLOSE":
		_, err := p.Close(ctx)
		return err
	}
	return fmt.Errorf("unknown event %q", ev.Event)
}

func isFatal(err error) bool {
	return errors.Is(err, ErrStopped) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, sim.ErrNoSeries)
}
