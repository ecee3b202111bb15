package replay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/sim"
)

// CommandKind names a player operation.
type CommandKind string

const (
	CmdLoad         CommandKind = "load"
	CmdPlace        CommandKind = "place"
	CmdCancel       CommandKind = "cancel"
	CmdClose        CommandKind = "close"
	CmdStepForward  CommandKind = "stepForward"
	CmdStepBackward CommandKind = "stepBackward"
	CmdPlay         CommandKind = "play"
	CmdPause        CommandKind = "pause"
	CmdSpeed        CommandKind = "speed"
	CmdSnapshot     CommandKind = "snapshot"
)

var commandKinds = []CommandKind{
	CmdLoad, CmdPlace, CmdCancel, CmdClose, CmdStepForward,
	CmdStepBackward, CmdPlay, CmdPause, CmdSpeed, CmdSnapshot,
}

// ParseCommandKind matches kind names case-insensitively.
func ParseCommandKind(s string) (CommandKind, error) {
	for _, k := range commandKinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown command %q", s)
}

// Command is one request to the player, as sent over the wire.
type Command struct {
	Kind    CommandKind    `json:"kind"`
	Order   *sim.OrderForm `json:"order,omitempty"`
	OrderID string         `json:"orderId,omitempty"`
	Speed   int            `json:"speed,omitempty"`
	Series  *market.Series `json:"series,omitempty"`
}

// Validate checks that the command carries what its kind needs.
func (c Command) Validate() error {
	_, err := c.Normalize()
	return err
}

// Normalize returns c with its kind in canonical form, after checking
// that it carries what the kind needs.
func (c Command) Normalize() (Command, error) {
	kind, err := ParseCommandKind(string(c.Kind))
	if err != nil {
		return c, err
	}
	c.Kind = kind
	return c, c.check()
}

func (c Command) check() error {
	switch c.Kind {
	case CmdLoad:
		if c.Series == nil {
			return errors.New("load: series is required")
		}
	case CmdPlace:
		if c.Order == nil {
			return errors.New("place: order is required")
		}
	case CmdCancel:
		if c.OrderID == "" {
			return errors.New("cancel: orderId is required")
		}
	}
	return nil
}

// Result is the player's answer to a command. State is always the state
// after the command ran.
type Result struct {
	State     State            `json:"state"`
	Order     *sim.Order       `json:"order,omitempty"`
	Trade     *sim.TradeRecord `json:"trade,omitempty"`
	Cancelled bool             `json:"cancelled,omitempty"`
	Moved     bool             `json:"moved,omitempty"`
}
