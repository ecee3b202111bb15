package sim

// EventKind names something that happened to orders or the position.
type EventKind string

const (
	EventOrderPlaced    EventKind = "orderPlaced"
	EventOrderCancelled EventKind = "orderCancelled"
	EventOrderFilled    EventKind = "orderFilled"
	EventPositionClosed EventKind = "positionClosed"
)

// Event is delivered to the engine's listener after the state change it
// describes is complete.
type Event struct {
	Kind     EventKind    `json:"kind"`
	BarIndex int          `json:"barIndex"`
	Order    *Order       `json:"order,omitempty"`
	Position *Position    `json:"position,omitempty"`
	Trade    *TradeRecord `json:"trade,omitempty"`
}

// Listener receives engine events. It is called without the engine lock
// held, so it may call back into the engine.
type Listener func(Event)
