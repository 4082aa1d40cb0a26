package ai

import "errors"

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Decision is the structured answer one persona gives for one cycle.
type Decision struct {
	Action  string  `json:"action"`
	Amount  float64 `json:"amount"`
	Thought string  `json:"thought"`
}

// IsHold reports whether the decision requires no settlement.
func (d Decision) IsHold() bool { return d.Action == ActionHold }

var (
	// ErrUnavailable: the upstream capability is missing or unreachable.
	// Never recovered by fabricating a decision.
	ErrUnavailable = errors.New("decision service unavailable")
	// ErrMalformed: the upstream answered, but not with the strict JSON
	// contract {action, amount, thought}.
	ErrMalformed = errors.New("decision service returned malformed payload")
)
