package brackets

import "errors"

// Input errors: rejected synchronously, no state is mutated.
var (
	ErrEmptyEntryList        = errors.New("entry list is empty")
	ErrInvalidSeeding        = errors.New("invalid seeding")
	ErrUnsupportedFormat     = errors.New("unsupported tournament format")
	ErrInvalidResult         = errors.New("invalid result")
	ErrInvalidForfeitingSlot = errors.New("forfeiting slot does not hold a team in this node")
)

// State errors: caller misuse (double submission, transition out of order).
var (
	ErrNodeNotFound       = errors.New("bracket node not found")
	ErrEntryNotFound      = errors.New("team entry not found")
	ErrNodeNotInProgress  = errors.New("bracket node is not in progress")
	ErrNodeNotSchedulable = errors.New("bracket node cannot be scheduled yet")
	ErrNodeNotStartable   = errors.New("bracket node cannot be started")
)

// Consistency errors: fatal, never swallowed. A propagation conflict means a
// generation bug or state tampered with outside the engine API; the
// triggering transition is not applied.
var (
	ErrPropagationConflict = errors.New("propagation conflict")
	ErrBracketInvalid      = errors.New("bracket graph is invalid")
)
