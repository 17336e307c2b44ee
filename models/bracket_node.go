package models

import "time"

type BracketType string

const (
	BracketWinners     BracketType = "winners"
	BracketLosers      BracketType = "losers"
	BracketConsolation BracketType = "consolation"
	BracketFinal       BracketType = "final"
)

type NodeStatus string

const (
	NodePending    NodeStatus = "pending"
	NodeScheduled  NodeStatus = "scheduled"
	NodeInProgress NodeStatus = "in_progress"
	NodeCompleted  NodeStatus = "completed"
	NodeForfeited  NodeStatus = "forfeited"
)

// Terminal reports whether the status admits no further transitions.
func (s NodeStatus) Terminal() bool {
	return s == NodeCompleted || s == NodeForfeited
}

// Slot identifies one of the two team positions of a node.
type Slot int

const (
	SlotA Slot = 1
	SlotB Slot = 2
)

func (s Slot) Valid() bool { return s == SlotA || s == SlotB }

func (s Slot) Other() Slot {
	if s == SlotA {
		return SlotB
	}
	return SlotA
}

// NodeSlot is the state of one team position: unresolved, a bye, or a
// reference to a TeamEntry with the seed it carried when it was assigned.
type NodeSlot struct {
	EntryID          *int `json:"entry_id,omitempty"`
	Bye              bool `json:"bye,omitempty"`
	SeedAtAssignment *int `json:"seed_at_assignment,omitempty"`
}

func (s NodeSlot) Resolved() bool { return s.Bye || s.EntryID != nil }

// Real reports whether the slot holds an actual team (not a bye).
func (s NodeSlot) Real() bool { return s.EntryID != nil }

// NodeResult is present exactly when the node is completed or forfeited.
// Bye marks a synthetic result written when a bye auto-resolves.
type NodeResult struct {
	ScoreA         int     `json:"score_a"`
	ScoreB         int     `json:"score_b"`
	Overtime       bool    `json:"overtime"`
	ForfeitingSlot *Slot   `json:"forfeiting_slot,omitempty"`
	ForfeitReason  *string `json:"forfeit_reason,omitempty"`
	Bye            bool    `json:"bye,omitempty"`
}

// SlotRef points at one slot of another node; advancement edges are id
// references, never owning pointers.
type SlotRef struct {
	NodeID int  `json:"node_id"`
	Slot   Slot `json:"slot"`
}

// BracketNode is a single match slot in the tournament DAG.
type BracketNode struct {
	ID              int         `json:"id"`
	TournamentID    int         `json:"tournament_id"`
	BracketType     BracketType `json:"bracket_type"`
	Round           int         `json:"round"`
	PositionInRound int         `json:"position_in_round"`
	RoundName       string      `json:"round_name,omitempty"`
	Group           *string     `json:"group,omitempty"`

	SlotA NodeSlot `json:"slot_a"`
	SlotB NodeSlot `json:"slot_b"`

	Status NodeStatus  `json:"status"`
	Result *NodeResult `json:"result,omitempty"`

	WinnerAdvancesTo *SlotRef `json:"winner_advances_to,omitempty"`
	LoserAdvancesTo  *SlotRef `json:"loser_advances_to,omitempty"`

	// Opaque scheduling metadata attached by the orchestrator.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Venue       *string    `json:"venue,omitempty"`
}

func (n *BracketNode) Slot(s Slot) *NodeSlot {
	if s == SlotA {
		return &n.SlotA
	}
	return &n.SlotB
}

// WinnerSlot returns the slot that won, if the node has a decided result.
// Draws and unplayed nodes have no winner.
func (n *BracketNode) WinnerSlot() (Slot, bool) {
	if n.Result == nil || !n.Status.Terminal() {
		return 0, false
	}
	r := n.Result
	if r.ForfeitingSlot != nil {
		return r.ForfeitingSlot.Other(), true
	}
	if r.Bye {
		if n.SlotA.Real() {
			return SlotA, true
		}
		if n.SlotB.Real() {
			return SlotB, true
		}
		// Two byes met; slot A carries the synthetic winner.
		return SlotA, true
	}
	switch {
	case r.ScoreA > r.ScoreB:
		return SlotA, true
	case r.ScoreB > r.ScoreA:
		return SlotB, true
	}
	return 0, false
}

// WinnerEntryID resolves the winning slot to an entry id, when the winner is
// a real team.
func (n *BracketNode) WinnerEntryID() (int, bool) {
	slot, ok := n.WinnerSlot()
	if !ok {
		return 0, false
	}
	if id := n.Slot(slot).EntryID; id != nil {
		return *id, true
	}
	return 0, false
}
