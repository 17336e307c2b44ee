package brackets

import (
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

// EdgeType distinguishes the two advancement edges of a node.
type EdgeType string

const (
	EdgeWinner EdgeType = "winner"
	EdgeLoser  EdgeType = "loser"
)

// Feed describes one advancement edge from the perspective of a node: which
// neighbouring node it connects to, through which slot, and whether it
// carries the winner or the loser.
type Feed struct {
	Type EdgeType            `json:"type"`
	Node *models.BracketNode `json:"node"`
	Slot models.Slot         `json:"slot"`
}

// FeedsFrom lists the upstream nodes whose outcomes fill the given node's
// slots, ordered slot A before slot B. Answers "which matches decide who
// plays here".
func (b *Bracket) FeedsFrom(nodeID int) ([]Feed, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.nodes[nodeID]; !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNodeNotFound, nodeID)
	}
	edges := b.incoming[nodeID]
	feeds := make([]Feed, 0, len(edges))
	for _, e := range edges {
		feeds = append(feeds, Feed{Type: e.edgeType, Node: b.nodes[e.sourceID], Slot: e.slot})
	}
	return feeds, nil
}

// FeedsTo lists where the given node's winner and loser go next. An empty
// result marks a terminal node.
func (b *Bracket) FeedsTo(nodeID int) ([]Feed, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	node, ok := b.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNodeNotFound, nodeID)
	}
	var feeds []Feed
	if ref := node.WinnerAdvancesTo; ref != nil {
		feeds = append(feeds, Feed{Type: EdgeWinner, Node: b.nodes[ref.NodeID], Slot: ref.Slot})
	}
	if ref := node.LoserAdvancesTo; ref != nil {
		feeds = append(feeds, Feed{Type: EdgeLoser, Node: b.nodes[ref.NodeID], Slot: ref.Slot})
	}
	return feeds, nil
}
