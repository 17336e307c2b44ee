package brackets

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

// RoundRobinGenerator produces one node per unique pair of entries. League
// play has no advancement edges; the table comes entirely from Standings.
type RoundRobinGenerator struct{}

func (g *RoundRobinGenerator) Name() string { return "RoundRobin" }

func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateParams) ([]*models.BracketNode, error) {
	entries, err := seededEntries(params.Entries)
	if err != nil {
		return nil, err
	}
	if len(entries) < 2 {
		return nil, ErrEmptyEntryList
	}
	nodes := roundRobinNodes(params.TournamentID, entries, nil, 0, 0)
	return nodes, nil
}

// roundRobinNodes pairs every entry against every other, assigning ids from
// idStart+1 and positions from posStart. Shared with the group stage, which
// lays several round robins into one bracket.
func roundRobinNodes(tournamentID int, entries []*models.TeamEntry, group *string, idStart, posStart int) []*models.BracketNode {
	nodes := make([]*models.BracketNode, 0, len(entries)*(len(entries)-1)/2)
	id := idStart
	pos := posStart
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			id++
			nodes = append(nodes, &models.BracketNode{
				ID:              id,
				TournamentID:    tournamentID,
				BracketType:     models.BracketWinners,
				Round:           1,
				PositionInRound: pos,
				RoundName:       "League",
				Group:           group,
				SlotA:           entrySlot(entries[i]),
				SlotB:           entrySlot(entries[j]),
				Status:          models.NodePending,
			})
			pos++
		}
	}
	return nodes
}
