package brackets

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

// SingleEliminationGenerator builds a classic knockout tree. Entries short of
// a power of two are padded with byes assigned to the highest seeds first;
// bye nodes are auto-resolved when the bracket is assembled (see NewBracket).
type SingleEliminationGenerator struct{}

func (g *SingleEliminationGenerator) Name() string { return "SingleElimination" }

func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateParams) ([]*models.BracketNode, error) {
	entries, err := seededEntries(params.Entries)
	if err != nil {
		return nil, err
	}

	size := nextPowerOfTwo(len(entries))
	rounds := log2(size)
	if rounds == 0 {
		// A single entry has nobody to play; model it as a lone completed
		// final via a one-round bracket against a bye.
		size = 2
		rounds = 1
	}

	nodes := make([]*models.BracketNode, 0, size-1)
	nodeID := 0
	// ids keyed by round then position, for edge wiring.
	ids := make([][]int, rounds+1)

	for r := 1; r <= rounds; r++ {
		count := size >> uint(r)
		ids[r] = make([]int, count)
		for p := 0; p < count; p++ {
			nodeID++
			ids[r][p] = nodeID
			bt := models.BracketWinners
			if r == rounds {
				bt = models.BracketFinal
			}
			nodes = append(nodes, &models.BracketNode{
				ID:              nodeID,
				TournamentID:    params.TournamentID,
				BracketType:     bt,
				Round:           r,
				PositionInRound: p,
				RoundName:       roundName(r, rounds),
				Status:          models.NodePending,
			})
		}
	}

	byID := make(map[int]*models.BracketNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	// Winner edges: position p of round r feeds slot A/B of position p/2 in
	// round r+1, by parity.
	for r := 1; r < rounds; r++ {
		for p, id := range ids[r] {
			target := ids[r+1][p/2]
			slot := models.SlotA
			if p%2 == 1 {
				slot = models.SlotB
			}
			byID[id].WinnerAdvancesTo = &models.SlotRef{NodeID: target, Slot: slot}
		}
	}

	// Round one slot assignment with classic seeding; indexes beyond the
	// entry list become byes.
	for p, pair := range firstRoundPairs(size) {
		n := byID[ids[1][p]]
		if pair[0] < len(entries) {
			n.SlotA = entrySlot(entries[pair[0]])
		} else {
			n.SlotA = byeSlot()
		}
		if pair[1] < len(entries) {
			n.SlotB = entrySlot(entries[pair[1]])
		} else {
			n.SlotB = byeSlot()
		}
	}

	if params.Options.ThirdPlaceMatch && rounds >= 2 {
		nodeID++
		third := &models.BracketNode{
			ID:              nodeID,
			TournamentID:    params.TournamentID,
			BracketType:     models.BracketConsolation,
			Round:           rounds,
			PositionInRound: 1,
			RoundName:       "Third Place",
			Status:          models.NodePending,
		}
		for p, id := range ids[rounds-1] {
			slot := models.SlotA
			if p%2 == 1 {
				slot = models.SlotB
			}
			byID[id].LoserAdvancesTo = &models.SlotRef{NodeID: third.ID, Slot: slot}
		}
		nodes = append(nodes, third)
	}

	sortNodes(nodes)
	return nodes, nil
}
