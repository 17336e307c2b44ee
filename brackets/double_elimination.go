package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

// DoubleEliminationGenerator builds a winners bracket plus a mirrored losers
// bracket using the standard drop pattern: losers of winners round 1 pair up
// in losers round 1; losers of winners round r (r >= 2) drop into losers
// round 2(r-1), where they meet the survivors of the previous losers round.
// The bracket-reset second grand final is not generated here; the propagator
// instantiates it lazily if the losers-bracket champion takes the first one.
//
// Rounds are numbered on a single global scale so that every advancement edge
// points strictly forward: winners round r is round 2r-1, losers round l is
// round l+2, the grand final is round 2k+1 for a bracket of 2^k slots.
type DoubleEliminationGenerator struct{}

func (g *DoubleEliminationGenerator) Name() string { return "DoubleElimination" }

func (g *DoubleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateParams) ([]*models.BracketNode, error) {
	entries, err := seededEntries(params.Entries)
	if err != nil {
		return nil, err
	}
	if len(entries) < 2 {
		return nil, fmt.Errorf("%w: double elimination needs at least 2 entries", ErrInvalidSeeding)
	}

	size := nextPowerOfTwo(len(entries))
	k := log2(size)

	var nodes []*models.BracketNode
	nodeID := 0

	newNode := func(bt models.BracketType, round, pos int, name string) *models.BracketNode {
		nodeID++
		n := &models.BracketNode{
			ID:              nodeID,
			TournamentID:    params.TournamentID,
			BracketType:     bt,
			Round:           round,
			PositionInRound: pos,
			RoundName:       name,
			Status:          models.NodePending,
		}
		nodes = append(nodes, n)
		return n
	}

	// Winners bracket, identical topology to single elimination.
	wb := make([][]*models.BracketNode, k+1)
	for r := 1; r <= k; r++ {
		count := size >> uint(r)
		wb[r] = make([]*models.BracketNode, count)
		for p := 0; p < count; p++ {
			wb[r][p] = newNode(models.BracketWinners, 2*r-1, p, fmt.Sprintf("Winners Round %d", r))
		}
	}
	for r := 1; r < k; r++ {
		for p, n := range wb[r] {
			slot := models.SlotA
			if p%2 == 1 {
				slot = models.SlotB
			}
			n.WinnerAdvancesTo = &models.SlotRef{NodeID: wb[r+1][p/2].ID, Slot: slot}
		}
	}
	for p, pair := range firstRoundPairs(size) {
		n := wb[1][p]
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

	// Losers bracket: rounds 1..2k-2, alternating internal rounds (odd, pair
	// survivors) and drop rounds (even, survivors meet freshly dropped
	// winners-bracket losers). Empty for k == 1: two entries go straight to
	// the grand final, with the loser of the only winners match in slot B.
	lbRounds := 2*k - 2
	lb := make([][]*models.BracketNode, lbRounds+1)
	for l := 1; l <= lbRounds; l++ {
		j := (l + 1) / 2
		count := 1 << uint(k-1-j)
		lb[l] = make([]*models.BracketNode, count)
		for p := 0; p < count; p++ {
			lb[l][p] = newNode(models.BracketLosers, l+2, p, fmt.Sprintf("Losers Round %d", l))
		}
	}
	for l := 1; l < lbRounds; l++ {
		for p, n := range lb[l] {
			if l%2 == 1 {
				// Into the drop round alongside: same position, slot B.
				n.WinnerAdvancesTo = &models.SlotRef{NodeID: lb[l+1][p].ID, Slot: models.SlotB}
			} else {
				slot := models.SlotA
				if p%2 == 1 {
					slot = models.SlotB
				}
				n.WinnerAdvancesTo = &models.SlotRef{NodeID: lb[l+1][p/2].ID, Slot: slot}
			}
		}
	}

	// Drop edges out of the winners bracket.
	if k >= 2 {
		for p, n := range wb[1] {
			slot := models.SlotA
			if p%2 == 1 {
				slot = models.SlotB
			}
			n.LoserAdvancesTo = &models.SlotRef{NodeID: lb[1][p/2].ID, Slot: slot}
		}
		for r := 2; r <= k; r++ {
			drop := lb[2*(r-1)]
			for p, n := range wb[r] {
				pos := p
				if r%2 == 0 {
					// Reverse every other drop round to delay rematches.
					pos = len(drop) - 1 - p
				}
				n.LoserAdvancesTo = &models.SlotRef{NodeID: drop[pos].ID, Slot: models.SlotA}
			}
		}
	}

	final := newNode(models.BracketFinal, 2*k+1, 0, "Grand Final")
	wb[k][0].WinnerAdvancesTo = &models.SlotRef{NodeID: final.ID, Slot: models.SlotA}
	if k >= 2 {
		lb[lbRounds][0].WinnerAdvancesTo = &models.SlotRef{NodeID: final.ID, Slot: models.SlotB}
	} else {
		wb[k][0].LoserAdvancesTo = &models.SlotRef{NodeID: final.ID, Slot: models.SlotB}
	}

	sortNodes(nodes)
	return nodes, nil
}
