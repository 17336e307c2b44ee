package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func fourTeamDoubleElim(t *testing.T) *Bracket {
	t.Helper()
	b, err := NewBracket(context.Background(), 1, makeEntries(4), models.FormatDoubleElimination, GenerateOptions{})
	require.NoError(t, err)
	return b
}

func TestDoubleEliminationStructure(t *testing.T) {
	b := fourTeamDoubleElim(t)
	require.Len(t, b.Nodes(), 6)

	wbOne := nodeAt(t, b, models.BracketWinners, 1, 0)  // 1 v 4
	wbTwo := nodeAt(t, b, models.BracketWinners, 1, 1)  // 2 v 3
	wbFinal := nodeAt(t, b, models.BracketWinners, 3, 0)
	lbOne := nodeAt(t, b, models.BracketLosers, 3, 0)
	lbTwo := nodeAt(t, b, models.BracketLosers, 4, 0)
	grand := nodeAt(t, b, models.BracketFinal, 5, 0)

	assert.Equal(t, 1, entryIDAt(t, wbOne, models.SlotA))
	assert.Equal(t, 4, entryIDAt(t, wbOne, models.SlotB))
	assert.Equal(t, 2, entryIDAt(t, wbTwo, models.SlotA))
	assert.Equal(t, 3, entryIDAt(t, wbTwo, models.SlotB))

	// Winners round 1 losers pair up in the first losers round.
	require.NotNil(t, wbOne.LoserAdvancesTo)
	assert.Equal(t, models.SlotRef{NodeID: lbOne.ID, Slot: models.SlotA}, *wbOne.LoserAdvancesTo)
	require.NotNil(t, wbTwo.LoserAdvancesTo)
	assert.Equal(t, models.SlotRef{NodeID: lbOne.ID, Slot: models.SlotB}, *wbTwo.LoserAdvancesTo)

	// Winners final loser drops into the last losers round, meeting the
	// first-round survivor.
	require.NotNil(t, wbFinal.LoserAdvancesTo)
	assert.Equal(t, models.SlotRef{NodeID: lbTwo.ID, Slot: models.SlotA}, *wbFinal.LoserAdvancesTo)
	require.NotNil(t, lbOne.WinnerAdvancesTo)
	assert.Equal(t, models.SlotRef{NodeID: lbTwo.ID, Slot: models.SlotB}, *lbOne.WinnerAdvancesTo)

	// Both bracket champions meet in the grand final.
	require.NotNil(t, wbFinal.WinnerAdvancesTo)
	assert.Equal(t, models.SlotRef{NodeID: grand.ID, Slot: models.SlotA}, *wbFinal.WinnerAdvancesTo)
	require.NotNil(t, lbTwo.WinnerAdvancesTo)
	assert.Equal(t, models.SlotRef{NodeID: grand.ID, Slot: models.SlotB}, *lbTwo.WinnerAdvancesTo)

	// Every edge points strictly forward on the global round scale.
	for _, n := range b.Nodes() {
		for _, ref := range []*models.SlotRef{n.WinnerAdvancesTo, n.LoserAdvancesTo} {
			if ref == nil {
				continue
			}
			target, err := b.Node(ref.NodeID)
			require.NoError(t, err)
			assert.Greater(t, target.Round, n.Round)
		}
	}
}

func TestDoubleEliminationLoserSurvivesFirstLoss(t *testing.T) {
	b := fourTeamDoubleElim(t)
	wbOne := nodeAt(t, b, models.BracketWinners, 1, 0)
	lbOne := nodeAt(t, b, models.BracketLosers, 3, 0)

	playNode(t, b, wbOne.ID, 15, 21) // seed 4 upsets seed 1

	one, err := b.Entry(1)
	require.NoError(t, err)
	assert.Equal(t, models.EntryAdvancing, one.Status, "a first loss drops, it does not eliminate")
	assert.Nil(t, one.EliminatedIn)
	assert.Equal(t, 1, entryIDAt(t, lbOne, models.SlotA))
}

func TestDoubleEliminationBracketReset(t *testing.T) {
	b := fourTeamDoubleElim(t)
	wbOne := nodeAt(t, b, models.BracketWinners, 1, 0)
	wbTwo := nodeAt(t, b, models.BracketWinners, 1, 1)
	wbFinal := nodeAt(t, b, models.BracketWinners, 3, 0)
	lbOne := nodeAt(t, b, models.BracketLosers, 3, 0)
	lbTwo := nodeAt(t, b, models.BracketLosers, 4, 0)
	grand := nodeAt(t, b, models.BracketFinal, 5, 0)

	playNode(t, b, wbOne.ID, 21, 10) // 1 over 4
	playNode(t, b, wbTwo.ID, 21, 12) // 2 over 3
	playNode(t, b, wbFinal.ID, 21, 19) // 1 over 2; 2 drops

	playNode(t, b, lbOne.ID, 21, 16) // 4 over 3; 3 is out on its second loss
	three, err := b.Entry(3)
	require.NoError(t, err)
	assert.Equal(t, models.EntryEliminated, three.Status)
	require.NotNil(t, three.EliminatedIn)
	assert.Equal(t, "Losers Round 1", *three.EliminatedIn)

	playNode(t, b, lbTwo.ID, 18, 21) // 4 over 2

	assert.Equal(t, 1, entryIDAt(t, grand, models.SlotA))
	assert.Equal(t, 4, entryIDAt(t, grand, models.SlotB))

	// The losers-bracket side taking the first grand final forces a second
	// one instead of the title.
	playNode(t, b, grand.ID, 17, 21)
	_, decided := b.Champion()
	assert.False(t, decided)

	reset := nodeAt(t, b, models.BracketFinal, 6, 0)
	assert.Equal(t, 7, reset.ID)
	assert.Equal(t, "Grand Final Reset", reset.RoundName)
	assert.Equal(t, models.NodePending, reset.Status)
	assert.Equal(t, 1, entryIDAt(t, reset, models.SlotA))
	assert.Equal(t, 4, entryIDAt(t, reset, models.SlotB))

	playNode(t, b, reset.ID, 21, 14)
	champion, decided := b.Champion()
	require.True(t, decided)
	assert.Equal(t, 1, champion.ID)

	runnerUp, err := b.Entry(4)
	require.NoError(t, err)
	assert.Equal(t, models.EntryEliminated, runnerUp.Status)
	require.NotNil(t, runnerUp.FinalPosition)
	assert.Equal(t, 2, *runnerUp.FinalPosition)
}

func TestDoubleEliminationWinnersSideSweep(t *testing.T) {
	b := fourTeamDoubleElim(t)
	wbOne := nodeAt(t, b, models.BracketWinners, 1, 0)
	wbTwo := nodeAt(t, b, models.BracketWinners, 1, 1)
	wbFinal := nodeAt(t, b, models.BracketWinners, 3, 0)
	lbOne := nodeAt(t, b, models.BracketLosers, 3, 0)
	lbTwo := nodeAt(t, b, models.BracketLosers, 4, 0)
	grand := nodeAt(t, b, models.BracketFinal, 5, 0)

	playNode(t, b, wbOne.ID, 21, 10)
	playNode(t, b, wbTwo.ID, 21, 12)
	playNode(t, b, wbFinal.ID, 21, 19)
	playNode(t, b, lbOne.ID, 21, 16)
	playNode(t, b, lbTwo.ID, 18, 21)

	// An undefeated slot A winner ends the tournament at the first grand
	// final; no reset node appears.
	playNode(t, b, grand.ID, 21, 13)
	champion, decided := b.Champion()
	require.True(t, decided)
	assert.Equal(t, 1, champion.ID)
	assert.Len(t, b.Nodes(), 6)
	assert.Equal(t, 3, champion.Record.Played)
}

func TestDoubleEliminationTwoEntries(t *testing.T) {
	b, err := NewBracket(context.Background(), 1, makeEntries(2), models.FormatDoubleElimination, GenerateOptions{})
	require.NoError(t, err)
	require.Len(t, b.Nodes(), 2)

	wbFinal := nodeAt(t, b, models.BracketWinners, 1, 0)
	grand := nodeAt(t, b, models.BracketFinal, 3, 0)

	// With no losers bracket the only winners match feeds both grand final
	// slots directly.
	require.NotNil(t, wbFinal.LoserAdvancesTo)
	assert.Equal(t, models.SlotRef{NodeID: grand.ID, Slot: models.SlotB}, *wbFinal.LoserAdvancesTo)

	playNode(t, b, wbFinal.ID, 15, 21)
	assert.Equal(t, 2, entryIDAt(t, grand, models.SlotA))
	assert.Equal(t, 1, entryIDAt(t, grand, models.SlotB))

	// The dropped team winning the grand final still triggers the reset.
	playNode(t, b, grand.ID, 10, 21)
	_, decided := b.Champion()
	assert.False(t, decided)
	reset := nodeAt(t, b, models.BracketFinal, 4, 0)
	playNode(t, b, reset.ID, 21, 18)

	champion, decided := b.Champion()
	require.True(t, decided)
	assert.Equal(t, 2, champion.ID)
}
