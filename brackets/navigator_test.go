package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func TestFeedsAroundSemifinal(t *testing.T) {
	b, err := NewBracket(context.Background(), 1, makeEntries(8), models.FormatSingleElimination, GenerateOptions{ThirdPlaceMatch: true})
	require.NoError(t, err)

	semi := nodeAt(t, b, models.BracketWinners, 2, 0)
	final := nodeAt(t, b, models.BracketFinal, 3, 0)
	third := nodeAt(t, b, models.BracketConsolation, 3, 1)

	from, err := b.FeedsFrom(semi.ID)
	require.NoError(t, err)
	require.Len(t, from, 2)
	// Slot A before slot B, winners only on the way up.
	assert.Equal(t, models.SlotA, from[0].Slot)
	assert.Equal(t, models.SlotB, from[1].Slot)
	for _, f := range from {
		assert.Equal(t, EdgeWinner, f.Type)
		assert.Equal(t, 1, f.Node.Round)
	}

	to, err := b.FeedsTo(semi.ID)
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, EdgeWinner, to[0].Type)
	assert.Equal(t, final.ID, to[0].Node.ID)
	assert.Equal(t, EdgeLoser, to[1].Type)
	assert.Equal(t, third.ID, to[1].Node.ID)
}

func TestFeedsAtTheEdges(t *testing.T) {
	b, err := NewBracket(context.Background(), 1, makeEntries(4), models.FormatSingleElimination, GenerateOptions{})
	require.NoError(t, err)

	opener := nodeAt(t, b, models.BracketWinners, 1, 0)
	final := nodeAt(t, b, models.BracketFinal, 2, 0)

	from, err := b.FeedsFrom(opener.ID)
	require.NoError(t, err)
	assert.Empty(t, from, "round one is fed by seeding, not matches")

	to, err := b.FeedsTo(final.ID)
	require.NoError(t, err)
	assert.Empty(t, to, "the final is terminal")

	_, err = b.FeedsFrom(999)
	assert.ErrorIs(t, err, ErrNodeNotFound)
	_, err = b.FeedsTo(999)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestRehydrateRoundTrip(t *testing.T) {
	b, err := NewBracket(context.Background(), 1, makeEntries(4), models.FormatDoubleElimination, GenerateOptions{})
	require.NoError(t, err)
	wbOne := nodeAt(t, b, models.BracketWinners, 1, 0)
	playNode(t, b, wbOne.ID, 21, 10)

	// A rehydrated arena picks up exactly where the persisted state left off.
	re, err := Rehydrate(1, b.Entries(), b.Nodes(), models.FormatDoubleElimination, GenerateOptions{})
	require.NoError(t, err)

	node, err := re.Node(wbOne.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NodeCompleted, node.Status)

	lbOne := nodeAt(t, re, models.BracketLosers, 3, 0)
	assert.Equal(t, 4, entryIDAt(t, lbOne, models.SlotA))

	_, err = Rehydrate(1, nil, nil, models.FormatSingleElimination, GenerateOptions{})
	assert.ErrorIs(t, err, ErrEmptyEntryList)
}

func TestRehydrateRejectsCorruptGraph(t *testing.T) {
	entries := makeEntries(2)
	one := entries[0].ID
	nodes := []*models.BracketNode{
		{
			ID: 1, TournamentID: 1, BracketType: models.BracketWinners, Round: 1,
			SlotA: models.NodeSlot{EntryID: &one}, SlotB: models.NodeSlot{Bye: true},
			Status:           models.NodePending,
			WinnerAdvancesTo: &models.SlotRef{NodeID: 42, Slot: models.SlotA},
		},
	}
	_, err := Rehydrate(1, entries, nodes, models.FormatSingleElimination, GenerateOptions{})
	assert.ErrorIs(t, err, ErrBracketInvalid)

	// Backwards edges are rejected too.
	nodes = []*models.BracketNode{
		{ID: 1, TournamentID: 1, BracketType: models.BracketWinners, Round: 2,
			Status:           models.NodePending,
			WinnerAdvancesTo: &models.SlotRef{NodeID: 2, Slot: models.SlotA}},
		{ID: 2, TournamentID: 1, BracketType: models.BracketFinal, Round: 1,
			Status: models.NodePending},
	}
	_, err = Rehydrate(1, entries, nodes, models.FormatSingleElimination, GenerateOptions{})
	assert.ErrorIs(t, err, ErrBracketInvalid)
}
