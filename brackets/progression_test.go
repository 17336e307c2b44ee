package brackets

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func playNode(t *testing.T, b *Bracket, nodeID, scoreA, scoreB int) {
	t.Helper()
	require.NoError(t, b.AttachSchedule(nodeID, time.Now(), nil))
	require.NoError(t, b.Start(nodeID))
	require.NoError(t, b.RecordResult(nodeID, scoreA, scoreB, false))
}

func TestFourTeamSingleEliminationPlaythrough(t *testing.T) {
	b, err := NewBracket(context.Background(), 1, makeEntries(4), models.FormatSingleElimination, GenerateOptions{})
	require.NoError(t, err)

	semiOne := nodeAt(t, b, models.BracketWinners, 1, 0) // 1 v 4
	semiTwo := nodeAt(t, b, models.BracketWinners, 1, 1) // 2 v 3
	final := nodeAt(t, b, models.BracketFinal, 2, 0)

	playNode(t, b, semiOne.ID, 21, 15)
	playNode(t, b, semiTwo.ID, 7, 21)

	assert.Equal(t, 1, entryIDAt(t, final, models.SlotA))
	assert.Equal(t, 3, entryIDAt(t, final, models.SlotB))

	four, err := b.Entry(4)
	require.NoError(t, err)
	assert.Equal(t, models.EntryEliminated, four.Status)
	require.NotNil(t, four.EliminatedIn)
	assert.Equal(t, "Semifinal", *four.EliminatedIn)

	playNode(t, b, final.ID, 25, 20)

	champion, ok := b.Champion()
	require.True(t, ok)
	assert.Equal(t, 1, champion.ID)
	require.NotNil(t, champion.FinalPosition)
	assert.Equal(t, 1, *champion.FinalPosition)
	assert.Equal(t, 2, champion.Record.Played)
	assert.Equal(t, 2, champion.Record.Wins)
	assert.Equal(t, 4, champion.Record.TournamentPoints)

	runnerUp, err := b.Entry(3)
	require.NoError(t, err)
	assert.Equal(t, models.EntryEliminated, runnerUp.Status)
	require.NotNil(t, runnerUp.FinalPosition)
	assert.Equal(t, 2, *runnerUp.FinalPosition)
}

func TestStateMachineGuards(t *testing.T) {
	b, err := NewBracket(context.Background(), 1, makeEntries(4), models.FormatSingleElimination, GenerateOptions{})
	require.NoError(t, err)
	semi := nodeAt(t, b, models.BracketWinners, 1, 0)
	final := nodeAt(t, b, models.BracketFinal, 2, 0)

	// The final has unresolved slots until the semifinals decide.
	assert.ErrorIs(t, b.AttachSchedule(final.ID, time.Now(), nil), ErrNodeNotSchedulable)

	// Results only land on in_progress nodes.
	assert.ErrorIs(t, b.RecordResult(semi.ID, 10, 5, false), ErrNodeNotInProgress)
	assert.ErrorIs(t, b.Start(semi.ID), ErrNodeNotStartable)

	require.NoError(t, b.AttachSchedule(semi.ID, time.Now(), nil))
	// Re-scheduling is allowed.
	venue := "Court 2"
	require.NoError(t, b.AttachSchedule(semi.ID, time.Now().Add(time.Hour), &venue))
	require.NoError(t, b.Start(semi.ID))
	require.NoError(t, b.RecordResult(semi.ID, 10, 5, false))

	// Terminal nodes reject everything, including a second submission.
	assert.ErrorIs(t, b.RecordResult(semi.ID, 10, 5, false), ErrNodeNotInProgress)
	assert.ErrorIs(t, b.Start(semi.ID), ErrNodeNotStartable)
	assert.ErrorIs(t, b.AttachSchedule(semi.ID, time.Now(), nil), ErrNodeNotSchedulable)

	assert.ErrorIs(t, b.RecordResult(999, 1, 0, false), ErrNodeNotFound)
}

func TestDrawRejectedInElimination(t *testing.T) {
	b, err := NewBracket(context.Background(), 1, makeEntries(4), models.FormatSingleElimination, GenerateOptions{AllowDraws: true})
	require.NoError(t, err)
	semi := nodeAt(t, b, models.BracketWinners, 1, 0)

	require.NoError(t, b.AttachSchedule(semi.ID, time.Now(), nil))
	require.NoError(t, b.Start(semi.ID))
	err = b.RecordResult(semi.ID, 10, 10, false)
	assert.ErrorIs(t, err, ErrInvalidResult)

	// The failed submission leaves the node playable.
	node, getErr := b.Node(semi.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.NodeInProgress, node.Status)
	require.NoError(t, b.RecordResult(semi.ID, 11, 10, true))
}

func TestForfeitAdvancesOpponent(t *testing.T) {
	b, err := NewBracket(context.Background(), 1, makeEntries(4), models.FormatSingleElimination, GenerateOptions{})
	require.NoError(t, err)
	semi := nodeAt(t, b, models.BracketWinners, 1, 0) // 1 v 4
	final := nodeAt(t, b, models.BracketFinal, 2, 0)

	require.NoError(t, b.AttachSchedule(semi.ID, time.Now(), nil))
	// Forfeit is allowed before the match starts.
	reason := "no-show"
	require.NoError(t, b.RecordForfeit(semi.ID, models.SlotA, reason))

	node, err := b.Node(semi.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NodeForfeited, node.Status)
	require.NotNil(t, node.Result)
	require.NotNil(t, node.Result.ForfeitingSlot)
	assert.Equal(t, models.SlotA, *node.Result.ForfeitingSlot)
	require.NotNil(t, node.Result.ForfeitReason)
	assert.Equal(t, reason, *node.Result.ForfeitReason)

	assert.Equal(t, 4, entryIDAt(t, final, models.SlotA))

	winner, err := b.Entry(4)
	require.NoError(t, err)
	assert.Equal(t, 1, winner.Record.Wins)
	assert.Zero(t, winner.Record.PointsFor, "forfeits score no match points")
	assert.Equal(t, 2, winner.Record.TournamentPoints)

	loser, err := b.Entry(1)
	require.NoError(t, err)
	assert.Equal(t, models.EntryEliminated, loser.Status)
	assert.Equal(t, 1, loser.Record.Losses)
	assert.Zero(t, loser.Record.TournamentPoints)

	assert.ErrorIs(t, b.RecordForfeit(semi.ID, models.SlotB, ""), ErrNodeNotInProgress)
	assert.ErrorIs(t, b.RecordForfeit(final.ID, models.Slot(7), ""), ErrInvalidForfeitingSlot)
}

func TestPropagationConflictRollsBack(t *testing.T) {
	entries := makeEntries(3)
	one, two, three := entries[0].ID, entries[1].ID, entries[2].ID
	// Hand-built corrupt graph: the downstream slot is already occupied.
	nodes := []*models.BracketNode{
		{
			ID: 1, TournamentID: 1, BracketType: models.BracketWinners, Round: 1,
			SlotA: models.NodeSlot{EntryID: &one}, SlotB: models.NodeSlot{EntryID: &two},
			Status:           models.NodeInProgress,
			WinnerAdvancesTo: &models.SlotRef{NodeID: 2, Slot: models.SlotA},
		},
		{
			ID: 2, TournamentID: 1, BracketType: models.BracketFinal, Round: 2,
			SlotA:  models.NodeSlot{EntryID: &three},
			Status: models.NodePending,
		},
	}

	b, err := Rehydrate(1, entries, nodes, models.FormatSingleElimination, GenerateOptions{})
	require.NoError(t, err)

	err = b.RecordResult(1, 10, 5, false)
	assert.ErrorIs(t, err, ErrPropagationConflict)

	// Nothing was applied: the node is still in progress and no record moved.
	node, getErr := b.Node(1)
	require.NoError(t, getErr)
	assert.Equal(t, models.NodeInProgress, node.Status)
	assert.Nil(t, node.Result)
	winner, getErr := b.Entry(one)
	require.NoError(t, getErr)
	assert.Zero(t, winner.Record.Played)
}

func TestConcurrentResultSubmissions(t *testing.T) {
	entries := makeEntries(8)
	b, err := NewBracket(context.Background(), 1, entries, models.FormatRoundRobin, GenerateOptions{})
	require.NoError(t, err)

	nodes := b.Nodes()
	for _, n := range nodes {
		require.NoError(t, b.AttachSchedule(n.ID, time.Now(), nil))
		require.NoError(t, b.Start(n.ID))
	}

	var wg sync.WaitGroup
	for _, n := range nodes {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			assert.NoError(t, b.RecordResult(id, 21, 15, false))
		}(n.ID)
	}
	wg.Wait()

	totalPlayed := 0
	for _, e := range b.Entries() {
		totalPlayed += e.Record.Played
		assert.Equal(t, len(entries)-1, e.Record.Played)
	}
	assert.Equal(t, 2*len(nodes), totalPlayed)
}

// Two sibling semifinals feed the same final. Racing their results must
// leave both final slots resolved; neither commit may clobber the slot the
// other one wrote.
func TestConcurrentSiblingResultsFillFinal(t *testing.T) {
	for i := 0; i < 200; i++ {
		b, err := NewBracket(context.Background(), 1, makeEntries(4), models.FormatSingleElimination, GenerateOptions{})
		require.NoError(t, err)

		semiOne := nodeAt(t, b, models.BracketWinners, 1, 0) // 1 v 4
		semiTwo := nodeAt(t, b, models.BracketWinners, 1, 1) // 2 v 3
		final := nodeAt(t, b, models.BracketFinal, 2, 0)

		for _, id := range []int{semiOne.ID, semiTwo.ID} {
			require.NoError(t, b.AttachSchedule(id, time.Now(), nil))
			require.NoError(t, b.Start(id))
		}

		var wg sync.WaitGroup
		for _, id := range []int{semiOne.ID, semiTwo.ID} {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				assert.NoError(t, b.RecordResult(id, 21, 15, false))
			}(id)
		}
		wg.Wait()

		require.Equal(t, 1, entryIDAt(t, final, models.SlotA))
		require.Equal(t, 2, entryIDAt(t, final, models.SlotB))
		require.Equal(t, models.NodePending, final.Status)
	}
}

func TestConcurrentDoubleSubmissionOnlyOneWins(t *testing.T) {
	b, err := NewBracket(context.Background(), 1, makeEntries(2), models.FormatSingleElimination, GenerateOptions{})
	require.NoError(t, err)
	final := nodeAt(t, b, models.BracketFinal, 1, 0)
	require.NoError(t, b.AttachSchedule(final.ID, time.Now(), nil))
	require.NoError(t, b.Start(final.ID))

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = b.RecordResult(final.ID, 21, 15, false)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrNodeNotInProgress)
		}
	}
	assert.Equal(t, 1, succeeded)

	champion, ok := b.Champion()
	require.True(t, ok)
	assert.Equal(t, 1, champion.Record.Played)
}
