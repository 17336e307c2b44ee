package brackets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func TestRoundRobinEveryPairOnce(t *testing.T) {
	n := 5
	b, err := NewBracket(context.Background(), 1, makeEntries(n), models.FormatRoundRobin, GenerateOptions{})
	require.NoError(t, err)

	nodes := b.Nodes()
	require.Len(t, nodes, n*(n-1)/2)

	seen := make(map[[2]int]bool)
	for _, node := range nodes {
		assert.Equal(t, models.BracketWinners, node.BracketType)
		assert.Equal(t, 1, node.Round)
		assert.Equal(t, "League", node.RoundName)
		assert.Nil(t, node.WinnerAdvancesTo)
		assert.Nil(t, node.LoserAdvancesTo)

		pair := pairKey(entryIDAt(t, node, models.SlotA), entryIDAt(t, node, models.SlotB))
		assert.False(t, seen[pair], "pair %v scheduled twice", pair)
		seen[pair] = true
	}
}

func TestRoundRobinDraws(t *testing.T) {
	b, err := NewBracket(context.Background(), 1, makeEntries(3), models.FormatRoundRobin, GenerateOptions{AllowDraws: true})
	require.NoError(t, err)

	node := b.Nodes()[0]
	require.NoError(t, b.AttachSchedule(node.ID, time.Now(), nil))
	require.NoError(t, b.Start(node.ID))
	require.NoError(t, b.RecordResult(node.ID, 14, 14, false))

	a, err := b.Entry(entryIDAt(t, node, models.SlotA))
	require.NoError(t, err)
	bEntry, err := b.Entry(entryIDAt(t, node, models.SlotB))
	require.NoError(t, err)
	for _, e := range []*models.TeamEntry{a, bEntry} {
		assert.Equal(t, 1, e.Record.Played)
		assert.Equal(t, 1, e.Record.Draws)
		assert.Equal(t, 1, e.Record.TournamentPoints)
		assert.Equal(t, models.EntryApproved, e.Status, "league play never eliminates")
	}
}

func TestRoundRobinDrawNeedsOptIn(t *testing.T) {
	b, err := NewBracket(context.Background(), 1, makeEntries(3), models.FormatRoundRobin, GenerateOptions{})
	require.NoError(t, err)

	node := b.Nodes()[0]
	require.NoError(t, b.AttachSchedule(node.ID, time.Now(), nil))
	require.NoError(t, b.Start(node.ID))
	assert.ErrorIs(t, b.RecordResult(node.ID, 14, 14, false), ErrInvalidResult)
}

func TestRoundRobinCustomPointsTable(t *testing.T) {
	points := models.PointsTable{Win: 3, Draw: 1, Loss: 0, ForfeitLoss: 0}
	b, err := NewBracket(context.Background(), 1, makeEntries(3), models.FormatRoundRobin, GenerateOptions{Points: &points})
	require.NoError(t, err)

	node := b.Nodes()[0]
	playNode(t, b, node.ID, 21, 12)

	winner, err := b.Entry(entryIDAt(t, node, models.SlotA))
	require.NoError(t, err)
	assert.Equal(t, 3, winner.Record.TournamentPoints)
}
