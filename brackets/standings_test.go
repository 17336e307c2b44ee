package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func entryWithRecord(id, seed int, rec models.TeamRecord) *models.TeamEntry {
	return &models.TeamEntry{
		ID:           id,
		TeamID:       100 + id,
		TournamentID: 1,
		Seed:         seed,
		Status:       models.EntryApproved,
		Record:       rec,
	}
}

func decidedNode(id, entryA, entryB, scoreA, scoreB int) *models.BracketNode {
	return &models.BracketNode{
		ID:           id,
		TournamentID: 1,
		BracketType:  models.BracketWinners,
		Round:        1,
		SlotA:        models.NodeSlot{EntryID: &entryA},
		SlotB:        models.NodeSlot{EntryID: &entryB},
		Status:       models.NodeCompleted,
		Result:       &models.NodeResult{ScoreA: scoreA, ScoreB: scoreB},
	}
}

func rankedIDs(standings []*models.TeamEntry) []int {
	ids := make([]int, 0, len(standings))
	for _, e := range standings {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestStandingsHeadToHeadBreaksTwoWayTie(t *testing.T) {
	// Teams 1 and 2 are level on points. Team 2 has the worse differential
	// but beat team 1 directly, so head-to-head decides.
	entries := []*models.TeamEntry{
		entryWithRecord(1, 1, models.TeamRecord{Played: 3, Wins: 2, Losses: 1, PointsFor: 60, PointsAgainst: 30, TournamentPoints: 4}),
		entryWithRecord(2, 2, models.TeamRecord{Played: 3, Wins: 2, Losses: 1, PointsFor: 50, PointsAgainst: 40, TournamentPoints: 4}),
		entryWithRecord(3, 3, models.TeamRecord{Played: 3, Wins: 1, Losses: 2, PointsFor: 40, PointsAgainst: 50, TournamentPoints: 2}),
	}
	nodes := []*models.BracketNode{decidedNode(1, 1, 2, 15, 21)}

	standings := ComputeStandings(entries, nodes, nil)
	assert.Equal(t, []int{2, 1, 3}, rankedIDs(standings))
}

func TestStandingsThreeWayTieSkipsHeadToHead(t *testing.T) {
	// All three on equal points: head-to-head does not apply, so the chain
	// falls through to differential, then points scored, then seed.
	entries := []*models.TeamEntry{
		entryWithRecord(1, 1, models.TeamRecord{Played: 2, Wins: 1, Losses: 1, PointsFor: 40, PointsAgainst: 40, TournamentPoints: 2}),
		entryWithRecord(2, 2, models.TeamRecord{Played: 2, Wins: 1, Losses: 1, PointsFor: 50, PointsAgainst: 40, TournamentPoints: 2}),
		entryWithRecord(3, 3, models.TeamRecord{Played: 2, Wins: 1, Losses: 1, PointsFor: 45, PointsAgainst: 45, TournamentPoints: 2}),
	}
	// Circular results; with three teams tied these carry no weight.
	nodes := []*models.BracketNode{
		decidedNode(1, 1, 2, 21, 15),
		decidedNode(2, 2, 3, 21, 15),
		decidedNode(3, 3, 1, 21, 15),
	}

	standings := ComputeStandings(entries, nodes, nil)
	assert.Equal(t, []int{2, 3, 1}, rankedIDs(standings))
}

func TestStandingsSeedIsFinalTieBreak(t *testing.T) {
	entries := []*models.TeamEntry{
		entryWithRecord(7, 4, models.TeamRecord{}),
		entryWithRecord(8, 2, models.TeamRecord{}),
		entryWithRecord(9, 9, models.TeamRecord{}),
	}
	standings := ComputeStandings(entries, nil, nil)
	assert.Equal(t, []int{8, 7, 9}, rankedIDs(standings))
}

func TestStandingsExcludesRejectedAndFiltersGroup(t *testing.T) {
	groupA, groupB := "A", "B"
	rejected := entryWithRecord(4, 4, models.TeamRecord{TournamentPoints: 10})
	rejected.Status = models.EntryRejected

	inA := entryWithRecord(1, 1, models.TeamRecord{TournamentPoints: 4})
	inA.Group = &groupA
	alsoA := entryWithRecord(2, 2, models.TeamRecord{TournamentPoints: 6})
	alsoA.Group = &groupA
	inB := entryWithRecord(3, 3, models.TeamRecord{TournamentPoints: 8})
	inB.Group = &groupB

	entries := []*models.TeamEntry{inA, alsoA, inB, rejected}

	all := ComputeStandings(entries, nil, nil)
	assert.Equal(t, []int{3, 2, 1}, rankedIDs(all))

	onlyA := ComputeStandings(entries, nil, &groupA)
	assert.Equal(t, []int{2, 1}, rankedIDs(onlyA))
}

func TestBracketStandingsReturnsCopies(t *testing.T) {
	b, err := NewBracket(context.Background(), 1, makeEntries(4), models.FormatRoundRobin, GenerateOptions{})
	require.NoError(t, err)

	before := b.Standings(nil)
	require.Len(t, before, 4)

	n := b.Nodes()[0]
	playNode(t, b, n.ID, 21, 15)

	// The earlier snapshot is unaffected by the submission.
	for _, e := range before {
		assert.Zero(t, e.Record.Played)
	}
	after := b.Standings(nil)
	winnerID, ok := b.Nodes()[0].WinnerEntryID()
	require.True(t, ok)
	assert.Equal(t, winnerID, after[0].ID)
	assert.Equal(t, 2, after[0].Record.TournamentPoints)
}
