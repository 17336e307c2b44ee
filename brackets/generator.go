package brackets

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

// GenerateOptions tunes bracket generation beyond the format itself.
type GenerateOptions struct {
	// ThirdPlaceMatch adds a consolation node fed by the semifinal losers
	// (single elimination only).
	ThirdPlaceMatch bool

	// AllowDraws permits drawn results. Only round-robin play may enable it.
	AllowDraws bool

	// Points overrides the default win/draw/loss points table.
	Points *models.PointsTable

	// Group configures the group stage of group_then_elimination.
	Group *models.GroupConfig
}

func (o GenerateOptions) pointsTable() models.PointsTable {
	if o.Points != nil {
		return *o.Points
	}
	return models.DefaultPointsTable()
}

type GenerateParams struct {
	TournamentID int
	Entries      []*models.TeamEntry
	Options      GenerateOptions
}

// Generator builds the node DAG for one tournament format. Generation is
// deterministic given identical input ordering.
type Generator interface {
	GenerateBracket(ctx context.Context, params GenerateParams) ([]*models.BracketNode, error)
	Name() string
}

// NewGenerator returns the generator for the given format.
func NewGenerator(format models.TournamentFormat) (Generator, error) {
	switch format {
	case models.FormatSingleElimination:
		return &SingleEliminationGenerator{}, nil
	case models.FormatDoubleElimination:
		return &DoubleEliminationGenerator{}, nil
	case models.FormatRoundRobin:
		return &RoundRobinGenerator{}, nil
	case models.FormatGroupThenElimination:
		return &GroupStageGenerator{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// seededEntries validates seeds and returns the entries ordered by seed
// ascending. Duplicate or non-positive seeds are an input error.
func seededEntries(entries []*models.TeamEntry) ([]*models.TeamEntry, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyEntryList
	}
	seen := make(map[int]int, len(entries))
	for _, e := range entries {
		if e.Seed <= 0 {
			return nil, fmt.Errorf("%w: entry %d has non-positive seed %d", ErrInvalidSeeding, e.ID, e.Seed)
		}
		if prev, dup := seen[e.Seed]; dup {
			return nil, fmt.Errorf("%w: entries %d and %d share seed %d", ErrInvalidSeeding, prev, e.ID, e.Seed)
		}
		seen[e.Seed] = e.ID
	}
	sorted := make([]*models.TeamEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seed < sorted[j].Seed })
	return sorted, nil
}

func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

func log2(size int) int {
	r := 0
	for size > 1 {
		size >>= 1
		r++
	}
	return r
}

// firstRoundPairs lays out seed indexes (0-based) for round one using the
// standard bracket-halving recursion, so that seeds 1 and 2 can only meet in
// the final. For size 8 the pairs are (0,7) (3,4) (1,6) (2,5).
func firstRoundPairs(size int) [][2]int {
	order := []int{0}
	for len(order) < size {
		next := make([]int, 0, len(order)*2)
		n := len(order) * 2
		for _, s := range order {
			next = append(next, s, n-1-s)
		}
		order = next
	}
	pairs := make([][2]int, 0, size/2)
	for i := 0; i < len(order); i += 2 {
		pairs = append(pairs, [2]int{order[i], order[i+1]})
	}
	return pairs
}

// roundName returns a display label for an elimination round, mirroring what
// the club platform shows on public bracket pages.
func roundName(round, totalRounds int) string {
	switch 1 << (totalRounds - round + 1) {
	case 2:
		return "Final"
	case 4:
		return "Semifinal"
	case 8:
		return "Quarterfinal"
	case 16:
		return "Round of 16"
	case 32:
		return "Round of 32"
	default:
		return fmt.Sprintf("Round %d", round)
	}
}

func entrySlot(e *models.TeamEntry) models.NodeSlot {
	id := e.ID
	seed := e.Seed
	return models.NodeSlot{EntryID: &id, SeedAtAssignment: &seed}
}

func byeSlot() models.NodeSlot {
	return models.NodeSlot{Bye: true}
}

func sortNodes(nodes []*models.BracketNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Round != nodes[j].Round {
			return nodes[i].Round < nodes[j].Round
		}
		if nodes[i].PositionInRound != nodes[j].PositionInRound {
			return nodes[i].PositionInRound < nodes[j].PositionInRound
		}
		return nodes[i].ID < nodes[j].ID
	})
}
