package brackets

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

// GroupStageGenerator partitions the field into groups and runs a round robin
// inside each. The knockout stage is not generated here: once group play is
// over the orchestrator calls SeedElimination with the ranked survivors.
type GroupStageGenerator struct{}

func (g *GroupStageGenerator) Name() string { return "GroupStage" }

func (g *GroupStageGenerator) GenerateBracket(ctx context.Context, params GenerateParams) ([]*models.BracketNode, error) {
	entries, err := seededEntries(params.Entries)
	if err != nil {
		return nil, err
	}
	cfg := params.Options.Group
	if cfg == nil || cfg.Groups < 1 {
		return nil, fmt.Errorf("%w: group_then_elimination requires a group config", ErrUnsupportedFormat)
	}
	if len(entries) < cfg.Groups*2 {
		return nil, fmt.Errorf("%w: %d entries cannot fill %d groups of at least 2", ErrInvalidSeeding, len(entries), cfg.Groups)
	}

	groups := partitionGroups(entries, cfg.Groups)

	var nodes []*models.BracketNode
	id, pos := 0, 0
	for _, name := range sortedGroupNames(groups) {
		label := name
		gn := roundRobinNodes(params.TournamentID, groups[name], &label, id, pos)
		id += len(gn)
		pos += len(gn)
		for _, n := range gn {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// partitionGroups honours group labels already present on the entries;
// otherwise it chunks the seed-ordered list into consecutive groups named
// A, B, C, … and stamps the label onto each entry.
func partitionGroups(entries []*models.TeamEntry, count int) map[string][]*models.TeamEntry {
	groups := make(map[string][]*models.TeamEntry)

	labelled := true
	for _, e := range entries {
		if e.Group == nil || *e.Group == "" {
			labelled = false
			break
		}
	}
	if labelled {
		for _, e := range entries {
			groups[*e.Group] = append(groups[*e.Group], e)
		}
		return groups
	}

	perGroup := (len(entries) + count - 1) / count
	for i, e := range entries {
		name := string(rune('A' + i/perGroup))
		e.Group = &name
		groups[name] = append(groups[name], e)
	}
	return groups
}

func sortedGroupNames(groups map[string][]*models.TeamEntry) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SeedFromGroupStandings interleaves per-group rankings (A1, B1, …, A2, B2,
// …) into a fresh seed list for the knockout stage, taking the configured
// number of teams from each group. The standings slices must already be
// ranked best-first.
func SeedFromGroupStandings(standings map[string][]*models.TeamEntry, advancePerGroup int) []*models.TeamEntry {
	names := make([]string, 0, len(standings))
	for name := range standings {
		names = append(names, name)
	}
	sort.Strings(names)

	var seeded []*models.TeamEntry
	for rank := 0; rank < advancePerGroup; rank++ {
		for _, name := range names {
			if rank < len(standings[name]) {
				seeded = append(seeded, standings[name][rank])
			}
		}
	}
	return seeded
}

// OffsetNodes shifts node ids and rounds by a constant, fixing up edge
// references. Used to lay a knockout stage after an already played group
// stage without colliding with its ids.
func OffsetNodes(nodes []*models.BracketNode, idDelta, roundDelta int) {
	for _, n := range nodes {
		n.ID += idDelta
		n.Round += roundDelta
		if n.WinnerAdvancesTo != nil {
			n.WinnerAdvancesTo.NodeID += idDelta
		}
		if n.LoserAdvancesTo != nil {
			n.LoserAdvancesTo.NodeID += idDelta
		}
	}
}

// AppendKnockout extends a finished group stage with its knockout bracket:
// the ranked survivors are reseeded 1..n, the knockout nodes are generated
// with ids and rounds offset past the group nodes, and everyone left behind
// in the groups is marked eliminated. Returns the combined bracket with byes
// already resolved.
func AppendKnockout(ctx context.Context, tournamentID int, entries []*models.TeamEntry, groupNodes []*models.BracketNode, ranked []*models.TeamEntry, knockoutFormat models.TournamentFormat, opts GenerateOptions) (*Bracket, error) {
	if knockoutFormat != models.FormatSingleElimination && knockoutFormat != models.FormatDoubleElimination {
		return nil, fmt.Errorf("%w: knockout stage must be an elimination format, got %q", ErrUnsupportedFormat, knockoutFormat)
	}
	for _, n := range groupNodes {
		if !n.Status.Terminal() {
			return nil, fmt.Errorf("%w: group node %d is still %s", ErrInvalidSeeding, n.ID, n.Status)
		}
	}

	for i, e := range ranked {
		e.Seed = i + 1
	}
	gen, err := NewGenerator(knockoutFormat)
	if err != nil {
		return nil, err
	}
	knockout, err := gen.GenerateBracket(ctx, GenerateParams{
		TournamentID: tournamentID,
		Entries:      ranked,
		Options:      opts,
	})
	if err != nil {
		return nil, err
	}

	maxID, maxRound := 0, 0
	for _, n := range groupNodes {
		if n.ID > maxID {
			maxID = n.ID
		}
		if n.Round > maxRound {
			maxRound = n.Round
		}
	}
	OffsetNodes(knockout, maxID, maxRound)

	advancing := make(map[int]bool, len(ranked))
	for _, e := range ranked {
		advancing[e.ID] = true
	}
	for _, e := range entries {
		switch {
		case advancing[e.ID]:
			e.Status = models.EntryAdvancing
		case e.Status == models.EntryAdvancing || e.Status == models.EntryApproved:
			e.Status = models.EntryEliminated
			e.EliminatedIn = strPtr("Group Stage")
		}
	}

	combined := make([]*models.BracketNode, 0, len(groupNodes)+len(knockout))
	combined = append(combined, groupNodes...)
	combined = append(combined, knockout...)

	b, err := assemble(tournamentID, entries, combined, models.FormatGroupThenElimination, opts)
	if err != nil {
		return nil, err
	}
	if err := b.resolveByes(); err != nil {
		return nil, err
	}
	return b, nil
}

// SeedElimination treats an ordered team list as a fresh seeding and builds
// the knockout bracket for it. Seeds are reassigned 1..n in list order, so
// the caller controls placement entirely (this also backs the manual seed
// override administrative operation).
func SeedElimination(ctx context.Context, tournamentID int, ranked []*models.TeamEntry, format models.TournamentFormat, opts GenerateOptions) (*Bracket, error) {
	if format != models.FormatSingleElimination && format != models.FormatDoubleElimination {
		return nil, fmt.Errorf("%w: knockout stage must be an elimination format, got %q", ErrUnsupportedFormat, format)
	}
	for i, e := range ranked {
		e.Seed = i + 1
	}
	return NewBracket(ctx, tournamentID, ranked, format, opts)
}
