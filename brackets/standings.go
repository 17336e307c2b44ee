package brackets

import (
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

// ComputeStandings ranks entries by their accumulated records. The tie-break
// chain, applied in order: tournament points, head-to-head winner (only when
// exactly two teams share the points total), point differential, points
// scored, original seed. Rejected entries are excluded; group is an optional
// filter. Pure over its inputs, so it works on live and persisted state
// alike.
func ComputeStandings(entries []*models.TeamEntry, nodes []*models.BracketNode, group *string) []*models.TeamEntry {
	ranked := make([]*models.TeamEntry, 0, len(entries))
	for _, e := range entries {
		if e.Status == models.EntryRejected {
			continue
		}
		if group != nil && (e.Group == nil || *e.Group != *group) {
			continue
		}
		ranked = append(ranked, e)
	}

	// Teams per points total, to know when head-to-head applies.
	atPoints := make(map[int]int, len(ranked))
	for _, e := range ranked {
		atPoints[e.Record.TournamentPoints]++
	}

	h2h := headToHead(nodes)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		ra, rb := a.Record, b.Record
		if ra.TournamentPoints != rb.TournamentPoints {
			return ra.TournamentPoints > rb.TournamentPoints
		}
		if atPoints[ra.TournamentPoints] == 2 {
			if winner, ok := h2h[pairKey(a.ID, b.ID)]; ok {
				return winner == a.ID
			}
		}
		if ra.Differential() != rb.Differential() {
			return ra.Differential() > rb.Differential()
		}
		if ra.PointsFor != rb.PointsFor {
			return ra.PointsFor > rb.PointsFor
		}
		return a.Seed < b.Seed
	})
	return ranked
}

// headToHead maps each decided pairing to the winning entry id. Drawn and bye
// results carry no head-to-head edge; if the same pair met more than once
// with different winners the later decision stands.
func headToHead(nodes []*models.BracketNode) map[[2]int]int {
	h2h := make(map[[2]int]int)
	for _, n := range nodes {
		if !n.Status.Terminal() || n.Result == nil || n.Result.Bye {
			continue
		}
		if !n.SlotA.Real() || !n.SlotB.Real() {
			continue
		}
		winnerID, ok := n.WinnerEntryID()
		if !ok {
			continue
		}
		h2h[pairKey(*n.SlotA.EntryID, *n.SlotB.EntryID)] = winnerID
	}
	return h2h
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// Standings ranks the bracket's entries, optionally restricted to one group.
// Entries are returned as copies so callers can hold them across further
// result submissions.
func (b *Bracket) Standings(group *string) []*models.TeamEntry {
	b.mu.RLock()
	snapshot := make([]*models.TeamEntry, 0, len(b.entries))
	for _, e := range b.entries {
		c := *e
		snapshot = append(snapshot, &c)
	}
	nodes := make([]*models.BracketNode, 0, len(b.nodes))
	for _, n := range b.nodes {
		nodes = append(nodes, n)
	}
	b.mu.RUnlock()
	return ComputeStandings(snapshot, nodes, group)
}

// GroupStandings ranks every group separately, keyed by group name.
func (b *Bracket) GroupStandings() map[string][]*models.TeamEntry {
	groups := make(map[string]struct{})
	for _, e := range b.Entries() {
		if e.Group != nil {
			groups[*e.Group] = struct{}{}
		}
	}
	out := make(map[string][]*models.TeamEntry, len(groups))
	for name := range groups {
		g := name
		out[g] = b.Standings(&g)
	}
	return out
}
