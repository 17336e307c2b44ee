package brackets

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Dosada05/bracket-engine/models"
)

// Bracket is the in-memory arena for one tournament: the node DAG plus the
// team entries it advances. Nodes live in a flat collection indexed by id and
// advancement edges are id references, never owning pointers. All result and
// forfeit submissions are safe under concurrent callers (see progression.go
// for the locking discipline).
type Bracket struct {
	tournamentID int
	format       models.TournamentFormat
	points       models.PointsTable
	allowDraws   bool

	// mu guards the maps themselves, entry records/statuses and structural
	// changes (the lazily created bracket-reset final). Individual node
	// state is guarded by the per-node locks.
	mu      sync.RWMutex
	entries map[int]*models.TeamEntry
	nodes   map[int]*models.BracketNode
	locks   map[int]*sync.Mutex

	incoming map[int][]incomingEdge
	maxID    int

	firstFinalID int
	resetFinalID int
	championID   int
}

type incomingEdge struct {
	edgeType EdgeType
	sourceID int
	slot     models.Slot
}

// NewBracket generates the node DAG for the given format and assembles the
// arena around it. Bye nodes are resolved immediately: their winners are
// advanced downstream exactly as if a real result had been recorded, so the
// propagation algorithm never special-cases byes afterwards.
func NewBracket(ctx context.Context, tournamentID int, entries []*models.TeamEntry, format models.TournamentFormat, opts GenerateOptions) (*Bracket, error) {
	gen, err := NewGenerator(format)
	if err != nil {
		return nil, err
	}
	nodes, err := gen.GenerateBracket(ctx, GenerateParams{
		TournamentID: tournamentID,
		Entries:      entries,
		Options:      opts,
	})
	if err != nil {
		return nil, err
	}
	b, err := assemble(tournamentID, entries, nodes, format, opts)
	if err != nil {
		return nil, err
	}
	if err := b.resolveByes(); err != nil {
		return nil, err
	}
	return b, nil
}

// Rehydrate rebuilds the arena from persisted entries and nodes, validating
// the graph before accepting it. Used on every read-modify path after the
// bracket has been stored.
func Rehydrate(tournamentID int, entries []*models.TeamEntry, nodes []*models.BracketNode, format models.TournamentFormat, opts GenerateOptions) (*Bracket, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyEntryList
	}
	return assemble(tournamentID, entries, nodes, format, opts)
}

// Generate is a convenience wrapper for callers that only need the node list.
func Generate(ctx context.Context, tournamentID int, entries []*models.TeamEntry, format models.TournamentFormat, opts GenerateOptions) ([]*models.BracketNode, error) {
	b, err := NewBracket(ctx, tournamentID, entries, format, opts)
	if err != nil {
		return nil, err
	}
	return b.Nodes(), nil
}

func assemble(tournamentID int, entries []*models.TeamEntry, nodes []*models.BracketNode, format models.TournamentFormat, opts GenerateOptions) (*Bracket, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	b := &Bracket{
		tournamentID: tournamentID,
		format:       format,
		points:       opts.pointsTable(),
		allowDraws:   opts.AllowDraws && !format.Elimination(),
		entries:      make(map[int]*models.TeamEntry, len(entries)),
		nodes:        make(map[int]*models.BracketNode, len(nodes)),
		locks:        make(map[int]*sync.Mutex, len(nodes)),
		incoming:     make(map[int][]incomingEdge),
	}
	for _, e := range entries {
		b.entries[e.ID] = e
		if e.Status == models.EntryChampion {
			b.championID = e.ID
		}
	}
	for _, n := range nodes {
		if _, dup := b.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %d", ErrBracketInvalid, n.ID)
		}
		b.nodes[n.ID] = n
		b.locks[n.ID] = &sync.Mutex{}
		if n.ID > b.maxID {
			b.maxID = n.ID
		}
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	b.indexFinals()
	return b, nil
}

// validate enforces the structural invariants: edges reference existing
// nodes, point to strictly greater rounds (which also rules out cycles), no
// slot has more than one incoming winner- or loser-edge, and a result is
// present exactly on completed/forfeited nodes.
func (b *Bracket) validate() error {
	type slotKey struct {
		nodeID int
		slot   models.Slot
		edge   EdgeType
	}
	seen := make(map[slotKey]int)

	check := func(n *models.BracketNode, ref *models.SlotRef, edge EdgeType) error {
		if ref == nil {
			return nil
		}
		target, ok := b.nodes[ref.NodeID]
		if !ok {
			return fmt.Errorf("%w: node %d references missing node %d", ErrBracketInvalid, n.ID, ref.NodeID)
		}
		if !ref.Slot.Valid() {
			return fmt.Errorf("%w: node %d references invalid slot %d", ErrBracketInvalid, n.ID, ref.Slot)
		}
		if target.Round <= n.Round {
			return fmt.Errorf("%w: edge from node %d (round %d) to node %d (round %d) does not advance",
				ErrBracketInvalid, n.ID, n.Round, target.ID, target.Round)
		}
		key := slotKey{ref.NodeID, ref.Slot, edge}
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("%w: nodes %d and %d both feed a %s into node %d slot %d",
				ErrBracketInvalid, prev, n.ID, edge, ref.NodeID, ref.Slot)
		}
		seen[key] = n.ID
		b.incoming[ref.NodeID] = append(b.incoming[ref.NodeID], incomingEdge{edgeType: edge, sourceID: n.ID, slot: ref.Slot})
		return nil
	}

	for _, n := range b.nodes {
		if err := check(n, n.WinnerAdvancesTo, EdgeWinner); err != nil {
			return err
		}
		if err := check(n, n.LoserAdvancesTo, EdgeLoser); err != nil {
			return err
		}
		if n.Status.Terminal() != (n.Result != nil) {
			return fmt.Errorf("%w: node %d status %s inconsistent with result presence", ErrBracketInvalid, n.ID, n.Status)
		}
		for _, slot := range []models.Slot{models.SlotA, models.SlotB} {
			if id := n.Slot(slot).EntryID; id != nil {
				if _, ok := b.entries[*id]; !ok {
					return fmt.Errorf("%w: node %d slot %d references unknown entry %d", ErrBracketInvalid, n.ID, slot, *id)
				}
			}
		}
	}

	for id := range b.incoming {
		sort.Slice(b.incoming[id], func(i, j int) bool {
			edges := b.incoming[id]
			if edges[i].slot != edges[j].slot {
				return edges[i].slot < edges[j].slot
			}
			return edges[i].edgeType < edges[j].edgeType
		})
	}
	return nil
}

func (b *Bracket) indexFinals() {
	for _, n := range b.nodes {
		if n.BracketType != models.BracketFinal {
			continue
		}
		if b.firstFinalID == 0 || n.Round < b.nodes[b.firstFinalID].Round {
			b.firstFinalID = n.ID
		}
	}
	for _, n := range b.nodes {
		if n.BracketType == models.BracketFinal && n.ID != b.firstFinalID {
			b.resetFinalID = n.ID
		}
	}
}

func (b *Bracket) TournamentID() int               { return b.tournamentID }
func (b *Bracket) Format() models.TournamentFormat { return b.format }

// Node returns the node with the given id. The returned value is shared
// engine state; callers must treat it as read-only.
func (b *Bracket) Node(id int) (*models.BracketNode, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
	}
	return n, nil
}

// Nodes returns all nodes ordered by round, then position in round.
func (b *Bracket) Nodes() []*models.BracketNode {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.BracketNode, 0, len(b.nodes))
	for _, n := range b.nodes {
		out = append(out, n)
	}
	sortNodes(out)
	return out
}

// Entries returns the team entries ordered by seed.
func (b *Bracket) Entries() []*models.TeamEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.TeamEntry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seed < out[j].Seed })
	return out
}

func (b *Bracket) Entry(id int) (*models.TeamEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrEntryNotFound, id)
	}
	return e, nil
}

// Champion returns the tournament winner once the terminal node has been
// decided.
func (b *Bracket) Champion() (*models.TeamEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.championID == 0 {
		return nil, false
	}
	return b.entries[b.championID], true
}

// resolveByes walks the freshly generated DAG and completes every node that
// holds a bye, advancing winners downstream. Cascades (a bye meeting another
// bye in the losers bracket) are handled by the shared propagation path.
func (b *Bracket) resolveByes() error {
	ids := make([]int, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if err := b.completeBye(id); err != nil {
			return err
		}
	}
	return nil
}
