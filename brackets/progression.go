package brackets

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/bracket-engine/models"
)

// Locking discipline: every state transition acquires the per-node locks of
// the source node and both advancement targets, in ascending node id order,
// before touching any of them. Downstream slots are checked for conflicts
// before the first write, so a failed transition leaves the node exactly as
// it was. Cascaded bye completions release the batch and re-acquire a fresh
// sorted one per node, which keeps the ordering invariant across cascades.

// AttachSchedule moves a node to scheduled with a kick-off time and an
// optional venue. Re-scheduling an already scheduled node is allowed.
func (b *Bracket) AttachSchedule(nodeID int, at time.Time, venue *string) error {
	return b.withNode(nodeID, func(node *models.BracketNode) error {
		if node.Status != models.NodePending && node.Status != models.NodeScheduled {
			return fmt.Errorf("%w: node %d is %s", ErrNodeNotSchedulable, nodeID, node.Status)
		}
		if !node.SlotA.Resolved() || !node.SlotB.Resolved() {
			return fmt.Errorf("%w: node %d has unresolved slots", ErrNodeNotSchedulable, nodeID)
		}
		t := at
		node.ScheduledAt = &t
		node.Venue = venue
		node.Status = models.NodeScheduled
		return nil
	})
}

// Start moves a scheduled node to in_progress. Both slots must hold real
// teams; nodes with a bye never reach this point because they auto-complete.
func (b *Bracket) Start(nodeID int) error {
	return b.withNode(nodeID, func(node *models.BracketNode) error {
		if node.Status != models.NodeScheduled {
			return fmt.Errorf("%w: node %d is %s", ErrNodeNotStartable, nodeID, node.Status)
		}
		if !node.SlotA.Real() || !node.SlotB.Real() {
			return fmt.Errorf("%w: node %d does not hold two teams", ErrNodeNotStartable, nodeID)
		}
		node.Status = models.NodeInProgress
		return nil
	})
}

// RecordResult completes an in_progress node with a final score, updates both
// team records and advances the winner (and, in double elimination, the
// loser) downstream. Drawn scores are accepted only in league play with
// draws enabled.
func (b *Bracket) RecordResult(nodeID int, scoreA, scoreB int, overtime bool) error {
	if scoreA < 0 || scoreB < 0 {
		return fmt.Errorf("%w: negative score", ErrInvalidResult)
	}
	cascade, err := b.propagate(nodeID, func(node *models.BracketNode) (outcome, error) {
		if node.Status != models.NodeInProgress {
			return outcome{}, fmt.Errorf("%w: node %d is %s", ErrNodeNotInProgress, nodeID, node.Status)
		}
		res := models.NodeResult{ScoreA: scoreA, ScoreB: scoreB, Overtime: overtime}
		if scoreA == scoreB {
			// Draws only exist in league play: nodes without advancement
			// edges outside the knockout path.
			if !b.allowDraws || node.BracketType != models.BracketWinners ||
				node.WinnerAdvancesTo != nil || node.LoserAdvancesTo != nil {
				return outcome{}, fmt.Errorf("%w: draw is not permitted on node %d", ErrInvalidResult, nodeID)
			}
			return outcome{result: res, status: models.NodeCompleted, draw: true}, nil
		}
		winner := models.SlotA
		if scoreB > scoreA {
			winner = models.SlotB
		}
		return outcome{result: res, status: models.NodeCompleted, winner: winner}, nil
	})
	if err != nil {
		return err
	}
	return b.cascadeByes(cascade)
}

// RecordForfeit resolves a node without play: the named slot loses, the other
// advances. Allowed from scheduled or in_progress. The forfeiting team takes
// a loss with forfeit points; no match points are scored either way.
func (b *Bracket) RecordForfeit(nodeID int, forfeiting models.Slot, reason string) error {
	if !forfeiting.Valid() {
		return fmt.Errorf("%w: slot %d", ErrInvalidForfeitingSlot, forfeiting)
	}
	cascade, err := b.propagate(nodeID, func(node *models.BracketNode) (outcome, error) {
		if node.Status != models.NodeScheduled && node.Status != models.NodeInProgress {
			return outcome{}, fmt.Errorf("%w: node %d is %s", ErrNodeNotInProgress, nodeID, node.Status)
		}
		if !node.Slot(forfeiting).Real() {
			return outcome{}, fmt.Errorf("%w: node %d slot %d", ErrInvalidForfeitingSlot, nodeID, forfeiting)
		}
		ff := forfeiting
		res := models.NodeResult{ForfeitingSlot: &ff}
		if reason != "" {
			r := reason
			res.ForfeitReason = &r
		}
		return outcome{result: res, status: models.NodeForfeited, winner: forfeiting.Other()}, nil
	})
	if err != nil {
		return err
	}
	return b.cascadeByes(cascade)
}

// outcome is a decided transition, computed under the lock batch and applied
// atomically by commit.
type outcome struct {
	result models.NodeResult
	status models.NodeStatus
	winner models.Slot // zero when drawn
	draw   bool
}

var errByeNotApplicable = errors.New("node holds no resolvable bye")

// completeBye resolves a pending node whose slots are settled and at least
// one of them is a bye. A no-op when the node is in any other shape, so it is
// safe to call speculatively during generation and cascades.
func (b *Bracket) completeBye(nodeID int) error {
	cascade, err := b.propagate(nodeID, func(node *models.BracketNode) (outcome, error) {
		if node.Status != models.NodePending || !node.SlotA.Resolved() || !node.SlotB.Resolved() {
			return outcome{}, errByeNotApplicable
		}
		if !node.SlotA.Bye && !node.SlotB.Bye {
			return outcome{}, errByeNotApplicable
		}
		// The real team wins; if both slots are byes, slot A carries the
		// synthetic winner forward.
		winner := models.SlotA
		if node.SlotB.Real() {
			winner = models.SlotB
		}
		return outcome{result: models.NodeResult{Bye: true}, status: models.NodeCompleted, winner: winner}, nil
	})
	if errors.Is(err, errByeNotApplicable) {
		return nil
	}
	if err != nil {
		return err
	}
	return b.cascadeByes(cascade)
}

func (b *Bracket) cascadeByes(ids []int) error {
	for _, id := range ids {
		if err := b.completeBye(id); err != nil {
			return err
		}
	}
	return nil
}

// withNode runs fn with the node's own lock held. Used for transitions that
// never touch downstream nodes.
func (b *Bracket) withNode(nodeID int, fn func(*models.BracketNode) error) error {
	b.mu.RLock()
	node, ok := b.nodes[nodeID]
	var mu *sync.Mutex
	if ok {
		mu = b.locks[nodeID]
	}
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNodeNotFound, nodeID)
	}
	mu.Lock()
	defer mu.Unlock()
	return fn(node)
}

// propagate locks the node together with its advancement targets, lets decide
// compute the transition, and commits it. Nothing is mutated when decide or
// the downstream conflict check fails.
func (b *Bracket) propagate(nodeID int, decide func(*models.BracketNode) (outcome, error)) ([]int, error) {
	b.mu.RLock()
	node, ok := b.nodes[nodeID]
	if !ok {
		b.mu.RUnlock()
		return nil, fmt.Errorf("%w: id %d", ErrNodeNotFound, nodeID)
	}
	ids := []int{node.ID}
	if node.WinnerAdvancesTo != nil {
		ids = append(ids, node.WinnerAdvancesTo.NodeID)
	}
	if node.LoserAdvancesTo != nil {
		ids = append(ids, node.LoserAdvancesTo.NodeID)
	}
	sort.Ints(ids)
	muxes := make([]*sync.Mutex, 0, len(ids))
	prev := 0
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		prev = id
		muxes = append(muxes, b.locks[id])
	}
	b.mu.RUnlock()

	for _, m := range muxes {
		m.Lock()
	}
	defer func() {
		for i := len(muxes) - 1; i >= 0; i-- {
			muxes[i].Unlock()
		}
	}()

	out, err := decide(node)
	if err != nil {
		return nil, err
	}
	return b.commit(node, out)
}

// commit applies a decided outcome. Caller holds the locks of node and both
// targets. Validation of downstream slots happens before the first mutation.
func (b *Bracket) commit(node *models.BracketNode, out outcome) ([]int, error) {
	type write struct {
		target *models.BracketNode
		slot   models.Slot
		value  models.NodeSlot
	}
	var writes []write

	if !out.draw {
		winSlot := out.winner
		edges := []struct {
			ref *models.SlotRef
			val models.NodeSlot
		}{
			{node.WinnerAdvancesTo, cloneSlot(node.Slot(winSlot))},
			{node.LoserAdvancesTo, cloneSlot(node.Slot(winSlot.Other()))},
		}
		b.mu.RLock()
		for _, e := range edges {
			if e.ref == nil {
				continue
			}
			target := b.nodes[e.ref.NodeID]
			if target.Slot(e.ref.Slot).Resolved() {
				b.mu.RUnlock()
				return nil, fmt.Errorf("%w: node %d slot %d already holds a team",
					ErrPropagationConflict, target.ID, e.ref.Slot)
			}
			writes = append(writes, write{target: target, slot: e.ref.Slot, value: e.val})
		}
		b.mu.RUnlock()
	}

	res := out.result
	node.Result = &res
	node.Status = out.status

	b.mu.Lock()
	if b.settleEntries(node, out) {
		b.createResetFinal(node)
	}
	b.mu.Unlock()

	var cascade []int
	for _, w := range writes {
		*w.target.Slot(w.slot) = w.value
		t := w.target
		if t.Status == models.NodePending && t.SlotA.Resolved() && t.SlotB.Resolved() &&
			(t.SlotA.Bye || t.SlotB.Bye) {
			cascade = append(cascade, t.ID)
		}
	}
	return cascade, nil
}

// settleEntries updates team records and entry statuses for a decided node.
// Returns true when a bracket-reset grand final must be created. Caller holds
// b.mu.
func (b *Bracket) settleEntries(node *models.BracketNode, out outcome) bool {
	var winner, loser *models.TeamEntry
	if out.draw {
		winner = b.slotEntry(&node.SlotA)
		loser = b.slotEntry(&node.SlotB)
	} else {
		winner = b.slotEntry(node.Slot(out.winner))
		loser = b.slotEntry(node.Slot(out.winner.Other()))
	}

	// Byes never count toward records.
	switch {
	case out.result.Bye:
	case out.draw:
		for _, e := range []*models.TeamEntry{winner, loser} {
			e.Record.Played++
			e.Record.Draws++
			e.Record.TournamentPoints += b.points.Draw
		}
		winner.Record.PointsFor += out.result.ScoreA
		winner.Record.PointsAgainst += out.result.ScoreB
		loser.Record.PointsFor += out.result.ScoreB
		loser.Record.PointsAgainst += out.result.ScoreA
	case out.result.ForfeitingSlot != nil:
		winner.Record.Played++
		winner.Record.Wins++
		winner.Record.TournamentPoints += b.points.Win
		loser.Record.Played++
		loser.Record.Losses++
		loser.Record.TournamentPoints += b.points.ForfeitLoss
	default:
		winScore, loseScore := out.result.ScoreA, out.result.ScoreB
		if out.winner == models.SlotB {
			winScore, loseScore = loseScore, winScore
		}
		winner.Record.Played++
		winner.Record.Wins++
		winner.Record.PointsFor += winScore
		winner.Record.PointsAgainst += loseScore
		winner.Record.TournamentPoints += b.points.Win
		loser.Record.Played++
		loser.Record.Losses++
		loser.Record.PointsFor += loseScore
		loser.Record.PointsAgainst += winScore
		loser.Record.TournamentPoints += b.points.Loss
	}

	if out.draw {
		return false
	}

	switch node.BracketType {
	case models.BracketFinal:
		// First grand final of a double elimination: a win by the
		// losers-bracket side (slot B) forces the bracket reset instead of
		// deciding the title.
		if b.format == models.FormatDoubleElimination &&
			node.ID == b.firstFinalID && b.resetFinalID == 0 && out.winner == models.SlotB {
			return true
		}
		if winner != nil {
			winner.Status = models.EntryChampion
			winner.FinalPosition = intPtr(1)
			b.championID = winner.ID
		}
		if loser != nil {
			loser.Status = models.EntryEliminated
			loser.FinalPosition = intPtr(2)
			loser.EliminatedIn = strPtr(node.RoundName)
		}
	case models.BracketConsolation:
		if winner != nil {
			winner.Status = models.EntryEliminated
			winner.FinalPosition = intPtr(3)
		}
		if loser != nil {
			loser.Status = models.EntryEliminated
			loser.FinalPosition = intPtr(4)
			loser.EliminatedIn = strPtr(node.RoundName)
		}
	default:
		if winner != nil && node.WinnerAdvancesTo != nil {
			winner.Status = models.EntryAdvancing
		}
		if loser != nil {
			if node.LoserAdvancesTo != nil {
				// Dropping into the losers bracket is still alive.
				loser.Status = models.EntryAdvancing
			} else if node.WinnerAdvancesTo != nil {
				// A knockout node with no loser edge ends the loser's run.
				// League nodes have no edges at all and eliminate nobody.
				loser.Status = models.EntryEliminated
				loser.EliminatedIn = strPtr(node.RoundName)
			}
		}
	}
	return false
}

// createResetFinal instantiates the second grand final with the same two
// teams. Caller holds b.mu.
func (b *Bracket) createResetFinal(gf *models.BracketNode) {
	b.maxID++
	reset := &models.BracketNode{
		ID:              b.maxID,
		TournamentID:    b.tournamentID,
		BracketType:     models.BracketFinal,
		Round:           gf.Round + 1,
		PositionInRound: 0,
		RoundName:       "Grand Final Reset",
		SlotA:           cloneSlot(&gf.SlotA),
		SlotB:           cloneSlot(&gf.SlotB),
		Status:          models.NodePending,
	}
	b.nodes[reset.ID] = reset
	b.locks[reset.ID] = &sync.Mutex{}
	b.resetFinalID = reset.ID
}

func (b *Bracket) slotEntry(s *models.NodeSlot) *models.TeamEntry {
	if s.EntryID == nil {
		return nil
	}
	return b.entries[*s.EntryID]
}

func cloneSlot(s *models.NodeSlot) models.NodeSlot {
	out := models.NodeSlot{Bye: s.Bye}
	if s.EntryID != nil {
		id := *s.EntryID
		out.EntryID = &id
	}
	if s.SeedAtAssignment != nil {
		seed := *s.SeedAtAssignment
		out.SeedAtAssignment = &seed
	}
	return out
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
