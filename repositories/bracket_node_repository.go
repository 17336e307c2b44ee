package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

var ErrBracketNodeNotFound = errors.New("bracket node not found")

// BracketNodeRepository persists the tournament node DAG. Node ids are scoped
// to the tournament, so the primary key is (tournament_id, node_id) and edges
// are stored as plain (node_id, slot) column pairs.
type BracketNodeRepository interface {
	ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, nodes []*models.BracketNode) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.BracketNode, error)
	GetByID(ctx context.Context, exec SQLExecutor, tournamentID, nodeID int) (*models.BracketNode, error)
	Update(ctx context.Context, exec SQLExecutor, node *models.BracketNode) error
	Upsert(ctx context.Context, exec SQLExecutor, node *models.BracketNode) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresBracketNodeRepository struct {
	db *sql.DB
}

func NewPostgresBracketNodeRepository(db *sql.DB) BracketNodeRepository {
	return &postgresBracketNodeRepository{db: db}
}

func (r *postgresBracketNodeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const bracketNodeColumns = `
	tournament_id, node_id, bracket_type, round, position_in_round, round_name, group_name,
	slot_a_entry_id, slot_a_bye, slot_a_seed,
	slot_b_entry_id, slot_b_bye, slot_b_seed,
	status, score_a, score_b, overtime, forfeiting_slot, forfeit_reason, result_bye,
	winner_to_node, winner_to_slot, loser_to_node, loser_to_slot,
	scheduled_at, venue`

const insertBracketNodeQuery = `
	INSERT INTO bracket_nodes (` + bracketNodeColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
	        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

// ReplaceForTournament atomically swaps the stored bracket for a freshly
// generated one. Runs in the caller's transaction when exec is one.
func (r *postgresBracketNodeRepository) ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, nodes []*models.BracketNode) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM bracket_nodes WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to clear bracket for tournament %d: %w", tournamentID, err)
	}
	for _, node := range nodes {
		if _, err := executor.ExecContext(ctx, insertBracketNodeQuery, nodeArgs(node)...); err != nil {
			return fmt.Errorf("failed to insert node %d for tournament %d: %w", node.ID, tournamentID, err)
		}
	}
	return nil
}

func (r *postgresBracketNodeRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.BracketNode, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + bracketNodeColumns + `
		FROM bracket_nodes
		WHERE tournament_id = $1
		ORDER BY round, position_in_round, node_id`
	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodes := make([]*models.BracketNode, 0)
	for rows.Next() {
		node, errScan := scanBracketNode(rows)
		if errScan != nil {
			return nil, errScan
		}
		nodes = append(nodes, node)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *postgresBracketNodeRepository) GetByID(ctx context.Context, exec SQLExecutor, tournamentID, nodeID int) (*models.BracketNode, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + bracketNodeColumns + `
		FROM bracket_nodes
		WHERE tournament_id = $1 AND node_id = $2`
	row := executor.QueryRowContext(ctx, query, tournamentID, nodeID)
	node, err := scanBracketNode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNodeNotFound
		}
		return nil, err
	}
	return node, nil
}

func (r *postgresBracketNodeRepository) Update(ctx context.Context, exec SQLExecutor, node *models.BracketNode) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE bracket_nodes SET
			slot_a_entry_id = $3, slot_a_bye = $4, slot_a_seed = $5,
			slot_b_entry_id = $6, slot_b_bye = $7, slot_b_seed = $8,
			status = $9, score_a = $10, score_b = $11, overtime = $12,
			forfeiting_slot = $13, forfeit_reason = $14, result_bye = $15,
			scheduled_at = $16, venue = $17
		WHERE tournament_id = $1 AND node_id = $2`
	args := []interface{}{node.TournamentID, node.ID}
	args = append(args, slotArgs(node.SlotA)...)
	args = append(args, slotArgs(node.SlotB)...)
	args = append(args, resultArgs(node)...)
	args = append(args, node.ScheduledAt, node.Venue)
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrBracketNodeNotFound)
}

// Upsert covers the lazily created bracket-reset grand final, which does not
// exist at generation time.
func (r *postgresBracketNodeRepository) Upsert(ctx context.Context, exec SQLExecutor, node *models.BracketNode) error {
	executor := r.getExecutor(exec)
	query := insertBracketNodeQuery + `
	ON CONFLICT (tournament_id, node_id) DO UPDATE SET
		slot_a_entry_id = EXCLUDED.slot_a_entry_id, slot_a_bye = EXCLUDED.slot_a_bye, slot_a_seed = EXCLUDED.slot_a_seed,
		slot_b_entry_id = EXCLUDED.slot_b_entry_id, slot_b_bye = EXCLUDED.slot_b_bye, slot_b_seed = EXCLUDED.slot_b_seed,
		status = EXCLUDED.status, score_a = EXCLUDED.score_a, score_b = EXCLUDED.score_b, overtime = EXCLUDED.overtime,
		forfeiting_slot = EXCLUDED.forfeiting_slot, forfeit_reason = EXCLUDED.forfeit_reason, result_bye = EXCLUDED.result_bye,
		scheduled_at = EXCLUDED.scheduled_at, venue = EXCLUDED.venue`
	_, err := executor.ExecContext(ctx, query, nodeArgs(node)...)
	return err
}

func (r *postgresBracketNodeRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM bracket_nodes WHERE tournament_id = $1`, tournamentID)
	return err
}

func slotArgs(s models.NodeSlot) []interface{} {
	return []interface{}{s.EntryID, s.Bye, s.SeedAtAssignment}
}

func resultArgs(node *models.BracketNode) []interface{} {
	var (
		scoreA, scoreB sql.NullInt64
		overtime       sql.NullBool
		forfeiting     sql.NullInt64
		reason         *string
		resultBye      bool
	)
	if res := node.Result; res != nil {
		scoreA = sql.NullInt64{Int64: int64(res.ScoreA), Valid: true}
		scoreB = sql.NullInt64{Int64: int64(res.ScoreB), Valid: true}
		overtime = sql.NullBool{Bool: res.Overtime, Valid: true}
		if res.ForfeitingSlot != nil {
			forfeiting = sql.NullInt64{Int64: int64(*res.ForfeitingSlot), Valid: true}
		}
		reason = res.ForfeitReason
		resultBye = res.Bye
	}
	return []interface{}{string(node.Status), scoreA, scoreB, overtime, forfeiting, reason, resultBye}
}

func nodeArgs(node *models.BracketNode) []interface{} {
	args := []interface{}{
		node.TournamentID, node.ID, string(node.BracketType), node.Round, node.PositionInRound,
		node.RoundName, node.Group,
	}
	args = append(args, slotArgs(node.SlotA)...)
	args = append(args, slotArgs(node.SlotB)...)
	args = append(args, resultArgs(node)...)
	args = append(args, edgeArgs(node.WinnerAdvancesTo)...)
	args = append(args, edgeArgs(node.LoserAdvancesTo)...)
	args = append(args, node.ScheduledAt, node.Venue)
	return args
}

func edgeArgs(ref *models.SlotRef) []interface{} {
	if ref == nil {
		return []interface{}{nil, nil}
	}
	return []interface{}{ref.NodeID, int(ref.Slot)}
}

func scanBracketNode(rowScanner interface{ Scan(...interface{}) error }) (*models.BracketNode, error) {
	var (
		n          models.BracketNode
		bt, status string
		roundName  sql.NullString

		slotASeed, slotBSeed   sql.NullInt64
		slotAEntry, slotBEntry sql.NullInt64

		scoreA, scoreB sql.NullInt64
		overtime       sql.NullBool
		forfeiting     sql.NullInt64
		reason         sql.NullString
		resultBye      bool

		winnerNode, winnerSlot sql.NullInt64
		loserNode, loserSlot   sql.NullInt64
	)
	err := rowScanner.Scan(
		&n.TournamentID, &n.ID, &bt, &n.Round, &n.PositionInRound, &roundName, &n.Group,
		&slotAEntry, &n.SlotA.Bye, &slotASeed,
		&slotBEntry, &n.SlotB.Bye, &slotBSeed,
		&status, &scoreA, &scoreB, &overtime, &forfeiting, &reason, &resultBye,
		&winnerNode, &winnerSlot, &loserNode, &loserSlot,
		&n.ScheduledAt, &n.Venue,
	)
	if err != nil {
		return nil, err
	}
	n.BracketType = models.BracketType(bt)
	n.Status = models.NodeStatus(status)
	n.RoundName = roundName.String
	n.SlotA.EntryID = nullableInt(slotAEntry)
	n.SlotA.SeedAtAssignment = nullableInt(slotASeed)
	n.SlotB.EntryID = nullableInt(slotBEntry)
	n.SlotB.SeedAtAssignment = nullableInt(slotBSeed)
	if n.Status.Terminal() {
		res := models.NodeResult{
			ScoreA:   int(scoreA.Int64),
			ScoreB:   int(scoreB.Int64),
			Overtime: overtime.Bool,
			Bye:      resultBye,
		}
		if forfeiting.Valid {
			slot := models.Slot(forfeiting.Int64)
			res.ForfeitingSlot = &slot
		}
		if reason.Valid {
			r := reason.String
			res.ForfeitReason = &r
		}
		n.Result = &res
	}
	if winnerNode.Valid {
		n.WinnerAdvancesTo = &models.SlotRef{NodeID: int(winnerNode.Int64), Slot: models.Slot(winnerSlot.Int64)}
	}
	if loserNode.Valid {
		n.LoserAdvancesTo = &models.SlotRef{NodeID: int(loserNode.Int64), Slot: models.Slot(loserSlot.Int64)}
	}
	return &n, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
