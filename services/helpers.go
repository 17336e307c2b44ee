package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

// Broadcaster pushes bracket events to live subscribers. Satisfied by
// realtime.Hub; a no-op implementation is fine for batch tooling and tests.
type Broadcaster interface {
	BroadcastToTournament(tournamentID int, eventType string, payload interface{})
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToTournament(int, string, interface{}) {}

// NopBroadcaster returns a Broadcaster that discards every event.
func NopBroadcaster() Broadcaster { return noopBroadcaster{} }

// BracketView is the full read model of one tournament's bracket.
type BracketView struct {
	TournamentID int                     `json:"tournament_id"`
	Format       models.TournamentFormat `json:"format"`
	Nodes        []*models.BracketNode   `json:"nodes"`
	Entries      []*models.TeamEntry     `json:"entries"`
	Champion     *models.TeamEntry       `json:"champion,omitempty"`
}

func viewOf(b *brackets.Bracket) *BracketView {
	view := &BracketView{
		TournamentID: b.TournamentID(),
		Format:       b.Format(),
		Nodes:        b.Nodes(),
		Entries:      b.Entries(),
	}
	if champion, ok := b.Champion(); ok {
		view.Champion = champion
	}
	return view
}

func generateOptions(t *models.Tournament) brackets.GenerateOptions {
	points := t.Points
	return brackets.GenerateOptions{
		ThirdPlaceMatch: t.ThirdPlaceMatch,
		AllowDraws:      t.AllowDraws,
		Points:          &points,
		Group:           t.Group,
	}
}

// loadBracketState fetches the tournament, its entries and its nodes
// concurrently. Read paths only; anything that writes the bracket back loads
// through loadBracketStateLocked instead.
func loadBracketState(
	ctx context.Context,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.TeamEntryRepository,
	nodeRepo repositories.BracketNodeRepository,
	tournamentID int,
) (*models.Tournament, []*models.TeamEntry, []*models.BracketNode, error) {
	var (
		tournament *models.Tournament
		entries    []*models.TeamEntry
		nodes      []*models.BracketNode
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := tournamentRepo.GetByID(gctx, nil, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		list, err := entryRepo.ListByTournament(gctx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to list entries for tournament %d: %w", tournamentID, err)
		}
		entries = list
		return nil
	})
	g.Go(func() error {
		list, err := nodeRepo.ListByTournament(gctx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to list bracket nodes for tournament %d: %w", tournamentID, err)
		}
		nodes = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return tournament, entries, nodes, nil
}

// loadBracketStateLocked is the write-path variant of loadBracketState: it
// runs on the caller's transaction and takes the tournament's row lock first,
// so two writers for the same tournament serialize instead of one write-back
// clobbering rows the other already committed.
func loadBracketStateLocked(
	ctx context.Context,
	tx *sql.Tx,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.TeamEntryRepository,
	nodeRepo repositories.BracketNodeRepository,
	tournamentID int,
) (*models.Tournament, []*models.TeamEntry, []*models.BracketNode, error) {
	tournament, err := tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, nil, nil, ErrTournamentNotFound
		}
		return nil, nil, nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	entries, err := entryRepo.ListByTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list entries for tournament %d: %w", tournamentID, err)
	}
	nodes, err := nodeRepo.ListByTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list bracket nodes for tournament %d: %w", tournamentID, err)
	}
	return tournament, entries, nodes, nil
}

func rehydrate(t *models.Tournament, entries []*models.TeamEntry, nodes []*models.BracketNode) (*brackets.Bracket, error) {
	if len(nodes) == 0 {
		return nil, ErrBracketNotGenerated
	}
	b, err := brackets.Rehydrate(t.ID, entries, nodes, t.Format, generateOptions(t))
	if err != nil {
		return nil, fmt.Errorf("failed to rehydrate bracket for tournament %d: %w", t.ID, err)
	}
	return b, nil
}

// withTx runs fn inside a transaction with commit/rollback handling in the
// shape every write path shares.
func withTx(ctx context.Context, db *sql.DB, logger *slog.Logger, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", "error", rbErr, "cause", err)
			}
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

// persistBracket writes the current engine state back: every node (upserted,
// to cover the lazily created bracket-reset final) and every entry.
func persistBracket(
	ctx context.Context,
	tx *sql.Tx,
	nodeRepo repositories.BracketNodeRepository,
	entryRepo repositories.TeamEntryRepository,
	b *brackets.Bracket,
) error {
	for _, node := range b.Nodes() {
		if err := nodeRepo.Upsert(ctx, tx, node); err != nil {
			return fmt.Errorf("failed to persist node %d: %w", node.ID, err)
		}
	}
	for _, entry := range b.Entries() {
		if err := entryRepo.Update(ctx, tx, entry); err != nil {
			return fmt.Errorf("failed to persist entry %d: %w", entry.ID, err)
		}
	}
	return nil
}
