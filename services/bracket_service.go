package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/realtime"
	"github.com/Dosada05/bracket-engine/repositories"
)

type BracketService interface {
	GenerateBracket(ctx context.Context, tournamentID int) (*BracketView, error)
	RegenerateBracket(ctx context.Context, tournamentID int) (*BracketView, error)
	GetBracket(ctx context.Context, tournamentID int) (*BracketView, error)
	OverrideSeeds(ctx context.Context, tournamentID int, seedsByEntryID map[int]int) (*BracketView, error)
	SeedKnockoutStage(ctx context.Context, tournamentID int) (*BracketView, error)
}

type bracketService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.TeamEntryRepository
	nodeRepo       repositories.BracketNodeRepository
	broadcaster    Broadcaster
	logger         *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.TeamEntryRepository,
	nodeRepo repositories.BracketNodeRepository,
	broadcaster Broadcaster,
	logger *slog.Logger,
) BracketService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster()
	}
	return &bracketService{
		db:             db,
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		nodeRepo:       nodeRepo,
		broadcaster:    broadcaster,
		logger:         logger,
	}
}

// GenerateBracket builds the bracket from the approved entries and stores it.
// Fails if a bracket already exists; RegenerateBracket replaces one.
func (s *bracketService) GenerateBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	return s.generate(ctx, tournamentID, false)
}

// RegenerateBracket discards the stored bracket, resets every entry's
// competitive state and generates a fresh one from current seeds.
func (s *bracketService) RegenerateBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	return s.generate(ctx, tournamentID, true)
}

func (s *bracketService) generate(ctx context.Context, tournamentID int, replace bool) (*BracketView, error) {
	var (
		b      *brackets.Bracket
		format models.TournamentFormat
	)
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		// The row lock serializes generation against concurrent result
		// submissions and double-clicked regenerates for the same tournament.
		tournament, entries, existing, err := loadBracketStateLocked(ctx, tx, s.tournamentRepo, s.entryRepo, s.nodeRepo, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Status == models.TournamentCompleted {
			return ErrTournamentNotEditable
		}
		if len(existing) > 0 && !replace {
			return ErrBracketAlreadyExists
		}

		competitors := make([]*models.TeamEntry, 0, len(entries))
		for _, e := range entries {
			if replace {
				// Records and knockout outcomes from the previous bracket are void.
				e.Record = models.TeamRecord{}
				e.EliminatedIn = nil
				e.FinalPosition = nil
				switch e.Status {
				case models.EntryAdvancing, models.EntryEliminated, models.EntryChampion:
					e.Status = models.EntryApproved
				}
			}
			if e.Status == models.EntryApproved {
				competitors = append(competitors, e)
			}
		}
		if len(competitors) < 2 {
			return fmt.Errorf("%w: found %d", ErrNotEnoughEntries, len(competitors))
		}

		built, err := brackets.NewBracket(ctx, tournamentID, competitors, tournament.Format, generateOptions(tournament))
		if err != nil {
			return err
		}

		if replace {
			if err := s.entryRepo.ResetCompetitiveState(ctx, tx, tournamentID); err != nil {
				return fmt.Errorf("failed to reset entries for tournament %d: %w", tournamentID, err)
			}
		}
		if err := s.nodeRepo.ReplaceForTournament(ctx, tx, tournamentID, built.Nodes()); err != nil {
			return err
		}
		for _, entry := range built.Entries() {
			if err := s.entryRepo.Update(ctx, tx, entry); err != nil {
				return fmt.Errorf("failed to persist entry %d: %w", entry.ID, err)
			}
		}
		if tournament.Status != models.TournamentActive {
			if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.TournamentActive); err != nil {
				return err
			}
		}
		b, format = built, tournament.Format
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := viewOf(b)
	s.logger.Info("bracket generated",
		"tournament_id", tournamentID, "format", format, "nodes", len(view.Nodes), "entries", len(view.Entries))
	s.broadcaster.BroadcastToTournament(tournamentID, realtime.EventBracketGenerated, view)
	return view, nil
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	tournament, entries, nodes, err := loadBracketState(ctx, s.tournamentRepo, s.entryRepo, s.nodeRepo, tournamentID)
	if err != nil {
		return nil, err
	}
	b, err := rehydrate(tournament, entries, nodes)
	if err != nil {
		return nil, err
	}
	return viewOf(b), nil
}

// OverrideSeeds applies a manual seed assignment and regenerates the bracket
// from it.
func (s *bracketService) OverrideSeeds(ctx context.Context, tournamentID int, seedsByEntryID map[int]int) (*BracketView, error) {
	if len(seedsByEntryID) == 0 {
		return nil, fmt.Errorf("%w: no seeds provided", ErrValidationFailed)
	}
	seen := make(map[int]bool, len(seedsByEntryID))
	for entryID, seed := range seedsByEntryID {
		if seed < 1 {
			return nil, fmt.Errorf("%w: seed %d for entry %d", ErrValidationFailed, seed, entryID)
		}
		if seen[seed] {
			return nil, fmt.Errorf("%w: duplicate seed %d", ErrValidationFailed, seed)
		}
		seen[seed] = true
	}
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID); err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if err := s.entryRepo.UpdateSeeds(ctx, tx, tournamentID, seedsByEntryID); err != nil {
			if errors.Is(err, repositories.ErrTeamEntryNotFound) {
				return ErrEntryNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.RegenerateBracket(ctx, tournamentID)
}

// SeedKnockoutStage closes a finished group stage: it ranks every group,
// interleaves the qualifiers into a knockout seeding and appends the
// elimination bracket after the group nodes.
func (s *bracketService) SeedKnockoutStage(ctx context.Context, tournamentID int) (*BracketView, error) {
	var (
		b          *brackets.Bracket
		qualifiers int
	)
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		tournament, entries, nodes, err := loadBracketStateLocked(ctx, tx, s.tournamentRepo, s.entryRepo, s.nodeRepo, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Format != models.FormatGroupThenElimination {
			return fmt.Errorf("%w: tournament %d is %s", ErrValidationFailed, tournamentID, tournament.Format)
		}
		if tournament.Group == nil {
			return fmt.Errorf("%w: tournament %d has no group configuration", ErrValidationFailed, tournamentID)
		}
		if len(nodes) == 0 {
			return ErrBracketNotGenerated
		}
		for _, n := range nodes {
			if n.Group == nil {
				return ErrKnockoutAlreadySeeded
			}
			if !n.Status.Terminal() {
				return fmt.Errorf("%w: node %d is %s", ErrGroupStageIncomplete, n.ID, n.Status)
			}
		}

		standings := make(map[string][]*models.TeamEntry)
		for _, e := range entries {
			if e.Group == nil || e.Status == models.EntryRejected {
				continue
			}
			name := *e.Group
			if _, done := standings[name]; !done {
				g := name
				standings[g] = brackets.ComputeStandings(entries, nodes, &g)
			}
		}
		ranked := brackets.SeedFromGroupStandings(standings, tournament.Group.AdvancePerGroup)
		if len(ranked) < 2 {
			return fmt.Errorf("%w: only %d teams advance", ErrNotEnoughEntries, len(ranked))
		}

		// Standings return copies; map the ranking back onto the loaded entries
		// so the engine mutates persisted state.
		byID := make(map[int]*models.TeamEntry, len(entries))
		for _, e := range entries {
			byID[e.ID] = e
		}
		for i, e := range ranked {
			ranked[i] = byID[e.ID]
		}

		built, err := brackets.AppendKnockout(ctx, tournamentID, entries, nodes, ranked, models.FormatSingleElimination, generateOptions(tournament))
		if err != nil {
			return err
		}
		if err := persistBracket(ctx, tx, s.nodeRepo, s.entryRepo, built); err != nil {
			return err
		}
		b, qualifiers = built, len(ranked)
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := viewOf(b)
	s.logger.Info("knockout stage seeded", "tournament_id", tournamentID, "qualifiers", qualifiers)
	s.broadcaster.BroadcastToTournament(tournamentID, realtime.EventBracketGenerated, view)
	return view, nil
}
