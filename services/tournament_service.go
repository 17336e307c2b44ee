package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

type TournamentService interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	RegisterEntry(ctx context.Context, entry *models.TeamEntry) error
	ApproveEntry(ctx context.Context, entryID int) (*models.TeamEntry, error)
	WithdrawEntry(ctx context.Context, entryID int) (*models.TeamEntry, error)
	ListEntries(ctx context.Context, tournamentID int) ([]*models.TeamEntry, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.TeamEntryRepository
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.TeamEntryRepository,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
	}
}

func (s *tournamentService) Create(ctx context.Context, tournament *models.Tournament) error {
	if tournament.Name == "" {
		return ErrTournamentNameRequired
	}
	if !tournament.Format.Valid() {
		return fmt.Errorf("%w: unknown format %q", ErrValidationFailed, tournament.Format)
	}
	if tournament.Format == models.FormatGroupThenElimination {
		if tournament.Group == nil || tournament.Group.Groups < 1 || tournament.Group.AdvancePerGroup < 1 {
			return fmt.Errorf("%w: group configuration is required for %s", ErrValidationFailed, tournament.Format)
		}
	}
	if tournament.Points == (models.PointsTable{}) {
		tournament.Points = models.DefaultPointsTable()
	}
	tournament.Status = models.TournamentRegistration
	return s.tournamentRepo.Create(ctx, nil, tournament)
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	return s.tournamentRepo.List(ctx, nil)
}

// RegisterEntry enrols a team while registration is open. New entries start
// unseeded-last: callers assign real seeds through the seed override before
// generation, or accept registration order.
func (s *tournamentService) RegisterEntry(ctx context.Context, entry *models.TeamEntry) error {
	tournament, err := s.GetByID(ctx, entry.TournamentID)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentRegistration {
		return fmt.Errorf("%w: tournament %d is %s", ErrValidationFailed, tournament.ID, tournament.Status)
	}
	if entry.Seed < 1 {
		existing, err := s.entryRepo.ListByTournament(ctx, nil, entry.TournamentID)
		if err != nil {
			return err
		}
		maxSeed := 0
		for _, e := range existing {
			if e.Seed > maxSeed {
				maxSeed = e.Seed
			}
		}
		entry.Seed = maxSeed + 1
	}
	entry.Status = models.EntryRegistered
	entry.Record = models.TeamRecord{}
	return s.entryRepo.Create(ctx, nil, entry)
}

func (s *tournamentService) ApproveEntry(ctx context.Context, entryID int) (*models.TeamEntry, error) {
	return s.setEntryStatus(ctx, entryID, models.EntryApproved, models.EntryRegistered)
}

// WithdrawEntry pulls a team out before the bracket exists. Once play has
// started a withdrawal is a forfeit, handled per match by the progression
// service.
func (s *tournamentService) WithdrawEntry(ctx context.Context, entryID int) (*models.TeamEntry, error) {
	return s.setEntryStatus(ctx, entryID, models.EntryWithdrawn, models.EntryRegistered, models.EntryApproved)
}

func (s *tournamentService) setEntryStatus(ctx context.Context, entryID int, to models.EntryStatus, allowedFrom ...models.EntryStatus) (*models.TeamEntry, error) {
	entry, err := s.entryRepo.GetByID(ctx, nil, entryID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamEntryNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	allowed := false
	for _, from := range allowedFrom {
		if entry.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: entry %d is %s", ErrValidationFailed, entryID, entry.Status)
	}
	entry.Status = to
	if err := s.entryRepo.Update(ctx, nil, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *tournamentService) ListEntries(ctx context.Context, tournamentID int) ([]*models.TeamEntry, error) {
	if _, err := s.GetByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.entryRepo.ListByTournament(ctx, nil, tournamentID)
}
