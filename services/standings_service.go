package services

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

type StandingsService interface {
	GetStandings(ctx context.Context, tournamentID int, group *string) ([]*models.TeamEntry, error)
	GetGroupStandings(ctx context.Context, tournamentID int) (map[string][]*models.TeamEntry, error)
}

type standingsService struct {
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.TeamEntryRepository
	nodeRepo       repositories.BracketNodeRepository
}

func NewStandingsService(
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.TeamEntryRepository,
	nodeRepo repositories.BracketNodeRepository,
) StandingsService {
	return &standingsService{
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		nodeRepo:       nodeRepo,
	}
}

// GetStandings ranks the tournament's entries, optionally restricted to one
// group.
func (s *standingsService) GetStandings(ctx context.Context, tournamentID int, group *string) ([]*models.TeamEntry, error) {
	tournament, entries, nodes, err := loadBracketState(ctx, s.tournamentRepo, s.entryRepo, s.nodeRepo, tournamentID)
	if err != nil {
		return nil, err
	}
	b, err := rehydrate(tournament, entries, nodes)
	if err != nil {
		return nil, err
	}
	return b.Standings(group), nil
}

// GetGroupStandings ranks every group separately, keyed by group name.
func (s *standingsService) GetGroupStandings(ctx context.Context, tournamentID int) (map[string][]*models.TeamEntry, error) {
	tournament, entries, nodes, err := loadBracketState(ctx, s.tournamentRepo, s.entryRepo, s.nodeRepo, tournamentID)
	if err != nil {
		return nil, err
	}
	b, err := rehydrate(tournament, entries, nodes)
	if err != nil {
		return nil, err
	}
	return b.GroupStandings(), nil
}
