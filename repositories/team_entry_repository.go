package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

var ErrTeamEntryNotFound = errors.New("team entry not found")

// TeamEntryRepository persists tournament registrations and the competitive
// state the engine writes back (record, status, elimination, final position).
type TeamEntryRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.TeamEntry) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TeamEntry, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.TeamEntry, error)
	Update(ctx context.Context, exec SQLExecutor, entry *models.TeamEntry) error
	UpdateSeeds(ctx context.Context, exec SQLExecutor, tournamentID int, seedsByEntryID map[int]int) error
	ResetCompetitiveState(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresTeamEntryRepository struct {
	db *sql.DB
}

func NewPostgresTeamEntryRepository(db *sql.DB) TeamEntryRepository {
	return &postgresTeamEntryRepository{db: db}
}

func (r *postgresTeamEntryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamEntryColumns = `
	id, team_id, tournament_id, seed, group_name,
	played, wins, losses, draws, points_for, points_against, tournament_points,
	status, eliminated_in, final_position`

func (r *postgresTeamEntryRepository) Create(ctx context.Context, exec SQLExecutor, entry *models.TeamEntry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO team_entries
			(team_id, tournament_id, seed, group_name,
			 played, wins, losses, draws, points_for, points_against, tournament_points,
			 status, eliminated_in, final_position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	rec := entry.Record
	return executor.QueryRowContext(ctx, query,
		entry.TeamID, entry.TournamentID, entry.Seed, entry.Group,
		rec.Played, rec.Wins, rec.Losses, rec.Draws, rec.PointsFor, rec.PointsAgainst, rec.TournamentPoints,
		string(entry.Status), entry.EliminatedIn, entry.FinalPosition,
	).Scan(&entry.ID)
}

func (r *postgresTeamEntryRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TeamEntry, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + teamEntryColumns + ` FROM team_entries WHERE id = $1`
	entry, err := scanTeamEntry(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *postgresTeamEntryRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.TeamEntry, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + teamEntryColumns + `
		FROM team_entries
		WHERE tournament_id = $1
		ORDER BY seed, id`
	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.TeamEntry, 0)
	for rows.Next() {
		entry, errScan := scanTeamEntry(rows)
		if errScan != nil {
			return nil, errScan
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *postgresTeamEntryRepository) Update(ctx context.Context, exec SQLExecutor, entry *models.TeamEntry) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE team_entries SET
			seed = $2, group_name = $3,
			played = $4, wins = $5, losses = $6, draws = $7,
			points_for = $8, points_against = $9, tournament_points = $10,
			status = $11, eliminated_in = $12, final_position = $13
		WHERE id = $1`
	rec := entry.Record
	result, err := executor.ExecContext(ctx, query,
		entry.ID, entry.Seed, entry.Group,
		rec.Played, rec.Wins, rec.Losses, rec.Draws,
		rec.PointsFor, rec.PointsAgainst, rec.TournamentPoints,
		string(entry.Status), entry.EliminatedIn, entry.FinalPosition,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamEntryNotFound)
}

// UpdateSeeds applies a manual seeding override before (re)generation.
func (r *postgresTeamEntryRepository) UpdateSeeds(ctx context.Context, exec SQLExecutor, tournamentID int, seedsByEntryID map[int]int) error {
	executor := r.getExecutor(exec)
	for entryID, seed := range seedsByEntryID {
		result, err := executor.ExecContext(ctx,
			`UPDATE team_entries SET seed = $1 WHERE id = $2 AND tournament_id = $3`,
			seed, entryID, tournamentID,
		)
		if err != nil {
			return fmt.Errorf("failed to update seed for entry %d: %w", entryID, err)
		}
		if err := checkAffectedRows(result, ErrTeamEntryNotFound); err != nil {
			return fmt.Errorf("entry %d: %w", entryID, err)
		}
	}
	return nil
}

// ResetCompetitiveState zeroes records and competition status for every entry
// of a tournament. Used before bracket regeneration; registration status is
// preserved for entries that never entered competition.
func (r *postgresTeamEntryRepository) ResetCompetitiveState(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE team_entries SET
			played = 0, wins = 0, losses = 0, draws = 0,
			points_for = 0, points_against = 0, tournament_points = 0,
			status = CASE WHEN status IN ('advancing', 'eliminated', 'champion') THEN 'approved' ELSE status END,
			eliminated_in = NULL, final_position = NULL
		WHERE tournament_id = $1`
	_, err := executor.ExecContext(ctx, query, tournamentID)
	return err
}

func scanTeamEntry(rowScanner interface{ Scan(...interface{}) error }) (*models.TeamEntry, error) {
	var (
		e      models.TeamEntry
		status string
	)
	err := rowScanner.Scan(
		&e.ID, &e.TeamID, &e.TournamentID, &e.Seed, &e.Group,
		&e.Record.Played, &e.Record.Wins, &e.Record.Losses, &e.Record.Draws,
		&e.Record.PointsFor, &e.Record.PointsAgainst, &e.Record.TournamentPoints,
		&status, &e.EliminatedIn, &e.FinalPosition,
	)
	if err != nil {
		return nil, err
	}
	e.Status = models.EntryStatus(status)
	return &e, nil
}
