package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/bracket-engine/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, format, status, third_place_match, allow_draws,
	points_win, points_draw, points_loss, points_forfeit_loss,
	group_count, advance_per_group, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments
			(name, format, status, third_place_match, allow_draws,
			 points_win, points_draw, points_loss, points_forfeit_loss,
			 group_count, advance_per_group)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`
	var groupCount, advance sql.NullInt64
	if t.Group != nil {
		groupCount = sql.NullInt64{Int64: int64(t.Group.Groups), Valid: true}
		advance = sql.NullInt64{Int64: int64(t.Group.AdvancePerGroup), Valid: true}
	}
	return executor.QueryRowContext(ctx, query,
		t.Name, string(t.Format), string(t.Status), t.ThirdPlaceMatch, t.AllowDraws,
		t.Points.Win, t.Points.Draw, t.Points.Loss, t.Points.ForfeitLoss,
		groupCount, advance,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	t, err := scanTournament(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetByIDForUpdate locks the tournament row for the caller's transaction.
// Every bracket write path takes this lock first, so concurrent submissions
// for the same tournament serialize instead of overwriting each other.
func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	t, err := scanTournament(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments ORDER BY created_at DESC, id DESC`
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, errScan := scanTournament(rows)
		if errScan != nil {
			return nil, errScan
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournaments SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func scanTournament(rowScanner interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	var (
		t                   models.Tournament
		format, status      string
		groupCount, advance sql.NullInt64
	)
	err := rowScanner.Scan(
		&t.ID, &t.Name, &format, &status, &t.ThirdPlaceMatch, &t.AllowDraws,
		&t.Points.Win, &t.Points.Draw, &t.Points.Loss, &t.Points.ForfeitLoss,
		&groupCount, &advance, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Format = models.TournamentFormat(format)
	t.Status = models.TournamentStatus(status)
	if groupCount.Valid {
		t.Group = &models.GroupConfig{
			Groups:          int(groupCount.Int64),
			AdvancePerGroup: int(advance.Int64),
		}
	}
	return &t, nil
}
