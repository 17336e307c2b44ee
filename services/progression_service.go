package services

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/realtime"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/Dosada05/bracket-engine/storage"
)

type ProgressionService interface {
	ScheduleMatch(ctx context.Context, tournamentID, nodeID int, at time.Time, venue *string) (*models.BracketNode, error)
	StartMatch(ctx context.Context, tournamentID, nodeID int) (*models.BracketNode, error)
	SubmitResult(ctx context.Context, tournamentID, nodeID int, scoreA, scoreB int, overtime bool) (*BracketView, error)
	SubmitForfeit(ctx context.Context, tournamentID, nodeID int, forfeiting models.Slot, reason string) (*BracketView, error)
	NodeFeeds(ctx context.Context, tournamentID, nodeID int) (from, to []brackets.Feed, err error)
}

type progressionService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.TeamEntryRepository
	nodeRepo       repositories.BracketNodeRepository
	archiver       storage.SnapshotArchiver
	broadcaster    Broadcaster
	logger         *slog.Logger
}

// NewProgressionService wires the match state machine. The archiver may be
// nil; concluded brackets are then simply not mirrored to object storage.
func NewProgressionService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.TeamEntryRepository,
	nodeRepo repositories.BracketNodeRepository,
	archiver storage.SnapshotArchiver,
	broadcaster Broadcaster,
	logger *slog.Logger,
) ProgressionService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster()
	}
	return &progressionService{
		db:             db,
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		nodeRepo:       nodeRepo,
		archiver:       archiver,
		broadcaster:    broadcaster,
		logger:         logger,
	}
}

func (s *progressionService) load(ctx context.Context, tournamentID int) (*models.Tournament, *brackets.Bracket, error) {
	tournament, entries, nodes, err := loadBracketState(ctx, s.tournamentRepo, s.entryRepo, s.nodeRepo, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	b, err := rehydrate(tournament, entries, nodes)
	if err != nil {
		return nil, nil, err
	}
	return tournament, b, nil
}

// loadLocked rehydrates the bracket inside tx with the tournament row locked.
func (s *progressionService) loadLocked(ctx context.Context, tx *sql.Tx, tournamentID int) (*models.Tournament, *brackets.Bracket, error) {
	tournament, entries, nodes, err := loadBracketStateLocked(ctx, tx, s.tournamentRepo, s.entryRepo, s.nodeRepo, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	b, err := rehydrate(tournament, entries, nodes)
	if err != nil {
		return nil, nil, err
	}
	return tournament, b, nil
}

func (s *progressionService) ScheduleMatch(ctx context.Context, tournamentID, nodeID int, at time.Time, venue *string) (*models.BracketNode, error) {
	var node *models.BracketNode
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		_, b, err := s.loadLocked(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if err := b.AttachSchedule(nodeID, at, venue); err != nil {
			return err
		}
		if node, err = b.Node(nodeID); err != nil {
			return err
		}
		return s.nodeRepo.Update(ctx, tx, node)
	})
	if err != nil {
		return nil, err
	}
	s.broadcaster.BroadcastToTournament(tournamentID, realtime.EventMatchScheduled, node)
	return node, nil
}

func (s *progressionService) StartMatch(ctx context.Context, tournamentID, nodeID int) (*models.BracketNode, error) {
	var node *models.BracketNode
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		_, b, err := s.loadLocked(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if err := b.Start(nodeID); err != nil {
			return err
		}
		if node, err = b.Node(nodeID); err != nil {
			return err
		}
		return s.nodeRepo.Update(ctx, tx, node)
	})
	if err != nil {
		return nil, err
	}
	s.broadcaster.BroadcastToTournament(tournamentID, realtime.EventMatchStarted, node)
	return node, nil
}

// SubmitResult records a final score and persists everything the propagation
// touched: the node, downstream slots, entry records and, when the bracket
// concludes, the champion.
func (s *progressionService) SubmitResult(ctx context.Context, tournamentID, nodeID int, scoreA, scoreB int, overtime bool) (*BracketView, error) {
	return s.submit(ctx, tournamentID, nodeID, realtime.EventMatchCompleted, func(b *brackets.Bracket) error {
		return b.RecordResult(nodeID, scoreA, scoreB, overtime)
	})
}

// SubmitForfeit resolves a match without play; the named slot takes the loss.
func (s *progressionService) SubmitForfeit(ctx context.Context, tournamentID, nodeID int, forfeiting models.Slot, reason string) (*BracketView, error) {
	return s.submit(ctx, tournamentID, nodeID, realtime.EventMatchForfeited, func(b *brackets.Bracket) error {
		return b.RecordForfeit(nodeID, forfeiting, reason)
	})
}

// submit runs one terminal transition load-to-persist inside a single
// transaction. The tournament row lock taken by the load serializes
// concurrent submissions, so the full write-back never reverts a node or
// entry another request committed in between.
func (s *progressionService) submit(ctx context.Context, tournamentID, nodeID int, eventType string, record func(*brackets.Bracket) error) (*BracketView, error) {
	var (
		tournament *models.Tournament
		b          *brackets.Bracket
		decided    bool
	)
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		t, bracket, err := s.loadLocked(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if err := record(bracket); err != nil {
			return err
		}
		if err := persistBracket(ctx, tx, s.nodeRepo, s.entryRepo, bracket); err != nil {
			return err
		}
		if _, decided = bracket.Champion(); decided && t.Status != models.TournamentCompleted {
			if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.TournamentCompleted); err != nil {
				return err
			}
		}
		tournament, b = t, bracket
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := viewOf(b)
	if node, nodeErr := b.Node(nodeID); nodeErr == nil {
		s.broadcaster.BroadcastToTournament(tournamentID, eventType, node)
	}
	s.broadcaster.BroadcastToTournament(tournamentID, realtime.EventStandingsUpdated, b.Standings(nil))

	if decided {
		champion := view.Champion
		s.logger.Info("champion decided", "tournament_id", tournamentID, "entry_id", champion.ID, "team_id", champion.TeamID)
		s.broadcaster.BroadcastToTournament(tournamentID, realtime.EventChampionDecided, champion)
		s.archiveSnapshot(ctx, tournament, view)
	}
	return view, nil
}

// archiveSnapshot mirrors the concluded bracket to object storage. Failures
// are logged, never surfaced: the result submission already committed.
func (s *progressionService) archiveSnapshot(ctx context.Context, tournament *models.Tournament, view *BracketView) {
	if s.archiver == nil {
		return
	}
	snapshot := &storage.BracketSnapshot{
		TournamentID: tournament.ID,
		Format:       string(tournament.Format),
		Champion:     view.Champion,
		Entries:      view.Entries,
		Nodes:        view.Nodes,
	}
	result, err := s.archiver.Archive(ctx, snapshot)
	if err != nil {
		s.logger.Error("failed to archive bracket snapshot", "tournament_id", tournament.ID, "error", err)
		return
	}
	s.logger.Info("bracket snapshot archived", "tournament_id", tournament.ID, "key", result.Key, "location", result.Location)
}

// NodeFeeds exposes the progression navigator: which matches feed the given
// node, and where its winner and loser go next.
func (s *progressionService) NodeFeeds(ctx context.Context, tournamentID, nodeID int) ([]brackets.Feed, []brackets.Feed, error) {
	_, b, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	from, err := b.FeedsFrom(nodeID)
	if err != nil {
		return nil, nil, err
	}
	to, err := b.FeedsTo(nodeID)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
