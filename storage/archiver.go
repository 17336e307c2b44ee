package storage

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

// BracketSnapshot is the immutable record archived when a tournament
// concludes: the full node DAG, the final entry states and the champion.
type BracketSnapshot struct {
	TournamentID int                   `json:"tournament_id"`
	Format       string                `json:"format"`
	Champion     *models.TeamEntry     `json:"champion,omitempty"`
	Entries      []*models.TeamEntry   `json:"entries"`
	Nodes        []*models.BracketNode `json:"nodes"`
	ArchivedAt   string                `json:"archived_at"`
}

type ArchiveResult struct {
	Key      string
	Location string
	ETag     string
}

// SnapshotArchiver stores concluded-bracket snapshots in object storage.
type SnapshotArchiver interface {
	Archive(ctx context.Context, snapshot *BracketSnapshot) (*ArchiveResult, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}
