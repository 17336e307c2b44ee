package models

import "time"

type TournamentStatus string

const (
	TournamentRegistration TournamentStatus = "registration"
	TournamentActive       TournamentStatus = "active"
	TournamentCompleted    TournamentStatus = "completed"
	TournamentCanceled     TournamentStatus = "canceled"
)

// Tournament is the competition aggregate the bracket engine runs for. The
// wider platform owns club/member concerns; only format configuration and
// lifecycle status live here.
type Tournament struct {
	ID     int              `json:"id"`
	Name   string           `json:"name"`
	Format TournamentFormat `json:"format"`
	Status TournamentStatus `json:"status"`

	ThirdPlaceMatch bool         `json:"third_place_match"`
	AllowDraws      bool         `json:"allow_draws"`
	Points          PointsTable  `json:"points"`
	Group           *GroupConfig `json:"group,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
