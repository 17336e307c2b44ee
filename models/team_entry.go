package models

type EntryStatus string

const (
	EntryRegistered EntryStatus = "registered"
	EntryApproved   EntryStatus = "approved"
	EntryRejected   EntryStatus = "rejected"
	EntryWithdrawn  EntryStatus = "withdrawn"
	EntryEliminated EntryStatus = "eliminated"
	EntryAdvancing  EntryStatus = "advancing"
	EntryChampion   EntryStatus = "champion"
)

// TeamRecord accumulates a team's competitive results within one tournament.
type TeamRecord struct {
	Played           int `json:"played"`
	Wins             int `json:"wins"`
	Losses           int `json:"losses"`
	Draws            int `json:"draws"`
	PointsFor        int `json:"points_for"`
	PointsAgainst    int `json:"points_against"`
	TournamentPoints int `json:"tournament_points"`
}

func (r TeamRecord) Differential() int {
	return r.PointsFor - r.PointsAgainst
}

// TeamEntry is one registered team in a tournament. The entry itself is owned
// by the registration workflow; the bracket engine only mutates Record,
// Status, EliminatedIn and FinalPosition.
type TeamEntry struct {
	ID            int         `json:"id"`
	TeamID        int         `json:"team_id"`
	TournamentID  int         `json:"tournament_id"`
	Seed          int         `json:"seed"`
	Group         *string     `json:"group,omitempty"`
	Record        TeamRecord  `json:"record"`
	Status        EntryStatus `json:"status"`
	EliminatedIn  *string     `json:"eliminated_in,omitempty"`
	FinalPosition *int        `json:"final_position,omitempty"`
}
