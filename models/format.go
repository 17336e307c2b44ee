package models

type TournamentFormat string

const (
	FormatSingleElimination    TournamentFormat = "single_elimination"
	FormatDoubleElimination    TournamentFormat = "double_elimination"
	FormatRoundRobin           TournamentFormat = "round_robin"
	FormatGroupThenElimination TournamentFormat = "group_then_elimination"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatSingleElimination, FormatDoubleElimination, FormatRoundRobin, FormatGroupThenElimination:
		return true
	}
	return false
}

// Elimination reports whether the format knocks teams out of the tournament.
func (f TournamentFormat) Elimination() bool {
	return f == FormatSingleElimination || f == FormatDoubleElimination
}

// GroupConfig describes the group stage of a group_then_elimination tournament.
type GroupConfig struct {
	Groups          int `json:"groups"`
	AdvancePerGroup int `json:"advance_per_group"`
}

// PointsTable maps match outcomes to tournament points.
type PointsTable struct {
	Win         int `json:"win"`
	Draw        int `json:"draw"`
	Loss        int `json:"loss"`
	ForfeitLoss int `json:"forfeit_loss"`
}

func DefaultPointsTable() PointsTable {
	return PointsTable{Win: 2, Draw: 1, Loss: 0, ForfeitLoss: 0}
}
