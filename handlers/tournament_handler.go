package handlers

import (
	"net/http"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(ts services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: ts}
}

type createTournamentInput struct {
	Name            string              `json:"name"`
	Format          string              `json:"format"`
	ThirdPlaceMatch bool                `json:"third_place_match"`
	AllowDraws      bool                `json:"allow_draws"`
	Points          *models.PointsTable `json:"points,omitempty"`
	Group           *models.GroupConfig `json:"group,omitempty"`
}

// CreateHandler handles POST /tournaments
// @Summary Create a tournament
// @Tags tournaments
// @Accept json
// @Produce json
// @Param input body createTournamentInput true "Tournament configuration"
// @Success 201 {object} models.Tournament
// @Router /tournaments [post]
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input createTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament := &models.Tournament{
		Name:            input.Name,
		Format:          models.TournamentFormat(input.Format),
		ThirdPlaceMatch: input.ThirdPlaceMatch,
		AllowDraws:      input.AllowDraws,
		Group:           input.Group,
	}
	if input.Points != nil {
		tournament.Points = *input.Points
	}

	if err := h.tournamentService.Create(r.Context(), tournament); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /tournaments/{tournamentID}
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	tournament, err := h.tournamentService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournamentService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type registerEntryInput struct {
	TeamID int     `json:"team_id"`
	Seed   int     `json:"seed"`
	Group  *string `json:"group,omitempty"`
}

// RegisterEntryHandler handles POST /tournaments/{tournamentID}/entries
func (h *TournamentHandler) RegisterEntryHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input registerEntryInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	entry := &models.TeamEntry{
		TeamID:       input.TeamID,
		TournamentID: tournamentID,
		Seed:         input.Seed,
		Group:        input.Group,
	}
	if err := h.tournamentService.RegisterEntry(r.Context(), entry); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"entry": entry}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListEntriesHandler handles GET /tournaments/{tournamentID}/entries
func (h *TournamentHandler) ListEntriesHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	entries, err := h.tournamentService.ListEntries(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"entries": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApproveEntryHandler handles POST /entries/{entryID}/approve
func (h *TournamentHandler) ApproveEntryHandler(w http.ResponseWriter, r *http.Request) {
	entryID, err := getIDFromURL(r, "entryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	entry, err := h.tournamentService.ApproveEntry(r.Context(), entryID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"entry": entry}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// WithdrawEntryHandler handles POST /entries/{entryID}/withdraw
func (h *TournamentHandler) WithdrawEntryHandler(w http.ResponseWriter, r *http.Request) {
	entryID, err := getIDFromURL(r, "entryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	entry, err := h.tournamentService.WithdrawEntry(r.Context(), entryID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"entry": entry}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
