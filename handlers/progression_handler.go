package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/bracket-engine/middleware"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/services"
)

type ProgressionHandler struct {
	progressionService services.ProgressionService
}

func NewProgressionHandler(ps services.ProgressionService) *ProgressionHandler {
	return &ProgressionHandler{progressionService: ps}
}

type scheduleMatchInput struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Venue       *string   `json:"venue,omitempty"`
}

// ScheduleHandler handles PUT /tournaments/{tournamentID}/nodes/{nodeID}/schedule
func (h *ProgressionHandler) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, nodeID, err := nodeParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input scheduleMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.ScheduledAt.IsZero() {
		badRequestResponse(w, r, errors.New("scheduled_at is required"))
		return
	}
	node, err := h.progressionService.ScheduleMatch(r.Context(), tournamentID, nodeID, input.ScheduledAt, input.Venue)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"node": node}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartHandler handles POST /tournaments/{tournamentID}/nodes/{nodeID}/start
func (h *ProgressionHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, nodeID, err := nodeParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	node, err := h.progressionService.StartMatch(r.Context(), tournamentID, nodeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"node": node}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type submitResultInput struct {
	ScoreA   int  `json:"score_a"`
	ScoreB   int  `json:"score_b"`
	Overtime bool `json:"overtime"`
}

// ResultHandler handles POST /tournaments/{tournamentID}/nodes/{nodeID}/result
// @Summary Record a final score and advance the bracket
// @Tags progression
// @Accept json
// @Produce json
// @Param input body submitResultInput true "Final score"
// @Success 200 {object} services.BracketView
// @Router /tournaments/{tournamentID}/nodes/{nodeID}/result [post]
func (h *ProgressionHandler) ResultHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, nodeID, err := nodeParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input submitResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	view, err := h.progressionService.SubmitResult(r.Context(), tournamentID, nodeID, input.ScoreA, input.ScoreB, input.Overtime)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	logSubmitter(r, "result submitted", tournamentID, nodeID)
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type submitForfeitInput struct {
	ForfeitingSlot int    `json:"forfeiting_slot"`
	Reason         string `json:"reason"`
}

// ForfeitHandler handles POST /tournaments/{tournamentID}/nodes/{nodeID}/forfeit
func (h *ProgressionHandler) ForfeitHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, nodeID, err := nodeParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input submitForfeitInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	view, err := h.progressionService.SubmitForfeit(r.Context(), tournamentID, nodeID, models.Slot(input.ForfeitingSlot), input.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	logSubmitter(r, "forfeit recorded", tournamentID, nodeID)
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// FeedsHandler handles GET /tournaments/{tournamentID}/nodes/{nodeID}/feeds
func (h *ProgressionHandler) FeedsHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, nodeID, err := nodeParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	from, to, err := h.progressionService.NodeFeeds(r.Context(), tournamentID, nodeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"feeds_from": from, "feeds_to": to}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// logSubmitter leaves an audit trail of who reported a terminal transition.
func logSubmitter(r *http.Request, msg string, tournamentID, nodeID int) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		return
	}
	slog.Info(msg, "tournament_id", tournamentID, "node_id", nodeID, "submitted_by", userID)
}

func nodeParams(r *http.Request) (tournamentID, nodeID int, err error) {
	tournamentID, err = getIDFromURL(r, "tournamentID")
	if err != nil {
		return 0, 0, err
	}
	nodeID, err = getIDFromURL(r, "nodeID")
	if err != nil {
		return 0, 0, err
	}
	return tournamentID, nodeID, nil
}
