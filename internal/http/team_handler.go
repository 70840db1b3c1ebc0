package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/oncall-scheduler/internal/application"
)

type teamService interface {
	CreateTeam(ctx context.Context, input application.TeamInput) (application.TeamView, error)
	GetTeam(ctx context.Context, id string) (application.TeamView, error)
	ListTeams(ctx context.Context) ([]application.TeamView, error)
	UpdateMembers(ctx context.Context, teamID string, memberIDs []string) (application.TeamView, error)
	DeleteTeam(ctx context.Context, id string) error
}

type TeamHandler struct {
	service   teamService
	responder responder
	logger    *slog.Logger
}

func NewTeamHandler(service teamService, logger *slog.Logger) *TeamHandler {
	base := defaultLogger(logger)
	return &TeamHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TeamHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TeamHandler", operation, attrs...)
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode team request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	team, err := h.service.CreateTeam(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "team creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("team_id", team.ID).InfoContext(r.Context(), "team created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, teamResponse{Team: toTeamDTO(team)})
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teamID, ok := TeamIDFromContext(r.Context())
	if !ok || strings.TrimSpace(teamID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTeamID)
		return
	}

	logger := h.log(r.Context(), "Get", "team_id", teamID)
	team, err := h.service.GetTeam(r.Context(), teamID)
	if err != nil {
		logger.ErrorContext(r.Context(), "team lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, teamResponse{Team: toTeamDTO(team)})
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	teams, err := h.service.ListTeams(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "team list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(teams)).InfoContext(r.Context(), "teams listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTeamsResponse{Teams: toTeamDTOs(teams)})
}

func (h *TeamHandler) UpdateMembers(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teamID, ok := TeamIDFromContext(r.Context())
	if !ok || strings.TrimSpace(teamID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTeamID)
		return
	}

	var req membersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateMembers", "team_id", teamID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode members request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateMembers", "team_id", teamID)

	team, err := h.service.UpdateMembers(r.Context(), teamID, req.MemberIDs)
	if err != nil {
		logger.ErrorContext(r.Context(), "member update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("member_count", len(team.MemberIDs)).InfoContext(r.Context(), "team members replaced")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, teamResponse{Team: toTeamDTO(team)})
}

func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teamID, ok := TeamIDFromContext(r.Context())
	if !ok || strings.TrimSpace(teamID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTeamID)
		return
	}

	logger := h.log(r.Context(), "Delete", "team_id", teamID)
	if err := h.service.DeleteTeam(r.Context(), teamID); err != nil {
		logger.ErrorContext(r.Context(), "team delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "team deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type teamRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	MemberIDs   []string `json:"member_ids"`
}

func (r teamRequest) toInput() application.TeamInput {
	return application.TeamInput{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		MemberIDs:   r.MemberIDs,
	}
}

type membersRequest struct {
	MemberIDs []string `json:"member_ids"`
}

type teamResponse struct {
	Team teamDTO `json:"team"`
}

type listTeamsResponse struct {
	Teams []teamDTO `json:"teams"`
}

type teamDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	MemberIDs   []string `json:"member_ids"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func toTeamDTO(team application.TeamView) teamDTO {
	return teamDTO{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		MemberIDs:   team.MemberIDs,
		CreatedAt:   team.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   team.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toTeamDTOs(teams []application.TeamView) []teamDTO {
	if len(teams) == 0 {
		return nil
	}
	out := make([]teamDTO, 0, len(teams))
	for _, team := range teams {
		out = append(out, toTeamDTO(team))
	}
	return out
}
