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

const dateLayout = "2006-01-02"

type ptoService interface {
	CreatePTO(ctx context.Context, input application.PTOInput) (application.PTOView, error)
	ListPTO(ctx context.Context, personID string) ([]application.PTOView, error)
	DeletePTO(ctx context.Context, id string) error
}

type PTOHandler struct {
	service   ptoService
	responder responder
	logger    *slog.Logger
}

func NewPTOHandler(service ptoService, logger *slog.Logger) *PTOHandler {
	base := defaultLogger(logger)
	return &PTOHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PTOHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PTOHandler", operation, attrs...)
}

func (h *PTOHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req ptoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode pto request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "person_id", req.PersonID)

	input, err := req.toInput()
	if err != nil {
		logger.ErrorContext(r.Context(), "pto dates unparseable", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	entry, err := h.service.CreatePTO(r.Context(), input)
	if err != nil {
		logger.ErrorContext(r.Context(), "pto creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("pto_id", entry.ID).InfoContext(r.Context(), "pto entry created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, ptoResponse{Entry: toPTODTO(entry)})
}

func (h *PTOHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	personID := strings.TrimSpace(r.URL.Query().Get("person_id"))
	logger := h.log(r.Context(), "List", "person_id", personID)

	entries, err := h.service.ListPTO(r.Context(), personID)
	if err != nil {
		logger.ErrorContext(r.Context(), "pto list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(entries)).InfoContext(r.Context(), "pto entries listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPTOResponse{Entries: toPTODTOs(entries)})
}

func (h *PTOHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ptoID, ok := PTOIDFromContext(r.Context())
	if !ok || strings.TrimSpace(ptoID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPTOID)
		return
	}

	logger := h.log(r.Context(), "Delete", "pto_id", ptoID)
	if err := h.service.DeletePTO(r.Context(), ptoID); err != nil {
		logger.ErrorContext(r.Context(), "pto delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "pto entry deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type ptoRequest struct {
	PersonID string  `json:"person_id"`
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Note     *string `json:"note"`
}

func (r ptoRequest) toInput() (application.PTOInput, error) {
	start, err := parseDate(r.Start)
	if err != nil {
		return application.PTOInput{}, err
	}
	end, err := parseDate(r.End)
	if err != nil {
		return application.PTOInput{}, err
	}
	return application.PTOInput{
		PersonID: strings.TrimSpace(r.PersonID),
		Start:    start,
		End:      end,
		Note:     r.Note,
	}, nil
}

type ptoResponse struct {
	Entry ptoDTO `json:"entry"`
}

type listPTOResponse struct {
	Entries []ptoDTO `json:"entries"`
}

type ptoDTO struct {
	ID       string  `json:"id"`
	PersonID string  `json:"person_id"`
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Note     *string `json:"note,omitempty"`
}

func toPTODTO(entry application.PTOView) ptoDTO {
	return ptoDTO{
		ID:       entry.ID,
		PersonID: entry.PersonID,
		Start:    entry.Start.Format(dateLayout),
		End:      entry.End.Format(dateLayout),
		Note:     entry.Note,
	}
}

func toPTODTOs(entries []application.PTOView) []ptoDTO {
	if len(entries) == 0 {
		return nil
	}
	out := make([]ptoDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toPTODTO(entry))
	}
	return out
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(value), time.UTC)
}
