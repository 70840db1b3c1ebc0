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

type personService interface {
	CreatePerson(ctx context.Context, input application.PersonInput) (application.PersonView, error)
	GetPerson(ctx context.Context, id string) (application.PersonView, error)
	ListPeople(ctx context.Context) ([]application.PersonView, error)
	DeletePerson(ctx context.Context, id string) error
	Usage(ctx context.Context, personID string) (application.PersonUsage, error)
}

type PersonHandler struct {
	service   personService
	responder responder
	logger    *slog.Logger
}

func NewPersonHandler(service personService, logger *slog.Logger) *PersonHandler {
	base := defaultLogger(logger)
	return &PersonHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PersonHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PersonHandler", operation, attrs...)
}

func (h *PersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode person request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	person, err := h.service.CreatePerson(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "person creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("person_id", person.ID).InfoContext(r.Context(), "person created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, personResponse{Person: toPersonDTO(person)})
}

func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	personID, ok := PersonIDFromContext(r.Context())
	if !ok || strings.TrimSpace(personID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPersonID)
		return
	}

	logger := h.log(r.Context(), "Get", "person_id", personID)
	person, err := h.service.GetPerson(r.Context(), personID)
	if err != nil {
		logger.ErrorContext(r.Context(), "person lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, personResponse{Person: toPersonDTO(person)})
}

func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	people, err := h.service.ListPeople(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "person list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(people)).InfoContext(r.Context(), "people listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPeopleResponse{People: toPersonDTOs(people)})
}

func (h *PersonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	personID, ok := PersonIDFromContext(r.Context())
	if !ok || strings.TrimSpace(personID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPersonID)
		return
	}

	logger := h.log(r.Context(), "Delete", "person_id", personID)
	if err := h.service.DeletePerson(r.Context(), personID); err != nil {
		logger.ErrorContext(r.Context(), "person delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "person deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *PersonHandler) Usage(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	personID, ok := PersonIDFromContext(r.Context())
	if !ok || strings.TrimSpace(personID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPersonID)
		return
	}

	logger := h.log(r.Context(), "Usage", "person_id", personID)
	usage, err := h.service.Usage(r.Context(), personID)
	if err != nil {
		logger.ErrorContext(r.Context(), "person usage lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, personUsageResponse{
		PersonID:       personID,
		PTOEntries:     usage.PTOCount,
		PrimarySlots:   usage.PrimarySlots,
		SecondarySlots: usage.SecondarySlots,
		Total:          usage.Total(),
		Deletable:      usage.Total() == 0,
	})
}

type personRequest struct {
	Name     string  `json:"name"`
	Email    *string `json:"email"`
	TimeZone *string `json:"time_zone"`
}

func (r personRequest) toInput() application.PersonInput {
	return application.PersonInput{
		Name:     strings.TrimSpace(r.Name),
		Email:    r.Email,
		TimeZone: r.TimeZone,
	}
}

type personResponse struct {
	Person personDTO `json:"person"`
}

type listPeopleResponse struct {
	People []personDTO `json:"people"`
}

type personUsageResponse struct {
	PersonID       string `json:"person_id"`
	PTOEntries     int    `json:"pto_entries"`
	PrimarySlots   int    `json:"primary_slots"`
	SecondarySlots int    `json:"secondary_slots"`
	Total          int    `json:"total"`
	Deletable      bool   `json:"deletable"`
}

type personDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     *string `json:"email,omitempty"`
	TimeZone  *string `json:"time_zone,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toPersonDTO(person application.PersonView) personDTO {
	return personDTO{
		ID:        person.ID,
		Name:      person.Name,
		Email:     person.Email,
		TimeZone:  person.TimeZone,
		CreatedAt: person.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: person.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toPersonDTOs(people []application.PersonView) []personDTO {
	if len(people) == 0 {
		return nil
	}
	out := make([]personDTO, 0, len(people))
	for _, person := range people {
		out = append(out, toPersonDTO(person))
	}
	return out
}
