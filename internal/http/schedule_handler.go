package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/oncall-scheduler/internal/application"
	"github.com/example/oncall-scheduler/internal/export"
)

type scheduleService interface {
	Generate(ctx context.Context, params application.GenerateScheduleParams) (application.ScheduleView, error)
	GetSchedule(ctx context.Context, id string) (application.ScheduleView, error)
	GetScheduleByTeamYear(ctx context.Context, teamID string, year int) (application.ScheduleView, error)
	ApplyOverride(ctx context.Context, scheduleID string, slotIndex int, patch application.SlotPatch) (application.SlotView, error)
	BulkReassign(ctx context.Context, scheduleID, fromID, toID string, scope application.ReassignScope) (application.BulkChange, error)
	RemovePerson(ctx context.Context, scheduleID, personID string) (application.RemovalResult, error)
	DeleteSchedule(ctx context.Context, id string) error
	OnCallNow(ctx context.Context, teamID string, asOf *time.Time) (application.OnCallStatus, error)
	Usage(ctx context.Context, scheduleID string) ([]application.ScheduleUsageRow, error)
	Export(ctx context.Context, scheduleID string, format export.Format) ([]byte, error)
}

type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
}

func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	return &ScheduleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ScheduleHandler", operation, attrs...)
}

// Generate handles POST /teams/{id}/schedules.
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teamID, ok := TeamIDFromContext(r.Context())
	if !ok || strings.TrimSpace(teamID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTeamID)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Generate", "team_id", teamID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode generate request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Generate", "team_id", teamID, "year", req.Year)

	params, err := req.toParams(teamID)
	if err != nil {
		logger.ErrorContext(r.Context(), "generate request unparseable", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	schedule, err := h.service.Generate(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "schedule generation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("schedule_id", schedule.ID, "slot_count", len(schedule.Slots)).InfoContext(r.Context(), "schedule generated")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

// Get handles GET /schedules/{id}.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	logger := h.log(r.Context(), "Get", "schedule_id", scheduleID)
	schedule, err := h.service.GetSchedule(r.Context(), scheduleID)
	if err != nil {
		logger.ErrorContext(r.Context(), "schedule lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

// Lookup handles GET /schedules?team_id=&year=.
func (h *ScheduleHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teamID := strings.TrimSpace(r.URL.Query().Get("team_id"))
	yearValue := strings.TrimSpace(r.URL.Query().Get("year"))
	if teamID == "" || yearValue == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("team_id and year query parameters are required"))
		return
	}
	year, err := strconv.Atoi(yearValue)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("year must be an integer"))
		return
	}

	logger := h.log(r.Context(), "Lookup", "team_id", teamID, "year", year)
	schedule, err := h.service.GetScheduleByTeamYear(r.Context(), teamID, year)
	if err != nil {
		logger.ErrorContext(r.Context(), "schedule lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

// Override handles POST /schedules/{id}/overrides/{index}.
func (h *ScheduleHandler) Override(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}
	rawIndex, ok := SlotIndexFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotIndex)
		return
	}
	slotIndex, err := strconv.Atoi(rawIndex)
	if err != nil || slotIndex < 1 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotIndex)
		return
	}

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Override", "schedule_id", scheduleID, "slot_index", slotIndex, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode override request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Override", "schedule_id", scheduleID, "slot_index", slotIndex)

	slot, err := h.service.ApplyOverride(r.Context(), scheduleID, slotIndex, req.toPatch())
	if err != nil {
		logger.ErrorContext(r.Context(), "override failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "override applied")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotResponse{Slot: toSlotDTO(slot)})
}

// Reassign handles POST /schedules/{id}/reassign.
func (h *ScheduleHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	var req reassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Reassign", "schedule_id", scheduleID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reassign request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	scope := application.ReassignScope(strings.ToLower(strings.TrimSpace(req.Scope)))
	if scope == "" {
		scope = application.ScopeBoth
	}

	logger := h.log(r.Context(), "Reassign", "schedule_id", scheduleID, "from", req.FromPersonID, "to", req.ToPersonID, "scope", string(scope))

	change, err := h.service.BulkReassign(r.Context(), scheduleID, strings.TrimSpace(req.FromPersonID), strings.TrimSpace(req.ToPersonID), scope)
	if err != nil {
		logger.ErrorContext(r.Context(), "bulk reassign failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("changed_count", len(change.ChangedSlots)).InfoContext(r.Context(), "bulk reassign applied")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bulkChangeResponse{ChangedSlots: change.ChangedSlots})
}

// RemovePerson handles POST /schedules/{id}/remove-person.
func (h *ScheduleHandler) RemovePerson(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	var req removePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "RemovePerson", "schedule_id", scheduleID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode remove-person request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "RemovePerson", "schedule_id", scheduleID, "person_id", req.PersonID)

	result, err := h.service.RemovePerson(r.Context(), scheduleID, strings.TrimSpace(req.PersonID))
	if err != nil {
		logger.ErrorContext(r.Context(), "person removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("changed_count", len(result.Changed), "unassigned_count", len(result.Unassigned)).InfoContext(r.Context(), "person removed from schedule")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, removalResponse{
		ChangedSlots:    result.Changed,
		UnassignedSlots: result.Unassigned,
	})
}

// Delete handles DELETE /schedules/{id}.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	logger := h.log(r.Context(), "Delete", "schedule_id", scheduleID)
	if err := h.service.DeleteSchedule(r.Context(), scheduleID); err != nil {
		logger.ErrorContext(r.Context(), "schedule delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "schedule deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// OnCallNow handles GET /teams/{id}/oncall-now.
func (h *ScheduleHandler) OnCallNow(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	teamID, ok := TeamIDFromContext(r.Context())
	if !ok || strings.TrimSpace(teamID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTeamID)
		return
	}

	var asOf *time.Time
	if at := strings.TrimSpace(r.URL.Query().Get("at")); at != "" {
		parsed, err := parseDate(at)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("the at parameter must be a YYYY-MM-DD date"))
			return
		}
		asOf = &parsed
	}

	logger := h.log(r.Context(), "OnCallNow", "team_id", teamID)
	status, err := h.service.OnCallNow(r.Context(), teamID, asOf)
	if err != nil {
		logger.ErrorContext(r.Context(), "oncall lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := onCallResponse{
		ScheduleID: status.ScheduleID,
		TeamID:     status.TeamID,
		Year:       status.Year,
		Slot:       toSlotDTO(status.Slot),
	}
	if status.Primary != nil {
		dto := toPersonDTO(*status.Primary)
		resp.Primary = &dto
	}
	if status.Secondary != nil {
		dto := toPersonDTO(*status.Secondary)
		resp.Secondary = &dto
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Usage handles GET /schedules/{id}/usage.
func (h *ScheduleHandler) Usage(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	logger := h.log(r.Context(), "Usage", "schedule_id", scheduleID)
	rows, err := h.service.Usage(r.Context(), scheduleID)
	if err != nil {
		logger.ErrorContext(r.Context(), "schedule usage lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]scheduleUsageDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, scheduleUsageDTO{
			PersonID:       row.PersonID,
			Name:           row.Name,
			PTOEntries:     row.PTOCount,
			PrimarySlots:   row.PrimarySlots,
			SecondarySlots: row.SecondarySlots,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleUsageResponse{Rows: out})
}

// Export handles GET /schedules/{id}/export?format=.
func (h *ScheduleHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("format must be one of csv, markdown, ics"))
		return
	}

	logger := h.log(r.Context(), "Export", "schedule_id", scheduleID, "format", string(format))
	body, err := h.service.Export(r.Context(), scheduleID, format)
	if err != nil {
		logger.ErrorContext(r.Context(), "export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("byte_count", len(body)).InfoContext(r.Context(), "schedule exported")
	w.Header().Set("Content-Type", exportContentType(format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.ErrorContext(r.Context(), "failed to write export body", "error", err)
	}
}

func exportContentType(format export.Format) string {
	switch format {
	case export.FormatCSV:
		return "text/csv; charset=utf-8"
	case export.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case export.FormatICS:
		return "text/calendar; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

type generateRequest struct {
	Year         int      `json:"year"`
	RotationDays int      `json:"rotation_days"`
	WeekStartsOn string   `json:"week_starts_on"`
	PersonIDs    []string `json:"person_ids"`
}

func (r generateRequest) toParams(teamID string) (application.GenerateScheduleParams, error) {
	weekday := time.Monday
	if value := strings.TrimSpace(r.WeekStartsOn); value != "" {
		parsed, ok := parseWeekday(value)
		if !ok {
			return application.GenerateScheduleParams{}, errors.New("week_starts_on must be an English weekday name")
		}
		weekday = parsed
	}
	return application.GenerateScheduleParams{
		TeamID:       teamID,
		Year:         r.Year,
		RotationDays: r.RotationDays,
		WeekStartsOn: weekday,
		PersonIDs:    r.PersonIDs,
	}, nil
}

func parseWeekday(value string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	default:
		return time.Sunday, false
	}
}

// optionalField distinguishes an absent key from an explicit null. A key that
// never appears leaves the current value untouched; null clears it.
type optionalField struct {
	set   bool
	value *string
}

func (o *optionalField) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		o.value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.value = &s
	return nil
}

func (o optionalField) toOptionalString() application.OptionalString {
	return application.OptionalString{Set: o.set, Value: o.value}
}

type overrideRequest struct {
	PrimaryID   optionalField `json:"primary_id"`
	SecondaryID optionalField `json:"secondary_id"`
	Notes       optionalField `json:"notes"`
}

func (r overrideRequest) toPatch() application.SlotPatch {
	return application.SlotPatch{
		Primary:   r.PrimaryID.toOptionalString(),
		Secondary: r.SecondaryID.toOptionalString(),
		Notes:     r.Notes.toOptionalString(),
	}
}

type reassignRequest struct {
	FromPersonID string `json:"from_person_id"`
	ToPersonID   string `json:"to_person_id"`
	Scope        string `json:"scope"`
}

type removePersonRequest struct {
	PersonID string `json:"person_id"`
}

type scheduleResponse struct {
	Schedule scheduleDTO `json:"schedule"`
}

type slotResponse struct {
	Slot slotDTO `json:"slot"`
}

type bulkChangeResponse struct {
	ChangedSlots []int `json:"changed_slots"`
}

type removalResponse struct {
	ChangedSlots    []int `json:"changed_slots"`
	UnassignedSlots []int `json:"unassigned_slots"`
}

type onCallResponse struct {
	ScheduleID string     `json:"schedule_id"`
	TeamID     string     `json:"team_id"`
	Year       int        `json:"year"`
	Slot       slotDTO    `json:"slot"`
	Primary    *personDTO `json:"primary,omitempty"`
	Secondary  *personDTO `json:"secondary,omitempty"`
}

type scheduleUsageResponse struct {
	Rows []scheduleUsageDTO `json:"rows"`
}

type scheduleUsageDTO struct {
	PersonID       string `json:"person_id"`
	Name           string `json:"name"`
	PTOEntries     int    `json:"pto_entries"`
	PrimarySlots   int    `json:"primary_slots"`
	SecondarySlots int    `json:"secondary_slots"`
}

type scheduleDTO struct {
	ID                   string    `json:"id"`
	TeamID               string    `json:"team_id"`
	Year                 int       `json:"year"`
	RotationDays         int       `json:"rotation_days"`
	WeekStartsOn         string    `json:"week_starts_on"`
	MemberOrder          []string  `json:"member_order"`
	CreatedAt            string    `json:"created_at"`
	Slots                []slotDTO `json:"slots"`
	InvalidatedOverrides int       `json:"invalidated_overrides,omitempty"`
	FullyBlockedSlots    []int     `json:"fully_blocked_slots,omitempty"`
}

type slotDTO struct {
	Index       int     `json:"index"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	PrimaryID   *string `json:"primary_id"`
	SecondaryID *string `json:"secondary_id"`
	Notes       *string `json:"notes,omitempty"`
	Overridden  bool    `json:"overridden,omitempty"`
}

func toScheduleDTO(schedule application.ScheduleView) scheduleDTO {
	slots := make([]slotDTO, 0, len(schedule.Slots))
	for _, slot := range schedule.Slots {
		slots = append(slots, toSlotDTO(slot))
	}
	return scheduleDTO{
		ID:                   schedule.ID,
		TeamID:               schedule.TeamID,
		Year:                 schedule.Year,
		RotationDays:         schedule.RotationDays,
		WeekStartsOn:         strings.ToLower(schedule.WeekStartsOn.String()),
		MemberOrder:          schedule.MemberOrder,
		CreatedAt:            schedule.CreatedAt.UTC().Format(time.RFC3339),
		Slots:                slots,
		InvalidatedOverrides: schedule.InvalidatedOverrides,
		FullyBlockedSlots:    schedule.FullyBlockedSlots,
	}
}

func toSlotDTO(slot application.SlotView) slotDTO {
	return slotDTO{
		Index:       slot.Index,
		Start:       slot.Start.Format(dateLayout),
		End:         slot.End.Format(dateLayout),
		PrimaryID:   slot.PrimaryID,
		SecondaryID: slot.SecondaryID,
		Notes:       slot.Notes,
		Overridden:  slot.Overridden,
	}
}
