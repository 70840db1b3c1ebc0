package http

import (
	"context"
	"log/slog"

	"github.com/example/oncall-scheduler/internal/logging"
)

type contextKey string

const (
	personIDContextKey   contextKey = "person_id"
	teamIDContextKey     contextKey = "team_id"
	ptoIDContextKey      contextKey = "pto_id"
	scheduleIDContextKey contextKey = "schedule_id"
	slotIndexContextKey  contextKey = "slot_index"
)

// ContextWithPersonID injects the person identifier resolved from the request path.
func ContextWithPersonID(ctx context.Context, personID string) context.Context {
	return context.WithValue(ctx, personIDContextKey, personID)
}

// PersonIDFromContext extracts a person identifier previously associated with the context.
func PersonIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(personIDContextKey).(string)
	return id, ok
}

// ContextWithTeamID injects the team identifier resolved from the request path.
func ContextWithTeamID(ctx context.Context, teamID string) context.Context {
	return context.WithValue(ctx, teamIDContextKey, teamID)
}

// TeamIDFromContext extracts a team identifier previously associated with the context.
func TeamIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(teamIDContextKey).(string)
	return id, ok
}

// ContextWithPTOID injects the blackout entry identifier resolved from the request path.
func ContextWithPTOID(ctx context.Context, ptoID string) context.Context {
	return context.WithValue(ctx, ptoIDContextKey, ptoID)
}

// PTOIDFromContext extracts a blackout entry identifier previously associated with the context.
func PTOIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ptoIDContextKey).(string)
	return id, ok
}

// ContextWithScheduleID injects the schedule identifier resolved from the request path.
func ContextWithScheduleID(ctx context.Context, scheduleID string) context.Context {
	return context.WithValue(ctx, scheduleIDContextKey, scheduleID)
}

// ScheduleIDFromContext extracts a schedule identifier previously associated with the context.
func ScheduleIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(scheduleIDContextKey).(string)
	return id, ok
}

// ContextWithSlotIndex injects the raw slot index segment resolved from the request path.
func ContextWithSlotIndex(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, slotIndexContextKey, raw)
}

// SlotIndexFromContext extracts a raw slot index previously associated with the context.
func SlotIndexFromContext(ctx context.Context) (string, bool) {
	raw, ok := ctx.Value(slotIndexContextKey).(string)
	return raw, ok
}

// ContextWithLogger attaches a request-scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts a request-scoped logger from the context if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
