// Package http provides HTTP handlers and middleware for the on-call API.
//
// The router exposes the following endpoints:
//   - POST /people, GET /people, GET /people/{id}, DELETE /people/{id}: person
//     directory endpoints exchanging the `personDTO` payload defined in
//     person_handler.go. GET /people/{id}/usage reports every reference that
//     blocks deletion.
//   - POST /teams, GET /teams, GET /teams/{id}, DELETE /teams/{id}: team
//     catalog endpoints. PUT /teams/{id}/members replaces the roster and
//     GET /teams/{id}/oncall-now resolves the duty pair for today (or the
//     `at` query date).
//   - POST /pto, GET /pto?person_id=, DELETE /pto/{id}: blackout calendar
//     endpoints exchanging the `ptoDTO` payload defined in pto_handler.go.
//   - POST /teams/{id}/schedules: generates the rotation for a year.
//     GET /schedules/{id}, GET /schedules?team_id=&year=, and
//     DELETE /schedules/{id} read and drop generated schedules.
//   - POST /schedules/{id}/overrides/{index}: applies a sparse manual patch to
//     one slot. POST /schedules/{id}/reassign and
//     POST /schedules/{id}/remove-person apply bulk changes atomically.
//   - GET /schedules/{id}/export?format=csv|markdown|ics renders the merged
//     schedule; GET /schedules/{id}/usage reports per-person slot counts.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
