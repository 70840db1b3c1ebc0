package persistence

import (
	"context"
	"time"
)

// PersonRepository exposes CRUD operations for people.
type PersonRepository interface {
	CreatePerson(ctx context.Context, person Person) error
	UpdatePerson(ctx context.Context, person Person) error
	GetPerson(ctx context.Context, id string) (Person, error)
	ListPeople(ctx context.Context) ([]Person, error)
	DeletePerson(ctx context.Context, id string) error
}

// TeamRepository exposes CRUD operations for teams and their membership.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team Team) error
	GetTeam(ctx context.Context, id string) (Team, error)
	ListTeams(ctx context.Context) ([]Team, error)
	ReplaceMembers(ctx context.Context, teamID string, memberIDs []string) error
	// DeleteTeam removes the team together with its schedules, slots and
	// overrides. People are never cascaded.
	DeleteTeam(ctx context.Context, id string) error
}

// PTORepository stores per-person blackout windows.
type PTORepository interface {
	CreateEntry(ctx context.Context, entry PTOEntry) error
	GetEntry(ctx context.Context, id string) (PTOEntry, error)
	ListEntriesForPerson(ctx context.Context, personID string) ([]PTOEntry, error)
	// ListEntriesForYear returns entries for the given people whose range
	// intersects the calendar year.
	ListEntriesForYear(ctx context.Context, personIDs []string, year int) ([]PTOEntry, error)
	CountEntriesForPerson(ctx context.Context, personID string) (int, error)
	DeleteEntry(ctx context.Context, id string) error
}

// ScheduleRepository stores schedule definitions, their generated slots and
// the sparse override patches layered on top.
type ScheduleRepository interface {
	// ReplaceSchedule atomically removes any previous schedule for the same
	// (team, year) key together with its slots and overrides, then inserts
	// the new definition and slot set. It reports how many overrides the
	// replacement invalidated.
	ReplaceSchedule(ctx context.Context, schedule Schedule, slots []Slot) (int, error)
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	// GetScheduleByTeamYear returns the most recently created schedule for
	// the pair.
	GetScheduleByTeamYear(ctx context.Context, teamID string, year int) (Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error

	ListSlots(ctx context.Context, scheduleID string) ([]Slot, error)
	ListOverrides(ctx context.Context, scheduleID string) ([]Override, error)
	// UpsertOverrides writes the batch atomically; either every override is
	// visible afterwards or none is.
	UpsertOverrides(ctx context.Context, scheduleID string, overrides []Override) error

	// CountAssignments counts the effective (override-merged) primary and
	// secondary roles held by the person across all schedules.
	CountAssignments(ctx context.Context, personID string) (AssignmentCounts, error)

	// ListUpcomingSlots returns unreminded slots starting within the
	// inclusive window, with overrides already applied.
	ListUpcomingSlots(ctx context.Context, from, to time.Time) ([]UpcomingSlot, error)
	MarkSlotsReminded(ctx context.Context, scheduleID string, indices []int) error
}
