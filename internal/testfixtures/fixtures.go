// Package testfixtures supplies deterministic clocks, identifiers and roster
// records for tests across the module.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/oncall-scheduler/internal/persistence"
)

var (
	personCounter uint64
	teamCounter   uint64
	ptoCounter    uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// PersonOption configures a generated person fixture.
type PersonOption func(*persistence.Person)

// WithPersonID overrides the generated person id.
func WithPersonID(id string) PersonOption {
	return func(p *persistence.Person) { p.ID = id }
}

// WithPersonName overrides the generated display name.
func WithPersonName(name string) PersonOption {
	return func(p *persistence.Person) { p.Name = name }
}

// NewPerson returns a deterministic person record.
func NewPerson(opts ...PersonOption) persistence.Person {
	idx := atomic.AddUint64(&personCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	person := persistence.Person{
		ID:        fmt.Sprintf("person-%03d", idx),
		Name:      fmt.Sprintf("Person %03d", idx),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&person)
	}
	return person
}

// TeamOption configures a generated team fixture.
type TeamOption func(*persistence.Team)

// WithTeamID overrides the generated team id.
func WithTeamID(id string) TeamOption {
	return func(t *persistence.Team) { t.ID = id }
}

// WithMembers sets the team's member list.
func WithMembers(memberIDs ...string) TeamOption {
	return func(t *persistence.Team) { t.MemberIDs = memberIDs }
}

// NewTeam returns a deterministic team record.
func NewTeam(opts ...TeamOption) persistence.Team {
	idx := atomic.AddUint64(&teamCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	team := persistence.Team{
		ID:        fmt.Sprintf("team-%03d", idx),
		Name:      fmt.Sprintf("Team %03d", idx),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&team)
	}
	return team
}

// NewPTOEntry returns a deterministic inclusive blackout window.
func NewPTOEntry(personID string, start, end time.Time) persistence.PTOEntry {
	idx := atomic.AddUint64(&ptoCounter, 1)
	return persistence.PTOEntry{
		ID:       fmt.Sprintf("pto-%03d", idx),
		PersonID: personID,
		Start:    start,
		End:      end,
	}
}

// Date is shorthand for a civil date at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
