// Package memory provides an in-memory persistence implementation used by
// tests, fixtures and local development. It mirrors the SQLite store's
// semantics, including the override merge applied by the counting and
// reminder queries.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/oncall-scheduler/internal/persistence"
)

type overrideKey struct {
	scheduleID string
	slotIndex  int
}

// Store keeps every record behind a single RWMutex. Reads observe either the
// pre- or post-state of a mutation, never an intermediate one.
type Store struct {
	mu        sync.RWMutex
	people    map[string]persistence.Person
	teams     map[string]persistence.Team
	pto       map[string]persistence.PTOEntry
	schedules map[string]persistence.Schedule
	slots     map[string][]persistence.Slot
	overrides map[overrideKey]persistence.Override
}

// New returns an empty store.
func New() *Store {
	return &Store{
		people:    make(map[string]persistence.Person),
		teams:     make(map[string]persistence.Team),
		pto:       make(map[string]persistence.PTOEntry),
		schedules: make(map[string]persistence.Schedule),
		slots:     make(map[string][]persistence.Slot),
		overrides: make(map[overrideKey]persistence.Override),
	}
}

// --- PersonRepository ---

func (s *Store) CreatePerson(ctx context.Context, person persistence.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.people[person.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.people[person.ID] = clonePerson(person)
	return nil
}

func (s *Store) UpdatePerson(ctx context.Context, person persistence.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.people[person.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.people[person.ID] = clonePerson(person)
	return nil
}

func (s *Store) GetPerson(ctx context.Context, id string) (persistence.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	person, ok := s.people[id]
	if !ok {
		return persistence.Person{}, persistence.ErrNotFound
	}
	return clonePerson(person), nil
}

func (s *Store) ListPeople(ctx context.Context) ([]persistence.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	people := make([]persistence.Person, 0, len(s.people))
	for _, person := range s.people {
		people = append(people, clonePerson(person))
	}
	sort.Slice(people, func(i, j int) bool { return people[i].ID < people[j].ID })
	return people, nil
}

func (s *Store) DeletePerson(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.people[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.people, id)

	// Drop team memberships; the usage gate upstream guarantees no slot or
	// PTO references remain.
	for teamID, team := range s.teams {
		members := team.MemberIDs[:0:0]
		for _, member := range team.MemberIDs {
			if member != id {
				members = append(members, member)
			}
		}
		team.MemberIDs = members
		s.teams[teamID] = team
	}
	return nil
}

// --- TeamRepository ---

func (s *Store) CreateTeam(ctx context.Context, team persistence.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[team.ID]; ok {
		return persistence.ErrDuplicate
	}
	for _, existing := range s.teams {
		if existing.Name == team.Name {
			return persistence.ErrDuplicate
		}
	}
	if err := s.ensureMembersExistLocked(team.MemberIDs); err != nil {
		return err
	}
	s.teams[team.ID] = cloneTeam(team)
	return nil
}

func (s *Store) GetTeam(ctx context.Context, id string) (persistence.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	team, ok := s.teams[id]
	if !ok {
		return persistence.Team{}, persistence.ErrNotFound
	}
	return cloneTeam(team), nil
}

func (s *Store) ListTeams(ctx context.Context) ([]persistence.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	teams := make([]persistence.Team, 0, len(s.teams))
	for _, team := range s.teams {
		teams = append(teams, cloneTeam(team))
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}

func (s *Store) ReplaceMembers(ctx context.Context, teamID string, memberIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	team, ok := s.teams[teamID]
	if !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureMembersExistLocked(memberIDs); err != nil {
		return err
	}
	team.MemberIDs = append([]string(nil), memberIDs...)
	s.teams[teamID] = team
	return nil
}

func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[id]; !ok {
		return persistence.ErrNotFound
	}

	for scheduleID, schedule := range s.schedules {
		if schedule.TeamID != id {
			continue
		}
		s.deleteScheduleLocked(scheduleID)
	}
	delete(s.teams, id)
	return nil
}

func (s *Store) ensureMembersExistLocked(memberIDs []string) error {
	for _, id := range memberIDs {
		if _, ok := s.people[id]; !ok {
			return persistence.ErrForeignKeyViolation
		}
	}
	return nil
}

// --- PTORepository ---

func (s *Store) CreateEntry(ctx context.Context, entry persistence.PTOEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pto[entry.ID]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := s.people[entry.PersonID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	s.pto[entry.ID] = cloneEntry(entry)
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (persistence.PTOEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.pto[id]
	if !ok {
		return persistence.PTOEntry{}, persistence.ErrNotFound
	}
	return cloneEntry(entry), nil
}

func (s *Store) ListEntriesForPerson(ctx context.Context, personID string) ([]persistence.PTOEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []persistence.PTOEntry
	for _, entry := range s.pto {
		if entry.PersonID == personID {
			entries = append(entries, cloneEntry(entry))
		}
	}
	sortEntries(entries)
	return entries, nil
}

func (s *Store) ListEntriesForYear(ctx context.Context, personIDs []string, year int) ([]persistence.PTOEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(personIDs))
	for _, id := range personIDs {
		wanted[id] = struct{}{}
	}

	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	var entries []persistence.PTOEntry
	for _, entry := range s.pto {
		if _, ok := wanted[entry.PersonID]; !ok {
			continue
		}
		if entry.Start.After(yearEnd) || entry.End.Before(yearStart) {
			continue
		}
		entries = append(entries, cloneEntry(entry))
	}
	sortEntries(entries)
	return entries, nil
}

func (s *Store) CountEntriesForPerson(ctx context.Context, personID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entry := range s.pto {
		if entry.PersonID == personID {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pto[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.pto, id)
	return nil
}

// --- ScheduleRepository ---

func (s *Store) ReplaceSchedule(ctx context.Context, schedule persistence.Schedule, slots []persistence.Slot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[schedule.TeamID]; !ok {
		return 0, persistence.ErrForeignKeyViolation
	}

	invalidated := 0
	for id, existing := range s.schedules {
		if existing.TeamID == schedule.TeamID && existing.Year == schedule.Year {
			invalidated += s.deleteScheduleLocked(id)
		}
	}

	s.schedules[schedule.ID] = cloneSchedule(schedule)
	stored := make([]persistence.Slot, len(slots))
	for i, slot := range slots {
		stored[i] = cloneSlot(slot)
	}
	s.slots[schedule.ID] = stored
	return invalidated, nil
}

func (s *Store) GetSchedule(ctx context.Context, id string) (persistence.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedule, ok := s.schedules[id]
	if !ok {
		return persistence.Schedule{}, persistence.ErrNotFound
	}
	return cloneSchedule(schedule), nil
}

func (s *Store) GetScheduleByTeamYear(ctx context.Context, teamID string, year int) (persistence.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *persistence.Schedule
	for _, schedule := range s.schedules {
		if schedule.TeamID != teamID || schedule.Year != year {
			continue
		}
		candidate := schedule
		if latest == nil || candidate.CreatedAt.After(latest.CreatedAt) {
			latest = &candidate
		}
	}
	if latest == nil {
		return persistence.Schedule{}, persistence.ErrNotFound
	}
	return cloneSchedule(*latest), nil
}

func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[id]; !ok {
		return persistence.ErrNotFound
	}
	s.deleteScheduleLocked(id)
	return nil
}

func (s *Store) ListSlots(ctx context.Context, scheduleID string) ([]persistence.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.schedules[scheduleID]; !ok {
		return nil, persistence.ErrNotFound
	}
	slots := make([]persistence.Slot, 0, len(s.slots[scheduleID]))
	for _, slot := range s.slots[scheduleID] {
		slots = append(slots, cloneSlot(slot))
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Index < slots[j].Index })
	return slots, nil
}

func (s *Store) ListOverrides(ctx context.Context, scheduleID string) ([]persistence.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var overrides []persistence.Override
	for key, override := range s.overrides {
		if key.scheduleID == scheduleID {
			overrides = append(overrides, cloneOverride(override))
		}
	}
	sort.Slice(overrides, func(i, j int) bool { return overrides[i].SlotIndex < overrides[j].SlotIndex })
	return overrides, nil
}

func (s *Store) UpsertOverrides(ctx context.Context, scheduleID string, overrides []persistence.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, ok := s.slots[scheduleID]
	if !ok {
		return persistence.ErrNotFound
	}
	indices := make(map[int]struct{}, len(slots))
	for _, slot := range slots {
		indices[slot.Index] = struct{}{}
	}
	for _, override := range overrides {
		if _, ok := indices[override.SlotIndex]; !ok {
			return persistence.ErrForeignKeyViolation
		}
	}

	// Validation passed for the whole batch; apply it.
	for _, override := range overrides {
		key := overrideKey{scheduleID: scheduleID, slotIndex: override.SlotIndex}
		s.overrides[key] = cloneOverride(override)
	}
	return nil
}

func (s *Store) CountAssignments(ctx context.Context, personID string) (persistence.AssignmentCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var counts persistence.AssignmentCounts
	for scheduleID, slots := range s.slots {
		for _, slot := range slots {
			effective := s.effectiveSlotLocked(scheduleID, slot)
			if effective.PrimaryID != nil && *effective.PrimaryID == personID {
				counts.Primary++
			}
			if effective.SecondaryID != nil && *effective.SecondaryID == personID {
				counts.Secondary++
			}
		}
	}
	return counts, nil
}

func (s *Store) ListUpcomingSlots(ctx context.Context, from, to time.Time) ([]persistence.UpcomingSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var upcoming []persistence.UpcomingSlot
	for scheduleID, slots := range s.slots {
		schedule := s.schedules[scheduleID]
		for _, slot := range slots {
			if slot.Reminded || slot.Start.Before(from) || slot.Start.After(to) {
				continue
			}
			upcoming = append(upcoming, persistence.UpcomingSlot{
				Schedule: cloneSchedule(schedule),
				Slot:     s.effectiveSlotLocked(scheduleID, slot),
			})
		}
	}
	sort.Slice(upcoming, func(i, j int) bool {
		if upcoming[i].Slot.Start.Equal(upcoming[j].Slot.Start) {
			return upcoming[i].Schedule.ID < upcoming[j].Schedule.ID
		}
		return upcoming[i].Slot.Start.Before(upcoming[j].Slot.Start)
	})
	return upcoming, nil
}

func (s *Store) MarkSlotsReminded(ctx context.Context, scheduleID string, indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, ok := s.slots[scheduleID]
	if !ok {
		return persistence.ErrNotFound
	}
	wanted := make(map[int]struct{}, len(indices))
	for _, index := range indices {
		wanted[index] = struct{}{}
	}
	for i := range slots {
		if _, ok := wanted[slots[i].Index]; ok {
			slots[i].Reminded = true
		}
	}
	return nil
}

// deleteScheduleLocked removes a schedule, its slots and overrides, returning
// the number of overrides dropped.
func (s *Store) deleteScheduleLocked(scheduleID string) int {
	dropped := 0
	for key := range s.overrides {
		if key.scheduleID == scheduleID {
			delete(s.overrides, key)
			dropped++
		}
	}
	delete(s.slots, scheduleID)
	delete(s.schedules, scheduleID)
	return dropped
}

func (s *Store) effectiveSlotLocked(scheduleID string, slot persistence.Slot) persistence.Slot {
	merged := cloneSlot(slot)
	override, ok := s.overrides[overrideKey{scheduleID: scheduleID, slotIndex: slot.Index}]
	if !ok {
		return merged
	}
	if override.Primary.Set {
		merged.PrimaryID = cloneStringPtr(override.Primary.Value)
	}
	if override.Secondary.Set {
		merged.SecondaryID = cloneStringPtr(override.Secondary.Value)
	}
	if override.Notes.Set {
		merged.Notes = cloneStringPtr(override.Notes.Value)
	}
	return merged
}

func sortEntries(entries []persistence.PTOEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Start.Equal(entries[j].Start) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Start.Before(entries[j].Start)
	})
}

func clonePerson(person persistence.Person) persistence.Person {
	person.Email = cloneStringPtr(person.Email)
	person.TimeZone = cloneStringPtr(person.TimeZone)
	return person
}

func cloneTeam(team persistence.Team) persistence.Team {
	team.Description = cloneStringPtr(team.Description)
	team.MemberIDs = append([]string(nil), team.MemberIDs...)
	return team
}

func cloneEntry(entry persistence.PTOEntry) persistence.PTOEntry {
	entry.Note = cloneStringPtr(entry.Note)
	return entry
}

func cloneSchedule(schedule persistence.Schedule) persistence.Schedule {
	schedule.MemberOrder = append([]string(nil), schedule.MemberOrder...)
	return schedule
}

func cloneSlot(slot persistence.Slot) persistence.Slot {
	slot.PrimaryID = cloneStringPtr(slot.PrimaryID)
	slot.SecondaryID = cloneStringPtr(slot.SecondaryID)
	slot.Notes = cloneStringPtr(slot.Notes)
	return slot
}

func cloneOverride(override persistence.Override) persistence.Override {
	override.Primary.Value = cloneStringPtr(override.Primary.Value)
	override.Secondary.Value = cloneStringPtr(override.Secondary.Value)
	override.Notes.Value = cloneStringPtr(override.Notes.Value)
	return override
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
