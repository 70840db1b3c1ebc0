package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/example/oncall-scheduler/internal/export"
	"github.com/example/oncall-scheduler/internal/metrics"
	"github.com/example/oncall-scheduler/internal/persistence"
	"github.com/example/oncall-scheduler/internal/rotation"
)

// ScheduleStore captures the persistence interactions needed by the service.
type ScheduleStore interface {
	ReplaceSchedule(ctx context.Context, schedule persistence.Schedule, slots []persistence.Slot) (int, error)
	GetSchedule(ctx context.Context, id string) (persistence.Schedule, error)
	GetScheduleByTeamYear(ctx context.Context, teamID string, year int) (persistence.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	ListSlots(ctx context.Context, scheduleID string) ([]persistence.Slot, error)
	ListOverrides(ctx context.Context, scheduleID string) ([]persistence.Override, error)
	UpsertOverrides(ctx context.Context, scheduleID string, overrides []persistence.Override) error
}

// TeamDirectory exposes team lookup operations.
type TeamDirectory interface {
	GetTeam(ctx context.Context, id string) (persistence.Team, error)
}

// PersonDirectory exposes person lookup operations.
type PersonDirectory interface {
	GetPerson(ctx context.Context, id string) (persistence.Person, error)
	ListPeople(ctx context.Context) ([]persistence.Person, error)
}

// BlackoutSource exposes blackout window lookups for generation.
type BlackoutSource interface {
	ListEntriesForYear(ctx context.Context, personIDs []string, year int) ([]persistence.PTOEntry, error)
}

// ScheduleService orchestrates rotation generation, overrides, bulk
// mutations and exports. All mutating methods serialize per schedule through
// ScheduleLocks.
type ScheduleService struct {
	schedules   ScheduleStore
	teams       TeamDirectory
	people      PersonDirectory
	pto         BlackoutSource
	locks       *ScheduleLocks
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

// NewScheduleService wires dependencies for schedule operations.
func NewScheduleService(schedules ScheduleStore, teams TeamDirectory, people PersonDirectory, pto BlackoutSource, locks *ScheduleLocks, logger *slog.Logger, idGenerator func() string, now func() time.Time) *ScheduleService {
	if locks == nil {
		locks = NewScheduleLocks(DefaultLockTimeout)
	}
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		schedules:   schedules,
		teams:       teams,
		people:      people,
		pto:         pto,
		locks:       locks,
		logger:      defaultLogger(logger),
		idGenerator: idGenerator,
		now:         now,
	}
}

// Generate builds the full-year rotation for a team and replaces any previous
// schedule for the same (team, year) pair, clearing that schedule's overrides.
func (s *ScheduleService) Generate(ctx context.Context, params GenerateScheduleParams) (ScheduleView, error) {
	logger := serviceLogger(ctx, s.logger, "schedule", "generate", "team_id", params.TeamID, "year", params.Year)

	vErr := &ValidationError{}
	if params.TeamID == "" {
		vErr.add("team_id", "team id is required")
	}
	if params.Year < 1 {
		vErr.add("year", "year must be positive")
	}
	if params.RotationDays < 1 {
		vErr.add("rotation_days", "rotation length must be at least one day")
	}
	if params.WeekStartsOn < time.Sunday || params.WeekStartsOn > time.Saturday {
		vErr.add("week_starts_on", "week start must be a weekday between Sunday and Saturday")
	}
	if vErr.HasErrors() {
		return ScheduleView{}, vErr
	}

	release, err := s.locks.Acquire(ctx, generationLockKey(params.TeamID, params.Year))
	if err != nil {
		return ScheduleView{}, err
	}
	defer release()

	team, err := s.teams.GetTeam(ctx, params.TeamID)
	if err != nil {
		return ScheduleView{}, mapRepoError(err)
	}

	roster, err := resolveRoster(team, params.PersonIDs)
	if err != nil {
		return ScheduleView{}, err
	}
	sort.Strings(roster)

	blackouts, err := s.loadBlackouts(ctx, roster, params.Year)
	if err != nil {
		return ScheduleView{}, err
	}

	generated, err := rotation.Generate(rotation.GenerateInput{
		MemberOrder:  roster,
		Year:         params.Year,
		RotationDays: params.RotationDays,
		WeekStartsOn: params.WeekStartsOn,
		Blackouts:    blackouts,
	})
	if err != nil {
		return ScheduleView{}, mapEngineError(err)
	}

	schedule := persistence.Schedule{
		ID:           s.idGenerator(),
		TeamID:       team.ID,
		Year:         params.Year,
		RotationDays: params.RotationDays,
		WeekStartsOn: params.WeekStartsOn,
		MemberOrder:  roster,
		CreatedAt:    s.now().UTC(),
	}

	slots := make([]persistence.Slot, 0, len(generated.Assignments))
	for _, assignment := range generated.Assignments {
		slot := persistence.Slot{
			ScheduleID: schedule.ID,
			Index:      assignment.Index,
			Start:      assignment.Range.Start,
			End:        assignment.Range.End,
			PrimaryID:  strPtr(assignment.Primary),
		}
		if assignment.Secondary != "" {
			slot.SecondaryID = strPtr(assignment.Secondary)
		}
		if assignment.Note != "" {
			slot.Notes = strPtr(assignment.Note)
		}
		slots = append(slots, slot)
	}

	invalidated, err := s.schedules.ReplaceSchedule(ctx, schedule, slots)
	if err != nil {
		return ScheduleView{}, mapRepoError(err)
	}

	metrics.IncSchedulesGenerated()
	logger.InfoContext(ctx, "schedule generated",
		"schedule_id", schedule.ID,
		"slots", len(slots),
		"fully_blocked", len(generated.FullyBlocked),
		"invalidated_overrides", invalidated,
	)

	view := buildScheduleView(schedule, slots, nil)
	view.InvalidatedOverrides = invalidated
	view.FullyBlockedSlots = generated.FullyBlocked
	return view, nil
}

// GetSchedule returns the merged view of a schedule.
func (s *ScheduleService) GetSchedule(ctx context.Context, id string) (ScheduleView, error) {
	schedule, slots, overrides, err := s.loadSchedule(ctx, id)
	if err != nil {
		return ScheduleView{}, err
	}
	return buildScheduleView(schedule, slots, overrides), nil
}

// GetScheduleByTeamYear returns the merged view of the team's schedule for
// the given year.
func (s *ScheduleService) GetScheduleByTeamYear(ctx context.Context, teamID string, year int) (ScheduleView, error) {
	schedule, err := s.schedules.GetScheduleByTeamYear(ctx, teamID, year)
	if err != nil {
		return ScheduleView{}, mapRepoError(err)
	}
	return s.GetSchedule(ctx, schedule.ID)
}

// ApplyOverride layers a sparse manual patch over one slot and returns the
// resulting merged slot. Blackouts are deliberately not consulted: a manual
// assignment is an explicit operator decision.
func (s *ScheduleService) ApplyOverride(ctx context.Context, scheduleID string, slotIndex int, patch SlotPatch) (SlotView, error) {
	logger := serviceLogger(ctx, s.logger, "schedule", "apply_override", "schedule_id", scheduleID, "slot_index", slotIndex)

	if !patch.Primary.Set && !patch.Secondary.Set && !patch.Notes.Set {
		vErr := &ValidationError{}
		vErr.add("patch", "at least one field must be provided")
		return SlotView{}, vErr
	}

	release, err := s.locks.Acquire(ctx, scheduleID)
	if err != nil {
		return SlotView{}, err
	}
	defer release()

	_, slots, overrides, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return SlotView{}, err
	}

	slot, ok := findSlot(slots, slotIndex)
	if !ok {
		return SlotView{}, fmt.Errorf("%w: slot %d", ErrNotFound, slotIndex)
	}

	if err := s.validatePatchPeople(ctx, patch); err != nil {
		return SlotView{}, err
	}

	override := mergePatch(existingOverride(overrides, scheduleID, slotIndex), scheduleID, slotIndex, patch, s.now().UTC())

	merged := applyOverride(slot, &override)
	if merged.PrimaryID != nil && merged.SecondaryID != nil && *merged.PrimaryID == *merged.SecondaryID {
		vErr := &ValidationError{}
		vErr.add("secondary", "primary and secondary must differ")
		return SlotView{}, vErr
	}

	if err := s.schedules.UpsertOverrides(ctx, scheduleID, []persistence.Override{override}); err != nil {
		return SlotView{}, mapRepoError(err)
	}

	metrics.IncOverridesApplied()
	logger.InfoContext(ctx, "override applied")

	return slotView(merged, true), nil
}

// BulkReassign moves every effective assignment held by fromID within the
// scope to toID, committing the resulting override set atomically. Zero
// matching slots is not an error.
func (s *ScheduleService) BulkReassign(ctx context.Context, scheduleID, fromID, toID string, scope ReassignScope) (BulkChange, error) {
	logger := serviceLogger(ctx, s.logger, "schedule", "bulk_reassign", "schedule_id", scheduleID)

	vErr := &ValidationError{}
	if fromID == "" {
		vErr.add("from", "source person is required")
	}
	if toID == "" {
		vErr.add("to", "target person is required")
	}
	if fromID != "" && fromID == toID {
		vErr.add("to", "source and target must differ")
	}
	switch scope {
	case ScopePrimary, ScopeSecondary, ScopeBoth:
	default:
		vErr.add("scope", "scope must be primary, secondary or both")
	}
	if vErr.HasErrors() {
		return BulkChange{}, vErr
	}

	if _, err := s.people.GetPerson(ctx, toID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			inner := &ValidationError{}
			inner.add("to", "unknown person")
			return BulkChange{}, inner
		}
		return BulkChange{}, mapRepoError(err)
	}

	release, err := s.locks.Acquire(ctx, scheduleID)
	if err != nil {
		return BulkChange{}, err
	}
	defer release()

	_, slots, overrides, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return BulkChange{}, err
	}

	now := s.now().UTC()
	var batch []persistence.Override
	var changed []int

	for _, slot := range slots {
		existing := existingOverride(overrides, scheduleID, slot.Index)
		effective := applyOverride(slot, existing)

		patch := SlotPatch{}
		if (scope == ScopePrimary || scope == ScopeBoth) &&
			effective.PrimaryID != nil && *effective.PrimaryID == fromID {
			patch.Primary = OptionalString{Set: true, Value: strPtr(toID)}
		}
		if (scope == ScopeSecondary || scope == ScopeBoth) &&
			effective.SecondaryID != nil && *effective.SecondaryID == fromID {
			patch.Secondary = OptionalString{Set: true, Value: strPtr(toID)}
		}
		if !patch.Primary.Set && !patch.Secondary.Set {
			continue
		}

		override := mergePatch(existing, scheduleID, slot.Index, patch, now)
		after := applyOverride(slot, &override)
		if after.PrimaryID != nil && after.SecondaryID != nil && *after.PrimaryID == *after.SecondaryID {
			return BulkChange{}, fmt.Errorf("%w: reassignment would give slot %d the same primary and secondary", ErrConflict, slot.Index)
		}

		batch = append(batch, override)
		changed = append(changed, slot.Index)
	}

	if len(batch) > 0 {
		if err := s.schedules.UpsertOverrides(ctx, scheduleID, batch); err != nil {
			return BulkChange{}, mapRepoError(err)
		}
	}

	metrics.AddBulkReassignSlots(len(changed))
	logger.InfoContext(ctx, "bulk reassign applied", "from", fromID, "to", toID, "scope", string(scope), "changed", len(changed))

	return BulkChange{ChangedSlots: changed}, nil
}

// RemovePerson clears every effective role the person holds in the schedule
// and backfills each slot from the remaining rotation order using the same
// blackout skip rule as generation. Slots with no eligible replacement are
// left unassigned and reported.
func (s *ScheduleService) RemovePerson(ctx context.Context, scheduleID, personID string) (RemovalResult, error) {
	logger := serviceLogger(ctx, s.logger, "schedule", "remove_person", "schedule_id", scheduleID, "person_id", personID)

	if personID == "" {
		vErr := &ValidationError{}
		vErr.add("person_id", "person id is required")
		return RemovalResult{}, vErr
	}

	release, err := s.locks.Acquire(ctx, scheduleID)
	if err != nil {
		return RemovalResult{}, err
	}
	defer release()

	schedule, slots, overrides, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return RemovalResult{}, err
	}

	remaining := make([]string, 0, len(schedule.MemberOrder))
	for _, member := range schedule.MemberOrder {
		if member != personID {
			remaining = append(remaining, member)
		}
	}

	blackouts, err := s.loadBlackouts(ctx, remaining, schedule.Year)
	if err != nil {
		return RemovalResult{}, err
	}

	now := s.now().UTC()
	var batch []persistence.Override
	var result RemovalResult

	for _, slot := range slots {
		existing := existingOverride(overrides, scheduleID, slot.Index)
		effective := applyOverride(slot, existing)
		slotRange := rotation.Range{Start: slot.Start, End: slot.End}

		patch := SlotPatch{}
		unassigned := false

		if effective.PrimaryID != nil && *effective.PrimaryID == personID {
			exclude := ""
			if effective.SecondaryID != nil && *effective.SecondaryID != personID {
				exclude = *effective.SecondaryID
			}
			if replacement, ok := rotation.Backfill(remaining, slot.Index, slotRange, blackouts, exclude); ok {
				patch.Primary = OptionalString{Set: true, Value: strPtr(replacement)}
				effective.PrimaryID = strPtr(replacement)
			} else {
				patch.Primary = OptionalString{Set: true, Value: nil}
				effective.PrimaryID = nil
				unassigned = true
			}
		}

		if effective.SecondaryID != nil && *effective.SecondaryID == personID {
			exclude := ""
			if effective.PrimaryID != nil {
				exclude = *effective.PrimaryID
			}
			if replacement, ok := rotation.Backfill(remaining, slot.Index, slotRange, blackouts, exclude); ok {
				patch.Secondary = OptionalString{Set: true, Value: strPtr(replacement)}
			} else {
				patch.Secondary = OptionalString{Set: true, Value: nil}
				unassigned = true
			}
		}

		if !patch.Primary.Set && !patch.Secondary.Set {
			continue
		}

		batch = append(batch, mergePatch(existing, scheduleID, slot.Index, patch, now))
		result.Changed = append(result.Changed, slot.Index)
		if unassigned {
			result.Unassigned = append(result.Unassigned, slot.Index)
		}
	}

	if len(batch) > 0 {
		if err := s.schedules.UpsertOverrides(ctx, scheduleID, batch); err != nil {
			return RemovalResult{}, mapRepoError(err)
		}
	}

	metrics.IncPersonRemovals()
	logger.InfoContext(ctx, "person removed from schedule", "changed", len(result.Changed), "unassigned", len(result.Unassigned))

	return result, nil
}

// DeleteSchedule removes the schedule together with its slots and overrides.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, id string) error {
	logger := serviceLogger(ctx, s.logger, "schedule", "delete", "schedule_id", id)

	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.schedules.DeleteSchedule(ctx, id); err != nil {
		return mapRepoError(err)
	}

	logger.InfoContext(ctx, "schedule deleted")
	return nil
}

// OnCallNow returns the slot covering asOf (defaulting to the current time)
// for the team's schedule of that year, with the assigned people resolved.
func (s *ScheduleService) OnCallNow(ctx context.Context, teamID string, asOf *time.Time) (OnCallStatus, error) {
	at := s.now().UTC()
	if asOf != nil {
		at = asOf.UTC()
	}
	day := rotation.Date(at.Year(), at.Month(), at.Day())

	schedule, err := s.schedules.GetScheduleByTeamYear(ctx, teamID, day.Year())
	if err != nil {
		return OnCallStatus{}, mapRepoError(err)
	}

	_, slots, overrides, err := s.loadSchedule(ctx, schedule.ID)
	if err != nil {
		return OnCallStatus{}, err
	}

	for _, slot := range slots {
		if !(rotation.Range{Start: slot.Start, End: slot.End}).Contains(day) {
			continue
		}
		override := existingOverride(overrides, schedule.ID, slot.Index)
		merged := applyOverride(slot, override)

		status := OnCallStatus{
			ScheduleID: schedule.ID,
			TeamID:     schedule.TeamID,
			Year:       schedule.Year,
			Slot:       slotView(merged, override != nil),
		}
		if status.Primary, err = s.resolvePerson(ctx, merged.PrimaryID); err != nil {
			return OnCallStatus{}, err
		}
		if status.Secondary, err = s.resolvePerson(ctx, merged.SecondaryID); err != nil {
			return OnCallStatus{}, err
		}
		return status, nil
	}

	return OnCallStatus{}, fmt.Errorf("%w: no slot covers %s", ErrNotFound, day.Format("2006-01-02"))
}

// Usage reports per-person counts for one schedule: blackout entries in the
// schedule's year plus effective primary and secondary slots.
func (s *ScheduleService) Usage(ctx context.Context, scheduleID string) ([]ScheduleUsageRow, error) {
	schedule, slots, overrides, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	rows := make(map[string]*ScheduleUsageRow, len(schedule.MemberOrder))
	order := make([]string, 0, len(schedule.MemberOrder))
	ensure := func(personID string) *ScheduleUsageRow {
		if row, ok := rows[personID]; ok {
			return row
		}
		row := &ScheduleUsageRow{PersonID: personID}
		rows[personID] = row
		order = append(order, personID)
		return row
	}

	for _, member := range schedule.MemberOrder {
		ensure(member)
	}

	for _, slot := range slots {
		merged := applyOverride(slot, existingOverride(overrides, scheduleID, slot.Index))
		if merged.PrimaryID != nil {
			ensure(*merged.PrimaryID).PrimarySlots++
		}
		if merged.SecondaryID != nil {
			ensure(*merged.SecondaryID).SecondarySlots++
		}
	}

	entries, err := s.pto.ListEntriesForYear(ctx, order, schedule.Year)
	if err != nil {
		return nil, mapRepoError(err)
	}
	for _, entry := range entries {
		if row, ok := rows[entry.PersonID]; ok {
			row.PTOCount++
		}
	}

	for _, personID := range order {
		person, err := s.people.GetPerson(ctx, personID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				continue
			}
			return nil, mapRepoError(err)
		}
		rows[personID].Name = person.Name
	}

	report := make([]ScheduleUsageRow, 0, len(order))
	for _, personID := range order {
		report = append(report, *rows[personID])
	}
	return report, nil
}

// Export renders the merged schedule in the requested format with person
// names resolved.
func (s *ScheduleService) Export(ctx context.Context, scheduleID string, format export.Format) ([]byte, error) {
	logger := serviceLogger(ctx, s.logger, "schedule", "export", "schedule_id", scheduleID, "format", string(format))

	schedule, slots, overrides, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	team, err := s.teams.GetTeam(ctx, schedule.TeamID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	names, err := s.personNames(ctx)
	if err != nil {
		return nil, err
	}

	doc := export.Document{
		ScheduleID: schedule.ID,
		TeamName:   team.Name,
		Year:       schedule.Year,
	}
	for _, slot := range slots {
		merged := applyOverride(slot, existingOverride(overrides, scheduleID, slot.Index))
		row := export.Slot{
			Index: merged.Index,
			Start: merged.Start,
			End:   merged.End,
		}
		if merged.PrimaryID != nil {
			row.PrimaryID = *merged.PrimaryID
			row.PrimaryName = names[*merged.PrimaryID]
		}
		if merged.SecondaryID != nil {
			row.SecondaryID = *merged.SecondaryID
			row.SecondaryName = names[*merged.SecondaryID]
		}
		if merged.Notes != nil {
			row.Notes = *merged.Notes
		}
		doc.Slots = append(doc.Slots, row)
	}

	rendered, err := export.Render(doc, format)
	if err != nil {
		if errors.Is(err, export.ErrUnknownFormat) {
			return nil, fmt.Errorf("%w: format %q", ErrInvalidParameter, string(format))
		}
		return nil, err
	}

	metrics.IncExports(string(format))
	logger.InfoContext(ctx, "schedule exported", "bytes", len(rendered))
	return rendered, nil
}

func (s *ScheduleService) loadSchedule(ctx context.Context, id string) (persistence.Schedule, []persistence.Slot, []persistence.Override, error) {
	schedule, err := s.schedules.GetSchedule(ctx, id)
	if err != nil {
		return persistence.Schedule{}, nil, nil, mapRepoError(err)
	}
	slots, err := s.schedules.ListSlots(ctx, id)
	if err != nil {
		return persistence.Schedule{}, nil, nil, mapRepoError(err)
	}
	overrides, err := s.schedules.ListOverrides(ctx, id)
	if err != nil {
		return persistence.Schedule{}, nil, nil, mapRepoError(err)
	}
	return schedule, slots, overrides, nil
}

func (s *ScheduleService) loadBlackouts(ctx context.Context, personIDs []string, year int) (map[string][]rotation.Range, error) {
	entries, err := s.pto.ListEntriesForYear(ctx, personIDs, year)
	if err != nil {
		return nil, mapRepoError(err)
	}
	blackouts := make(map[string][]rotation.Range, len(personIDs))
	for _, entry := range entries {
		blackouts[entry.PersonID] = append(blackouts[entry.PersonID], rotation.Range{Start: entry.Start, End: entry.End})
	}
	return blackouts, nil
}

func (s *ScheduleService) validatePatchPeople(ctx context.Context, patch SlotPatch) error {
	check := func(field string, value *string) error {
		if value == nil {
			return nil
		}
		if _, err := s.people.GetPerson(ctx, *value); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr := &ValidationError{}
				vErr.add(field, "unknown person")
				return vErr
			}
			return mapRepoError(err)
		}
		return nil
	}

	if patch.Primary.Set {
		if err := check("primary", patch.Primary.Value); err != nil {
			return err
		}
	}
	if patch.Secondary.Set {
		if err := check("secondary", patch.Secondary.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *ScheduleService) resolvePerson(ctx context.Context, id *string) (*PersonView, error) {
	if id == nil {
		return nil, nil
	}
	person, err := s.people.GetPerson(ctx, *id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, mapRepoError(err)
	}
	view := personView(person)
	return &view, nil
}

func (s *ScheduleService) personNames(ctx context.Context) (map[string]string, error) {
	people, err := s.people.ListPeople(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	names := make(map[string]string, len(people))
	for _, person := range people {
		names[person.ID] = person.Name
	}
	return names, nil
}

// resolveRoster picks the rotation members: the whole team, or the validated
// explicit subset.
func resolveRoster(team persistence.Team, personIDs []string) ([]string, error) {
	if len(personIDs) == 0 {
		if len(team.MemberIDs) == 0 {
			vErr := &ValidationError{}
			vErr.add("person_ids", "team has no members")
			return nil, vErr
		}
		return append([]string(nil), team.MemberIDs...), nil
	}

	members := make(map[string]struct{}, len(team.MemberIDs))
	for _, id := range team.MemberIDs {
		members[id] = struct{}{}
	}

	vErr := &ValidationError{}
	seen := make(map[string]struct{}, len(personIDs))
	roster := make([]string, 0, len(personIDs))
	for _, id := range personIDs {
		if _, ok := members[id]; !ok {
			vErr.add("person_ids", fmt.Sprintf("%s is not a member of the team", id))
			continue
		}
		if _, ok := seen[id]; ok {
			vErr.add("person_ids", fmt.Sprintf("%s appears more than once", id))
			continue
		}
		seen[id] = struct{}{}
		roster = append(roster, id)
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	return roster, nil
}

// generationLockKey serializes regenerations for a (team, year) pair, which
// have no schedule id yet.
func generationLockKey(teamID string, year int) string {
	return "generate/" + teamID + "/" + strconv.Itoa(year)
}

func findSlot(slots []persistence.Slot, index int) (persistence.Slot, bool) {
	for _, slot := range slots {
		if slot.Index == index {
			return slot, true
		}
	}
	return persistence.Slot{}, false
}

func existingOverride(overrides []persistence.Override, scheduleID string, slotIndex int) *persistence.Override {
	for i := range overrides {
		if overrides[i].ScheduleID == scheduleID && overrides[i].SlotIndex == slotIndex {
			return &overrides[i]
		}
	}
	return nil
}

// mergePatch folds a new patch into any existing override so previously set
// fields survive partial updates.
func mergePatch(existing *persistence.Override, scheduleID string, slotIndex int, patch SlotPatch, now time.Time) persistence.Override {
	override := persistence.Override{ScheduleID: scheduleID, SlotIndex: slotIndex}
	if existing != nil {
		override = *existing
	}
	if patch.Primary.Set {
		override.Primary = persistence.OptionalRef{Set: true, Value: copyStrPtr(patch.Primary.Value)}
	}
	if patch.Secondary.Set {
		override.Secondary = persistence.OptionalRef{Set: true, Value: copyStrPtr(patch.Secondary.Value)}
	}
	if patch.Notes.Set {
		override.Notes = persistence.OptionalText{Set: true, Value: copyStrPtr(patch.Notes.Value)}
	}
	override.UpdatedAt = now
	return override
}

// applyOverride returns the slot with the override's set fields substituted.
func applyOverride(slot persistence.Slot, override *persistence.Override) persistence.Slot {
	if override == nil {
		return slot
	}
	if override.Primary.Set {
		slot.PrimaryID = copyStrPtr(override.Primary.Value)
	}
	if override.Secondary.Set {
		slot.SecondaryID = copyStrPtr(override.Secondary.Value)
	}
	if override.Notes.Set {
		slot.Notes = copyStrPtr(override.Notes.Value)
	}
	return slot
}

func buildScheduleView(schedule persistence.Schedule, slots []persistence.Slot, overrides []persistence.Override) ScheduleView {
	view := ScheduleView{
		ID:           schedule.ID,
		TeamID:       schedule.TeamID,
		Year:         schedule.Year,
		RotationDays: schedule.RotationDays,
		WeekStartsOn: schedule.WeekStartsOn,
		MemberOrder:  append([]string(nil), schedule.MemberOrder...),
		CreatedAt:    schedule.CreatedAt,
		Slots:        make([]SlotView, 0, len(slots)),
	}
	for _, slot := range slots {
		override := existingOverride(overrides, schedule.ID, slot.Index)
		view.Slots = append(view.Slots, slotView(applyOverride(slot, override), override != nil))
	}
	return view
}

func slotView(slot persistence.Slot, overridden bool) SlotView {
	return SlotView{
		Index:       slot.Index,
		Start:       slot.Start,
		End:         slot.End,
		PrimaryID:   copyStrPtr(slot.PrimaryID),
		SecondaryID: copyStrPtr(slot.SecondaryID),
		Notes:       copyStrPtr(slot.Notes),
		Overridden:  overridden,
	}
}

func personView(person persistence.Person) PersonView {
	return PersonView{
		ID:        person.ID,
		Name:      person.Name,
		Email:     copyStrPtr(person.Email),
		TimeZone:  copyStrPtr(person.TimeZone),
		CreatedAt: person.CreatedAt,
		UpdatedAt: person.UpdatedAt,
	}
}

// mapRepoError translates persistence sentinels into application errors.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrConflict
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrConflict
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fmt.Errorf("%w: constraint violation", ErrInvalidParameter)
	case errors.Is(err, persistence.ErrLocked):
		return ErrBusy
	default:
		return err
	}
}

func mapEngineError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rotation.ErrEmptyRoster):
		vErr := &ValidationError{}
		vErr.add("person_ids", "at least one member is required")
		return vErr
	case errors.Is(err, rotation.ErrInvalidRotation):
		vErr := &ValidationError{}
		vErr.add("rotation_days", "rotation length must be at least one day")
		return vErr
	case errors.Is(err, rotation.ErrInvalidWeekday):
		vErr := &ValidationError{}
		vErr.add("week_starts_on", "week start must be a weekday between Sunday and Saturday")
		return vErr
	default:
		return err
	}
}

func strPtr(s string) *string {
	return &s
}

func copyStrPtr(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
