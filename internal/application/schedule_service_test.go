package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/oncall-scheduler/internal/export"
	"github.com/example/oncall-scheduler/internal/persistence"
	"github.com/example/oncall-scheduler/internal/persistence/memory"
	"github.com/example/oncall-scheduler/internal/testfixtures"
)

type scheduleFixture struct {
	service   *ScheduleService
	directory *DirectoryService
	store     *memory.Store
	clock     *testfixtures.Clock
}

// newScheduleFixture seeds people pa (Alice), pb (Bob), pc (Carol) and team
// t1 containing all three.
func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()

	store := memory.New()
	clock := testfixtures.NewClock(testfixtures.Date(2024, time.January, 10))
	ids := testfixtures.NewIDGenerator("sch")
	locks := NewScheduleLocks(100 * time.Millisecond)

	ctx := context.Background()
	people := []persistence.Person{
		{ID: "pa", Name: "Alice"},
		{ID: "pb", Name: "Bob"},
		{ID: "pc", Name: "Carol"},
	}
	for _, person := range people {
		if err := store.CreatePerson(ctx, person); err != nil {
			t.Fatalf("Failed to seed person %s: %v", person.ID, err)
		}
	}
	team := persistence.Team{ID: "t1", Name: "Platform", MemberIDs: []string{"pa", "pb", "pc"}}
	if err := store.CreateTeam(ctx, team); err != nil {
		t.Fatalf("Failed to seed team: %v", err)
	}

	service := NewScheduleService(store, store, store, store, locks, nil, ids.NextFunc(), clock.NowFunc())
	directory := NewDirectoryService(store, store, store, store, nil, testfixtures.NewIDGenerator("dir").NextFunc(), clock.NowFunc())

	return &scheduleFixture{service: service, directory: directory, store: store, clock: clock}
}

func weeklyParams() GenerateScheduleParams {
	return GenerateScheduleParams{
		TeamID:       "t1",
		Year:         2024,
		RotationDays: 7,
		WeekStartsOn: time.Monday,
	}
}

func TestScheduleService_Generate_RoundRobin(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// 2024 starts on a Monday and holds 52 full weeks.
	if len(view.Slots) != 52 {
		t.Fatalf("Expected 52 slots, got %d", len(view.Slots))
	}
	if len(view.MemberOrder) != 3 || view.MemberOrder[0] != "pa" {
		t.Errorf("Expected sorted member order [pa pb pc], got %v", view.MemberOrder)
	}
	if view.InvalidatedOverrides != 0 {
		t.Errorf("Expected no invalidated overrides, got %d", view.InvalidatedOverrides)
	}

	// Round robin with no blackouts: slot i primary order[(i-1) mod 3],
	// secondary the next member.
	wantPrimary := []string{"pa", "pb", "pc", "pa"}
	wantSecondary := []string{"pb", "pc", "pa", "pb"}
	for i := 0; i < 4; i++ {
		slot := view.Slots[i]
		if slot.PrimaryID == nil || *slot.PrimaryID != wantPrimary[i] {
			t.Errorf("Slot %d: expected primary %s, got %v", slot.Index, wantPrimary[i], slot.PrimaryID)
		}
		if slot.SecondaryID == nil || *slot.SecondaryID != wantSecondary[i] {
			t.Errorf("Slot %d: expected secondary %s, got %v", slot.Index, wantSecondary[i], slot.SecondaryID)
		}
	}

	// The schedule is reachable through the (team, year) key.
	byKey, err := fx.service.GetScheduleByTeamYear(ctx, "t1", 2024)
	if err != nil {
		t.Fatalf("GetScheduleByTeamYear failed: %v", err)
	}
	if byKey.ID != view.ID {
		t.Errorf("Expected schedule %s, got %s", view.ID, byKey.ID)
	}
}

func TestScheduleService_Generate_SkipsBlackouts(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	// Bob is away for the whole of slot 2 (Jan 8-14).
	entry := testfixtures.NewPTOEntry("pb", testfixtures.Date(2024, time.January, 8), testfixtures.Date(2024, time.January, 14))
	if err := fx.store.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("Failed to seed PTO: %v", err)
	}

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	slot := view.Slots[1]
	if slot.PrimaryID == nil || *slot.PrimaryID != "pc" {
		t.Errorf("Expected slot 2 primary pc after skipping pb, got %v", slot.PrimaryID)
	}
	// Nominal secondary pc became primary, so the scan lands on pa.
	if slot.SecondaryID == nil || *slot.SecondaryID != "pa" {
		t.Errorf("Expected slot 2 secondary pa, got %v", slot.SecondaryID)
	}
}

func TestScheduleService_Generate_ExplicitSubset(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	params := weeklyParams()
	params.PersonIDs = []string{"pc", "pa"}

	view, err := fx.service.Generate(ctx, params)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(view.MemberOrder) != 2 || view.MemberOrder[0] != "pa" || view.MemberOrder[1] != "pc" {
		t.Errorf("Expected sorted subset [pa pc], got %v", view.MemberOrder)
	}

	// A non-member is rejected with a field error.
	params.PersonIDs = []string{"pa", "ghost"}
	_, err = fx.service.Generate(ctx, params)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError for non-member, got %v", err)
	}
	if _, ok := vErr.FieldErrors["person_ids"]; !ok {
		t.Errorf("Expected person_ids field error, got %v", vErr.FieldErrors)
	}
}

func TestScheduleService_Generate_InvalidParams(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	params := weeklyParams()
	params.RotationDays = 0
	params.WeekStartsOn = time.Weekday(9)

	_, err := fx.service.Generate(ctx, params)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	for _, field := range []string{"rotation_days", "week_starts_on"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Errorf("Expected %s field error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestScheduleService_Regenerate_ClearsOverrides(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := fx.service.ApplyOverride(ctx, view.ID, 1, SlotPatch{
		Primary: OptionalString{Set: true, Value: strPtr("pb")},
	}); err != nil {
		t.Fatalf("ApplyOverride failed: %v", err)
	}

	regenerated, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	if regenerated.InvalidatedOverrides != 1 {
		t.Errorf("Expected 1 invalidated override, got %d", regenerated.InvalidatedOverrides)
	}
	if regenerated.Slots[0].PrimaryID == nil || *regenerated.Slots[0].PrimaryID != "pa" {
		t.Errorf("Expected fresh slot 1 primary pa, got %v", regenerated.Slots[0].PrimaryID)
	}
	if regenerated.Slots[0].Overridden {
		t.Error("Expected fresh slot to carry no override")
	}
}

func TestScheduleService_ApplyOverride(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	slot, err := fx.service.ApplyOverride(ctx, view.ID, 1, SlotPatch{
		Primary: OptionalString{Set: true, Value: strPtr("pc")},
	})
	if err != nil {
		t.Fatalf("ApplyOverride failed: %v", err)
	}
	if slot.PrimaryID == nil || *slot.PrimaryID != "pc" {
		t.Errorf("Expected merged primary pc, got %v", slot.PrimaryID)
	}
	if slot.SecondaryID == nil || *slot.SecondaryID != "pb" {
		t.Errorf("Expected generated secondary pb untouched, got %v", slot.SecondaryID)
	}
	if !slot.Overridden {
		t.Error("Expected slot to be marked overridden")
	}

	// A later patch clearing the secondary must keep the earlier primary
	// override: absent and clear are different things.
	slot, err = fx.service.ApplyOverride(ctx, view.ID, 1, SlotPatch{
		Secondary: OptionalString{Set: true, Value: nil},
	})
	if err != nil {
		t.Fatalf("ApplyOverride (clear) failed: %v", err)
	}
	if slot.PrimaryID == nil || *slot.PrimaryID != "pc" {
		t.Errorf("Expected primary override to survive, got %v", slot.PrimaryID)
	}
	if slot.SecondaryID != nil {
		t.Errorf("Expected secondary cleared, got %v", *slot.SecondaryID)
	}
}

func TestScheduleService_ApplyOverride_Validation(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var vErr *ValidationError

	// Empty patch.
	if _, err := fx.service.ApplyOverride(ctx, view.ID, 1, SlotPatch{}); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for empty patch, got %v", err)
	}

	// Unknown person.
	_, err = fx.service.ApplyOverride(ctx, view.ID, 1, SlotPatch{
		Primary: OptionalString{Set: true, Value: strPtr("ghost")},
	})
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for unknown person, got %v", err)
	}

	// Primary equal to the effective secondary.
	_, err = fx.service.ApplyOverride(ctx, view.ID, 1, SlotPatch{
		Primary: OptionalString{Set: true, Value: strPtr("pb")},
	})
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for primary==secondary, got %v", err)
	}

	// Unknown slot.
	_, err = fx.service.ApplyOverride(ctx, view.ID, 999, SlotPatch{
		Notes: OptionalString{Set: true, Value: strPtr("note")},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown slot, got %v", err)
	}
}

func TestScheduleService_BulkReassign(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Add a fourth person so the reassignment target holds no slots yet.
	if err := fx.store.CreatePerson(ctx, persistence.Person{ID: "pd", Name: "Dave"}); err != nil {
		t.Fatalf("Failed to seed person: %v", err)
	}

	change, err := fx.service.BulkReassign(ctx, view.ID, "pa", "pd", ScopePrimary)
	if err != nil {
		t.Fatalf("BulkReassign failed: %v", err)
	}
	// pa holds slots 1, 4, 7, ... as primary: 18 of 52.
	if len(change.ChangedSlots) != 18 {
		t.Errorf("Expected 18 changed slots, got %d", len(change.ChangedSlots))
	}

	merged, err := fx.service.GetSchedule(ctx, view.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if merged.Slots[0].PrimaryID == nil || *merged.Slots[0].PrimaryID != "pd" {
		t.Errorf("Expected slot 1 primary pd, got %v", merged.Slots[0].PrimaryID)
	}
	// Secondaries were out of scope.
	if merged.Slots[2].SecondaryID == nil || *merged.Slots[2].SecondaryID != "pa" {
		t.Errorf("Expected slot 3 secondary pa untouched, got %v", merged.Slots[2].SecondaryID)
	}

	// The operation is idempotent: pa holds no further primary slots.
	change, err = fx.service.BulkReassign(ctx, view.ID, "pa", "pd", ScopePrimary)
	if err != nil {
		t.Fatalf("Second BulkReassign failed: %v", err)
	}
	if len(change.ChangedSlots) != 0 {
		t.Errorf("Expected no changes on repeat, got %d", len(change.ChangedSlots))
	}
}

func TestScheduleService_BulkReassign_Validation(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var vErr *ValidationError
	if _, err := fx.service.BulkReassign(ctx, view.ID, "pa", "pa", ScopeBoth); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for identical people, got %v", err)
	}
	if _, err := fx.service.BulkReassign(ctx, view.ID, "pa", "pb", ReassignScope("everything")); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for bad scope, got %v", err)
	}
	if _, err := fx.service.BulkReassign(ctx, view.ID, "pa", "ghost", ScopeBoth); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for unknown target, got %v", err)
	}

	// Moving pa's primaries to pb collides on slot 1, where pb already
	// holds the secondary role.
	_, err = fx.service.BulkReassign(ctx, view.ID, "pa", "pb", ScopePrimary)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict for colliding reassignment, got %v", err)
	}
}

func TestScheduleService_RemovePerson(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	result, err := fx.service.RemovePerson(ctx, view.ID, "pb")
	if err != nil {
		t.Fatalf("RemovePerson failed: %v", err)
	}
	if len(result.Changed) == 0 {
		t.Fatal("Expected changed slots")
	}
	if len(result.Unassigned) != 0 {
		t.Errorf("Expected no unassigned slots with two remaining members, got %v", result.Unassigned)
	}

	merged, err := fx.service.GetSchedule(ctx, view.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	for _, slot := range merged.Slots {
		if slot.PrimaryID != nil && *slot.PrimaryID == "pb" {
			t.Errorf("Slot %d still has pb as primary", slot.Index)
		}
		if slot.SecondaryID != nil && *slot.SecondaryID == "pb" {
			t.Errorf("Slot %d still has pb as secondary", slot.Index)
		}
		if slot.PrimaryID != nil && slot.SecondaryID != nil && *slot.PrimaryID == *slot.SecondaryID {
			t.Errorf("Slot %d has identical primary and secondary %s", slot.Index, *slot.PrimaryID)
		}
	}

	// Removal is deterministic: running the same removal on an identical
	// schedule produces the same assignments.
	second := newScheduleFixture(t)
	secondView, err := second.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate (second fixture) failed: %v", err)
	}
	if _, err := second.service.RemovePerson(ctx, secondView.ID, "pb"); err != nil {
		t.Fatalf("RemovePerson (second fixture) failed: %v", err)
	}
	secondMerged, err := second.service.GetSchedule(ctx, secondView.ID)
	if err != nil {
		t.Fatalf("GetSchedule (second fixture) failed: %v", err)
	}
	for i := range merged.Slots {
		a, b := merged.Slots[i], secondMerged.Slots[i]
		if !equalPtr(a.PrimaryID, b.PrimaryID) || !equalPtr(a.SecondaryID, b.SecondaryID) {
			t.Errorf("Slot %d differs between identical removals", a.Index)
		}
	}
}

func TestScheduleService_RemovePerson_Unassignable(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	// Two-member rotation: removing one leaves nobody for the secondary
	// role (the sole remaining member already holds primary).
	params := weeklyParams()
	params.PersonIDs = []string{"pa", "pb"}
	view, err := fx.service.Generate(ctx, params)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	result, err := fx.service.RemovePerson(ctx, view.ID, "pb")
	if err != nil {
		t.Fatalf("RemovePerson failed: %v", err)
	}
	if len(result.Unassigned) == 0 {
		t.Fatal("Expected unassigned slots")
	}

	merged, err := fx.service.GetSchedule(ctx, view.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	for _, slot := range merged.Slots {
		if slot.PrimaryID == nil || *slot.PrimaryID != "pa" {
			t.Errorf("Slot %d: expected primary pa, got %v", slot.Index, slot.PrimaryID)
		}
		if slot.SecondaryID != nil {
			t.Errorf("Slot %d: expected secondary cleared, got %v", slot.Index, *slot.SecondaryID)
		}
	}
}

func TestScheduleService_DeleteSchedule(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if err := fx.service.DeleteSchedule(ctx, view.ID); err != nil {
		t.Fatalf("DeleteSchedule failed: %v", err)
	}
	if _, err := fx.service.GetSchedule(ctx, view.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := fx.service.DeleteSchedule(ctx, view.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestScheduleService_OnCallNow(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	if _, err := fx.service.Generate(ctx, weeklyParams()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// The fixture clock sits inside slot 2 (Jan 8-14).
	status, err := fx.service.OnCallNow(ctx, "t1", nil)
	if err != nil {
		t.Fatalf("OnCallNow failed: %v", err)
	}
	if status.Slot.Index != 2 {
		t.Errorf("Expected slot 2, got %d", status.Slot.Index)
	}
	if status.Primary == nil || status.Primary.Name != "Bob" {
		t.Errorf("Expected resolved primary Bob, got %+v", status.Primary)
	}
	if status.Secondary == nil || status.Secondary.Name != "Carol" {
		t.Errorf("Expected resolved secondary Carol, got %+v", status.Secondary)
	}

	// An explicit asOf in another slot.
	asOf := testfixtures.Date(2024, time.January, 1)
	status, err = fx.service.OnCallNow(ctx, "t1", &asOf)
	if err != nil {
		t.Fatalf("OnCallNow with asOf failed: %v", err)
	}
	if status.Slot.Index != 1 {
		t.Errorf("Expected slot 1, got %d", status.Slot.Index)
	}

	// No schedule for the year.
	future := testfixtures.Date(2030, time.June, 1)
	if _, err := fx.service.OnCallNow(ctx, "t1", &future); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing year, got %v", err)
	}
}

func TestScheduleService_Usage(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	entry := testfixtures.NewPTOEntry("pa", testfixtures.Date(2024, time.March, 1), testfixtures.Date(2024, time.March, 3))
	if err := fx.store.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("Failed to seed PTO: %v", err)
	}

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	rows, err := fx.service.Usage(ctx, view.ID)
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 usage rows, got %d", len(rows))
	}

	byPerson := make(map[string]ScheduleUsageRow, len(rows))
	total := 0
	for _, row := range rows {
		byPerson[row.PersonID] = row
		total += row.PrimarySlots
	}
	if total != 52 {
		t.Errorf("Expected primary slots to sum to 52, got %d", total)
	}
	if byPerson["pa"].PTOCount != 1 {
		t.Errorf("Expected pa PTO count 1, got %d", byPerson["pa"].PTOCount)
	}
	if byPerson["pa"].Name != "Alice" {
		t.Errorf("Expected resolved name Alice, got %q", byPerson["pa"].Name)
	}

	// Reassign pa's primaries away and confirm the merged counts move.
	if err := fx.store.CreatePerson(ctx, persistence.Person{ID: "pd", Name: "Dave"}); err != nil {
		t.Fatalf("Failed to seed person: %v", err)
	}
	if _, err := fx.service.BulkReassign(ctx, view.ID, "pa", "pd", ScopePrimary); err != nil {
		t.Fatalf("BulkReassign failed: %v", err)
	}

	rows, err = fx.service.Usage(ctx, view.ID)
	if err != nil {
		t.Fatalf("Usage after reassign failed: %v", err)
	}
	byPerson = make(map[string]ScheduleUsageRow, len(rows))
	for _, row := range rows {
		byPerson[row.PersonID] = row
	}
	if byPerson["pa"].PrimarySlots != 0 {
		t.Errorf("Expected pa primary slots 0 after reassign, got %d", byPerson["pa"].PrimarySlots)
	}
	if byPerson["pd"].PrimarySlots != 18 {
		t.Errorf("Expected pd primary slots 18, got %d", byPerson["pd"].PrimarySlots)
	}
}

func TestScheduleService_Export(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	out, err := fx.service.Export(ctx, view.ID, export.FormatCSV)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	text := string(out)
	if !strings.HasPrefix(text, "slot,start,end,primary_id,primary_name") {
		t.Errorf("Expected CSV header, got:\n%s", text[:min(len(text), 120)])
	}
	if !strings.Contains(text, "1,2024-01-01,2024-01-07,pa,Alice,pb,Bob,") {
		t.Errorf("Expected resolved names in CSV, got:\n%s", text[:min(len(text), 200)])
	}

	if _, err := fx.service.Export(ctx, view.ID, export.Format("pdf")); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for unknown format, got %v", err)
	}
}

func TestScheduleService_LockTimeout(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Hold the schedule's lock so the mutation cannot acquire it.
	release, err := fx.service.locks.Acquire(ctx, view.ID)
	if err != nil {
		t.Fatalf("Failed to take lock: %v", err)
	}
	defer release()

	_, err = fx.service.ApplyOverride(ctx, view.ID, 1, SlotPatch{
		Notes: OptionalString{Set: true, Value: strPtr("late change")},
	})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy while lock is held, got %v", err)
	}
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
