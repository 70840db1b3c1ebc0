package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/oncall-scheduler/internal/testfixtures"
)

func TestDirectoryService_CreatePerson(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.directory.CreatePerson(ctx, PersonInput{Name: "  Dana  ", Email: strPtr("dana@example.com")})
	if err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}
	if view.Name != "Dana" {
		t.Errorf("Expected trimmed name 'Dana', got %q", view.Name)
	}
	if view.ID == "" {
		t.Error("Expected generated id")
	}

	got, err := fx.directory.GetPerson(ctx, view.ID)
	if err != nil {
		t.Fatalf("GetPerson failed: %v", err)
	}
	if got.Email == nil || *got.Email != "dana@example.com" {
		t.Errorf("Expected email persisted, got %v", got.Email)
	}
}

func TestDirectoryService_CreatePerson_Validation(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	var vErr *ValidationError
	if _, err := fx.directory.CreatePerson(ctx, PersonInput{Name: "   "}); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for blank name, got %v", err)
	}
	if _, err := fx.directory.CreatePerson(ctx, PersonInput{Name: "Dana", Email: strPtr("not-an-email")}); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for bad email, got %v", err)
	}
}

func TestDirectoryService_UpdatePerson(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.directory.UpdatePerson(ctx, "pa", PersonInput{Name: "Alice Cooper"})
	if err != nil {
		t.Fatalf("UpdatePerson failed: %v", err)
	}
	if view.Name != "Alice Cooper" {
		t.Errorf("Expected updated name, got %q", view.Name)
	}

	if _, err := fx.directory.UpdatePerson(ctx, "ghost", PersonInput{Name: "X"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDirectoryService_DeletePerson_UsageGate(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	// pa is referenced by a PTO entry: delete must be refused.
	entry := testfixtures.NewPTOEntry("pa", testfixtures.Date(2024, time.February, 1), testfixtures.Date(2024, time.February, 2))
	if err := fx.store.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("Failed to seed PTO: %v", err)
	}
	if err := fx.directory.DeletePerson(ctx, "pa"); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict for person with PTO, got %v", err)
	}

	// After the entry goes away pa is unreferenced and deletable.
	if err := fx.store.DeleteEntry(ctx, entry.ID); err != nil {
		t.Fatalf("Failed to delete PTO: %v", err)
	}
	// Membership alone does not block deletion.
	if err := fx.directory.DeletePerson(ctx, "pa"); err != nil {
		t.Fatalf("DeletePerson failed: %v", err)
	}
	if _, err := fx.directory.GetPerson(ctx, "pa"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// The membership list no longer carries the removed person.
	team, err := fx.directory.GetTeam(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTeam failed: %v", err)
	}
	for _, id := range team.MemberIDs {
		if id == "pa" {
			t.Error("Expected pa removed from team membership")
		}
	}
}

func TestDirectoryService_DeletePerson_AssignmentGate(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	if _, err := fx.service.Generate(ctx, weeklyParams()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	err := fx.directory.DeletePerson(ctx, "pb")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict for assigned person, got %v", err)
	}
}

func TestDirectoryService_Usage_ReflectsOverrides(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	before, err := fx.directory.Usage(ctx, "pa")
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	if before.PrimarySlots != 18 {
		t.Errorf("Expected 18 primary slots, got %d", before.PrimarySlots)
	}

	// Hand slot 1 to pc: pa's effective primary count drops by one.
	if _, err := fx.service.ApplyOverride(ctx, view.ID, 1, SlotPatch{
		Primary: OptionalString{Set: true, Value: strPtr("pc")},
	}); err != nil {
		t.Fatalf("ApplyOverride failed: %v", err)
	}

	after, err := fx.directory.Usage(ctx, "pa")
	if err != nil {
		t.Fatalf("Usage after override failed: %v", err)
	}
	if after.PrimarySlots != before.PrimarySlots-1 {
		t.Errorf("Expected primary slots %d, got %d", before.PrimarySlots-1, after.PrimarySlots)
	}

	if _, err := fx.directory.Usage(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown person, got %v", err)
	}
}

func TestDirectoryService_CreateTeam_Validation(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	var vErr *ValidationError
	if _, err := fx.directory.CreateTeam(ctx, TeamInput{Name: ""}); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for blank name, got %v", err)
	}
	if _, err := fx.directory.CreateTeam(ctx, TeamInput{Name: "Ops", MemberIDs: []string{"pa", "pa"}}); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for duplicate members, got %v", err)
	}
	if _, err := fx.directory.CreateTeam(ctx, TeamInput{Name: "Ops", MemberIDs: []string{"ghost"}}); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for unknown member, got %v", err)
	}
	// Duplicate team name surfaces as a conflict.
	if _, err := fx.directory.CreateTeam(ctx, TeamInput{Name: "Platform"}); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate team name, got %v", err)
	}
}

func TestDirectoryService_UpdateMembers(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	team, err := fx.directory.UpdateMembers(ctx, "t1", []string{"pc"})
	if err != nil {
		t.Fatalf("UpdateMembers failed: %v", err)
	}
	if len(team.MemberIDs) != 1 || team.MemberIDs[0] != "pc" {
		t.Errorf("Expected members [pc], got %v", team.MemberIDs)
	}

	if _, err := fx.directory.UpdateMembers(ctx, "ghost", []string{"pa"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown team, got %v", err)
	}
}

func TestDirectoryService_UpdateMembers_KeepsScheduleOrder(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := fx.directory.UpdateMembers(ctx, "t1", []string{"pa"}); err != nil {
		t.Fatalf("UpdateMembers failed: %v", err)
	}

	// The generation-time member order snapshot is untouched.
	got, err := fx.service.GetSchedule(ctx, view.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if len(got.MemberOrder) != 3 {
		t.Errorf("Expected member order snapshot [pa pb pc], got %v", got.MemberOrder)
	}
}

func TestDirectoryService_DeleteTeam_Cascades(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.service.Generate(ctx, weeklyParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if err := fx.directory.DeleteTeam(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTeam failed: %v", err)
	}
	if _, err := fx.service.GetSchedule(ctx, view.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected schedule removed with team, got %v", err)
	}
	// People are never cascaded.
	if _, err := fx.directory.GetPerson(ctx, "pa"); err != nil {
		t.Errorf("Expected person to survive, got %v", err)
	}
}

func TestDirectoryService_PTO(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	view, err := fx.directory.CreatePTO(ctx, PTOInput{
		PersonID: "pa",
		Start:    testfixtures.Date(2024, time.April, 1),
		End:      testfixtures.Date(2024, time.April, 5),
		Note:     strPtr("spring break"),
	})
	if err != nil {
		t.Fatalf("CreatePTO failed: %v", err)
	}

	entries, err := fx.directory.ListPTO(ctx, "pa")
	if err != nil {
		t.Fatalf("ListPTO failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != view.ID {
		t.Fatalf("Expected the created entry, got %v", entries)
	}

	if err := fx.directory.DeletePTO(ctx, view.ID); err != nil {
		t.Fatalf("DeletePTO failed: %v", err)
	}
	if err := fx.directory.DeletePTO(ctx, view.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDirectoryService_CreatePTO_Validation(t *testing.T) {
	t.Parallel()

	fx := newScheduleFixture(t)
	ctx := context.Background()

	var vErr *ValidationError

	_, err := fx.directory.CreatePTO(ctx, PTOInput{
		PersonID: "pa",
		Start:    testfixtures.Date(2024, time.April, 5),
		End:      testfixtures.Date(2024, time.April, 1),
	})
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for reversed range, got %v", err)
	}

	_, err = fx.directory.CreatePTO(ctx, PTOInput{
		PersonID: "ghost",
		Start:    testfixtures.Date(2024, time.April, 1),
		End:      testfixtures.Date(2024, time.April, 5),
	})
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for unknown person, got %v", err)
	}
}
