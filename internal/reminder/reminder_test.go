package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/oncall-scheduler/internal/persistence"
	"github.com/example/oncall-scheduler/internal/persistence/memory"
	"github.com/example/oncall-scheduler/internal/testfixtures"
)

type stubNotifier struct {
	messages []Message
	fail     func(Message) bool
}

func (n *stubNotifier) Notify(ctx context.Context, message Message) error {
	if n.fail != nil && n.fail(message) {
		return errors.New("delivery failed")
	}
	n.messages = append(n.messages, message)
	return nil
}

func seedSchedule(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()

	for _, id := range []string{"pa", "pb"} {
		if err := store.CreatePerson(ctx, persistence.Person{ID: id, Name: "Person " + id}); err != nil {
			t.Fatalf("Failed to seed person: %v", err)
		}
	}
	if err := store.CreateTeam(ctx, persistence.Team{ID: "t1", Name: "Platform", MemberIDs: []string{"pa", "pb"}}); err != nil {
		t.Fatalf("Failed to seed team: %v", err)
	}

	schedule := persistence.Schedule{
		ID: "sch1", TeamID: "t1", Year: 2024, RotationDays: 7,
		WeekStartsOn: time.Monday, MemberOrder: []string{"pa", "pb"},
		CreatedAt: testfixtures.ReferenceTime(),
	}
	slots := []persistence.Slot{
		{
			ScheduleID: "sch1", Index: 1,
			Start: testfixtures.Date(2024, time.January, 1), End: testfixtures.Date(2024, time.January, 7),
			PrimaryID: ptr("pa"), SecondaryID: ptr("pb"),
		},
		{
			ScheduleID: "sch1", Index: 2,
			Start: testfixtures.Date(2024, time.January, 8), End: testfixtures.Date(2024, time.January, 14),
			PrimaryID: ptr("pb"), SecondaryID: ptr("pa"),
		},
	}
	if _, err := store.ReplaceSchedule(ctx, schedule, slots); err != nil {
		t.Fatalf("Failed to seed schedule: %v", err)
	}
}

func TestService_Run_DeliversAndMarks(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedSchedule(t, store)

	notifier := &stubNotifier{}
	clock := testfixtures.NewClock(testfixtures.Date(2024, time.January, 7))
	service := NewService(store, notifier, 1, nil, clock.NowFunc())

	// Jan 7 with one lead day covers slot 2 (starts Jan 8); slot 1 started
	// in the past.
	if err := service.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("Expected 1 reminder, got %d", len(notifier.messages))
	}
	message := notifier.messages[0]
	if message.SlotIndex != 2 || message.PrimaryID != "pb" {
		t.Errorf("Unexpected message: %+v", message)
	}

	// The flag makes a second scan a no-op.
	if err := service.Run(context.Background()); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if len(notifier.messages) != 1 {
		t.Errorf("Expected no duplicate reminder, got %d messages", len(notifier.messages))
	}
}

func TestService_Run_FailedDeliveryRetriesNextScan(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedSchedule(t, store)

	failing := true
	notifier := &stubNotifier{fail: func(Message) bool { return failing }}
	clock := testfixtures.NewClock(testfixtures.Date(2024, time.January, 7))
	service := NewService(store, notifier, 1, nil, clock.NowFunc())

	if err := service.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("Expected no deliveries while failing, got %d", len(notifier.messages))
	}

	// The slot stays unflagged, so recovery picks it up.
	failing = false
	if err := service.Run(context.Background()); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if len(notifier.messages) != 1 {
		t.Errorf("Expected 1 delivery after recovery, got %d", len(notifier.messages))
	}
}

func TestService_Run_NilNotifierIsNoop(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedSchedule(t, store)

	clock := testfixtures.NewClock(testfixtures.Date(2024, time.January, 7))
	service := NewService(store, nil, 1, nil, clock.NowFunc())

	if err := service.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Nothing was marked: a later configured scan still sees the slot.
	upcoming, err := store.ListUpcomingSlots(context.Background(),
		testfixtures.Date(2024, time.January, 7), testfixtures.Date(2024, time.January, 8))
	if err != nil {
		t.Fatalf("ListUpcomingSlots failed: %v", err)
	}
	if len(upcoming) != 1 {
		t.Errorf("Expected slot still unreminded, got %d upcoming", len(upcoming))
	}
}

func TestWebhookNotifier_PostsJSON(t *testing.T) {
	t.Parallel()

	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("Invalid JSON payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, server.Client())
	message := Message{
		ScheduleID: "sch1", TeamID: "t1", SlotIndex: 2,
		Start:     testfixtures.Date(2024, time.January, 8),
		End:       testfixtures.Date(2024, time.January, 14),
		PrimaryID: "pb", SecondaryID: "pa",
	}
	if err := notifier.Notify(context.Background(), message); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	text := received["text"]
	for _, want := range []string{"pb", "team t1", "slot 2", "2024-01-08", "secondary pa"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in message %q", want, text)
		}
	}
}

func TestWebhookNotifier_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, server.Client())
	if err := notifier.Notify(context.Background(), Message{}); err == nil {
		t.Error("Expected error for 500 response")
	}
}

func ptr(s string) *string {
	return &s
}
