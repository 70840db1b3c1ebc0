// Package reminder scans for upcoming duty slots and notifies a webhook.
// Delivered slots are flagged so every reminder goes out exactly once.
package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/oncall-scheduler/internal/metrics"
	"github.com/example/oncall-scheduler/internal/persistence"
	"github.com/example/oncall-scheduler/internal/rotation"
)

// DefaultLeadDays is how far ahead of a slot's start the reminder fires.
const DefaultLeadDays = 1

// DefaultCronSpec runs the scan every morning at 08:00.
const DefaultCronSpec = "0 8 * * *"

// SlotSource provides unreminded upcoming slots and records deliveries.
type SlotSource interface {
	ListUpcomingSlots(ctx context.Context, from, to time.Time) ([]persistence.UpcomingSlot, error)
	MarkSlotsReminded(ctx context.Context, scheduleID string, indices []int) error
}

// Notifier delivers one reminder message.
type Notifier interface {
	Notify(ctx context.Context, message Message) error
}

// Message is the reminder payload for one slot.
type Message struct {
	ScheduleID  string    `json:"schedule_id"`
	TeamID      string    `json:"team_id"`
	SlotIndex   int       `json:"slot_index"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	PrimaryID   string    `json:"primary_id,omitempty"`
	SecondaryID string    `json:"secondary_id,omitempty"`
}

// WebhookNotifier posts reminders to a Slack-compatible webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for the given webhook URL.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, client: client}
}

// Notify posts the reminder as a JSON text payload.
func (n *WebhookNotifier) Notify(ctx context.Context, message Message) error {
	text := fmt.Sprintf("On-call reminder: %s is primary for team %s, slot %d (%s to %s)",
		message.PrimaryID,
		message.TeamID,
		message.SlotIndex,
		message.Start.Format("2006-01-02"),
		message.End.Format("2006-01-02"),
	)
	if message.SecondaryID != "" {
		text += fmt.Sprintf("; secondary %s", message.SecondaryID)
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to encode reminder payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Service runs the reminder scan on a cron schedule.
type Service struct {
	slots    SlotSource
	notifier Notifier
	leadDays int
	logger   *slog.Logger
	now      func() time.Time
	cron     *cron.Cron
}

// NewService wires a reminder scanner. A nil notifier disables delivery;
// Run becomes a no-op.
func NewService(slots SlotSource, notifier Notifier, leadDays int, logger *slog.Logger, now func() time.Time) *Service {
	if leadDays < 0 {
		leadDays = DefaultLeadDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		slots:    slots,
		notifier: notifier,
		leadDays: leadDays,
		logger:   logger,
		now:      now,
	}
}

// Start schedules Run on the given cron spec until Stop is called.
func (s *Service) Start(ctx context.Context, spec string) error {
	if spec == "" {
		spec = DefaultCronSpec
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := s.Run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "reminder scan failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder cron spec %q: %w", spec, err)
	}

	c.Start()
	s.cron = c
	s.logger.InfoContext(ctx, "reminder job started", "spec", spec, "lead_days", s.leadDays)
	return nil
}

// Stop halts the cron schedule and waits for a running scan to finish.
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Run performs one scan: every unreminded slot starting within the lead
// window is delivered and flagged. A failed delivery leaves the flag unset so
// the next scan retries it.
func (s *Service) Run(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}

	today := s.now().UTC()
	from := rotation.Date(today.Year(), today.Month(), today.Day())
	to := from.AddDate(0, 0, s.leadDays)

	upcoming, err := s.slots.ListUpcomingSlots(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to list upcoming slots: %w", err)
	}

	delivered := make(map[string][]int)
	sent := 0
	for _, item := range upcoming {
		message := Message{
			ScheduleID: item.Schedule.ID,
			TeamID:     item.Schedule.TeamID,
			SlotIndex:  item.Slot.Index,
			Start:      item.Slot.Start,
			End:        item.Slot.End,
		}
		if item.Slot.PrimaryID != nil {
			message.PrimaryID = *item.Slot.PrimaryID
		}
		if item.Slot.SecondaryID != nil {
			message.SecondaryID = *item.Slot.SecondaryID
		}

		if err := s.notifier.Notify(ctx, message); err != nil {
			s.logger.ErrorContext(ctx, "reminder delivery failed",
				"schedule_id", message.ScheduleID,
				"slot_index", message.SlotIndex,
				"error", err,
			)
			continue
		}

		delivered[message.ScheduleID] = append(delivered[message.ScheduleID], message.SlotIndex)
		sent++
	}

	for scheduleID, indices := range delivered {
		if err := s.slots.MarkSlotsReminded(ctx, scheduleID, indices); err != nil {
			return fmt.Errorf("failed to mark slots reminded for %s: %w", scheduleID, err)
		}
	}

	if sent > 0 {
		metrics.AddRemindersSent(sent)
		s.logger.InfoContext(ctx, "reminders delivered", "count", sent)
	}
	return nil
}
