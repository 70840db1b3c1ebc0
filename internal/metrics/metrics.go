package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	schedulesGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oncall",
			Name:      "schedules_generated_total",
			Help:      "Count of schedules generated, including regenerations.",
		},
	)

	overridesApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oncall",
			Name:      "overrides_applied_total",
			Help:      "Count of single-slot overrides applied.",
		},
	)

	bulkReassignSlots = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oncall",
			Name:      "bulk_reassign_slots_total",
			Help:      "Count of slots changed by bulk reassignments.",
		},
	)

	personRemovals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oncall",
			Name:      "person_removals_total",
			Help:      "Count of person removals from schedules.",
		},
	)

	exports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oncall",
			Name:      "exports_total",
			Help:      "Count of schedule exports by format.",
		},
		[]string{"format"},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oncall",
			Name:      "reminders_sent_total",
			Help:      "Count of reminder notifications delivered.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			schedulesGenerated,
			overridesApplied,
			bulkReassignSlots,
			personRemovals,
			exports,
			remindersSent,
		)
	})
}

func IncSchedulesGenerated() {
	schedulesGenerated.Inc()
}

func IncOverridesApplied() {
	overridesApplied.Inc()
}

func AddBulkReassignSlots(count int) {
	bulkReassignSlots.Add(float64(count))
}

func IncPersonRemovals() {
	personRemovals.Inc()
}

func IncExports(format string) {
	exports.WithLabelValues(format).Inc()
}

func AddRemindersSent(count int) {
	remindersSent.Add(float64(count))
}
