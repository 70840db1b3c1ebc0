package persistence

import "time"

// Person represents a roster member in the on-call domain.
type Person struct {
	ID        string
	Name      string
	Email     *string
	TimeZone  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Team groups people that share a rotation.
type Team struct {
	ID          string
	Name        string
	Description *string
	MemberIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PTOEntry is an inclusive blackout window for one person.
type PTOEntry struct {
	ID       string
	PersonID string
	Start    time.Time
	End      time.Time
	Note     *string
}

// Schedule is the definition of one generated rotation for a (team, year)
// pair. MemberOrder is the sorted roster snapshot taken at generation time;
// later team membership changes never alter it.
type Schedule struct {
	ID           string
	TeamID       string
	Year         int
	RotationDays int
	WeekStartsOn time.Weekday
	MemberOrder  []string
	CreatedAt    time.Time
}

// Slot is one generated duty block. Index is 1-based and unique within the
// schedule. Primary is set on every freshly generated slot; it becomes nil
// only when a person removal finds no eligible replacement.
type Slot struct {
	ScheduleID  string
	Index       int
	Start       time.Time
	End         time.Time
	PrimaryID   *string
	SecondaryID *string
	Notes       *string
	Reminded    bool
}

// OptionalRef is a person reference override field. Set=false means the
// generated value stays effective; Set=true with a nil Value clears the role.
type OptionalRef struct {
	Set   bool
	Value *string
}

// OptionalText is a free-text override field with the same presence semantics
// as OptionalRef.
type OptionalText struct {
	Set   bool
	Value *string
}

// Override is a sparse manual patch for one slot. Each field records both
// whether it was set and what it was set to, so clearing a field is distinct
// from leaving it untouched.
type Override struct {
	ScheduleID string
	SlotIndex  int
	Primary    OptionalRef
	Secondary  OptionalRef
	Notes      OptionalText
	UpdatedAt  time.Time
}

// AssignmentCounts carries the effective (override-merged) role counts for a
// person across all schedules.
type AssignmentCounts struct {
	Primary   int
	Secondary int
}

// UpcomingSlot pairs a slot with its schedule for reminder scans.
type UpcomingSlot struct {
	Schedule Schedule
	Slot     Slot
}
