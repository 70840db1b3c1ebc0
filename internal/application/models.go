package application

import "time"

// PersonInput carries the fields accepted when creating or updating a person.
type PersonInput struct {
	Name     string
	Email    *string
	TimeZone *string
}

// PersonView is the person record exposed to consumers.
type PersonView struct {
	ID        string
	Name      string
	Email     *string
	TimeZone  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TeamInput carries the fields accepted when creating a team.
type TeamInput struct {
	Name        string
	Description *string
	MemberIDs   []string
}

// TeamView is the team record exposed to consumers.
type TeamView struct {
	ID          string
	Name        string
	Description *string
	MemberIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PTOInput carries the fields accepted when recording a blackout window.
// Start and End are inclusive civil dates.
type PTOInput struct {
	PersonID string
	Start    time.Time
	End      time.Time
	Note     *string
}

// PTOView is the blackout entry exposed to consumers.
type PTOView struct {
	ID       string
	PersonID string
	Start    time.Time
	End      time.Time
	Note     *string
}

// PersonUsage reports everything that references a person. A person with any
// non-zero count cannot be deleted.
type PersonUsage struct {
	PTOCount       int
	PrimarySlots   int
	SecondarySlots int
}

// Total is the sum of every reference held by the person.
func (u PersonUsage) Total() int {
	return u.PTOCount + u.PrimarySlots + u.SecondarySlots
}

// GenerateScheduleParams describes one schedule generation request. PersonIDs
// optionally restricts the rotation to a subset of the team's members; empty
// means the whole team.
type GenerateScheduleParams struct {
	TeamID       string
	Year         int
	RotationDays int
	WeekStartsOn time.Weekday
	PersonIDs    []string
}

// SlotView is one duty block with overrides already applied. Overridden
// reports whether any override touches the slot.
type SlotView struct {
	Index       int
	Start       time.Time
	End         time.Time
	PrimaryID   *string
	SecondaryID *string
	Notes       *string
	Overridden  bool
}

// ScheduleView is the merged schedule exposed to consumers.
// InvalidatedOverrides and FullyBlockedSlots are populated only by Generate.
type ScheduleView struct {
	ID                   string
	TeamID               string
	Year                 int
	RotationDays         int
	WeekStartsOn         time.Weekday
	MemberOrder          []string
	CreatedAt            time.Time
	Slots                []SlotView
	InvalidatedOverrides int
	FullyBlockedSlots    []int
}

// OptionalString is a patch field. Set=false leaves the current value alone;
// Set=true with a nil Value clears it.
type OptionalString struct {
	Set   bool
	Value *string
}

// SlotPatch carries a sparse manual change for one slot.
type SlotPatch struct {
	Primary   OptionalString
	Secondary OptionalString
	Notes     OptionalString
}

// ReassignScope selects which roles a bulk reassignment touches.
type ReassignScope string

const (
	ScopePrimary   ReassignScope = "primary"
	ScopeSecondary ReassignScope = "secondary"
	ScopeBoth      ReassignScope = "both"
)

// BulkChange reports the slots a bulk reassignment touched.
type BulkChange struct {
	ChangedSlots []int
}

// RemovalResult reports the outcome of removing a person from a schedule.
// Changed lists every slot whose assignment moved; Unassigned lists the
// subset where no eligible replacement existed and a role was left empty.
type RemovalResult struct {
	Changed    []int
	Unassigned []int
}

// OnCallStatus is the current duty slot with its people resolved.
type OnCallStatus struct {
	ScheduleID string
	TeamID     string
	Year       int
	Slot       SlotView
	Primary    *PersonView
	Secondary  *PersonView
}

// ScheduleUsageRow is one person's share of a single schedule.
type ScheduleUsageRow struct {
	PersonID       string
	Name           string
	PTOCount       int
	PrimarySlots   int
	SecondarySlots int
}
