package rotation

import "time"

// FullyBlockedNote is attached to slots where every roster member was on
// blackout and the nominal candidate had to be assigned regardless.
const FullyBlockedNote = "all members unavailable for this rotation"

// GenerateInput carries the parameters for schedule generation.
//
// MemberOrder is the rotation cycle and must already be in its stable order
// (ascending person id); the generator never reorders it. Blackouts maps
// person id to that person's blackout ranges.
type GenerateInput struct {
	MemberOrder  []string
	Year         int
	RotationDays int
	WeekStartsOn time.Weekday
	Blackouts    map[string][]Range
}

// Assignment is one generated duty slot. Index is 1-based and unique within
// the schedule. Secondary is empty for single-member rosters.
type Assignment struct {
	Index     int
	Range     Range
	Primary   string
	Secondary string
	Note      string
}

// GenerateResult carries the generated assignments plus the indices of slots
// where blackout skipping was exhausted. Such slots are still assigned;
// generation degrades instead of failing.
type GenerateResult struct {
	Assignments  []Assignment
	FullyBlocked []int
}

// Generate assigns primary and secondary members to every rotation block of
// the year using round-robin order with blackout-aware skipping.
//
// The generator enforces the following semantics:
//   - Slot i's nominal primary is MemberOrder[i mod N]; when blocked, the
//     cycle is scanned forward (wrapping) for the first unblocked member.
//   - The nominal secondary is MemberOrder[(i+1) mod N], scanned forward the
//     same way, additionally skipping the chosen primary.
//   - When every member is blocked for a slot the nominal candidate is kept,
//     the slot is annotated, and its index reported in FullyBlocked.
//   - Identical input always produces identical output.
func Generate(input GenerateInput) (GenerateResult, error) {
	if len(input.MemberOrder) == 0 {
		return GenerateResult{}, ErrEmptyRoster
	}

	ranges, err := Partition(input.Year, input.RotationDays, input.WeekStartsOn)
	if err != nil {
		return GenerateResult{}, err
	}

	order := input.MemberOrder
	n := len(order)

	result := GenerateResult{Assignments: make([]Assignment, 0, len(ranges))}
	for i, slot := range ranges {
		assignment := Assignment{Index: i + 1, Range: slot}

		base := i % n
		primary, ok := scan(order, base, slot, input.Blackouts, "")
		if !ok {
			primary = order[base]
			assignment.Note = FullyBlockedNote
			result.FullyBlocked = append(result.FullyBlocked, assignment.Index)
		}
		assignment.Primary = primary

		if n > 1 {
			secBase := (i + 1) % n
			secondary, ok := scan(order, secBase, slot, input.Blackouts, primary)
			if !ok {
				// Degraded pick: next member in cycle that is not the
				// primary, blackout or not.
				secondary = nextOther(order, secBase, primary)
			}
			assignment.Secondary = secondary
		}

		result.Assignments = append(result.Assignments, assignment)
	}

	return result, nil
}

// Backfill picks a replacement assignee for a single slot after a member has
// been removed. order is the remaining rotation cycle, slotIndex the 1-based
// slot number, and exclude the member already holding the slot's other role.
// The nominal candidate position is derived from the slot index exactly as in
// Generate, so backfill is deterministic. Returns false when no remaining
// member is eligible.
func Backfill(order []string, slotIndex int, slot Range, blackouts map[string][]Range, exclude string) (string, bool) {
	if len(order) == 0 || slotIndex < 1 {
		return "", false
	}
	base := (slotIndex - 1) % len(order)
	return scan(order, base, slot, blackouts, exclude)
}

// scan walks the cycle from base looking for the first member that is neither
// excluded nor blocked for the slot.
func scan(order []string, base int, slot Range, blackouts map[string][]Range, exclude string) (string, bool) {
	n := len(order)
	for offset := 0; offset < n; offset++ {
		candidate := order[(base+offset)%n]
		if candidate == exclude {
			continue
		}
		if Blocked(candidate, slot, blackouts) {
			continue
		}
		return candidate, true
	}
	return "", false
}

func nextOther(order []string, base int, exclude string) string {
	n := len(order)
	for offset := 0; offset < n; offset++ {
		candidate := order[(base+offset)%n]
		if candidate != exclude {
			return candidate
		}
	}
	return ""
}
