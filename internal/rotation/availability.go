package rotation

// Blocked reports whether the person has any blackout range intersecting the
// slot. Overlap is inclusive on both ends: a blackout sharing even a single
// day with the slot blocks the person.
func Blocked(personID string, slot Range, blackouts map[string][]Range) bool {
	for _, blackout := range blackouts[personID] {
		if blackout.Overlaps(slot) {
			return true
		}
	}
	return false
}
