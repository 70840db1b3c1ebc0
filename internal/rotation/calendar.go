package rotation

import (
	"errors"
	"time"
)

// ErrInvalidRotation indicates the rotation length is not positive.
var ErrInvalidRotation = errors.New("rotation: rotation length must be positive")

// ErrInvalidWeekday indicates the week start code is outside Sunday..Saturday.
var ErrInvalidWeekday = errors.New("rotation: week start must be a valid weekday")

// ErrEmptyRoster indicates no members were supplied for generation.
var ErrEmptyRoster = errors.New("rotation: at least one member is required")

// Date returns the civil date at UTC midnight. All engine dates are civil
// dates; clock components never participate in comparisons.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Range is an inclusive span of civil dates.
type Range struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two inclusive ranges share at least one day.
func (r Range) Overlaps(other Range) bool {
	return !r.Start.After(other.End) && !r.End.Before(other.Start)
}

// Contains reports whether the given date falls within the inclusive range.
func (r Range) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Anchor computes the first date on or after January 1 of year whose weekday
// matches weekStartsOn.
func Anchor(year int, weekStartsOn time.Weekday) time.Time {
	d := Date(year, time.January, 1)
	for d.Weekday() != weekStartsOn {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// Partition splits a calendar year into consecutive rotation blocks.
//
// The first block starts at the anchor (first weekStartsOn on/after Jan 1) and
// every block spans exactly rotationDays days. Blocks that would not fit
// entirely within the year are not emitted; the schedule covers only complete
// rotation periods.
func Partition(year, rotationDays int, weekStartsOn time.Weekday) ([]Range, error) {
	if rotationDays <= 0 {
		return nil, ErrInvalidRotation
	}
	if weekStartsOn < time.Sunday || weekStartsOn > time.Saturday {
		return nil, ErrInvalidWeekday
	}

	endOfYear := Date(year, time.December, 31)
	start := Anchor(year, weekStartsOn)

	var ranges []Range
	for {
		end := start.AddDate(0, 0, rotationDays-1)
		if end.After(endOfYear) {
			break
		}
		ranges = append(ranges, Range{Start: start, End: end})
		start = end.AddDate(0, 0, 1)
	}
	return ranges, nil
}
