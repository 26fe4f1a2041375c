package models

import "regexp"

// Days of the week accepted for course schedules.
const (
	Monday    = "Monday"
	Tuesday   = "Tuesday"
	Wednesday = "Wednesday"
	Thursday  = "Thursday"
	Friday    = "Friday"
	Saturday  = "Saturday"
	Sunday    = "Sunday"
)

// DaysOfWeek lists valid day names in week order.
var DaysOfWeek = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// IsValidDay reports whether name is a recognised day of the week.
func IsValidDay(name string) bool {
	for _, d := range DaysOfWeek {
		if d == name {
			return true
		}
	}
	return false
}

// Times of day are zero-padded "HH:MM" strings. The fixed width makes
// lexicographic comparison agree with chronological order.
var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// IsValidTimeOfDay reports whether raw is a well-formed HH:MM time.
func IsValidTimeOfDay(raw string) bool {
	return timeOfDayPattern.MatchString(raw)
}

// TimeSlot is a weekly half-open interval [StartTime, EndTime) on a given
// day. A slot missing either boundary occupies no time at all.
type TimeSlot struct {
	DayOfWeek string  `json:"day_of_week"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
}

// Overlaps reports whether two slots share any time on the same day.
// Touching boundaries (one ends exactly when the other starts) do not
// overlap. Slots without both times never conflict with anything.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	if s.DayOfWeek != other.DayOfWeek {
		return false
	}
	if s.StartTime == nil || s.EndTime == nil || other.StartTime == nil || other.EndTime == nil {
		return false
	}
	return *s.StartTime < *other.EndTime && *other.StartTime < *s.EndTime
}
