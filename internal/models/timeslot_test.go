package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func slot(day, start, end string) TimeSlot {
	return TimeSlot{DayOfWeek: day, StartTime: &start, EndTime: &end}
}

func TestTimeSlotOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b TimeSlot
		want bool
	}{
		{"partial overlap", slot(Monday, "09:00", "10:30"), slot(Monday, "10:00", "11:00"), true},
		{"containment", slot(Monday, "09:00", "12:00"), slot(Monday, "10:00", "11:00"), true},
		{"identical interval", slot(Monday, "09:00", "10:00"), slot(Monday, "09:00", "10:00"), true},
		{"touching endpoints", slot(Monday, "09:00", "10:00"), slot(Monday, "10:00", "11:00"), false},
		{"disjoint same day", slot(Monday, "09:00", "10:00"), slot(Monday, "13:00", "14:00"), false},
		{"same interval different day", slot(Monday, "09:00", "10:00"), slot(Tuesday, "09:00", "10:00"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			// overlap is symmetric
			assert.Equal(t, tc.want, tc.b.Overlaps(tc.a))
		})
	}
}

func TestTimeSlotSelfOverlap(t *testing.T) {
	s := slot(Friday, "08:00", "09:30")
	assert.True(t, s.Overlaps(s))
}

func TestTimeSlotMissingTimesNeverConflict(t *testing.T) {
	timed := slot(Monday, "09:00", "10:00")
	untimed := TimeSlot{DayOfWeek: Monday}
	assert.False(t, untimed.Overlaps(timed))
	assert.False(t, timed.Overlaps(untimed))
	assert.False(t, untimed.Overlaps(untimed))

	start := "09:00"
	halfOpen := TimeSlot{DayOfWeek: Monday, StartTime: &start}
	assert.False(t, halfOpen.Overlaps(timed))
}

func TestIsValidTimeOfDay(t *testing.T) {
	assert.True(t, IsValidTimeOfDay("00:00"))
	assert.True(t, IsValidTimeOfDay("23:59"))
	assert.True(t, IsValidTimeOfDay("09:05"))
	assert.False(t, IsValidTimeOfDay("24:00"))
	assert.False(t, IsValidTimeOfDay("9:00"))
	assert.False(t, IsValidTimeOfDay("09:60"))
	assert.False(t, IsValidTimeOfDay("0900"))
}

func TestIsValidDay(t *testing.T) {
	for _, d := range DaysOfWeek {
		assert.True(t, IsValidDay(d))
	}
	assert.False(t, IsValidDay("monday"))
	assert.False(t, IsValidDay(""))
}
