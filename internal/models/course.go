package models

import "time"

// Semester identifies the half-year a course runs in.
type Semester string

const (
	Semester1 Semester = "Semester 1"
	Semester2 Semester = "Semester 2"
)

// IsValidSemester reports whether s is a recognised semester value.
func IsValidSemester(s Semester) bool {
	return s == Semester1 || s == Semester2
}

// Course is a scheduled unit of teaching owned by a program. Start and end
// times are optional; a course without them can never conflict.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ProgramID string    `db:"program_id" json:"program_id"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	StartTime *string   `db:"start_time" json:"start_time,omitempty"`
	EndTime   *string   `db:"end_time" json:"end_time,omitempty"`
	Semester  Semester  `db:"semester" json:"semester"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Slot returns the course's weekly time slot.
func (c *Course) Slot() TimeSlot {
	return TimeSlot{DayOfWeek: c.DayOfWeek, StartTime: c.StartTime, EndTime: c.EndTime}
}

// CourseDetail enriches Course with its program name.
type CourseDetail struct {
	Course
	ProgramName string `db:"program_name" json:"program_name"`
}

// CourseFilter describes query params for listing courses.
type CourseFilter struct {
	ProgramID string
	DayOfWeek string
	Semester  Semester
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
