package models

import "time"

// Enrollment records that a student is registered in a course. The slot is
// denormalized from the course at creation time so later course edits do
// not silently rewrite a student's committed timetable.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	DayOfWeek  string    `db:"day_of_week" json:"day_of_week"`
	StartTime  *string   `db:"start_time" json:"start_time,omitempty"`
	EndTime    *string   `db:"end_time" json:"end_time,omitempty"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// Slot returns the enrollment's committed time slot.
func (e *Enrollment) Slot() TimeSlot {
	return TimeSlot{DayOfWeek: e.DayOfWeek, StartTime: e.StartTime, EndTime: e.EndTime}
}

// EnrollmentDetail enriches Enrollment with course and program info.
type EnrollmentDetail struct {
	Enrollment
	CourseName  string   `db:"course_name" json:"course_name"`
	ProgramName string   `db:"program_name" json:"program_name"`
	Semester    Semester `db:"semester" json:"semester"`
}

// ScheduleConflict describes the existing enrollment that blocks admission.
type ScheduleConflict struct {
	CourseID   string  `db:"course_id" json:"course_id"`
	CourseName string  `db:"course_name" json:"course_name"`
	DayOfWeek  string  `db:"day_of_week" json:"day_of_week"`
	StartTime  *string `db:"start_time" json:"start_time,omitempty"`
	EndTime    *string `db:"end_time" json:"end_time,omitempty"`
}

// ScheduleConflictError is returned when a requested course overlaps an
// existing enrollment on the student's timetable.
type ScheduleConflictError struct {
	Message  string           `json:"message"`
	Conflict ScheduleConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
