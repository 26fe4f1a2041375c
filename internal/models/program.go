package models

import "time"

// Program is a named curriculum track owning a set of courses.
type Program struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProgramDetail enriches Program with aggregate counts.
type ProgramDetail struct {
	Program
	StudentCount int `db:"student_count" json:"student_count"`
	CourseCount  int `db:"course_count" json:"course_count"`
}

// RegistrationResult summarises a program registration with auto-enrollment.
// Courses whose slot conflicted with an earlier enrollment are skipped, not
// failed; the registration as a whole always succeeds.
type RegistrationResult struct {
	ProgramID      string   `json:"program_id"`
	ProgramName    string   `json:"program_name"`
	EnrolledCount  int      `json:"enrolled_count"`
	SkippedCourses []string `json:"skipped_courses,omitempty"`
}
