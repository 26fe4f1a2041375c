package models

import "time"

// Grade stores a free-text grade for a (student, course) pair. The pair is
// unique; a second grade for the same pair is rejected.
type Grade struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Grade     string    `db:"grade" json:"grade"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GradeDetail enriches Grade with course context.
type GradeDetail struct {
	Grade
	CourseName string   `db:"course_name" json:"course_name"`
	Semester   Semester `db:"semester" json:"semester"`
}
