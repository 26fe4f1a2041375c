package models

import "time"

// CourseDocument is a file attached to a course, visible to students
// enrolled in that course.
type CourseDocument struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	StoredPath  string    `db:"stored_path" json:"-"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`
}
