package models

// ProgramStudentCount pairs a program with the number of registered students.
type ProgramStudentCount struct {
	ProgramID    string `db:"program_id" json:"program_id"`
	ProgramName  string `db:"program_name" json:"program_name"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// DashboardStats aggregates the admin dashboard figures.
type DashboardStats struct {
	TotalStudents    int                   `json:"total_students"`
	TotalCourses     int                   `json:"total_courses"`
	TotalPrograms    int                   `json:"total_programs"`
	TotalEnrollments int                   `json:"total_enrollments"`
	PendingRequests  int                   `json:"pending_requests"`
	Programs         []ProgramStudentCount `json:"programs"`
}

// StudentDashboard is the student landing payload: profile plus current
// enrollments and unread notifications.
type StudentDashboard struct {
	Student       StudentDetail      `json:"student"`
	Enrollments   []EnrollmentDetail `json:"enrollments"`
	Notifications []Notification     `json:"notifications"`
}
