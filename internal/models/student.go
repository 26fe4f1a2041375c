package models

import "time"

// Student represents a learner profile tied to a user account. ProgramID
// stays unset until the student registers for a program.
type Student struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Phone     string    `db:"phone" json:"phone"`
	BirthDate time.Time `db:"birth_date" json:"birth_date"`
	Address   string    `db:"address" json:"address"`
	ProgramID *string   `db:"program_id" json:"program_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail contains student information with account and program context.
type StudentDetail struct {
	Student
	Username    string  `db:"username" json:"username"`
	Email       string  `db:"email" json:"email"`
	ProgramName *string `db:"program_name" json:"program_name,omitempty"`
}

// StudentFilter encapsulates search parameters for listing students.
type StudentFilter struct {
	Search    string
	ProgramID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
