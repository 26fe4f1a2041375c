package models

import "time"

// StudentRequest is a pending application for a student account. It is
// consumed exactly once: approval converts it into a user plus student
// profile, rejection deletes it. It never exists alongside the account it
// produces.
type StudentRequest struct {
	ID        string    `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	BirthDate time.Time `db:"birth_date" json:"birth_date"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StudentRequestPreview pairs a pending request with the username its
// approval would generate, so staff can spot collisions up front.
type StudentRequestPreview struct {
	StudentRequest
	PreviewUsername string `json:"preview_username"`
	IsDuplicate     bool   `json:"is_duplicate"`
}

// RequestDecision describes the staff decision on a pending request.
type RequestDecision string

const (
	DecisionApprove RequestDecision = "approve"
	DecisionReject  RequestDecision = "reject"
)

// ProvisionedAccount is the approval outcome returned to the staff caller.
// Password is the only place the generated password ever appears; it is
// never persisted in plaintext and never included in notifications.
type ProvisionedAccount struct {
	UserID    string `json:"user_id"`
	StudentID string `json:"student_id"`
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
}
