package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/school-portal-api/internal/models"
)

// ErrRequestAlreadyDecided is returned when a request was consumed by a
// concurrent decision before this one could act on it.
var ErrRequestAlreadyDecided = errors.New("student request already decided")

// RequestRepository handles persistence of pending student account requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a pending request.
func (r *RequestRepository) Create(ctx context.Context, request *models.StudentRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	request.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO student_requests (id, first_name, last_name, email, phone, birth_date, address, created_at)
        VALUES (:id, :first_name, :last_name, :email, :phone, :birth_date, :address, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create student request: %w", err)
	}
	return nil
}

// FindByID returns a single pending request.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.StudentRequest, error) {
	const query = `SELECT id, first_name, last_name, email, phone, birth_date, address, created_at
        FROM student_requests WHERE id = $1`
	var request models.StudentRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns all pending requests oldest first.
func (r *RequestRepository) List(ctx context.Context) ([]models.StudentRequest, error) {
	const query = `SELECT id, first_name, last_name, email, phone, birth_date, address, created_at
        FROM student_requests ORDER BY created_at`
	var requests []models.StudentRequest
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list student requests: %w", err)
	}
	return requests, nil
}

// CountPending returns the number of undecided requests.
func (r *RequestRepository) CountPending(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM student_requests`); err != nil {
		return 0, fmt.Errorf("count student requests: %w", err)
	}
	return total, nil
}

// Delete removes a pending request. Returns false when it was already gone,
// which lets callers treat a concurrent double decision as not found.
func (r *RequestRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM student_requests WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete student request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete student request: %w", err)
	}
	return affected == 1, nil
}

// ProvisionApproved converts a pending request into an account in one
// transaction: create the user, create the student profile, write a
// welcome notification, and consume the request. The request delete runs
// first so two concurrent approvals of the same request cannot both
// provision; the loser sees zero rows and the whole transaction rolls back.
func (r *RequestRepository) ProvisionApproved(ctx context.Context, requestID string, user *models.User, student *models.Student, notification *models.Notification) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin provisioning: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, `DELETE FROM student_requests WHERE id = $1`, requestID)
	if err != nil {
		return fmt.Errorf("consume student request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume student request: %w", err)
	}
	if affected == 0 {
		return ErrRequestAlreadyDecided
	}

	userRepo := NewUserRepository(r.db)
	if err := userRepo.CreateTx(ctx, tx, user); err != nil {
		return err
	}
	student.UserID = user.ID
	studentRepo := NewStudentRepository(r.db)
	if err := studentRepo.CreateTx(ctx, tx, student); err != nil {
		return err
	}

	if notification != nil {
		notification.UserID = user.ID
		if err := createNotificationTx(ctx, tx, notification); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit provisioning: %w", err)
	}
	return nil
}
