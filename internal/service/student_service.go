package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushq/school-portal-api/internal/models"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error
}

type studentUserRepository interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type studentNotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// CreateStudentInput is the staff payload for creating a student directly,
// with explicit credentials instead of generated ones.
type CreateStudentInput struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Password  string `json:"password" validate:"required,min=6"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Address   string `json:"address" validate:"required"`
}

// StudentService manages student profiles.
type StudentService struct {
	db            *sqlx.DB
	students      studentRepository
	users         studentUserRepository
	notifications studentNotificationRepository
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(db *sqlx.DB, students studentRepository, users studentUserRepository, notifications studentNotificationRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{db: db, students: students, users: users, notifications: notifications, validator: validate, logger: logger}
}

// Create adds a student with staff-chosen credentials. User and profile
// commit together.
func (s *StudentService) Create(ctx context.Context, input CreateStudentInput) (*models.Student, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	birthDate, err := time.Parse("2006-01-02", input.BirthDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid birth date")
	}

	taken, err := s.users.UsernameExists(ctx, input.Username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		Active:       true,
	}
	if err := s.users.CreateTx(ctx, tx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	student := &models.Student{
		UserID:    user.ID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		BirthDate: birthDate,
		Address:   input.Address,
	}
	if err := s.students.CreateTx(ctx, tx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student profile")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit")
	}
	return student, nil
}

// Get returns a student profile with account and program context.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetByUserID resolves the student profile behind a user account.
func (s *StudentService) GetByUserID(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrProfileMissing, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ResetPassword sets a staff-chosen password on the student's account,
// revokes their sessions and notifies them. The notification says what
// happened but never contains the password.
func (s *StudentService) ResetPassword(ctx context.Context, studentID string, req models.ResetStudentPasswordRequest, resetBy string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset payload")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.users.UpdatePassword(ctx, student.UserID, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	if err := s.users.RevokeUserRefreshTokens(ctx, student.UserID); err != nil {
		s.logger.Warn("failed to revoke sessions after password reset", zap.Error(err))
	}

	if err := s.notifications.Create(ctx, &models.Notification{
		UserID:  student.UserID,
		Message: "Your password has been reset by the administration. Contact the office if this was unexpected.",
	}); err != nil {
		s.logger.Warn("failed to create reset notification", zap.Error(err))
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &resetBy,
		Action:     models.AuditActionPasswordReset,
		Resource:   "students",
		ResourceID: &studentID,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.Error(err))
	}
	return nil
}
