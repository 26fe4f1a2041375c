package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushq/school-portal-api/internal/models"
	"github.com/campushq/school-portal-api/internal/repository"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
)

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type provisioningRequestRepository interface {
	Create(ctx context.Context, request *models.StudentRequest) error
	FindByID(ctx context.Context, id string) (*models.StudentRequest, error)
	List(ctx context.Context) ([]models.StudentRequest, error)
	Delete(ctx context.Context, id string) (bool, error)
	ProvisionApproved(ctx context.Context, requestID string, user *models.User, student *models.Student, notification *models.Notification) error
}

type provisioningUserRepository interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ProvisioningConfig bounds the credential generation.
type ProvisioningConfig struct {
	UsernameMaxAttempts int
	PasswordLength      int
}

// CreateStudentRequestInput is the public application payload.
type CreateStudentRequestInput struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Address   string `json:"address" validate:"required"`
}

// ProvisioningService turns approved student requests into accounts. It
// owns the username and password generation rules.
type ProvisioningService struct {
	requests  provisioningRequestRepository
	users     provisioningUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    ProvisioningConfig
}

// NewProvisioningService constructs a ProvisioningService instance.
func NewProvisioningService(requests provisioningRequestRepository, users provisioningUserRepository, validate *validator.Validate, logger *zap.Logger, config ProvisioningConfig) *ProvisioningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.UsernameMaxAttempts <= 0 {
		config.UsernameMaxAttempts = 20
	}
	if config.PasswordLength <= 0 {
		config.PasswordLength = 8
	}
	return &ProvisioningService{requests: requests, users: users, validator: validate, logger: logger, config: config}
}

// CreateRequest records a new public application for a student account.
func (s *ProvisioningService) CreateRequest(ctx context.Context, input CreateStudentRequestInput) (*models.StudentRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student request payload")
	}

	birthDate, err := time.Parse("2006-01-02", input.BirthDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid birth date")
	}

	request := &models.StudentRequest{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		BirthDate: birthDate,
		Address:   strings.TrimSpace(input.Address),
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store student request")
	}
	return request, nil
}

// ListRequests returns pending requests with the username each approval
// would produce, flagging duplicates so staff see collisions up front.
func (s *ProvisioningService) ListRequests(ctx context.Context) ([]models.StudentRequestPreview, error) {
	requests, err := s.requests.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student requests")
	}

	previews := make([]models.StudentRequestPreview, 0, len(requests))
	for _, request := range requests {
		username := BaseUsername(request.FirstName, request.LastName, request.BirthDate)
		taken, err := s.users.UsernameExists(ctx, username)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
		}
		previews = append(previews, models.StudentRequestPreview{
			StudentRequest:  request,
			PreviewUsername: username,
			IsDuplicate:     taken,
		})
	}
	return previews, nil
}

// Decide applies a staff decision to a pending request. Approval returns
// the provisioned account; rejection returns nil.
func (s *ProvisioningService) Decide(ctx context.Context, requestID string, decision models.RequestDecision, decidedBy string) (*models.ProvisionedAccount, error) {
	switch decision {
	case models.DecisionApprove:
		return s.Approve(ctx, requestID, decidedBy)
	case models.DecisionReject:
		return nil, s.Reject(ctx, requestID, decidedBy)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be approve or reject")
	}
}

// Approve converts a pending request into a live account. The generated
// username follows the base scheme with a random two-digit suffix on
// collision, the password is random, and user, profile, welcome
// notification and request consumption commit atomically. The plaintext
// password appears only in the returned account and is never stored.
func (s *ProvisioningService) Approve(ctx context.Context, requestID, approvedBy string) (*models.ProvisionedAccount, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student request")
	}

	username, err := s.allocateUsername(ctx, request.FirstName, request.LastName, request.BirthDate)
	if err != nil {
		return nil, err
	}

	password, err := generatePassword(s.config.PasswordLength)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     username,
		Email:        request.Email,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		Active:       true,
	}
	student := &models.Student{
		FirstName: request.FirstName,
		LastName:  request.LastName,
		Phone:     request.Phone,
		BirthDate: request.BirthDate,
		Address:   request.Address,
	}
	// The password never travels through a notification.
	notification := &models.Notification{
		Message: fmt.Sprintf("Welcome %s! Your application has been approved and your username is %s. Contact the administration office for your password.", request.FirstName, username),
	}

	if err := s.requests.ProvisionApproved(ctx, requestID, user, student, notification); err != nil {
		if errors.Is(err, repository.ErrRequestAlreadyDecided) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student request already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision account")
	}

	s.audit(ctx, approvedBy, models.AuditActionRequestApproved, requestID)
	s.logger.Info("student account provisioned",
		zap.String("request_id", requestID),
		zap.String("username", username))

	return &models.ProvisionedAccount{
		UserID:    user.ID,
		StudentID: student.ID,
		Username:  username,
		Password:  password,
	}, nil
}

// Reject discards a pending request without creating anything.
func (s *ProvisioningService) Reject(ctx context.Context, requestID, rejectedBy string) error {
	deleted, err := s.requests.Delete(ctx, requestID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student request")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "student request not found")
	}

	s.audit(ctx, rejectedBy, models.AuditActionRequestRejected, requestID)
	return nil
}

// allocateUsername tries the base username first, then random two-digit
// suffixes. Attempts are bounded so a saturated namespace surfaces as an
// error instead of an endless loop.
func (s *ProvisioningService) allocateUsername(ctx context.Context, firstName, lastName string, birthDate time.Time) (string, error) {
	base := BaseUsername(firstName, lastName, birthDate)

	taken, err := s.users.UsernameExists(ctx, base)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if !taken {
		return base, nil
	}

	for attempt := 0; attempt < s.config.UsernameMaxAttempts; attempt++ {
		suffix, err := randomInt(100)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate username suffix")
		}
		candidate := fmt.Sprintf("%s%02d", base, suffix)
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
		}
		if !taken {
			return candidate, nil
		}
	}

	s.logger.Error("username space exhausted", zap.String("base", base))
	return "", appErrors.Clone(appErrors.ErrUsernameSpaceExhausted, "")
}

// BaseUsername builds the canonical username: the lowercased first name
// with spaces removed, the lowercased first rune of the last name, and
// the zero-padded birth month. "Venky" "Varma" born in May becomes
// venkyv05.
func BaseUsername(firstName, lastName string, birthDate time.Time) string {
	first := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(firstName), " ", ""))
	initial := ""
	if trimmed := strings.TrimSpace(lastName); trimmed != "" {
		r, _ := utf8.DecodeRuneInString(trimmed)
		initial = strings.ToLower(string(r))
	}
	return fmt.Sprintf("%s%s%02d", first, initial, int(birthDate.Month()))
}

func generatePassword(length int) (string, error) {
	chars := make([]byte, length)
	for i := range chars {
		idx, err := randomInt(len(passwordAlphabet))
		if err != nil {
			return "", err
		}
		chars[i] = passwordAlphabet[idx]
	}
	return string(chars), nil
}

func randomInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

func (s *ProvisioningService) audit(ctx context.Context, actorID, action, requestID string) {
	log := &models.AuditLog{
		Action:     action,
		Resource:   "student_requests",
		ResourceID: &requestID,
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.users.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
