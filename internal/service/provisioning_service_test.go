package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushq/school-portal-api/internal/models"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
)

type mockRequestRepo struct {
	requests    map[string]*models.StudentRequest
	provisioned *models.User
	student     *models.Student
	note        *models.Notification
	failTx      error
}

func (m *mockRequestRepo) Create(ctx context.Context, request *models.StudentRequest) error {
	if m.requests == nil {
		m.requests = make(map[string]*models.StudentRequest)
	}
	if request.ID == "" {
		request.ID = "req-new"
	}
	m.requests[request.ID] = request
	return nil
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.StudentRequest, error) {
	if r, ok := m.requests[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) List(ctx context.Context) ([]models.StudentRequest, error) {
	var list []models.StudentRequest
	for _, r := range m.requests {
		list = append(list, *r)
	}
	return list, nil
}

func (m *mockRequestRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := m.requests[id]; !ok {
		return false, nil
	}
	delete(m.requests, id)
	return true, nil
}

func (m *mockRequestRepo) ProvisionApproved(ctx context.Context, requestID string, user *models.User, student *models.Student, notification *models.Notification) error {
	if m.failTx != nil {
		return m.failTx
	}
	if _, ok := m.requests[requestID]; !ok {
		return sql.ErrNoRows
	}
	delete(m.requests, requestID)
	user.ID = "usr-new"
	student.ID = "stu-new"
	student.UserID = user.ID
	m.provisioned = user
	m.student = student
	m.note = notification
	return nil
}

type mockProvisioningUserRepo struct {
	taken  map[string]bool
	checks []string
	audits []models.AuditLog
}

func (m *mockProvisioningUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	m.checks = append(m.checks, username)
	return m.taken[username], nil
}

func (m *mockProvisioningUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

func pendingRequest(id string) *models.StudentRequest {
	return &models.StudentRequest{
		ID:        id,
		FirstName: "Venky",
		LastName:  "Varma",
		Email:     "venky@example.com",
		Phone:     "555-0100",
		BirthDate: time.Date(2004, time.May, 20, 0, 0, 0, 0, time.UTC),
		Address:   "12 Park Lane",
	}
}

func TestBaseUsername(t *testing.T) {
	tests := []struct {
		name      string
		first     string
		last      string
		birth     time.Time
		want      string
	}{
		{"plain", "Venky", "Varma", time.Date(2004, time.May, 20, 0, 0, 0, 0, time.UTC), "venkyv05"},
		{"spaces stripped", "Venky V", "Varma", time.Date(2004, time.May, 20, 0, 0, 0, 0, time.UTC), "venkyvv05"},
		{"lowercased", "JAMES", "Doe", time.Date(2005, time.March, 1, 0, 0, 0, 0, time.UTC), "jamesd03"},
		{"multibyte last initial", "Anna", "Öztürk", time.Date(1999, time.May, 12, 0, 0, 0, 0, time.UTC), "annaö05"},
		{"zero padded month", "Ana", "Lima", time.Date(2006, time.January, 2, 0, 0, 0, 0, time.UTC), "anal01"},
		{"december", "Ana", "Lima", time.Date(2006, time.December, 2, 0, 0, 0, 0, time.UTC), "anal12"},
		{"empty last name", "Ana", "", time.Date(2006, time.June, 2, 0, 0, 0, 0, time.UTC), "ana06"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseUsername(tt.first, tt.last, tt.birth))
		})
	}
}

func TestProvisioningApprove(t *testing.T) {
	requests := &mockRequestRepo{requests: map[string]*models.StudentRequest{"req-1": pendingRequest("req-1")}}
	users := &mockProvisioningUserRepo{}
	svc := NewProvisioningService(requests, users, nil, nil, ProvisioningConfig{})

	account, err := svc.Approve(context.Background(), "req-1", "usr-staff")
	require.NoError(t, err)
	assert.Equal(t, "venkyv05", account.Username)
	assert.Len(t, account.Password, 8)
	assert.Regexp(t, regexp.MustCompile(`^[a-zA-Z0-9]{8}$`), account.Password)

	// stored hash matches the returned plaintext
	require.NotNil(t, requests.provisioned)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(requests.provisioned.PasswordHash), []byte(account.Password)))
	assert.Equal(t, models.RoleStudent, requests.provisioned.Role)
	assert.True(t, requests.provisioned.Active)

	// profile copied from the request, notification free of the password
	assert.Equal(t, "Venky", requests.student.FirstName)
	require.NotNil(t, requests.note)
	assert.Contains(t, requests.note.Message, "venkyv05")
	assert.NotContains(t, requests.note.Message, account.Password)

	// request consumed, decision audited
	assert.Empty(t, requests.requests)
	require.Len(t, users.audits, 1)
	assert.Equal(t, models.AuditActionRequestApproved, users.audits[0].Action)
}

func TestProvisioningApproveCollision(t *testing.T) {
	requests := &mockRequestRepo{requests: map[string]*models.StudentRequest{"req-1": pendingRequest("req-1")}}
	users := &mockProvisioningUserRepo{taken: map[string]bool{"venkyv05": true}}
	svc := NewProvisioningService(requests, users, nil, nil, ProvisioningConfig{})

	account, err := svc.Approve(context.Background(), "req-1", "usr-staff")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^venkyv05[0-9]{2}$`), account.Username)
}

func TestProvisioningApproveUsernameSpaceExhausted(t *testing.T) {
	base := BaseUsername("Venky", "Varma", time.Date(2004, time.May, 20, 0, 0, 0, 0, time.UTC))
	taken := map[string]bool{base: true}
	for i := 0; i < 100; i++ {
		taken[base+twoDigits(i)] = true
	}
	requests := &mockRequestRepo{requests: map[string]*models.StudentRequest{"req-1": pendingRequest("req-1")}}
	users := &mockProvisioningUserRepo{taken: taken}
	svc := NewProvisioningService(requests, users, nil, nil, ProvisioningConfig{UsernameMaxAttempts: 5})

	_, err := svc.Approve(context.Background(), "req-1", "usr-staff")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUsernameSpaceExhausted.Code, appErr.Code)
	// base check plus the bounded number of suffix attempts
	assert.Len(t, users.checks, 6)
	// nothing provisioned on failure
	assert.Nil(t, requests.provisioned)
	assert.Contains(t, requests.requests, "req-1")
}

func TestProvisioningApproveMissingRequest(t *testing.T) {
	svc := NewProvisioningService(&mockRequestRepo{}, &mockProvisioningUserRepo{}, nil, nil, ProvisioningConfig{})

	_, err := svc.Approve(context.Background(), "missing", "usr-staff")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestProvisioningReject(t *testing.T) {
	requests := &mockRequestRepo{requests: map[string]*models.StudentRequest{"req-1": pendingRequest("req-1")}}
	users := &mockProvisioningUserRepo{}
	svc := NewProvisioningService(requests, users, nil, nil, ProvisioningConfig{})

	require.NoError(t, svc.Reject(context.Background(), "req-1", "usr-staff"))
	assert.Empty(t, requests.requests)
	require.Len(t, users.audits, 1)
	assert.Equal(t, models.AuditActionRequestRejected, users.audits[0].Action)

	err := svc.Reject(context.Background(), "req-1", "usr-staff")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestProvisioningDecideInvalid(t *testing.T) {
	svc := NewProvisioningService(&mockRequestRepo{}, &mockProvisioningUserRepo{}, nil, nil, ProvisioningConfig{})

	_, err := svc.Decide(context.Background(), "req-1", "maybe", "usr-staff")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestProvisioningListRequestsPreview(t *testing.T) {
	requests := &mockRequestRepo{requests: map[string]*models.StudentRequest{"req-1": pendingRequest("req-1")}}
	users := &mockProvisioningUserRepo{taken: map[string]bool{"venkyv05": true}}
	svc := NewProvisioningService(requests, users, nil, nil, ProvisioningConfig{})

	previews, err := svc.ListRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.Equal(t, "venkyv05", previews[0].PreviewUsername)
	assert.True(t, previews[0].IsDuplicate)
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}
