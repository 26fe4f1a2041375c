package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campushq/school-portal-api/internal/models"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
	"github.com/campushq/school-portal-api/pkg/storage"
)

type mockReportRepo struct {
	jobs map[string]*models.ReportJob
	seq  int
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{jobs: map[string]*models.ReportJob{}}
}

func (m *mockReportRepo) Create(ctx context.Context, job *models.ReportJob) error {
	m.seq++
	job.ID = fmt.Sprintf("rpt-%d", m.seq)
	job.Status = models.ReportStatusPending
	clone := *job
	m.jobs[job.ID] = &clone
	return nil
}

func (m *mockReportRepo) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (m *mockReportRepo) ListByStudent(ctx context.Context, studentID string) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, job := range m.jobs {
		if job.StudentID == studentID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockReportRepo) MarkProcessing(ctx context.Context, id string) error {
	m.jobs[id].Status = models.ReportStatusProcessing
	return nil
}

func (m *mockReportRepo) MarkCompleted(ctx context.Context, id, filePath string) error {
	m.jobs[id].Status = models.ReportStatusCompleted
	m.jobs[id].FilePath = filePath
	return nil
}

func (m *mockReportRepo) MarkFailed(ctx context.Context, id, reason string) error {
	m.jobs[id].Status = models.ReportStatusFailed
	m.jobs[id].Error = &reason
	return nil
}

type mockReportGrades struct {
	grades []models.GradeDetail
}

func (m *mockReportGrades) ListDetailsByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error) {
	return m.grades, nil
}

type mockReportStudents struct{}

func (mockReportStudents) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if id != "stu-1" {
		return nil, sql.ErrNoRows
	}
	program := "Science"
	return &models.StudentDetail{
		Student:     models.Student{ID: "stu-1", UserID: "usr-1", FirstName: "Venky", LastName: "Varma"},
		Username:    "venkyv05",
		ProgramName: &program,
	}, nil
}

type mockReportNotifier struct {
	userIDs  []string
	messages []string
}

func (m *mockReportNotifier) Notify(ctx context.Context, userID, message string) error {
	m.userIDs = append(m.userIDs, userID)
	m.messages = append(m.messages, message)
	return nil
}

type mockReportStorage struct {
	files map[string][]byte
}

func (m *mockReportStorage) Save(filename string, data []byte) (string, error) {
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[filename] = data
	return filename, nil
}

func (m *mockReportStorage) Path(filename string) string {
	return "/srv/reports/" + filename
}

func newReportFixture(t *testing.T) (*ReportService, *mockReportRepo, *mockReportStorage) {
	t.Helper()
	repo := newMockReportRepo()
	grades := &mockReportGrades{grades: []models.GradeDetail{
		{
			Grade:      models.Grade{ID: "grd-1", StudentID: "stu-1", CourseID: "crs-1", Grade: "A", CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
			CourseName: "Algebra",
			Semester:   models.Semester1,
		},
	}}
	store := &mockReportStorage{}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewReportService(repo, grades, &mockReportStudents{}, store, signer, nil)
	return svc, repo, store
}

func TestReportGenerateCSV(t *testing.T) {
	svc, repo, store := newReportFixture(t)
	notifier := &mockReportNotifier{}
	svc.BindNotifier(notifier)

	job := &models.ReportJob{StudentID: "stu-1", Format: models.ReportFormatCSV}
	require.NoError(t, repo.Create(context.Background(), job))

	err := svc.generate(context.Background(), transcriptPayload{
		ReportID:  job.ID,
		StudentID: "stu-1",
		Format:    models.ReportFormatCSV,
	})
	require.NoError(t, err)

	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusCompleted, stored.Status)
	require.Contains(t, stored.FilePath, "transcripts/stu-1/")

	content := string(store.files[stored.FilePath])
	require.Contains(t, content, "Algebra")
	require.Contains(t, content, "A")

	require.Equal(t, []string{"usr-1"}, notifier.userIDs)
	require.Contains(t, notifier.messages[0], "ready to download")
}

func TestReportGenerateUnknownStudentFails(t *testing.T) {
	svc, repo, _ := newReportFixture(t)

	job := &models.ReportJob{StudentID: "stu-missing", Format: models.ReportFormatCSV}
	require.NoError(t, repo.Create(context.Background(), job))

	err := svc.generate(context.Background(), transcriptPayload{
		ReportID:  job.ID,
		StudentID: "stu-missing",
		Format:    models.ReportFormatCSV,
	})
	require.Error(t, err)

	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
}

func TestReportDownloadLinkRequiresCompletion(t *testing.T) {
	svc, repo, _ := newReportFixture(t)

	job := &models.ReportJob{StudentID: "stu-1", Format: models.ReportFormatPDF}
	require.NoError(t, repo.Create(context.Background(), job))

	_, err := svc.DownloadLink(context.Background(), job.ID, "stu-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestReportDownloadRoundTrip(t *testing.T) {
	svc, repo, _ := newReportFixture(t)

	job := &models.ReportJob{StudentID: "stu-1", Format: models.ReportFormatCSV}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NoError(t, svc.generate(context.Background(), transcriptPayload{
		ReportID: job.ID, StudentID: "stu-1", Format: models.ReportFormatCSV,
	}))

	link, err := svc.DownloadLink(context.Background(), job.ID, "stu-1")
	require.NoError(t, err)
	require.NotEmpty(t, link.Token)

	resolved, absPath, err := svc.ResolveDownload(context.Background(), link.Token)
	require.NoError(t, err)
	require.Equal(t, job.ID, resolved.ID)
	require.True(t, strings.HasPrefix(absPath, "/srv/reports/"))
}

func TestReportStatusScopedToOwner(t *testing.T) {
	svc, repo, _ := newReportFixture(t)

	job := &models.ReportJob{StudentID: "stu-1", Format: models.ReportFormatPDF}
	require.NoError(t, repo.Create(context.Background(), job))

	_, err := svc.Status(context.Background(), job.ID, "stu-other")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
