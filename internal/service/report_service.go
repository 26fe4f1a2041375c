package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/school-portal-api/internal/models"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
	"github.com/campushq/school-portal-api/pkg/export"
	"github.com/campushq/school-portal-api/pkg/jobs"
)

const transcriptJobType = "transcript"

type reportRepository interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.ReportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

type reportGradeRepository interface {
	ListDetailsByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error)
}

type reportStudentRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

type reportSigner interface {
	Generate(reportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (reportID, relPath string, expiresAt time.Time, err error)
}

type reportNotifier interface {
	Notify(ctx context.Context, userID, message string) error
}

type transcriptPayload struct {
	ReportID  string
	StudentID string
	Format    models.ReportFormat
}

// ReportService generates student transcripts asynchronously. Requests
// enqueue a job; a worker renders the file and the student downloads it
// through a signed, expiring token.
type ReportService struct {
	reports  reportRepository
	grades   reportGradeRepository
	students reportStudentRepository
	storage  reportStorage
	signer   reportSigner
	notifier reportNotifier
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	queue    *jobs.Queue
	logger   *zap.Logger
}

// NewReportService constructs a ReportService. Call BindQueue with the
// worker queue before accepting requests.
func NewReportService(reports reportRepository, grades reportGradeRepository, students reportStudentRepository, storage reportStorage, signer reportSigner, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports:  reports,
		grades:   grades,
		students: students,
		storage:  storage,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// BindQueue attaches the worker queue that processes transcript jobs.
func (s *ReportService) BindQueue(queue *jobs.Queue) {
	s.queue = queue
}

// BindNotifier attaches the notifier that tells students a finished
// transcript is ready. Optional; without it completion is silent.
func (s *ReportService) BindNotifier(notifier reportNotifier) {
	s.notifier = notifier
}

// HandleJob is the queue handler for transcript jobs.
func (s *ReportService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(transcriptPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	return s.generate(ctx, payload)
}

// Request enqueues transcript generation for the student.
func (s *ReportService) Request(ctx context.Context, studentID string, format models.ReportFormat) (*models.ReportJob, error) {
	if format != models.ReportFormatPDF && format != models.ReportFormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be pdf or csv")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report generation is not available")
	}

	job := &models.ReportJob{StudentID: studentID, Format: format}
	if err := s.reports.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    transcriptJobType,
		Payload: transcriptPayload{ReportID: job.ID, StudentID: studentID, Format: format},
	}); err != nil {
		if markErr := s.reports.MarkFailed(ctx, job.ID, "queue unavailable"); markErr != nil {
			s.logger.Warn("failed to mark report failed", zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// Status returns a student's report job, scoped to the owner.
func (s *ReportService) Status(ctx context.Context, reportID, studentID string) (*models.ReportJob, error) {
	job, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if job.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	return job, nil
}

// DownloadLink issues a signed URL token for a completed report.
func (s *ReportService) DownloadLink(ctx context.Context, reportID, studentID string) (*models.ReportDownload, error) {
	job, err := s.Status(ctx, reportID, studentID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ReportStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "report is not ready yet")
	}

	token, expiresAt, err := s.signer.Generate(job.ID, job.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	return &models.ReportDownload{ReportID: job.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// ResolveDownload validates a signed token and returns the report plus the
// absolute file path to stream.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*models.ReportJob, string, error) {
	reportID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}

	job, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if job.FilePath != relPath || job.Status != models.ReportStatusCompleted {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	return job, s.storage.Path(relPath), nil
}

// ListForStudent returns the student's report jobs newest first.
func (s *ReportService) ListForStudent(ctx context.Context, studentID string) ([]models.ReportJob, error) {
	reports, err := s.reports.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, nil
}

func (s *ReportService) generate(ctx context.Context, payload transcriptPayload) error {
	if err := s.reports.MarkProcessing(ctx, payload.ReportID); err != nil {
		return err
	}

	student, err := s.students.FindDetailByID(ctx, payload.StudentID)
	if err != nil {
		return s.fail(ctx, payload.ReportID, fmt.Errorf("load student: %w", err))
	}

	data, subtitles, err := s.buildTranscript(ctx, student)
	if err != nil {
		return s.fail(ctx, payload.ReportID, err)
	}

	var rendered []byte
	switch payload.Format {
	case models.ReportFormatCSV:
		rendered, err = s.csv.Render(*data)
	default:
		rendered, err = s.pdf.Render(*data, "Academic Transcript", subtitles...)
	}
	if err != nil {
		return s.fail(ctx, payload.ReportID, err)
	}

	relPath := filepath.Join("transcripts", payload.StudentID,
		fmt.Sprintf("%s.%s", payload.ReportID, payload.Format))
	if _, err := s.storage.Save(relPath, rendered); err != nil {
		return s.fail(ctx, payload.ReportID, err)
	}

	if err := s.reports.MarkCompleted(ctx, payload.ReportID, relPath); err != nil {
		return err
	}
	if s.notifier != nil {
		message := fmt.Sprintf("Your transcript (%s) is ready to download.", payload.Format)
		if err := s.notifier.Notify(ctx, student.UserID, message); err != nil {
			s.logger.Warn("failed to notify report completion",
				zap.String("report_id", payload.ReportID), zap.Error(err))
		}
	}
	s.logger.Info("transcript generated",
		zap.String("report_id", payload.ReportID),
		zap.String("student_id", payload.StudentID),
		zap.String("format", string(payload.Format)))
	return nil
}

func (s *ReportService) buildTranscript(ctx context.Context, student *models.StudentDetail) (*export.Dataset, []string, error) {
	grades, err := s.grades.ListDetailsByStudent(ctx, student.ID)
	if err != nil {
		return nil, nil, err
	}

	data := &export.Dataset{Headers: []string{"Course", "Semester", "Grade", "Recorded"}}
	for _, grade := range grades {
		data.Rows = append(data.Rows, map[string]string{
			"Course":   grade.CourseName,
			"Semester": string(grade.Semester),
			"Grade":    grade.Grade.Grade,
			"Recorded": grade.CreatedAt.Format("2006-01-02"),
		})
	}

	subtitles := []string{fmt.Sprintf("%s %s (%s)", student.FirstName, student.LastName, student.Username)}
	if student.ProgramName != nil {
		subtitles = append(subtitles, "Program: "+*student.ProgramName)
	}
	return data, subtitles, nil
}

func (s *ReportService) fail(ctx context.Context, reportID string, cause error) error {
	if err := s.reports.MarkFailed(ctx, reportID, cause.Error()); err != nil {
		s.logger.Warn("failed to mark report failed", zap.String("report_id", reportID), zap.Error(err))
	}
	return cause
}
