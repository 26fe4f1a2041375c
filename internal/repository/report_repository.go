package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/school-portal-api/internal/models"
)

// ReportRepository handles persistence of transcript report jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a pending report job.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = models.ReportStatusPending
	job.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO report_jobs (id, student_id, format, status, file_path, error, created_at, completed_at)
        VALUES (:id, :student_id, :format, :status, :file_path, :error, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID returns a single report job.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT id, student_id, format, status, file_path, error, created_at, completed_at
        FROM report_jobs WHERE id = $1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByStudent returns a student's report jobs newest first.
func (r *ReportRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ReportJob, error) {
	const query = `SELECT id, student_id, format, status, file_path, error, created_at, completed_at
        FROM report_jobs WHERE student_id = $1 ORDER BY created_at DESC`
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, studentID); err != nil {
		return nil, fmt.Errorf("list report jobs: %w", err)
	}
	return jobs, nil
}

// MarkProcessing moves a job from pending to processing.
func (r *ReportRepository) MarkProcessing(ctx context.Context, id string) error {
	const query = `UPDATE report_jobs SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusProcessing); err != nil {
		return fmt.Errorf("mark report processing: %w", err)
	}
	return nil
}

// MarkCompleted records the generated file path and completion time.
func (r *ReportRepository) MarkCompleted(ctx context.Context, id, filePath string) error {
	const query = `UPDATE report_jobs SET status = $2, file_path = $3, completed_at = $4 WHERE id = $1`
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusCompleted, filePath, now); err != nil {
		return fmt.Errorf("mark report completed: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason.
func (r *ReportRepository) MarkFailed(ctx context.Context, id, reason string) error {
	const query = `UPDATE report_jobs SET status = $2, error = $3, completed_at = $4 WHERE id = $1`
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusFailed, reason, now); err != nil {
		return fmt.Errorf("mark report failed: %w", err)
	}
	return nil
}
