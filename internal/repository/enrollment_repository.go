package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/school-portal-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListDetailsByStudent returns the student's enrollments with course context.
func (r *EnrollmentRepository) ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.day_of_week, e.start_time, e.end_time, e.enrolled_at,
        c.name AS course_name, c.semester, p.name AS program_name
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        JOIN programs p ON p.id = c.program_id
        WHERE e.student_id = $1
        ORDER BY e.day_of_week, e.start_time`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ExistsByStudentAndCourse reports whether the student is enrolled in the course.
func (r *EnrollmentRepository) ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// CreateIfNoConflict inserts the enrollment unless its slot overlaps an
// existing enrollment of the same student. The conflict check and insert
// run in one transaction behind a per-student advisory lock, so two
// concurrent admissions for the same student serialize instead of both
// passing the check. A non-nil ScheduleConflict means nothing was written.
func (r *EnrollmentRepository) CreateIfNoConflict(ctx context.Context, enrollment *models.Enrollment) (*models.ScheduleConflict, error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin admission: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, enrollment.StudentID); err != nil {
		return nil, fmt.Errorf("lock student timetable: %w", err)
	}

	// A course without both times occupies no slot and can never conflict.
	if enrollment.StartTime != nil && enrollment.EndTime != nil {
		const conflictQuery = `SELECT e.course_id, c.name AS course_name, e.day_of_week, e.start_time, e.end_time
            FROM enrollments e
            JOIN courses c ON c.id = e.course_id
            WHERE e.student_id = $1 AND e.day_of_week = $2 AND e.start_time < $3 AND e.end_time > $4
            LIMIT 1`
		var conflict models.ScheduleConflict
		err := tx.GetContext(ctx, &conflict, conflictQuery,
			enrollment.StudentID, enrollment.DayOfWeek, *enrollment.EndTime, *enrollment.StartTime)
		switch {
		case err == nil:
			return &conflict, nil
		case err != sql.ErrNoRows:
			return nil, fmt.Errorf("check schedule conflict: %w", err)
		}
	}

	const insertQuery = `INSERT INTO enrollments (id, student_id, course_id, day_of_week, start_time, end_time, enrolled_at)
        VALUES (:id, :student_id, :course_id, :day_of_week, :start_time, :end_time, :enrolled_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, enrollment); err != nil {
		return nil, fmt.Errorf("create enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit admission: %w", err)
	}
	return nil, nil
}

// CountAll returns the total number of enrollments.
func (r *EnrollmentRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM enrollments`); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return total, nil
}
