package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushq/school-portal-api/internal/models"
)

// ErrDuplicateGrade is returned when a grade already exists for the
// student and course pair.
var ErrDuplicateGrade = errors.New("grade already recorded for course")

// GradeRepository handles persistence of grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Create inserts a grade. The (student_id, course_id) pair is unique.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	grade.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO grades (id, student_id, course_id, grade, created_at)
        VALUES (:id, :student_id, :course_id, :grade, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateGrade
		}
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// Update changes the grade value. Returns false when no such row.
func (r *GradeRepository) Update(ctx context.Context, id, value string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE grades SET grade = $2 WHERE id = $1`, id, value)
	if err != nil {
		return false, fmt.Errorf("update grade: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update grade: %w", err)
	}
	return affected == 1, nil
}

// FindByID returns a single grade.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	const query = `SELECT id, student_id, course_id, grade, created_at FROM grades WHERE id = $1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// ListDetailsByStudent returns the student's grades with course context,
// ordered by semester then course name for transcript rendering.
func (r *GradeRepository) ListDetailsByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error) {
	const query = `SELECT g.id, g.student_id, g.course_id, g.grade, g.created_at,
        c.name AS course_name, c.semester
        FROM grades g
        JOIN courses c ON c.id = g.course_id
        WHERE g.student_id = $1
        ORDER BY c.semester, c.name`
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}

// ListDetailsByCourse returns all grades recorded for a course.
func (r *GradeRepository) ListDetailsByCourse(ctx context.Context, courseID string) ([]models.GradeDetail, error) {
	const query = `SELECT g.id, g.student_id, g.course_id, g.grade, g.created_at,
        c.name AS course_name, c.semester
        FROM grades g
        JOIN courses c ON c.id = g.course_id
        WHERE g.course_id = $1
        ORDER BY g.created_at`
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, courseID); err != nil {
		return nil, fmt.Errorf("list course grades: %w", err)
	}
	return grades, nil
}
