package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/school-portal-api/internal/models"
	"github.com/campushq/school-portal-api/internal/repository"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
)

type gradeRepository interface {
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, id, value string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	ListDetailsByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error)
	ListDetailsByCourse(ctx context.Context, courseID string) ([]models.GradeDetail, error)
}

type gradeEnrollmentRepository interface {
	ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error)
}

// GradeInput is the staff payload for recording a grade.
type GradeInput struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Grade     string `json:"grade" validate:"required,max=5"`
}

// GradeService records and reads grades.
type GradeService struct {
	grades      gradeRepository
	enrollments gradeEnrollmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs a GradeService instance.
func NewGradeService(grades gradeRepository, enrollments gradeEnrollmentRepository, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradeService{grades: grades, enrollments: enrollments, validator: validate, logger: logger}
}

// Record stores a grade for an enrolled student. One grade per
// (student, course) pair.
func (s *GradeService) Record(ctx context.Context, input GradeInput) (*models.Grade, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	enrolled, err := s.enrollments.ExistsByStudentAndCourse(ctx, input.StudentID, input.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student is not enrolled in this course")
	}

	grade := &models.Grade{
		StudentID: input.StudentID,
		CourseID:  input.CourseID,
		Grade:     input.Grade,
	}
	if err := s.grades.Create(ctx, grade); err != nil {
		if errors.Is(err, repository.ErrDuplicateGrade) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "grade already recorded for this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}
	return grade, nil
}

// Amend updates the value of an existing grade.
func (s *GradeService) Amend(ctx context.Context, id, value string) (*models.Grade, error) {
	if value == "" || len(value) > 5 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid grade value")
	}
	updated, err := s.grades.Update(ctx, id, value)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
	}
	grade, err := s.grades.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

// ListForStudent returns the student's grades with course context.
func (s *GradeService) ListForStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error) {
	grades, err := s.grades.ListDetailsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// ListForCourse returns every grade recorded for a course.
func (s *GradeService) ListForCourse(ctx context.Context, courseID string) ([]models.GradeDetail, error) {
	grades, err := s.grades.ListDetailsByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course grades")
	}
	return grades, nil
}
