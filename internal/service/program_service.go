package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/school-portal-api/internal/models"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
)

type programRepository interface {
	Create(ctx context.Context, program *models.Program) error
	FindByID(ctx context.Context, id string) (*models.Program, error)
	List(ctx context.Context) ([]models.ProgramDetail, error)
}

type programStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	AssignProgram(ctx context.Context, studentID, programID string) (bool, error)
}

type programCourseRepository interface {
	ListByProgram(ctx context.Context, programID string) ([]models.Course, error)
}

// CreateProgramInput is the staff payload for creating a program.
type CreateProgramInput struct {
	Name string `json:"name" validate:"required"`
}

// ProgramService manages programs and student registration.
type ProgramService struct {
	programs   programRepository
	students   programStudentRepository
	courses    programCourseRepository
	enrollment *EnrollmentService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewProgramService constructs a ProgramService instance.
func NewProgramService(programs programRepository, students programStudentRepository, courses programCourseRepository, enrollment *EnrollmentService, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProgramService{programs: programs, students: students, courses: courses, enrollment: enrollment, validator: validate, logger: logger}
}

// Create stores a new program.
func (s *ProgramService) Create(ctx context.Context, input CreateProgramInput) (*models.Program, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	program := &models.Program{Name: input.Name}
	if err := s.programs.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}
	return program, nil
}

// Get returns a single program.
func (s *ProgramService) Get(ctx context.Context, id string) (*models.Program, error) {
	program, err := s.programs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

// List returns all programs with aggregate counts.
func (s *ProgramService) List(ctx context.Context) ([]models.ProgramDetail, error) {
	programs, err := s.programs.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	return programs, nil
}

// Register assigns the student to the program and auto-enrolls them into
// every course of the program in stable id order. A course whose slot
// overlaps an earlier enrollment is skipped, not failed; the registration
// as a whole still succeeds. A student registers at most once, ever.
func (s *ProgramService) Register(ctx context.Context, studentID, programID string) (*models.RegistrationResult, error) {
	program, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	assigned, err := s.students.AssignProgram(ctx, studentID, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign program")
	}
	if !assigned {
		return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
	}

	courses, err := s.courses.ListByProgram(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list program courses")
	}

	result := &models.RegistrationResult{ProgramID: program.ID, ProgramName: program.Name}
	for i := range courses {
		course := courses[i]
		if _, err := s.enrollment.admit(ctx, studentID, &course); err != nil {
			var conflict *models.ScheduleConflictError
			if errors.As(err, &conflict) {
				s.logger.Info("skipped conflicting course during registration",
					zap.String("student_id", studentID),
					zap.String("course_id", course.ID),
					zap.String("conflicts_with", conflict.Conflict.CourseID))
				result.SkippedCourses = append(result.SkippedCourses, course.Name)
				continue
			}
			return nil, err
		}
		result.EnrolledCount++
	}
	return result, nil
}
