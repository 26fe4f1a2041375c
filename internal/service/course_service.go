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

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	ListAvailableForStudent(ctx context.Context, studentID string) ([]models.CourseDetail, error)
}

type courseProgramRepository interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

// CourseInput is the staff payload for creating or updating a course.
type CourseInput struct {
	Name      string  `json:"name" validate:"required"`
	ProgramID string  `json:"program_id" validate:"required"`
	DayOfWeek string  `json:"day_of_week" validate:"required"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Semester  string  `json:"semester" validate:"required"`
}

// CourseService manages the course catalog.
type CourseService struct {
	courses   courseRepository
	programs  courseProgramRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(courses courseRepository, programs courseProgramRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{courses: courses, programs: programs, validator: validate, logger: logger}
}

func (s *CourseService) validateInput(ctx context.Context, input CourseInput) error {
	if err := s.validator.Struct(input); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if !models.IsValidDay(input.DayOfWeek) {
		return appErrors.Clone(appErrors.ErrValidation, "unknown day of week")
	}
	if !models.IsValidSemester(models.Semester(input.Semester)) {
		return appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	if input.StartTime != nil && !models.IsValidTimeOfDay(*input.StartTime) {
		return appErrors.Clone(appErrors.ErrValidation, "start time must be HH:MM")
	}
	if input.EndTime != nil && !models.IsValidTimeOfDay(*input.EndTime) {
		return appErrors.Clone(appErrors.ErrValidation, "end time must be HH:MM")
	}
	if input.StartTime != nil && input.EndTime != nil && *input.EndTime <= *input.StartTime {
		return appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	if _, err := s.programs.FindByID(ctx, input.ProgramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return nil
}

// Create stores a new course.
func (s *CourseService) Create(ctx context.Context, input CourseInput) (*models.Course, error) {
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}
	course := &models.Course{
		Name:      input.Name,
		ProgramID: input.ProgramID,
		DayOfWeek: input.DayOfWeek,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Semester:  models.Semester(input.Semester),
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update rewrites an existing course. Committed enrollments keep their
// denormalized slot and are not touched.
func (s *CourseService) Update(ctx context.Context, id string, input CourseInput) (*models.Course, error) {
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	course.Name = input.Name
	course.ProgramID = input.ProgramID
	course.DayOfWeek = input.DayOfWeek
	course.StartTime = input.StartTime
	course.EndTime = input.EndTime
	course.Semester = models.Semester(input.Semester)
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course from the catalog.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.courses.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// List returns courses matching the filter with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListAvailable returns courses, from any program, that the student has
// not enrolled in yet.
func (s *CourseService) ListAvailable(ctx context.Context, studentID string) ([]models.CourseDetail, error) {
	courses, err := s.courses.ListAvailableForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available courses")
	}
	return courses, nil
}
