package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/school-portal-api/internal/models"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
)

type enrollmentRepository interface {
	CreateIfNoConflict(ctx context.Context, enrollment *models.Enrollment) (*models.ScheduleConflict, error)
	ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type enrollmentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type enrollmentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EnrollmentService admits students into courses.
type EnrollmentService struct {
	enrollments enrollmentRepository
	students    enrollmentStudentRepository
	courses     enrollmentCourseRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService instance.
func NewEnrollmentService(enrollments enrollmentRepository, students enrollmentStudentRepository, courses enrollmentCourseRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{enrollments: enrollments, students: students, courses: courses, validator: validate, logger: logger}
}

// Admit enrolls the student into the course unless its slot overlaps an
// already-enrolled course. The student must have registered for a program
// first, but may take courses from any program. On overlap the returned
// error carries the conflicting course.
func (s *EnrollmentService) Admit(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if student.ProgramID == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "register for a program before enrolling in courses")
	}

	return s.admit(ctx, student.ID, course)
}

// admit runs the conflict-checked insert for an already validated pair.
// Shared with program registration, which has its own preconditions.
func (s *EnrollmentService) admit(ctx context.Context, studentID string, course *models.Course) (*models.Enrollment, error) {
	slot := course.Slot()
	enrollment := &models.Enrollment{
		StudentID: studentID,
		CourseID:  course.ID,
		DayOfWeek: slot.DayOfWeek,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
	}

	conflict, err := s.enrollments.CreateIfNoConflict(ctx, enrollment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to admit enrollment")
	}
	if conflict != nil {
		return nil, &models.ScheduleConflictError{
			Message:  fmt.Sprintf("%s overlaps with %s on %s", course.Name, conflict.CourseName, conflict.DayOfWeek),
			Conflict: *conflict,
		}
	}
	return enrollment, nil
}

// ListForStudent returns the student's timetable with course context.
func (s *EnrollmentService) ListForStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.enrollments.ListDetailsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}
