package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/school-portal-api/internal/models"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	byStudent map[string][]models.Enrollment
	names     map[string]string
}

func (m *mockEnrollmentRepo) CreateIfNoConflict(ctx context.Context, enrollment *models.Enrollment) (*models.ScheduleConflict, error) {
	if m.byStudent == nil {
		m.byStudent = make(map[string][]models.Enrollment)
	}
	slot := enrollment.Slot()
	for _, existing := range m.byStudent[enrollment.StudentID] {
		if slot.Overlaps(existing.Slot()) {
			return &models.ScheduleConflict{
				CourseID:   existing.CourseID,
				CourseName: m.names[existing.CourseID],
				DayOfWeek:  existing.DayOfWeek,
				StartTime:  existing.StartTime,
				EndTime:    existing.EndTime,
			}, nil
		}
	}
	if enrollment.ID == "" {
		enrollment.ID = "enr-" + enrollment.CourseID
	}
	m.byStudent[enrollment.StudentID] = append(m.byStudent[enrollment.StudentID], *enrollment)
	return nil, nil
}

func (m *mockEnrollmentRepo) ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var details []models.EnrollmentDetail
	for _, e := range m.byStudent[studentID] {
		details = append(details, models.EnrollmentDetail{Enrollment: e, CourseName: m.names[e.CourseID]})
	}
	return details, nil
}

func (m *mockEnrollmentRepo) ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	for _, e := range m.byStudent[studentID] {
		if e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func strPtr(s string) *string { return &s }

func testCourse(id, name, programID, day, start, end string) *models.Course {
	return &models.Course{
		ID:        id,
		Name:      name,
		ProgramID: programID,
		DayOfWeek: day,
		StartTime: strPtr(start),
		EndTime:   strPtr(end),
		Semester:  models.Semester1,
	}
}

func newTestEnrollmentService(repo *mockEnrollmentRepo, students *mockStudentReader, courses *mockCourseReader) *EnrollmentService {
	return NewEnrollmentService(repo, students, courses, nil, nil)
}

func TestEnrollmentServiceAdmit(t *testing.T) {
	programID := "prg-1"
	repo := &mockEnrollmentRepo{names: map[string]string{"crs-1": "Algebra"}}
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", ProgramID: &programID},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"crs-1": testCourse("crs-1", "Algebra", programID, models.Monday, "09:00", "10:30"),
	}}
	svc := newTestEnrollmentService(repo, students, courses)

	enrollment, err := svc.Admit(context.Background(), "stu-1", "crs-1")
	require.NoError(t, err)
	assert.Equal(t, "crs-1", enrollment.CourseID)
	assert.Equal(t, models.Monday, enrollment.DayOfWeek)
	assert.Equal(t, "09:00", *enrollment.StartTime)
}

func TestEnrollmentServiceAdmitConflict(t *testing.T) {
	programID := "prg-1"
	repo := &mockEnrollmentRepo{names: map[string]string{"crs-1": "Algebra", "crs-2": "Biology"}}
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", ProgramID: &programID},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"crs-1": testCourse("crs-1", "Algebra", programID, models.Monday, "09:00", "10:30"),
		"crs-2": testCourse("crs-2", "Biology", programID, models.Monday, "10:00", "11:30"),
	}}
	svc := newTestEnrollmentService(repo, students, courses)

	_, err := svc.Admit(context.Background(), "stu-1", "crs-1")
	require.NoError(t, err)

	_, err = svc.Admit(context.Background(), "stu-1", "crs-2")
	var conflictErr *models.ScheduleConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "crs-1", conflictErr.Conflict.CourseID)
	assert.Equal(t, "Algebra", conflictErr.Conflict.CourseName)

	// only the first enrollment exists
	enrollments, err := svc.ListForStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
}

func TestEnrollmentServiceAdmitTouchingSlotsAllowed(t *testing.T) {
	programID := "prg-1"
	repo := &mockEnrollmentRepo{names: map[string]string{}}
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", ProgramID: &programID},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"crs-1": testCourse("crs-1", "Algebra", programID, models.Monday, "09:00", "10:00"),
		"crs-2": testCourse("crs-2", "Biology", programID, models.Monday, "10:00", "11:00"),
	}}
	svc := newTestEnrollmentService(repo, students, courses)

	_, err := svc.Admit(context.Background(), "stu-1", "crs-1")
	require.NoError(t, err)
	_, err = svc.Admit(context.Background(), "stu-1", "crs-2")
	require.NoError(t, err)
}

func TestEnrollmentServiceAdmitRequiresProgram(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1"},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"crs-1": testCourse("crs-1", "Algebra", "prg-1", models.Monday, "09:00", "10:00"),
	}}
	svc := newTestEnrollmentService(repo, students, courses)

	_, err := svc.Admit(context.Background(), "stu-1", "crs-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestEnrollmentServiceAdmitOtherProgramCourse(t *testing.T) {
	programID := "prg-1"
	repo := &mockEnrollmentRepo{}
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", ProgramID: &programID},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"crs-1": testCourse("crs-1", "Algebra", "prg-other", models.Monday, "09:00", "10:00"),
	}}
	svc := newTestEnrollmentService(repo, students, courses)

	enrollment, err := svc.Admit(context.Background(), "stu-1", "crs-1")
	require.NoError(t, err)
	assert.Equal(t, "crs-1", enrollment.CourseID)
}

func TestEnrollmentServiceAdmitUnknownCourse(t *testing.T) {
	programID := "prg-1"
	svc := newTestEnrollmentService(&mockEnrollmentRepo{}, &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", ProgramID: &programID},
	}}, &mockCourseReader{})

	_, err := svc.Admit(context.Background(), "stu-1", "missing")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
