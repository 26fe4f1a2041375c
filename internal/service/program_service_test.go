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

type mockProgramRepo struct {
	programs map[string]*models.Program
}

func (m *mockProgramRepo) Create(ctx context.Context, program *models.Program) error {
	if m.programs == nil {
		m.programs = make(map[string]*models.Program)
	}
	if program.ID == "" {
		program.ID = "prg-new"
	}
	m.programs[program.ID] = program
	return nil
}

func (m *mockProgramRepo) FindByID(ctx context.Context, id string) (*models.Program, error) {
	if p, ok := m.programs[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProgramRepo) List(ctx context.Context) ([]models.ProgramDetail, error) {
	return nil, nil
}

type mockRegistrationStudentRepo struct {
	students map[string]*models.Student
}

func (m *mockRegistrationStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRegistrationStudentRepo) AssignProgram(ctx context.Context, studentID, programID string) (bool, error) {
	student, ok := m.students[studentID]
	if !ok {
		return false, sql.ErrNoRows
	}
	if student.ProgramID != nil {
		return false, nil
	}
	student.ProgramID = &programID
	return true, nil
}

type mockProgramCourseRepo struct {
	byProgram map[string][]models.Course
}

func (m *mockProgramCourseRepo) ListByProgram(ctx context.Context, programID string) ([]models.Course, error) {
	return m.byProgram[programID], nil
}

func newRegistrationFixture(courses []models.Course) (*ProgramService, *mockEnrollmentRepo, *mockRegistrationStudentRepo) {
	names := make(map[string]string, len(courses))
	courseReader := &mockCourseReader{courses: make(map[string]*models.Course, len(courses))}
	for i := range courses {
		names[courses[i].ID] = courses[i].Name
		courseReader.courses[courses[i].ID] = &courses[i]
	}

	enrollRepo := &mockEnrollmentRepo{names: names}
	students := &mockRegistrationStudentRepo{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1"},
	}}
	programs := &mockProgramRepo{programs: map[string]*models.Program{
		"prg-1": {ID: "prg-1", Name: "Computer Science"},
	}}

	enrollSvc := NewEnrollmentService(enrollRepo, &mockStudentReader{students: students.students}, courseReader, nil, nil)
	svc := NewProgramService(programs, students, &mockProgramCourseRepo{byProgram: map[string][]models.Course{"prg-1": courses}}, enrollSvc, nil, nil)
	return svc, enrollRepo, students
}

func TestProgramServiceRegisterEnrollsAllCourses(t *testing.T) {
	courses := []models.Course{
		*testCourse("crs-1", "Algebra", "prg-1", models.Monday, "09:00", "10:00"),
		*testCourse("crs-2", "Biology", "prg-1", models.Tuesday, "09:00", "10:00"),
	}
	svc, enrollRepo, _ := newRegistrationFixture(courses)

	result, err := svc.Register(context.Background(), "stu-1", "prg-1")
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", result.ProgramName)
	assert.Equal(t, 2, result.EnrolledCount)
	assert.Empty(t, result.SkippedCourses)
	assert.Len(t, enrollRepo.byStudent["stu-1"], 2)
}

func TestProgramServiceRegisterSkipsConflictingCourses(t *testing.T) {
	// crs-2 overlaps crs-1; iteration order enrolls crs-1 and skips crs-2.
	courses := []models.Course{
		*testCourse("crs-1", "Algebra", "prg-1", models.Monday, "09:00", "10:30"),
		*testCourse("crs-2", "Biology", "prg-1", models.Monday, "10:00", "11:30"),
		*testCourse("crs-3", "Chemistry", "prg-1", models.Tuesday, "09:00", "10:00"),
	}
	svc, enrollRepo, _ := newRegistrationFixture(courses)

	result, err := svc.Register(context.Background(), "stu-1", "prg-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.EnrolledCount)
	assert.Equal(t, []string{"Biology"}, result.SkippedCourses)
	assert.Len(t, enrollRepo.byStudent["stu-1"], 2)
}

func TestProgramServiceRegisterTwice(t *testing.T) {
	svc, _, _ := newRegistrationFixture(nil)

	_, err := svc.Register(context.Background(), "stu-1", "prg-1")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "stu-1", "prg-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAlreadyRegistered.Code, appErr.Code)
}

func TestProgramServiceRegisterUnknownProgram(t *testing.T) {
	svc, _, _ := newRegistrationFixture(nil)

	_, err := svc.Register(context.Background(), "stu-1", "missing")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
