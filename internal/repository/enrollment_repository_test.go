package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campushq/school-portal-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func timePtr(s string) *string { return &s }

func TestEnrollmentRepositoryCreateIfNoConflictInserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.course_id, c.name AS course_name")).
		WithArgs("stu-1", models.Monday, "10:00", "09:00").
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "course_name", "day_of_week", "start_time", "end_time"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	conflict, err := repo.CreateIfNoConflict(context.Background(), &models.Enrollment{
		StudentID: "stu-1",
		CourseID:  "crs-1",
		DayOfWeek: models.Monday,
		StartTime: timePtr("09:00"),
		EndTime:   timePtr("10:00"),
	})
	require.NoError(t, err)
	require.Nil(t, conflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateIfNoConflictBlocksOnOverlap(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"course_id", "course_name", "day_of_week", "start_time", "end_time"}).
		AddRow("crs-2", "Calculus", models.Monday, "09:30", "11:00")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.course_id, c.name AS course_name")).
		WithArgs("stu-1", models.Monday, "10:00", "09:00").
		WillReturnRows(rows)
	mock.ExpectRollback()

	conflict, err := repo.CreateIfNoConflict(context.Background(), &models.Enrollment{
		StudentID: "stu-1",
		CourseID:  "crs-1",
		DayOfWeek: models.Monday,
		StartTime: timePtr("09:00"),
		EndTime:   timePtr("10:00"),
	})
	require.NoError(t, err)
	require.NotNil(t, conflict)
	require.Equal(t, "crs-2", conflict.CourseID)
	require.Equal(t, "Calculus", conflict.CourseName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateIfNoConflictSkipsCheckWithoutTimes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	conflict, err := repo.CreateIfNoConflict(context.Background(), &models.Enrollment{
		StudentID: "stu-1",
		CourseID:  "crs-1",
		DayOfWeek: models.Friday,
	})
	require.NoError(t, err)
	require.Nil(t, conflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsByStudentAndCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2")).
		WithArgs("stu-1", "crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByStudentAndCourse(context.Background(), "stu-1", "crs-1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2")).
		WithArgs("stu-1", "crs-9").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsByStudentAndCourse(context.Background(), "stu-1", "crs-9")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
