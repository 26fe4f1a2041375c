package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/campushq/school-portal-api/internal/models"
)

func TestGradeRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grades")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	grade := &models.Grade{StudentID: "stu-1", CourseID: "crs-1", Grade: "A-"}
	require.NoError(t, repo.Create(context.Background(), grade))
	require.NotEmpty(t, grade.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grades")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Grade{StudentID: "stu-1", CourseID: "crs-1", Grade: "B"})
	require.ErrorIs(t, err, ErrDuplicateGrade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListDetailsByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "grade", "course_name", "semester"}).
		AddRow("grd-1", "stu-1", "crs-1", "A", "Algebra", models.Semester1).
		AddRow("grd-2", "stu-1", "crs-2", "B+", "Biology", models.Semester2)
	mock.ExpectQuery(regexp.QuoteMeta("FROM grades g")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	grades, err := repo.ListDetailsByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, grades, 2)
	require.Equal(t, "Algebra", grades[0].CourseName)
	require.NoError(t, mock.ExpectationsWereMet())
}
