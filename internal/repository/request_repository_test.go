package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campushq/school-portal-api/internal/models"
)

var errInsertFailed = errors.New("insert failed")

func TestRequestRepositoryProvisionApproved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_requests WHERE id = $1")).
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user := &models.User{Username: "jamesd03", Email: "james@example.com", Role: models.RoleStudent}
	student := &models.Student{FirstName: "James", LastName: "Doe", BirthDate: time.Date(2005, 3, 14, 0, 0, 0, 0, time.UTC)}
	notification := &models.Notification{Message: "Your account has been created with username jamesd03."}

	err := repo.ProvisionApproved(context.Background(), "req-1", user, student, notification)
	require.NoError(t, err)
	require.Equal(t, user.ID, student.UserID)
	require.Equal(t, user.ID, notification.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryProvisionApprovedAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_requests WHERE id = $1")).
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ProvisionApproved(context.Background(), "req-1",
		&models.User{Username: "jamesd03"}, &models.Student{}, nil)
	require.ErrorIs(t, err, ErrRequestAlreadyDecided)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryProvisionApprovedRollsBackOnStudentInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_requests WHERE id = $1")).
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnError(errInsertFailed)
	mock.ExpectRollback()

	err := repo.ProvisionApproved(context.Background(), "req-1",
		&models.User{Username: "jamesd03", Role: models.RoleStudent},
		&models.Student{FirstName: "James", LastName: "Doe"}, nil)
	require.ErrorIs(t, err, errInsertFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryAssignProgram(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET program_id = $2")).
		WithArgs("stu-1", "prg-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assigned, err := repo.AssignProgram(context.Background(), "stu-1", "prg-1")
	require.NoError(t, err)
	require.True(t, assigned)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET program_id = $2")).
		WithArgs("stu-1", "prg-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assigned, err = repo.AssignProgram(context.Background(), "stu-1", "prg-2")
	require.NoError(t, err)
	require.False(t, assigned)
	require.NoError(t, mock.ExpectationsWereMet())
}
