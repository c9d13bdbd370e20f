package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/edunexus/edunexus-api/internal/models"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs(int64(3), int64(11), int64(5), sqlmock.AnyArg(), 49.99, "dhaka").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))

	e := &models.Enrollment{StudentID: 3, CourseID: 11, TeacherID: 5, EnrollDate: now, PaidAmount: 49.99, Location: "dhaka"}
	require.NoError(t, repo.Create(context.Background(), db, e))
	require.Equal(t, int64(1), e.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), db, &models.Enrollment{StudentID: 3, CourseID: 11})
	require.ErrorIs(t, err, appErrors.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(int64(3), int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), db, 3, 11)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository()
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "course_id", "teacher_id", "enroll_date", "paid_amount", "location",
		"created_at", "updated_at", "course_title", "category", "thumbnail", "price",
		"student_name", "student_email", "teacher_name",
	}).AddRow(1, 3, 11, 5, now, 49.99, "dhaka", now, now, "Intro to Go", "Development", "/t.png", 49.99,
		"Rahim", "rahim@example.com", "Karim")
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments e")).
		WithArgs(int64(3)).
		WillReturnRows(rows)

	items, err := repo.ListByStudent(context.Background(), db, 3)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Intro to Go", items[0].CourseTitle)
	require.Equal(t, "Karim", items[0].TeacherName)
	require.NoError(t, mock.ExpectationsWereMet())
}
