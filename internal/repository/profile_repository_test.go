package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/edunexus/edunexus-api/internal/models"
)

func newProfileRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestProfileRepositoryFindOrCreateSkill(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO skills (skill_name)")).
		WithArgs("golang").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := repo.FindOrCreateSkill(context.Background(), db, "golang")
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryReplaceSkills(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_skills WHERE user_id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_skills (user_id, skill_id)")).
		WithArgs(int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_skills (user_id, skill_id)")).
		WithArgs(int64(3), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReplaceSkills(context.Background(), db, 3, []int64{7, 8}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryAppendSkillsKeepsExisting(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository()
	// No DELETE: append must not touch existing links.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_skills (user_id, skill_id)")).
		WithArgs(int64(3), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AppendSkills(context.Background(), db, 3, []int64{9}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryGetStudentProfileAbsent(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository()
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_profiles WHERE student_id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "profile_picture", "mobile", "bio"}))

	p, err := repo.GetStudentProfile(context.Background(), db, 3)
	require.NoError(t, err)
	require.Nil(t, p)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryUpsertStudentProfile(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_profiles")).
		WithArgs(int64(3), "/p.png", "01700000000", "learner").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &models.StudentProfile{StudentID: 3, ProfilePicture: "/p.png", Mobile: "01700000000", Bio: "learner"}
	require.NoError(t, repo.UpsertStudentProfile(context.Background(), db, p))
	require.NoError(t, mock.ExpectationsWereMet())
}
