package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newCatalogRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func summaryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "description", "category", "price", "thumbnail",
		"instructor", "teacher_email", "rating", "sell_count", "first_video_url",
	})
}

func TestCatalogRepositoryTopByRating(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()

	repo := NewCatalogRepository()
	rows := summaryRows().
		AddRow(2, "Advanced SQL", "desc", "IT & Software", 99.0, "/a.png", "Karim", "karim@example.com", 4.7, 120, "http://cdn/v1.mp4").
		AddRow(9, "Unrated Course", "desc", "Music", 10.0, "/b.png", "Salma", "salma@example.com", 0, 0, nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY rating DESC, c.id LIMIT $1")).
		WithArgs(5).
		WillReturnRows(rows)

	items, err := repo.TopByRating(context.Background(), db, 5)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 4.7, items[0].Rating)
	// Courses with no ratings still appear, with a zero aggregate.
	require.Zero(t, items[1].Rating)
	require.Nil(t, items[1].FirstVideoURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryCategories(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()

	repo := NewCatalogRepository()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT category FROM courses")).
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("Business").AddRow("Design"))

	categories, err := repo.Categories(context.Background(), db)
	require.NoError(t, err)
	require.Equal(t, []string{"Business", "Design"}, categories)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryFindByIDAndTeacherEmailNotFound(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()

	repo := NewCatalogRepository()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = $1 AND u.email = $2")).
		WithArgs(int64(4), "nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByIDAndTeacherEmail(context.Background(), db, 4, "nobody@example.com")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
