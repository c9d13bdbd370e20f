package service

import (
	"context"
	"database/sql/driver"
	"math/rand"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/shard"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

type mockCatalogRepo struct {
	ts       *testShards
	perShard map[shard.Key][]models.CourseSummary
	failing  map[shard.Key]error
}

func (m *mockCatalogRepo) shardData(q sqlx.ExtContext) ([]models.CourseSummary, error) {
	key := m.ts.shardOf(q)
	if err, ok := m.failing[key]; ok {
		return nil, err
	}
	return m.perShard[key], nil
}

func (m *mockCatalogRepo) TopByRating(ctx context.Context, q sqlx.ExtContext, limit int) ([]models.CourseSummary, error) {
	return m.shardData(q)
}

func (m *mockCatalogRepo) TopBySales(ctx context.Context, q sqlx.ExtContext, limit int) ([]models.CourseSummary, error) {
	return m.shardData(q)
}

func (m *mockCatalogRepo) RandomSample(ctx context.Context, q sqlx.ExtContext, limit int) ([]models.CourseSummary, error) {
	rows, err := m.shardData(q)
	if err != nil {
		return nil, err
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *mockCatalogRepo) ListAll(ctx context.Context, q sqlx.ExtContext) ([]models.CourseSummary, error) {
	return m.shardData(q)
}

func (m *mockCatalogRepo) Categories(ctx context.Context, q sqlx.ExtContext) ([]string, error) {
	rows, err := m.shardData(q)
	if err != nil {
		return nil, err
	}
	cats := make([]string, 0, len(rows))
	for _, r := range rows {
		cats = append(cats, r.Category)
	}
	return cats, nil
}

func (m *mockCatalogRepo) FindByIDAndTeacherEmail(ctx context.Context, q sqlx.ExtContext, id int64, teacherEmail string) (*models.CourseSummary, error) {
	rows, err := m.shardData(q)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].ID == id && rows[i].TeacherEmail == teacherEmail {
			return &rows[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "")
}

func newCatalogFixture(t *testing.T) (*CatalogService, *mockCatalogRepo, func()) {
	ts, cleanup := newTestShards(t)
	repo := &mockCatalogRepo{
		ts:       ts,
		perShard: map[shard.Key][]models.CourseSummary{},
		failing:  map[shard.Key]error{},
	}
	svc := NewCatalogService(ts.agg, ts.finder, repo, nil, 0, rand.New(rand.NewSource(42)), zap.NewNop())
	return svc, repo, cleanup
}

func course(id int64, title, category string, rating float64, sold int64) models.CourseSummary {
	return models.CourseSummary{ID: id, Title: title, Category: category, Rating: rating, SellCount: sold, TeacherEmail: "teach@example.com"}
}

func TestTopRatedMergesAcrossRegionsAndTruncates(t *testing.T) {
	svc, repo, cleanup := newCatalogFixture(t)
	defer cleanup()

	repo.perShard[shard.Dhaka] = []models.CourseSummary{course(1, "Go Basics", "Development", 4.85, 10), course(2, "SQL", "Development", 4.2, 3)}
	repo.perShard[shard.Khulna] = []models.CourseSummary{course(1, "Painting", "Design", 4.9, 5), course(2, "Yoga", "Health & Fitness", 3.9, 8)}
	repo.perShard[shard.Rajsahi] = []models.CourseSummary{course(1, "Finance", "Finance & Accounting", 4.85, 2), course(2, "Drums", "Music", 4.0, 1)}

	got, err := svc.TopRated(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 5)

	require.Equal(t, "Painting", got[0].Title)
	require.Equal(t, "Khulna", got[0].Location)
	// 4.85 tie between Dhaka and Rajsahi resolves by region order.
	require.Equal(t, "Go Basics", got[1].Title)
	require.Equal(t, "Dhaka", got[1].Location)
	require.Equal(t, "Finance", got[2].Title)
	require.Equal(t, "Rajsahi", got[2].Location)
	// Ratings come back rounded to one decimal.
	require.Equal(t, 4.9, got[1].Rating)
}

func TestTopSellingSkipsDownRegion(t *testing.T) {
	svc, repo, cleanup := newCatalogFixture(t)
	defer cleanup()

	repo.perShard[shard.Dhaka] = []models.CourseSummary{course(1, "Go Basics", "Development", 4.5, 40)}
	repo.perShard[shard.Rajsahi] = []models.CourseSummary{course(1, "Finance", "Finance & Accounting", 4.0, 90)}
	repo.failing[shard.Khulna] = driver.ErrBadConn

	got, err := svc.TopSelling(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Finance", got[0].Title)
	require.Equal(t, "Go Basics", got[1].Title)
}

func TestTopRatedAllRegionsDown(t *testing.T) {
	svc, repo, cleanup := newCatalogFixture(t)
	defer cleanup()

	for _, key := range shard.All() {
		repo.failing[key] = driver.ErrBadConn
	}

	_, err := svc.TopRated(context.Background())
	require.ErrorIs(t, err, appErrors.ErrShardUnavailable)
}

func TestSuggestedSamplesAtMostFive(t *testing.T) {
	svc, repo, cleanup := newCatalogFixture(t)
	defer cleanup()

	repo.perShard[shard.Dhaka] = []models.CourseSummary{course(1, "A", "Development", 4, 1), course(2, "B", "Development", 4, 1), course(3, "C", "Development", 4, 1)}
	repo.perShard[shard.Khulna] = []models.CourseSummary{course(1, "D", "Design", 4, 1), course(2, "E", "Design", 4, 1)}
	repo.perShard[shard.Rajsahi] = []models.CourseSummary{course(1, "F", "Music", 4, 1)}

	got, err := svc.Suggested(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 5)

	titles := make(map[string]bool, len(got))
	for _, c := range got {
		titles[c.Title] = true
	}
	// Two per region at most, so the lone Rajsahi course always appears.
	require.True(t, titles["F"])
	require.Len(t, titles, 5)
}

func TestCategoriesAreDistinctAndSorted(t *testing.T) {
	svc, repo, cleanup := newCatalogFixture(t)
	defer cleanup()

	repo.perShard[shard.Dhaka] = []models.CourseSummary{course(1, "A", "Music", 4, 1), course(2, "B", "Design", 4, 1)}
	repo.perShard[shard.Khulna] = []models.CourseSummary{course(1, "C", "Design", 4, 1)}
	repo.perShard[shard.Rajsahi] = []models.CourseSummary{course(1, "D", "Development", 4, 1)}

	got, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Design", "Development", "Music"}, got)
}

func TestFindAcrossShardsReturnsFirstMatch(t *testing.T) {
	svc, repo, cleanup := newCatalogFixture(t)
	defer cleanup()

	// Same course ID exists in two regions; lookup order means Rajsahi is
	// probed before Khulna.
	repo.perShard[shard.Rajsahi] = []models.CourseSummary{course(7, "Finance", "Finance & Accounting", 4.44, 2)}
	repo.perShard[shard.Khulna] = []models.CourseSummary{course(7, "Painting", "Design", 4.9, 5)}

	got, err := svc.FindAcrossShards(context.Background(), 7, "teach@example.com")
	require.NoError(t, err)
	require.Equal(t, "Finance", got.Title)
	require.Equal(t, "Rajsahi", got.Location)
	require.Equal(t, 4.4, got.Rating)
}

func TestFindAcrossShardsNotFound(t *testing.T) {
	svc, _, cleanup := newCatalogFixture(t)
	defer cleanup()

	_, err := svc.FindAcrossShards(context.Background(), 99, "nobody@example.com")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}
