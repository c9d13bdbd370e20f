package shard

import (
	"context"
	"database/sql/driver"
	"math/rand"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (*Router, func()) {
	t.Helper()
	pools := make(map[Key]*sqlx.DB, 3)
	var closers []func()
	for _, key := range All() {
		db, _, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		require.NoError(t, err)
		pools[key] = sqlx.NewDb(db, "sqlmock")
		closers = append(closers, func() { db.Close() })
	}
	return NewRouter(pools, zap.NewNop()), func() {
		for _, c := range closers {
			c()
		}
	}
}

type row struct {
	ID    int64
	Score float64
}

func TestCollectMergesAndTagsByShard(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	agg := NewAggregator(router, zap.NewNop(), time.Second)
	data := map[Key][]row{
		Dhaka:   {{ID: 1, Score: 4.5}},
		Khulna:  {{ID: 1, Score: 3.0}, {ID: 2, Score: 2.0}},
		Rajsahi: {{ID: 7, Score: 5.0}},
	}

	merged, failed := Collect(context.Background(), agg, func(ctx context.Context, key Key, db *sqlx.DB) ([]row, error) {
		return data[key], nil
	})
	require.Empty(t, failed)
	require.Len(t, merged, 4)

	// Results come back in fixed shard order, each tagged with its region.
	require.Equal(t, Dhaka, merged[0].Shard)
	require.Equal(t, "Dhaka", merged[0].Label)
	require.Equal(t, Khulna, merged[1].Shard)
	require.Equal(t, Khulna, merged[2].Shard)
	require.Equal(t, Rajsahi, merged[3].Shard)
	require.Equal(t, int64(7), merged[3].Value.ID)
}

func TestCollectSkipsFailedShard(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	agg := NewAggregator(router, zap.NewNop(), time.Second)
	var skipped []Key
	agg.OnShardFailure(func(key Key, err error) { skipped = append(skipped, key) })

	merged, failed := Collect(context.Background(), agg, func(ctx context.Context, key Key, db *sqlx.DB) ([]row, error) {
		if key == Khulna {
			return nil, driver.ErrBadConn
		}
		return []row{{ID: 1, Score: 1.0}}, nil
	})

	require.Equal(t, []Key{Khulna}, failed)
	require.Equal(t, []Key{Khulna}, skipped)
	require.Len(t, merged, 2)
	for _, item := range merged {
		require.NotEqual(t, Khulna, item.Shard)
	}
}

func TestRankDescBreaksTiesDeterministically(t *testing.T) {
	items := []Tagged[row]{
		{Shard: Rajsahi, Label: "Rajsahi", Value: row{ID: 2, Score: 4.0}},
		{Shard: Dhaka, Label: "Dhaka", Value: row{ID: 9, Score: 4.0}},
		{Shard: Dhaka, Label: "Dhaka", Value: row{ID: 3, Score: 4.0}},
		{Shard: Khulna, Label: "Khulna", Value: row{ID: 1, Score: 5.0}},
	}
	RankDesc(items, func(r row) float64 { return r.Score }, func(r row) int64 { return r.ID })

	require.Equal(t, Khulna, items[0].Shard)
	// Among the 4.0 ties: shard key ascending, then id ascending.
	require.Equal(t, Dhaka, items[1].Shard)
	require.Equal(t, int64(3), items[1].Value.ID)
	require.Equal(t, Dhaka, items[2].Shard)
	require.Equal(t, int64(9), items[2].Value.ID)
	require.Equal(t, Rajsahi, items[3].Shard)

	top := TopN(items, 2)
	require.Len(t, top, 2)
	require.Equal(t, Khulna, top[0].Shard)
}

func TestTopNShorterThanLimit(t *testing.T) {
	items := []Tagged[row]{{Shard: Dhaka, Value: row{ID: 1}}}
	require.Len(t, TopN(items, 5), 1)
}

func TestShufflePreservesElements(t *testing.T) {
	items := []Tagged[row]{
		{Shard: Dhaka, Value: row{ID: 1}},
		{Shard: Dhaka, Value: row{ID: 2}},
		{Shard: Khulna, Value: row{ID: 1}},
		{Shard: Rajsahi, Value: row{ID: 4}},
	}
	Shuffle(rand.New(rand.NewSource(42)), items)
	require.Len(t, items, 4)
	ids := map[Key][]int64{}
	for _, item := range items {
		ids[item.Shard] = append(ids[item.Shard], item.Value.ID)
	}
	require.Len(t, ids[Dhaka], 2)
	require.Len(t, ids[Khulna], 1)
	require.Len(t, ids[Rajsahi], 1)
}

func TestDistinctMergesCategories(t *testing.T) {
	items := []Tagged[string]{
		{Shard: Dhaka, Value: "Design"},
		{Shard: Khulna, Value: "Business"},
		{Shard: Khulna, Value: "Design"},
		{Shard: Rajsahi, Value: "Business"},
		{Shard: Rajsahi, Value: "Music"},
	}
	require.Equal(t, []string{"Business", "Design", "Music"}, Distinct(items))
}
