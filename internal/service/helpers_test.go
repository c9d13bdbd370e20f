package service

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edunexus/edunexus-api/internal/shard"
)

// testShards wires a real router, finder and aggregator over sqlmock-backed
// pools. Repos in these tests are hand mocks; shardOf lets them tell which
// region a handle belongs to.
type testShards struct {
	router  *shard.Router
	finder  *shard.Finder
	agg     *shard.Aggregator
	mocks   map[shard.Key]sqlmock.Sqlmock
	handles map[*sqlx.DB]shard.Key
}

func newTestShards(t *testing.T) (*testShards, func()) {
	t.Helper()
	pools := make(map[shard.Key]*sqlx.DB, 3)
	mocks := make(map[shard.Key]sqlmock.Sqlmock, 3)
	handles := make(map[*sqlx.DB]shard.Key, 3)
	var closers []func()
	for _, key := range shard.All() {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		require.NoError(t, err)
		wrapped := sqlx.NewDb(db, "sqlmock")
		pools[key] = wrapped
		mocks[key] = mock
		handles[wrapped] = key
		closers = append(closers, func() { db.Close() })
	}
	router := shard.NewRouter(pools, zap.NewNop())
	ts := &testShards{
		router:  router,
		finder:  shard.NewFinder(router, zap.NewNop()),
		agg:     shard.NewAggregator(router, zap.NewNop(), 0),
		mocks:   mocks,
		handles: handles,
	}
	return ts, func() {
		for _, c := range closers {
			c()
		}
	}
}

// shardOf resolves the region a repository call is running against. Calls
// made inside a transaction belong to the transaction's pool, which these
// tests do not need to distinguish.
func (ts *testShards) shardOf(q sqlx.ExtContext) shard.Key {
	if db, ok := q.(*sqlx.DB); ok {
		return ts.handles[db]
	}
	return ""
}
