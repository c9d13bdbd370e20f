package shard

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

// Finder probes shards sequentially for a record whose owning region is not
// known up front (login by email, teacher course lookup). The first shard
// that holds the record wins; later shards are never consulted.
type Finder struct {
	router *Router
	logger *zap.Logger
}

// NewFinder builds a finder over the router's shard set.
func NewFinder(router *Router, logger *zap.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{router: router, logger: logger}
}

// FindFirst walks the shards in the given order and returns the first match
// together with the shard that produced it. A lookup reporting no rows moves
// on to the next shard; an unreachable shard is recorded and skipped. When
// every shard has been tried without a match the result is not-found, unless
// a shard was skipped, in which case the record may live on the unreachable
// shard and the caller gets shard-unavailable instead.
func FindFirst[T any](ctx context.Context, f *Finder, order []Key, lookup func(ctx context.Context, key Key, db *sqlx.DB) (*T, error)) (*T, Key, error) {
	if len(order) == 0 {
		order = LookupOrder()
	}

	var skipped bool
	for _, key := range order {
		var found *T
		err := f.router.Do(ctx, key, func(db *sqlx.DB) error {
			v, err := lookup(ctx, key, db)
			if err != nil {
				return err
			}
			found = v
			return nil
		})
		switch {
		case err == nil && found != nil:
			return found, key, nil
		case err == nil:
			continue
		case errors.Is(err, sql.ErrNoRows), errors.Is(err, appErrors.ErrNotFound):
			continue
		case Unavailable(err):
			f.logger.Warn("shard skipped during lookup",
				zap.String("shard", string(key)),
				zap.Error(err),
			)
			skipped = true
		default:
			return nil, key, err
		}
	}
	if skipped {
		return nil, "", appErrors.Clone(appErrors.ErrShardUnavailable, "record may reside on an unreachable regional database")
	}
	return nil, "", appErrors.Clone(appErrors.ErrNotFound, "")
}
