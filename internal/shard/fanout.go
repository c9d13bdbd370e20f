package shard

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Tagged carries one per-shard result together with its provenance. Label is
// the human-facing region name and travels all the way to API responses.
type Tagged[T any] struct {
	Shard Key
	Label string
	Value T
}

// Aggregator fans a read query out to every shard concurrently. A failing
// shard is skipped and logged; it never fails the aggregate request.
type Aggregator struct {
	router  *Router
	logger  *zap.Logger
	timeout time.Duration
	onSkip  func(key Key, err error)
}

// NewAggregator builds an aggregator with a per-shard query timeout. The
// timeout bounds each regional query independently so one slow shard cannot
// hold the whole fan-out hostage.
func NewAggregator(router *Router, logger *zap.Logger, timeout time.Duration) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{router: router, logger: logger, timeout: timeout}
}

// OnShardFailure registers a hook invoked whenever a shard is skipped during
// a fan-out. Used to feed the skip counter metric.
func (a *Aggregator) OnShardFailure(fn func(key Key, err error)) {
	a.onSkip = fn
}

// Collect runs query against every shard concurrently and merges the results
// in the fixed shard order, each row tagged with its region of origin. Shards
// that error are skipped; their keys are returned so callers can decide
// whether a partial result is safe to cache.
func Collect[T any](ctx context.Context, a *Aggregator, query func(ctx context.Context, key Key, db *sqlx.DB) ([]T, error)) ([]Tagged[T], []Key) {
	keys := All()
	perShard := make([][]T, len(keys))

	var mu sync.Mutex
	var failed []Key

	var g errgroup.Group
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			sctx := ctx
			if a.timeout > 0 {
				var cancel context.CancelFunc
				sctx, cancel = context.WithTimeout(ctx, a.timeout)
				defer cancel()
			}
			err := a.router.Do(sctx, key, func(db *sqlx.DB) error {
				rows, err := query(sctx, key, db)
				if err != nil {
					return err
				}
				perShard[i] = rows
				return nil
			})
			if err != nil {
				a.logger.Warn("shard skipped during fan-out",
					zap.String("shard", string(key)),
					zap.Error(err),
				)
				mu.Lock()
				failed = append(failed, key)
				mu.Unlock()
				if a.onSkip != nil {
					a.onSkip(key, err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	var merged []Tagged[T]
	for i, key := range keys {
		for _, v := range perShard[i] {
			merged = append(merged, Tagged[T]{Shard: key, Label: key.Label(), Value: v})
		}
	}
	return merged, failed
}

// RankDesc sorts tagged rows by metric descending. Ties break on shard key
// then on id, both ascending, so repeated calls over the same data always
// produce the same order.
func RankDesc[T any](items []Tagged[T], metric func(T) float64, id func(T) int64) {
	sort.SliceStable(items, func(i, j int) bool {
		mi, mj := metric(items[i].Value), metric(items[j].Value)
		if mi != mj {
			return mi > mj
		}
		if items[i].Shard != items[j].Shard {
			return items[i].Shard < items[j].Shard
		}
		return id(items[i].Value) < id(items[j].Value)
	})
}

// TopN truncates the ranked slice to at most n entries.
func TopN[T any](items []Tagged[T], n int) []Tagged[T] {
	if n < 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

// Shuffle permutes tagged rows using the supplied source. The source is
// injected so suggestion endpoints stay testable.
func Shuffle[T any](rng *rand.Rand, items []Tagged[T]) {
	rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// Distinct merges tagged string values into a deduplicated, sorted list.
// Used for category listings where the same category exists on every shard.
func Distinct(items []Tagged[string]) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, item := range items {
		if _, ok := seen[item.Value]; ok {
			continue
		}
		seen[item.Value] = struct{}{}
		out = append(out, item.Value)
	}
	sort.Strings(out)
	return out
}
