package shard

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

// Router owns one pooled connection per shard and hands out explicit handles.
// There is deliberately no notion of an "active" or default shard: every
// caller states which shard it talks to, so concurrent requests for different
// regions can never race on shared connection state.
type Router struct {
	pools    map[Key]*sqlx.DB
	breakers map[Key]*gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewRouter wraps the provided per-shard pools. Each shard gets its own
// circuit breaker so a downed region is reported immediately instead of
// burning a connection timeout on every request.
func NewRouter(pools map[Key]*sqlx.DB, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	breakers := make(map[Key]*gobreaker.CircuitBreaker, len(pools))
	for key := range pools {
		key := key
		breakers[key] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "shard-" + string(key),
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("shard breaker state change",
					zap.String("shard", string(key)),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
			IsSuccessful: func(err error) bool {
				// A caller abort says nothing about the shard's health:
				// the query never ran to completion. Server-side deadlines
				// from the fan-out budget still count against the shard.
				if errors.Is(err, context.Canceled) {
					return true
				}
				return !isInfrastructureError(err)
			},
		})
	}
	return &Router{pools: pools, breakers: breakers, logger: logger}
}

// Handle returns the connection pool for the given shard. It fails with
// ShardUnavailable when the shard is unknown to the router or its breaker is
// open. The pool itself is safe for concurrent use; callers must pass it
// explicitly into every repository call.
func (r *Router) Handle(key Key) (*sqlx.DB, error) {
	db, ok := r.pools[key]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrShardUnavailable, "no connection registered for shard "+string(key))
	}
	if cb, ok := r.breakers[key]; ok && cb.State() == gobreaker.StateOpen {
		return nil, appErrors.Clone(appErrors.ErrShardUnavailable, "shard "+string(key)+" is unavailable")
	}
	return db, nil
}

// Do runs fn against the shard's pool through its circuit breaker. Domain
// errors (not-found, conflicts) pass through untouched and do not count
// against the breaker; infrastructure failures do.
func (r *Router) Do(ctx context.Context, key Key, fn func(db *sqlx.DB) error) error {
	db, ok := r.pools[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrShardUnavailable, "no connection registered for shard "+string(key))
	}
	cb := r.breakers[key]
	_, err := cb.Execute(func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fn(db)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return appErrors.Wrap(err, appErrors.ErrShardUnavailable.Code, appErrors.ErrShardUnavailable.Status, "shard "+string(key)+" is unavailable")
	}
	return err
}

// Close releases every shard pool.
func (r *Router) Close() error {
	var firstErr error
	for key, db := range r.pools {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		} else if err != nil {
			r.logger.Warn("close shard pool", zap.String("shard", string(key)), zap.Error(err))
		}
	}
	return firstErr
}

// Unavailable reports whether err denotes a shard connectivity problem as
// opposed to a domain outcome.
func Unavailable(err error) bool {
	return errors.Is(err, appErrors.ErrShardUnavailable) || isInfrastructureError(err)
}

// isInfrastructureError separates connectivity failures from domain results.
// Only the former should trip a shard breaker or mark a shard as skipped.
func isInfrastructureError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Code == appErrors.ErrShardUnavailable.Code
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exceptions; class 57: operator intervention
		// (shutdown, crash). Everything else is a statement-level problem.
		class := pqErr.Code.Class()
		return class == "08" || class == "57"
	}
	return true
}
