package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/shard"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

type catalogRepository interface {
	TopByRating(ctx context.Context, q sqlx.ExtContext, limit int) ([]models.CourseSummary, error)
	TopBySales(ctx context.Context, q sqlx.ExtContext, limit int) ([]models.CourseSummary, error)
	RandomSample(ctx context.Context, q sqlx.ExtContext, limit int) ([]models.CourseSummary, error)
	ListAll(ctx context.Context, q sqlx.ExtContext) ([]models.CourseSummary, error)
	Categories(ctx context.Context, q sqlx.ExtContext) ([]string, error)
	FindByIDAndTeacherEmail(ctx context.Context, q sqlx.ExtContext, id int64, teacherEmail string) (*models.CourseSummary, error)
}

const (
	topListSize        = 5
	suggestedPerShard  = 2
	cacheKeyTopRated   = "catalog:top-rated"
	cacheKeyTopSelling = "catalog:top-selling"
	cacheKeyCategories = "catalog:categories"
)

// CatalogService serves the cross-region storefront. Every read fans out to
// all shards, tags rows with their region, and merges; a region being down
// shrinks the result instead of failing it.
type CatalogService struct {
	agg    *shard.Aggregator
	finder *shard.Finder
	repo   catalogRepository
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewCatalogService constructs a CatalogService. cache may be nil to disable
// caching; rng may be nil for a time-seeded source.
func NewCatalogService(agg *shard.Aggregator, finder *shard.Finder, repo catalogRepository, cache *redis.Client, ttl time.Duration, rng *rand.Rand, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &CatalogService{agg: agg, finder: finder, repo: repo, cache: cache, ttl: ttl, rng: rng, logger: logger}
}

// TopRated returns the five best rated courses across all regions.
func (s *CatalogService) TopRated(ctx context.Context) ([]models.CatalogCourse, error) {
	if cached, ok := s.cachedList(ctx, cacheKeyTopRated); ok {
		return cached, nil
	}
	merged, failed := shard.Collect(ctx, s.agg, func(ctx context.Context, key shard.Key, db *sqlx.DB) ([]models.CourseSummary, error) {
		return s.repo.TopByRating(ctx, db, topListSize)
	})
	if err := allShardsDown(merged, failed); err != nil {
		return nil, err
	}
	shard.RankDesc(merged, func(c models.CourseSummary) float64 { return c.Rating }, func(c models.CourseSummary) int64 { return c.ID })
	result := toCatalog(shard.TopN(merged, topListSize))
	s.storeList(ctx, cacheKeyTopRated, result, failed)
	return result, nil
}

// TopSelling returns the five best selling courses across all regions.
func (s *CatalogService) TopSelling(ctx context.Context) ([]models.CatalogCourse, error) {
	if cached, ok := s.cachedList(ctx, cacheKeyTopSelling); ok {
		return cached, nil
	}
	merged, failed := shard.Collect(ctx, s.agg, func(ctx context.Context, key shard.Key, db *sqlx.DB) ([]models.CourseSummary, error) {
		return s.repo.TopBySales(ctx, db, topListSize)
	})
	if err := allShardsDown(merged, failed); err != nil {
		return nil, err
	}
	shard.RankDesc(merged, func(c models.CourseSummary) float64 { return float64(c.SellCount) }, func(c models.CourseSummary) int64 { return c.ID })
	result := toCatalog(shard.TopN(merged, topListSize))
	s.storeList(ctx, cacheKeyTopSelling, result, failed)
	return result, nil
}

// Suggested returns up to five random courses, sampled two per region and
// shuffled so no region dominates the opening slots.
func (s *CatalogService) Suggested(ctx context.Context) ([]models.CatalogCourse, error) {
	merged, failed := shard.Collect(ctx, s.agg, func(ctx context.Context, key shard.Key, db *sqlx.DB) ([]models.CourseSummary, error) {
		return s.repo.RandomSample(ctx, db, suggestedPerShard)
	})
	if err := allShardsDown(merged, failed); err != nil {
		return nil, err
	}
	s.shuffle(merged)
	return toCatalog(shard.TopN(merged, topListSize)), nil
}

// AllCourses returns every course across all regions in shuffled order.
func (s *CatalogService) AllCourses(ctx context.Context) ([]models.CatalogCourse, error) {
	merged, failed := shard.Collect(ctx, s.agg, func(ctx context.Context, key shard.Key, db *sqlx.DB) ([]models.CourseSummary, error) {
		return s.repo.ListAll(ctx, db)
	})
	if err := allShardsDown(merged, failed); err != nil {
		return nil, err
	}
	s.shuffle(merged)
	return toCatalog(merged), nil
}

// Categories returns the distinct course categories across all regions.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKeyCategories).Bytes(); err == nil {
			var cached []string
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}
	merged, failed := shard.Collect(ctx, s.agg, func(ctx context.Context, key shard.Key, db *sqlx.DB) ([]string, error) {
		return s.repo.Categories(ctx, db)
	})
	if err := allShardsDown(merged, failed); err != nil {
		return nil, err
	}
	categories := shard.Distinct(merged)
	if s.cache != nil && len(failed) == 0 {
		if raw, err := json.Marshal(categories); err == nil {
			if err := s.cache.Set(ctx, cacheKeyCategories, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("failed to cache categories", zap.Error(err))
			}
		}
	}
	return categories, nil
}

// FindAcrossShards locates a course by its per-shard ID and the teacher's
// email, probing regions in the fixed lookup order.
func (s *CatalogService) FindAcrossShards(ctx context.Context, id int64, teacherEmail string) (*models.CatalogCourse, error) {
	summary, key, err := shard.FindFirst(ctx, s.finder, shard.LookupOrder(), func(ctx context.Context, key shard.Key, db *sqlx.DB) (*models.CourseSummary, error) {
		return s.repo.FindByIDAndTeacherEmail(ctx, db, id, teacherEmail)
	})
	if errors.Is(err, appErrors.ErrNotFound) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found in any region")
	}
	if err != nil {
		return nil, err
	}
	course := models.CatalogCourse{CourseSummary: *summary, Location: key.Label()}
	course.Rating = roundRating(course.Rating)
	return &course, nil
}

func (s *CatalogService) shuffle(items []shard.Tagged[models.CourseSummary]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shard.Shuffle(s.rng, items)
}

// cachedList reads a cached catalog listing; a miss or decode failure falls
// through to the shards.
func (s *CatalogService) cachedList(ctx context.Context, cacheKey string) ([]models.CatalogCourse, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("catalog cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
		return nil, false
	}
	var cached []models.CatalogCourse
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false
	}
	return cached, true
}

// storeList caches a listing, but never a partial one: a result computed
// while a region was down must not be served for the whole TTL.
func (s *CatalogService) storeList(ctx context.Context, cacheKey string, items []models.CatalogCourse, failed []shard.Key) {
	if s.cache == nil || len(failed) > 0 {
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("catalog cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
}

func toCatalog(items []shard.Tagged[models.CourseSummary]) []models.CatalogCourse {
	out := make([]models.CatalogCourse, len(items))
	for i, item := range items {
		out[i] = models.CatalogCourse{CourseSummary: item.Value, Location: item.Label}
		out[i].Rating = roundRating(out[i].Rating)
	}
	return out
}

func roundRating(r float64) float64 {
	return math.Round(r*10) / 10
}

// allShardsDown converts a fully failed fan-out into an error; partial
// results pass through.
func allShardsDown[T any](merged []shard.Tagged[T], failed []shard.Key) error {
	if len(merged) == 0 && len(failed) == len(shard.All()) {
		return appErrors.Clone(appErrors.ErrShardUnavailable, "all regional databases are unavailable")
	}
	return nil
}
