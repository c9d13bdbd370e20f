package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edunexus/edunexus-api/internal/models"
)

// CatalogRepository serves the storefront projections of courses. All of its
// queries are shard-local; cross-region merging happens above it.
type CatalogRepository struct{}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{}
}

// summarySelect projects a course row into its storefront summary. Rating
// and sell count are correlated aggregates so courses without ratings or
// sales still appear, with zeroes.
const summarySelect = `SELECT c.id, c.title, c.description, c.category, c.price, c.thumbnail,
        u.name AS instructor, u.email AS teacher_email,
        COALESCE((SELECT AVG(r.rating) FROM ratings r WHERE r.course_id = c.id), 0) AS rating,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS sell_count,
        (SELECT v.video_url FROM videos v
            JOIN modules m ON m.id = v.module_id
            WHERE m.course_id = c.id
            ORDER BY m.position, m.id, v.position, v.id LIMIT 1) AS first_video_url
    FROM courses c
    JOIN users u ON u.user_id = c.teacher_id`

// TopByRating returns this shard's best rated courses.
func (r *CatalogRepository) TopByRating(ctx context.Context, q sqlx.ExtContext, limit int) ([]models.CourseSummary, error) {
	var items []models.CourseSummary
	query := summarySelect + ` ORDER BY rating DESC, c.id LIMIT $1`
	if err := sqlx.SelectContext(ctx, q, &items, query, limit); err != nil {
		return nil, fmt.Errorf("top rated courses: %w", err)
	}
	return items, nil
}

// TopBySales returns this shard's best selling courses.
func (r *CatalogRepository) TopBySales(ctx context.Context, q sqlx.ExtContext, limit int) ([]models.CourseSummary, error) {
	var items []models.CourseSummary
	query := summarySelect + ` ORDER BY sell_count DESC, c.id LIMIT $1`
	if err := sqlx.SelectContext(ctx, q, &items, query, limit); err != nil {
		return nil, fmt.Errorf("top selling courses: %w", err)
	}
	return items, nil
}

// RandomSample returns up to limit random courses from this shard.
func (r *CatalogRepository) RandomSample(ctx context.Context, q sqlx.ExtContext, limit int) ([]models.CourseSummary, error) {
	var items []models.CourseSummary
	query := summarySelect + ` ORDER BY RANDOM() LIMIT $1`
	if err := sqlx.SelectContext(ctx, q, &items, query, limit); err != nil {
		return nil, fmt.Errorf("sample courses: %w", err)
	}
	return items, nil
}

// ListAll returns every course summary on this shard.
func (r *CatalogRepository) ListAll(ctx context.Context, q sqlx.ExtContext) ([]models.CourseSummary, error) {
	var items []models.CourseSummary
	query := summarySelect + ` ORDER BY c.id`
	if err := sqlx.SelectContext(ctx, q, &items, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return items, nil
}

// Categories returns the distinct categories present on this shard.
func (r *CatalogRepository) Categories(ctx context.Context, q sqlx.ExtContext) ([]string, error) {
	var categories []string
	query := `SELECT DISTINCT category FROM courses ORDER BY category`
	if err := sqlx.SelectContext(ctx, q, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByIDAndTeacherEmail fetches the summary matching both keys. Per-shard
// course IDs repeat across regions; the teacher email disambiguates which
// region's course was meant.
func (r *CatalogRepository) FindByIDAndTeacherEmail(ctx context.Context, q sqlx.ExtContext, id int64, teacherEmail string) (*models.CourseSummary, error) {
	var item models.CourseSummary
	query := summarySelect + ` WHERE c.id = $1 AND u.email = $2`
	if err := sqlx.GetContext(ctx, q, &item, query, id, teacherEmail); err != nil {
		return nil, fmt.Errorf("find course by id and teacher: %w", err)
	}
	return &item, nil
}
