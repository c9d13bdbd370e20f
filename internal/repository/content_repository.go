package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edunexus/edunexus-api/internal/models"
)

// ContentRepository manages modules, videos and live classes. Content rows
// live on the same shard as their course.
type ContentRepository struct{}

// NewContentRepository constructs a ContentRepository.
func NewContentRepository() *ContentRepository {
	return &ContentRepository{}
}

// CreateModule appends a module to a course.
func (r *ContentRepository) CreateModule(ctx context.Context, q sqlx.ExtContext, module *models.Module) error {
	query := `INSERT INTO modules (course_id, title, position, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
        RETURNING id, created_at, updated_at`
	if err := sqlx.GetContext(ctx, q, module, query, module.CourseID, module.Title, module.Position); err != nil {
		return fmt.Errorf("create module: %w", err)
	}
	return nil
}

// FindModule fetches one module.
func (r *ContentRepository) FindModule(ctx context.Context, q sqlx.ExtContext, id int64) (*models.Module, error) {
	var module models.Module
	query := `SELECT id, course_id, title, position, created_at, updated_at FROM modules WHERE id = $1`
	if err := sqlx.GetContext(ctx, q, &module, query, id); err != nil {
		return nil, fmt.Errorf("find module %d: %w", id, err)
	}
	return &module, nil
}

// ListModulesByCourse returns a course's modules in lesson order.
func (r *ContentRepository) ListModulesByCourse(ctx context.Context, q sqlx.ExtContext, courseID int64) ([]models.Module, error) {
	var modules []models.Module
	query := `SELECT id, course_id, title, position, created_at, updated_at
        FROM modules WHERE course_id = $1 ORDER BY position, id`
	if err := sqlx.SelectContext(ctx, q, &modules, query, courseID); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// CreateVideo attaches a recorded lesson to a module.
func (r *ContentRepository) CreateVideo(ctx context.Context, q sqlx.ExtContext, video *models.Video) error {
	query := `INSERT INTO videos (module_id, title, video_url, position, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING id, created_at, updated_at`
	if err := sqlx.GetContext(ctx, q, video, query, video.ModuleID, video.Title, video.VideoURL, video.Position); err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	return nil
}

// ListVideosByModules returns the videos of the given modules in lesson
// order, batched to avoid one query per module.
func (r *ContentRepository) ListVideosByModules(ctx context.Context, q sqlx.ExtContext, moduleIDs []int64) ([]models.Video, error) {
	if len(moduleIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, module_id, title, video_url, position, created_at, updated_at
        FROM videos WHERE module_id IN (?) ORDER BY module_id, position, id`, moduleIDs)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	var videos []models.Video
	if err := sqlx.SelectContext(ctx, q, &videos, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

// CreateLiveClass schedules a live session on a module.
func (r *ContentRepository) CreateLiveClass(ctx context.Context, q sqlx.ExtContext, lc *models.LiveClass) error {
	query := `INSERT INTO live_classes (module_id, title, schedule, link, duration, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING id, created_at, updated_at`
	if err := sqlx.GetContext(ctx, q, lc, query, lc.ModuleID, lc.Title, lc.Schedule, lc.Link, lc.Duration); err != nil {
		return fmt.Errorf("create live class: %w", err)
	}
	return nil
}

// FindLiveClass fetches one live class.
func (r *ContentRepository) FindLiveClass(ctx context.Context, q sqlx.ExtContext, id int64) (*models.LiveClass, error) {
	var lc models.LiveClass
	query := `SELECT id, module_id, title, schedule, link, duration, created_at, updated_at
        FROM live_classes WHERE id = $1`
	if err := sqlx.GetContext(ctx, q, &lc, query, id); err != nil {
		return nil, fmt.Errorf("find live class %d: %w", id, err)
	}
	return &lc, nil
}

// ListLiveClassesByModules returns the live classes of the given modules.
func (r *ContentRepository) ListLiveClassesByModules(ctx context.Context, q sqlx.ExtContext, moduleIDs []int64) ([]models.LiveClass, error) {
	if len(moduleIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, module_id, title, schedule, link, duration, created_at, updated_at
        FROM live_classes WHERE module_id IN (?) ORDER BY module_id, schedule, id`, moduleIDs)
	if err != nil {
		return nil, fmt.Errorf("list live classes: %w", err)
	}
	var classes []models.LiveClass
	if err := sqlx.SelectContext(ctx, q, &classes, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list live classes: %w", err)
	}
	return classes, nil
}

// ListScheduledClasses returns the upcoming live classes across all courses
// a teacher owns on this shard, soonest first.
func (r *ContentRepository) ListScheduledClasses(ctx context.Context, q sqlx.ExtContext, teacherID int64, after time.Time) ([]models.ScheduledClass, error) {
	var classes []models.ScheduledClass
	query := `SELECT lc.id, lc.module_id, lc.title, lc.schedule, lc.link, lc.duration, lc.created_at, lc.updated_at,
            m.title AS module_title, c.id AS course_id, c.title AS course_title
        FROM live_classes lc
        JOIN modules m ON m.id = lc.module_id
        JOIN courses c ON c.id = m.course_id
        WHERE c.teacher_id = $1 AND lc.schedule > $2
        ORDER BY lc.schedule, lc.id`
	if err := sqlx.SelectContext(ctx, q, &classes, query, teacherID, after); err != nil {
		return nil, fmt.Errorf("list scheduled classes: %w", err)
	}
	return classes, nil
}
