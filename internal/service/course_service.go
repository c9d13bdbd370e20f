package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/shard"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

type courseRepository interface {
	Create(ctx context.Context, q sqlx.ExtContext, course *models.Course) error
	FindByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.Course, error)
	ListByTeacher(ctx context.Context, q sqlx.ExtContext, teacherID int64) ([]models.Course, error)
	InstructorName(ctx context.Context, q sqlx.ExtContext, courseID int64) (string, error)
}

type contentRepository interface {
	CreateModule(ctx context.Context, q sqlx.ExtContext, module *models.Module) error
	FindModule(ctx context.Context, q sqlx.ExtContext, id int64) (*models.Module, error)
	ListModulesByCourse(ctx context.Context, q sqlx.ExtContext, courseID int64) ([]models.Module, error)
	CreateVideo(ctx context.Context, q sqlx.ExtContext, video *models.Video) error
	ListVideosByModules(ctx context.Context, q sqlx.ExtContext, moduleIDs []int64) ([]models.Video, error)
	CreateLiveClass(ctx context.Context, q sqlx.ExtContext, lc *models.LiveClass) error
	FindLiveClass(ctx context.Context, q sqlx.ExtContext, id int64) (*models.LiveClass, error)
	ListLiveClassesByModules(ctx context.Context, q sqlx.ExtContext, moduleIDs []int64) ([]models.LiveClass, error)
	ListScheduledClasses(ctx context.Context, q sqlx.ExtContext, teacherID int64, after time.Time) ([]models.ScheduledClass, error)
}

type thumbnailStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	PublicURL(filename string) string
}

// CourseService manages courses and their content. Everything here is
// shard-local: a course and all of its modules live on the shard of the
// teacher who published it.
type CourseService struct {
	router     *shard.Router
	courses    courseRepository
	content    contentRepository
	thumbnails thumbnailStore
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(router *shard.Router, courses courseRepository, content contentRepository, thumbnails thumbnailStore, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{router: router, courses: courses, content: content, thumbnails: thumbnails, validator: validate, logger: logger}
}

// CreateCourse publishes a course on the teacher's home shard. The thumbnail
// is written to storage first; a failed insert leaves an orphaned file,
// which is harmless.
func (s *CourseService) CreateCourse(ctx context.Context, claims *models.JWTClaims, req models.CreateCourseRequest, thumbnail *multipart.FileHeader) (*models.Course, error) {
	if claims.Role != models.RoleTeacher && claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can publish courses")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if !models.IsValidCategory(req.Category) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", req.Category))
	}
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return nil, err
	}

	var thumbnailURL string
	if thumbnail != nil {
		f, err := thumbnail.Open()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable thumbnail upload")
		}
		defer f.Close()
		name := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(thumbnail.Filename))
		stored, err := s.thumbnails.SaveStream(name, f)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store thumbnail")
		}
		thumbnailURL = s.thumbnails.PublicURL(stored)
	}

	course := &models.Course{
		TeacherID:   claims.UserID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Thumbnail:   thumbnailURL,
	}
	if err := s.router.Do(ctx, key, func(db *sqlx.DB) error {
		return s.courses.Create(ctx, db, course)
	}); err != nil {
		return nil, shardWrap(err, "failed to create course")
	}
	s.logger.Info("course published",
		zap.String("shard", key.String()),
		zap.Int64("course_id", course.ID),
		zap.Int64("teacher_id", claims.UserID),
	)
	return course, nil
}

// ListByTeacher returns the courses one teacher publishes on a shard.
func (s *CourseService) ListByTeacher(ctx context.Context, key shard.Key, teacherID int64) ([]models.Course, error) {
	var courses []models.Course
	err := s.router.Do(ctx, key, func(db *sqlx.DB) error {
		cs, err := s.courses.ListByTeacher(ctx, db, teacherID)
		if err != nil {
			return err
		}
		courses = cs
		return nil
	})
	if err != nil {
		return nil, shardWrap(err, "failed to list courses")
	}
	return courses, nil
}

// GetCourse fetches one course from a shard.
func (s *CourseService) GetCourse(ctx context.Context, key shard.Key, id int64) (*models.Course, error) {
	var course *models.Course
	err := s.router.Do(ctx, key, func(db *sqlx.DB) error {
		c, err := s.courses.FindByID(ctx, db, id)
		if err != nil {
			return err
		}
		course = c
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if err != nil {
		return nil, shardWrap(err, "failed to load course")
	}
	return course, nil
}

// FullCourse returns a course with its complete module tree.
func (s *CourseService) FullCourse(ctx context.Context, key shard.Key, id int64) (*models.CourseContent, error) {
	var content models.CourseContent
	err := s.router.Do(ctx, key, func(db *sqlx.DB) error {
		course, err := s.courses.FindByID(ctx, db, id)
		if err != nil {
			return err
		}
		instructor, err := s.courses.InstructorName(ctx, db, id)
		if err != nil {
			return err
		}
		modules, err := s.modulesWithContent(ctx, db, id)
		if err != nil {
			return err
		}
		content = models.CourseContent{Course: *course, Instructor: instructor, Modules: modules}
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if err != nil {
		return nil, shardWrap(err, "failed to load course content")
	}
	return &content, nil
}

// modulesWithContent loads a course's modules and fans their videos and live
// classes back in.
func (s *CourseService) modulesWithContent(ctx context.Context, db *sqlx.DB, courseID int64) ([]models.ModuleContent, error) {
	modules, err := s.content.ListModulesByCourse(ctx, db, courseID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(modules))
	for i, m := range modules {
		ids[i] = m.ID
	}
	videos, err := s.content.ListVideosByModules(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	classes, err := s.content.ListLiveClassesByModules(ctx, db, ids)
	if err != nil {
		return nil, err
	}

	videosByModule := make(map[int64][]models.Video, len(modules))
	for _, v := range videos {
		videosByModule[v.ModuleID] = append(videosByModule[v.ModuleID], v)
	}
	classesByModule := make(map[int64][]models.LiveClass, len(modules))
	for _, lc := range classes {
		classesByModule[lc.ModuleID] = append(classesByModule[lc.ModuleID], lc)
	}

	out := make([]models.ModuleContent, len(modules))
	for i, m := range modules {
		out[i] = models.ModuleContent{
			Module:      m,
			Videos:      videosByModule[m.ID],
			LiveClasses: classesByModule[m.ID],
		}
	}
	return out, nil
}

// AddModule appends a module to an existing course on the caller's shard.
func (s *CourseService) AddModule(ctx context.Context, claims *models.JWTClaims, req models.CreateModuleRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid module payload")
	}
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return nil, err
	}
	module := &models.Module{CourseID: req.CourseID, Title: req.Title, Position: req.Position}
	err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
		course, err := s.courses.FindByID(ctx, db, req.CourseID)
		if err != nil {
			return err
		}
		if course.TeacherID != claims.UserID && claims.Role != models.RoleAdmin {
			return appErrors.Clone(appErrors.ErrForbidden, "course belongs to another teacher")
		}
		return s.content.CreateModule(ctx, db, module)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if err != nil {
		return nil, shardWrap(err, "failed to create module")
	}
	return module, nil
}

// ListModules returns a course's modules in lesson order.
func (s *CourseService) ListModules(ctx context.Context, key shard.Key, courseID int64) ([]models.Module, error) {
	var modules []models.Module
	err := s.router.Do(ctx, key, func(db *sqlx.DB) error {
		ms, err := s.content.ListModulesByCourse(ctx, db, courseID)
		if err != nil {
			return err
		}
		modules = ms
		return nil
	})
	if err != nil {
		return nil, shardWrap(err, "failed to list modules")
	}
	return modules, nil
}

// ModuleContent returns one module with its videos and live classes.
func (s *CourseService) ModuleContent(ctx context.Context, key shard.Key, moduleID int64) (*models.ModuleContent, error) {
	var content models.ModuleContent
	err := s.router.Do(ctx, key, func(db *sqlx.DB) error {
		module, err := s.content.FindModule(ctx, db, moduleID)
		if err != nil {
			return err
		}
		videos, err := s.content.ListVideosByModules(ctx, db, []int64{moduleID})
		if err != nil {
			return err
		}
		classes, err := s.content.ListLiveClassesByModules(ctx, db, []int64{moduleID})
		if err != nil {
			return err
		}
		content = models.ModuleContent{Module: *module, Videos: videos, LiveClasses: classes}
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
	}
	if err != nil {
		return nil, shardWrap(err, "failed to load module content")
	}
	return &content, nil
}

// AddVideo attaches a recorded lesson to a module on the caller's shard.
func (s *CourseService) AddVideo(ctx context.Context, claims *models.JWTClaims, req models.CreateVideoRequest) (*models.Video, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid video payload")
	}
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return nil, err
	}
	video := &models.Video{ModuleID: req.ModuleID, Title: req.Title, VideoURL: req.VideoURL, Position: req.Position}
	err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
		if _, err := s.content.FindModule(ctx, db, req.ModuleID); err != nil {
			return err
		}
		return s.content.CreateVideo(ctx, db, video)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
	}
	if err != nil {
		return nil, shardWrap(err, "failed to create video")
	}
	return video, nil
}

// AddLiveClass schedules a live session on a module on the caller's shard.
func (s *CourseService) AddLiveClass(ctx context.Context, claims *models.JWTClaims, req models.CreateLiveClassRequest) (*models.LiveClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid live class payload")
	}
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return nil, err
	}
	lc := &models.LiveClass{ModuleID: req.ModuleID, Title: req.Title, Schedule: req.Schedule, Link: req.Link, Duration: req.Duration}
	err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
		if _, err := s.content.FindModule(ctx, db, req.ModuleID); err != nil {
			return err
		}
		return s.content.CreateLiveClass(ctx, db, lc)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
	}
	if err != nil {
		return nil, shardWrap(err, "failed to create live class")
	}
	return lc, nil
}

// GetLiveClass fetches one live class from a shard.
func (s *CourseService) GetLiveClass(ctx context.Context, key shard.Key, id int64) (*models.LiveClass, error) {
	var lc *models.LiveClass
	err := s.router.Do(ctx, key, func(db *sqlx.DB) error {
		found, err := s.content.FindLiveClass(ctx, db, id)
		if err != nil {
			return err
		}
		lc = found
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "live class not found")
	}
	if err != nil {
		return nil, shardWrap(err, "failed to load live class")
	}
	return lc, nil
}

// ScheduledClasses returns the upcoming live classes across the courses a
// teacher owns on their shard.
func (s *CourseService) ScheduledClasses(ctx context.Context, key shard.Key, teacherID int64) ([]models.ScheduledClass, error) {
	var classes []models.ScheduledClass
	err := s.router.Do(ctx, key, func(db *sqlx.DB) error {
		cs, err := s.content.ListScheduledClasses(ctx, db, teacherID, time.Now().UTC())
		if err != nil {
			return err
		}
		classes = cs
		return nil
	})
	if err != nil {
		return nil, shardWrap(err, "failed to list scheduled classes")
	}
	return classes, nil
}
