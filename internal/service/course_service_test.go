package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/shard"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

type mockCourseRepo struct {
	ts      *testShards
	byShard map[shard.Key]map[int64]*models.Course
	nextID  int64
}

func (m *mockCourseRepo) bucket(q sqlx.ExtContext) map[int64]*models.Course {
	key := m.ts.shardOf(q)
	if m.byShard[key] == nil {
		m.byShard[key] = map[int64]*models.Course{}
	}
	return m.byShard[key]
}

func (m *mockCourseRepo) Create(ctx context.Context, q sqlx.ExtContext, course *models.Course) error {
	m.nextID++
	course.ID = m.nextID
	m.bucket(q)[course.ID] = course
	return nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.Course, error) {
	if c, ok := m.bucket(q)[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ListByTeacher(ctx context.Context, q sqlx.ExtContext, teacherID int64) ([]models.Course, error) {
	var out []models.Course
	for _, c := range m.bucket(q) {
		if c.TeacherID == teacherID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) InstructorName(ctx context.Context, q sqlx.ExtContext, courseID int64) (string, error) {
	return "Rahim", nil
}

type mockContentRepo struct {
	courses *mockCourseRepo
	modules map[int64]*models.Module
	videos  []*models.Video
	classes []*models.LiveClass
}

func (m *mockContentRepo) CreateModule(ctx context.Context, q sqlx.ExtContext, module *models.Module) error {
	module.ID = int64(len(m.modules) + 1)
	m.modules[module.ID] = module
	return nil
}

func (m *mockContentRepo) FindModule(ctx context.Context, q sqlx.ExtContext, id int64) (*models.Module, error) {
	if mod, ok := m.modules[id]; ok {
		return mod, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockContentRepo) ListModulesByCourse(ctx context.Context, q sqlx.ExtContext, courseID int64) ([]models.Module, error) {
	var out []models.Module
	for _, mod := range m.modules {
		if mod.CourseID == courseID {
			out = append(out, *mod)
		}
	}
	return out, nil
}

func (m *mockContentRepo) CreateVideo(ctx context.Context, q sqlx.ExtContext, video *models.Video) error {
	video.ID = int64(len(m.videos) + 1)
	m.videos = append(m.videos, video)
	return nil
}

func (m *mockContentRepo) ListVideosByModules(ctx context.Context, q sqlx.ExtContext, moduleIDs []int64) ([]models.Video, error) {
	var out []models.Video
	for _, v := range m.videos {
		for _, id := range moduleIDs {
			if v.ModuleID == id {
				out = append(out, *v)
			}
		}
	}
	return out, nil
}

func (m *mockContentRepo) CreateLiveClass(ctx context.Context, q sqlx.ExtContext, lc *models.LiveClass) error {
	lc.ID = int64(len(m.classes) + 1)
	m.classes = append(m.classes, lc)
	return nil
}

func (m *mockContentRepo) FindLiveClass(ctx context.Context, q sqlx.ExtContext, id int64) (*models.LiveClass, error) {
	for _, lc := range m.classes {
		if lc.ID == id {
			return lc, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockContentRepo) ListLiveClassesByModules(ctx context.Context, q sqlx.ExtContext, moduleIDs []int64) ([]models.LiveClass, error) {
	var out []models.LiveClass
	for _, lc := range m.classes {
		for _, id := range moduleIDs {
			if lc.ModuleID == id {
				out = append(out, *lc)
			}
		}
	}
	return out, nil
}

func (m *mockContentRepo) ListScheduledClasses(ctx context.Context, q sqlx.ExtContext, teacherID int64, after time.Time) ([]models.ScheduledClass, error) {
	var out []models.ScheduledClass
	for _, lc := range m.classes {
		mod, ok := m.modules[lc.ModuleID]
		if !ok {
			continue
		}
		course, ok := m.courses.bucket(q)[mod.CourseID]
		if !ok || course.TeacherID != teacherID || !lc.Schedule.After(after) {
			continue
		}
		out = append(out, models.ScheduledClass{
			LiveClass:   *lc,
			ModuleTitle: mod.Title,
			CourseID:    course.ID,
			CourseTitle: course.Title,
		})
	}
	return out, nil
}

func newCourseFixture(t *testing.T) (*CourseService, *testShards, *mockCourseRepo, *mockContentRepo, func()) {
	ts, cleanup := newTestShards(t)
	courses := &mockCourseRepo{ts: ts, byShard: map[shard.Key]map[int64]*models.Course{}}
	content := &mockContentRepo{courses: courses, modules: map[int64]*models.Module{}}
	svc := NewCourseService(ts.router, courses, content, nil, validator.New(), zap.NewNop())
	return svc, ts, courses, content, cleanup
}

func teacherClaims(userID int64, location string) *models.JWTClaims {
	claims := studentClaims(userID, location)
	claims.Role = models.RoleTeacher
	return claims
}

func TestCreateCourseOnTeacherShard(t *testing.T) {
	svc, _, courses, _, cleanup := newCourseFixture(t)
	defer cleanup()

	got, err := svc.CreateCourse(context.Background(), teacherClaims(3, "rajsahi"), models.CreateCourseRequest{
		Title: "Go Basics", Description: "Intro", Category: "Development", Price: 49.99,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), got.TeacherID)
	require.NotNil(t, courses.byShard[shard.Rajsahi][got.ID])
	require.Empty(t, courses.byShard[shard.Dhaka])
}

func TestCreateCourseRejectsStudents(t *testing.T) {
	svc, _, _, _, cleanup := newCourseFixture(t)
	defer cleanup()

	_, err := svc.CreateCourse(context.Background(), studentClaims(5, "dhaka"), models.CreateCourseRequest{
		Title: "Go Basics", Description: "Intro", Category: "Development",
	}, nil)
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestCreateCourseRejectsUnknownCategory(t *testing.T) {
	svc, _, _, _, cleanup := newCourseFixture(t)
	defer cleanup()

	_, err := svc.CreateCourse(context.Background(), teacherClaims(3, "dhaka"), models.CreateCourseRequest{
		Title: "Go Basics", Description: "Intro", Category: "Quantum Baking",
	}, nil)
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAddModuleEnforcesOwnership(t *testing.T) {
	svc, _, courses, _, cleanup := newCourseFixture(t)
	defer cleanup()
	courses.byShard[shard.Dhaka] = map[int64]*models.Course{
		1: {ID: 1, TeacherID: 3, Title: "Go Basics"},
	}

	_, err := svc.AddModule(context.Background(), teacherClaims(99, "dhaka"), models.CreateModuleRequest{
		CourseID: 1, Title: "Getting Started",
	})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	mod, err := svc.AddModule(context.Background(), teacherClaims(3, "dhaka"), models.CreateModuleRequest{
		CourseID: 1, Title: "Getting Started",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), mod.CourseID)
}

func TestFullCourseBundlesModuleTree(t *testing.T) {
	svc, _, courses, content, cleanup := newCourseFixture(t)
	defer cleanup()
	courses.byShard[shard.Dhaka] = map[int64]*models.Course{
		1: {ID: 1, TeacherID: 3, Title: "Go Basics"},
	}
	content.modules[1] = &models.Module{ID: 1, CourseID: 1, Title: "Getting Started", Position: 1}
	content.videos = append(content.videos, &models.Video{ID: 1, ModuleID: 1, Title: "Hello", VideoURL: "https://cdn/v1.mp4"})

	got, err := svc.FullCourse(context.Background(), shard.Dhaka, 1)
	require.NoError(t, err)
	require.Equal(t, "Rahim", got.Instructor)
	require.Len(t, got.Modules, 1)
	require.Len(t, got.Modules[0].Videos, 1)
}

func TestScheduledClassesListsOnlyTheTeachersUpcoming(t *testing.T) {
	svc, _, courses, content, cleanup := newCourseFixture(t)
	defer cleanup()
	courses.byShard[shard.Dhaka] = map[int64]*models.Course{
		1: {ID: 1, TeacherID: 3, Title: "Go Basics"},
		2: {ID: 2, TeacherID: 9, Title: "Finance 101"},
	}
	content.modules[1] = &models.Module{ID: 1, CourseID: 1, Title: "Getting Started"}
	content.modules[2] = &models.Module{ID: 2, CourseID: 2, Title: "Budgets"}
	content.classes = append(content.classes,
		&models.LiveClass{ID: 1, ModuleID: 1, Title: "Kickoff", Schedule: time.Now().Add(time.Hour)},
		&models.LiveClass{ID: 2, ModuleID: 1, Title: "Last week", Schedule: time.Now().Add(-time.Hour)},
		&models.LiveClass{ID: 3, ModuleID: 2, Title: "Someone else's", Schedule: time.Now().Add(time.Hour)},
	)

	got, err := svc.ScheduledClasses(context.Background(), shard.Dhaka, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Kickoff", got[0].Title)
	require.Equal(t, "Go Basics", got[0].CourseTitle)
}

func TestAddVideoUnknownModule(t *testing.T) {
	svc, _, _, _, cleanup := newCourseFixture(t)
	defer cleanup()

	_, err := svc.AddVideo(context.Background(), teacherClaims(3, "dhaka"), models.CreateVideoRequest{
		ModuleID: 404, Title: "Hello", VideoURL: "https://cdn/v1.mp4",
	})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}
