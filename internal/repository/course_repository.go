package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edunexus/edunexus-api/internal/models"
)

// CourseRepository manages persistence for courses. A course lives on the
// shard of the teacher who published it.
type CourseRepository struct{}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository() *CourseRepository {
	return &CourseRepository{}
}

// Create inserts a course and fills in the generated ID.
func (r *CourseRepository) Create(ctx context.Context, q sqlx.ExtContext, course *models.Course) error {
	query := `INSERT INTO courses (teacher_id, title, description, category, price, thumbnail, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id, created_at, updated_at`
	err := sqlx.GetContext(ctx, q, course, query,
		course.TeacherID, course.Title, course.Description, course.Category, course.Price, course.Thumbnail)
	if err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindByID fetches a course by its per-shard ID.
func (r *CourseRepository) FindByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.Course, error) {
	var course models.Course
	query := `SELECT id, teacher_id, title, description, category, price, thumbnail, created_at, updated_at
        FROM courses WHERE id = $1`
	if err := sqlx.GetContext(ctx, q, &course, query, id); err != nil {
		return nil, fmt.Errorf("find course %d: %w", id, err)
	}
	return &course, nil
}

// ListByTeacher returns every course published by one teacher, newest first.
func (r *CourseRepository) ListByTeacher(ctx context.Context, q sqlx.ExtContext, teacherID int64) ([]models.Course, error) {
	var courses []models.Course
	query := `SELECT id, teacher_id, title, description, category, price, thumbnail, created_at, updated_at
        FROM courses WHERE teacher_id = $1 ORDER BY created_at DESC, id DESC`
	if err := sqlx.SelectContext(ctx, q, &courses, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher courses: %w", err)
	}
	return courses, nil
}

// InstructorName returns the display name of the course's teacher.
func (r *CourseRepository) InstructorName(ctx context.Context, q sqlx.ExtContext, courseID int64) (string, error) {
	var name string
	query := `SELECT u.name FROM courses c JOIN users u ON u.user_id = c.teacher_id WHERE c.id = $1`
	if err := sqlx.GetContext(ctx, q, &name, query, courseID); err != nil {
		return "", fmt.Errorf("course instructor: %w", err)
	}
	return name, nil
}
