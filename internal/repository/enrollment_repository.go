package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edunexus/edunexus-api/internal/models"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

// EnrollmentRepository manages persistence for enrollments. An enrollment
// lives on the shard shared by its student and course.
type EnrollmentRepository struct{}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository() *EnrollmentRepository {
	return &EnrollmentRepository{}
}

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.course_id, e.teacher_id, e.enroll_date, e.paid_amount, e.location,
        e.created_at, e.updated_at,
        c.title AS course_title, c.category, c.thumbnail, c.price,
        s.name AS student_name, s.email AS student_email,
        t.name AS teacher_name
    FROM enrollments e
    JOIN courses c ON c.id = e.course_id
    JOIN users s ON s.user_id = e.student_id
    JOIN users t ON t.user_id = e.teacher_id`

// Create inserts an enrollment. The (student_id, course_id) pair is unique
// per shard; a second purchase of the same course is a conflict.
func (r *EnrollmentRepository) Create(ctx context.Context, q sqlx.ExtContext, e *models.Enrollment) error {
	query := `INSERT INTO enrollments (student_id, course_id, teacher_id, enroll_date, paid_amount, location, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id, created_at, updated_at`
	err := sqlx.GetContext(ctx, q, e, query,
		e.StudentID, e.CourseID, e.TeacherID, e.EnrollDate, e.PaidAmount, e.Location)
	if isUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this course")
	}
	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Exists reports whether the student already holds the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, q sqlx.ExtContext, studentID, courseID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)`
	if err := sqlx.GetContext(ctx, q, &exists, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// ListByStudent returns all of a student's enrollments, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, q sqlx.ExtContext, studentID int64) ([]models.EnrollmentDetail, error) {
	var items []models.EnrollmentDetail
	query := enrollmentDetailSelect + ` WHERE e.student_id = $1 ORDER BY e.enroll_date DESC, e.id DESC`
	if err := sqlx.SelectContext(ctx, q, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return items, nil
}

// FindDetailByID fetches one enrollment with course and participant context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.EnrollmentDetail, error) {
	var item models.EnrollmentDetail
	query := enrollmentDetailSelect + ` WHERE e.id = $1`
	if err := sqlx.GetContext(ctx, q, &item, query, id); err != nil {
		return nil, fmt.Errorf("find enrollment %d: %w", id, err)
	}
	return &item, nil
}

// ListAll returns every enrollment on one shard, oldest first. Used by the
// admin export.
func (r *EnrollmentRepository) ListAll(ctx context.Context, q sqlx.ExtContext) ([]models.EnrollmentDetail, error) {
	var items []models.EnrollmentDetail
	query := enrollmentDetailSelect + ` ORDER BY e.enroll_date, e.id`
	if err := sqlx.SelectContext(ctx, q, &items, query); err != nil {
		return nil, fmt.Errorf("list all enrollments: %w", err)
	}
	return items, nil
}
