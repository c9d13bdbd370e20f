package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/shard"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
	"github.com/edunexus/edunexus-api/pkg/export"
	"github.com/edunexus/edunexus-api/pkg/payment"
)

type enrollmentRepository interface {
	Create(ctx context.Context, q sqlx.ExtContext, e *models.Enrollment) error
	Exists(ctx context.Context, q sqlx.ExtContext, studentID, courseID int64) (bool, error)
	ListByStudent(ctx context.Context, q sqlx.ExtContext, studentID int64) ([]models.EnrollmentDetail, error)
	FindDetailByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.EnrollmentDetail, error)
	ListAll(ctx context.Context, q sqlx.ExtContext) ([]models.EnrollmentDetail, error)
}

type enrollmentCourseRepository interface {
	FindByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.Course, error)
}

type receiptStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type receiptSigner interface {
	Generate(receiptID, relPath string) (string, time.Time, error)
	Parse(token string) (receiptID, relPath string, expiresAt time.Time, err error)
}

type receiptRenderer interface {
	Render(receipt export.Receipt) ([]byte, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ReceiptLink points at a generated receipt. The token expires; the PDF on
// disk does not.
type ReceiptLink struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EnrollmentService manages course purchases. An enrollment is written in a
// single shard-local transaction; nothing here ever spans two regions.
type EnrollmentService struct {
	router    *shard.Router
	agg       *shard.Aggregator
	repo      enrollmentRepository
	courses   enrollmentCourseRepository
	gateway   payment.Gateway
	receipts  receiptStore
	signer    receiptSigner
	renderer  receiptRenderer
	csv       csvRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService instance.
func NewEnrollmentService(router *shard.Router, agg *shard.Aggregator, repo enrollmentRepository, courses enrollmentCourseRepository, gateway payment.Gateway, receipts receiptStore, signer receiptSigner, renderer receiptRenderer, csv csvRenderer, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{
		router: router, agg: agg, repo: repo, courses: courses, gateway: gateway,
		receipts: receipts, signer: signer, renderer: renderer, csv: csv,
		validator: validate, logger: logger,
	}
}

// Enroll purchases a course for the caller. The paid amount must equal the
// course price exactly, and a student can hold a course only once per
// region. Both checks and the insert run in one transaction on the caller's
// home shard.
func (s *EnrollmentService) Enroll(ctx context.Context, claims *models.JWTClaims, req models.EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return nil, err
	}

	if req.PaymentIntentID != "" && s.gateway != nil {
		intent, err := s.gateway.RetrieveIntent(ctx, req.PaymentIntentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "payment verification failed")
		}
		if intent.Status != payment.IntentStatusSucceeded {
			return nil, appErrors.Clone(appErrors.ErrConflict, "payment has not succeeded")
		}
	}

	enrollment := &models.Enrollment{
		StudentID:  claims.UserID,
		CourseID:   req.CourseID,
		EnrollDate: time.Now().UTC(),
		PaidAmount: req.PaidAmount,
		Location:   key.String(),
	}
	err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin enrollment tx: %w", err)
		}
		defer tx.Rollback()

		course, err := s.courses.FindByID(ctx, tx, req.CourseID)
		if err != nil {
			return err
		}
		if req.PaidAmount != course.Price {
			return appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("paid amount %.2f does not match course price %.2f", req.PaidAmount, course.Price))
		}
		enrolled, err := s.repo.Exists(ctx, tx, claims.UserID, req.CourseID)
		if err != nil {
			return err
		}
		if enrolled {
			return appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this course")
		}
		enrollment.TeacherID = course.TeacherID
		if err := s.repo.Create(ctx, tx, enrollment); err != nil {
			return err
		}
		return tx.Commit()
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if err != nil {
		return nil, shardWrap(err, "failed to enroll")
	}
	s.logger.Info("enrollment created",
		zap.String("shard", key.String()),
		zap.Int64("student_id", claims.UserID),
		zap.Int64("course_id", req.CourseID),
	)
	return enrollment, nil
}

// ListByStudent returns the caller's enrollments on their home shard.
func (s *EnrollmentService) ListByStudent(ctx context.Context, claims *models.JWTClaims) ([]models.EnrollmentDetail, error) {
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return nil, err
	}
	var items []models.EnrollmentDetail
	err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
		found, err := s.repo.ListByStudent(ctx, db, claims.UserID)
		if err != nil {
			return err
		}
		items = found
		return nil
	})
	if err != nil {
		return nil, shardWrap(err, "failed to list enrollments")
	}
	return items, nil
}

// IsEnrolled reports whether the caller holds the course.
func (s *EnrollmentService) IsEnrolled(ctx context.Context, claims *models.JWTClaims, courseID int64) (bool, error) {
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return false, err
	}
	var enrolled bool
	err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
		ok, err := s.repo.Exists(ctx, db, claims.UserID, courseID)
		if err != nil {
			return err
		}
		enrolled = ok
		return nil
	})
	if err != nil {
		return false, shardWrap(err, "failed to check enrollment")
	}
	return enrolled, nil
}

// ExportCSV renders every enrollment across all regions as CSV for the
// admin back office. Rows keep the fixed shard order.
func (s *EnrollmentService) ExportCSV(ctx context.Context) ([]byte, error) {
	merged, failed := shard.Collect(ctx, s.agg, func(ctx context.Context, key shard.Key, db *sqlx.DB) ([]models.EnrollmentDetail, error) {
		return s.repo.ListAll(ctx, db)
	})
	if err := allShardsDown(merged, failed); err != nil {
		return nil, err
	}
	dataset := export.Dataset{
		Headers: []string{"location", "enrollment_id", "student_name", "student_email", "course_title", "category", "teacher_name", "paid_amount", "enroll_date"},
	}
	for _, item := range merged {
		e := item.Value
		dataset.Rows = append(dataset.Rows, []string{
			item.Label,
			strconv.FormatInt(e.ID, 10),
			e.StudentName,
			e.StudentEmail,
			e.CourseTitle,
			e.Category,
			e.TeacherName,
			strconv.FormatFloat(e.PaidAmount, 'f', 2, 64),
			e.EnrollDate.UTC().Format(time.RFC3339),
		})
	}
	return s.csv.Render(dataset)
}

// Receipt renders a PDF receipt for one of the caller's enrollments and
// returns a signed, expiring download token.
func (s *EnrollmentService) Receipt(ctx context.Context, claims *models.JWTClaims, enrollmentID int64) (*ReceiptLink, error) {
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return nil, err
	}
	var detail *models.EnrollmentDetail
	err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
		found, err := s.repo.FindDetailByID(ctx, db, enrollmentID)
		if err != nil {
			return err
		}
		detail = found
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	if err != nil {
		return nil, shardWrap(err, "failed to load enrollment")
	}
	if detail.StudentID != claims.UserID && claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}

	receiptID := fmt.Sprintf("%s-%d", key, detail.ID)
	pdf, err := s.renderer.Render(export.Receipt{
		ReceiptID:   receiptID,
		StudentName: detail.StudentName,
		CourseTitle: detail.CourseTitle,
		Instructor:  detail.TeacherName,
		Location:    key.Label(),
		PaidAmount:  detail.PaidAmount,
		EnrolledAt:  detail.EnrollDate,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	filename := receiptID + ".pdf"
	stored, err := s.receipts.Save(filename, pdf)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store receipt")
	}
	token, expiresAt, err := s.signer.Generate(receiptID, stored)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt link")
	}
	return &ReceiptLink{Token: token, ExpiresAt: expiresAt}, nil
}

// DownloadReceipt resolves a signed token to the stored PDF.
func (s *EnrollmentService) DownloadReceipt(token string) (string, *os.File, error) {
	receiptID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired receipt link")
	}
	f, err := s.receipts.Open(relPath)
	if err != nil {
		return "", nil, appErrors.Clone(appErrors.ErrNotFound, "receipt no longer available")
	}
	return receiptID + ".pdf", f, nil
}
