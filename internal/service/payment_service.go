package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/shard"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
	"github.com/edunexus/edunexus-api/pkg/payment"
)

type paymentUserRepository interface {
	UpdateRole(ctx context.Context, q sqlx.ExtContext, id int64, role models.UserRole) error
	FindByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.User, error)
}

type paymentProfileRepository interface {
	CreateExperience(ctx context.Context, q sqlx.ExtContext, e models.ExperienceInput) (int64, error)
	AppendExperiences(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error
	CreateSubscription(ctx context.Context, q sqlx.ExtContext, s *models.Subscription) error
}

const (
	teacherPlanName = "Basic Plan"
	teacherPlanDays = 60
)

// PaymentService fronts the payment gateway and the teacher upgrade flow.
// Gateway calls happen outside any shard transaction; only the durable
// outcome is written to the caller's home shard.
type PaymentService struct {
	router    *shard.Router
	gateway   payment.Gateway
	users     paymentUserRepository
	profiles  paymentProfileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs a PaymentService instance.
func NewPaymentService(router *shard.Router, gateway payment.Gateway, users paymentUserRepository, profiles paymentProfileRepository, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentService{router: router, gateway: gateway, users: users, profiles: profiles, validator: validate, logger: logger}
}

// CreateIntent opens a payment intent with the gateway and returns its
// client secret for the frontend to confirm.
func (s *PaymentService) CreateIntent(ctx context.Context, req models.CreateIntentRequest) (*payment.Intent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}
	intent, err := s.gateway.CreateIntent(ctx, req.Amount, currency)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "payment gateway rejected the intent")
	}
	return intent, nil
}

// VerifyPayment reports the current status of an intent.
func (s *PaymentService) VerifyPayment(ctx context.Context, req models.VerifyPaymentRequest) (*payment.Intent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}
	intent, err := s.gateway.RetrieveIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "payment verification failed")
	}
	return intent, nil
}

// ApplyForTeacher upgrades the caller to a teacher account after a paid
// plan purchase: role change, work history and the subscription row are
// written in one transaction on the caller's home shard.
func (s *PaymentService) ApplyForTeacher(ctx context.Context, claims *models.JWTClaims, req models.ApplyTeacherRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.RetrieveIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "payment verification failed")
	}
	if intent.Status != payment.IntentStatusSucceeded {
		return nil, appErrors.Clone(appErrors.ErrConflict, "plan payment has not succeeded")
	}

	var info models.UserInfo
	err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin teacher upgrade tx: %w", err)
		}
		defer tx.Rollback()

		if err := s.users.UpdateRole(ctx, tx, claims.UserID, models.RoleTeacher); err != nil {
			return err
		}
		var experienceIDs []int64
		for _, e := range req.Experiences {
			id, err := s.profiles.CreateExperience(ctx, tx, e)
			if err != nil {
				return err
			}
			experienceIDs = append(experienceIDs, id)
		}
		if err := s.profiles.AppendExperiences(ctx, tx, claims.UserID, experienceIDs); err != nil {
			return err
		}

		now := time.Now().UTC()
		sub := &models.Subscription{
			TeacherID:      claims.UserID,
			PlanName:       teacherPlanName,
			Price:          float64(intent.Amount) / 100,
			StartDate:      now,
			EndDate:        now.AddDate(0, 0, teacherPlanDays),
			GatewayPayment: intent.ID,
		}
		if err := s.profiles.CreateSubscription(ctx, tx, sub); err != nil {
			return err
		}

		user, err := s.users.FindByID(ctx, tx, claims.UserID)
		if err != nil {
			return err
		}
		info = user.Info(key.String())
		return tx.Commit()
	})
	if err != nil {
		return nil, shardWrap(err, "failed to apply for teacher")
	}
	s.logger.Info("teacher application approved",
		zap.String("shard", key.String()),
		zap.Int64("user_id", claims.UserID),
		zap.String("payment_intent", intent.ID),
	)
	return &info, nil
}
