package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/shard"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
	"github.com/edunexus/edunexus-api/pkg/payment"
)

type mockPaymentUsers struct {
	users map[int64]*models.User
	roles map[int64]models.UserRole
}

func (m *mockPaymentUsers) UpdateRole(ctx context.Context, q sqlx.ExtContext, id int64, role models.UserRole) error {
	u, ok := m.users[id]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	u.Role = role
	m.roles[id] = role
	return nil
}

func (m *mockPaymentUsers) FindByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type mockPaymentProfiles struct {
	experiences   []models.ExperienceInput
	linked        map[int64][]int64
	subscriptions []*models.Subscription
}

func (m *mockPaymentProfiles) CreateExperience(ctx context.Context, q sqlx.ExtContext, e models.ExperienceInput) (int64, error) {
	m.experiences = append(m.experiences, e)
	return int64(len(m.experiences)), nil
}

func (m *mockPaymentProfiles) AppendExperiences(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error {
	if m.linked == nil {
		m.linked = map[int64][]int64{}
	}
	m.linked[userID] = append(m.linked[userID], ids...)
	return nil
}

func (m *mockPaymentProfiles) CreateSubscription(ctx context.Context, q sqlx.ExtContext, s *models.Subscription) error {
	s.ID = int64(len(m.subscriptions) + 1)
	m.subscriptions = append(m.subscriptions, s)
	return nil
}

func newPaymentFixture(t *testing.T) (*PaymentService, *testShards, *mockPaymentUsers, *mockPaymentProfiles, *mockGateway, func()) {
	ts, cleanup := newTestShards(t)
	users := &mockPaymentUsers{users: map[int64]*models.User{}, roles: map[int64]models.UserRole{}}
	profiles := &mockPaymentProfiles{}
	gateway := &mockGateway{intents: map[string]*payment.Intent{}}
	svc := NewPaymentService(ts.router, gateway, users, profiles, validator.New(), zap.NewNop())
	return svc, ts, users, profiles, gateway, cleanup
}

func TestApplyForTeacherUpgradesRoleAndSubscribes(t *testing.T) {
	svc, ts, users, profiles, gateway, cleanup := newPaymentFixture(t)
	defer cleanup()

	users.users[5] = &models.User{ID: 5, Name: "Amina", Email: "amina@example.com", Role: models.RoleStudent}
	gateway.intents["pi_plan"] = &payment.Intent{ID: "pi_plan", Status: payment.IntentStatusSucceeded, Amount: 1999}

	ts.mocks[shard.Khulna].ExpectBegin()
	ts.mocks[shard.Khulna].ExpectCommit()

	info, err := svc.ApplyForTeacher(context.Background(), studentClaims(5, "khulna"), models.ApplyTeacherRequest{
		PaymentIntentID: "pi_plan",
		Experiences: []models.ExperienceInput{
			{Organization: "Khulna University", Role: "Lecturer", Duration: "3 years"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleTeacher, info.Role)
	require.Equal(t, "khulna", info.Location)
	require.Equal(t, models.RoleTeacher, users.roles[5])
	require.Equal(t, []int64{1}, profiles.linked[5])

	require.Len(t, profiles.subscriptions, 1)
	sub := profiles.subscriptions[0]
	require.Equal(t, "Basic Plan", sub.PlanName)
	require.Equal(t, 19.99, sub.Price)
	require.Equal(t, "pi_plan", sub.GatewayPayment)
	require.WithinDuration(t, sub.StartDate.AddDate(0, 0, 60), sub.EndDate, time.Second)
	require.NoError(t, ts.mocks[shard.Khulna].ExpectationsWereMet())
}

func TestApplyForTeacherRejectsUnpaidPlan(t *testing.T) {
	svc, _, users, profiles, gateway, cleanup := newPaymentFixture(t)
	defer cleanup()

	users.users[5] = &models.User{ID: 5, Role: models.RoleStudent}
	gateway.intents["pi_plan"] = &payment.Intent{ID: "pi_plan", Status: "requires_payment_method", Amount: 1999}

	_, err := svc.ApplyForTeacher(context.Background(), studentClaims(5, "dhaka"), models.ApplyTeacherRequest{
		PaymentIntentID: "pi_plan",
		Experiences:     []models.ExperienceInput{{Organization: "X", Role: "Y", Duration: "1 year"}},
	})
	require.ErrorIs(t, err, appErrors.ErrConflict)
	require.Equal(t, models.RoleStudent, users.users[5].Role)
	require.Empty(t, profiles.subscriptions)
}

func TestApplyForTeacherRequiresExperience(t *testing.T) {
	svc, _, _, _, gateway, cleanup := newPaymentFixture(t)
	defer cleanup()
	gateway.intents["pi_plan"] = &payment.Intent{ID: "pi_plan", Status: payment.IntentStatusSucceeded}

	_, err := svc.ApplyForTeacher(context.Background(), studentClaims(5, "dhaka"), models.ApplyTeacherRequest{
		PaymentIntentID: "pi_plan",
	})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCreateIntentDefaultsCurrency(t *testing.T) {
	svc, _, _, _, _, cleanup := newPaymentFixture(t)
	defer cleanup()

	intent, err := svc.CreateIntent(context.Background(), models.CreateIntentRequest{Amount: 4999})
	require.NoError(t, err)
	require.Equal(t, "usd", intent.Currency)
	require.Equal(t, int64(4999), intent.Amount)
}

func TestCreateIntentUpstreamFailure(t *testing.T) {
	svc, _, _, _, gateway, cleanup := newPaymentFixture(t)
	defer cleanup()
	gateway.err = errors.New("gateway timeout")

	_, err := svc.CreateIntent(context.Background(), models.CreateIntentRequest{Amount: 4999})
	require.ErrorIs(t, err, appErrors.ErrUpstream)
}

func TestVerifyPaymentPassesThroughStatus(t *testing.T) {
	svc, _, _, _, gateway, cleanup := newPaymentFixture(t)
	defer cleanup()
	gateway.intents["pi_1"] = &payment.Intent{ID: "pi_1", Status: payment.IntentStatusSucceeded, Amount: 500}

	intent, err := svc.VerifyPayment(context.Background(), models.VerifyPaymentRequest{PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	require.Equal(t, payment.IntentStatusSucceeded, intent.Status)
}
