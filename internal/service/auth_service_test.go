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
	"golang.org/x/crypto/bcrypt"

	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/shard"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

type mockAuthUsers struct {
	ts      *testShards
	byShard map[shard.Key]map[string]*models.User
	nextID  int64
}

func (m *mockAuthUsers) Create(ctx context.Context, q sqlx.ExtContext, user *models.User) error {
	key := m.ts.shardOf(q)
	if m.byShard[key] == nil {
		m.byShard[key] = map[string]*models.User{}
	}
	if _, ok := m.byShard[key][user.Email]; ok {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered in this region")
	}
	m.nextID++
	user.ID = m.nextID
	m.byShard[key][user.Email] = user
	return nil
}

func (m *mockAuthUsers) FindByEmail(ctx context.Context, q sqlx.ExtContext, email string) (*models.User, error) {
	key := m.ts.shardOf(q)
	if u, ok := m.byShard[key][email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUsers) FindByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.User, error) {
	key := m.ts.shardOf(q)
	for _, u := range m.byShard[key] {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockAuthTokens struct {
	ts      *testShards
	byShard map[shard.Key]map[string]*models.RefreshToken
}

func (m *mockAuthTokens) Create(ctx context.Context, q sqlx.ExtContext, token *models.RefreshToken) error {
	key := m.ts.shardOf(q)
	if m.byShard == nil {
		m.byShard = map[shard.Key]map[string]*models.RefreshToken{}
	}
	if m.byShard[key] == nil {
		m.byShard[key] = map[string]*models.RefreshToken{}
	}
	token.ID = int64(len(m.byShard[key]) + 1)
	m.byShard[key][token.Token] = token
	return nil
}

func (m *mockAuthTokens) FindActive(ctx context.Context, q sqlx.ExtContext, token string) (*models.RefreshToken, error) {
	key := m.ts.shardOf(q)
	if t, ok := m.byShard[key][token]; ok && !t.Revoked && t.ExpiresAt.After(time.Now()) {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthTokens) Revoke(ctx context.Context, q sqlx.ExtContext, token string) error {
	key := m.ts.shardOf(q)
	if t, ok := m.byShard[key][token]; ok {
		t.Revoked = true
	}
	return nil
}

func (m *mockAuthTokens) RevokeAllForUser(ctx context.Context, q sqlx.ExtContext, userID int64) error {
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthUsers, *mockAuthTokens, func()) {
	ts, cleanup := newTestShards(t)
	users := &mockAuthUsers{ts: ts, byShard: map[shard.Key]map[string]*models.User{}}
	tokens := &mockAuthTokens{ts: ts}
	svc := NewAuthService(ts.router, ts.finder, ts.agg, users, tokens, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "edunexus-test",
	})
	return svc, users, tokens, cleanup
}

func seedUser(users *mockAuthUsers, key shard.Key, email, password string, role models.UserRole) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	users.nextID++
	u := &models.User{ID: users.nextID, Name: "Seeded", Email: email, PasswordHash: string(hash), Role: role}
	if users.byShard[key] == nil {
		users.byShard[key] = map[string]*models.User{}
	}
	users.byShard[key][email] = u
	return u
}

func TestLoginWithoutLocationFindsHomeShard(t *testing.T) {
	svc, users, _, cleanup := newAuthFixture(t)
	defer cleanup()

	seedUser(users, shard.Rajsahi, "amina@example.com", "secret123", models.RoleStudent)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "amina@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, "rajsahi", resp.User.Location)
	require.NotEmpty(t, resp.RefreshToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "rajsahi", claims.Location)
	require.Equal(t, "amina@example.com", claims.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, users, _, cleanup := newAuthFixture(t)
	defer cleanup()

	seedUser(users, shard.Dhaka, "amina@example.com", "secret123", models.RoleStudent)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "amina@example.com", Password: "wrong"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _, cleanup := newAuthFixture(t)
	defer cleanup()

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginExplicitLocationChecksOnlyThatShard(t *testing.T) {
	svc, users, _, cleanup := newAuthFixture(t)
	defer cleanup()

	// The account exists on khulna; asking for dhaka must not find it.
	seedUser(users, shard.Khulna, "amina@example.com", "secret123", models.RoleStudent)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "amina@example.com", Password: "secret123", Location: "dhaka"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "amina@example.com", Password: "secret123", Location: "Khulna"})
	require.NoError(t, err)
	require.Equal(t, "khulna", resp.User.Location)
}

func TestLoginCredentialsBindToTheShardThatHoldsTheAccount(t *testing.T) {
	svc, users, _, cleanup := newAuthFixture(t)
	defer cleanup()

	// Same email registered independently in two regions with different
	// passwords. The lookup order finds dhaka first, so only the dhaka
	// password may authenticate when no location is supplied.
	seedUser(users, shard.Dhaka, "amina@example.com", "dhaka-pass", models.RoleStudent)
	seedUser(users, shard.Rajsahi, "amina@example.com", "rajsahi-pass", models.RoleStudent)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "amina@example.com", Password: "dhaka-pass"})
	require.NoError(t, err)
	require.Equal(t, "dhaka", resp.User.Location)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "amina@example.com", Password: "rajsahi-pass"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	resp, err = svc.Login(context.Background(), models.LoginRequest{Email: "amina@example.com", Password: "rajsahi-pass", Location: "Rajsahi"})
	require.NoError(t, err)
	require.Equal(t, "rajsahi", resp.User.Location)
}

func TestRegisterRejectsUnknownLocation(t *testing.T) {
	svc, _, _, cleanup := newAuthFixture(t)
	defer cleanup()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name: "Amina", Email: "amina@example.com", Password: "secret123", Location: "barisal",
	})
	require.ErrorIs(t, err, appErrors.ErrInvalidLocation)
}

func TestRegisterThenRefreshRotatesToken(t *testing.T) {
	svc, _, tokens, cleanup := newAuthFixture(t)
	defer cleanup()

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Name: "Amina", Email: "amina@example.com", Password: "secret123", Location: "dhaka",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, resp.User.Role)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)

	// The used token was revoked on the home shard.
	old := tokens.byShard[shard.Dhaka][resp.RefreshToken]
	require.True(t, old.Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestLocationsListsEveryRegionHoldingTheEmail(t *testing.T) {
	svc, users, _, cleanup := newAuthFixture(t)
	defer cleanup()

	seedUser(users, shard.Dhaka, "amina@example.com", "pw-one", models.RoleStudent)
	seedUser(users, shard.Khulna, "amina@example.com", "pw-two", models.RoleTeacher)

	labels, err := svc.Locations(context.Background(), "amina@example.com")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Dhaka", "Khulna"}, labels)
}
