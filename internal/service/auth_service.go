// Package service contains the application use cases. Services resolve which
// regional shard a request touches, borrow its handle from the router, and
// pass that handle explicitly into every repository call.
package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/shard"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

type authUserRepository interface {
	Create(ctx context.Context, q sqlx.ExtContext, user *models.User) error
	FindByEmail(ctx context.Context, q sqlx.ExtContext, email string) (*models.User, error)
	FindByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.User, error)
}

type authTokenRepository interface {
	Create(ctx context.Context, q sqlx.ExtContext, token *models.RefreshToken) error
	FindActive(ctx context.Context, q sqlx.ExtContext, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, q sqlx.ExtContext, token string) error
	RevokeAllForUser(ctx context.Context, q sqlx.ExtContext, userID int64) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
}

// AuthService provides authentication use cases. Accounts are regional: a
// user registers into exactly one shard, and the issued access token pins
// that shard so later requests route without searching.
type AuthService struct {
	router    *shard.Router
	finder    *shard.Finder
	agg       *shard.Aggregator
	users     authUserRepository
	tokens    authTokenRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(router *shard.Router, finder *shard.Finder, agg *shard.Aggregator, users authUserRepository, tokens authTokenRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{router: router, finder: finder, agg: agg, users: users, tokens: tokens, validator: validate, logger: logger, config: config}
}

// Register creates an account on the shard named in the request and signs
// the user in. The email only needs to be unused within that region.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid register payload")
	}
	key, err := shard.Resolve(req.Location)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{Name: req.Name, Email: req.Email, PasswordHash: string(hash), Role: models.RoleStudent}
	if err := s.router.Do(ctx, key, func(db *sqlx.DB) error {
		return s.users.Create(ctx, db, user)
	}); err != nil {
		return nil, shardWrap(err, "failed to create user")
	}

	return s.issueTokens(ctx, key, user)
}

// Login authenticates a user. When the request names a region the lookup
// goes straight there; otherwise the shards are probed in the fixed lookup
// order and the password is checked only against the account that was found.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, key, err := s.locateUser(ctx, req.Email, req.Location)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	return s.issueTokens(ctx, key, user)
}

// locateUser finds the account and its home shard.
func (s *AuthService) locateUser(ctx context.Context, email, location string) (*models.User, shard.Key, error) {
	if location != "" {
		key, err := shard.Resolve(location)
		if err != nil {
			return nil, "", err
		}
		var user *models.User
		err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
			u, err := s.users.FindByEmail(ctx, db, email)
			if err != nil {
				return err
			}
			user = u
			return nil
		})
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		if err != nil {
			return nil, "", shardWrap(err, "failed to fetch user")
		}
		return user, key, nil
	}

	user, key, err := shard.FindFirst(ctx, s.finder, shard.LookupOrder(), func(ctx context.Context, key shard.Key, db *sqlx.DB) (*models.User, error) {
		return s.users.FindByEmail(ctx, db, email)
	})
	if errors.Is(err, appErrors.ErrNotFound) {
		return nil, "", appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	if err != nil {
		return nil, "", err
	}
	return user, key, nil
}

// RefreshToken exchanges a refresh token for a new token pair. Refresh
// tokens live on the user's home shard; since the client does not say which,
// the shards are probed in the fixed lookup order.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	stored, key, err := shard.FindFirst(ctx, s.finder, shard.LookupOrder(), func(ctx context.Context, key shard.Key, db *sqlx.DB) (*models.RefreshToken, error) {
		return s.tokens.FindActive(ctx, db, req.RefreshToken)
	})
	if errors.Is(err, appErrors.ErrNotFound) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
		u, err := s.users.FindByID(ctx, db, stored.UserID)
		if err != nil {
			return err
		}
		user = u
		if err := s.tokens.Revoke(ctx, db, stored.Token); err != nil {
			s.logger.Warn("failed to revoke used refresh token", zap.Error(err))
		}
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists")
	}
	if err != nil {
		return nil, shardWrap(err, "failed to load user")
	}

	resp, err := s.issueTokens(ctx, key, user)
	if err != nil {
		return nil, err
	}
	return &models.RefreshTokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		IssuedAt:     resp.IssuedAt,
	}, nil
}

// Logout revokes the provided refresh token on the caller's home shard.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims, refreshToken string) error {
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return err
	}
	err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
		stored, err := s.tokens.FindActive(ctx, db, refreshToken)
		if err != nil {
			return err
		}
		if stored.UserID != claims.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
		}
		return s.tokens.Revoke(ctx, db, refreshToken)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
	}
	if err != nil && !isAppError(err) {
		return shardWrap(err, "failed to revoke refresh token")
	}
	return err
}

// Locations reports which regions hold an account for the given email. The
// same address may be registered independently in several regions.
func (s *AuthService) Locations(ctx context.Context, email string) ([]string, error) {
	found, failed := shard.Collect(ctx, s.agg, func(ctx context.Context, key shard.Key, db *sqlx.DB) ([]string, error) {
		_, err := s.users.FindByEmail(ctx, db, email)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []string{key.Label()}, nil
	})
	if len(found) == 0 && len(failed) > 0 {
		return nil, appErrors.Clone(appErrors.ErrShardUnavailable, "")
	}
	labels := make([]string, 0, len(found))
	for _, item := range found {
		labels = append(labels, item.Value)
	}
	return labels, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// issueTokens mints an access token pinned to the user's home shard and
// persists a fresh refresh token there.
func (s *AuthService) issueTokens(ctx context.Context, key shard.Key, user *models.User) (*models.LoginResponse, error) {
	accessToken, err := s.generateAccessToken(user, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	refreshValue, err := generateRefreshTokenString()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	refresh := &models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshValue,
		ExpiresAt: time.Now().UTC().Add(s.config.RefreshTokenExpiry),
	}
	if err := s.router.Do(ctx, key, func(db *sqlx.DB) error {
		return s.tokens.Create(ctx, db, refresh)
	}); err != nil {
		return nil, shardWrap(err, "failed to persist refresh token")
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     time.Now().UTC(),
		User:         user.Info(key.String()),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User, key shard.Key) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     user.Role,
		Location: key.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
