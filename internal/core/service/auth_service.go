package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/llmgate/chat-gateway/internal/core/domain"
	"github.com/llmgate/chat-gateway/internal/core/ports"
	"github.com/llmgate/chat-gateway/internal/pkg/metrics"
)

var _ ports.Authenticator = (*AuthService)(nil)

// DefaultTokenTTL is the lifetime of a session token.
const DefaultTokenTTL = time.Hour

// tokenClaims is the JWT payload: {id, username, role, iat, exp}.
type tokenClaims struct {
	UserID   int         `json:"id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService verifies credentials and issues/validates stateless HS256 tokens.
type AuthService struct {
	users     ports.CredentialStore
	passwords ports.PasswordVerifier
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithAuthClock overrides the time source used for issuing and validating tokens.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(
	users ports.CredentialStore,
	passwords ports.PasswordVerifier,
	jwtSecret string,
	tokenTTL time.Duration,
	log zerolog.Logger,
	opts ...AuthOption,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	s := &AuthService{
		users:     users,
		passwords: passwords,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login returns a signed token for a matching username/password pair.
// An unknown username yields domain.ErrUnknownUser and a bad password
// domain.ErrWrongPassword; both are domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("unknown_user").Inc()
			s.log.Info().Str("username", username).Msg("login rejected: unknown user")
			return "", domain.ErrUnknownUser
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("login: %w", err)
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		metrics.LoginsTotal.WithLabelValues("wrong_password").Inc()
		s.log.Info().Str("username", username).Msg("login rejected: wrong password")
		return "", domain.ErrWrongPassword
	}

	token, err := s.generateToken(user)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("login: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	s.log.Info().Int("user_id", user.ID).Str("role", string(user.Role)).Msg("login succeeded")
	return token, nil
}

// Authenticate verifies the token's signature and expiry and returns its claims.
func (s *AuthService) Authenticate(_ context.Context, token string) (domain.SessionClaims, error) {
	if token == "" {
		return domain.SessionClaims{}, domain.ErrUnauthorized
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return domain.SessionClaims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Username == "" || claims.Role == "" {
		return domain.SessionClaims{}, fmt.Errorf("%w: missing identity claims", domain.ErrInvalidToken)
	}

	out := domain.SessionClaims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
