package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/config"
)

// defaultLifetime covers one working shift
const defaultLifetime = 8 * time.Hour

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrInvalidRole      = errors.New("invalid role in claims")
)

// Claims is the payload of a ledger access token
type Claims struct {
	jwt.RegisteredClaims
	UserID   string        `json:"user_id"`
	Username string        `json:"username"`
	Role     identity.Role `json:"role"`
}

// Actor returns the principal the token was issued to
func (c *Claims) Actor() identity.Actor {
	return identity.NewUserActor(c.UserID, c.Username, c.Role)
}

// Token is a signed access token as returned by the login endpoint
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"`
}

// GenerateTokenInput names the user a token is minted for
type GenerateTokenInput struct {
	UserID   uuid.UUID
	Username string
	Role     identity.Role
}

// JWTService mints and checks HS256 access tokens. Issuer and audience are
// both the configured issuer.
type JWTService struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	clock    shared.Clock
}

// Option adjusts a JWTService
type Option func(*JWTService)

// WithClock makes token times follow c instead of the wall clock
func WithClock(c shared.Clock) Option {
	return func(s *JWTService) { s.clock = c }
}

func NewJWTService(cfg config.JWTConfig, opts ...Option) *JWTService {
	s := &JWTService{
		secret:   []byte(cfg.Secret),
		lifetime: cfg.AccessTokenExpiration,
		issuer:   cfg.Issuer,
		clock:    shared.SystemClock{},
	}
	if s.lifetime <= 0 {
		s.lifetime = defaultLifetime
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lifetime is how long a freshly minted token stays valid
func (s *JWTService) Lifetime() time.Duration {
	return s.lifetime
}

func (s *JWTService) GenerateToken(in GenerateTokenInput) (*Token, error) {
	issued := s.clock.Now()
	expires := issued.Add(s.lifetime)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   in.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID:   in.UserID.String(),
		Username: in.Username,
		Role:     in.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{AccessToken: signed, ExpiresAt: expires, TokenType: "Bearer"}, nil
}

// ValidateToken verifies signature, issuer and validity window, then
// requires a user id and a known role.
func (s *JWTService) ValidateToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.clock.Now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	case err != nil:
		return nil, ErrInvalidToken
	case claims.UserID == "":
		return nil, ErrMissingUserID
	case !claims.Role.IsValid():
		return nil, ErrInvalidRole
	}
	return claims, nil
}
