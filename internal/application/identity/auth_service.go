package identity

import (
	"context"
	"fmt"

	appaudit "github.com/ledgerdesk/backend/internal/application/audit"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/auth"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned for unknown users and wrong passwords alike
var ErrInvalidCredentials = shared.NewDomainError(shared.CodeUnauthorized, "Invalid username or password")

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	recorder   *appaudit.Recorder
	clock      shared.Clock
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	recorder *appaudit.Recorder,
	clock shared.Clock,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		recorder:   recorder,
		clock:      clock,
		logger:     logger,
	}
}

// Login verifies the credentials and issues an access token. Both outcomes
// are recorded in the audit trail on a best-effort basis.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	log := logger.WithLogger(ctx, s.logger)
	username := identity.NormalizeUsername(input.Username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if !shared.IsCode(err, shared.CodeNotFound) {
			log.Error("Failed to look up user during login", zap.String("username", username), zap.Error(err))
			return nil, err
		}
		log.Warn("User not found during login", zap.String("username", username))
		s.recordFailure(ctx, username, "", "unknown user", input.IP)
		return nil, ErrInvalidCredentials
	}

	if !user.VerifyPassword(input.Password) {
		log.Warn("Invalid password attempt", zap.String("username", username))
		s.recordFailure(ctx, username, user.Role, "wrong password", input.IP)
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(auth.GenerateTokenInput{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication token")
	}

	user.RecordLoginSuccess(s.clock.Now())
	if err := s.userRepo.Save(ctx, user); err != nil {
		// the token is already valid; a stale last-login time is not worth failing over
		log.Error("Failed to update user after successful login", zap.Error(err))
	}

	s.recorder.Record(ctx,
		audit.DraftFor(user.Actor(), audit.ActionLogin, audit.StatusSuccess).
			On(audit.EntityUser, user.Username).
			Describe(loginDescription(fmt.Sprintf("%s signed in as %s", user.Username, user.Role), input.IP)))

	log.Info("User logged in successfully",
		zap.String("username", user.Username),
		zap.String("user_id", user.ID.String()))

	return &LoginResult{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
		User:        ToUserInfo(user),
	}, nil
}

// ValidateToken resolves a bearer token to the actor it was issued to
func (s *AuthService) ValidateToken(token string) (identity.Actor, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return identity.Actor{}, shared.NewDomainError(shared.CodeUnauthorized, "Invalid or expired token")
	}
	return claims.Actor(), nil
}

func (s *AuthService) recordFailure(ctx context.Context, username string, role identity.Role, reason, ip string) {
	s.recorder.Record(ctx,
		audit.DraftFor(identity.NewUserActor("", username, role), audit.ActionLoginFailed, audit.StatusFailure).
			On(audit.EntityUser, username).
			Describe(loginDescription(fmt.Sprintf("Login failed for %s: %s", username, reason), ip)))
}

func loginDescription(msg, ip string) string {
	if ip == "" {
		return msg
	}
	return msg + " from " + ip
}
