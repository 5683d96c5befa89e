package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/infrastructure/auth"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// ActorKey holds the authenticated identity.Actor on the gin context
const ActorKey = "ledger_actor"

const claimsKey = "ledger_claims"

// TokenValidator validates access tokens
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// AuthConfig configures Authenticate. Public paths are matched exactly and
// served without a token.
type AuthConfig struct {
	Tokens TokenValidator
	Public []string
	Logger *zap.Logger
}

// Authenticate requires a valid bearer token on every non-public path and
// makes the token's actor available to handlers, the request logger and
// the request context.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.Public, c.Request.URL.Path) {
			c.Next()
			return
		}

		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			refuse(c, log, auth.ErrInvalidToken)
			return
		}
		claims, err := cfg.Tokens.ValidateToken(raw)
		if err != nil {
			refuse(c, log, err)
			return
		}

		actor := claims.Actor()
		c.Set(claimsKey, claims)
		c.Set(ActorKey, actor)

		ctx, reqLog := logger.WithActor(c.Request.Context(), logger.GetGinLogger(c), actor.ID, actor.Username, actor.Role.String())
		c.Set(logger.GinLoggerKey, reqLog)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// bearerToken extracts the credentials of an RFC 6750 Authorization header.
// The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func refuse(c *gin.Context, log *zap.Logger, err error) {
	code, message := dto.ErrCodeTokenInvalid, "Invalid token"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		message = "Token is not yet valid"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingUserID), errors.Is(err, auth.ErrInvalidRole):
	default:
		code, message = dto.ErrCodeUnauthorized, "Authentication required"
	}

	log.Warn("Request not authenticated",
		zap.String("path", c.Request.URL.Path),
		zap.String("code", code),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, RequestIDFrom(c)))
}

// GetClaims returns the validated token claims, or nil on public routes
func GetClaims(c *gin.Context) *auth.Claims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(*auth.Claims)
	return claims
}

// GetActor returns the authenticated actor, if any
func GetActor(c *gin.Context) (identity.Actor, bool) {
	v, _ := c.Get(ActorKey)
	actor, ok := v.(identity.Actor)
	return actor, ok
}
