package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/infrastructure/auth"
	"github.com/ledgerdesk/backend/internal/infrastructure/config"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
	"github.com/ledgerdesk/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                testJWTSecret,
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	})
}

func newTestToken(t *testing.T, svc *auth.JWTService, role identity.Role) (*auth.Token, auth.GenerateTokenInput) {
	t.Helper()
	input := auth.GenerateTokenInput{
		UserID:   uuid.New(),
		Username: "manager",
		Role:     role,
	}
	token, err := svc.GenerateToken(input)
	require.NoError(t, err)
	return token, input
}

// signClaims signs arbitrary claims with the test secret
func signClaims(t *testing.T, claims *auth.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func newAuthRouter(svc TokenValidator) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Authenticate(AuthConfig{Tokens: svc, Public: []string{"/api/v1/auth/login"}}))
	router.GET("/api/v1/invoices", func(c *gin.Context) {
		actor, _ := GetActor(c)
		c.JSON(http.StatusOK, gin.H{
			"username":     actor.Username,
			"role":         actor.Role,
			"claims_user":  GetClaims(c).UserID,
			"ctx_user_id":  logger.CorrelationFrom(c.Request.Context()).UserID,
			"ctx_username": logger.CorrelationFrom(c.Request.Context()).Actor,
		})
	})
	router.POST("/api/v1/auth/login", func(c *gin.Context) {
		if GetClaims(c) != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestAuthenticate_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	token, input := newTestToken(t, svc, identity.RoleManager)

	w := testutil.Serve(t, newAuthRouter(svc), testutil.Request{
		Path:    "/api/v1/invoices",
		Headers: testutil.BearerHeader(token.AccessToken),
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := testutil.DecodeJSON(t, w)
	assert.Equal(t, "manager", body["username"])
	assert.Equal(t, "MANAGER", body["role"])
	assert.Equal(t, input.UserID.String(), body["claims_user"])
	assert.Equal(t, input.UserID.String(), body["ctx_user_id"])
	assert.Equal(t, "manager", body["ctx_username"])
}

func TestAuthenticate_Rejections(t *testing.T) {
	svc := newTestJWTService()

	expired := signClaims(t, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		UserID:   uuid.NewString(),
		Username: "manager",
		Role:     identity.RoleManager,
	})
	badRole := signClaims(t, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:   uuid.NewString(),
		Username: "intruder",
		Role:     identity.Role("ROOT"),
	})
	otherIssuer, _ := newTestToken(t, auth.NewJWTService(config.JWTConfig{
		Secret:                testJWTSecret,
		AccessTokenExpiration: time.Minute,
		Issuer:                "someone-else",
	}), identity.RoleStaff)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeTokenInvalid},
		{"basic scheme", "Basic dXNlcjpwYXNz", dto.ErrCodeTokenInvalid},
		{"empty bearer", "Bearer ", dto.ErrCodeTokenInvalid},
		{"garbage token", "Bearer not.a.jwt", dto.ErrCodeTokenInvalid},
		{"expired", "Bearer " + expired, dto.ErrCodeTokenExpired},
		{"unknown role", "Bearer " + badRole, dto.ErrCodeTokenInvalid},
		{"wrong issuer", "Bearer " + otherIssuer.AccessToken, dto.ErrCodeTokenInvalid},
	}

	router := newAuthRouter(svc)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w := testutil.Serve(t, router, testutil.Request{Path: "/api/v1/invoices", Headers: headers})

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			errMap := testutil.AssertErrorCode(t, w, tt.code)
			assert.NotEmpty(t, errMap["request_id"])
		})
	}
}

func TestAuthenticate_PublicPath(t *testing.T) {
	w := testutil.Serve(t, newAuthRouter(newTestJWTService()), testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Bearer", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestGetClaims_Unauthenticated(t *testing.T) {
	tc := testutil.NewTestContext(t)

	assert.Nil(t, GetClaims(tc.Context))
	_, ok := GetActor(tc.Context)
	assert.False(t, ok)
}
