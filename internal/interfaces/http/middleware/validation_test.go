package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shiftInput struct {
	Days  int    `json:"days" binding:"required,min=1,max=3650"`
	Email string `json:"email" binding:"omitempty,email"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req shiftInput
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(req.Days))
	})
	return router
}

func postJSON(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-validation")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleBindError(t *testing.T) {
	router := newValidationRouter()

	t.Run("validator failures carry json field names", func(t *testing.T) {
		w := postJSON(router, `{"days": 0, "email": "nope"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		assert.Equal(t, "req-validation", resp.Error.RequestID)
		require.Len(t, resp.Error.Details, 2)
		assert.Equal(t, "days", resp.Error.Details[0].Field)
		assert.Equal(t, "required", resp.Error.Details[0].Message)
		assert.Equal(t, "email", resp.Error.Details[1].Field)
		assert.Equal(t, "invalid email format", resp.Error.Details[1].Message)
	})

	t.Run("range failure", func(t *testing.T) {
		w := postJSON(router, `{"days": 4000}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "must be at most 3650", resp.Error.Details[0].Message)
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		w := postJSON(router, `{"days": "seven"`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})

	t.Run("valid input passes", func(t *testing.T) {
		w := postJSON(router, `{"days": 7}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRuleMessage(t *testing.T) {
	type input struct {
		Required string `validate:"required"`
		Min      string `validate:"min=5"`
		Max      string `validate:"max=3"`
		UUID     string `validate:"uuid"`
		OneOf    string `validate:"oneof=PENDING PAID"`
		Count    int    `validate:"min=1"`
		Email    string `validate:"email"`
		Other    string `validate:"alpha"`
	}

	v := validator.New()
	err := v.Struct(input{Min: "ab", Max: "abcdef", UUID: "x", OneOf: "LOST", Email: "nope", Other: "123"})
	require.Error(t, err)

	got := map[string]string{}
	for _, e := range err.(validator.ValidationErrors) {
		got[e.Field()] = ruleMessage(e)
	}

	assert.Equal(t, map[string]string{
		"Required": "required",
		"Min":      "min length 5",
		"Max":      "max length 3",
		"UUID":     "invalid id",
		"OneOf":    "must be one of PENDING, PAID",
		"Count":    "must be at least 1",
		"Email":    "invalid email format",
		"Other":    "invalid value",
	}, got)
}

func TestFieldDetails(t *testing.T) {
	assert.Nil(t, FieldDetails(nil))

	details := FieldDetails([]shared.FieldError{
		{Field: "amount", Message: "must be greater than 0"},
	})
	require.Len(t, details, 1)
	assert.Equal(t, dto.ValidationDetail{Field: "amount", Message: "must be greater than 0"}, details[0])
}
