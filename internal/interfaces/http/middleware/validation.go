package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
)

var setupValidatorOnce sync.Once

// SetupValidator makes binding errors name fields by their json (or form)
// tag, matching what clients sent. Safe to call more than once.
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return ""
		})
	})
}

// HandleBindError answers a failed ShouldBind call: 413 for an oversized
// body, 400 VALIDATION_ERROR with per-field details for rule failures and
// 400 INVALID_JSON for everything else.
func HandleBindError(c *gin.Context, err error) {
	if isBodyTooLarge(err) {
		abortTooLarge(c)
		return
	}

	var rules validator.ValidationErrors
	if !errors.As(err, &rules) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "Malformed request body", RequestIDFrom(c)))
		return
	}

	details := make([]dto.ValidationDetail, len(rules))
	for i, fe := range rules {
		details[i] = dto.ValidationDetail{Field: fe.Field(), Message: ruleMessage(fe)}
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", RequestIDFrom(c), details))
}

// FieldDetails converts domain field errors into response details
func FieldDetails(fields []shared.FieldError) []dto.ValidationDetail {
	if len(fields) == 0 {
		return nil
	}
	details := make([]dto.ValidationDetail, len(fields))
	for i, f := range fields {
		details[i] = dto.ValidationDetail{Field: f.Field, Message: f.Message}
	}
	return details
}

// ruleMessage words a binding failure the same way the domain words its
// field errors, so clients see one vocabulary for both.
func ruleMessage(fe validator.FieldError) string {
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "invalid email format"
	case "uuid":
		return "invalid id"
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "min":
		if text {
			return "min length " + fe.Param()
		}
		return "must be at least " + fe.Param()
	case "max":
		if text {
			return "max length " + fe.Param()
		}
		return "must be at most " + fe.Param()
	}
	return "invalid value"
}
