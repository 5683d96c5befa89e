package billing

import (
	"regexp"
	"strings"
	"time"

	"github.com/ledgerdesk/backend/internal/domain/shared"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Client is a customer of the business. Clients are immutable once created.
type Client struct {
	shared.BaseEntity
	Name    string
	Email   string
	Company string
}

// NewClient creates a new client
func NewClient(name, email, company string, now time.Time) (*Client, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	company = strings.TrimSpace(company)

	var fields []shared.FieldError
	if name == "" {
		fields = append(fields, shared.FieldError{Field: "name", Message: "required"})
	} else if len(name) > 100 {
		fields = append(fields, shared.FieldError{Field: "name", Message: "max length 100"})
	}
	if email == "" {
		fields = append(fields, shared.FieldError{Field: "email", Message: "required"})
	} else if len(email) > 120 || !emailRegex.MatchString(email) {
		fields = append(fields, shared.FieldError{Field: "email", Message: "invalid email format"})
	}
	if len(company) > 100 {
		fields = append(fields, shared.FieldError{Field: "company", Message: "max length 100"})
	}
	if len(fields) > 0 {
		return nil, shared.NewValidationError("Invalid client", fields...)
	}

	return &Client{
		BaseEntity: shared.NewBaseEntity(now),
		Name:       name,
		Email:      strings.ToLower(email),
		Company:    company,
	}, nil
}
