package identity

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/ledgerdesk/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 12
	minUsernameLength = 3
	maxUsernameLength = 100
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	maxPasswordLength = 72
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// User is an operator account able to sign in to the ledger
type User struct {
	shared.BaseEntity
	Username     string
	PasswordHash string
	Role         Role
	LastLoginAt  *time.Time
}

// NewUser validates every field at once and stores a bcrypt hash of the password
func NewUser(username, password string, role Role, now time.Time) (*User, error) {
	fields := usernameProblems(strings.TrimSpace(username))
	fields = append(fields, passwordProblems(password)...)
	if !role.IsValid() {
		fields = append(fields, shared.FieldError{Field: "role", Message: "must be STAFF, MANAGER or SUPER_ADMIN"})
	}
	if len(fields) > 0 {
		return nil, shared.NewValidationError("Invalid user", fields...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &User{
		BaseEntity:   shared.NewBaseEntity(now),
		Username:     NormalizeUsername(username),
		PasswordHash: string(hash),
		Role:         role,
	}, nil
}

func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) RecordLoginSuccess(now time.Time) {
	u.LastLoginAt = &now
	u.Touch(now)
}

// Actor returns the principal this user acts as
func (u *User) Actor() Actor {
	return NewUserActor(u.ID.String(), u.Username, u.Role)
}

// NormalizeUsername is the form usernames are stored and looked up in
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func usernameProblems(username string) []shared.FieldError {
	switch {
	case len(username) < minUsernameLength:
		return []shared.FieldError{{Field: "username", Message: fmt.Sprintf("min length %d", minUsernameLength)}}
	case len(username) > maxUsernameLength:
		return []shared.FieldError{{Field: "username", Message: fmt.Sprintf("max length %d", maxUsernameLength)}}
	case !usernamePattern.MatchString(username):
		return []shared.FieldError{{Field: "username", Message: "letters, digits, underscores, hyphens and dots only"}}
	}
	return nil
}

func passwordProblems(password string) []shared.FieldError {
	switch {
	case len(password) < minPasswordLength:
		return []shared.FieldError{{Field: "password", Message: fmt.Sprintf("min length %d", minPasswordLength)}}
	case len(password) > maxPasswordLength:
		return []shared.FieldError{{Field: "password", Message: fmt.Sprintf("max length %d", maxPasswordLength)}}
	}
	var letter, digit bool
	for _, r := range password {
		letter = letter || unicode.IsLetter(r)
		digit = digit || unicode.IsDigit(r)
	}
	if !letter || !digit {
		return []shared.FieldError{{Field: "password", Message: "needs a letter and a digit"}}
	}
	return nil
}
