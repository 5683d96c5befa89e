package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/backend/internal/domain/identity"
)

// LoginInput contains the credentials for a login attempt
type LoginInput struct {
	Username string
	Password string
	IP       string
}

// LoginResult contains the issued token and the signed-in user
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"`
	User        UserInfo  `json:"user"`
}

// UserInfo is the public view of an account
type UserInfo struct {
	ID          uuid.UUID     `json:"id"`
	Username    string        `json:"username"`
	Role        identity.Role `json:"role"`
	LastLoginAt *time.Time    `json:"last_login_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// CreateUserInput contains input for creating an account
type CreateUserInput struct {
	Username string
	Password string
	Role     identity.Role
}

// ToUserInfo converts a domain user to its public view
func ToUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
