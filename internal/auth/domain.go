package auth

import (
	"errors"
	"time"

	"github.com/parley-chat/parley/internal/accounts"
)

// Token validation failure kinds. The middleware maps all of them to 401;
// they stay distinct for logs and tests.
var (
	ErrTokenMalformed = errors.New("auth: token malformed")
	ErrTokenSignature = errors.New("auth: token signature invalid")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenRevoked   = errors.New("auth: token revoked")
)

// LoginInput carries end-user credentials plus optional tenant and
// application context.
type LoginInput struct {
	Code           string
	Password       string
	CompanyCode    string
	AppAccessToken string
	AppSecretToken string
}

// RegisterInput carries the profile and credentials for a new account.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	Name            string
	Code            string
	CompanyCode     string
	AppAccessToken  string
	AppSecretToken  string
}

// SessionBundle is returned on successful login, registration, or refresh.
type SessionBundle struct {
	Token           string           `json:"token"`
	RefreshToken    string           `json:"refresh_token,omitempty"`
	ExpiresAt       time.Time        `json:"expires_at"`
	ApplicationCode string           `json:"application_code,omitempty"`
	ApplicationName string           `json:"application_name,omitempty"`
	Account         accounts.Summary `json:"account"`
}
