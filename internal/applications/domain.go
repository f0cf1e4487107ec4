package applications

import "time"

// Registration is a tenant-facing application record. Login and registration
// resolve tenant context through it; the auth core reads but never mutates it.
type Registration struct {
	ID          int64      `json:"id"`
	CompanyCode string     `json:"company_code"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	AccessToken string     `json:"access_token"`
	SecretToken string     `json:"-"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Reason explains a validation outcome. The external message stays generic;
// the reason is for callers and logs.
type Reason string

const (
	ReasonValid          Reason = "VALID"
	ReasonNotFound       Reason = "NOT_FOUND"
	ReasonSecretMismatch Reason = "SECRET_MISMATCH"
	ReasonExpired        Reason = "EXPIRED"
	ReasonInactive       Reason = "INACTIVE"
)

// Validation is the structured result of checking an access/secret pair.
type Validation struct {
	Valid           bool   `json:"valid"`
	ApplicationCode string `json:"application_code,omitempty"`
	ApplicationName string `json:"application_name,omitempty"`
	CompanyCode     string `json:"company_code,omitempty"`
	Active          bool   `json:"active"`
	RemainingDays   int    `json:"remaining_days"`
	Reason          Reason `json:"reason"`
}

// Credentials is the pair handed back on issue and renew.
type Credentials struct {
	ApplicationCode string     `json:"application_code"`
	AccessToken     string     `json:"access_token"`
	SecretToken     string     `json:"secret_token"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}
