package accounts

import "time"

// Account represents a user account. Accounts are never physically deleted;
// Deactivate clears the active flag instead.
type Account struct {
	ID                int64      `json:"id"`
	Code              string     `json:"code"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	PasswordHash      string     `json:"-"`
	Role              string     `json:"role"`
	IsActive          bool       `json:"is_active"`
	IsVerified        bool       `json:"is_verified"`
	IsOnline          bool       `json:"is_online"`
	LastConnection    *time.Time `json:"last_connection,omitempty"`
	ResetToken        *string    `json:"-"`
	ResetTokenExpiry  *time.Time `json:"-"`
	VerificationToken *string    `json:"-"`
	CompanyCode       string     `json:"company_code"`
	ApplicationCode   string     `json:"application_code"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Summary is the account shape returned inside session bundles and listings.
type Summary struct {
	ID              int64  `json:"id"`
	Code            string `json:"code"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	CompanyCode     string `json:"company_code"`
	ApplicationCode string `json:"application_code"`
}

// Summarize projects an account into its API-facing summary.
func Summarize(a *Account) Summary {
	return Summary{
		ID:              a.ID,
		Code:            a.Code,
		Email:           a.Email,
		Name:            a.Name,
		Role:            a.Role,
		CompanyCode:     a.CompanyCode,
		ApplicationCode: a.ApplicationCode,
	}
}
