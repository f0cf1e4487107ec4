package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/parley-chat/parley/internal/accounts"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the signed claim set carried by session and refresh tokens.
// Refresh tokens share the format but carry token_type "refresh".
type Claims struct {
	Email           string `json:"email,omitempty"`
	Name            string `json:"name,omitempty"`
	Role            string `json:"role,omitempty"`
	Code            string `json:"code,omitempty"`
	CompanyCode     string `json:"company_code,omitempty"`
	ApplicationCode string `json:"application_code,omitempty"`
	TokenType       string `json:"token_type"`
	jwt.RegisteredClaims
}

// AccountID returns the numeric subject, or 0 for a malformed subject.
func (c *Claims) AccountID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Issuer mints and validates signed, time-bounded tokens. It holds no
// mutable state: validation is a pure function of the token, the signing
// key, and the clock. Expiry is checked with zero skew tolerance.
type Issuer struct {
	secret     []byte
	issuer     string
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer constructs an Issuer. ttl defaults to 60 minutes and refreshTTL
// to 7 days when zero.
func NewIssuer(secret, issuer string, ttl, refreshTTL time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Issuer{
		secret:     []byte(secret),
		issuer:     issuer,
		ttl:        ttl,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the time source; tests use it to step past expiry.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	if now != nil {
		i.now = now
	}
	return i
}

// TTL reports the configured session token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Mint signs a session token for the account with the configured TTL.
func (i *Issuer) Mint(account *accounts.Account, applicationCode string) (string, time.Time, error) {
	return i.mint(account, applicationCode, tokenTypeAccess, i.ttl)
}

// MintRefresh signs a refresh token for the account.
func (i *Issuer) MintRefresh(account *accounts.Account) (string, time.Time, error) {
	return i.mint(account, account.ApplicationCode, tokenTypeRefresh, i.refreshTTL)
}

func (i *Issuer) mint(account *accounts.Account, applicationCode, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := i.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Email:           account.Email,
		Name:            account.Name,
		Role:            account.Role,
		Code:            account.Code,
		CompanyCode:     account.CompanyCode,
		ApplicationCode: applicationCode,
		TokenType:       tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(account.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate verifies a session token and returns its claims.
func (i *Issuer) Validate(token string) (*Claims, error) {
	return i.validate(token, tokenTypeAccess)
}

// ValidateRefresh verifies a refresh token and returns its claims.
func (i *Issuer) ValidateRefresh(token string) (*Claims, error) {
	return i.validate(token, tokenTypeRefresh)
}

func (i *Issuer) validate(token, wantType string) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenMalformed
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.TokenType != wantType {
		return nil, ErrTokenMalformed
	}
	if i.issuer != "" && claims.Issuer != i.issuer {
		return nil, ErrTokenMalformed
	}
	if claims.AccountID() == 0 {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
