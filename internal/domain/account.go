package domain

import (
	"crypto/subtle"
	"strings"
	"time"
)

// Account is the only persistent entity of the service.
//
// VerificationToken and TokenExpires are set together while a verification
// is pending and cleared together once it is consumed.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	EmailVerified     bool
	VerificationToken *string
	TokenExpires      *time.Time
	MailSentAt        *time.Time
}

// HasPendingVerification reports whether a token/expiry pair is stored.
func (a Account) HasPendingVerification() bool {
	return a.VerificationToken != nil && a.TokenExpires != nil
}

// TokenValid reports whether token matches the pending token and has not expired at now.
func (a Account) TokenValid(token string, now time.Time) bool {
	if !a.HasPendingVerification() || token == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(*a.VerificationToken), []byte(token)) != 1 {
		return false
	}
	return now.Before(*a.TokenExpires)
}

// AccountChanges carries the optional fields of an update request.
// A nil pointer means the field was not supplied.
type AccountChanges struct {
	FirstName *string
	LastName  *string
	Password  *string
}

// Empty reports whether no change field was supplied at all.
func (c AccountChanges) Empty() bool {
	return c.FirstName == nil && c.LastName == nil && c.Password == nil
}

// NormalizeUsername trims and lower-cases a username (usernames are email addresses).
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
