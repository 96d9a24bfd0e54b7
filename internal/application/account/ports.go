package account

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

/*
AccountRepo
-----------
Persistence port for accounts.
Only describes WHAT the service needs, not HOW it's stored.
Implementations must enforce username uniqueness themselves and report a
lost race as domain.ErrUsernameAlreadyExists.
*/
type AccountRepo interface {
	GetByUsername(ctx context.Context, username string) (domain.Account, error)
	GetByID(ctx context.Context, id string) (domain.Account, error)
	// Returns only accounts whose token has not expired at now.
	GetByVerificationToken(ctx context.Context, token string, now time.Time) (domain.Account, error)
	Create(ctx context.Context, a domain.Account) (domain.Account, error)

	// Update persists profile fields, password hash and updated_at in one write.
	Update(ctx context.Context, a domain.Account) error
	// MarkVerified flips email_verified and clears the token pair atomically.
	MarkVerified(ctx context.Context, id string) error
	SetVerificationToken(ctx context.Context, id, token string, expires time.Time) error
	MarkMailSent(ctx context.Context, id string, at time.Time) error

	Ping(ctx context.Context) error
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
TokenGenerator
--------------
Unpredictable, URL-safe, single-use verification tokens.
*/
type TokenGenerator interface {
	NewToken() (string, error)
}

/*
EventPublisher
--------------
Hands verification payloads to the message channel (RabbitMQ).
A mailer downstream consumes them; this service never sends mail itself.
*/
type EventPublisher interface {
	PublishVerifyEmail(ctx context.Context, evt VerifyEmailEvent) error
}

/*
DispatchGuard
-------------
At-most-once gate for verification dispatches, keyed per issued token.
Acquire returns false when the key was already taken.
*/
type DispatchGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

/*
Event payloads
--------------
*/
type VerifyEmailEvent struct {
	AccountID string    `json:"account_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	Token     string    `json:"token"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}
