package account

import (
	"context"
	"errors"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type Service struct {
	accounts AccountRepo
	hasher   PasswordHasher
	tokens   TokenGenerator
	pub      EventPublisher
	guard    DispatchGuard

	audit func(ctx context.Context, action string, fields map[string]string)
	now   func() time.Time

	// Base of the link sent via the message channel, e.g. https://api/verify
	verifyBaseURL   string
	verifyTokenTTL  time.Duration
	gating          bool
	storeTimeout    time.Duration
	dispatchTimeout time.Duration
}

type Config struct {
	VerifyBaseURL      string
	VerifyTokenTTL     time.Duration
	VerificationGating bool
	StoreTimeout       time.Duration
	DispatchTimeout    time.Duration
}

func NewService(
	accounts AccountRepo,
	hasher PasswordHasher,
	tokens TokenGenerator,
	pub EventPublisher,
	guard DispatchGuard,
	cfg Config,
) *Service {
	verifyTTL := cfg.VerifyTokenTTL
	if verifyTTL <= 0 {
		verifyTTL = 2 * time.Minute
	}
	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = 3 * time.Second
	}
	dispatchTimeout := cfg.DispatchTimeout
	if dispatchTimeout <= 0 {
		dispatchTimeout = 5 * time.Second
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		pub:      pub,
		guard:    guard,
		audit:    func(context.Context, string, map[string]string) {},
		now:      time.Now,

		verifyBaseURL:   cfg.VerifyBaseURL,
		verifyTokenTTL:  verifyTTL,
		gating:          cfg.VerificationGating,
		storeTimeout:    storeTimeout,
		dispatchTimeout: dispatchTimeout,
	}
}

// WithAudit installs the hook that receives business events (account_created, ...).
func (s *Service) WithAudit(fn func(ctx context.Context, action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// WithClock replaces the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Profile is the public projection of an account.
// It never carries the password hash or verification token fields.
type Profile struct {
	ID            string
	Username      string
	FirstName     string
	LastName      string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func profileOf(a domain.Account) Profile {
	return Profile{
		ID:            a.ID,
		Username:      a.Username,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// Credentials is a claimed identity plus secret, usually from a basic-auth header.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == ""
}

// Ping probes store connectivity for health checks.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.accounts.Ping(ctx)
}

// storeCtx bounds a single store call.
func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// nowUTC truncates to microseconds so values survive a Postgres round trip unchanged.
func (s *Service) nowUTC() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// hashFailure keeps hasher-classified errors (e.g. an over-long password) intact.
func hashFailure(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return domain.ErrHashFailed(err)
}
