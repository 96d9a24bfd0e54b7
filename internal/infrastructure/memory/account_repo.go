package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// AccountRepo is an in-process account store for dev runs and tests.
type AccountRepo struct {
	mu         sync.RWMutex
	byID       map[string]domain.Account
	byUsername map[string]string // username -> id
}

func NewAccountRepo() *AccountRepo {
	return &AccountRepo{
		byID:       make(map[string]domain.Account),
		byUsername: make(map[string]string),
	}
}

// copies keep callers from aliasing the stored pointer fields
func clone(a domain.Account) domain.Account {
	if a.VerificationToken != nil {
		v := *a.VerificationToken
		a.VerificationToken = &v
	}
	if a.TokenExpires != nil {
		v := *a.TokenExpires
		a.TokenExpires = &v
	}
	if a.MailSentAt != nil {
		v := *a.MailSentAt
		a.MailSentAt = &v
	}
	return a
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[domain.NormalizeUsername(username)]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return clone(r.byID[id]), nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return clone(a), nil
}

func (r *AccountRepo) GetByVerificationToken(ctx context.Context, token string, now time.Time) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.byID {
		if a.VerificationToken != nil && *a.VerificationToken == token &&
			a.TokenExpires != nil && now.Before(*a.TokenExpires) {
			return clone(a), nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound()
}

func (r *AccountRepo) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		return domain.Account{}, domain.ErrMissingField("id")
	}
	a.Username = domain.NormalizeUsername(a.Username)
	if _, exists := r.byUsername[a.Username]; exists {
		return domain.Account{}, domain.ErrUsernameAlreadyExists()
	}

	a = clone(a)
	r.byID[a.ID] = a
	r.byUsername[a.Username] = a.ID
	return clone(a), nil
}

func (r *AccountRepo) Update(ctx context.Context, a domain.Account) error {
	return r.mutate(a.ID, domain.ErrAccountNotFound(), func(cur *domain.Account) bool {
		cur.FirstName = a.FirstName
		cur.LastName = a.LastName
		cur.PasswordHash = a.PasswordHash
		cur.UpdatedAt = a.UpdatedAt
		return true
	})
}

func (r *AccountRepo) MarkVerified(ctx context.Context, id string) error {
	return r.mutate(id, domain.ErrAlreadyVerified(), func(cur *domain.Account) bool {
		if cur.EmailVerified {
			return false
		}
		cur.EmailVerified = true
		cur.VerificationToken = nil
		cur.TokenExpires = nil
		return true
	})
}

func (r *AccountRepo) SetVerificationToken(ctx context.Context, id, token string, expires time.Time) error {
	return r.mutate(id, domain.ErrAccountNotFound(), func(cur *domain.Account) bool {
		if cur.EmailVerified {
			return false
		}
		cur.VerificationToken = &token
		cur.TokenExpires = &expires
		return true
	})
}

func (r *AccountRepo) MarkMailSent(ctx context.Context, id string, at time.Time) error {
	return r.mutate(id, domain.ErrAccountNotFound(), func(cur *domain.Account) bool {
		cur.MailSentAt = &at
		return true
	})
}

func (r *AccountRepo) Ping(ctx context.Context) error { return nil }

// mutate applies fn under the write lock; a missing id or fn returning false yields rejected.
func (r *AccountRepo) mutate(id string, rejected *domain.Error, fn func(*domain.Account) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound()
	}
	if !fn(&cur) {
		return rejected
	}
	r.byID[id] = cur
	return nil
}
