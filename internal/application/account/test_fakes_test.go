package account

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeAccountRepo struct {
	mu sync.Mutex

	byID map[string]domain.Account

	// injected errors (if set, method returns error)
	getErr      error
	createErr   error
	updateErr   error
	verifyErr   error
	setTokenErr error
	mailSentErr error
	pingErr     error

	// record calls
	lookups   int
	updates   []domain.Account
	mailSent  []string
	verified  []string
	tokenSets []struct {
		id, token string
		exp       time.Time
	}
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byID: map[string]domain.Account{}}
}

func (f *fakeAccountRepo) put(a domain.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.ID] = a
}

func (f *fakeAccountRepo) get(id string) domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeAccountRepo) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lookups++
	if f.getErr != nil {
		return domain.Account{}, f.getErr
	}
	for _, a := range f.byID {
		if a.Username == username {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound()
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lookups++
	if f.getErr != nil {
		return domain.Account{}, f.getErr
	}
	a, ok := f.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return a, nil
}

func (f *fakeAccountRepo) GetByVerificationToken(ctx context.Context, token string, now time.Time) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lookups++
	if f.getErr != nil {
		return domain.Account{}, f.getErr
	}
	for _, a := range f.byID {
		if a.VerificationToken != nil && *a.VerificationToken == token && a.TokenExpires != nil && now.Before(*a.TokenExpires) {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound()
}

func (f *fakeAccountRepo) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.Account{}, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Username == a.Username {
			return domain.Account{}, domain.ErrUsernameAlreadyExists()
		}
	}
	f.byID[a.ID] = a
	return a, nil
}

func (f *fakeAccountRepo) Update(ctx context.Context, a domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[a.ID]; !ok {
		return domain.ErrAccountNotFound()
	}
	f.byID[a.ID] = a
	f.updates = append(f.updates, a)
	return nil
}

func (f *fakeAccountRepo) MarkVerified(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.verifyErr != nil {
		return f.verifyErr
	}
	a, ok := f.byID[id]
	if !ok {
		return domain.ErrAccountNotFound()
	}
	if a.EmailVerified {
		return domain.ErrAlreadyVerified()
	}
	a.EmailVerified = true
	a.VerificationToken = nil
	a.TokenExpires = nil
	f.byID[id] = a
	f.verified = append(f.verified, id)
	return nil
}

func (f *fakeAccountRepo) SetVerificationToken(ctx context.Context, id, token string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setTokenErr != nil {
		return f.setTokenErr
	}
	a, ok := f.byID[id]
	if !ok {
		return domain.ErrAccountNotFound()
	}
	a.VerificationToken = &token
	a.TokenExpires = &expires
	f.byID[id] = a
	f.tokenSets = append(f.tokenSets, struct {
		id, token string
		exp       time.Time
	}{id, token, expires})
	return nil
}

func (f *fakeAccountRepo) MarkMailSent(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mailSent = append(f.mailSent, id)
	if f.mailSentErr != nil {
		return f.mailSentErr
	}
	if a, ok := f.byID[id]; ok {
		a.MailSentAt = &at
		f.byID[id] = a
	}
	return nil
}

func (f *fakeAccountRepo) Ping(ctx context.Context) error { return f.pingErr }

type fakeHasher struct {
	hashFn    func(pw string) (string, error)
	compareFn func(hash, pw string) error
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	if h.compareFn != nil {
		return h.compareFn(hash, password)
	}
	if hash == "hash:"+password {
		return nil
	}
	return errors.New("mismatch")
}

type fakeTokens struct {
	mu  sync.Mutex
	n   int
	err error
}

func (f *fakeTokens) NewToken() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.n++
	return fmt.Sprintf("tok-%d", f.n), nil
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []VerifyEmailEvent
}

func (p *fakePublisher) PublishVerifyEmail(ctx context.Context, evt VerifyEmailEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *fakePublisher) sent() []VerifyEmailEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]VerifyEmailEvent(nil), p.events...)
}

type fakeGuard struct {
	mu   sync.Mutex
	err  error
	seen map[string]bool
}

func (g *fakeGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

/*
Service harness
*/

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc    *Service
	repo   *fakeAccountRepo
	hasher *fakeHasher
	tokens *fakeTokens
	pub    *fakePublisher
	guard  *fakeGuard
	audits *[]auditEntry
	now    *time.Time
}

func newSvcForTest(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:   newFakeAccountRepo(),
		hasher: &fakeHasher{},
		tokens: &fakeTokens{},
		pub:    &fakePublisher{},
		guard:  &fakeGuard{},
		audits: &[]auditEntry{},
	}
	now := testNow
	env.now = &now

	cfg := Config{
		VerifyBaseURL:      "https://api.example.com/verify",
		VerifyTokenTTL:     2 * time.Minute,
		VerificationGating: true,
		StoreTimeout:       time.Second,
		DispatchTimeout:    time.Second,
	}

	env.svc = NewService(env.repo, env.hasher, env.tokens, env.pub, env.guard, cfg).
		WithClock(func() time.Time { return *env.now }).
		WithAudit(func(_ context.Context, action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			*env.audits = append(*env.audits, auditEntry{action: action, fields: cp})
		})

	return env
}

// seedVerified stores a verified account with password "pw".
func (e *testEnv) seedVerified(id, username string) domain.Account {
	a := domain.Account{
		ID:            id,
		Username:      username,
		PasswordHash:  "hash:pw",
		FirstName:     "A",
		LastName:      "B",
		CreatedAt:     testNow.Add(-time.Hour),
		UpdatedAt:     testNow.Add(-time.Hour),
		EmailVerified: true,
	}
	e.repo.put(a)
	return a
}

// seedPending stores an unverified account whose token expires at exp.
func (e *testEnv) seedPending(id, username, token string, exp time.Time) domain.Account {
	a := e.seedVerified(id, username)
	a.EmailVerified = false
	a.VerificationToken = &token
	a.TokenExpires = &exp
	e.repo.put(a)
	return a
}

func (e *testEnv) hasAudit(action string) bool {
	for _, a := range *e.audits {
		if a.action == action {
			return true
		}
	}
	return false
}

/*
Small assertions
*/

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected code=%q, got err=%v", code, err)
	}
}

func strPtr(s string) *string { return &s }
