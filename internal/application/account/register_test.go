package account

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

func TestRegister_MissingFields_ReturnsMissingField(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"username", RegisterInput{Password: "pw", FirstName: "A", LastName: "B"}, "username"},
		{"password", RegisterInput{Username: "a@x.com", FirstName: "A", LastName: "B"}, "password"},
		{"first_name", RegisterInput{Username: "a@x.com", Password: "pw", FirstName: "  ", LastName: "B"}, "first_name"},
		{"last_name", RegisterInput{Username: "a@x.com", Password: "pw", FirstName: "A"}, "last_name"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newSvcForTest(t)

			_, err := env.svc.Register(context.Background(), tc.in)
			requireErrCode(t, err, domain.CodeMissingField)

			var de *domain.Error
			if !errors.As(err, &de) || de.Meta["field"] != tc.field {
				t.Fatalf("expected field=%s, got %v", tc.field, err)
			}
		})
	}
}

func TestRegister_NotAnEmail_ReturnsInvalidField(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Username: "not-an-email", Password: "pw", FirstName: "A", LastName: "B",
	})
	requireErrCode(t, err, domain.CodeInvalidField)
}

func TestRegister_Success_PersistsUnverified_AndDispatches(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)

	p, err := env.svc.Register(context.Background(), RegisterInput{
		Username: " A@X.com ", Password: "pw", FirstName: "A", LastName: "B",
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if p.ID == "" || p.Username != "a@x.com" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if p.EmailVerified {
		t.Fatalf("new account must be unverified")
	}
	if !p.CreatedAt.Equal(testNow) || !p.UpdatedAt.Equal(p.CreatedAt) {
		t.Fatalf("expected created=updated=%v, got %+v", testNow, p)
	}

	stored := env.repo.get(p.ID)
	if stored.PasswordHash != "hash:pw" {
		t.Fatalf("expected hashed password, got %q", stored.PasswordHash)
	}
	if !stored.HasPendingVerification() {
		t.Fatalf("expected pending verification")
	}
	if !stored.TokenExpires.Equal(testNow.Add(2 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", stored.TokenExpires)
	}
	if stored.MailSentAt == nil {
		t.Fatalf("expected dispatch attempt recorded")
	}

	events := env.pub.sent()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	evt := events[0]
	if evt.AccountID != p.ID || evt.Token != *stored.VerificationToken {
		t.Fatalf("event does not match account: %+v", evt)
	}

	u, err := url.Parse(evt.Link)
	if err != nil {
		t.Fatalf("bad link %q: %v", evt.Link, err)
	}
	q := u.Query()
	if u.Host != "api.example.com" || u.Path != "/verify" {
		t.Fatalf("unexpected link base %q", evt.Link)
	}
	if q.Get("id") != p.ID || q.Get("token") != evt.Token || q.Get("expires") != "2026-03-01T12:02:00Z" {
		t.Fatalf("unexpected link query %q", u.RawQuery)
	}

	if !env.hasAudit("account_created") || !env.hasAudit("verification_dispatched") {
		t.Fatalf("expected audits, got %+v", *env.audits)
	}
}

func TestRegister_Duplicate_ReturnsConflict_CaseInsensitive(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)
	env.seedVerified("u1", "a@x.com")

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Username: "A@x.COM", Password: "pw", FirstName: "A", LastName: "B",
	})
	requireErrCode(t, err, domain.CodeUsernameExists)
	if domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("expected conflict kind, got %s", domain.KindOf(err))
	}
}

func TestRegister_LostRace_StoreConflictPropagates(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)
	env.repo.createErr = domain.ErrUsernameAlreadyExists()

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Username: "a@x.com", Password: "pw", FirstName: "A", LastName: "B",
	})
	requireErrCode(t, err, domain.CodeUsernameExists)
	if len(env.pub.sent()) != 0 {
		t.Fatalf("no dispatch expected on failed create")
	}
}

func TestRegister_PublishFails_StillSucceeds(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)
	env.pub.err = errors.New("broker down")

	p, err := env.svc.Register(context.Background(), RegisterInput{
		Username: "a@x.com", Password: "pw", FirstName: "A", LastName: "B",
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if env.repo.get(p.ID).MailSentAt == nil {
		t.Fatalf("expected attempt recorded even on failure")
	}
	if !env.hasAudit("verification_dispatch_failed") {
		t.Fatalf("expected failure audit")
	}
}

func TestRegister_GuardError_FailsOpen(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)
	env.guard.err = errors.New("redis down")

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Username: "a@x.com", Password: "pw", FirstName: "A", LastName: "B",
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(env.pub.sent()) != 1 {
		t.Fatalf("expected dispatch despite guard error")
	}
}

func TestRegister_HashFail_ReturnsHashFailed(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)
	env.hasher.hashFn = func(string) (string, error) { return "", errors.New("boom") }

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Username: "a@x.com", Password: "pw", FirstName: "A", LastName: "B",
	})
	requireErrCode(t, err, domain.CodeHashFailed)
}

func TestRegister_TokenFail_ReturnsRandomFailed_NothingStored(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)
	env.tokens.err = errors.New("entropy")

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Username: "a@x.com", Password: "pw", FirstName: "A", LastName: "B",
	})
	requireErrCode(t, err, domain.CodeRandomFailed)
	if _, err := env.repo.GetByUsername(context.Background(), "a@x.com"); err == nil {
		t.Fatalf("expected nothing persisted")
	}
}

func TestRegister_StoreDown_ReturnsInfrastructure(t *testing.T) {
	t.Parallel()
	env := newSvcForTest(t)
	env.repo.getErr = domain.ErrDBUnavailable(errors.New("conn refused"))

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Username: "a@x.com", Password: "pw", FirstName: "A", LastName: "B",
	})
	requireErrCode(t, err, domain.CodeDBUnavailable)
}
