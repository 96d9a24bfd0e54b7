package account

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// verifyCredentials decides whether creds authenticate as a.
// The username comparison guards against a lookup keyed differently from
// the credential (e.g. an update naming another account in its body).
func (s *Service) verifyCredentials(creds Credentials, a domain.Account) bool {
	if creds.Empty() {
		return false
	}
	if err := s.hasher.Compare(a.PasswordHash, creds.Password); err != nil {
		return false
	}
	return domain.NormalizeUsername(creds.Username) == a.Username
}

// authenticate loads the account named by username and checks creds against it.
// Order: existence, then verification gating (when gate is set), then credentials.
// Missing credentials are reported before the lookup only when they are also
// the sole source of the username.
func (s *Service) authenticate(ctx context.Context, username string, creds Credentials, gate bool) (domain.Account, error) {
	username = domain.NormalizeUsername(username)
	if username == "" {
		if creds.Empty() {
			return domain.Account{}, domain.ErrMissingCredentials()
		}
		return domain.Account{}, domain.ErrAccountNotFound()
	}

	sctx, cancel := s.storeCtx(ctx)
	a, err := s.accounts.GetByUsername(sctx, username)
	cancel()
	if err != nil {
		return domain.Account{}, err
	}

	if gate && s.gating && !a.EmailVerified {
		return domain.Account{}, domain.ErrVerificationRequired()
	}

	if creds.Empty() {
		return domain.Account{}, domain.ErrMissingCredentials()
	}
	if !s.verifyCredentials(creds, a) {
		s.audit(ctx, "credentials_rejected", map[string]string{
			"account_id": a.ID,
			"username":   a.Username,
		})
		return domain.Account{}, domain.ErrInvalidCredentials()
	}
	return a, nil
}
