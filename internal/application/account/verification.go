package account

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

// IssuedToken is a freshly generated verification token and its link.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	Link      string
}

func (s *Service) issueVerification(accountID string, now time.Time) (IssuedToken, error) {
	tok, err := s.tokens.NewToken()
	if err != nil {
		return IssuedToken{}, domain.ErrRandomFailed(err)
	}
	exp := now.Add(s.verifyTokenTTL)
	return IssuedToken{
		Token:     tok,
		ExpiresAt: exp,
		Link:      s.verificationLink(accountID, tok, exp),
	}, nil
}

func (s *Service) verificationLink(accountID, token string, expires time.Time) string {
	q := url.Values{}
	q.Set("id", accountID)
	q.Set("token", token)
	q.Set("expires", expires.UTC().Format(time.RFC3339))

	base := s.verifyBaseURL
	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + q.Encode()
	}
	// keep any query the operator configured on the base
	existing := u.Query()
	for k, vs := range q {
		existing[k] = vs
	}
	u.RawQuery = existing.Encode()
	return u.String()
}

// dispatchVerification publishes the verification event at most once per token.
// Failures are logged and swallowed; the attempt time is recorded either way.
func (s *Service) dispatchVerification(ctx context.Context, a domain.Account, issued IssuedToken) {
	lg := logger.WithCtx(ctx)

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTimeout)
	defer cancel()

	if s.guard != nil {
		ok, err := s.guard.Acquire(dctx, dispatchKey(issued.Token), s.verifyTokenTTL)
		switch {
		case err != nil:
			lg.Warn().Err(err).Str("account_id", a.ID).Msg("dispatch guard unavailable, dispatching anyway")
		case !ok:
			lg.Info().Str("account_id", a.ID).Msg("verification already dispatched for token")
			return
		}
	}

	attempt := s.nowUTC()
	evt := VerifyEmailEvent{
		AccountID: a.ID,
		Username:  a.Username,
		FirstName: a.FirstName,
		Token:     issued.Token,
		Link:      issued.Link,
		ExpiresAt: issued.ExpiresAt,
	}
	if err := s.pub.PublishVerifyEmail(dctx, evt); err != nil {
		lg.Warn().Err(err).Str("account_id", a.ID).Msg("verification dispatch failed")
		s.audit(ctx, "verification_dispatch_failed", map[string]string{
			"account_id": a.ID,
			"username":   a.Username,
		})
	} else {
		s.audit(ctx, "verification_dispatched", map[string]string{
			"account_id": a.ID,
			"username":   a.Username,
		})
	}

	sctx, scancel := s.storeCtx(context.WithoutCancel(ctx))
	defer scancel()
	if err := s.accounts.MarkMailSent(sctx, a.ID, attempt); err != nil {
		lg.Warn().Err(err).Str("account_id", a.ID).Msg("record dispatch attempt failed")
	}
}

// dispatchKey keeps raw tokens out of the guard's keyspace.
func dispatchKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "verify:" + hex.EncodeToString(sum[:])
}

// ConsumeVerification marks the account verified if token is its current,
// unexpired token. accountID may be empty, in which case the token alone
// identifies the account.
func (s *Service) ConsumeVerification(ctx context.Context, accountID, token string) error {
	if token == "" {
		return domain.ErrMissingField("token")
	}
	now := s.nowUTC()

	sctx, cancel := s.storeCtx(ctx)
	var (
		a   domain.Account
		err error
	)
	if accountID != "" {
		a, err = s.accounts.GetByID(sctx, accountID)
	} else {
		a, err = s.accounts.GetByVerificationToken(sctx, token, now)
	}
	cancel()
	if err != nil {
		if domain.Is(err, domain.CodeAccountNotFound) {
			return domain.ErrVerificationTokenInvalid()
		}
		return err
	}

	if a.EmailVerified {
		return domain.ErrAlreadyVerified()
	}
	if !a.TokenValid(token, now) {
		s.audit(ctx, "verification_rejected", map[string]string{"account_id": a.ID})
		return domain.ErrVerificationTokenInvalid()
	}

	sctx, cancel = s.storeCtx(ctx)
	defer cancel()
	if err := s.accounts.MarkVerified(sctx, a.ID); err != nil {
		return err
	}

	s.audit(ctx, "account_verified", map[string]string{
		"account_id": a.ID,
		"username":   a.Username,
	})
	return nil
}

// ResendVerification issues a new token for an unverified account, replacing
// any pending one, and dispatches it.
func (s *Service) ResendVerification(ctx context.Context, creds Credentials) error {
	a, err := s.authenticate(ctx, creds.Username, creds, false)
	if err != nil {
		return err
	}
	if a.EmailVerified {
		return domain.ErrAlreadyVerified()
	}

	issued, err := s.issueVerification(a.ID, s.nowUTC())
	if err != nil {
		return err
	}

	sctx, cancel := s.storeCtx(ctx)
	err = s.accounts.SetVerificationToken(sctx, a.ID, issued.Token, issued.ExpiresAt)
	cancel()
	if err != nil {
		return err
	}
	a.VerificationToken = &issued.Token
	a.TokenExpires = &issued.ExpiresAt

	s.audit(ctx, "verification_reissued", map[string]string{
		"account_id": a.ID,
		"username":   a.Username,
	})

	s.dispatchVerification(ctx, a, issued)
	return nil
}
