package account

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
}

func (in RegisterInput) validate() error {
	if in.Username == "" {
		return domain.ErrMissingField("username")
	}
	if in.Password == "" {
		return domain.ErrMissingField("password")
	}
	if in.FirstName == "" {
		return domain.ErrMissingField("first_name")
	}
	if in.LastName == "" {
		return domain.ErrMissingField("last_name")
	}
	addr, err := mail.ParseAddress(in.Username)
	if err != nil || addr.Address != in.Username {
		return domain.ErrInvalidField("username", "must be an email address")
	}
	return nil
}

// Register creates an unverified account and sends its verification link.
// Dispatch is best-effort: a failed publish never fails the registration.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Profile, error) {
	in.Username = domain.NormalizeUsername(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := in.validate(); err != nil {
		return Profile{}, err
	}

	// Fast path only; the store's unique constraint is what actually decides.
	sctx, cancel := s.storeCtx(ctx)
	_, err := s.accounts.GetByUsername(sctx, in.Username)
	cancel()
	switch {
	case err == nil:
		return Profile{}, domain.ErrUsernameAlreadyExists()
	case !domain.Is(err, domain.CodeAccountNotFound):
		return Profile{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Profile{}, hashFailure(err)
	}

	now := s.nowUTC()
	id := uuid.NewString()
	issued, err := s.issueVerification(id, now)
	if err != nil {
		return Profile{}, err
	}

	a := domain.Account{
		ID:                id,
		Username:          in.Username,
		PasswordHash:      hash,
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		CreatedAt:         now,
		UpdatedAt:         now,
		EmailVerified:     false,
		VerificationToken: &issued.Token,
		TokenExpires:      &issued.ExpiresAt,
	}

	sctx, cancel = s.storeCtx(ctx)
	created, err := s.accounts.Create(sctx, a)
	cancel()
	if err != nil {
		return Profile{}, err
	}

	s.audit(ctx, "account_created", map[string]string{
		"account_id": created.ID,
		"username":   created.Username,
	})

	s.dispatchVerification(ctx, created, issued)

	return profileOf(created), nil
}
