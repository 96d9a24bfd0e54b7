package account

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type UpdateResult int

const (
	// UpdateNoChange: nothing supplied, or every supplied value equals the stored one.
	UpdateNoChange UpdateResult = iota
	UpdateApplied
)

// Update applies profile and password changes to the account named by username,
// authenticating with creds. An empty value counts as "not supplied".
func (s *Service) Update(ctx context.Context, username string, creds Credentials, changes domain.AccountChanges) (UpdateResult, error) {
	changes = normalizeChanges(changes)
	if changes.Empty() {
		return UpdateNoChange, nil
	}

	if strings.TrimSpace(username) == "" {
		username = creds.Username
	}

	a, err := s.authenticate(ctx, username, creds, true)
	if err != nil {
		return UpdateNoChange, err
	}

	var changed []string
	if changes.FirstName != nil && *changes.FirstName != a.FirstName {
		a.FirstName = *changes.FirstName
		changed = append(changed, "first_name")
	}
	if changes.LastName != nil && *changes.LastName != a.LastName {
		a.LastName = *changes.LastName
		changed = append(changed, "last_name")
	}
	if changes.Password != nil && s.hasher.Compare(a.PasswordHash, *changes.Password) != nil {
		hash, err := s.hasher.Hash(*changes.Password)
		if err != nil {
			return UpdateNoChange, hashFailure(err)
		}
		a.PasswordHash = hash
		changed = append(changed, "password")
	}

	if len(changed) == 0 {
		return UpdateNoChange, nil
	}

	a.UpdatedAt = s.nowUTC()
	if a.UpdatedAt.Before(a.CreatedAt) {
		a.UpdatedAt = a.CreatedAt
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.accounts.Update(sctx, a); err != nil {
		return UpdateNoChange, err
	}

	s.audit(ctx, "account_updated", map[string]string{
		"account_id": a.ID,
		"username":   a.Username,
		"fields":     strings.Join(changed, ","),
	})
	return UpdateApplied, nil
}

func normalizeChanges(c domain.AccountChanges) domain.AccountChanges {
	trimmed := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		if v == "" {
			return nil
		}
		return &v
	}
	out := domain.AccountChanges{
		FirstName: trimmed(c.FirstName),
		LastName:  trimmed(c.LastName),
	}
	if c.Password != nil && *c.Password != "" {
		pw := *c.Password
		out.Password = &pw
	}
	return out
}
