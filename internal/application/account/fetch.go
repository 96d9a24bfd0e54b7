package account

import (
	"context"
)

// AuthenticateAndFetch returns the public projection of the account the
// credentials belong to.
func (s *Service) AuthenticateAndFetch(ctx context.Context, creds Credentials) (Profile, error) {
	a, err := s.authenticate(ctx, creds.Username, creds, true)
	if err != nil {
		return Profile{}, err
	}
	return profileOf(a), nil
}
