package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

type SeederHasher interface {
	Hash(password string) (string, error)
}

type SeederRepo interface {
	Create(ctx context.Context, a domain.Account) (domain.Account, error)
}

// SeedAccounts creates verified demo accounts for local development.
// Existing usernames are skipped, so it is safe to run on every start.
func SeedAccounts(ctx context.Context, repo SeederRepo, hasher SeederHasher) int {
	type seedAccount struct {
		Username  string
		Pass      string
		FirstName string
		LastName  string
	}

	seeds := []seedAccount{
		{Username: "demo@example.com", Pass: "DemoPassword123!", FirstName: "Demo", LastName: "User"},
		{Username: "qa@example.com", Pass: "QaPassword123!", FirstName: "Qa", LastName: "Tester"},
	}

	lg := logger.WithCtx(ctx)
	created := 0
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Pass)
		if err != nil {
			lg.Warn().Err(err).Str("username", s.Username).Msg("seed: hash failed")
			continue
		}

		now := time.Now().UTC().Truncate(time.Microsecond)
		a := domain.Account{
			ID:            uuid.NewString(),
			Username:      s.Username,
			PasswordHash:  hash,
			FirstName:     s.FirstName,
			LastName:      s.LastName,
			CreatedAt:     now,
			UpdatedAt:     now,
			EmailVerified: true,
		}

		if _, err := repo.Create(ctx, a); err != nil {
			if !domain.Is(err, domain.CodeUsernameExists) {
				lg.Warn().Err(err).Str("username", s.Username).Msg("seed: create failed")
			}
			continue
		}
		created++
	}

	lg.Info().Int("created", created).Msg("seed: demo accounts ready")
	return created
}
