package memory

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

// LogPublisher stands in for the broker in dev: it logs instead of publishing.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher { return &LogPublisher{} }

func (p *LogPublisher) PublishVerifyEmail(ctx context.Context, evt account.VerifyEmailEvent) error {
	lg := logger.WithCtx(ctx)
	lg.Info().
		Str("account_id", evt.AccountID).
		Time("expires_at", evt.ExpiresAt).
		Msg("log-pub: verify email")
	// link carries the token
	lg.Debug().Str("link", evt.Link).Msg("log-pub: verify link")
	return nil
}
