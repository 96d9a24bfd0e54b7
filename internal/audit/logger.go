package audit

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	appCtx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
)

// warnActions are recorded at warn level; everything else at info.
var warnActions = map[string]bool{
	"credentials_rejected":         true,
	"verification_rejected":        true,
	"verification_dispatch_failed": true,
}

// Logger provides structured audit logging for account business events
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Record writes one audit event. Username fields are masked.
func (l *Logger) Record(ctx context.Context, action string, fields map[string]string) {
	ev := l.log.Info()
	if warnActions[action] {
		ev = l.log.Warn()
	}
	ev = ev.Str("action", action)
	for k, v := range fields {
		if k == "username" {
			v = maskEmail(v)
		}
		ev = ev.Str(k, v)
	}
	if rid := appCtx.GetRequestID(ctx); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	ev.Msg(strings.ReplaceAll(action, "_", " "))
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:2] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
