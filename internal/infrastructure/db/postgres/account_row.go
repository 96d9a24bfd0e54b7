package postgres

import "time"

type accountRow struct {
	ID                string
	Username          string
	PasswordHash      string
	FirstName         string
	LastName          string
	EmailVerified     bool
	VerificationToken *string
	TokenExpires      *time.Time
	MailSentAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const accountColumns = `id, username, password_hash, first_name, last_name, email_verified,
       verification_token, token_expires, mail_sent_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccountRow(row rowScanner) (accountRow, error) {
	var ar accountRow
	err := row.Scan(
		&ar.ID,
		&ar.Username,
		&ar.PasswordHash,
		&ar.FirstName,
		&ar.LastName,
		&ar.EmailVerified,
		&ar.VerificationToken,
		&ar.TokenExpires,
		&ar.MailSentAt,
		&ar.CreatedAt,
		&ar.UpdatedAt,
	)
	return ar, err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
