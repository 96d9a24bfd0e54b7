package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const pgUniqueViolation = "23505"

type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// ---------- helpers ----------

func toDomainAccount(ar accountRow) domain.Account {
	return domain.Account{
		ID:                ar.ID,
		Username:          ar.Username,
		PasswordHash:      ar.PasswordHash,
		FirstName:         ar.FirstName,
		LastName:          ar.LastName,
		CreatedAt:         ar.CreatedAt.UTC(),
		UpdatedAt:         ar.UpdatedAt.UTC(),
		EmailVerified:     ar.EmailVerified,
		VerificationToken: ar.VerificationToken,
		TokenExpires:      utcPtr(ar.TokenExpires),
		MailSentAt:        utcPtr(ar.MailSentAt),
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (r *AccountRepo) getOne(ctx context.Context, q string, args ...any) (domain.Account, error) {
	ar, err := scanAccountRow(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if isNoRows(err) {
			return domain.Account{}, domain.ErrAccountNotFound()
		}
		return domain.Account{}, domain.ErrDBUnavailable(err)
	}
	return toDomainAccount(ar), nil
}

// execOne runs a single-row update and maps "no row touched" to notFound.
func (r *AccountRepo) execOne(ctx context.Context, notFound *domain.Error, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// ---------- account.AccountRepo ----------

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	username = domain.NormalizeUsername(username)
	if username == "" {
		return domain.Account{}, domain.ErrMissingField("username")
	}

	q := `
SELECT ` + accountColumns + `
FROM accounts
WHERE username = $1
LIMIT 1;
`
	return r.getOne(ctx, q, username)
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Account{}, domain.ErrMissingField("id")
	}

	q := `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
LIMIT 1;
`
	return r.getOne(ctx, q, id)
}

func (r *AccountRepo) GetByVerificationToken(ctx context.Context, token string, now time.Time) (domain.Account, error) {
	if token == "" {
		return domain.Account{}, domain.ErrMissingField("token")
	}

	q := `
SELECT ` + accountColumns + `
FROM accounts
WHERE verification_token = $1
  AND token_expires > $2
LIMIT 1;
`
	return r.getOne(ctx, q, token, now.UTC())
}

func (r *AccountRepo) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	a.Username = domain.NormalizeUsername(a.Username)
	if a.ID == "" {
		return domain.Account{}, domain.ErrMissingField("id")
	}
	if a.Username == "" {
		return domain.Account{}, domain.ErrMissingField("username")
	}
	if a.PasswordHash == "" {
		return domain.Account{}, domain.ErrMissingField("password_hash")
	}

	q := `
INSERT INTO accounts (id, username, password_hash, first_name, last_name, email_verified,
                      verification_token, token_expires, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING ` + accountColumns + `;
`
	ar, err := scanAccountRow(r.db.QueryRowContext(ctx, q,
		a.ID, a.Username, a.PasswordHash, a.FirstName, a.LastName, a.EmailVerified,
		a.VerificationToken, utcPtr(a.TokenExpires), a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, domain.ErrUsernameAlreadyExists()
		}
		return domain.Account{}, domain.ErrDBUnavailable(err)
	}
	return toDomainAccount(ar), nil
}

func (r *AccountRepo) Update(ctx context.Context, a domain.Account) error {
	if strings.TrimSpace(a.ID) == "" {
		return domain.ErrMissingField("id")
	}

	const q = `
UPDATE accounts
SET first_name = $2,
    last_name = $3,
    password_hash = $4,
    updated_at = $5
WHERE id = $1;
`
	return r.execOne(ctx, domain.ErrAccountNotFound(), q,
		a.ID, a.FirstName, a.LastName, a.PasswordHash, a.UpdatedAt.UTC())
}

// MarkVerified only touches unverified rows, so of two concurrent consumers
// exactly one succeeds; the loser sees ErrAlreadyVerified.
func (r *AccountRepo) MarkVerified(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrMissingField("id")
	}

	const q = `
UPDATE accounts
SET email_verified = TRUE,
    verification_token = NULL,
    token_expires = NULL
WHERE id = $1
  AND email_verified = FALSE;
`
	return r.execOne(ctx, domain.ErrAlreadyVerified(), q, id)
}

func (r *AccountRepo) SetVerificationToken(ctx context.Context, id, token string, expires time.Time) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrMissingField("id")
	}
	if token == "" {
		return domain.ErrMissingField("token")
	}

	const q = `
UPDATE accounts
SET verification_token = $2,
    token_expires = $3
WHERE id = $1
  AND email_verified = FALSE;
`
	return r.execOne(ctx, domain.ErrAccountNotFound(), q, id, token, expires.UTC())
}

func (r *AccountRepo) MarkMailSent(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE accounts SET mail_sent_at = $2 WHERE id = $1;`
	return r.execOne(ctx, domain.ErrAccountNotFound(), q, id, at.UTC())
}

func (r *AccountRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
