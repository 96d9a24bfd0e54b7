package dto

import (
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// bcrypt only looks at the first 72 bytes of a password.
const maxPasswordBytes = 72

type CreateAccountRequest struct {
	Username  string `json:"username" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

func (r *CreateAccountRequest) Validate() error {
	r.Username = domain.NormalizeUsername(r.Username)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if err := validateStruct(r); err != nil {
		return err
	}
	if len(r.Password) > maxPasswordBytes {
		return domain.ErrInvalidField("password", "password must be at most 72 bytes")
	}
	return nil
}

func (r CreateAccountRequest) Input() account.RegisterInput {
	return account.RegisterInput{
		Username:  r.Username,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
}

// UpdateAccountRequest: every field is optional. Username is echoed back by
// some clients; when present it names the account being updated.
type UpdateAccountRequest struct {
	Username  string  `json:"username,omitempty" validate:"omitempty,email,max=254"`
	Password  *string `json:"password,omitempty" validate:"omitempty,max=72"`
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
}

func (r *UpdateAccountRequest) Validate() error {
	r.Username = domain.NormalizeUsername(r.Username)
	if err := validateStruct(r); err != nil {
		return err
	}
	if r.Password != nil && len(*r.Password) > maxPasswordBytes {
		return domain.ErrInvalidField("password", "password must be at most 72 bytes")
	}
	return nil
}

func (r UpdateAccountRequest) Changes() domain.AccountChanges {
	return domain.AccountChanges{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Password:  r.Password,
	}
}

// VerifyQuery is the query of GET /verify. ID may be omitted.
type VerifyQuery struct {
	ID    string
	Token string
}

// Validate rejects a missing token. A malformed id cannot name any account,
// so it is reported like an unknown token.
func (q VerifyQuery) Validate() error {
	if q.Token == "" {
		return domain.ErrMissingField("token")
	}
	if err := validate.Var(q.Token, "max=512"); err != nil {
		return domain.ErrVerificationTokenInvalid()
	}
	if q.ID != "" {
		if err := validate.Var(q.ID, "uuid"); err != nil {
			return domain.ErrVerificationTokenInvalid()
		}
	}
	return nil
}
