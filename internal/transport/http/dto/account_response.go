package dto

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
)

// AccountView is the public projection of an account. It never carries
// the password hash or verification state.
type AccountView struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	AccountCreated time.Time `json:"account_created"`
	AccountUpdated time.Time `json:"account_updated"`
}

func NewAccountView(p account.Profile) AccountView {
	return AccountView{
		ID:             p.ID,
		Username:       p.Username,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		AccountCreated: p.CreatedAt.UTC(),
		AccountUpdated: p.UpdatedAt.UTC(),
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
