package http_handlers

import (
	"net/http"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	appCtx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

const basicRealm = `Basic realm="account", charset="UTF-8"`

type AccountHandler struct {
	svc *account.Service
}

func NewAccountHandler(svc *account.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Create handles POST /{version}/user
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	p, err := h.svc.Register(r.Context(), req.Input())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(appCtx.WithAccountID(r.Context(), p.ID)).Info().Msg("account_registered")
	response.Created(w, dto.NewAccountView(p))
}

// GetSelf handles GET /{version}/user/self
func (h *AccountHandler) GetSelf(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.AuthenticateAndFetch(r.Context(), basicCredentials(r))
	if err != nil {
		// an unknown username is a bad request here, not a missing resource
		if domain.Is(err, domain.CodeAccountNotFound) {
			response.WriteErrorStatus(w, r, err, http.StatusBadRequest)
			return
		}
		h.writeAuthError(w, r, err)
		return
	}
	response.OK(w, dto.NewAccountView(p))
}

// UpdateSelf handles PUT /{version}/user/self
func (h *AccountHandler) UpdateSelf(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateAccountRequest
	if err := response.DecodeOptionalJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Update(r.Context(), req.Username, basicCredentials(r), req.Changes())
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	switch res {
	case account.UpdateApplied:
		response.OK(w, dto.MessageResponse{Message: "account updated"})
	default:
		response.NoContent(w)
	}
}

// ResendVerification handles POST /{version}/user/self/verification
func (h *AccountHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResendVerification(r.Context(), basicCredentials(r)); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusAccepted, dto.StatusResponse{Status: "verification_sent"})
}

// Verify handles GET /verify?id=...&token=...
func (h *AccountHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := dto.VerifyQuery{
		ID:    r.URL.Query().Get("id"),
		Token: r.URL.Query().Get("token"),
	}
	if err := q.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ConsumeVerification(r.Context(), q.ID, q.Token); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.StatusResponse{Status: "verified"})
}

func (h *AccountHandler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.KindOf(err) == domain.KindAuth {
		w.Header().Set("WWW-Authenticate", basicRealm)
	}
	response.WriteError(w, r, err)
}

// basicCredentials returns empty credentials when the header is absent or malformed.
func basicCredentials(r *http.Request) account.Credentials {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return account.Credentials{}
	}
	return account.Credentials{Username: user, Password: pass}
}
