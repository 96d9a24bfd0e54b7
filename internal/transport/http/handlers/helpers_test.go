package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

type handlerEnv struct {
	h    *AccountHandler
	repo *memory.AccountRepo
}

func newTestAccountHandler(t *testing.T) *handlerEnv {
	t.Helper()

	repo := memory.NewAccountRepo()
	svc := account.NewService(
		repo,
		security.NewBcryptHasher(bcrypt.MinCost),
		security.NewOpaqueTokens(32),
		memory.NewLogPublisher(),
		memory.NewDispatchGuard(),
		account.Config{
			VerifyBaseURL:      "http://localhost/verify",
			VerifyTokenTTL:     time.Hour,
			VerificationGating: true,
		},
	)
	return &handlerEnv{h: NewAccountHandler(svc), repo: repo}
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func mustReadJSON(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), "body=%s", rr.Body.String())
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorBody
	mustReadJSON(t, rr, &body)
	return body.Error.Code
}

func withBasic(req *http.Request, user, pass string) *http.Request {
	req.SetBasicAuth(user, pass)
	return req
}

// register creates an account through the handler and returns its id.
func (e *handlerEnv) register(t *testing.T, username, password string) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/user", mustJSONBody(t, map[string]string{
		"username":   username,
		"password":   password,
		"first_name": "Alice",
		"last_name":  "Smith",
	}))
	rr := httptest.NewRecorder()
	e.h.Create(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, "body=%s", rr.Body.String())

	var out map[string]any
	mustReadJSON(t, rr, &out)
	return out["id"].(string)
}

// pendingToken reads the stored verification token for username.
func (e *handlerEnv) pendingToken(t *testing.T, username string) string {
	t.Helper()

	a, err := e.repo.GetByUsername(context.Background(), username)
	require.NoError(t, err)
	require.NotNil(t, a.VerificationToken)
	return *a.VerificationToken
}

func (e *handlerEnv) verify(t *testing.T, username string) {
	t.Helper()

	a, err := e.repo.GetByUsername(context.Background(), username)
	require.NoError(t, err)
	require.NoError(t, e.repo.MarkVerified(context.Background(), a.ID))
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

var errStoreDown = domain.ErrDBUnavailable(io.ErrUnexpectedEOF)
