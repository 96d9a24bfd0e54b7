package docs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_IsValidOpenAPI(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(Document())
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))

	for _, p := range []string{"/healthz", "/{version}/user", "/{version}/user/self", "/{version}/user/self/verification", "/verify"} {
		assert.NotNil(t, doc.Paths.Value(p), p)
	}
}

func TestDocument_AccountSchemaOmitsSecrets(t *testing.T) {
	doc, err := openapi3.NewLoader().LoadFromData(Document())
	require.NoError(t, err)

	acct := doc.Components.Schemas["Account"]
	require.NotNil(t, acct)
	assert.NotContains(t, acct.Value.Properties, "password")
	assert.Contains(t, acct.Value.Properties, "account_created")
}

func TestHandler_ServesYAML(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "yaml")
	assert.Equal(t, Document(), rr.Body.Bytes())
}
