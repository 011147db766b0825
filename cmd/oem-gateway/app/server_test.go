package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loafoe/kong-plugin-oemgateway/cmd/oem-gateway/app/options"
	"github.com/loafoe/kong-plugin-oemgateway/credentials"
	"github.com/loafoe/kong-plugin-oemgateway/gateway"
	"github.com/loafoe/kong-plugin-oemgateway/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, settings gateway.Settings) *Server {
	t.Helper()
	for _, k := range []string{
		credentials.EnvClientID, credentials.EnvClientSecret,
		credentials.EnvGenericClientID, credentials.EnvGenericClientSecret,
	} {
		t.Setenv(k, "")
	}
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(idp.Close)
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RequestURI() != "/fleet/1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"fleet":{"equipment":[{"header":{"equipmentID":"E1","make":"Cat"}}]}}`))
	}))
	t.Cleanup(vendor.Close)

	settings.TokenURL = idp.URL
	settings.BaseURL = vendor.URL
	settings.MaxAttempts = 1
	stack, err := gateway.Build(context.Background(), settings, log.NewNopLogger())
	require.NoError(t, err)
	return NewServer(stack, options.NewHTTPOptions(), log.NewNopLogger())
}

var configured = gateway.Settings{Credentials: credentials.Credentials{ClientID: "cid", ClientSecret: "secret"}}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestServerDispatch(t *testing.T) {
	s := newTestServer(t, configured)

	for _, path := range []string{"/", "/v1/dispatch"} {
		rec := do(s, http.MethodPost, path, `{"method":"assets"}`)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Body.String(), `"oemAssetId":"E1"`)
	}

	rec := do(s, http.MethodPost, "/", `{"method":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unknown method: bogus")
}

func TestServerPreflight(t *testing.T) {
	s := newTestServer(t, configured)

	rec := do(s, http.MethodOptions, "/v1/dispatch", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestServerProbes(t *testing.T) {
	s := newTestServer(t, configured)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/readyz", "").Code)

	rec := do(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "oemgateway_")

	unconfigured := newTestServer(t, gateway.Settings{})
	assert.Equal(t, http.StatusServiceUnavailable, do(unconfigured, http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusOK, do(unconfigured, http.MethodGet, "/healthz", "").Code)
}

func TestServerSignature(t *testing.T) {
	settings := configured
	settings.SharedKey = "shared"
	settings.SecretKey = "secret"
	s := newTestServer(t, settings)

	rec := do(s, http.MethodPost, "/", `{"method":"assets"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing signeddate header")
}
