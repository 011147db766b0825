package gateway_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kong/go-pdk/test"
	"github.com/loafoe/kong-plugin-oemgateway/credentials"
	"github.com/loafoe/kong-plugin-oemgateway/dispatch"
	"github.com/loafoe/kong-plugin-oemgateway/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		credentials.EnvClientID, credentials.EnvClientSecret,
		credentials.EnvGenericClientID, credentials.EnvGenericClientSecret,
	} {
		t.Setenv(k, "")
	}
}

func stubs(t *testing.T) (idpURL, vendorURL string) {
	t.Helper()
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(idp.Close)
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RequestURI() != "/fleet/1" || r.Header.Get("Authorization") != "Bearer bearer" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"fleet":{"equipment":[{"header":{"equipmentID":"E1","make":"Cat"},"cumulativeOperatingHours":{"hour":12.5}}]}}`))
	}))
	t.Cleanup(vendor.Close)
	return idp.URL, vendor.URL
}

func run(t *testing.T, config *gateway.Config, body string, headers map[string][]string) (int, dispatch.ErrorResponse, string) {
	t.Helper()
	if headers == nil {
		headers = map[string][]string{"Content-Type": {"application/json"}}
	}
	env, err := test.New(t, test.Request{
		Method:  "POST",
		Url:     "https://gateway.example.com/",
		Headers: headers,
		Body:    []byte(body),
	})
	require.NoError(t, err)
	env.DoHttps(config)

	out := string(env.ClientRes.Body)
	var envelope dispatch.ErrorResponse
	_ = json.Unmarshal([]byte(out), &envelope)
	return env.ClientRes.Status, envelope, out
}

func TestPlugin(t *testing.T) {
	clearEnv(t)
	idpURL, vendorURL := stubs(t)
	config, ok := gateway.New().(*gateway.Config)
	require.True(t, ok)
	config.TokenURL = idpURL
	config.BaseURL = vendorURL
	config.ClientID = "cid"
	config.ClientSecret = "secret"
	config.MaxAttempts = 1

	status, _, out := run(t, config, `{"method":"assets","endpoint":"1"}`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"assets":[{"oemName":"Caterpillar","oemAssetId":"E1","make":"Cat","operatingHours":12.5,"fuelPercent":0,"engineSpeed":0}],"endpoint":"/fleet/1"}`, out)

	status, envelope, _ := run(t, config, `{"method":"nope"}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Unknown method: nope", envelope.Error)
}

func TestPluginMissingCredentials(t *testing.T) {
	clearEnv(t)
	config := gateway.New().(*gateway.Config)

	status, envelope, _ := run(t, config, `{"method":"assets"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, envelope.Error, "not configured")
}

func TestPluginInitFailure(t *testing.T) {
	clearEnv(t)
	config := gateway.New().(*gateway.Config)
	config.SharedKey = "shared"

	status, envelope, _ := run(t, config, `{"method":"assets"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "gateway initialization failed", envelope.Error)
	assert.Contains(t, envelope.Details, "signature verifier")
}

func TestPluginRejectsUnsignedRequests(t *testing.T) {
	clearEnv(t)
	config := gateway.New().(*gateway.Config)
	config.SharedKey = "shared"
	config.SecretKey = "secret"

	status, envelope, _ := run(t, config, `{"method":"assets"}`, map[string][]string{"X-Hi": {"hello"}})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "request signature rejected", envelope.Error)
}

func TestPluginDispatchTimeout(t *testing.T) {
	clearEnv(t)
	idpURL, _ := stubs(t)
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(failing.Close)

	config := gateway.New().(*gateway.Config)
	config.TokenURL = idpURL
	config.BaseURL = failing.URL
	config.ClientID = "cid"
	config.ClientSecret = "secret"
	config.MaxAttempts = 10
	config.DispatchTimeout = 1

	start := time.Now()
	status, envelope, _ := run(t, config, `{"method":"hours","endpoint":"/fleet/equipment/makeModelSerial/CAT/320/SN1/hours/a/b/1"}`, nil)
	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.Equal(t, "request cancelled", envelope.Error)
	assert.Less(t, time.Since(start), 5*time.Second)
}
