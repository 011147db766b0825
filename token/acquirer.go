package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/loafoe/kong-plugin-oemgateway/credentials"
	"github.com/loafoe/kong-plugin-oemgateway/log"
	"github.com/loafoe/kong-plugin-oemgateway/metrics"
	"gopkg.in/resty.v1"
)

const (
	// DefaultTokenURL is the Azure AD v2 token endpoint of the Caterpillar tenant.
	DefaultTokenURL = "https://login.microsoftonline.com/ceb177bf-013b-49ab-8a9c-4abce32afc1e/oauth2/v2.0/token"

	DefaultMargin   = 300 * time.Second
	DefaultLifetime = 3600 * time.Second

	maxBodyExcerpt = 256
)

// Config configures an Acquirer.
type Config struct {
	TokenURL    string
	Scope       string
	Credentials credentials.Credentials
	// Margin is subtracted from the reported lifetime before caching.
	Margin  time.Duration
	Timeout time.Duration
	Logger  log.Logger
	Now     func() time.Time
}

// Acquirer performs the client-credentials exchange and keeps the result in a Cache.
type Acquirer struct {
	tokenURL string
	scope    string
	creds    credentials.Credentials
	margin   time.Duration
	cache    *Cache
	client   *resty.Client
	logger   log.Logger
	now      func() time.Time
}

// NewAcquirer returns an Acquirer with a fresh Cache.
func NewAcquirer(cfg Config) *Acquirer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	margin := cfg.Margin
	if margin < 0 {
		margin = 0
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Std()
	}
	return &Acquirer{
		tokenURL: tokenURL,
		scope:    cfg.Scope,
		creds:    cfg.Credentials,
		margin:   margin,
		cache:    NewCache(now),
		client:   resty.New().SetTimeout(timeout),
		logger:   logger.WithName("token"),
		now:      now,
	}
}

// Cache exposes the acquirer's cache.
func (a *Acquirer) Cache() *Cache {
	return a.cache
}

// Configured reports whether both client id and secret are available.
func (a *Acquirer) Configured() bool {
	return a.creds.Complete()
}

// GetToken returns the cached bearer token, refreshing it when expired.
// Concurrent callers that all see an expired token may each perform an exchange.
func (a *Acquirer) GetToken(ctx context.Context) (string, error) {
	if tok, ok := a.cache.Get(); ok {
		metrics.TokenCacheHitsTotal.Inc()
		return tok.Value, nil
	}
	tok, err := a.exchange(ctx)
	if err != nil {
		return "", err
	}
	a.cache.Set(tok)
	return tok.Value, nil
}

func (a *Acquirer) exchange(ctx context.Context) (CachedToken, error) {
	if a.creds.ClientID == "" {
		return CachedToken{}, &ConfigurationError{Missing: "client id"}
	}
	if a.creds.ClientSecret == "" {
		return CachedToken{}, &ConfigurationError{Missing: "client secret"}
	}
	scope := a.scope
	if scope == "" {
		scope = a.creds.ClientID + "/.default"
	}
	a.logger.Info("fetching new OAuth token", "client_id", a.creds.ClientID, "token_url", a.tokenURL, "scope", scope)

	r := a.client.R().SetContext(ctx)
	r = r.SetHeader("Content-Type", "application/x-www-form-urlencoded")
	r = r.SetHeader("Accept", "application/json")
	r = r.SetFormData(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     a.creds.ClientID,
		"client_secret": a.creds.ClientSecret,
		"scope":         scope,
	})
	resp, err := r.Execute(http.MethodPost, a.tokenURL)
	if err != nil {
		metrics.TokenExchangesTotal.WithLabelValues("error").Inc()
		return CachedToken{}, fmt.Errorf("error performing token call: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		metrics.TokenExchangesTotal.WithLabelValues("rejected").Inc()
		body := excerpt(resp.Body())
		a.logger.Warn("token request rejected", "status", resp.StatusCode(), "body", body)
		return CachedToken{}, &AuthError{StatusCode: resp.StatusCode(), Body: body}
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil {
		metrics.TokenExchangesTotal.WithLabelValues("error").Inc()
		return CachedToken{}, fmt.Errorf("error decoding token response: %w", err)
	}
	if tr.AccessToken == "" {
		metrics.TokenExchangesTotal.WithLabelValues("error").Inc()
		return CachedToken{}, &AuthError{StatusCode: resp.StatusCode(), Body: "no access token in response"}
	}

	tok := CachedToken{
		Value:     tr.AccessToken,
		ExpiresAt: a.now().Add(a.lifetime(tr.ExpiresIn)),
	}
	metrics.TokenExchangesTotal.WithLabelValues("success").Inc()
	a.logger.Info("OAuth token obtained", "expires_at", tok.ExpiresAt)
	return tok, nil
}

// lifetime applies the safety margin, never going below zero.
func (a *Acquirer) lifetime(expiresIn int64) time.Duration {
	reported := time.Duration(expiresIn) * time.Second
	if expiresIn <= 0 {
		reported = DefaultLifetime
	}
	margin := a.margin
	if margin > reported {
		margin = reported
	}
	return reported - margin
}

func excerpt(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		msg := er.Error
		if er.ErrorDescription != "" {
			msg += ": " + er.ErrorDescription
		}
		body = []byte(msg)
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyExcerpt {
		cut := maxBodyExcerpt
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
