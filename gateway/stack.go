package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/loafoe/kong-plugin-oemgateway/credentials"
	"github.com/loafoe/kong-plugin-oemgateway/dispatch"
	"github.com/loafoe/kong-plugin-oemgateway/log"
	"github.com/loafoe/kong-plugin-oemgateway/oemapi"
	"github.com/loafoe/kong-plugin-oemgateway/retry"
	"github.com/loafoe/kong-plugin-oemgateway/signature"
	"github.com/loafoe/kong-plugin-oemgateway/token"
)

// Settings is the host independent gateway configuration.
type Settings struct {
	BaseURL  string
	TokenURL string
	Scope    string
	OEMName  string

	// Credentials take precedence over Vault, which takes precedence over the environment.
	Credentials credentials.Credentials
	Vault       credentials.VaultConfig

	// SharedKey and SecretKey enable inbound signature verification when set.
	SharedKey string
	SecretKey string

	RequestTimeout  time.Duration
	MaxAttempts     int
	AssetCandidates []string
	HoursWindow     int
}

// Stack is a fully wired gateway.
type Stack struct {
	Dispatcher *dispatch.Dispatcher
	Acquirer   *token.Acquirer
	// Verifier is nil when signature verification is disabled.
	Verifier *signature.Verifier
}

// Build resolves credentials and wires the token acquirer, vendor client and
// dispatcher. Missing credentials are not an error here: every dispatch then
// fails with a configuration error instead.
func Build(ctx context.Context, s Settings, logger log.Logger) (*Stack, error) {
	if logger == nil {
		logger = log.Std()
	}
	creds, err := resolveCredentials(ctx, s)
	if err != nil {
		return nil, err
	}
	if !creds.Complete() {
		logger.Warn("OEM client credentials are not configured", "credentials", creds.String())
	}

	stack := &Stack{}
	if s.SharedKey != "" || s.SecretKey != "" {
		v, err := signature.NewVerifier(s.SharedKey, s.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("error creating signature verifier: %w", err)
		}
		stack.Verifier = v
	}

	opts := retry.DefaultOptions()
	if s.MaxAttempts > 0 {
		opts.MaxAttempts = s.MaxAttempts
	}
	stack.Acquirer = token.NewAcquirer(token.Config{
		TokenURL:    s.TokenURL,
		Scope:       s.Scope,
		Credentials: creds,
		Margin:      token.DefaultMargin,
		Timeout:     s.RequestTimeout,
		Logger:      logger,
	})
	client := oemapi.NewClient(oemapi.Config{
		BaseURL: s.BaseURL,
		Timeout: s.RequestTimeout,
		Retry:   opts,
		Logger:  logger,
	})
	stack.Dispatcher = dispatch.New(stack.Acquirer, client, dispatch.Config{
		OEMName:         s.OEMName,
		AssetCandidates: s.AssetCandidates,
		HoursWindow:     s.HoursWindow,
		Logger:          logger,
	})
	logger.Info("gateway ready",
		"base_url", s.BaseURL,
		"credentials", creds.String(),
		"signature_verification", stack.Verifier != nil,
		"max_attempts", opts.MaxAttempts,
	)
	return stack, nil
}

func resolveCredentials(ctx context.Context, s Settings) (credentials.Credentials, error) {
	creds := s.Credentials
	if !creds.Complete() && s.Vault.Enabled() {
		fromVault, err := credentials.FromVault(ctx, s.Vault)
		if err != nil {
			return credentials.Credentials{}, err
		}
		creds = creds.Or(fromVault)
	}
	return creds.Or(credentials.FromEnv()), nil
}
