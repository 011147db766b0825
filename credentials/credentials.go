package credentials

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/vault-client-go"
)

// Environment variables holding the OEM client credentials. The vendor
// specific names win over the generic ones.
const (
	EnvClientID            = "CATERPILLAR_CLIENT_ID"
	EnvClientSecret        = "CATERPILLAR_CLIENT_SECRET"
	EnvGenericClientID     = "OEM_CLIENT_ID"
	EnvGenericClientSecret = "OEM_CLIENT_SECRET"
)

// Credentials are the OAuth2 client credentials issued by the OEM.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Complete reports whether both id and secret are set.
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Or fills empty fields of c from other.
func (c Credentials) Or(other Credentials) Credentials {
	if c.ClientID == "" {
		c.ClientID = other.ClientID
	}
	if c.ClientSecret == "" {
		c.ClientSecret = other.ClientSecret
	}
	return c
}

// String never includes the secret.
func (c Credentials) String() string {
	return fmt.Sprintf("client_id=%s secret_set=%t", c.ClientID, c.ClientSecret != "")
}

// FromEnv reads credentials from the process environment.
func FromEnv() Credentials {
	return fromLookup(os.Getenv)
}

func fromLookup(getenv func(string) string) Credentials {
	c := Credentials{
		ClientID:     getenv(EnvClientID),
		ClientSecret: getenv(EnvClientSecret),
	}
	return c.Or(Credentials{
		ClientID:     getenv(EnvGenericClientID),
		ClientSecret: getenv(EnvGenericClientSecret),
	})
}

// VaultConfig locates a KV v2 secret holding client_id and client_secret.
type VaultConfig struct {
	Address   string
	Token     string
	MountPath string
	Path      string
	Timeout   time.Duration
}

// Enabled reports whether enough is configured to attempt a Vault read.
func (v VaultConfig) Enabled() bool {
	return v.Address != "" && v.Path != ""
}

// FromVault reads credentials from a Vault KV v2 secret.
func FromVault(ctx context.Context, cfg VaultConfig) (Credentials, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	mount := cfg.MountPath
	if mount == "" {
		mount = "secret"
	}
	client, err := vault.New(
		vault.WithAddress(cfg.Address),
		vault.WithRequestTimeout(timeout),
	)
	if err != nil {
		return Credentials{}, fmt.Errorf("error creating vault client: %w", err)
	}
	if cfg.Token != "" {
		if err := client.SetToken(cfg.Token); err != nil {
			return Credentials{}, fmt.Errorf("error setting vault token: %w", err)
		}
	}
	resp, err := client.Secrets.KvV2Read(ctx, cfg.Path, vault.WithMountPath(mount))
	if err != nil {
		return Credentials{}, fmt.Errorf("error reading %s/%s from vault: %w", mount, cfg.Path, err)
	}
	data := resp.Data.Data
	creds := Credentials{
		ClientID:     stringValue(data, "client_id"),
		ClientSecret: stringValue(data, "client_secret"),
	}
	return creds, nil
}

func stringValue(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
