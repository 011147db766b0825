package options

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"

	"github.com/loafoe/kong-plugin-oemgateway/credentials"
	"github.com/loafoe/kong-plugin-oemgateway/dispatch"
	"github.com/loafoe/kong-plugin-oemgateway/gateway"
	"github.com/loafoe/kong-plugin-oemgateway/log"
	"github.com/loafoe/kong-plugin-oemgateway/oemapi"
	"github.com/loafoe/kong-plugin-oemgateway/retry"
	"github.com/loafoe/kong-plugin-oemgateway/token"
)

// HTTPOptions configures the listening server.
type HTTPOptions struct {
	Addr            string        `json:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
	AllowedOrigin   string        `json:"allowed-origin" mapstructure:"allowed-origin"`
}

func NewHTTPOptions() *HTTPOptions {
	return &HTTPOptions{
		Addr:            "0.0.0.0:8080",
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigin:   "*",
	}
}

func (o *HTTPOptions) Validate() []error {
	var errs []error
	if _, _, err := net.SplitHostPort(o.Addr); err != nil {
		errs = append(errs, fmt.Errorf("invalid http.addr %q: %w", o.Addr, err))
	}
	return errs
}

func (o *HTTPOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "http.addr", o.Addr, "Specify the HTTP server bind address and port.")
	fs.DurationVar(&o.ShutdownTimeout, "http.shutdown-timeout", o.ShutdownTimeout, "Time allowed for in-flight requests on shutdown.")
	fs.StringVar(&o.AllowedOrigin, "http.allowed-origin", o.AllowedOrigin, "Value of the Access-Control-Allow-Origin header.")
}

// OEMOptions configures the vendor identity provider and API.
type OEMOptions struct {
	Name           string        `json:"name" mapstructure:"name"`
	BaseURL        string        `json:"base-url" mapstructure:"base-url"`
	TokenURL       string        `json:"token-url" mapstructure:"token-url"`
	Scope          string        `json:"scope" mapstructure:"scope"`
	ClientID       string        `json:"client-id" mapstructure:"client-id"`
	ClientSecret   string        `json:"client-secret" mapstructure:"client-secret"`
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`
	MaxAttempts    int           `json:"max-attempts" mapstructure:"max-attempts"`
	HoursWindow    int           `json:"hours-window" mapstructure:"hours-window"`
	AssetPaths     []string      `json:"asset-paths" mapstructure:"asset-paths"`
}

func NewOEMOptions() *OEMOptions {
	return &OEMOptions{
		Name:           "Caterpillar",
		BaseURL:        oemapi.DefaultBaseURL,
		TokenURL:       token.DefaultTokenURL,
		RequestTimeout: 30 * time.Second,
		MaxAttempts:    retry.DefaultMaxAttempts,
		HoursWindow:    24,
	}
}

func (o *OEMOptions) Validate() []error {
	var errs []error
	for name, raw := range map[string]string{"oem.base-url": o.BaseURL, "oem.token-url": o.TokenURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid %s %q: must be an absolute URL", name, raw))
		}
	}
	if o.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("oem.max-attempts must be at least 1, got %d", o.MaxAttempts))
	}
	if o.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("oem.request-timeout must be positive"))
	}
	if o.HoursWindow < 1 || o.HoursWindow > dispatch.MaxHoursWindow {
		errs = append(errs, fmt.Errorf("oem.hours-window must be between 1 and %d, got %d", dispatch.MaxHoursWindow, o.HoursWindow))
	}
	return errs
}

func (o *OEMOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Name, "oem.name", o.Name, "OEM name stamped on normalized assets.")
	fs.StringVar(&o.BaseURL, "oem.base-url", o.BaseURL, "Root of the OEM telematics API.")
	fs.StringVar(&o.TokenURL, "oem.token-url", o.TokenURL, "OAuth2 token endpoint of the OEM identity provider.")
	fs.StringVar(&o.Scope, "oem.scope", o.Scope, "OAuth2 scope; defaults to <client-id>/.default.")
	fs.StringVar(&o.ClientID, "oem.client-id", o.ClientID, "OAuth2 client id; falls back to "+credentials.EnvClientID+".")
	fs.StringVar(&o.ClientSecret, "oem.client-secret", o.ClientSecret, "OAuth2 client secret; prefer the environment.")
	fs.DurationVar(&o.RequestTimeout, "oem.request-timeout", o.RequestTimeout, "Timeout of a single call to the identity provider or the API.")
	fs.IntVar(&o.MaxAttempts, "oem.max-attempts", o.MaxAttempts, "Attempts per API call, including the first.")
	fs.IntVar(&o.HoursWindow, "oem.hours-window", o.HoursWindow, "Default diagnostics window in hours.")
	fs.StringSliceVar(&o.AssetPaths, "oem.asset-paths", o.AssetPaths, "Fleet listing path templates probed in order; supports {page}, {start} and {end}.")
}

// VaultOptions locates credentials in a Vault KV v2 engine.
type VaultOptions struct {
	Addr  string `json:"addr" mapstructure:"addr"`
	Token string `json:"token" mapstructure:"token"`
	Mount string `json:"mount" mapstructure:"mount"`
	Path  string `json:"path" mapstructure:"path"`
}

func NewVaultOptions() *VaultOptions {
	return &VaultOptions{Mount: "secret"}
}

func (o *VaultOptions) Validate() []error {
	if o.Addr != "" && o.Path == "" {
		return []error{fmt.Errorf("vault.path is required when vault.addr is set")}
	}
	return nil
}

func (o *VaultOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "vault.addr", o.Addr, "Vault address; empty disables Vault.")
	fs.StringVar(&o.Token, "vault.token", o.Token, "Vault token.")
	fs.StringVar(&o.Mount, "vault.mount", o.Mount, "KV v2 mount path.")
	fs.StringVar(&o.Path, "vault.path", o.Path, "Secret path holding client_id and client_secret.")
}

// SignatureOptions enables inbound request signature verification.
type SignatureOptions struct {
	SharedKey string `json:"shared-key" mapstructure:"shared-key"`
	SecretKey string `json:"secret-key" mapstructure:"secret-key"`
}

func NewSignatureOptions() *SignatureOptions {
	return &SignatureOptions{}
}

func (o *SignatureOptions) Validate() []error {
	if (o.SharedKey == "") != (o.SecretKey == "") {
		return []error{fmt.Errorf("signature.shared-key and signature.secret-key must be set together")}
	}
	return nil
}

func (o *SignatureOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.SharedKey, "signature.shared-key", o.SharedKey, "Shared key for request signature verification.")
	fs.StringVar(&o.SecretKey, "signature.secret-key", o.SecretKey, "Secret key for request signature verification.")
}

// GatewayOptions is the complete standalone gateway configuration.
type GatewayOptions struct {
	HTTP      *HTTPOptions      `json:"http" mapstructure:"http"`
	OEM       *OEMOptions       `json:"oem" mapstructure:"oem"`
	Vault     *VaultOptions     `json:"vault" mapstructure:"vault"`
	Signature *SignatureOptions `json:"signature" mapstructure:"signature"`
	Log       *log.Options      `json:"log" mapstructure:"log"`
}

func NewGatewayOptions() *GatewayOptions {
	return &GatewayOptions{
		HTTP:      NewHTTPOptions(),
		OEM:       NewOEMOptions(),
		Vault:     NewVaultOptions(),
		Signature: NewSignatureOptions(),
		Log:       log.NewOptions(),
	}
}

func (o *GatewayOptions) AddFlags(fs *pflag.FlagSet) {
	o.HTTP.AddFlags(fs)
	o.OEM.AddFlags(fs)
	o.Vault.AddFlags(fs)
	o.Signature.AddFlags(fs)
	o.Log.AddFlags(fs)
}

// Validate aggregates the errors of every option group.
func (o *GatewayOptions) Validate() error {
	var result *multierror.Error
	for _, errs := range [][]error{
		o.HTTP.Validate(),
		o.OEM.Validate(),
		o.Vault.Validate(),
		o.Signature.Validate(),
		o.Log.Validate(),
	} {
		result = multierror.Append(result, errs...)
	}
	return result.ErrorOrNil()
}

// Settings converts the options into gateway settings.
func (o *GatewayOptions) Settings() gateway.Settings {
	return gateway.Settings{
		BaseURL:  o.OEM.BaseURL,
		TokenURL: o.OEM.TokenURL,
		Scope:    o.OEM.Scope,
		OEMName:  o.OEM.Name,
		Credentials: credentials.Credentials{
			ClientID:     o.OEM.ClientID,
			ClientSecret: o.OEM.ClientSecret,
		},
		Vault: credentials.VaultConfig{
			Address:   o.Vault.Addr,
			Token:     o.Vault.Token,
			MountPath: o.Vault.Mount,
			Path:      o.Vault.Path,
		},
		SharedKey:       o.Signature.SharedKey,
		SecretKey:       o.Signature.SecretKey,
		RequestTimeout:  o.OEM.RequestTimeout,
		MaxAttempts:     o.OEM.MaxAttempts,
		AssetCandidates: o.OEM.AssetPaths,
		HoursWindow:     o.OEM.HoursWindow,
	}
}
