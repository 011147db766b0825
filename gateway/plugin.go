// Package gateway hosts the OEM telemetry gateway as a Kong plugin and
// wires the components shared with the standalone server.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Kong/go-pdk"
	"github.com/loafoe/kong-plugin-oemgateway/credentials"
	"github.com/loafoe/kong-plugin-oemgateway/dispatch"
	"github.com/loafoe/kong-plugin-oemgateway/log"
)

// Config holds the configuration of the plugin
type Config struct {
	BaseURL         string `json:"base_url"`
	TokenURL        string `json:"token_url"`
	Scope           string `json:"scope"`
	OEMName         string `json:"oem_name"`
	ClientID        string `json:"client_id"`
	ClientSecret    string `json:"client_secret"`
	VaultAddr       string `json:"vault_addr"`
	VaultToken      string `json:"vault_token"`
	VaultMount      string `json:"vault_mount"`
	VaultPath       string `json:"vault_path"`
	SharedKey       string `json:"shared_key"`
	SecretKey       string `json:"secret_key"`
	RequestTimeout  int    `json:"request_timeout"`
	MaxAttempts     int    `json:"max_attempts"`
	// DispatchTimeout bounds a whole dispatch in seconds, retries included.
	DispatchTimeout int    `json:"dispatch_timeout"`
	DebugLog        bool   `json:"debug_log"`
	stack           *Stack
	err             error
	doOnce          sync.Once
	revision        string
}

const defaultDispatchTimeout = 60 * time.Second

// New returns a new plugin instance
// nolint
func New() interface{} {
	return &Config{}
}

func (conf *Config) settings() Settings {
	return Settings{
		BaseURL:  conf.BaseURL,
		TokenURL: conf.TokenURL,
		Scope:    conf.Scope,
		OEMName:  conf.OEMName,
		Credentials: credentials.Credentials{
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
		},
		Vault: credentials.VaultConfig{
			Address:   conf.VaultAddr,
			Token:     conf.VaultToken,
			MountPath: conf.VaultMount,
			Path:      conf.VaultPath,
		},
		SharedKey:      conf.SharedKey,
		SecretKey:      conf.SecretKey,
		RequestTimeout: time.Duration(conf.RequestTimeout) * time.Second,
		MaxAttempts:    conf.MaxAttempts,
	}
}

func (conf *Config) dispatchTimeout() time.Duration {
	if conf.DispatchTimeout > 0 {
		return time.Duration(conf.DispatchTimeout) * time.Second
	}
	return defaultDispatchTimeout
}

func (conf *Config) init() error {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, kv := range info.Settings {
			if kv.Key == "vcs.revision" {
				conf.revision = kv.Value
			}
		}
	}
	opts := log.NewOptions()
	opts.Name = "oem-gateway"
	if conf.DebugLog {
		opts.Level = "debug"
	}
	stack, err := Build(context.Background(), conf.settings(), log.NewLogger(opts))
	if err != nil {
		return err
	}
	conf.stack = stack
	return nil
}

// Access implements the Access step. The request never reaches an upstream
// service: the gateway answers it with the dispatch result.
func (conf *Config) Access(kong *pdk.PDK) {
	conf.doOnce.Do(func() {
		conf.err = conf.init()
	})
	headers := map[string][]string{
		"Content-Type": {"application/json"},
	}
	if conf.revision != "" {
		headers["X-Plugin-Revision"] = []string{conf.revision}
	}

	if conf.err != nil {
		body, _ := json.Marshal(dispatch.ErrorResponse{
			Error:   "gateway initialization failed",
			Details: conf.err.Error(),
		})
		kong.Response.Exit(http.StatusInternalServerError, body, headers)
		return
	}
	d := conf.stack.Dispatcher

	// Signature validation
	if v := conf.stack.Verifier; v != nil {
		err := v.Verify(func(name string) string {
			h, _ := kong.Request.GetHeader(name)
			return h
		})
		if err != nil {
			status, body := d.Reject(err)
			kong.Response.Exit(status, body, headers)
			return
		}
	}

	raw, err := kong.Request.GetRawBody()
	if err != nil {
		status, body := d.Reject(&dispatch.BadRequestError{Reason: fmt.Sprintf("error reading body: %v", err)})
		kong.Response.Exit(status, body, headers)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), conf.dispatchTimeout())
	defer cancel()
	status, body := d.Handle(ctx, raw)
	kong.Response.Exit(status, body, headers)
}
