package oemapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/loafoe/kong-plugin-oemgateway/log"
	"github.com/loafoe/kong-plugin-oemgateway/metrics"
	"github.com/loafoe/kong-plugin-oemgateway/retry"
	"golang.org/x/time/rate"
	"gopkg.in/resty.v1"
)

const (
	// DefaultBaseURL is the ISO 15143-3 (AEMP 2.0) telematics API root.
	DefaultBaseURL = "https://api.cat.com/telematics/iso15143"
	// DefaultTrackingHeader carries a unique id per request for vendor side correlation.
	DefaultTrackingHeader = "X-Cat-API-Tracking-Id"

	maxBodyExcerpt = 256
)

// EmptyFleet is returned in place of a 404 body.
var EmptyFleet = json.RawMessage(`{"fleet":{"equipment":[]}}`)

// Config configures a Client.
type Config struct {
	BaseURL        string
	TrackingHeader string
	Timeout        time.Duration
	Retry          retry.Options
	Logger         log.Logger
	// NewTrackingID defaults to a random UUID.
	NewTrackingID func() string
}

// Client calls the OEM telemetry API with a bearer token.
type Client struct {
	baseURL        string
	trackingHeader string
	retry          retry.Options
	client         *resty.Client
	logger         log.Logger
	newTrackingID  func() string
	throttled      *rate.Sometimes
}

// NewClient returns a Client. Zero values in cfg fall back to the package defaults.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	header := cfg.TrackingHeader
	if header == "" {
		header = DefaultTrackingHeader
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := cfg.Retry
	if opts.MaxAttempts == 0 {
		opts = retry.DefaultOptions()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Std()
	}
	newID := cfg.NewTrackingID
	if newID == nil {
		newID = uuid.NewString
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		trackingHeader: header,
		client:         resty.New().SetTimeout(timeout),
		logger:         logger.WithName("oemapi"),
		newTrackingID:  newID,
		throttled:      &rate.Sometimes{First: 1, Interval: time.Minute},
	}
	notify := opts.Notify
	opts.Notify = func(err error, attempt int, delay time.Duration) {
		metrics.RetriesTotal.Inc()
		c.logger.Debug("retrying OEM API call", "attempt", attempt, "max_attempts", opts.MaxAttempts, "delay", delay, "error", err)
		var rerr *RetriableError
		if errors.As(err, &rerr) && rerr.Status == http.StatusTooManyRequests {
			c.throttled.Do(func() {
				c.logger.Warn("OEM API is throttling requests", "delay", delay)
			})
		}
		if notify != nil {
			notify(err, attempt, delay)
		}
	}
	c.retry = opts
	return c
}

// Call GETs path with retries on transient failures.
func (c *Client) Call(ctx context.Context, path, token string) (json.RawMessage, error) {
	return retry.Do(ctx, c.retry, func(ctx context.Context) (json.RawMessage, error) {
		return c.Get(ctx, path, token)
	})
}

// Get performs a single GET of path. A 404 yields EmptyFleet.
func (c *Client) Get(ctx context.Context, path, token string) (json.RawMessage, error) {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	trackingID := c.newTrackingID()
	logger := c.logger.WithValues("url", url, "tracking_id", trackingID)
	logger.Debug("calling OEM API")

	r := c.client.R().SetContext(ctx)
	r = r.SetHeader("Authorization", "Bearer "+token)
	r = r.SetHeader("Accept", "application/json")
	r = r.SetHeader(c.trackingHeader, trackingID)
	resp, err := r.Execute(http.MethodGet, url)
	if err != nil {
		metrics.VendorRequestsTotal.WithLabelValues("0").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Err: err}
	}

	status := resp.StatusCode()
	metrics.VendorRequestsTotal.WithLabelValues(metrics.StatusLabel(status)).Inc()
	switch {
	case status >= 200 && status <= 299:
		body := resp.Body()
		if !json.Valid(body) {
			return nil, &DecodeError{Path: path}
		}
		return json.RawMessage(body), nil
	case status == http.StatusNotFound:
		logger.Info("no records found, returning empty fleet")
		return EmptyFleet, nil
	case retry.RetriableStatus(status):
		return nil, &RetriableError{Status: status, Body: excerpt(resp.Body())}
	default:
		body := excerpt(resp.Body())
		logger.Warn("OEM API call failed", "status", status, "body", body)
		return nil, &APIError{Status: status, Body: body}
	}
}

func excerpt(body []byte) string {
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
