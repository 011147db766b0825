// Package dispatch routes gateway requests to token acquisition, vendor calls
// and normalization, and converts every failure into a JSON error envelope.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/loafoe/kong-plugin-oemgateway/log"
	"github.com/loafoe/kong-plugin-oemgateway/normalize"
	"github.com/loafoe/kong-plugin-oemgateway/oemapi"
)

const (
	defaultPage        = "1"
	defaultHoursWindow = 24
	defaultSource      = "iso15143"
)

// TokenSource hands out bearer tokens for the vendor API.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// Config configures a Dispatcher.
type Config struct {
	OEMName string
	// Source prefixes the source tag of time-series records.
	Source string
	// AssetCandidates are probed in order for the assets and diagnostics methods.
	AssetCandidates []string
	// HoursWindow is the diagnostics window used when the request omits one.
	// It is capped at MaxHoursWindow.
	HoursWindow int
	Logger      log.Logger
	Now         func() time.Time
}

// Dispatcher is the single entry point of the gateway.
type Dispatcher struct {
	tokens     TokenSource
	client     *oemapi.Client
	resolver   *oemapi.Resolver
	oemName    string
	source     string
	candidates []string
	window     int
	logger     log.Logger
	now        func() time.Time
}

// New returns a Dispatcher calling the vendor through client.
func New(tokens TokenSource, client *oemapi.Client, cfg Config) *Dispatcher {
	d := &Dispatcher{
		tokens:     tokens,
		client:     client,
		resolver:   oemapi.NewResolver(client, normalize.CountAssets),
		oemName:    cfg.OEMName,
		source:     cfg.Source,
		candidates: cfg.AssetCandidates,
		window:     cfg.HoursWindow,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if d.oemName == "" {
		d.oemName = normalize.DefaultOEMName
	}
	if d.source == "" {
		d.source = defaultSource
	}
	if len(d.candidates) == 0 {
		d.candidates = DefaultAssetCandidates
	}
	if d.window <= 0 {
		d.window = defaultHoursWindow
	}
	if d.window > MaxHoursWindow {
		d.window = MaxHoursWindow
	}
	if d.logger == nil {
		d.logger = log.Std()
	}
	d.logger = d.logger.WithName("dispatch")
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// AssetsResponse is the assets envelope. Endpoint names the candidate that
// answered; Attempts and Recommendations are set when none did.
type AssetsResponse struct {
	Assets          []normalize.Asset `json:"assets"`
	Endpoint        string            `json:"endpoint"`
	Attempts        []oemapi.Outcome  `json:"attempts,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
}

// EquipmentResponse wraps a single asset; Asset is nil when the vendor has no record.
type EquipmentResponse struct {
	Asset *normalize.Asset `json:"asset"`
}

// Dispatch routes req by method and returns a value ready for JSON encoding.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (any, error) {
	method := req.Method
	if method == "" || method == methodFleet {
		method = MethodAssets
	}
	switch method {
	case MethodAssets, MethodEquipment, MethodLocations, MethodHours, MethodFaults, MethodFuel, MethodDiagnostics:
	default:
		return nil, &UnsupportedMethodError{Method: req.Method}
	}

	tok, err := d.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	switch method {
	case MethodAssets:
		return d.assets(ctx, tok, req)
	case MethodEquipment:
		return d.equipment(ctx, tok, req)
	case MethodDiagnostics:
		return d.diagnostics(ctx, tok, req)
	default:
		return d.series(ctx, tok, method, req)
	}
}

func (d *Dispatcher) assets(ctx context.Context, tok string, req Request) (any, error) {
	page := string(req.Endpoint)
	if page == "" {
		page = defaultPage
	}
	if _, ok := positiveInt(page); !ok {
		return nil, &BadRequestError{Reason: fmt.Sprintf("assets endpoint must be a page number, got %q", page)}
	}
	end := d.now()
	start := end.Add(-time.Duration(d.window) * time.Hour)
	candidates := make([]string, 0, len(d.candidates))
	for _, c := range d.candidates {
		candidates = append(candidates, expand(c, page, start, end))
	}

	res := d.resolver.ResolveAndFetch(ctx, candidates, tok)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !res.Found {
		d.logger.Warn("no endpoint answered with assets", "candidates", len(candidates))
		return AssetsResponse{
			Assets:          []normalize.Asset{},
			Attempts:        res.Outcomes,
			Recommendations: res.Recommendations,
		}, nil
	}
	if !req.normalize() {
		return res.Body, nil
	}
	env := normalize.Fleet(res.Body, normalize.Options{OEMName: d.oemName})
	d.logger.Info("normalized assets", "count", len(env.Assets), "endpoint", res.Path)
	return AssetsResponse{Assets: env.Assets, Endpoint: res.Path}, nil
}

func (d *Dispatcher) subPath(method string, req Request) (string, error) {
	p := string(req.Endpoint)
	if p == "" {
		return "", &BadRequestError{Reason: method + " requires an endpoint vendor path"}
	}
	if !validSubPath(p) {
		return "", &BadRequestError{Reason: fmt.Sprintf("endpoint %q is not a vendor sub-path", p)}
	}
	return p, nil
}

func (d *Dispatcher) equipment(ctx context.Context, tok string, req Request) (any, error) {
	p, err := d.subPath(MethodEquipment, req)
	if err != nil {
		return nil, err
	}
	body, err := d.client.Call(ctx, p, tok)
	if err != nil {
		return nil, err
	}
	if !req.normalize() {
		return body, nil
	}
	if bytes.Equal(body, oemapi.EmptyFleet) {
		return EquipmentResponse{}, nil
	}
	asset := normalize.Equipment(body, normalize.Options{OEMName: d.oemName})
	return EquipmentResponse{Asset: &asset}, nil
}

func (d *Dispatcher) series(ctx context.Context, tok, method string, req Request) (any, error) {
	p, err := d.subPath(method, req)
	if err != nil {
		return nil, err
	}
	body, err := d.client.Call(ctx, p, tok)
	if err != nil {
		return nil, err
	}
	if !req.normalize() {
		return body, nil
	}
	opts := normalize.Options{
		OEMName:  d.oemName,
		Source:   d.source + "/" + method,
		AssetRef: assetRefFromPath(p),
	}
	var out any
	switch method {
	case MethodLocations:
		out = normalize.Locations(body, opts)
	case MethodHours:
		out = normalize.HoursSeries(body, opts)
	case MethodFaults:
		out = normalize.Faults(body, opts)
	case MethodFuel:
		out = normalize.FuelSeries(body, opts)
	}
	return out, nil
}
