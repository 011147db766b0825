package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/loafoe/kong-plugin-oemgateway/normalize"
	"github.com/loafoe/kong-plugin-oemgateway/oemapi"
)

// Diagnostics report statuses.
const (
	DiagnosticsOK       = "ok"
	DiagnosticsNoAssets = "no_assets"

	sampleSize = 3

	// MaxHoursWindow is one year.
	MaxHoursWindow = 8760
)

// DiagnosticsReport is returned by the diagnostics method.
type DiagnosticsReport struct {
	Timestamp       string            `json:"timestamp"`
	HoursWindow     int               `json:"hoursWindow"`
	EndpointsTested []oemapi.Outcome  `json:"endpointsTested"`
	Assets          DiagnosticsAssets `json:"assets"`
	Status          string            `json:"status"`
	Recommendations []string          `json:"recommendations"`
}

// DiagnosticsAssets summarizes the first candidate that produced assets.
type DiagnosticsAssets struct {
	Path   string            `json:"path"`
	Count  int               `json:"count"`
	Sample []normalize.Asset `json:"sample"`
}

// diagnostics probes every candidate path, unlike assets which stops at the
// first answer. Probes still run one after the other.
func (d *Dispatcher) diagnostics(ctx context.Context, tok string, req Request) (any, error) {
	window := d.window
	if req.Endpoint != "" {
		n, ok := positiveInt(string(req.Endpoint))
		if ok && n > MaxHoursWindow {
			return nil, &BadRequestError{Reason: fmt.Sprintf("diagnostics hours window must not exceed %d, got %d", MaxHoursWindow, n)}
		}
		if !ok {
			return nil, &BadRequestError{Reason: fmt.Sprintf("diagnostics endpoint must be an hours window, got %q", req.Endpoint)}
		}
		window = n
	}
	end := d.now()
	start := end.Add(-time.Duration(window) * time.Hour)

	report := DiagnosticsReport{
		Timestamp:       end.UTC().Format(time.RFC3339),
		HoursWindow:     window,
		EndpointsTested: []oemapi.Outcome{},
		Assets:          DiagnosticsAssets{Sample: []normalize.Asset{}},
		Status:          DiagnosticsNoAssets,
	}
	for _, c := range d.candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o := d.resolver.Probe(ctx, expand(c, defaultPage, start, end), tok)
		report.EndpointsTested = append(report.EndpointsTested, o)
		d.logger.Info("diagnostics probe", "path", o.Path, "status", o.Status, "items", o.Items)
		if o.Items > 0 && report.Status != DiagnosticsOK {
			assets := normalize.Fleet(o.Body, normalize.Options{OEMName: d.oemName}).Assets
			if len(assets) > sampleSize {
				assets = assets[:sampleSize]
			}
			report.Status = DiagnosticsOK
			report.Assets = DiagnosticsAssets{Path: o.Path, Count: o.Items, Sample: assets}
		}
	}

	if report.Status == DiagnosticsOK {
		report.Recommendations = oemapi.Hints(report.EndpointsTested)
	} else {
		report.Recommendations = oemapi.Recommendations(report.EndpointsTested)
	}
	return report, nil
}
