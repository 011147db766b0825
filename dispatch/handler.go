package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/loafoe/kong-plugin-oemgateway/metrics"
)

// Handle decodes a JSON request body, dispatches it and encodes the result.
// It never panics: every failure, including recovered panics, becomes an
// ErrorResponse with a non-2xx status.
func (d *Dispatcher) Handle(ctx context.Context, body []byte) (status int, out []byte) {
	start := time.Now()
	method := "invalid"
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			d.logger.Error(err, "dispatch panicked", "method", method, "stack", string(debug.Stack()))
			status, out = d.failure(method, err)
		}
		metrics.DispatchTotal.WithLabelValues(method, metrics.StatusLabel(status)).Inc()
		metrics.DispatchLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return d.failure(method, &BadRequestError{Reason: fmt.Sprintf("invalid JSON body: %v", err)})
	}
	method = methodLabel(req.Method)

	res, err := d.Dispatch(ctx, req)
	if err != nil {
		return d.failure(method, err)
	}
	if raw, ok := res.(json.RawMessage); ok {
		return http.StatusOK, raw
	}
	out, err = json.Marshal(res)
	if err != nil {
		return d.failure(method, fmt.Errorf("error encoding response: %w", err))
	}
	return http.StatusOK, out
}

// Reject encodes err as an error envelope for a request refused before
// dispatch, such as one failing signature verification.
func (d *Dispatcher) Reject(err error) (int, []byte) {
	status, out := d.failure("rejected", err)
	metrics.DispatchTotal.WithLabelValues("rejected", metrics.StatusLabel(status)).Inc()
	return status, out
}

// methodLabel bounds the metric label set to known method names.
func methodLabel(m string) string {
	switch m {
	case "", methodFleet:
		return MethodAssets
	case MethodAssets, MethodEquipment, MethodLocations, MethodHours, MethodFaults, MethodFuel, MethodDiagnostics:
		return m
	}
	return "unsupported"
}

func (d *Dispatcher) failure(method string, err error) (int, []byte) {
	status, resp, kind := classify(err)
	d.logger.Error(err, "dispatch failed", "method", method, "kind", kind, "status", status)
	out, mErr := json.Marshal(resp)
	if mErr != nil {
		out = []byte(`{"error":"internal error","details":"failed to encode error response"}`)
	}
	return status, out
}
