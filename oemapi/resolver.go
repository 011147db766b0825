package oemapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
)

// Outcome states for a probed candidate path.
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusError   = "error"
)

// Remediation is returned whenever no candidate path produced data.
var Remediation = []string{
	"Verify the client application is entitled to the ISO 15143-3 telematics API product.",
	"Enable the data sharing flag for the fleet account in the OEM portal.",
	"Confirm the equipment is enrolled in a telematics subscription and has reported recently.",
	"Check that the OAuth scope matches the API registration (<client_id>/.default).",
}

// Outcome is the result of probing one candidate path.
type Outcome struct {
	Path   string
	Status string
	Items  int
	Err    error
	Body   json.RawMessage
}

// MarshalJSON reports either itemsFound or error.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Err != nil {
		return json.Marshal(struct {
			Path   string `json:"path"`
			Status string `json:"status"`
			Error  string `json:"error"`
		}{o.Path, o.Status, o.Err.Error()})
	}
	return json.Marshal(struct {
		Path   string `json:"path"`
		Status string `json:"status"`
		Items  int    `json:"itemsFound"`
	}{o.Path, o.Status, o.Items})
}

// Resolution is what ResolveAndFetch settled on.
type Resolution struct {
	Found           bool
	Path            string
	Body            json.RawMessage
	Items           int
	Outcomes        []Outcome
	Recommendations []string
}

// Resolver probes candidate paths in order until one answers with data.
type Resolver struct {
	client *Client
	count  func(json.RawMessage) int
	// Lenient accepts any non-error answer, even one without items.
	Lenient bool
}

// NewResolver returns a Resolver counting items in a response with count.
func NewResolver(client *Client, count func(json.RawMessage) int) *Resolver {
	return &Resolver{client: client, count: count}
}

// Probe calls path once through the retrying caller and classifies the answer.
func (r *Resolver) Probe(ctx context.Context, path, token string) Outcome {
	body, err := r.client.Call(ctx, path, token)
	if err != nil {
		return Outcome{Path: path, Status: StatusError, Err: err}
	}
	n := r.count(body)
	status := StatusSuccess
	if n == 0 {
		status = StatusEmpty
	}
	return Outcome{Path: path, Status: status, Items: n, Body: body}
}

// ResolveAndFetch tries candidates strictly in order. The first acceptable
// answer wins and later candidates are never called. When none is acceptable
// the Resolution carries every outcome and remediation hints.
func (r *Resolver) ResolveAndFetch(ctx context.Context, candidates []string, token string) *Resolution {
	res := &Resolution{}
	for _, path := range candidates {
		if ctx.Err() != nil {
			res.Outcomes = append(res.Outcomes, Outcome{Path: path, Status: StatusError, Err: ctx.Err()})
			break
		}
		o := r.Probe(ctx, path, token)
		res.Outcomes = append(res.Outcomes, o)
		if o.Err != nil {
			r.client.logger.Info("candidate endpoint failed", "path", path, "error", o.Err)
			continue
		}
		if o.Items > 0 || r.Lenient {
			res.Found = true
			res.Path = o.Path
			res.Body = o.Body
			res.Items = o.Items
			r.client.logger.Info("candidate endpoint answered", "path", path, "items", o.Items)
			return res
		}
	}
	res.Recommendations = Recommendations(res.Outcomes)
	return res
}

// Recommendations is Hints followed by Remediation.
func Recommendations(outcomes []Outcome) []string {
	out := Hints(outcomes)
	for _, s := range Remediation {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Hints derives actionable hints from failed outcomes, without duplicates.
func Hints(outcomes []Outcome) []string {
	out := []string{}
	add := func(s string) {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	for _, o := range outcomes {
		if o.Err == nil {
			continue
		}
		var sc interface{ StatusCode() int }
		if !errors.As(o.Err, &sc) {
			var te *TransportError
			if errors.As(o.Err, &te) {
				add("The OEM API could not be reached; check network egress and the configured base URL.")
			}
			continue
		}
		switch sc.StatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden:
			add(fmt.Sprintf("The OEM API answered %d: confirm API permissions were granted to the client application.", sc.StatusCode()))
		case http.StatusTooManyRequests:
			add("The OEM API is rate limiting this client; retry later or request a higher quota.")
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			add("The OEM API is failing server side; check the vendor status page and retry later.")
		}
	}
	return out
}
