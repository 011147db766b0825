package dispatch

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Method names accepted by Dispatch.
const (
	MethodAssets      = "assets"
	MethodEquipment   = "equipment"
	MethodLocations   = "locations"
	MethodHours       = "hours"
	MethodFaults      = "faults"
	MethodFuel        = "fuel"
	MethodDiagnostics = "diagnostics"

	// methodFleet is the name older dashboards use for assets.
	methodFleet = "fleet"
)

var supported = []string{
	MethodAssets, MethodEquipment, MethodLocations, MethodHours, MethodFaults, MethodFuel, MethodDiagnostics,
}

func supportedList() string {
	return strings.Join(supported, ", ")
}

// Request is the dispatcher input.
type Request struct {
	Method string `json:"method"`
	// Endpoint is a page number, a vendor sub-path or an hours window depending on Method.
	Endpoint Param `json:"endpoint,omitempty"`
	// Normalize defaults to true; false returns the vendor JSON untouched.
	Normalize *bool `json:"normalize,omitempty"`
}

func (r Request) normalize() bool {
	return r.Normalize == nil || *r.Normalize
}

// Param accepts a JSON string or number.
type Param string

// UnmarshalJSON keeps numbers in their literal form.
func (p *Param) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Param(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Param(n.String())
	return nil
}
