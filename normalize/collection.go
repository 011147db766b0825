package normalize

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Kind names an entity kind with its own list locations and normalizer.
type Kind string

const (
	KindAsset    Kind = "assets"
	KindLocation Kind = "locations"
	KindHours    Kind = "hours"
	KindFault    Kind = "faults"
	KindFuel     Kind = "fuel"
)

// listPaths are the places a record list has been seen per kind.
var listPaths = map[Kind]Aliases{
	KindAsset:    {"fleet.equipment", "Fleet.Equipment", "equipment", "Equipment", "assets", "data", "items"},
	KindLocation: {"Location", "locations.location", "locations", "location", "data", "items"},
	KindHours:    {"CumulativeOperatingHours", "cumulativeOperatingHours", "hours", "data", "items"},
	KindFault:    {"FaultCode", "faultCodeMessages.faultCodeMessage", "faults", "data", "items"},
	KindFuel:     {"FuelRemaining", "fuelRemaining", "FuelUsed", "fuelUsed", "fuel", "data", "items"},
}

// Items finds the record list of kind inside body. A body that is itself an
// array is the list. The result may be a non-array when the vendor sent one.
func Items(body json.RawMessage, kind Kind) gjson.Result {
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return root
	}
	for _, path := range listPaths[kind] {
		if v := root.Get(path); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// Count returns the number of kind records in body.
func Count(body json.RawMessage, kind Kind) int {
	list := Items(body, kind)
	if !list.IsArray() {
		return 0
	}
	return len(list.Array())
}

// CountAssets is Count for KindAsset.
func CountAssets(body json.RawMessage) int {
	return Count(body, KindAsset)
}

// Collection maps list through fn. A non-array yields an empty, non-nil slice.
func Collection[T any](list gjson.Result, opts Options, fn func(gjson.Result, Options) T) []T {
	out := []T{}
	if !list.IsArray() {
		return out
	}
	list.ForEach(func(_, rec gjson.Result) bool {
		out = append(out, fn(rec, opts))
		return true
	})
	return out
}

// Fleet normalizes a fleet snapshot into the assets envelope.
func Fleet(body json.RawMessage, opts Options) FleetEnvelope {
	return FleetEnvelope{Assets: Collection(Items(body, KindAsset), opts, ToAsset)}
}

// Locations normalizes a location time series.
func Locations(body json.RawMessage, opts Options) []Location {
	return Collection(Items(body, KindLocation), opts, ToLocation)
}

// HoursSeries normalizes an hour-meter time series.
func HoursSeries(body json.RawMessage, opts Options) []Hours {
	return Collection(Items(body, KindHours), opts, ToHours)
}

// Faults normalizes a fault time series.
func Faults(body json.RawMessage, opts Options) []Fault {
	return Collection(Items(body, KindFault), opts, ToFault)
}

// FuelSeries normalizes a fuel time series.
func FuelSeries(body json.RawMessage, opts Options) []Fuel {
	return Collection(Items(body, KindFuel), opts, ToFuel)
}

// Equipment normalizes a single-equipment snapshot. Some API generations wrap
// the record in an "equipment" or "Equipment" object.
func Equipment(body json.RawMessage, opts Options) Asset {
	root := gjson.ParseBytes(body)
	for _, path := range []string{"equipment", "Equipment"} {
		if v := root.Get(path); v.IsObject() {
			return ToAsset(v, opts)
		}
	}
	return ToAsset(root, opts)
}
