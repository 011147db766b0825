package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Aliases is an ordered list of gjson paths that may hold one canonical field.
type Aliases []string

// first returns the first alias whose value satisfies ok.
func first(rec gjson.Result, aliases Aliases, ok func(gjson.Result) bool) (gjson.Result, bool) {
	for _, path := range aliases {
		v := rec.Get(path)
		if v.Exists() && v.Type != gjson.Null && ok(v) {
			return v, true
		}
	}
	return gjson.Result{}, false
}

func isString(v gjson.Result) bool {
	switch v.Type {
	case gjson.String:
		return strings.TrimSpace(v.Str) != ""
	case gjson.Number:
		return true
	}
	return false
}

// numberValue parses v as a finite float. NaN and infinities, including
// out of range literals, count as unreported.
func numberValue(v gjson.Result) (float64, bool) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isNumber(v gjson.Result) bool {
	_, ok := numberValue(v)
	return ok
}

// String looks up a string field. Numbers are kept verbatim.
func String(rec gjson.Result, aliases Aliases) (string, bool) {
	v, ok := first(rec, aliases, isString)
	if !ok {
		return "", false
	}
	if v.Type == gjson.Number {
		return v.Raw, true
	}
	return strings.TrimSpace(v.Str), true
}

// Number looks up a numeric field. Numeric strings are parsed.
func Number(rec gjson.Result, aliases Aliases) (float64, bool) {
	v, ok := first(rec, aliases, isNumber)
	if !ok {
		return 0, false
	}
	return numberValue(v)
}

func optString(rec gjson.Result, aliases Aliases) *string {
	if s, ok := String(rec, aliases); ok {
		return &s
	}
	return nil
}

func optNumber(rec gjson.Result, aliases Aliases) *float64 {
	if f, ok := Number(rec, aliases); ok {
		return &f
	}
	return nil
}

func stringOr(rec gjson.Result, aliases Aliases, fallback string) string {
	if s, ok := String(rec, aliases); ok {
		return s
	}
	return fallback
}

func numberOr(rec gjson.Result, aliases Aliases, fallback float64) float64 {
	if f, ok := Number(rec, aliases); ok {
		return f
	}
	return fallback
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Timestamp looks up a time field and renders it as RFC 3339 in UTC.
// Epoch numbers are read as seconds, or milliseconds when too large for
// seconds. Unparseable strings are returned as sent.
func Timestamp(rec gjson.Result, aliases Aliases) string {
	v, ok := first(rec, aliases, isString)
	if !ok {
		return ""
	}
	if v.Type == gjson.Number {
		n := v.Int()
		if n > 1e11 {
			return time.UnixMilli(n).UTC().Format(time.RFC3339Nano)
		}
		return time.Unix(n, 0).UTC().Format(time.RFC3339Nano)
	}
	s := strings.TrimSpace(v.Str)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339Nano)
		}
	}
	return s
}
