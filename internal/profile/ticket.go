package profile

import (
	"encoding/json"
	"strconv"
	"strings"
)

const million = 1_000_000

// TicketRange is a raw ticket-size constraint as supplied by API callers and
// the CLI. Bounds arrive as numbers or numeric strings; Unit optionally names
// the scale the bounds are expressed in.
type TicketRange struct {
	Min  any    `json:"min,omitempty"`
	Max  any    `json:"max,omitempty"`
	Unit string `json:"unit,omitempty"`
}

// Bounds coerces the range into absolute units. When Unit names millions
// ("million", "millions", "mm", case-insensitive) both bounds are scaled by
// 1,000,000; any other unit leaves the values as already-absolute. A bound
// that is missing or fails to parse degrades to nil, never an error.
func (r TicketRange) Bounds() (lo, hi *float64) {
	lo = toNumber(r.Min)
	hi = toNumber(r.Max)
	if !isMillionUnit(r.Unit) {
		return lo, hi
	}
	if lo != nil {
		v := *lo * million
		lo = &v
	}
	if hi != nil {
		v := *hi * million
		hi = &v
	}
	return lo, hi
}

func isMillionUnit(unit string) bool {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "million", "millions", "mm":
		return true
	}
	return false
}

// toNumber coerces a loosely typed record field into a float. Imports write
// bounds as numbers, older clients as strings with grouping commas. Anything
// unparseable comes back nil.
func toNumber(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return &t
	case float32:
		f := float64(t)
		return &f
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return &f
		}
		return nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
		return nil
	}
	return nil
}
