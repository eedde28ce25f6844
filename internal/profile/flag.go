package profile

import (
	"encoding/json"
	"strings"
)

// Flag is the three-valued state of one shared preference key.
type Flag string

const (
	FlagYes Flag = "Y"   // explicitly opted in
	FlagNo  Flag = "N"   // explicitly opted out
	FlagAny Flag = "any" // unspecified or indifferent
)

// NormalizeFlag coerces a raw preference value into a Flag. Source records
// carry flags as strings, booleans, or numbers depending on which client
// wrote them, so the coercion is total: any value it does not recognize
// comes back as FlagAny, and it never panics.
func NormalizeFlag(v any) Flag {
	switch t := v.(type) {
	case nil:
		return FlagAny
	case bool:
		if t {
			return FlagYes
		}
		return FlagNo
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "y", "yes", "true", "1":
			return FlagYes
		case "n", "no", "false", "0", "":
			return FlagNo
		}
		return FlagAny
	case float64:
		switch t {
		case 1:
			return FlagYes
		case 0:
			return FlagNo
		}
		return FlagAny
	case int:
		switch t {
		case 1:
			return FlagYes
		case 0:
			return FlagNo
		}
		return FlagAny
	case int64:
		switch t {
		case 1:
			return FlagYes
		case 0:
			return FlagNo
		}
		return FlagAny
	case json.Number:
		return NormalizeFlag(string(t))
	}
	return FlagAny
}
