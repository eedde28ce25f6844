package profile

import "strings"

// FilterSpec is the ad-hoc profile query accepted by the filter endpoint and
// CLI. Preferences maps shared keys to "Y"/"N"; entries with unknown keys or
// other values are dropped before filtering rather than erroring. Ticket, if
// set, is an interval-overlap constraint after unit normalization.
type FilterSpec struct {
	Preferences map[string]any `json:"preference_filters,omitempty"`
	Ticket      *TicketRange   `json:"ticket_range,omitempty"`
}

// Filter returns the subset of profiles satisfying spec, in input order. The
// input slice is never mutated and no new profiles are introduced.
//
// A "Y" filter requires the profile flag to be exactly FlagYes. An "N" filter
// requires anything other than FlagYes: explicit opt-out and "any" both count
// as not opted in. Ticket bounds reject only a provable non-overlap, so a
// profile with no bounds always passes the ticket test.
func Filter(profiles []Profile, keys KeySet, spec FilterSpec) []Profile {
	filters := sanitizeFilters(keys, spec.Preferences)

	var lo, hi *float64
	if spec.Ticket != nil {
		lo, hi = spec.Ticket.Bounds()
	}

	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		if matches(p, filters, lo, hi) {
			out = append(out, p)
		}
	}
	return out
}

// sanitizeFilters keeps only entries whose key belongs to the shared set and
// whose value is case-insensitively "Y" or "N". Everything else is ignored.
func sanitizeFilters(keys KeySet, in map[string]any) map[string]Flag {
	out := make(map[string]Flag, len(in))
	for k, v := range in {
		if !keys.Contains(k) {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "Y":
			out[k] = FlagYes
		case "N":
			out[k] = FlagNo
		}
	}
	return out
}

func matches(p Profile, filters map[string]Flag, lo, hi *float64) bool {
	for key, want := range filters {
		got := p.Preferences[key]
		switch want {
		case FlagYes:
			if got != FlagYes {
				return false
			}
		case FlagNo:
			if got == FlagYes {
				return false
			}
		}
	}

	if lo != nil && p.TicketMax != nil && *lo > *p.TicketMax {
		return false
	}
	if hi != nil && p.TicketMin != nil && *hi < *p.TicketMin {
		return false
	}
	return true
}
