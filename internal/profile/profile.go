package profile

import "sort"

// Category discriminates the two sides of the marketplace. Partner teams
// normalize under CategoryCapitalPartner with the parent back-reference set.
type Category string

const (
	CategoryCapitalPartner Category = "capital_partner"
	CategorySponsor        Category = "sponsor"
)

// ID builds the canonical profile identifier, "{category}:{entity_id}".
func ID(cat Category, entityID string) string {
	return string(cat) + ":" + entityID
}

// Profile is the canonical, normalized view of one organization's investment
// preferences and ticket appetite. A profile is derived fresh on every
// normalization pass from the current raw records; it is never written back
// to storage and never mutated after construction.
//
// Preferences holds exactly one entry per shared preference key. Name and
// OrganizationName carry the same display value under both spellings because
// the two source schemas and their downstream consumers disagree on the
// field name.
type Profile struct {
	ProfileID          string          `json:"profile_id"`
	Category           Category        `json:"category"`
	EntityID           string          `json:"entity_id"`
	Name               string          `json:"name"`
	OrganizationName   string          `json:"organization_name"`
	Relationship       *string         `json:"relationship"`
	Currency           *string         `json:"currency"`
	TicketMin          *float64        `json:"ticket_min"`
	TicketMax          *float64        `json:"ticket_max"`
	Preferences        map[string]Flag `json:"preferences"`
	CapitalPartnerID   *string         `json:"capital_partner_id,omitempty"`
	CapitalPartnerName *string         `json:"capital_partner_name,omitempty"`
	Metadata           map[string]any  `json:"metadata,omitempty"`
}

// PositiveSet returns the keys explicitly flagged "Y", sorted. This is the
// overlap basis for pairing: FlagNo and FlagAny both stay out.
func (p Profile) PositiveSet() []string {
	keys := make([]string, 0, len(p.Preferences))
	for k, f := range p.Preferences {
		if f == FlagYes {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
