package model

import "time"

// Kind identifies which organization collection a record belongs to.
type Kind string

const (
	KindCapitalPartner Kind = "capital_partner"
	KindSponsor        Kind = "sponsor"
	KindPartnerTeam    Kind = "partner_team"
)

// Kinds lists every organization collection in storage order.
var Kinds = []Kind{KindCapitalPartner, KindSponsor, KindPartnerTeam}

// Valid reports whether k names a known collection.
func (k Kind) Valid() bool {
	switch k {
	case KindCapitalPartner, KindSponsor, KindPartnerTeam:
		return true
	}
	return false
}

// CapitalPartnerRecord is the raw CRM record for a capital-allocating
// organization (fund, bank, institutional investor).
//
// Investment bounds and preference flags arrive from imports and older
// API clients as strings, numbers, or booleans interchangeably, so they
// stay loosely typed here; coercion happens during profile normalization.
type CapitalPartnerRecord struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Type                 string         `json:"type,omitempty"`
	Country              string         `json:"country,omitempty"`
	HeadquartersLocation string         `json:"headquarters_location,omitempty"`
	Relationship         *string        `json:"relationship,omitempty"`
	Currency             *string        `json:"currency,omitempty"`
	InvestmentMin        any            `json:"investment_min,omitempty"`
	InvestmentMax        any            `json:"investment_max,omitempty"`
	Preferences          map[string]any `json:"preferences,omitempty"`
	Archived             bool           `json:"archived,omitempty"`
	ArchivedAt           *time.Time     `json:"archived_at,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// SponsorRecord is the raw CRM record for a capital-seeking organization
// (project sponsor, developer). Preference data is split across two legacy
// sub-objects, infrastructure_types and regions, which predate the shared
// preference schema.
type SponsorRecord struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Type                 string         `json:"type,omitempty"`
	Country              string         `json:"country,omitempty"`
	HeadquartersLocation string         `json:"headquarters_location,omitempty"`
	Relationship         *string        `json:"relationship,omitempty"`
	Currency             *string        `json:"currency,omitempty"`
	InvestmentNeedMin    any            `json:"investment_need_min,omitempty"`
	InvestmentNeedMax    any            `json:"investment_need_max,omitempty"`
	InfrastructureTypes  map[string]any `json:"infrastructure_types,omitempty"`
	Regions              map[string]any `json:"regions,omitempty"`
	Archived             bool           `json:"archived,omitempty"`
	ArchivedAt           *time.Time     `json:"archived_at,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// PartnerTeamRecord is a desk or team inside a capital partner with its own
// mandate. Shaped like a partner record plus the back-reference to the
// parent organization.
type PartnerTeamRecord struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	CapitalPartnerID string         `json:"capital_partner_id"`
	Relationship     *string        `json:"relationship,omitempty"`
	Currency         *string        `json:"currency,omitempty"`
	InvestmentMin    any            `json:"investment_min,omitempty"`
	InvestmentMax    any            `json:"investment_max,omitempty"`
	Preferences      map[string]any `json:"preferences,omitempty"`
	Archived         bool           `json:"archived,omitempty"`
	ArchivedAt       *time.Time     `json:"archived_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
