package profile

import (
	"fmt"
	"time"

	"github.com/harborline/dealdesk-cli/internal/model"
)

// DiagnosticKind classifies one data-quality finding from a normalization
// pass.
type DiagnosticKind string

const (
	// DiagMissingID marks a record skipped because it has no identifier.
	DiagMissingID DiagnosticKind = "missing_id"
	// DiagBadNumber marks a ticket bound that failed numeric coercion and
	// degraded to null.
	DiagBadNumber DiagnosticKind = "unparseable_number"
	// DiagUnknownFlag marks a preference value that was present but
	// unrecognized and degraded to "any".
	DiagUnknownFlag DiagnosticKind = "unrecognized_flag"
	// DiagMissingParent marks a team whose capital_partner_id resolves to no
	// known partner.
	DiagMissingParent DiagnosticKind = "missing_parent"
)

// Diagnostic records one skipped record or defaulted field. Normalization
// itself never fails; diagnostics are the audit channel for the data-quality
// report.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	Category Category       `json:"category"`
	EntityID string         `json:"entity_id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Field    string         `json:"field,omitempty"`
	Value    string         `json:"value,omitempty"`
}

// Set is the output of one normalization pass over the raw collections.
type Set struct {
	Keys            []string     `json:"preference_keys"`
	CapitalPartners []Profile    `json:"capital_partners"`
	Sponsors        []Profile    `json:"sponsors"`
	Diagnostics     []Diagnostic `json:"-"`
}

// BuildResult is the profile payload served to API and report consumers.
// GeneratedAt marshals as RFC 3339.
type BuildResult struct {
	GeneratedAt     time.Time `json:"generated_at"`
	PreferenceKeys  []string  `json:"preference_keys"`
	CapitalPartners []Profile `json:"capital_partners"`
	Sponsors        []Profile `json:"sponsors"`
}

// Normalizer converts raw CRM records into canonical profiles against one
// shared preference key set. It holds no mutable state; a single Normalizer
// is safe for concurrent use.
type Normalizer struct {
	keys KeySet
}

// NewNormalizer returns a Normalizer over the given key set.
func NewNormalizer(keys KeySet) Normalizer {
	return Normalizer{keys: keys}
}

// Keys exposes the key set the normalizer was built with.
func (n Normalizer) Keys() KeySet {
	return n.keys
}

// Normalize converts the raw partner and sponsor collections into canonical
// profiles. One malformed record never aborts the batch: a record without an
// id is skipped, a malformed field degrades to its neutral default, and every
// such event lands in Set.Diagnostics.
func (n Normalizer) Normalize(partners []model.CapitalPartnerRecord, sponsors []model.SponsorRecord) Set {
	set := Set{
		Keys:            n.keys.Keys(),
		CapitalPartners: make([]Profile, 0, len(partners)),
		Sponsors:        make([]Profile, 0, len(sponsors)),
	}

	for _, rec := range partners {
		if rec.ID == "" {
			set.Diagnostics = append(set.Diagnostics, Diagnostic{
				Kind:     DiagMissingID,
				Category: CategoryCapitalPartner,
				Name:     rec.Name,
			})
			continue
		}
		set.CapitalPartners = append(set.CapitalPartners, n.partnerProfile(rec, &set.Diagnostics))
	}

	for _, rec := range sponsors {
		if rec.ID == "" {
			set.Diagnostics = append(set.Diagnostics, Diagnostic{
				Kind:     DiagMissingID,
				Category: CategorySponsor,
				Name:     rec.Name,
			})
			continue
		}
		set.Sponsors = append(set.Sponsors, n.sponsorProfile(rec, &set.Diagnostics))
	}

	return set
}

// Build runs Normalize and stamps the result for serialization.
func (n Normalizer) Build(partners []model.CapitalPartnerRecord, sponsors []model.SponsorRecord) (BuildResult, []Diagnostic) {
	set := n.Normalize(partners, sponsors)
	return BuildResult{
		GeneratedAt:     time.Now().UTC(),
		PreferenceKeys:  set.Keys,
		CapitalPartners: set.CapitalPartners,
		Sponsors:        set.Sponsors,
	}, set.Diagnostics
}

// NormalizeTeams converts partner-team records into provider profiles
// carrying the parent back-reference. Parent names resolve against
// already-normalized capital partner profiles; a team whose parent id does
// not resolve keeps the id and gets a diagnostic instead of a name.
func (n Normalizer) NormalizeTeams(teams []model.PartnerTeamRecord, parents []Profile) ([]Profile, []Diagnostic) {
	byID := make(map[string]Profile, len(parents))
	for _, p := range parents {
		byID[p.EntityID] = p
	}

	out := make([]Profile, 0, len(teams))
	var diags []Diagnostic
	for _, rec := range teams {
		if rec.ID == "" {
			diags = append(diags, Diagnostic{
				Kind:     DiagMissingID,
				Category: CategoryCapitalPartner,
				Name:     rec.Name,
			})
			continue
		}

		p := Profile{
			ProfileID:        ID(CategoryCapitalPartner, rec.ID),
			Category:         CategoryCapitalPartner,
			EntityID:         rec.ID,
			Name:             rec.Name,
			OrganizationName: rec.Name,
			Relationship:     rec.Relationship,
			Currency:         rec.Currency,
			TicketMin:        number(CategoryCapitalPartner, rec.ID, "investment_min", rec.InvestmentMin, &diags),
			TicketMax:        number(CategoryCapitalPartner, rec.ID, "investment_max", rec.InvestmentMax, &diags),
			Preferences:      n.preferenceMap(CategoryCapitalPartner, rec.ID, rec.Preferences, &diags),
		}

		if rec.CapitalPartnerID != "" {
			id := rec.CapitalPartnerID
			p.CapitalPartnerID = &id
			if parent, ok := byID[id]; ok {
				name := parent.Name
				p.CapitalPartnerName = &name
			} else {
				diags = append(diags, Diagnostic{
					Kind:     DiagMissingParent,
					Category: CategoryCapitalPartner,
					EntityID: rec.ID,
					Field:    "capital_partner_id",
					Value:    id,
				})
			}
		}

		out = append(out, p)
	}
	return out, diags
}

func (n Normalizer) partnerProfile(rec model.CapitalPartnerRecord, diags *[]Diagnostic) Profile {
	return Profile{
		ProfileID:        ID(CategoryCapitalPartner, rec.ID),
		Category:         CategoryCapitalPartner,
		EntityID:         rec.ID,
		Name:             rec.Name,
		OrganizationName: rec.Name,
		Relationship:     rec.Relationship,
		Currency:         rec.Currency,
		TicketMin:        number(CategoryCapitalPartner, rec.ID, "investment_min", rec.InvestmentMin, diags),
		TicketMax:        number(CategoryCapitalPartner, rec.ID, "investment_max", rec.InvestmentMax, diags),
		Preferences:      n.preferenceMap(CategoryCapitalPartner, rec.ID, rec.Preferences, diags),
		Metadata:         orgMetadata(rec.Country, rec.HeadquartersLocation, rec.Type),
	}
}

func (n Normalizer) sponsorProfile(rec model.SponsorRecord, diags *[]Diagnostic) Profile {
	// The two legacy sub-objects union into one lookup: a key present in
	// either satisfies the shared key. They cover disjoint key families in
	// practice; regions wins if a key somehow appears in both.
	merged := make(map[string]any, len(rec.InfrastructureTypes)+len(rec.Regions))
	for k, v := range rec.InfrastructureTypes {
		merged[k] = v
	}
	for k, v := range rec.Regions {
		merged[k] = v
	}

	return Profile{
		ProfileID:        ID(CategorySponsor, rec.ID),
		Category:         CategorySponsor,
		EntityID:         rec.ID,
		Name:             rec.Name,
		OrganizationName: rec.Name,
		Relationship:     rec.Relationship,
		Currency:         rec.Currency,
		TicketMin:        number(CategorySponsor, rec.ID, "investment_need_min", rec.InvestmentNeedMin, diags),
		TicketMax:        number(CategorySponsor, rec.ID, "investment_need_max", rec.InvestmentNeedMax, diags),
		Preferences:      n.preferenceMap(CategorySponsor, rec.ID, merged, diags),
		Metadata:         orgMetadata(rec.Country, rec.HeadquartersLocation, rec.Type),
	}
}

// preferenceMap reads every shared key through NormalizeFlag. Absent keys are
// "any" with no diagnostic; a present value that still normalizes to "any"
// was unrecognized and is reported.
func (n Normalizer) preferenceMap(cat Category, id string, raw map[string]any, diags *[]Diagnostic) map[string]Flag {
	prefs := make(map[string]Flag, len(n.keys.keys))
	for _, key := range n.keys.keys {
		v, ok := raw[key]
		if !ok {
			prefs[key] = FlagAny
			continue
		}
		f := NormalizeFlag(v)
		if f == FlagAny && v != nil {
			*diags = append(*diags, Diagnostic{
				Kind:     DiagUnknownFlag,
				Category: cat,
				EntityID: id,
				Field:    key,
				Value:    fmt.Sprint(v),
			})
		}
		prefs[key] = f
	}
	return prefs
}

func number(cat Category, id, field string, v any, diags *[]Diagnostic) *float64 {
	f := toNumber(v)
	if f == nil && v != nil {
		*diags = append(*diags, Diagnostic{
			Kind:     DiagBadNumber,
			Category: cat,
			EntityID: id,
			Field:    field,
			Value:    fmt.Sprint(v),
		})
	}
	return f
}

func orgMetadata(country, hq, typ string) map[string]any {
	meta := make(map[string]any, 3)
	if country != "" {
		meta["country"] = country
	}
	if hq != "" {
		meta["headquarters_location"] = hq
	}
	if typ != "" {
		meta["type"] = typ
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
