package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/dealdesk-cli/internal/model"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

func testNormalizer() Normalizer {
	return NewNormalizer(NewKeySet(DefaultKeys()))
}

func TestNormalizePartnerRecord(t *testing.T) {
	n := testNormalizer()

	set := n.Normalize([]model.CapitalPartnerRecord{{
		ID:           "cp-1",
		Name:         "Meridian Infra Capital",
		Country:      "Singapore",
		Relationship: ptrString("warm"),
		Currency:     ptrString("USD"),
		Preferences:  map[string]any{"us_market": "Y", "vietnam": "N"},
	}}, nil)

	require.Len(t, set.CapitalPartners, 1)
	p := set.CapitalPartners[0]

	assert.Equal(t, "capital_partner:cp-1", p.ProfileID)
	assert.Equal(t, CategoryCapitalPartner, p.Category)
	assert.Equal(t, "cp-1", p.EntityID)
	assert.Equal(t, "Meridian Infra Capital", p.Name)
	assert.Equal(t, "Meridian Infra Capital", p.OrganizationName)
	assert.Equal(t, "warm", *p.Relationship)
	assert.Equal(t, "USD", *p.Currency)
	assert.Nil(t, p.TicketMin)
	assert.Nil(t, p.TicketMax)
	assert.Equal(t, "Singapore", p.Metadata["country"])

	assert.Equal(t, FlagYes, p.Preferences["us_market"])
	assert.Equal(t, FlagNo, p.Preferences["vietnam"])
	for _, key := range []string{"emerging_markets", "energy_infra", "transport_infra", "indonesia", "philippines", "thailand", "malaysia", "india"} {
		assert.Equal(t, FlagAny, p.Preferences[key], key)
	}
}

func TestNormalizeSponsorRecord(t *testing.T) {
	n := testNormalizer()

	set := n.Normalize(nil, []model.SponsorRecord{{
		ID:                  "sp-1",
		Name:                "Delta Grid Partners",
		InfrastructureTypes: map[string]any{"energy_infra": "Y"},
		Regions:             map[string]any{"vietnam": "Y"},
		InvestmentNeedMin:   2_000_000,
		InvestmentNeedMax:   "10000000",
	}})

	require.Len(t, set.Sponsors, 1)
	p := set.Sponsors[0]

	assert.Equal(t, "sponsor:sp-1", p.ProfileID)
	assert.Equal(t, CategorySponsor, p.Category)
	assert.Equal(t, FlagYes, p.Preferences["energy_infra"])
	assert.Equal(t, FlagYes, p.Preferences["vietnam"])
	for _, key := range []string{"us_market", "emerging_markets", "transport_infra", "indonesia", "philippines", "thailand", "malaysia", "india"} {
		assert.Equal(t, FlagAny, p.Preferences[key], key)
	}

	require.NotNil(t, p.TicketMin)
	require.NotNil(t, p.TicketMax)
	assert.InDelta(t, 2_000_000, *p.TicketMin, 0.001)
	assert.InDelta(t, 10_000_000, *p.TicketMax, 0.001)
}

// Every produced profile carries exactly one entry per shared key, whatever
// the source record held.
func TestNormalizeKeyCompleteness(t *testing.T) {
	keys := NewKeySet(DefaultKeys())
	n := NewNormalizer(keys)

	set := n.Normalize(
		[]model.CapitalPartnerRecord{
			{ID: "cp-1", Name: "Empty Prefs"},
			{ID: "cp-2", Name: "Junk Keys", Preferences: map[string]any{"lunar_market": "Y", "us_market": "Y"}},
		},
		[]model.SponsorRecord{
			{ID: "sp-1", Name: "No Sub Objects"},
		},
	)

	all := append(append([]Profile{}, set.CapitalPartners...), set.Sponsors...)
	require.Len(t, all, 3)
	for _, p := range all {
		assert.Len(t, p.Preferences, keys.Len(), p.ProfileID)
		for _, key := range keys.Keys() {
			assert.Contains(t, p.Preferences, key, p.ProfileID)
		}
		assert.NotContains(t, p.Preferences, "lunar_market")
	}
}

func TestNormalizeSkipsRecordsWithoutID(t *testing.T) {
	n := testNormalizer()

	set := n.Normalize(
		[]model.CapitalPartnerRecord{
			{Name: "No ID Fund"},
			{ID: "cp-1", Name: "Real Fund"},
		},
		[]model.SponsorRecord{
			{Name: "No ID Sponsor"},
		},
	)

	require.Len(t, set.CapitalPartners, 1)
	assert.Equal(t, "cp-1", set.CapitalPartners[0].EntityID)
	assert.Empty(t, set.Sponsors)

	require.Len(t, set.Diagnostics, 2)
	assert.Equal(t, DiagMissingID, set.Diagnostics[0].Kind)
	assert.Equal(t, "No ID Fund", set.Diagnostics[0].Name)
	assert.Equal(t, DiagMissingID, set.Diagnostics[1].Kind)
	assert.Equal(t, CategorySponsor, set.Diagnostics[1].Category)
}

func TestNormalizeDiagnostics(t *testing.T) {
	n := testNormalizer()

	set := n.Normalize([]model.CapitalPartnerRecord{{
		ID:            "cp-1",
		Name:          "Messy Fund",
		InvestmentMin: "a lot",
		InvestmentMax: 50_000_000,
		Preferences:   map[string]any{"us_market": "sometimes"},
	}}, nil)

	require.Len(t, set.CapitalPartners, 1)
	p := set.CapitalPartners[0]
	assert.Nil(t, p.TicketMin)
	require.NotNil(t, p.TicketMax)
	assert.Equal(t, FlagAny, p.Preferences["us_market"])

	require.Len(t, set.Diagnostics, 2)

	byKind := map[DiagnosticKind]Diagnostic{}
	for _, d := range set.Diagnostics {
		byKind[d.Kind] = d
	}
	bad, ok := byKind[DiagBadNumber]
	require.True(t, ok)
	assert.Equal(t, "investment_min", bad.Field)
	assert.Equal(t, "a lot", bad.Value)

	unknown, ok := byKind[DiagUnknownFlag]
	require.True(t, ok)
	assert.Equal(t, "us_market", unknown.Field)
	assert.Equal(t, "sometimes", unknown.Value)
}

func TestNormalizeTeams(t *testing.T) {
	n := testNormalizer()

	parents := n.Normalize([]model.CapitalPartnerRecord{
		{ID: "cp-1", Name: "Meridian Infra Capital"},
	}, nil).CapitalPartners

	teams, diags := n.NormalizeTeams([]model.PartnerTeamRecord{
		{
			ID:               "team-1",
			Name:             "SEA Energy Desk",
			CapitalPartnerID: "cp-1",
			Preferences:      map[string]any{"energy_infra": "Y", "vietnam": "Y"},
			InvestmentMin:    1_000_000,
		},
		{
			ID:               "team-2",
			Name:             "Orphan Desk",
			CapitalPartnerID: "cp-gone",
		},
		{
			Name: "No ID Desk",
		},
	}, parents)

	require.Len(t, teams, 2)

	sea := teams[0]
	assert.Equal(t, "capital_partner:team-1", sea.ProfileID)
	assert.Equal(t, CategoryCapitalPartner, sea.Category)
	require.NotNil(t, sea.CapitalPartnerID)
	assert.Equal(t, "cp-1", *sea.CapitalPartnerID)
	require.NotNil(t, sea.CapitalPartnerName)
	assert.Equal(t, "Meridian Infra Capital", *sea.CapitalPartnerName)
	assert.Equal(t, FlagYes, sea.Preferences["energy_infra"])
	require.NotNil(t, sea.TicketMin)

	orphan := teams[1]
	require.NotNil(t, orphan.CapitalPartnerID)
	assert.Equal(t, "cp-gone", *orphan.CapitalPartnerID)
	assert.Nil(t, orphan.CapitalPartnerName)

	require.Len(t, diags, 2)
	kinds := []DiagnosticKind{diags[0].Kind, diags[1].Kind}
	assert.Contains(t, kinds, DiagMissingParent)
	assert.Contains(t, kinds, DiagMissingID)
}

func TestBuildStampsResult(t *testing.T) {
	n := testNormalizer()

	res, diags := n.Build(
		[]model.CapitalPartnerRecord{{ID: "cp-1", Name: "Fund"}},
		[]model.SponsorRecord{{ID: "sp-1", Name: "Sponsor"}},
	)

	assert.False(t, res.GeneratedAt.IsZero())
	assert.Equal(t, DefaultKeys(), res.PreferenceKeys)
	assert.Len(t, res.CapitalPartners, 1)
	assert.Len(t, res.Sponsors, 1)
	assert.Empty(t, diags)
}
