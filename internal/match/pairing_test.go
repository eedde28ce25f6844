package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/dealdesk-cli/internal/profile"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

func mkProfile(cat profile.Category, id, name string, positive ...string) profile.Profile {
	prefs := make(map[string]profile.Flag)
	for _, k := range profile.DefaultKeys() {
		prefs[k] = profile.FlagAny
	}
	for _, k := range positive {
		prefs[k] = profile.FlagYes
	}
	return profile.Profile{
		ProfileID:        profile.ID(cat, id),
		Category:         cat,
		EntityID:         id,
		Name:             name,
		OrganizationName: name,
		Preferences:      prefs,
	}
}

func TestComputeBasicMatch(t *testing.T) {
	sponsor := mkProfile(profile.CategorySponsor, "sp-1", "Delta Grid", "energy_infra")
	partner := mkProfile(profile.CategoryCapitalPartner, "cp-1", "Meridian", "energy_infra", "us_market")
	partner.Relationship = ptrString("warm")
	partner.TicketMin = ptrFloat64(1_000_000)
	partner.TicketMax = ptrFloat64(5_000_000)

	res := Compute([]profile.Profile{sponsor}, []profile.Profile{partner}, nil)

	require.Len(t, res.BySponsor, 1)
	sm := res.BySponsor[0]
	assert.Equal(t, "sponsor:sp-1", sm.Sponsor.ProfileID)
	require.Len(t, sm.CapitalPartners, 1)
	assert.Empty(t, sm.CapitalPartnerTeams)

	e := sm.CapitalPartners[0]
	assert.Equal(t, "capital_partner:cp-1", e.ProfileID)
	assert.Equal(t, []string{"energy_infra"}, e.OverlapPreferences)
	assert.Equal(t, 1, e.OverlapSize)
	assert.Equal(t, "warm", *e.Relationship)
	assert.Equal(t, 1_000_000.0, *e.TicketMin)
	assert.Equal(t, 5_000_000.0, *e.TicketMax)
}

// Preference overlap alone decides inclusion. A disjoint ticket range nulls
// the overlap component but never drops the match.
func TestComputeTicketNeverGates(t *testing.T) {
	sponsor := mkProfile(profile.CategorySponsor, "sp-1", "Delta Grid", "energy_infra")
	sponsor.TicketMin = ptrFloat64(50_000_000)
	sponsor.TicketMax = ptrFloat64(80_000_000)

	partner := mkProfile(profile.CategoryCapitalPartner, "cp-1", "Meridian", "energy_infra")
	partner.TicketMin = ptrFloat64(1_000_000)
	partner.TicketMax = ptrFloat64(2_000_000)

	res := Compute([]profile.Profile{sponsor}, []profile.Profile{partner}, nil)

	require.Len(t, res.BySponsor, 1)
	require.Len(t, res.BySponsor[0].CapitalPartners, 1)
	assert.Nil(t, res.BySponsor[0].CapitalPartners[0].TicketOverlap)
}

// The inverse: a candidate whose ticket range fully contains the sponsor's
// still never appears without preference overlap.
func TestComputeEmptyOverlapExcluded(t *testing.T) {
	sponsor := mkProfile(profile.CategorySponsor, "sp-1", "Delta Grid", "energy_infra")
	sponsor.TicketMin = ptrFloat64(2_000_000)
	sponsor.TicketMax = ptrFloat64(3_000_000)

	partner := mkProfile(profile.CategoryCapitalPartner, "cp-1", "Meridian", "us_market")
	partner.TicketMin = ptrFloat64(1_000_000)
	partner.TicketMax = ptrFloat64(10_000_000)

	res := Compute([]profile.Profile{sponsor}, []profile.Profile{partner}, nil)
	assert.Empty(t, res.BySponsor)
}

func TestComputeSponsorWithoutPositivesOmitted(t *testing.T) {
	sponsor := mkProfile(profile.CategorySponsor, "sp-1", "Indifferent")
	partner := mkProfile(profile.CategoryCapitalPartner, "cp-1", "Meridian", "us_market", "vietnam")

	res := Compute([]profile.Profile{sponsor}, []profile.Profile{partner}, nil)
	assert.Empty(t, res.BySponsor)
}

func TestOverlapCommutes(t *testing.T) {
	a := mkProfile(profile.CategorySponsor, "a", "A", "energy_infra", "vietnam", "india")
	b := mkProfile(profile.CategoryCapitalPartner, "b", "B", "vietnam", "india", "us_market")

	ab := overlapKeys(positiveSet(a), b)
	ba := overlapKeys(positiveSet(b), a)
	assert.Equal(t, ab, ba)
	assert.Equal(t, []string{"india", "vietnam"}, ab)
}

func TestTicketOverlapShapes(t *testing.T) {
	mk := func(min, max *float64) profile.Profile {
		p := mkProfile(profile.CategorySponsor, "x", "X")
		p.TicketMin, p.TicketMax = min, max
		return p
	}

	tests := []struct {
		name    string
		a, b    profile.Profile
		wantNil bool
		wantMin *float64
		wantMax *float64
	}{
		{
			"overlapping ranges",
			mk(ptrFloat64(2_000_000), ptrFloat64(10_000_000)),
			mk(ptrFloat64(1_000_000), ptrFloat64(5_000_000)),
			false, ptrFloat64(2_000_000), ptrFloat64(5_000_000),
		},
		{
			"disjoint ranges",
			mk(ptrFloat64(10), ptrFloat64(20)),
			mk(ptrFloat64(30), ptrFloat64(40)),
			true, nil, nil,
		},
		{
			"one side unbounded",
			mk(ptrFloat64(5), nil),
			mk(nil, ptrFloat64(9)),
			false, ptrFloat64(5), ptrFloat64(9),
		},
		{
			"no bounds anywhere",
			mk(nil, nil),
			mk(nil, nil),
			false, nil, nil,
		},
		{
			"touching bounds",
			mk(ptrFloat64(5), ptrFloat64(10)),
			mk(ptrFloat64(10), ptrFloat64(20)),
			false, ptrFloat64(10), ptrFloat64(10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ticketOverlap(tt.a, tt.b)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			if tt.wantMin == nil {
				assert.Nil(t, got.Min)
			} else {
				require.NotNil(t, got.Min)
				assert.InDelta(t, *tt.wantMin, *got.Min, 0.001)
			}
			if tt.wantMax == nil {
				assert.Nil(t, got.Max)
			} else {
				require.NotNil(t, got.Max)
				assert.InDelta(t, *tt.wantMax, *got.Max, 0.001)
			}
		})
	}
}

// Candidates come back in input order, not ranked by overlap size.
func TestComputePreservesCandidateOrder(t *testing.T) {
	sponsor := mkProfile(profile.CategorySponsor, "sp-1", "Delta Grid", "energy_infra", "vietnam", "india")

	small := mkProfile(profile.CategoryCapitalPartner, "cp-small", "Small Overlap", "vietnam")
	big := mkProfile(profile.CategoryCapitalPartner, "cp-big", "Big Overlap", "energy_infra", "vietnam", "india")

	res := Compute([]profile.Profile{sponsor}, []profile.Profile{small, big}, nil)

	require.Len(t, res.BySponsor, 1)
	entries := res.BySponsor[0].CapitalPartners
	require.Len(t, entries, 2)
	assert.Equal(t, "capital_partner:cp-small", entries[0].ProfileID)
	assert.Equal(t, "capital_partner:cp-big", entries[1].ProfileID)
	assert.Greater(t, entries[1].OverlapSize, entries[0].OverlapSize)
}

func TestComputeTeamsCarryBackReference(t *testing.T) {
	sponsor := mkProfile(profile.CategorySponsor, "sp-1", "Delta Grid", "energy_infra")

	team := mkProfile(profile.CategoryCapitalPartner, "team-1", "SEA Energy Desk", "energy_infra")
	team.CapitalPartnerID = ptrString("cp-1")
	team.CapitalPartnerName = ptrString("Meridian")

	res := Compute([]profile.Profile{sponsor}, nil, []profile.Profile{team})

	require.Len(t, res.BySponsor, 1)
	sm := res.BySponsor[0]
	assert.Empty(t, sm.CapitalPartners)
	require.Len(t, sm.CapitalPartnerTeams, 1)

	e := sm.CapitalPartnerTeams[0]
	assert.Equal(t, "capital_partner:team-1", e.ProfileID)
	require.NotNil(t, e.CapitalPartnerID)
	assert.Equal(t, "cp-1", *e.CapitalPartnerID)
	require.NotNil(t, e.CapitalPartnerName)
	assert.Equal(t, "Meridian", *e.CapitalPartnerName)
}

func TestComputeSponsorsKeepInputOrder(t *testing.T) {
	s1 := mkProfile(profile.CategorySponsor, "sp-1", "First", "vietnam")
	s2 := mkProfile(profile.CategorySponsor, "sp-2", "NoMatch", "us_market")
	s3 := mkProfile(profile.CategorySponsor, "sp-3", "Third", "vietnam")
	partner := mkProfile(profile.CategoryCapitalPartner, "cp-1", "Meridian", "vietnam")

	res := Compute([]profile.Profile{s1, s2, s3}, []profile.Profile{partner}, nil)

	require.Len(t, res.BySponsor, 2)
	assert.Equal(t, "sponsor:sp-1", res.BySponsor[0].Sponsor.ProfileID)
	assert.Equal(t, "sponsor:sp-3", res.BySponsor[1].Sponsor.ProfileID)
}
