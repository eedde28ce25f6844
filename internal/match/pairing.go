package match

import (
	"github.com/harborline/dealdesk-cli/internal/profile"
)

// Result is the full pairing computation: one entry per sponsor with at
// least one match, in sponsor input order.
type Result struct {
	BySponsor []SponsorMatches `json:"by_sponsor"`
}

// SponsorMatches groups every provider match for one sponsor, split by
// provider granularity.
type SponsorMatches struct {
	Sponsor             profile.Profile `json:"sponsor_profile"`
	CapitalPartners     []Entry         `json:"capital_partners"`
	CapitalPartnerTeams []Entry         `json:"capital_partner_teams"`
}

// TicketOverlap is the intersection of two ticket ranges. Either bound may
// be null when neither side constrains that end.
type TicketOverlap struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// Entry is one sponsor-to-provider match. Inclusion is decided by preference
// overlap alone; the ticket fields are descriptive context and never gate a
// match, so TicketOverlap is null exactly when the two ranges provably do
// not intersect.
type Entry struct {
	ProfileID          string         `json:"profile_id"`
	EntityID           string         `json:"entity_id"`
	Name               string         `json:"name"`
	CapitalPartnerID   *string        `json:"capital_partner_id,omitempty"`
	CapitalPartnerName *string        `json:"capital_partner_name,omitempty"`
	OverlapPreferences []string       `json:"overlap_preferences"`
	OverlapSize        int            `json:"overlap_size"`
	TicketOverlap      *TicketOverlap `json:"ticket_overlap"`
	TicketMin          *float64       `json:"ticket_min"`
	TicketMax          *float64       `json:"ticket_max"`
	Relationship       *string        `json:"relationship"`
}

// Compute pairs every sponsor against every candidate provider, organization
// level first, then team level. Candidates keep their input order; entries
// are not ranked. Sponsors with no match on either list are omitted.
//
// Pure function over its inputs; safe to call concurrently.
func Compute(sponsors, partners, teams []profile.Profile) Result {
	res := Result{BySponsor: make([]SponsorMatches, 0, len(sponsors))}

	for _, sp := range sponsors {
		positive := positiveSet(sp)

		partnerEntries := matchCandidates(sp, positive, partners)
		teamEntries := matchCandidates(sp, positive, teams)
		if len(partnerEntries) == 0 && len(teamEntries) == 0 {
			continue
		}

		res.BySponsor = append(res.BySponsor, SponsorMatches{
			Sponsor:             sp,
			CapitalPartners:     partnerEntries,
			CapitalPartnerTeams: teamEntries,
		})
	}

	return res
}

func matchCandidates(sp profile.Profile, positive map[string]struct{}, candidates []profile.Profile) []Entry {
	out := make([]Entry, 0, len(candidates))
	for _, cand := range candidates {
		overlap := overlapKeys(positive, cand)
		if len(overlap) == 0 {
			continue
		}
		out = append(out, Entry{
			ProfileID:          cand.ProfileID,
			EntityID:           cand.EntityID,
			Name:               cand.Name,
			CapitalPartnerID:   cand.CapitalPartnerID,
			CapitalPartnerName: cand.CapitalPartnerName,
			OverlapPreferences: overlap,
			OverlapSize:        len(overlap),
			TicketOverlap:      ticketOverlap(sp, cand),
			TicketMin:          cand.TicketMin,
			TicketMax:          cand.TicketMax,
			Relationship:       cand.Relationship,
		})
	}
	return out
}

func positiveSet(p profile.Profile) map[string]struct{} {
	set := make(map[string]struct{})
	for _, k := range p.PositiveSet() {
		set[k] = struct{}{}
	}
	return set
}

// overlapKeys intersects the sponsor's positive set with the candidate's.
// PositiveSet is sorted, so the intersection comes out sorted too.
func overlapKeys(positive map[string]struct{}, cand profile.Profile) []string {
	var keys []string
	for _, k := range cand.PositiveSet() {
		if _, ok := positive[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// ticketOverlap intersects two ticket ranges: lower bound is the max of the
// present minimums, upper the min of the present maximums, and an absent
// side stays null. Provably disjoint ranges yield nil.
func ticketOverlap(a, b profile.Profile) *TicketOverlap {
	lo := maxBound(a.TicketMin, b.TicketMin)
	hi := minBound(a.TicketMax, b.TicketMax)
	if lo != nil && hi != nil && *lo > *hi {
		return nil
	}
	return &TicketOverlap{Min: lo, Max: hi}
}

func maxBound(a, b *float64) *float64 {
	switch {
	case a == nil:
		return clone(b)
	case b == nil:
		return clone(a)
	case *a >= *b:
		return clone(a)
	}
	return clone(b)
}

func minBound(a, b *float64) *float64 {
	switch {
	case a == nil:
		return clone(b)
	case b == nil:
		return clone(a)
	case *a <= *b:
		return clone(a)
	}
	return clone(b)
}

func clone(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
