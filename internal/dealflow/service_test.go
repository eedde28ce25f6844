package dealflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/dealdesk-cli/internal/config"
	"github.com/harborline/dealdesk-cli/internal/model"
	"github.com/harborline/dealdesk-cli/internal/profile"
	"github.com/harborline/dealdesk-cli/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewJSON(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return New(st, profile.NewKeySet(profile.DefaultKeys()), "test")
}

func strPtr(s string) *string { return &s }

func seedPartner(t *testing.T, svc *Service, name string, prefs map[string]any) *model.CapitalPartnerRecord {
	t.Helper()
	rec := &model.CapitalPartnerRecord{
		Name:          name,
		Type:          "asset_manager",
		Country:       "Singapore",
		Relationship:  strPtr("active"),
		InvestmentMin: "5 million",
		InvestmentMax: "20 million",
		Preferences:   prefs,
	}
	require.NoError(t, svc.CreateCapitalPartner(context.Background(), rec))
	return rec
}

func seedSponsor(t *testing.T, svc *Service, name string, infra, regions map[string]any) *model.SponsorRecord {
	t.Helper()
	rec := &model.SponsorRecord{
		Name:                name,
		Country:             "Vietnam",
		InvestmentNeedMin:   "8 million",
		InfrastructureTypes: infra,
		Regions:             regions,
	}
	require.NoError(t, svc.CreateSponsor(context.Background(), rec))
	return rec
}

// --- Key resolution ---

func TestResolveKeys_Defaults(t *testing.T) {
	keys, err := ResolveKeys(config.MatchConfig{})
	require.NoError(t, err)
	assert.Equal(t, profile.DefaultKeys(), keys.Keys())
}

func TestResolveKeys_InlineOverride(t *testing.T) {
	keys, err := ResolveKeys(config.MatchConfig{
		PreferenceKeys: []string{"solar", "wind"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"solar", "wind"}, keys.Keys())
}

func TestResolveKeys_SchemaWinsOverInline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte("preference_keys:\n  - hydro\n  - grid\n"), 0o644))

	keys, err := ResolveKeys(config.MatchConfig{
		PreferenceKeys: []string{"solar"},
		SchemaPath:     path,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hydro", "grid"}, keys.Keys())
}

func TestResolveKeys_SchemaMissing(t *testing.T) {
	_, err := ResolveKeys(config.MatchConfig{
		SchemaPath: filepath.Join(t.TempDir(), "absent.yaml"),
	})
	require.Error(t, err)
}

// --- CRUD and audit trail ---

func TestService_WritesLeaveAuditTrail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rec := seedPartner(t, svc, "Meridian Capital", map[string]any{"vietnam": "Y"})
	rec.Country = "Japan"
	require.NoError(t, svc.UpdateCapitalPartner(ctx, rec))
	require.NoError(t, svc.DeleteCapitalPartner(ctx, rec.ID))

	entries, err := svc.Audit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, model.AuditDelete, entries[0].Action)
	assert.Equal(t, model.AuditUpdate, entries[1].Action)
	assert.Equal(t, model.AuditCreate, entries[2].Action)
	for _, e := range entries {
		assert.Equal(t, model.KindCapitalPartner, e.Kind)
		assert.Equal(t, rec.ID, e.EntityID)
		assert.Equal(t, "test", e.Actor)
	}
}

func TestService_CreatePartnerTeamRequiresLiveParent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	team := &model.PartnerTeamRecord{Name: "Orphan Desk", CapitalPartnerID: "missing"}
	err := svc.CreatePartnerTeam(ctx, team)
	require.Error(t, err)
	assert.True(t, eris.Is(err, store.ErrNotFound))

	parent := seedPartner(t, svc, "Meridian Capital", nil)
	team = &model.PartnerTeamRecord{Name: "Credit Desk", CapitalPartnerID: parent.ID}
	require.NoError(t, svc.CreatePartnerTeam(ctx, team))

	// A team without a back-reference is accepted; normalization flags it.
	require.NoError(t, svc.CreatePartnerTeam(ctx, &model.PartnerTeamRecord{Name: "Floating Desk"}))
}

func TestService_ArchiveAndRestore(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rec := seedPartner(t, svc, "Meridian Capital", nil)
	require.NoError(t, svc.Archive(ctx, model.KindCapitalPartner, rec.ID))

	live, err := svc.ListCapitalPartners(ctx, store.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, live)

	require.NoError(t, svc.Restore(ctx, model.KindCapitalPartner, rec.ID))
	live, err = svc.ListCapitalPartners(ctx, store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, live, 1)

	entries, err := svc.Audit(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.AuditRestore, entries[0].Action)
	assert.Equal(t, model.AuditArchive, entries[1].Action)
}

// --- Profiles and pairings ---

func TestService_BuildProfiles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedPartner(t, svc, "Meridian Capital", map[string]any{"vietnam": "yes", "us_market": "no"})
	seedSponsor(t, svc, "Hanoi Grid Partners",
		map[string]any{"energy_infra": "y"},
		map[string]any{"vietnam": true},
	)

	result, err := svc.BuildProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, profile.DefaultKeys(), result.PreferenceKeys)
	assert.WithinDuration(t, time.Now(), result.GeneratedAt, 5*time.Second)

	require.Len(t, result.CapitalPartners, 1)
	cp := result.CapitalPartners[0]
	assert.Equal(t, "capital_partner:"+cp.EntityID, cp.ProfileID)
	assert.Equal(t, profile.FlagYes, cp.Preferences["vietnam"])
	assert.Equal(t, profile.FlagNo, cp.Preferences["us_market"])
	require.NotNil(t, cp.TicketMin)
	assert.InDelta(t, 5e6, *cp.TicketMin, 1)

	require.Len(t, result.Sponsors, 1)
	sp := result.Sponsors[0]
	assert.Equal(t, profile.FlagYes, sp.Preferences["energy_infra"])
	assert.Equal(t, profile.FlagYes, sp.Preferences["vietnam"])
}

func TestService_ProfilesResolveTeamParents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	parent := seedPartner(t, svc, "Meridian Capital", map[string]any{"vietnam": "Y"})
	team := &model.PartnerTeamRecord{
		Name:             "SEA Credit Desk",
		CapitalPartnerID: parent.ID,
		Preferences:      map[string]any{"thailand": "Y"},
	}
	require.NoError(t, svc.CreatePartnerTeam(ctx, team))

	set, err := svc.Profiles(ctx)
	require.NoError(t, err)
	require.Len(t, set.PartnerTeams, 1)

	tp := set.PartnerTeams[0]
	require.NotNil(t, tp.CapitalPartnerName)
	assert.Equal(t, "Meridian Capital", *tp.CapitalPartnerName)
	assert.Equal(t, profile.FlagYes, tp.Preferences["thailand"])
}

func TestService_QualityCollectsDiagnostics(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rec := &model.CapitalPartnerRecord{
		Name:          "Helios Yield",
		Country:       "Singapore",
		InvestmentMin: "call for pricing",
		Preferences:   map[string]any{"vietnam": "maybe"},
	}
	require.NoError(t, svc.CreateCapitalPartner(ctx, rec))

	diags, err := svc.Quality(ctx)
	require.NoError(t, err)

	kinds := map[profile.DiagnosticKind]int{}
	for _, d := range diags {
		kinds[d.Kind]++
	}
	assert.Equal(t, 1, kinds[profile.DiagBadNumber])
	assert.Equal(t, 1, kinds[profile.DiagUnknownFlag])
}

func TestService_FilterProfiles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedPartner(t, svc, "Meridian Capital", map[string]any{"vietnam": "Y"})
	seedPartner(t, svc, "Cascade Partners", map[string]any{"vietnam": "N", "us_market": "Y"})
	seedSponsor(t, svc, "Hanoi Grid Partners", nil, map[string]any{"vietnam": true})

	set, err := svc.FilterProfiles(ctx, profile.FilterSpec{
		Preferences: map[string]any{"vietnam": "Y"},
	})
	require.NoError(t, err)

	require.Len(t, set.CapitalPartners, 1)
	assert.Equal(t, "Meridian Capital", set.CapitalPartners[0].Name)
	require.Len(t, set.Sponsors, 1)
	assert.Empty(t, set.PartnerTeams)
}

func TestService_Pairings(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedPartner(t, svc, "Meridian Capital", map[string]any{"vietnam": "Y", "energy_infra": "Y"})
	seedPartner(t, svc, "Cascade Partners", map[string]any{"us_market": "Y"})
	seedSponsor(t, svc, "Hanoi Grid Partners",
		map[string]any{"energy_infra": "yes"},
		map[string]any{"vietnam": "yes"},
	)

	result, err := svc.Pairings(ctx)
	require.NoError(t, err)
	require.Len(t, result.BySponsor, 1)

	sm := result.BySponsor[0]
	assert.Equal(t, "Hanoi Grid Partners", sm.Sponsor.Name)
	require.Len(t, sm.CapitalPartners, 1)
	assert.Equal(t, "Meridian Capital", sm.CapitalPartners[0].Name)
	assert.ElementsMatch(t, []string{"energy_infra", "vietnam"}, sm.CapitalPartners[0].OverlapPreferences)
}

// --- Bulk import ---

func TestService_Import(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	payload := []byte(`{
		"capital_partners": [
			{"id": "cp-1", "name": "Meridian Capital", "preferences": {"vietnam": "Y"}}
		],
		"sponsors": [
			{"name": "Hanoi Grid Partners", "regions": {"vietnam": true}}
		],
		"partner_teams": [
			{"name": "SEA Credit Desk", "capital_partner_id": "cp-1"}
		]
	}`)

	sum, err := svc.Import(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{CapitalPartners: 1, Sponsors: 1, PartnerTeams: 1}, sum)
	assert.Equal(t, "1 capital partners, 1 sponsors, 1 partner teams", sum.String())

	// The provided id survives the import.
	got, err := svc.GetCapitalPartner(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "Meridian Capital", got.Name)

	entries, err := svc.Audit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, model.AuditImport, e.Action)
	}
}

func TestService_ImportRejectsDanglingTeamParent(t *testing.T) {
	svc := newTestService(t)

	payload := []byte(`{"partner_teams": [{"name": "Orphan Desk", "capital_partner_id": "nope"}]}`)
	sum, err := svc.Import(context.Background(), payload)
	require.Error(t, err)
	assert.True(t, eris.Is(err, store.ErrNotFound))
	assert.Zero(t, sum.PartnerTeams)
}

func TestService_ImportRejectsMalformedPayload(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Import(context.Background(), []byte("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse import payload")
}
