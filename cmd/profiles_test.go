//go:build !integration

package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/dealdesk-cli/internal/model"
	"github.com/harborline/dealdesk-cli/internal/profile"
	"github.com/harborline/dealdesk-cli/internal/store"
)

func resetProfilesFlags(t *testing.T) {
	t.Helper()
	prefs, mn, mx, unit := profilesPrefs, profilesTicketMin, profilesTicketMax, profilesTicketUnit
	format, output, export := profilesFormat, profilesOutput, profilesExport
	t.Cleanup(func() {
		profilesPrefs, profilesTicketMin, profilesTicketMax, profilesTicketUnit = prefs, mn, mx, unit
		profilesFormat, profilesOutput, profilesExport = format, output, export
	})
}

// seedBook writes one capital partner and one sponsor straight into the
// store directory the command will open.
func seedBook(t *testing.T, dir string) {
	t.Helper()
	st, err := store.NewJSON(dir, 0)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	ctx := context.Background()

	require.NoError(t, st.CreateCapitalPartner(ctx, &model.CapitalPartnerRecord{
		Name:          "Meridian Capital",
		Country:       "Singapore",
		InvestmentMin: "5 million",
		InvestmentMax: "20 million",
		Preferences:   map[string]any{"vietnam": "Y", "energy_infra": "yes"},
	}))
	require.NoError(t, st.CreateSponsor(ctx, &model.SponsorRecord{
		Name:                "Delta Grid Development",
		Country:             "Vietnam",
		InvestmentNeedMin:   "8 million",
		InfrastructureTypes: map[string]any{"energy_infra": "yes"},
		Regions:             map[string]any{"vietnam": true},
	}))
}

func TestProfileFilterSpec(t *testing.T) {
	tests := []struct {
		name    string
		prefs   []string
		min     string
		max     string
		unit    string
		want    profile.FilterSpec
		wantErr string
	}{
		{
			name: "empty",
			want: profile.FilterSpec{},
		},
		{
			name:  "preferences",
			prefs: []string{"vietnam=Y", "us_market=N"},
			want: profile.FilterSpec{
				Preferences: map[string]any{"vietnam": "Y", "us_market": "N"},
			},
		},
		{
			name: "ticket range",
			min:  "5",
			max:  "20",
			unit: "million",
			want: profile.FilterSpec{
				Ticket: &profile.TicketRange{Min: "5", Max: "20", Unit: "million"},
			},
		},
		{
			name: "min only",
			min:  "8000000",
			want: profile.FilterSpec{
				Ticket: &profile.TicketRange{Min: "8000000"},
			},
		},
		{
			name:    "missing value",
			prefs:   []string{"vietnam"},
			wantErr: "want key=VALUE",
		},
		{
			name:    "empty key",
			prefs:   []string{"=Y"},
			wantErr: "want key=VALUE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetProfilesFlags(t)
			profilesPrefs = tt.prefs
			profilesTicketMin = tt.min
			profilesTicketMax = tt.max
			profilesTicketUnit = tt.unit

			spec, err := profileFilterSpec()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec)
		})
	}
}

func TestProfilesCmd_WritesCSV(t *testing.T) {
	dir := setTestConfig(t)
	seedBook(t, dir)
	withContext(t, profilesCmd)
	resetProfilesFlags(t)

	outPath := filepath.Join(t.TempDir(), "profiles.csv")
	profilesFormat = "csv"
	profilesOutput = outPath

	require.NoError(t, profilesCmd.RunE(profilesCmd, nil))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// Header plus one partner and one sponsor row.
	require.Len(t, rows, 3)
	assert.Equal(t, "profile_id", rows[0][0])
	assert.Equal(t, "Meridian Capital", rows[1][3])
	assert.Equal(t, "Delta Grid Development", rows[2][3])
}

func TestProfilesCmd_FilterNarrowsOutput(t *testing.T) {
	dir := setTestConfig(t)
	seedBook(t, dir)
	withContext(t, profilesCmd)
	resetProfilesFlags(t)

	outPath := filepath.Join(t.TempDir(), "filtered.csv")
	profilesFormat = "csv"
	profilesOutput = outPath
	profilesPrefs = []string{"energy_infra=Y"}

	require.NoError(t, profilesCmd.RunE(profilesCmd, nil))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// Both seeded records carry energy_infra, so the filter keeps them.
	require.Len(t, rows, 3)
}

func TestProfilesCmd_ExportPayload(t *testing.T) {
	dir := setTestConfig(t)
	seedBook(t, dir)
	withContext(t, profilesCmd)
	resetProfilesFlags(t)

	outPath := filepath.Join(t.TempDir(), "export.json")
	profilesExport = true
	profilesOutput = outPath

	require.NoError(t, profilesCmd.RunE(profilesCmd, nil))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var payload profile.BuildResult
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.False(t, payload.GeneratedAt.IsZero())
	assert.Len(t, payload.CapitalPartners, 1)
	assert.Len(t, payload.Sponsors, 1)
}

func TestProfilesCmd_ExportRejectsTableFormat(t *testing.T) {
	setTestConfig(t)
	withContext(t, profilesCmd)
	resetProfilesFlags(t)

	profilesExport = true
	profilesFormat = "csv"

	err := profilesCmd.RunE(profilesCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json only")
}
