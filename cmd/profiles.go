package main

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/harborline/dealdesk-cli/internal/profile"
	"github.com/harborline/dealdesk-cli/internal/report"
)

var (
	profilesPrefs      []string
	profilesTicketMin  string
	profilesTicketMax  string
	profilesTicketUnit string
	profilesFormat     string
	profilesOutput     string
	profilesExport     bool
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Build normalized investment profiles from the book",
	Long:  "Normalizes every live record into flag profiles, optionally narrowed by preference and ticket filters. --export emits the dated payload for downstream systems instead.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initDesk(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := openOutput(profilesOutput)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		if profilesExport {
			if profilesFormat != "" && profilesFormat != "json" {
				return eris.New("the export payload is json only")
			}
			result, err := env.Service.BuildProfiles(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(result), "encode export payload")
		}

		spec, err := profileFilterSpec()
		if err != nil {
			return err
		}

		set, err := env.Service.FilterProfiles(ctx, spec)
		if err != nil {
			return err
		}

		if profilesFormat == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(set), "encode profiles")
		}

		format, err := report.ParseFormat(profilesFormat)
		if err != nil {
			return err
		}
		groups := []report.Group{
			{Title: "Capital Partners", Profiles: set.CapitalPartners},
			{Title: "Sponsors", Profiles: set.Sponsors},
			{Title: "Partner Teams", Profiles: set.PartnerTeams},
		}
		return report.WriteProfiles(out, format, set.PreferenceKeys, groups)
	},
}

// profileFilterSpec assembles the filter from the --pref and --ticket flags.
// No flags means an empty spec, which keeps every profile.
func profileFilterSpec() (profile.FilterSpec, error) {
	var spec profile.FilterSpec

	if len(profilesPrefs) > 0 {
		prefs := make(map[string]any, len(profilesPrefs))
		for _, p := range profilesPrefs {
			key, value, ok := strings.Cut(p, "=")
			if !ok || key == "" {
				return spec, eris.Errorf("bad --pref %q (want key=VALUE)", p)
			}
			prefs[key] = value
		}
		spec.Preferences = prefs
	}

	if profilesTicketMin != "" || profilesTicketMax != "" {
		tr := &profile.TicketRange{Unit: profilesTicketUnit}
		if profilesTicketMin != "" {
			tr.Min = profilesTicketMin
		}
		if profilesTicketMax != "" {
			tr.Max = profilesTicketMax
		}
		spec.Ticket = tr
	}

	return spec, nil
}

func init() {
	profilesCmd.Flags().StringArrayVar(&profilesPrefs, "pref", nil, "preference filter as key=VALUE (repeatable)")
	profilesCmd.Flags().StringVar(&profilesTicketMin, "ticket-min", "", "ticket range lower bound")
	profilesCmd.Flags().StringVar(&profilesTicketMax, "ticket-max", "", "ticket range upper bound")
	profilesCmd.Flags().StringVar(&profilesTicketUnit, "ticket-unit", "", "ticket bound unit (million, millions, mm); anything else leaves bounds raw")
	profilesCmd.Flags().StringVar(&profilesFormat, "format", "", "output format: table, json, csv, or xlsx (default table; json for --export)")
	profilesCmd.Flags().StringVar(&profilesOutput, "output", "", "write to file instead of stdout")
	profilesCmd.Flags().BoolVar(&profilesExport, "export", false, "emit the dated export payload (capital partners and sponsors)")
	rootCmd.AddCommand(profilesCmd)
}
