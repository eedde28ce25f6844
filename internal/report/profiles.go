package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/harborline/dealdesk-cli/internal/profile"
)

// Group is one titled block of profiles: a category for the table and CSV
// renderings, a sheet for XLSX.
type Group struct {
	Title    string
	Profiles []profile.Profile
}

// WriteProfiles renders profile groups in the requested format.
func WriteProfiles(w io.Writer, format Format, keys []string, groups []Group) error {
	switch format {
	case FormatCSV:
		return writeProfilesCSV(w, keys, groups)
	case FormatXLSX:
		return writeProfilesXLSX(w, keys, groups)
	default:
		return writeProfilesTable(w, groups)
	}
}

// profileHeader builds the flat column list: identity and ticket columns
// first, then one column per preference key.
func profileHeader(keys []string) []string {
	header := []string{
		"profile_id", "category", "entity_id", "name",
		"relationship", "currency", "ticket_min", "ticket_max", "capital_partner",
	}
	return append(header, keys...)
}

func profileRow(p profile.Profile, keys []string) []string {
	row := []string{
		p.ProfileID,
		string(p.Category),
		p.EntityID,
		p.Name,
		strCell(p.Relationship),
		strCell(p.Currency),
		floatCell(p.TicketMin),
		floatCell(p.TicketMax),
		strCell(p.CapitalPartnerName),
	}
	for _, key := range keys {
		row = append(row, string(p.Preferences[key]))
	}
	return row
}

func writeProfilesCSV(w io.Writer, keys []string, groups []Group) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(profileHeader(keys)); err != nil {
		return eris.Wrap(err, "report: write profiles header")
	}
	for _, g := range groups {
		for _, p := range g.Profiles {
			if err := cw.Write(profileRow(p, keys)); err != nil {
				return eris.Wrap(err, "report: write profile row")
			}
		}
	}
	return nil
}

func writeProfilesXLSX(w io.Writer, keys []string, groups []Group) error {
	f := xlsx.NewFile()
	for _, g := range groups {
		sheet, err := f.AddSheet(g.Title)
		if err != nil {
			return eris.Wrapf(err, "report: add sheet %s", g.Title)
		}

		header := sheet.AddRow()
		for _, col := range profileHeader(keys) {
			header.AddCell().SetString(col)
		}

		for _, p := range g.Profiles {
			row := sheet.AddRow()
			for _, cell := range profileRow(p, keys) {
				row.AddCell().SetString(cell)
			}
		}
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write profiles workbook")
	}
	return nil
}

func writeProfilesTable(w io.Writer, groups []Group) error {
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d)\n", g.Title, len(g.Profiles))

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "PROFILE_ID\tNAME\tRELATIONSHIP\tTICKET_MIN\tTICKET_MAX\tPOSITIVE_PREFS")
		_, _ = fmt.Fprintln(tw, "----------\t----\t------------\t----------\t----------\t--------------")
		for _, p := range g.Profiles {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				p.ProfileID,
				truncate(p.Name, 30),
				strCell(p.Relationship),
				floatCell(p.TicketMin),
				floatCell(p.TicketMax),
				truncate(strings.Join(p.PositiveSet(), ","), 50),
			)
		}
		if err := tw.Flush(); err != nil {
			return eris.Wrap(err, "report: flush profiles table")
		}
	}
	return nil
}
