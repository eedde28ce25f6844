package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/harborline/dealdesk-cli/internal/match"
)

// SortByOverlap returns a copy of the result with every sponsor's candidate
// lists stable-sorted by descending overlap size. The engine itself emits
// candidates in input order; ranking is a presentation choice.
func SortByOverlap(result match.Result) match.Result {
	out := match.Result{BySponsor: make([]match.SponsorMatches, len(result.BySponsor))}
	for i, sm := range result.BySponsor {
		sorted := sm
		sorted.CapitalPartners = sortEntries(sm.CapitalPartners)
		sorted.CapitalPartnerTeams = sortEntries(sm.CapitalPartnerTeams)
		out.BySponsor[i] = sorted
	}
	return out
}

func sortEntries(entries []match.Entry) []match.Entry {
	out := make([]match.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OverlapSize > out[j].OverlapSize
	})
	return out
}

// WritePairings renders a pairing result in the requested format.
func WritePairings(w io.Writer, format Format, result match.Result) error {
	switch format {
	case FormatCSV:
		return writePairingsCSV(w, result)
	case FormatXLSX:
		return writePairingsXLSX(w, result)
	default:
		return writePairingsTable(w, result)
	}
}

var pairingHeader = []string{
	"sponsor_profile_id", "sponsor_name", "candidate_type",
	"candidate_profile_id", "candidate_name", "capital_partner",
	"overlap_size", "overlap_preferences",
	"ticket_overlap_min", "ticket_overlap_max",
	"candidate_ticket_min", "candidate_ticket_max", "relationship",
}

// pairingRows flattens one sponsor's matches to rows, partners before teams.
func pairingRows(sm match.SponsorMatches) [][]string {
	var rows [][]string
	appendEntries := func(typ string, entries []match.Entry) {
		for _, e := range entries {
			overlapMin, overlapMax := "", ""
			if e.TicketOverlap != nil {
				overlapMin = floatCell(e.TicketOverlap.Min)
				overlapMax = floatCell(e.TicketOverlap.Max)
			}
			rows = append(rows, []string{
				sm.Sponsor.ProfileID,
				sm.Sponsor.Name,
				typ,
				e.ProfileID,
				e.Name,
				strCell(e.CapitalPartnerName),
				strconv.Itoa(e.OverlapSize),
				strings.Join(e.OverlapPreferences, ";"),
				overlapMin,
				overlapMax,
				floatCell(e.TicketMin),
				floatCell(e.TicketMax),
				strCell(e.Relationship),
			})
		}
	}
	appendEntries("capital_partner", sm.CapitalPartners)
	appendEntries("partner_team", sm.CapitalPartnerTeams)
	return rows
}

func writePairingsCSV(w io.Writer, result match.Result) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(pairingHeader); err != nil {
		return eris.Wrap(err, "report: write pairings header")
	}
	for _, sm := range result.BySponsor {
		for _, row := range pairingRows(sm) {
			if err := cw.Write(row); err != nil {
				return eris.Wrap(err, "report: write pairing row")
			}
		}
	}
	return nil
}

func writePairingsXLSX(w io.Writer, result match.Result) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Pairings")
	if err != nil {
		return eris.Wrap(err, "report: add pairings sheet")
	}

	header := sheet.AddRow()
	for _, col := range pairingHeader {
		header.AddCell().SetString(col)
	}
	for _, sm := range result.BySponsor {
		for _, row := range pairingRows(sm) {
			xr := sheet.AddRow()
			for _, cell := range row {
				xr.AddCell().SetString(cell)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write pairings workbook")
	}
	return nil
}

func writePairingsTable(w io.Writer, result match.Result) error {
	if len(result.BySponsor) == 0 {
		fmt.Fprintln(w, "No pairings.")
		return nil
	}

	for i, sm := range result.BySponsor {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Sponsor: %s (%s)\n", sm.Sponsor.Name, sm.Sponsor.ProfileID)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "TYPE\tNAME\tOVERLAP\tPREFERENCES\tTICKET_OVERLAP\tRELATIONSHIP")
		_, _ = fmt.Fprintln(tw, "----\t----\t-------\t-----------\t--------------\t------------")
		writeEntry := func(typ string, e match.Entry) {
			overlap := ""
			if e.TicketOverlap != nil {
				overlap = floatCell(e.TicketOverlap.Min) + " - " + floatCell(e.TicketOverlap.Max)
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
				typ,
				truncate(e.Name, 30),
				e.OverlapSize,
				truncate(strings.Join(e.OverlapPreferences, ","), 40),
				overlap,
				strCell(e.Relationship),
			)
		}
		for _, e := range sm.CapitalPartners {
			writeEntry("partner", e)
		}
		for _, e := range sm.CapitalPartnerTeams {
			writeEntry("team", e)
		}
		if err := tw.Flush(); err != nil {
			return eris.Wrap(err, "report: flush pairings table")
		}
	}
	return nil
}
