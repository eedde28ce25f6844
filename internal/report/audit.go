package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/harborline/dealdesk-cli/internal/model"
)

var auditHeader = []string{"at", "action", "kind", "entity_id", "detail", "actor"}

// WriteAudit renders audit entries as a table or CSV. The trail is operator
// data; it has no workbook rendering.
func WriteAudit(w io.Writer, format Format, entries []model.AuditEntry) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		defer cw.Flush()
		if err := cw.Write(auditHeader); err != nil {
			return eris.Wrap(err, "report: write audit header")
		}
		for _, e := range entries {
			row := []string{
				timeCell(e.At),
				string(e.Action),
				string(e.Kind),
				e.EntityID,
				e.Detail,
				e.Actor,
			}
			if err := cw.Write(row); err != nil {
				return eris.Wrap(err, "report: write audit row")
			}
		}
		return nil

	case FormatXLSX:
		return eris.New("report: audit has no xlsx rendering")

	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "AT\tACTION\tKIND\tENTITY\tDETAIL\tACTOR")
		_, _ = fmt.Fprintln(tw, "--\t------\t----\t------\t------\t-----")
		for _, e := range entries {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.At.UTC().Format("2006-01-02 15:04:05"),
				e.Action,
				e.Kind,
				shortID(e.EntityID),
				truncate(e.Detail, 40),
				e.Actor,
			)
		}
		if err := tw.Flush(); err != nil {
			return eris.Wrap(err, "report: flush audit table")
		}
		return nil
	}
}
