package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/harborline/dealdesk-cli/internal/profile"
	"github.com/harborline/dealdesk-cli/internal/report"
)

var (
	auditLimit    int
	auditFormat   string
	auditOutput   string
	qualityFormat string
	qualityOutput string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the record mutation trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initDesk(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := env.Service.Audit(ctx, auditLimit)
		if err != nil {
			return err
		}

		out, err := openOutput(auditOutput)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		if auditFormat == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(entries), "encode audit trail")
		}

		format, err := report.ParseFormat(auditFormat)
		if err != nil {
			return err
		}
		return report.WriteAudit(out, format, entries)
	},
}

var auditQualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Report normalization findings across the book",
	Long:  "Reruns profile normalization over every live record and lists the fields that degraded: unparseable ticket bounds, unrecognized preference flags, missing ids, and dangling team parents.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initDesk(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		diags, err := env.Service.Quality(ctx)
		if err != nil {
			return err
		}

		out, err := openOutput(qualityOutput)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		switch qualityFormat {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(diags), "encode quality findings")
		case "", "table":
			return writeQualityTable(out, diags)
		default:
			return eris.Errorf("unknown format %q (want table or json)", qualityFormat)
		}
	},
}

func writeQualityTable(out io.Writer, diags []profile.Diagnostic) error {
	if len(diags) == 0 {
		_, err := fmt.Fprintln(out, "No data-quality findings.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "FINDING\tCATEGORY\tENTITY\tNAME\tFIELD\tVALUE\n")
	_, _ = fmt.Fprintf(w, "-------\t--------\t------\t----\t-----\t-----\n")
	for _, d := range diags {
		entity := d.EntityID
		if len(entity) > 8 {
			entity = entity[:8]
		}
		value := d.Value
		if len(value) > 40 {
			value = value[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Kind, d.Category, entity, d.Name, d.Field, value)
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "flush quality table")
	}

	_, err := fmt.Fprintf(out, "\n%d findings\n", len(diags))
	return err
}

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum number of entries to show")
	auditCmd.Flags().StringVar(&auditFormat, "format", "", "output format: table, json, or csv (default table)")
	auditCmd.Flags().StringVar(&auditOutput, "output", "", "write to file instead of stdout")

	auditQualityCmd.Flags().StringVar(&qualityFormat, "format", "", "output format: table or json (default table)")
	auditQualityCmd.Flags().StringVar(&qualityOutput, "output", "", "write to file instead of stdout")

	auditCmd.AddCommand(auditQualityCmd)
	rootCmd.AddCommand(auditCmd)
}
