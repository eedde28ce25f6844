package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/harborline/dealdesk-cli/internal/report"
)

var (
	pairingsFormat string
	pairingsOutput string
	pairingsSort   string
)

var pairingsCmd = &cobra.Command{
	Use:   "pairings",
	Short: "Pair sponsors with capital partners and teams",
	Long:  "Matches every sponsor against the capital side by preference overlap. Candidates keep record order unless --sort overlap ranks them by overlap size.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initDesk(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Service.Pairings(ctx)
		if err != nil {
			return err
		}

		switch pairingsSort {
		case "":
		case "overlap":
			result = report.SortByOverlap(result)
		default:
			return eris.Errorf("unknown sort %q (want overlap)", pairingsSort)
		}

		out, err := openOutput(pairingsOutput)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		if pairingsFormat == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(result), "encode pairings")
		}

		format, err := report.ParseFormat(pairingsFormat)
		if err != nil {
			return err
		}
		return report.WritePairings(out, format, result)
	},
}

func init() {
	pairingsCmd.Flags().StringVar(&pairingsFormat, "format", "", "output format: table, json, csv, or xlsx (default table)")
	pairingsCmd.Flags().StringVar(&pairingsOutput, "output", "", "write to file instead of stdout")
	pairingsCmd.Flags().StringVar(&pairingsSort, "sort", "", "rank candidates: overlap")
	rootCmd.AddCommand(pairingsCmd)
}
