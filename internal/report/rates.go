package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/harborline/dealdesk-cli/internal/model"
)

var rateHeader = []string{"base", "quote", "rate", "source", "as_of"}

func rateRow(r model.MarketRate) []string {
	return []string{
		r.Base,
		r.Quote,
		strconv.FormatFloat(r.Rate, 'f', -1, 64),
		r.Source,
		timeCell(r.AsOf),
	}
}

// WriteRates renders the rate book in the requested format.
func WriteRates(w io.Writer, format Format, rates []model.MarketRate) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		defer cw.Flush()
		if err := cw.Write(rateHeader); err != nil {
			return eris.Wrap(err, "report: write rates header")
		}
		for _, r := range rates {
			if err := cw.Write(rateRow(r)); err != nil {
				return eris.Wrap(err, "report: write rate row")
			}
		}
		return nil

	case FormatXLSX:
		f := xlsx.NewFile()
		sheet, err := f.AddSheet("Market Rates")
		if err != nil {
			return eris.Wrap(err, "report: add rates sheet")
		}
		header := sheet.AddRow()
		for _, col := range rateHeader {
			header.AddCell().SetString(col)
		}
		for _, r := range rates {
			row := sheet.AddRow()
			row.AddCell().SetString(r.Base)
			row.AddCell().SetString(r.Quote)
			row.AddCell().SetFloat(r.Rate)
			row.AddCell().SetString(r.Source)
			row.AddCell().SetString(timeCell(r.AsOf))
		}
		if err := f.Write(w); err != nil {
			return eris.Wrap(err, "report: write rates workbook")
		}
		return nil

	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "BASE\tQUOTE\tRATE\tSOURCE\tAS_OF")
		_, _ = fmt.Fprintln(tw, "----\t-----\t----\t------\t-----")
		for _, r := range rates {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				r.Base, r.Quote,
				strconv.FormatFloat(r.Rate, 'f', -1, 64),
				r.Source,
				r.AsOf.UTC().Format("2006-01-02 15:04"),
			)
		}
		if err := tw.Flush(); err != nil {
			return eris.Wrap(err, "report: flush rates table")
		}
		return nil
	}
}
