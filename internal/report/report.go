// Package report renders profile, pairing, rate, and audit payloads as
// fixed-width tables for the terminal, CSV for spreadsheets, and XLSX
// workbooks for the deal desk.
package report

import (
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Format selects the output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat maps a CLI flag value to a Format. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "table":
		return FormatTable, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("report: unknown format %q (want table, csv, or xlsx)", s)
	}
}

// floatCell renders an optional amount; absent bounds stay blank.
func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func strCell(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func timeCell(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// shortID returns the first 8 characters of a UUID for compact display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
