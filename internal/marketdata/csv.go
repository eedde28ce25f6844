package marketdata

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborline/dealdesk-cli/internal/model"
)

// rateColumns maps header names to field positions for one rate file.
type rateColumns struct {
	base  int
	quote int
	rate  int
	asOf  int // -1 when the file carries no as_of column
}

// ParseRates reads a rate CSV feed. The header row names the columns: base,
// quote, and rate are required; as_of is optional and falls back to the given
// timestamp. Malformed rows are skipped and counted, never fatal, so one bad
// row cannot sink a whole feed.
func ParseRates(r io.Reader, source string, fallback time.Time) ([]model.MarketRate, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, eris.Errorf("marketdata: rate feed %s is empty", source)
	}
	if err != nil {
		return nil, 0, eris.Wrapf(err, "marketdata: read %s header", source)
	}

	cols, err := mapRateColumns(header)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "marketdata: rate feed %s", source)
	}

	var rates []model.MarketRate
	skipped := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, eris.Wrapf(err, "marketdata: read %s row", source)
		}

		rate, ok := parseRateRow(record, cols, source, fallback)
		if !ok {
			skipped++
			zap.L().Warn("marketdata: skipping malformed rate row",
				zap.String("source", source),
				zap.Int("line", line),
			)
			continue
		}
		rates = append(rates, rate)
	}

	return rates, skipped, nil
}

func mapRateColumns(header []string) (rateColumns, error) {
	cols := rateColumns{base: -1, quote: -1, rate: -1, asOf: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "base":
			cols.base = i
		case "quote":
			cols.quote = i
		case "rate":
			cols.rate = i
		case "as_of":
			cols.asOf = i
		}
	}

	var missing []string
	if cols.base < 0 {
		missing = append(missing, "base")
	}
	if cols.quote < 0 {
		missing = append(missing, "quote")
	}
	if cols.rate < 0 {
		missing = append(missing, "rate")
	}
	if len(missing) > 0 {
		return cols, eris.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRateRow(record []string, cols rateColumns, source string, fallback time.Time) (model.MarketRate, bool) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	base := strings.ToUpper(field(cols.base))
	quote := strings.ToUpper(field(cols.quote))
	if base == "" || quote == "" {
		return model.MarketRate{}, false
	}

	value, err := strconv.ParseFloat(field(cols.rate), 64)
	if err != nil || value <= 0 {
		return model.MarketRate{}, false
	}

	asOf := fallback
	if raw := field(cols.asOf); raw != "" {
		parsed, err := parseAsOf(raw)
		if err != nil {
			return model.MarketRate{}, false
		}
		asOf = parsed
	}

	return model.MarketRate{
		Base:   base,
		Quote:  quote,
		Rate:   value,
		Source: source,
		AsOf:   asOf,
	}, true
}

// parseAsOf accepts the two timestamp shapes feeds actually send: RFC 3339
// and bare dates.
func parseAsOf(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
