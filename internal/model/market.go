package model

import "time"

// MarketRate is one exchange-rate observation pulled from a configured
// market-data source. Display data only; matching never converts currency.
type MarketRate struct {
	Base   string    `json:"base"`
	Quote  string    `json:"quote"`
	Rate   float64   `json:"rate"`
	Source string    `json:"source"`
	AsOf   time.Time `json:"as_of"`
}

// Key returns the identity of a rate row, one row per pair and source.
func (r MarketRate) Key() string {
	return r.Base + "/" + r.Quote + "@" + r.Source
}
