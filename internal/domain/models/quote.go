package models

import "time"

// Quote is a normalized market quote for one symbol (equity, commodity
// future, forex pair or bond yield).
type Quote struct {
	Symbol           string    `json:"symbol"`
	ShortName        string    `json:"shortName,omitempty"`
	Price            float64   `json:"regularMarketPrice"`
	ChangePercent    float64   `json:"regularMarketChangePercent"`
	Change           float64   `json:"regularMarketChange"`
	Currency         string    `json:"currency,omitempty"`
	MarketState      string    `json:"marketState,omitempty"` // "PRE", "REGULAR", "POST", "CLOSED"
	RegularMarketDay time.Time `json:"regularMarketTime,omitempty"`
}

// QuotePoint is one archived observation of a quote, used for history queries.
type QuotePoint struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	ChangePercent float64   `json:"changePercent"`
	ObservedAt    time.Time `json:"observedAt"`
}
