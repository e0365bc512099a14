package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type QuotesRequest struct {
	Symbols string `query:"symbols" json:"symbols"` // comma separated, defaults to the configured watchlist
}

type QuoteHistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"500" validate:"gte=1,lte=10000"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
}

type CoinMarketsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=250"`
}

type CvesRequest struct {
	Limit int `query:"limit" json:"limit" default:"30" validate:"gte=1,lte=100"`
}

type MarketsRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}
