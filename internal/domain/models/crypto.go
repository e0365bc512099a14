package models

// CoinMarket is one row of the crypto market overview.
type CoinMarket struct {
	ID               string  `json:"id"`
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Image            string  `json:"image,omitempty"`
	CurrentPrice     float64 `json:"currentPrice"`
	MarketCap        float64 `json:"marketCap"`
	MarketCapRank    int     `json:"marketCapRank"`
	TotalVolume      float64 `json:"totalVolume"`
	PriceChange24h   float64 `json:"priceChangePercentage24h"`
	Sparkline        []float64 `json:"sparkline,omitempty"`
}

// GlobalCrypto is the market-wide crypto summary.
type GlobalCrypto struct {
	TotalMarketCapUSD float64 `json:"totalMarketCapUsd"`
	TotalVolumeUSD    float64 `json:"totalVolumeUsd"`
	BTCDominance      float64 `json:"btcDominance"`
	ETHDominance      float64 `json:"ethDominance"`
	MarketCapChange   float64 `json:"marketCapChangePercentage24h"`
	ActiveCurrencies  int     `json:"activeCryptocurrencies"`
}

// FearGreed is one reading of the alternative.me Fear & Greed index.
type FearGreed struct {
	Value          int    `json:"value"`
	Classification string `json:"classification"` // "Extreme Fear" .. "Extreme Greed"
	Timestamp      int64  `json:"timestamp"`
}
