package source

import "Warboard/pkg/config"

// Set bundles every constructed adapter. Adapters are always built;
// the enabled flags in config gate whether anything calls them.
type Set struct {
	Yahoo      *Yahoo
	CoinGecko  *CoinGecko
	FearGreed  *FearGreed
	Polymarket *Polymarket
	RSS        *RSSNews
	GDELT      *GDELT
	Firms      *Firms
	AIS        *AIS
	Circl      *Circl
	OpenSky    *OpenSky
}

// NewSet constructs all adapters with shared collaborators.
func NewSet(cfg *config.Config, deps Deps) *Set {
	return &Set{
		Yahoo:      NewYahoo(cfg, deps),
		CoinGecko:  NewCoinGecko(cfg, deps),
		FearGreed:  NewFearGreed(cfg, deps),
		Polymarket: NewPolymarket(cfg, deps),
		RSS:        NewRSSNews(cfg, deps),
		GDELT:      NewGDELT(cfg, deps),
		Firms:      NewFirms(cfg, deps),
		AIS:        NewAIS(cfg, deps),
		Circl:      NewCircl(cfg, deps),
		OpenSky:    NewOpenSky(cfg, deps),
	}
}

// Close stops every adapter's background workers.
func (s *Set) Close() {
	s.Yahoo.Close()
	s.CoinGecko.Close()
}
