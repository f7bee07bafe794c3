package models

// CoinTicker is a single coin quote as reported by the upstream price service.
// Upstream sends ids and prices as strings.
type CoinTicker struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	PriceUSD string `json:"price_usd"`
}

// GlobalData holds catalog-wide metadata from the upstream price service
type GlobalData struct {
	CoinsCount int `json:"coins_count"`
}

// TickersPage is the envelope returned by the paginated tickers endpoint
type TickersPage struct {
	Data []CoinTicker `json:"data"`
}
