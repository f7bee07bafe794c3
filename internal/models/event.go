package models

import "time"

// Portfolio event types
const (
	EventPortfolioUploaded  = "PORTFOLIO_UPLOADED"
	EventPricesRefreshed    = "PRICES_REFRESHED"
	EventSymbolIndexRebuilt = "SYMBOL_INDEX_REBUILT"
)

// PortfolioEvent represents a Kafka event for portfolio and market data changes
type PortfolioEvent struct {
	EventType string    `json:"event_type"`
	Symbols   []string  `json:"symbols,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}
