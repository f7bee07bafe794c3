package models

import "github.com/shopspring/decimal"

// PortfolioItem represents a single holding of a coin
type PortfolioItem struct {
	ID           int64           `json:"id"`
	Coin         string          `json:"coin"`
	Quantity     decimal.Decimal `json:"quantity"`
	InitialPrice decimal.Decimal `json:"initial_price"`
}

// CoinChange is the valuation of one holding against its current price
type CoinChange struct {
	Coin             string          `json:"coin"`
	Quantity         decimal.Decimal `json:"quantity"`
	InitialPrice     decimal.Decimal `json:"initial_price"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	InitialValue     decimal.Decimal `json:"initial_value"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	ChangePercentage decimal.Decimal `json:"change_percentage"`
}

// PortfolioSummary is the derived valuation of the whole portfolio
type PortfolioSummary struct {
	InitialValue            decimal.Decimal `json:"initial_value"`
	CurrentValue            decimal.Decimal `json:"current_value"`
	OverallChangePercentage decimal.Decimal `json:"overall_change_percentage"`
	CoinChanges             []CoinChange    `json:"coin_changes"`
}

var hundred = decimal.NewFromInt(100)

// ChangePercentage returns (current-initial)/initial*100, or zero when initial is zero.
func ChangePercentage(initial, current decimal.Decimal) decimal.Decimal {
	if initial.IsZero() {
		return decimal.Zero
	}
	return current.Sub(initial).Div(initial).Mul(hundred)
}
