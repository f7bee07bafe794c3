package portfolio

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/crypto-portfolio-service/internal/models"
)

// Summarize values items against the prices returned by currentPrice.
// It returns ErrEmptyPortfolio when items is empty.
func Summarize(items []models.PortfolioItem, currentPrice func(symbol string) decimal.Decimal) (*models.PortfolioSummary, error) {
	if len(items) == 0 {
		return nil, ErrEmptyPortfolio
	}

	summary := &models.PortfolioSummary{
		InitialValue: decimal.Zero,
		CurrentValue: decimal.Zero,
		CoinChanges:  make([]models.CoinChange, 0, len(items)),
	}

	for _, item := range items {
		price := currentPrice(item.Coin)
		change := models.CoinChange{
			Coin:             item.Coin,
			Quantity:         item.Quantity,
			InitialPrice:     item.InitialPrice,
			CurrentPrice:     price,
			InitialValue:     item.Quantity.Mul(item.InitialPrice),
			CurrentValue:     item.Quantity.Mul(price),
			ChangePercentage: models.ChangePercentage(item.InitialPrice, price),
		}
		summary.CoinChanges = append(summary.CoinChanges, change)
		summary.InitialValue = summary.InitialValue.Add(change.InitialValue)
		summary.CurrentValue = summary.CurrentValue.Add(change.CurrentValue)
	}

	summary.OverallChangePercentage = models.ChangePercentage(summary.InitialValue, summary.CurrentValue)
	return summary, nil
}
