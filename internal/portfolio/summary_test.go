package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/crypto-portfolio-service/internal/models"
)

func pricesOf(prices map[string]string) func(string) decimal.Decimal {
	return func(symbol string) decimal.Decimal {
		if p, ok := prices[symbol]; ok {
			return decimal.RequireFromString(p)
		}
		return decimal.Zero
	}
}

func TestSummarize(t *testing.T) {
	t.Run("single holding", func(t *testing.T) {
		items := []models.PortfolioItem{item(1, "BTC", "2.5", "34000.50")}

		summary, err := Summarize(items, pricesOf(map[string]string{"BTC": "35000"}))
		require.NoError(t, err)

		assert.True(t, summary.CurrentValue.Equal(decimal.NewFromInt(87500)), "current %s", summary.CurrentValue)
		assert.True(t, summary.InitialValue.Equal(decimal.RequireFromString("85001.25")), "initial %s", summary.InitialValue)
		assert.True(t, summary.OverallChangePercentage.IsPositive())
		assert.True(t, summary.OverallChangePercentage.Round(2).Equal(decimal.RequireFromString("2.94")))

		require.Len(t, summary.CoinChanges, 1)
		change := summary.CoinChanges[0]
		assert.Equal(t, "BTC", change.Coin)
		assert.True(t, change.CurrentPrice.Equal(decimal.NewFromInt(35000)))
		assert.True(t, change.ChangePercentage.Round(2).Equal(decimal.RequireFromString("2.94")))
	})

	t.Run("aggregates totals across coins", func(t *testing.T) {
		items := []models.PortfolioItem{
			item(1, "BTC", "1", "100"),
			item(2, "ETH", "10", "10"),
		}

		summary, err := Summarize(items, pricesOf(map[string]string{"BTC": "150", "ETH": "5"}))
		require.NoError(t, err)

		assert.True(t, summary.InitialValue.Equal(decimal.NewFromInt(200)))
		assert.True(t, summary.CurrentValue.Equal(decimal.NewFromInt(200)))
		assert.True(t, summary.OverallChangePercentage.IsZero())
		assert.True(t, summary.CoinChanges[0].ChangePercentage.Equal(decimal.NewFromInt(50)))
		assert.True(t, summary.CoinChanges[1].ChangePercentage.Equal(decimal.NewFromInt(-50)))
	})

	t.Run("zero initial price is guarded", func(t *testing.T) {
		items := []models.PortfolioItem{item(1, "AIRDROP", "1000", "0")}

		summary, err := Summarize(items, pricesOf(map[string]string{"AIRDROP": "2"}))
		require.NoError(t, err)

		assert.True(t, summary.InitialValue.IsZero())
		assert.True(t, summary.CurrentValue.Equal(decimal.NewFromInt(2000)))
		assert.True(t, summary.OverallChangePercentage.IsZero())
		assert.True(t, summary.CoinChanges[0].ChangePercentage.IsZero())
	})

	t.Run("missing price counts as zero", func(t *testing.T) {
		items := []models.PortfolioItem{item(1, "BTC", "2", "100")}

		summary, err := Summarize(items, pricesOf(nil))
		require.NoError(t, err)

		assert.True(t, summary.CurrentValue.IsZero())
		assert.True(t, summary.OverallChangePercentage.Equal(decimal.NewFromInt(-100)))
	})

	t.Run("empty portfolio", func(t *testing.T) {
		_, err := Summarize(nil, pricesOf(nil))
		assert.ErrorIs(t, err, ErrEmptyPortfolio)
	})
}
