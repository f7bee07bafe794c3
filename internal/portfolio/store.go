package portfolio

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/crypto-portfolio-service/internal/models"
)

// Store holds the uploaded holdings and the latest known price per symbol.
// Holdings and prices are guarded by separate locks so a price update never
// waits on a portfolio replacement.
type Store struct {
	holdingsMu sync.RWMutex
	holdings   map[string]models.PortfolioItem

	pricesMu sync.RWMutex
	prices   map[string]decimal.Decimal
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		holdings: make(map[string]models.PortfolioItem),
		prices:   make(map[string]decimal.Decimal),
	}
}

// ReplaceAll discards every holding and installs items, keyed by coin.
// The last item wins when a coin repeats.
func (s *Store) ReplaceAll(items []models.PortfolioItem) {
	holdings := make(map[string]models.PortfolioItem, len(items))
	for _, item := range items {
		holdings[item.Coin] = item
	}

	s.holdingsMu.Lock()
	s.holdings = holdings
	s.holdingsMu.Unlock()
}

// ListItems returns the holdings sorted by coin
func (s *Store) ListItems() []models.PortfolioItem {
	s.holdingsMu.RLock()
	items := make([]models.PortfolioItem, 0, len(s.holdings))
	for _, item := range s.holdings {
		items = append(items, item)
	}
	s.holdingsMu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].Coin < items[j].Coin })
	return items
}

// ListSymbols returns the held coins, sorted
func (s *Store) ListSymbols() []string {
	s.holdingsMu.RLock()
	syms := make([]string, 0, len(s.holdings))
	for coin := range s.holdings {
		syms = append(syms, coin)
	}
	s.holdingsMu.RUnlock()

	sort.Strings(syms)
	return syms
}

// SetCurrentPrice records the latest price for symbol
func (s *Store) SetCurrentPrice(symbol string, price decimal.Decimal) {
	s.pricesMu.Lock()
	s.prices[symbol] = price
	s.pricesMu.Unlock()
}

// GetCurrentPrice returns the latest price for symbol, or zero if none was recorded
func (s *Store) GetCurrentPrice(symbol string) decimal.Decimal {
	s.pricesMu.RLock()
	defer s.pricesMu.RUnlock()

	if price, ok := s.prices[symbol]; ok {
		return price
	}
	return decimal.Zero
}
