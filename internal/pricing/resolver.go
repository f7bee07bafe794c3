package pricing

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/crypto-portfolio-service/internal/models"
	"github.com/trogers1052/crypto-portfolio-service/internal/symbols"
)

// TickerClient fetches tickers for a batch of upstream ids
type TickerClient interface {
	GetTickersByIDs(ctx context.Context, ids []string) ([]models.CoinTicker, error)
}

// SymbolSource provides the symbol index
type SymbolSource interface {
	Get(ctx context.Context) (symbols.Mapping, error)
}

// PriceSource resolves current USD prices for a set of symbols
type PriceSource interface {
	Resolve(ctx context.Context, syms []string) (map[string]decimal.Decimal, error)
}

// Resolver maps symbols to upstream ids and fetches their prices in one request
type Resolver struct {
	client TickerClient
	index  SymbolSource
}

// NewResolver creates a Resolver
func NewResolver(client TickerClient, index SymbolSource) *Resolver {
	return &Resolver{client: client, index: index}
}

// Resolve returns the current price for every symbol that maps to an upstream id
// and is present in the upstream response. Symbols that cannot be resolved are
// absent from the result. A price that does not parse is reported as zero.
func (r *Resolver) Resolve(ctx context.Context, syms []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)

	mapping, err := r.index.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load symbol index: %w", err)
	}

	byID := make(map[string][]string)
	for _, symbol := range dedupe(syms) {
		id, ok := mapping.Lookup(symbol)
		if !ok {
			log.Warn().Str("symbol", symbol).Msg("No upstream id for symbol")
			continue
		}
		key := strconv.FormatInt(id, 10)
		byID[key] = append(byID[key], symbol)
	}

	if len(byID) == 0 {
		log.Warn().Int("requested", len(syms)).Msg("No valid coin ids found for the given symbols")
		return prices, nil
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tickers, err := r.client.GetTickersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickers: %w", err)
	}

	for _, t := range tickers {
		requested, ok := byID[strings.TrimSpace(t.ID)]
		if !ok {
			log.Debug().Str("id", t.ID).Str("symbol", t.Symbol).Msg("Ignoring unrequested ticker")
			continue
		}

		price, err := decimal.NewFromString(strings.TrimSpace(t.PriceUSD))
		if err != nil {
			log.Warn().Str("symbol", t.Symbol).Str("price_usd", t.PriceUSD).Msg("Unable to parse price, using 0")
			price = decimal.Zero
		}
		for _, symbol := range requested {
			prices[symbol] = price
		}
	}

	return prices, nil
}

// dedupe uppercases symbols and drops blanks and repeats, keeping first-seen order
func dedupe(syms []string) []string {
	seen := make(map[string]bool, len(syms))
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		s = symbols.Normalize(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
