package pricing

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CachedResolver keeps recently resolved prices in Redis for a short TTL and only asks
// the wrapped source for symbols that are not cached. Redis errors are logged and
// bypass the cache.
type CachedResolver struct {
	rdb    redis.Cmdable
	inner  PriceSource
	prefix string
	ttl    time.Duration
}

// NewCachedResolver wraps inner with a Redis cache
func NewCachedResolver(rdb redis.Cmdable, inner PriceSource, prefix string, ttl time.Duration) *CachedResolver {
	if prefix == "" {
		prefix = "coinprice"
	}
	return &CachedResolver{
		rdb:    rdb,
		inner:  inner,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *CachedResolver) key(symbol string) string {
	return c.prefix + ":" + symbol
}

// Resolve serves cached prices and resolves the rest through the wrapped source
func (c *CachedResolver) Resolve(ctx context.Context, syms []string) (map[string]decimal.Decimal, error) {
	wanted := dedupe(syms)
	prices := make(map[string]decimal.Decimal, len(wanted))
	if len(wanted) == 0 {
		return prices, nil
	}

	misses := c.lookup(ctx, wanted, prices)
	if len(misses) == 0 {
		log.Debug().Int("hits", len(prices)).Msg("All prices served from cache")
		return prices, nil
	}

	fresh, err := c.inner.Resolve(ctx, misses)
	if err != nil {
		return nil, err
	}

	c.store(ctx, fresh)
	for symbol, price := range fresh {
		prices[symbol] = price
	}
	return prices, nil
}

// lookup fills prices with cache hits and returns the symbols that missed
func (c *CachedResolver) lookup(ctx context.Context, wanted []string, prices map[string]decimal.Decimal) []string {
	keys := make([]string, len(wanted))
	for i, symbol := range wanted {
		keys[i] = c.key(symbol)
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		log.Warn().Err(err).Msg("Price cache read failed, bypassing cache")
		return wanted
	}

	var misses []string
	for i, symbol := range wanted {
		raw, ok := vals[i].(string)
		if !ok {
			misses = append(misses, symbol)
			continue
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			log.Warn().Str("symbol", symbol).Str("value", raw).Msg("Discarding unparsable cached price")
			misses = append(misses, symbol)
			continue
		}
		prices[symbol] = price
	}
	return misses
}

func (c *CachedResolver) store(ctx context.Context, fresh map[string]decimal.Decimal) {
	values := cacheable(fresh)
	if len(values) == 0 || c.ttl <= 0 {
		return
	}

	pipe := c.rdb.Pipeline()
	for symbol, value := range values {
		pipe.Set(ctx, c.key(symbol), value, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Msg("Price cache write failed")
	}
}

// cacheable returns the prices worth caching. A zero or negative price stands for
// bad upstream data and is fetched again on the next resolve.
func cacheable(fresh map[string]decimal.Decimal) map[string]string {
	values := make(map[string]string, len(fresh))
	for symbol, price := range fresh {
		if !price.IsPositive() {
			log.Debug().Str("symbol", symbol).Str("price", price.String()).Msg("Not caching non-positive price")
			continue
		}
		values[symbol] = price.String()
	}
	return values
}
