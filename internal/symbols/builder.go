package symbols

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/trogers1052/crypto-portfolio-service/internal/models"
)

// DefaultPageSize is the largest page the CoinLore tickers endpoint serves
const DefaultPageSize = 100

// CatalogClient is the part of the upstream price service the builder needs
type CatalogClient interface {
	GetCatalogSize(ctx context.Context) (int, error)
	GetTickersPage(ctx context.Context, offset, limit int) ([]models.CoinTicker, error)
}

// RebuildPublisher is notified after a successful rebuild
type RebuildPublisher interface {
	PublishSymbolIndexRebuilt(ctx context.Context, count int) error
}

// Builder rebuilds the symbol index from the full upstream catalog
type Builder struct {
	client    CatalogClient
	store     Store
	index     *Index
	pageSize  int
	publisher RebuildPublisher
}

// NewBuilder creates a Builder. index may be nil; when set it is invalidated after
// every successful rebuild.
func NewBuilder(client CatalogClient, store Store, index *Index, pageSize int) *Builder {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Builder{
		client:   client,
		store:    store,
		index:    index,
		pageSize: pageSize,
	}
}

// SetPublisher attaches an event publisher
func (b *Builder) SetPublisher(p RebuildPublisher) {
	b.publisher = p
}

// PageCount returns how many page requests a catalog of n coins needs
func (b *Builder) PageCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + b.pageSize - 1) / b.pageSize
}

// Rebuild fetches every catalog page concurrently, builds the mapping and persists it.
// A failing page contributes nothing; only the catalog size request and the final
// write can fail the rebuild.
func (b *Builder) Rebuild(ctx context.Context) (Mapping, error) {
	total, err := b.client.GetCatalogSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog size: %w", err)
	}
	log.Info().Int("coins", total).Msg("Fetched catalog size")

	var mapping Mapping
	if total <= 0 {
		log.Warn().Int("coins", total).Msg("Catalog is empty, writing empty symbol index")
		mapping = Mapping{}
	} else {
		tickers := b.fetchPages(ctx, total)
		// Pages cut short by cancellation look like failed pages; saving
		// them would replace a good index with a partial one.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("symbol index rebuild abandoned: %w", err)
		}
		mapping = buildMapping(tickers)
	}

	if err := b.store.Save(ctx, mapping); err != nil {
		return nil, err
	}
	if b.index != nil {
		b.index.Invalidate()
	}
	log.Info().Int("symbols", len(mapping)).Msg("Symbol index rebuilt")

	if b.publisher != nil {
		if err := b.publisher.PublishSymbolIndexRebuilt(ctx, len(mapping)); err != nil {
			log.Warn().Err(err).Msg("Failed to publish symbol index rebuilt event")
		}
	}
	return mapping, nil
}

func (b *Builder) fetchPages(ctx context.Context, total int) []models.CoinTicker {
	pages := b.PageCount(total)
	log.Info().Int("pages", pages).Int("page_size", b.pageSize).Msg("Fetching catalog pages")

	results := make([][]models.CoinTicker, pages)
	var wg sync.WaitGroup
	for i := 0; i < pages; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			offset := i * b.pageSize
			tickers, err := b.client.GetTickersPage(ctx, offset, b.pageSize)
			if err != nil {
				log.Warn().Err(err).Int("offset", offset).Msg("Catalog page failed, skipping")
				return
			}
			if len(tickers) == 0 {
				log.Warn().Int("offset", offset).Msg("No coins retrieved for page")
			}
			results[i] = tickers
		}(i)
	}
	wg.Wait()

	var all []models.CoinTicker
	for _, page := range results {
		all = append(all, page...)
	}
	return all
}

type candidate struct {
	id     int64
	parsed bool
	raw    string
}

// buildMapping groups tickers by uppercased symbol. When a symbol appears more than
// once the lowest valid id wins; an id that does not parse maps to 0 only if no
// other id for that symbol parses.
func buildMapping(tickers []models.CoinTicker) Mapping {
	best := make(map[string]candidate)
	for _, t := range tickers {
		symbol := Normalize(t.Symbol)
		raw := strings.TrimSpace(t.ID)
		if symbol == "" || raw == "" {
			continue
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		c := candidate{id: id, parsed: err == nil && id >= 0, raw: raw}

		cur, seen := best[symbol]
		if !seen || (c.parsed && (!cur.parsed || c.id < cur.id)) {
			best[symbol] = c
		}
	}

	mapping := make(Mapping, len(best))
	for symbol, c := range best {
		if !c.parsed {
			log.Warn().Str("symbol", symbol).Str("id", c.raw).Msg("Invalid id format, mapping to 0")
			mapping[symbol] = 0
			continue
		}
		mapping[symbol] = c.id
	}
	return mapping
}
