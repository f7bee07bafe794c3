package refresher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// State is the refresher lifecycle state
type State int32

const (
	StateIdle State = iota
	StateTicking
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTicking:
		return "ticking"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PriceSource resolves current prices for symbols
type PriceSource interface {
	Resolve(ctx context.Context, syms []string) (map[string]decimal.Decimal, error)
}

// PriceStore is where tracked symbols are read from and prices written to
type PriceStore interface {
	ListSymbols() []string
	SetCurrentPrice(symbol string, price decimal.Decimal)
}

// RefreshPublisher is notified after a successful refresh
type RefreshPublisher interface {
	PublishPricesRefreshed(ctx context.Context, symbols []string) error
}

// Refresher periodically copies current market prices into the store
type Refresher struct {
	source    PriceSource
	store     PriceStore
	interval  time.Duration
	publisher RefreshPublisher

	tickMu sync.Mutex
	state  atomic.Int32
}

// New creates a Refresher that ticks every interval
func New(source PriceSource, store PriceStore, interval time.Duration) *Refresher {
	return &Refresher{
		source:   source,
		store:    store,
		interval: interval,
	}
}

// SetPublisher attaches an event publisher
func (r *Refresher) SetPublisher(p RefreshPublisher) {
	r.publisher = p
}

// State reports what the refresher is doing
func (r *Refresher) State() State {
	return State(r.state.Load())
}

// Run ticks immediately and then every interval until ctx is cancelled.
// Tick failures are logged and never stop the loop.
func (r *Refresher) Run(ctx context.Context) {
	log.Info().Dur("interval", r.interval).Msg("Price refresher starting")
	defer func() {
		r.state.Store(int32(StateStopped))
		log.Info().Msg("Price refresher stopped")
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if ctx.Err() != nil {
			return
		}
		if err := r.RefreshNow(ctx); err != nil {
			log.Error().Err(err).Msg("Error updating prices")
		}

		timer.Reset(r.interval)
	}
}

// RefreshNow runs a single tick. Ticks are serialized.
func (r *Refresher) RefreshNow(ctx context.Context) (err error) {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	// A stopped refresher can still be refreshed on demand but stays stopped.
	ticking := r.state.CompareAndSwap(int32(StateIdle), int32(StateTicking))
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("price refresh panicked: %v", rec)
		}
		if ticking {
			r.state.CompareAndSwap(int32(StateTicking), int32(StateIdle))
		}
	}()

	return r.tick(ctx)
}

func (r *Refresher) tick(ctx context.Context) error {
	syms := r.store.ListSymbols()
	if len(syms) == 0 {
		log.Info().Msg("No symbols to update")
		return nil
	}

	prices, err := r.source.Resolve(ctx, syms)
	if err != nil {
		return fmt.Errorf("failed to resolve prices: %w", err)
	}

	updated := 0
	for _, symbol := range syms {
		price, ok := prices[symbol]
		if !ok {
			log.Warn().Str("symbol", symbol).Msg("Price not found, setting price to 0")
			r.store.SetCurrentPrice(symbol, decimal.Zero)
			continue
		}
		if price.IsNegative() {
			log.Warn().Str("symbol", symbol).Str("price", price.String()).Msg("Received negative price, keeping previous value")
			continue
		}

		r.store.SetCurrentPrice(symbol, price)
		updated++
	}
	log.Info().Int("updated", updated).Int("tracked", len(syms)).Msg("Prices updated")

	if r.publisher != nil {
		if err := r.publisher.PublishPricesRefreshed(ctx, syms); err != nil {
			log.Warn().Err(err).Msg("Failed to publish prices refreshed event")
		}
	}
	return nil
}
