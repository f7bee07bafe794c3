package portfolio

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/trogers1052/crypto-portfolio-service/internal/models"
)

// PriceRefresher refreshes stored prices on demand
type PriceRefresher interface {
	RefreshNow(ctx context.Context) error
}

// UploadPublisher is notified after a portfolio upload
type UploadPublisher interface {
	PublishPortfolioUploaded(ctx context.Context, symbols []string) error
}

// Service ties ingestion, storage and valuation together for the HTTP layer
type Service struct {
	ingestor  *Ingestor
	store     *Store
	refresher PriceRefresher
	publisher UploadPublisher
}

// NewService creates a Service. refresher may be nil.
func NewService(ingestor *Ingestor, store *Store, refresher PriceRefresher) *Service {
	return &Service{
		ingestor:  ingestor,
		store:     store,
		refresher: refresher,
	}
}

// SetPublisher attaches an event publisher
func (s *Service) SetPublisher(p UploadPublisher) {
	s.publisher = p
}

// UploadPortfolio replaces the stored holdings with the parsed upload and refreshes
// prices straight away. A failed refresh is logged; the upload still succeeds and the
// background refresher picks the prices up on its next tick.
func (s *Service) UploadPortfolio(ctx context.Context, r io.Reader) ([]models.PortfolioItem, error) {
	items, err := s.ingestor.Ingest(ctx, r)
	if err != nil {
		return nil, err
	}

	s.store.ReplaceAll(items)
	log.Info().Int("items", len(items)).Msg("Portfolio uploaded")

	if s.refresher != nil {
		if err := s.refresher.RefreshNow(ctx); err != nil {
			log.Warn().Err(err).Msg("Price refresh after upload failed")
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPortfolioUploaded(ctx, s.store.ListSymbols()); err != nil {
			log.Warn().Err(err).Msg("Failed to publish portfolio uploaded event")
		}
	}
	return items, nil
}

// GetSummary values the stored holdings at the latest known prices
func (s *Service) GetSummary(ctx context.Context) (*models.PortfolioSummary, error) {
	return Summarize(s.store.ListItems(), s.store.GetCurrentPrice)
}
