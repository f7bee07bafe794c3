package portfolio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/crypto-portfolio-service/internal/models"
	"github.com/trogers1052/crypto-portfolio-service/internal/symbols"
)

const (
	fieldSeparator = "|"
	maxLineBytes   = 1 << 20
)

// SymbolSource provides the symbol index
type SymbolSource interface {
	Get(ctx context.Context) (symbols.Mapping, error)
}

// Ingestor parses uploaded portfolio files of "quantity|symbol|initialPrice" lines
type Ingestor struct {
	index SymbolSource
}

// NewIngestor creates an Ingestor validating symbols against index
func NewIngestor(index SymbolSource) *Ingestor {
	return &Ingestor{index: index}
}

// Ingest parses r into holdings. Invalid lines are logged and skipped. It fails with
// ErrNoSymbolsLoaded before reading anything when the index is empty, and with
// ErrEmptyInput when no line is valid.
func (i *Ingestor) Ingest(ctx context.Context, r io.Reader) ([]models.PortfolioItem, error) {
	mapping, err := i.index.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load symbol index: %w", err)
	}
	if len(mapping) == 0 {
		return nil, ErrNoSymbolsLoaded
	}

	var items []models.PortfolioItem
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		item, ok := parseLine(line, lineNumber, mapping)
		if ok {
			items = append(items, item)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read portfolio upload: %w", err)
	}

	if len(items) == 0 {
		return nil, ErrEmptyInput
	}

	log.Info().Int("items", len(items)).Int("lines", lineNumber).Msg("Portfolio parsed")
	return items, nil
}

func parseLine(line string, lineNumber int, mapping symbols.Mapping) (models.PortfolioItem, bool) {
	parts := strings.Split(line, fieldSeparator)
	if len(parts) != 3 {
		log.Warn().Int("line", lineNumber).Str("content", line).Msg("Invalid line format")
		return models.PortfolioItem{}, false
	}

	quantity, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil || !quantity.IsPositive() {
		log.Warn().Int("line", lineNumber).Str("value", parts[0]).Msg("Invalid quantity")
		return models.PortfolioItem{}, false
	}

	initialPrice, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
	if err != nil || initialPrice.IsNegative() {
		log.Warn().Int("line", lineNumber).Str("value", parts[2]).Msg("Invalid initial price")
		return models.PortfolioItem{}, false
	}

	coin := symbols.Normalize(parts[1])
	id, ok := mapping[coin]
	if coin == "" || !ok {
		log.Warn().Int("line", lineNumber).Str("symbol", coin).Msg("Unknown symbol")
		return models.PortfolioItem{}, false
	}

	return models.PortfolioItem{
		ID:           id,
		Coin:         coin,
		Quantity:     quantity,
		InitialPrice: initialPrice,
	}, true
}
