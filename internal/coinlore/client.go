package coinlore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/trogers1052/crypto-portfolio-service/internal/models"
)

// ErrUpstreamUnavailable is returned when the price service cannot be reached or answers with an error.
var ErrUpstreamUnavailable = errors.New("upstream price service unavailable")

const (
	globalPath  = "/global/"
	tickersPath = "/tickers/"
	tickerPath  = "/ticker/"
)

// Client talks to the CoinLore public API
type Client struct {
	http *resty.Client
}

// NewClient creates a CoinLore client rooted at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{http: client}
}

// GetCatalogSize returns the total number of coins the upstream tracks
func (c *Client) GetCatalogSize(ctx context.Context) (int, error) {
	var global []models.GlobalData
	if err := c.get(ctx, globalPath, nil, &global); err != nil {
		return 0, err
	}
	if len(global) == 0 {
		return 0, fmt.Errorf("%w: empty global data response", ErrUpstreamUnavailable)
	}
	return global[0].CoinsCount, nil
}

// GetTickersPage returns one page of the coin catalog
func (c *Client) GetTickersPage(ctx context.Context, offset, limit int) ([]models.CoinTicker, error) {
	var page models.TickersPage
	params := map[string]string{
		"start": strconv.Itoa(offset),
		"limit": strconv.Itoa(limit),
	}
	if err := c.get(ctx, tickersPath, params, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// GetTickersByIDs returns tickers for the given upstream ids in one request
func (c *Client) GetTickersByIDs(ctx context.Context, ids []string) ([]models.CoinTicker, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var tickers []models.CoinTicker
	params := map[string]string{"id": strings.Join(ids, ",")}
	if err := c.get(ctx, tickerPath, params, &tickers); err != nil {
		return nil, err
	}
	return tickers, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	log.Debug().Str("path", path).Interface("params", params).Msg("coinlore request")

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("%w: request to %s failed: %w", ErrUpstreamUnavailable, path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s returned status %d", ErrUpstreamUnavailable, path, resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %w", ErrUpstreamUnavailable, path, err)
	}
	return nil
}
