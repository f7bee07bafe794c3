package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/trogers1052/crypto-portfolio-service/internal/coinlore"
	"github.com/trogers1052/crypto-portfolio-service/internal/models"
	"github.com/trogers1052/crypto-portfolio-service/internal/portfolio"
	"github.com/trogers1052/crypto-portfolio-service/internal/refresher"
	"github.com/trogers1052/crypto-portfolio-service/internal/symbols"
)

const maxUploadBytes = 10 << 20

var errBadUpload = errors.New("invalid upload")

// IndexRebuilder rebuilds the symbol index
type IndexRebuilder interface {
	Rebuild(ctx context.Context) (symbols.Mapping, error)
}

// PortfolioService is the portfolio surface the handlers expose
type PortfolioService interface {
	UploadPortfolio(ctx context.Context, r io.Reader) ([]models.PortfolioItem, error)
	GetSummary(ctx context.Context) (*models.PortfolioSummary, error)
}

// StateReporter reports the background refresher state
type StateReporter interface {
	State() refresher.State
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	rebuilder IndexRebuilder
	portfolio PortfolioService
	refresher StateReporter
}

// NewHandler creates a new Handler. refresher may be nil.
func NewHandler(rebuilder IndexRebuilder, portfolio PortfolioService, refresher StateReporter) *Handler {
	return &Handler{
		rebuilder: rebuilder,
		portfolio: portfolio,
		refresher: refresher,
	}
}

// UpdateCoinMapping handles POST /api/v1/coin-mapping/update
func (h *Handler) UpdateCoinMapping(w http.ResponseWriter, r *http.Request) {
	// A rebuild runs to completion even if the caller goes away.
	mapping, err := h.rebuilder.Rebuild(context.WithoutCancel(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Symbol to ID mapping updated successfully.",
		"symbols": len(mapping),
	})
}

// UploadPortfolio handles POST /api/v1/portfolio/upload. The file is taken from the
// multipart field "file", or from the raw body for any other content type.
func (h *Handler) UploadPortfolio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	body, closeBody, err := uploadBody(r)
	if err != nil {
		respondError(w, err)
		return
	}
	defer closeBody()

	items, err := h.portfolio.UploadPortfolio(r.Context(), body)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Portfolio uploaded successfully.",
		"items":   len(items),
	})
}

// GetPortfolioSummary handles GET /api/v1/portfolio/summary
func (h *Handler) GetPortfolioSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolio.GetSummary(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "healthy"}
	if h.refresher != nil {
		resp["refresher"] = h.refresher.State().String()
	}
	respondJSON(w, http.StatusOK, resp)
}

func uploadBody(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	file, _, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, fmt.Errorf("%w: multipart upload must include a \"file\" field", errBadUpload)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errBadUpload, err)
	}
	return file, func() { file.Close() }, nil
}

type errorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadUpload),
		errors.Is(err, portfolio.ErrEmptyInput),
		errors.Is(err, portfolio.ErrNoSymbolsLoaded),
		errors.Is(err, portfolio.ErrEmptyPortfolio):
		return http.StatusBadRequest
	case errors.Is(err, coinlore.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		message = "An internal server error occurred."
	} else {
		log.Warn().Err(err).Int("status", status).Msg("Request rejected")
	}

	respondJSON(w, status, errorResponse{StatusCode: status, Error: message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
