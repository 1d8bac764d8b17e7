// Package handlers provides HTTP handlers for risk analysis operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/riskpulse/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"

	maxRequestBytes   = 1 << 20
	maxAssetsPerBatch = 100
)

// PortfolioAnalyzer runs the risk pipeline.
type PortfolioAnalyzer interface {
	Run(ctx context.Context, assets []domain.AssetConfig) domain.BatchResult
	AnalyzeAsset(ctx context.Context, asset domain.AssetConfig) domain.RiskReport
}

// PortfolioFunc returns the configured portfolio.
type PortfolioFunc func() ([]domain.AssetConfig, error)

// Handler handles risk analysis HTTP requests
type Handler struct {
	analyzer  PortfolioAnalyzer
	portfolio PortfolioFunc
	log       zerolog.Logger
}

// NewHandler creates a new risk analysis handler
func NewHandler(analyzer PortfolioAnalyzer, portfolio PortfolioFunc, log zerolog.Logger) *Handler {
	return &Handler{
		analyzer:  analyzer,
		portfolio: portfolio,
		log:       log.With().Str("handler", "risk").Logger(),
	}
}

// AnalyzeRequest is the body of POST /api/risk/analyze.
type AnalyzeRequest struct {
	Assets []domain.AssetSpec `json:"assets"`
}

// HandleGetPortfolio handles GET /api/risk/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	assets, err := h.portfolio()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load portfolio")
		http.Error(w, "Failed to load portfolio", http.StatusInternalServerError)
		return
	}

	result := h.analyzer.Run(r.Context(), assets)
	h.writeResponse(w, r, http.StatusOK, result)
}

// HandleAnalyze handles POST /api/risk/analyze
//
// Assets that fail validation are reported as failed slots of the batch;
// only a malformed body or an empty or oversized list is rejected.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Assets) == 0 {
		http.Error(w, "At least one asset is required", http.StatusBadRequest)
		return
	}
	if len(req.Assets) > maxAssetsPerBatch {
		http.Error(w, fmt.Sprintf("At most %d assets per request", maxAssetsPerBatch), http.StatusBadRequest)
		return
	}

	assets := make([]domain.AssetConfig, len(req.Assets))
	for i, spec := range req.Assets {
		asset, err := spec.Resolve()
		if err != nil {
			// Kept; the analyzer reports it as failed in its own slot.
			asset.ConfigErr = err
		}
		assets[i] = asset
	}

	result := h.analyzer.Run(r.Context(), assets)
	h.writeResponse(w, r, http.StatusOK, result)
}

// HandleGetAsset handles GET /api/risk/assets/{assetID}
func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request, assetID string) {
	spec, err := specFromQuery(assetID, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	asset, err := spec.Resolve()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report := h.analyzer.AnalyzeAsset(r.Context(), asset)
	response := map[string]interface{}{
		"data": report,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"status":    report.Status,
		},
	}
	h.writeResponse(w, r, statusForReport(report), response)
}

func specFromQuery(assetID string, r *http.Request) (domain.AssetSpec, error) {
	spec := domain.AssetSpec{AssetID: assetID}
	q := r.URL.Query()

	if v := q.Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return spec, fmt.Errorf("invalid days: %q", v)
		}
		spec.LookbackDays = &days
	}
	if v := q.Get("allocation"); v != "" {
		allocation, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return spec, fmt.Errorf("invalid allocation: %q", v)
		}
		spec.AllocationPercent = allocation
	}

	var err error
	if spec.VaRConfidence, err = parseOptionalFloat(q.Get("var_confidence")); err != nil {
		return spec, fmt.Errorf("invalid var_confidence: %w", err)
	}
	if spec.CVaRConfidence, err = parseOptionalFloat(q.Get("cvar_confidence")); err != nil {
		return spec, fmt.Errorf("invalid cvar_confidence: %w", err)
	}
	return spec, nil
}

func parseOptionalFloat(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, errors.New(strconv.Quote(v))
	}
	return &f, nil
}

// statusForReport maps a single-asset outcome to an HTTP status.
func statusForReport(report domain.RiskReport) int {
	if report.OK() {
		return http.StatusOK
	}
	switch report.ErrorKind {
	case domain.KindInvalidConfiguration:
		return http.StatusBadRequest
	case domain.KindSourceUnavailable:
		return http.StatusBadGateway
	case domain.KindInsufficientData, domain.KindUndefinedMetric, domain.KindInvalidInput:
		return http.StatusUnprocessableEntity
	case domain.KindCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeResponse encodes data as msgpack when the client asks for it, JSON otherwise.
func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack) {
		h.writeMsgpack(w, status, data)
		return
	}
	h.writeJSON(w, status, data)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeMsgpack(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.WriteHeader(status)

	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode msgpack response")
	}
}

// assetIDParam extracts {assetID} from the route.
func assetIDParam(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(chi.URLParam(r, "assetID")))
}
