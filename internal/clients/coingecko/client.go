// Package coingecko provides a price source backed by the CoinGecko public API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/riskpulse/internal/domain"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL    = "https://api.coingecko.com/api/v3"
	DefaultVsCurrency = "usd"

	apiKeyHeader  = "x-cg-demo-api-key"
	secondsPerDay = 24 * 60 * 60
	maxErrorBody  = 512
)

// marketChartResponse is the subset of /market_chart/range we use.
// Each price entry is [timestamp_ms, price].
type marketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

// Client is the CoinGecko API client. It implements domain.PriceSource.
type Client struct {
	baseURL    string
	apiKey     string // Optional demo key
	vsCurrency string
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time
}

var _ domain.PriceSource = (*Client)(nil)

// NewClient creates a new CoinGecko client.
// apiKey is optional; when set it is sent as the demo API key header.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		vsCurrency: DefaultVsCurrency,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "coingecko").Logger(),
		now: time.Now,
	}
}

// WithBaseURL points the client at another API root (trailing slash ignored).
func (c *Client) WithBaseURL(baseURL string) *Client {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithVsCurrency sets the quote currency.
func (c *Client) WithVsCurrency(currency string) *Client {
	if currency != "" {
		c.vsCurrency = strings.ToLower(currency)
	}
	return c
}

// FetchHistoricalPrices returns prices for the last lookbackDays days, oldest first.
// Any transport, status or decode failure is wrapped in domain.ErrSourceUnavailable.
// A coin with no data in the window yields an empty series and a nil error.
func (c *Client) FetchHistoricalPrices(ctx context.Context, assetID string, lookbackDays int) (domain.PriceSeries, error) {
	if strings.TrimSpace(assetID) == "" {
		return nil, fmt.Errorf("%w: asset id is required", domain.ErrInvalidConfiguration)
	}
	if lookbackDays <= 0 {
		return nil, fmt.Errorf("%w: lookback days must be positive, got %d", domain.ErrInvalidConfiguration, lookbackDays)
	}

	to := c.now().Unix()
	from := to - int64(lookbackDays)*secondsPerDay

	params := url.Values{}
	params.Set("vs_currency", c.vsCurrency)
	params.Set("from", strconv.FormatInt(from, 10))
	params.Set("to", strconv.FormatInt(to, 10))
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart/range?%s", c.baseURL, url.PathEscape(assetID), params.Encode())

	start := time.Now()
	var chart marketChartResponse
	if err := c.doRequest(ctx, endpoint, &chart); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, assetID, err)
	}

	series, err := toSeries(chart.Prices)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, assetID, err)
	}

	c.log.Debug().
		Str("asset_id", assetID).
		Int("lookback_days", lookbackDays).
		Int("points", len(series)).
		Dur("duration", time.Since(start)).
		Msg("Fetched historical prices")

	return series, nil
}

// doRequest performs a GET and decodes the JSON body into out.
func (c *Client) doRequest(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limited (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("CoinGecko API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// toSeries converts [ms, price] pairs into an ascending series in epoch seconds.
func toSeries(raw [][]float64) (domain.PriceSeries, error) {
	series := make(domain.PriceSeries, 0, len(raw))
	for i, entry := range raw {
		if len(entry) < 2 {
			return nil, fmt.Errorf("malformed price entry %d: %v", i, entry)
		}
		series = append(series, domain.PricePoint{
			Timestamp: int64(entry[0]) / 1000,
			Price:     entry[1],
		})
	}

	if !series.IsSorted() {
		series = series.Sorted()
	}
	return series, nil
}
