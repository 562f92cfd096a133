// Package provider fetches daily close series from an upstream quote API
// speaking the Yahoo chart JSON dialect. The engine never talks to the
// network itself; everything here resolves before a simulation runs.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/quantfeed/dcalab-go/internal/models"
)

// VIXSymbol is the upstream ticker for the volatility index.
const VIXSymbol = "^VIX"

// Client is a rate-limited HTTP client for the upstream chart endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// NewClient builds a provider client. requestsPerMinute throttles upstream
// calls; the upstream tolerates short bursts, so a burst of 5 is allowed.
func NewClient(baseURL string, timeout time.Duration, requestsPerMinute int, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 5),
		logger:     logger,
	}
}

// chartResponse mirrors the upstream chart payload.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// FetchDailyCloses returns the ascending daily close series for symbol in
// [from, to]. Days with a zero close are dropped.
func (c *Client) FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		c.baseURL, symbol, from.Unix(), to.Unix())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "curl/8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", symbol, resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", symbol, err)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no data for %s", symbol)
	}

	timestamps := payload.Chart.Result[0].Timestamp
	closePrices := payload.Chart.Result[0].Indicators.Quote[0].Close

	points := make([]models.PricePoint, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(closePrices) || closePrices[i] == 0 {
			continue
		}
		day := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		points = append(points, models.PricePoint{
			Date:  day,
			Price: decimal.NewFromFloat(closePrices[i]),
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no valid closes for %s", symbol)
	}

	c.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"points": len(points),
	}).Debug("Fetched daily closes")

	return points, nil
}

// FetchVIX returns a date-keyed map of volatility index levels for the
// range. Missing dates mean no reading; callers treat them as no signal.
func (c *Client) FetchVIX(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	points, err := c.FetchDailyCloses(ctx, VIXSymbol, from, to)
	if err != nil {
		return nil, err
	}
	levels := make(map[string]float64, len(points))
	for _, p := range points {
		levels[p.Date.Format(models.DateLayout)] = p.Price.InexactFloat64()
	}
	return levels, nil
}
