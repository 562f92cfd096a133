package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quantfeed/dcalab-go/internal/cache"
	"github.com/quantfeed/dcalab-go/internal/models"
)

// PriceProvider is the upstream quote source. The HTTP implementation lives
// in internal/provider; tests supply stubs.
type PriceProvider interface {
	FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error)
	FetchVIX(ctx context.Context, from, to time.Time) (map[string]float64, error)
}

// MarketDataService resolves price and VIX series for the engine, consulting
// the Redis cache before the upstream provider. All fetching completes
// before a simulation starts; the engine itself performs no I/O.
type MarketDataService struct {
	provider PriceProvider
	cache    *cache.RedisPriceCache
	logger   *logrus.Logger
}

func NewMarketDataService(provider PriceProvider, priceCache *cache.RedisPriceCache, logger *logrus.Logger) *MarketDataService {
	if logger == nil {
		logger = logrus.New()
	}
	return &MarketDataService{
		provider: provider,
		cache:    priceCache,
		logger:   logger,
	}
}

// DailyCloses returns the ascending daily close series for symbol over
// [from, to], served from cache when possible.
func (m *MarketDataService) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	if m.cache != nil {
		key := m.cache.Key(symbol, from, to)
		if points, ok := m.cache.Get(ctx, key); ok {
			m.logger.WithField("symbol", symbol).Debug("Price series served from cache")
			return points, nil
		}
	}

	points, err := m.provider.FetchDailyCloses(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch daily closes for %s: %w", symbol, err)
	}

	if m.cache != nil {
		m.cache.Set(ctx, m.cache.Key(symbol, from, to), points)
	}
	return points, nil
}

// VIXSeries returns a date-keyed map of VIX levels over [from, to].
func (m *MarketDataService) VIXSeries(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	levels, err := m.provider.FetchVIX(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch VIX series: %w", err)
	}
	return levels, nil
}
