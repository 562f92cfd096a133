package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/dcalab-go/internal/cache"
	"github.com/quantfeed/dcalab-go/internal/models"
)

func mdPricePoint(t *testing.T, date string, price float64) models.PricePoint {
	t.Helper()
	return models.PricePoint{Date: day(t, date), Price: decimal.NewFromFloat(price)}
}

type stubProvider struct {
	closes     []models.PricePoint
	vix        map[string]float64
	err        error
	fetchCalls int
}

func (s *stubProvider) FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	s.fetchCalls++
	return s.closes, s.err
}

func (s *stubProvider) FetchVIX(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	return s.vix, s.err
}

func newTestPriceCache(t *testing.T) *cache.RedisPriceCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisPriceCache(client, time.Hour, logrus.New())
}

func TestDailyClosesCachesUpstreamResult(t *testing.T) {
	provider := &stubProvider{closes: []models.PricePoint{mdPricePoint(t, "2024-01-02", 100)}}
	svc := NewMarketDataService(provider, newTestPriceCache(t), logrus.New())
	ctx := context.Background()

	from := day(t, "2024-01-01")
	to := day(t, "2024-02-01")

	first, err := svc.DailyCloses(ctx, "SPY", from, to)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, provider.fetchCalls)

	// Second request for the same range never reaches the provider.
	second, err := svc.DailyCloses(ctx, "SPY", from, to)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, provider.fetchCalls)
	assert.True(t, second[0].Price.Equal(first[0].Price))
}

func TestDailyClosesDistinctRangesMiss(t *testing.T) {
	provider := &stubProvider{closes: []models.PricePoint{mdPricePoint(t, "2024-01-02", 100)}}
	svc := NewMarketDataService(provider, newTestPriceCache(t), logrus.New())
	ctx := context.Background()

	_, err := svc.DailyCloses(ctx, "SPY", day(t, "2024-01-01"), day(t, "2024-02-01"))
	require.NoError(t, err)
	_, err = svc.DailyCloses(ctx, "SPY", day(t, "2024-01-01"), day(t, "2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 2, provider.fetchCalls)
}

func TestDailyClosesUpstreamError(t *testing.T) {
	wantErr := errors.New("upstream down")
	svc := NewMarketDataService(&stubProvider{err: wantErr}, nil, logrus.New())

	_, err := svc.DailyCloses(context.Background(), "SPY", day(t, "2024-01-01"), day(t, "2024-02-01"))
	assert.ErrorIs(t, err, wantErr)
}

func TestDailyClosesWithoutCache(t *testing.T) {
	provider := &stubProvider{closes: []models.PricePoint{mdPricePoint(t, "2024-01-02", 100)}}
	svc := NewMarketDataService(provider, nil, logrus.New())

	points, err := svc.DailyCloses(context.Background(), "SPY", day(t, "2024-01-01"), day(t, "2024-02-01"))
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestVIXSeries(t *testing.T) {
	provider := &stubProvider{vix: map[string]float64{"2024-01-02": 18.4}}
	svc := NewMarketDataService(provider, nil, logrus.New())

	levels, err := svc.VIXSeries(context.Background(), day(t, "2024-01-01"), day(t, "2024-02-01"))
	require.NoError(t, err)
	assert.InDelta(t, 18.4, levels["2024-01-02"], 1e-9)
}

func TestVIXSeriesError(t *testing.T) {
	wantErr := errors.New("upstream down")
	svc := NewMarketDataService(&stubProvider{err: wantErr}, nil, logrus.New())

	_, err := svc.VIXSeries(context.Background(), day(t, "2024-01-01"), day(t, "2024-02-01"))
	assert.ErrorIs(t, err, wantErr)
}
