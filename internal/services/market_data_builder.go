package services

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quantfeed/dcalab-go/internal/indicators"
	"github.com/quantfeed/dcalab-go/internal/models"
	"github.com/quantfeed/dcalab-go/internal/timeseries"
)

// smaWindows are the moving-average lookbacks the rule engine evaluates.
var smaWindows = []int{20, 50, 100, 200}

// MarketDataBuilder enriches raw daily closes with the indicator values the
// simulation rules consume. Indicators are computed once over the full
// lookback-extended series; only points inside the user-requested window are
// exposed downstream.
type MarketDataBuilder struct {
	logger *logrus.Logger
}

func NewMarketDataBuilder(logger *logrus.Logger) *MarketDataBuilder {
	if logger == nil {
		logger = logrus.New()
	}
	return &MarketDataBuilder{logger: logger}
}

// Build converts a lookback-extended daily series into enriched market data
// points for every trading day at or after startDate. vix maps date keys to
// volatility-index levels; missing dates simply carry no signal.
func (b *MarketDataBuilder) Build(
	prices []models.PricePoint,
	vix map[string]float64,
	startDate time.Time,
	timeframe models.Timeframe,
) ([]models.MarketDataPoint, error) {
	if len(prices) == 0 {
		return nil, ErrNoPriceData
	}

	// The SMA source series depends on the configured indicator timeframe;
	// weekly RSI always comes from the weekly resample.
	source := prices
	switch timeframe {
	case models.TimeframeWeekly:
		source = timeseries.Resample(prices, timeseries.Weekly)
	case models.TimeframeMonthly:
		source = timeseries.Resample(prices, timeseries.Monthly)
	}

	sourceCloses := closes(source)
	smaBySource := make(map[int][]float64, len(smaWindows))
	for _, window := range smaWindows {
		smaBySource[window] = indicators.SMA(sourceCloses, window)
	}

	weekly := timeseries.Resample(prices, timeseries.Weekly)
	weeklyRSI := indicators.RSI(closes(weekly), indicators.DefaultRSIPeriod)

	// Step-join coarser indicator values back onto daily dates: each day
	// takes the value of the latest source point at or before it.
	out := make([]models.MarketDataPoint, 0, len(prices))
	srcIdx, weekIdx := 0, 0
	for _, p := range prices {
		for srcIdx+1 < len(source) && !source[srcIdx+1].Date.After(p.Date) {
			srcIdx++
		}
		for weekIdx+1 < len(weekly) && !weekly[weekIdx+1].Date.After(p.Date) {
			weekIdx++
		}

		point := models.MarketDataPoint{
			Date:      p.Date,
			Price:     p.Price,
			SMA20:     smaBySource[20][srcIdx],
			SMA50:     smaBySource[50][srcIdx],
			SMA100:    smaBySource[100][srcIdx],
			SMA200:    smaBySource[200][srcIdx],
			RSIWeekly: weeklyRSI[weekIdx],
		}
		if level, ok := vix[point.DateKey()]; ok {
			point.VIX = level
		}
		out = append(out, point)
	}

	// Lookback-only days fed the warm-up above but are not exposed.
	trimmed := out[:0]
	for _, p := range out {
		if !p.Date.Before(startDate) {
			trimmed = append(trimmed, p)
		}
	}
	if len(trimmed) == 0 {
		return nil, ErrNoPriceData
	}

	b.logger.WithFields(logrus.Fields{
		"lookback_points": len(prices),
		"window_points":   len(trimmed),
		"timeframe":       timeframe,
	}).Debug("Market data enriched")

	return trimmed, nil
}

// LookbackStart returns the fetch-from date needed so the longest moving
// average has at least 200 periods of history before startDate at the given
// timeframe. maxYears caps the extension for assets with short history.
func LookbackStart(startDate time.Time, timeframe models.Timeframe, maxYears int) time.Time {
	var lookback time.Time
	switch timeframe {
	case models.TimeframeMonthly:
		lookback = startDate.AddDate(0, -200, 0)
	case models.TimeframeWeekly:
		lookback = startDate.AddDate(0, 0, -200*7)
	default:
		// 200 trading days is roughly 290 calendar days.
		lookback = startDate.AddDate(0, 0, -300)
	}

	if maxYears > 0 {
		floor := startDate.AddDate(-maxYears, 0, 0)
		if lookback.Before(floor) {
			return floor
		}
	}
	return lookback
}

func closes(points []models.PricePoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price.InexactFloat64()
	}
	return out
}
