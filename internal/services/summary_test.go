package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/dcalab-go/internal/analytics"
	"github.com/quantfeed/dcalab-go/internal/models"
)

func TestBuildSummaryEmptyLedger(t *testing.T) {
	_, _, err := BuildSummary(nil, analytics.DefaultRiskFreeRate)
	assert.ErrorIs(t, err, ErrNoTransactions)
}

func TestBuildSummaryTotals(t *testing.T) {
	sim := NewSimulator(logrus.New())
	cfg := baseConfig(100)

	series := []models.MarketDataPoint{
		mdPoint(t, "2023-01-02", 10),
		mdPoint(t, "2023-07-03", 20),
		mdPoint(t, "2024-01-02", 25),
	}
	transactions, err := sim.Run(series, cfg)
	require.NoError(t, err)

	summary, drawdowns, err := BuildSummary(transactions, analytics.DefaultRiskFreeRate)
	require.NoError(t, err)

	assert.True(t, summary.TotalInvested.Equal(decimal.NewFromInt(300)))
	// 10 + 5 + 4 shares at the final close of 25.
	assert.True(t, summary.Shares.Equal(decimal.NewFromInt(19)))
	assert.True(t, summary.CurrentValue.Equal(decimal.NewFromInt(475)))
	assert.InDelta(t, (475.0-300.0)/300*100, summary.ProfitPercent, 1e-9)
	assert.True(t, summary.AvgBuyPrice.Equal(decimal.NewFromInt(300).Div(decimal.NewFromInt(19))))

	assert.Greater(t, summary.CAGR, 0.0)
	assert.Greater(t, summary.XIRR, 0.0)
	assert.Len(t, drawdowns, len(transactions))
}

func TestBuildSummaryMonotonicGrowthHasNoDrawdown(t *testing.T) {
	sim := NewSimulator(logrus.New())
	cfg := baseConfig(100)

	series := tradingDays(t, "2024-01-01", 5, 0)
	for i := range series {
		series[i].Price = decimal.NewFromInt(int64(10 + i))
	}
	transactions, err := sim.Run(series, cfg)
	require.NoError(t, err)

	summary, _, err := BuildSummary(transactions, analytics.DefaultRiskFreeRate)
	require.NoError(t, err)
	assert.Zero(t, summary.MaxDrawdown)
}

func TestBuildSummaryAllSkips(t *testing.T) {
	sim := NewSimulator(logrus.New())
	cfg := baseConfig(100)
	cfg.RSI = true

	series := tradingDays(t, "2024-01-01", 3, 50)
	for i := range series {
		series[i].RSIWeekly = 90
	}
	transactions, err := sim.Run(series, cfg)
	require.NoError(t, err)

	// Every date skipped: no invested money, no shares, guarded zeros all
	// the way through instead of NaN.
	summary, _, err := BuildSummary(transactions, analytics.DefaultRiskFreeRate)
	require.NoError(t, err)
	assert.True(t, summary.TotalInvested.IsZero())
	assert.True(t, summary.CurrentValue.IsZero())
	assert.Zero(t, summary.ProfitPercent)
	assert.Zero(t, summary.CAGR)
	assert.True(t, summary.AvgBuyPrice.IsZero())
}

func TestCashFlowsSkipsZeroInvestments(t *testing.T) {
	transactions := []models.DCATransaction{
		{Date: day(t, "2024-01-01"), InvestedAmount: decimal.NewFromInt(100)},
		{Date: day(t, "2024-02-01"), InvestedAmount: decimal.Zero},
		{Date: day(t, "2024-03-01"), InvestedAmount: decimal.NewFromInt(100)},
	}

	flows := cashFlows(transactions, decimal.NewFromInt(250))
	require.Len(t, flows, 3)
	assert.Equal(t, -100.0, flows[0].Amount)
	assert.Equal(t, -100.0, flows[1].Amount)
	assert.Equal(t, 250.0, flows[2].Amount)
	assert.Equal(t, day(t, "2024-03-01"), flows[2].Date)
}
