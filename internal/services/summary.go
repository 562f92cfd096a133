package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfeed/dcalab-go/internal/analytics"
	"github.com/quantfeed/dcalab-go/internal/models"
)

const hoursPerYear = 24 * 365.25

// BuildSummary aggregates a finished ledger into the extended summary and
// the drawdown series used for charting. riskFreeRate is in percent; pass
// analytics.DefaultRiskFreeRate when no override is configured.
func BuildSummary(transactions []models.DCATransaction, riskFreeRate float64) (*models.ExtendedSummary, []models.DrawdownPoint, error) {
	if len(transactions) == 0 {
		return nil, nil, ErrNoTransactions
	}

	totalInvested := decimal.Zero
	for _, tx := range transactions {
		totalInvested = totalInvested.Add(tx.InvestedAmount)
	}

	last := transactions[len(transactions)-1]
	currentValue := last.PortfolioValue
	shares := last.AccumulatedShares

	profitPercent := 0.0
	if totalInvested.IsPositive() {
		profitPercent = currentValue.Sub(totalInvested).
			Div(totalInvested).
			Mul(decimal.NewFromInt(100)).
			InexactFloat64()
	}

	years := last.Date.Sub(transactions[0].Date).Hours() / hoursPerYear

	avgBuyPrice := decimal.Zero
	if shares.IsPositive() {
		avgBuyPrice = totalInvested.Div(shares)
	}

	// Risk metrics run over the portfolio value series, not raw prices.
	dates := make([]time.Time, len(transactions))
	values := make([]float64, len(transactions))
	for i, tx := range transactions {
		dates[i] = tx.Date
		values[i] = tx.PortfolioValue.InexactFloat64()
	}
	drawdown := analytics.MaxDrawdown(dates, values)
	returns := analytics.DailyReturns(values)
	best, worst := analytics.BestWorstMonth(transactions)

	summary := &models.ExtendedSummary{
		TotalInvested:         totalInvested,
		CurrentValue:          currentValue,
		ProfitPercent:         profitPercent,
		CAGR:                  analytics.CAGR(totalInvested.InexactFloat64(), currentValue.InexactFloat64(), years),
		Shares:                shares,
		XIRR:                  analytics.XIRR(cashFlows(transactions, currentValue), 0),
		SharpeRatio:           analytics.SharpeRatio(returns, riskFreeRate),
		MaxDrawdown:           drawdown.MaxDrawdown,
		MaxDrawdownPeakDate:   drawdown.PeakDate,
		MaxDrawdownTroughDate: drawdown.TroughDate,
		Volatility:            analytics.Volatility(returns),
		AvgBuyPrice:           avgBuyPrice,
		BestMonth:             best,
		WorstMonth:            worst,
	}
	return summary, drawdown.Series, nil
}

// cashFlows turns the ledger into XIRR inputs: every purchase is an outflow
// and the terminal portfolio value a single inflow on the last date.
func cashFlows(transactions []models.DCATransaction, terminal decimal.Decimal) []analytics.CashFlow {
	flows := make([]analytics.CashFlow, 0, len(transactions)+1)
	for _, tx := range transactions {
		if tx.InvestedAmount.IsPositive() {
			flows = append(flows, analytics.CashFlow{
				Date:   tx.Date,
				Amount: -tx.InvestedAmount.InexactFloat64(),
			})
		}
	}
	flows = append(flows, analytics.CashFlow{
		Date:   transactions[len(transactions)-1].Date,
		Amount: terminal.InexactFloat64(),
	})
	return flows
}
