// Package analytics holds the risk/return math computed over finished
// backtest ledgers: CAGR, volatility, Sharpe ratio, drawdowns and the XIRR
// solver. Everything operates on float64; callers convert decimal ledger
// values once at the boundary.
package analytics

import (
	"math"
	"time"

	"github.com/quantfeed/dcalab-go/internal/models"
)

// TradingDaysPerYear is the annualization factor for daily return series.
const TradingDaysPerYear = 252

// DefaultRiskFreeRate is the risk-free rate used by Sharpe, in percent.
const DefaultRiskFreeRate = 2.0

// CAGR returns the compound annual growth rate as a percentage. Degenerate
// inputs collapse to explicit values instead of NaN: zero/negative start or
// years yields 0, a wiped-out end value yields -100.
func CAGR(start, end, years float64) float64 {
	if start <= 0 || years <= 0 {
		return 0
	}
	if end <= 0 {
		return -100
	}
	return (math.Pow(end/start, 1/years) - 1) * 100
}

// DailyReturns derives simple percentage changes between consecutive values.
// Steps with a non-positive prior value are skipped to avoid dividing by
// zero on a skipped-purchase ledger prefix.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			continue
		}
		returns = append(returns, (values[i]-values[i-1])/values[i-1]*100)
	}
	return returns
}

// Volatility annualizes the sample standard deviation of daily returns,
// reported as a percentage. Fewer than two returns yields 0.
func Volatility(dailyReturns []float64) float64 {
	return stdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// SharpeRatio computes the annualized excess return per unit of annualized
// volatility. riskFreeRate is in percent. Returns 0 when volatility is zero
// or the series is too short to measure it.
func SharpeRatio(dailyReturns []float64, riskFreeRate float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	vol := Volatility(dailyReturns) / 100
	if vol == 0 {
		return 0
	}
	annualized := mean(dailyReturns) / 100 * TradingDaysPerYear
	return (annualized - riskFreeRate/100) / vol
}

// DrawdownResult captures the worst peak-to-trough decline of a value series
// together with the full drawdown series for charting.
type DrawdownResult struct {
	MaxDrawdown     float64 // percent, worst decline observed
	PeakDate        time.Time
	TroughDate      time.Time
	CurrentDrawdown float64 // percent, drawdown at the final point
	Series          []models.DrawdownPoint
}

// MaxDrawdown walks the series once, tracking the running peak and the
// deepest decline from it. The recorded peak date is the peak in force when
// the worst trough was hit, not the global maximum.
func MaxDrawdown(dates []time.Time, values []float64) DrawdownResult {
	res := DrawdownResult{}
	if len(values) == 0 || len(dates) != len(values) {
		return res
	}

	peak := values[0]
	peakDate := dates[0]
	res.Series = make([]models.DrawdownPoint, len(values))

	for i, v := range values {
		if v > peak {
			peak = v
			peakDate = dates[i]
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - v) / peak * 100
		}
		res.Series[i] = models.DrawdownPoint{Date: dates[i], Drawdown: dd}
		if dd > res.MaxDrawdown {
			res.MaxDrawdown = dd
			res.PeakDate = peakDate
			res.TroughDate = dates[i]
		}
	}
	res.CurrentDrawdown = res.Series[len(res.Series)-1].Drawdown
	return res
}

// BestWorstMonth partitions the ledger by calendar month and scores each
// month by the percentage change of its last transaction's portfolio value
// against the previous month's last transaction value. The first extreme
// found wins ties.
func BestWorstMonth(transactions []models.DCATransaction) (best, worst models.MonthReturn) {
	if len(transactions) < 2 {
		return best, worst
	}

	type monthClose struct {
		key   string
		value float64
	}
	var closes []monthClose
	for _, tx := range transactions {
		key := tx.Date.Format("2006-01")
		value := tx.PortfolioValue.InexactFloat64()
		if len(closes) > 0 && closes[len(closes)-1].key == key {
			closes[len(closes)-1].value = value
		} else {
			closes = append(closes, monthClose{key: key, value: value})
		}
	}

	for i := 1; i < len(closes); i++ {
		prev := closes[i-1].value
		if prev <= 0 {
			continue
		}
		ret := (closes[i].value - prev) / prev * 100
		if best.Date == "" || ret > best.Return {
			best = models.MonthReturn{Date: closes[i].key, Return: ret}
		}
		if worst.Date == "" || ret < worst.Return {
			worst = models.MonthReturn{Date: closes[i].key, Return: ret}
		}
	}
	return best, worst
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the Bessel-corrected sample standard deviation.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sumSquares float64
	for _, v := range values {
		diff := v - m
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}
