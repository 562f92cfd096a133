package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleConfig is an immutable configuration snapshot for one simulation run.
// Multipliers are only consulted when the matching flag is enabled and must
// be >= 1; a multiplier of 3 means "invest 3x the scheduled amount when the
// rule fires".
type RuleConfig struct {
	Frequency  Frequency       `json:"frequency"`
	BaseAmount decimal.Decimal `json:"base_amount"`

	Strict    bool `json:"strict"`
	SMA20     bool `json:"sma20"`
	SMA50     bool `json:"sma50"`
	SMA100    bool `json:"sma100"`
	SMA200    bool `json:"sma200"`
	RSI       bool `json:"rsi"`
	VIX       bool `json:"vix"`
	SellInMay bool `json:"sell_in_may"`

	SMA20Multiplier  float64 `json:"sma20_multiplier"`
	SMA50Multiplier  float64 `json:"sma50_multiplier"`
	SMA100Multiplier float64 `json:"sma100_multiplier"`
	SMA200Multiplier float64 `json:"sma200_multiplier"`
	VIXMultiplier    float64 `json:"vix_multiplier"`
	VIXThreshold     float64 `json:"vix_threshold"`

	IndicatorTimeframe Timeframe `json:"indicator_timeframe"`
}

// DCATransaction is one simulated or imported purchase event. A skipped
// date is still recorded, with zero invested amount and zero shares, so the
// ledger always carries exactly one entry per scheduled date.
type DCATransaction struct {
	Date              time.Time       `json:"date"`
	Price             decimal.Decimal `json:"price"`
	InvestedAmount    decimal.Decimal `json:"invested_amount"`
	SharesBought      decimal.Decimal `json:"shares_bought"`
	AccumulatedShares decimal.Decimal `json:"accumulated_shares"`
	PortfolioValue    decimal.Decimal `json:"portfolio_value"`
	// MultiplierApplied is 0 for a skip, 1 for a baseline buy and >1 when
	// one or more rules boosted the purchase.
	MultiplierApplied float64 `json:"multiplier_applied"`
	Reason            string  `json:"reason"`
}

// PortfolioEntry is one row of an externally supplied brokerage ledger,
// replayed verbatim in import mode.
type PortfolioEntry struct {
	Date           time.Time       `json:"date" db:"trade_date"`
	Quantity       decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price" db:"unit_price"`
	InvestedAmount decimal.Decimal `json:"invested_amount" db:"invested_amount"`
}

// MonthReturn is the percentage return of a single calendar month.
type MonthReturn struct {
	Date   string  `json:"date"` // YYYY-MM
	Return float64 `json:"return"`
}

// DrawdownPoint is one sample of the drawdown series, for charting.
type DrawdownPoint struct {
	Date     time.Time `json:"date"`
	Drawdown float64   `json:"drawdown"` // percent decline from running peak
}

// ExtendedSummary aggregates a finished ledger into the statistics shown to
// the user. It is derived once and never mutated.
type ExtendedSummary struct {
	TotalInvested         decimal.Decimal `json:"total_invested"`
	CurrentValue          decimal.Decimal `json:"current_value"`
	ProfitPercent         float64         `json:"profit_percent"`
	CAGR                  float64         `json:"cagr"`
	Shares                decimal.Decimal `json:"shares"`
	XIRR                  float64         `json:"xirr"`
	SharpeRatio           float64         `json:"sharpe_ratio"`
	MaxDrawdown           float64         `json:"max_drawdown"`
	MaxDrawdownPeakDate   time.Time       `json:"max_drawdown_peak_date"`
	MaxDrawdownTroughDate time.Time       `json:"max_drawdown_trough_date"`
	Volatility            float64         `json:"volatility"`
	AvgBuyPrice           decimal.Decimal `json:"avg_buy_price"`
	BestMonth             MonthReturn     `json:"best_month"`
	WorstMonth            MonthReturn     `json:"worst_month"`
}
