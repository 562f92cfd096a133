package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency controls how often the recurring investment is scheduled.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// Timeframe selects the granularity the moving averages are computed on.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
)

// DateLayout is the wire format for calendar days throughout the API.
const DateLayout = "2006-01-02"

// PricePoint is a single daily close. Series are always ascending by date.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// MarketDataPoint is a PricePoint enriched with the indicator values the
// simulation engine evaluates its rules against. Indicator fields are
// computed over the full lookback window, so they are populated for every
// point inside the user-requested range.
type MarketDataPoint struct {
	Date      time.Time       `json:"date"`
	Price     decimal.Decimal `json:"price"`
	SMA20     float64         `json:"sma20"`
	SMA50     float64         `json:"sma50"`
	SMA100    float64         `json:"sma100"`
	SMA200    float64         `json:"sma200"`
	RSIWeekly float64         `json:"rsi_weekly"`
	// VIX is the volatility index level for the day, 0 when no reading exists.
	VIX float64 `json:"vix,omitempty"`
}

// DateKey returns the map key used for per-date indicator lookups.
func (m MarketDataPoint) DateKey() string {
	return m.Date.Format(DateLayout)
}
