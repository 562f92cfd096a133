package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/quantfeed/dcalab-go/internal/models"
)

var (
	// ErrNoPriceData is returned when a simulation is requested over an
	// empty market series.
	ErrNoPriceData = errors.New("no price data found")
	// ErrNoTransactions is returned when a run produces an empty ledger.
	ErrNoTransactions = errors.New("no transactions generated")
)

const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// simulationState is the per-run mutable state threaded through the
// scheduled-date loop. Each run owns an independent copy, so concurrent
// simulations never share anything.
type simulationState struct {
	totalShares   decimal.Decimal
	totalInvested decimal.Decimal
	// budgetDebt is the over-spend still owed against future base
	// contributions; once it reaches one base amount, a scheduled
	// contribution is waived.
	budgetDebt decimal.Decimal
	// savedCash is money withheld while weekly RSI was overbought, deployed
	// in full on the first oversold date.
	savedCash decimal.Decimal
}

// Simulator runs rule-driven DCA simulations over enriched market series.
type Simulator struct {
	logger *logrus.Logger
}

// NewSimulator creates a simulator. A nil logger is replaced with a default.
func NewSimulator(logger *logrus.Logger) *Simulator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Simulator{logger: logger}
}

// Run simulates the configured recurring investment over the market series
// and returns the resulting transaction ledger, one entry per scheduled
// date in ascending order.
func (s *Simulator) Run(series []models.MarketDataPoint, cfg models.RuleConfig) ([]models.DCATransaction, error) {
	if len(series) == 0 {
		return nil, ErrNoPriceData
	}

	schedule := scheduleIndexes(series, cfg.Frequency)
	if len(schedule) == 0 {
		return nil, ErrNoTransactions
	}

	pre := precompute(series, schedule, cfg)
	state := simulationState{
		totalShares:   decimal.Zero,
		totalInvested: decimal.Zero,
		budgetDebt:    decimal.Zero,
		savedCash:     decimal.Zero,
	}

	transactions := make([]models.DCATransaction, 0, len(schedule))
	summerSaved := decimal.Zero

	for k, idx := range schedule {
		point := series[idx]
		tx := s.evaluateDate(point, cfg, pre, k, &state, &summerSaved)
		transactions = append(transactions, tx)
	}

	s.logger.WithFields(logrus.Fields{
		"scheduled_dates": len(schedule),
		"total_invested":  state.totalInvested.String(),
		"total_shares":    state.totalShares.String(),
	}).Info("Simulation completed")

	return transactions, nil
}

// evaluateDate applies the rule chain to a single scheduled date. The order
// is a deliberate priority chain (strict > sell-in-May > debt waiver > RSI
// skip > multiplicative rules); earlier terminal branches must return before
// multiplier stacking happens.
func (s *Simulator) evaluateDate(
	point models.MarketDataPoint,
	cfg models.RuleConfig,
	pre *precomputed,
	scheduleIdx int,
	state *simulationState,
	summerSaved *decimal.Decimal,
) models.DCATransaction {
	price := point.Price

	// Strict mode invests the base amount unconditionally.
	if cfg.Strict {
		return s.buy(state, point, cfg.BaseAmount, 1, "")
	}

	// Summer months are skipped entirely under Sell in May; the money is
	// redistributed across the following winter dates.
	if cfg.SellInMay && isSummerMonth(point.Date) {
		*summerSaved = summerSaved.Add(cfg.BaseAmount)
		reason := fmt.Sprintf("Sell in May: summer skip, %s saved so far", summerSaved.StringFixed(2))
		return s.skip(state, point, reason)
	}

	amount := cfg.BaseAmount
	var reasons []string

	// Debt balancing: once accumulated over-spend reaches one base amount,
	// this date's contribution is waived.
	if state.budgetDebt.GreaterThanOrEqual(cfg.BaseAmount) {
		state.budgetDebt = state.budgetDebt.Sub(cfg.BaseAmount)
		amount = decimal.Zero
		reasons = append(reasons, "budget debt: base contribution waived")
	}

	if cfg.SellInMay && !isSummerMonth(point.Date) && pre.sellInMayBonus.IsPositive() {
		amount = amount.Add(pre.sellInMayBonus)
		reasons = append(reasons, fmt.Sprintf("Sell in May bonus +%s", pre.sellInMayBonus.StringFixed(2)))
	}

	if !amount.IsPositive() {
		return s.skip(state, point, strings.Join(reasons, "; "))
	}

	// RSI rule: overbought withholds this date's money, oversold deploys
	// everything withheld so far in one shot.
	if cfg.RSI {
		if point.RSIWeekly > rsiOverbought {
			state.savedCash = state.savedCash.Add(amount)
			reason := fmt.Sprintf("RSI %.1f overbought: skipped, %s cash saved", point.RSIWeekly, state.savedCash.StringFixed(2))
			return s.skip(state, point, reason)
		}
		if point.RSIWeekly < rsiOversold && state.savedCash.IsPositive() {
			amount = amount.Add(state.savedCash)
			reasons = append(reasons, fmt.Sprintf("RSI %.1f oversold: deployed %s saved cash", point.RSIWeekly, state.savedCash.StringFixed(2)))
			state.savedCash = decimal.Zero
		}
	}

	// SMA rules stack additively: each fresh downward crossing contributes
	// its multiplier minus the baseline.
	multiplier := 1.0
	for _, rule := range pre.smaRules {
		if !rule.enabled {
			continue
		}
		if price.InexactFloat64() < rule.value(point) && pre.wasAboveSMA[rule.window][point.DateKey()] {
			multiplier += rule.multiplier - 1
			reasons = append(reasons, fmt.Sprintf("price crossed below SMA%d (x%.1f)", rule.window, rule.multiplier))
		}
	}

	if cfg.VIX && pre.maxVIXSincePrev[scheduleIdx] > cfg.VIXThreshold {
		multiplier += cfg.VIXMultiplier - 1
		reasons = append(reasons, fmt.Sprintf("VIX peaked at %.1f above %.1f (x%.1f)", pre.maxVIXSincePrev[scheduleIdx], cfg.VIXThreshold, cfg.VIXMultiplier))
	}

	final := amount
	if multiplier > 1 {
		final = amount.Mul(decimal.NewFromFloat(multiplier))
		// The boost is borrowed against future base contributions.
		state.budgetDebt = state.budgetDebt.Add(final.Sub(amount))
	}

	return s.buy(state, point, final, multiplier, strings.Join(reasons, "; "))
}

// buy appends a purchase, updating the running totals.
func (s *Simulator) buy(state *simulationState, point models.MarketDataPoint, amount decimal.Decimal, multiplier float64, reason string) models.DCATransaction {
	shares := amount.Div(point.Price)
	state.totalShares = state.totalShares.Add(shares)
	state.totalInvested = state.totalInvested.Add(amount)

	return models.DCATransaction{
		Date:              point.Date,
		Price:             point.Price,
		InvestedAmount:    amount,
		SharesBought:      shares,
		AccumulatedShares: state.totalShares,
		PortfolioValue:    state.totalShares.Mul(point.Price),
		MultiplierApplied: multiplier,
		Reason:            reason,
	}
}

// skip appends a zero-investment transaction so the ledger still carries
// one entry for the scheduled date.
func (s *Simulator) skip(state *simulationState, point models.MarketDataPoint, reason string) models.DCATransaction {
	return models.DCATransaction{
		Date:              point.Date,
		Price:             point.Price,
		InvestedAmount:    decimal.Zero,
		SharesBought:      decimal.Zero,
		AccumulatedShares: state.totalShares,
		PortfolioValue:    state.totalShares.Mul(point.Price),
		MultiplierApplied: 0,
		Reason:            reason,
	}
}

// Replay converts an externally supplied brokerage ledger into transactions,
// trusting every entry verbatim and only recomputing the running share count
// and the portfolio value against the nearest market price at or before each
// entry's date.
func (s *Simulator) Replay(entries []models.PortfolioEntry, series []models.MarketDataPoint) ([]models.DCATransaction, error) {
	if len(series) == 0 {
		return nil, ErrNoPriceData
	}
	if len(entries) == 0 {
		return nil, ErrNoTransactions
	}

	sorted := make([]models.PortfolioEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	transactions := make([]models.DCATransaction, 0, len(sorted))
	accumulated := decimal.Zero

	for _, entry := range sorted {
		price := nearestPrice(series, entry.Date)
		accumulated = accumulated.Add(entry.Quantity)
		transactions = append(transactions, models.DCATransaction{
			Date:              entry.Date,
			Price:             price,
			InvestedAmount:    entry.InvestedAmount,
			SharesBought:      entry.Quantity,
			AccumulatedShares: accumulated,
			PortfolioValue:    accumulated.Mul(price),
			MultiplierApplied: 1,
			Reason:            "Portfolio import",
		})
	}
	return transactions, nil
}

// nearestPrice returns the close at or before date, falling back to the
// first available close for entries predating the series.
func nearestPrice(series []models.MarketDataPoint, date time.Time) decimal.Decimal {
	i := sort.Search(len(series), func(i int) bool { return series[i].Date.After(date) })
	if i == 0 {
		return series[0].Price
	}
	return series[i-1].Price
}

// scheduleIndexes selects the series indexes matching the investment
// frequency: every trading day, every Monday, the first trading day of each
// month (day of month <= 3), or the first trading day of each quarter.
func scheduleIndexes(series []models.MarketDataPoint, freq models.Frequency) []int {
	var indexes []int
	seen := make(map[string]bool)

	for i, p := range series {
		switch freq {
		case models.FrequencyWeekly:
			if p.Date.Weekday() == time.Monday {
				indexes = append(indexes, i)
			}
		case models.FrequencyMonthly:
			key := p.Date.Format("2006-01")
			if p.Date.Day() <= 3 && !seen[key] {
				seen[key] = true
				indexes = append(indexes, i)
			}
		case models.FrequencyQuarterly:
			month := p.Date.Month()
			if month != time.January && month != time.April && month != time.July && month != time.October {
				continue
			}
			key := p.Date.Format("2006-01")
			if p.Date.Day() <= 3 && !seen[key] {
				seen[key] = true
				indexes = append(indexes, i)
			}
		default: // daily
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// smaRule binds one moving-average window to its enable flag, multiplier and
// field accessor.
type smaRule struct {
	window     int
	enabled    bool
	multiplier float64
	value      func(models.MarketDataPoint) float64
}

// precomputed holds the per-run lookup maps built in a single linear pass
// before the scheduled-date loop, so rule checks never rescan the series.
type precomputed struct {
	smaRules        []smaRule
	wasAboveSMA     map[int]map[string]bool
	maxVIXSincePrev []float64
	sellInMayBonus  decimal.Decimal
}

func precompute(series []models.MarketDataPoint, schedule []int, cfg models.RuleConfig) *precomputed {
	pre := &precomputed{
		smaRules: []smaRule{
			{window: 20, enabled: cfg.SMA20, multiplier: cfg.SMA20Multiplier, value: func(p models.MarketDataPoint) float64 { return p.SMA20 }},
			{window: 50, enabled: cfg.SMA50, multiplier: cfg.SMA50Multiplier, value: func(p models.MarketDataPoint) float64 { return p.SMA50 }},
			{window: 100, enabled: cfg.SMA100, multiplier: cfg.SMA100Multiplier, value: func(p models.MarketDataPoint) float64 { return p.SMA100 }},
			{window: 200, enabled: cfg.SMA200, multiplier: cfg.SMA200Multiplier, value: func(p models.MarketDataPoint) float64 { return p.SMA200 }},
		},
		wasAboveSMA: make(map[int]map[string]bool),
	}

	// "Was the price at or above the SMA on the previous trading day" per
	// window, keyed by date. Requiring this turns the buy trigger into a
	// fresh downward crossing instead of a continued stay-below.
	for _, rule := range pre.smaRules {
		m := make(map[string]bool, len(series))
		for i := 1; i < len(series); i++ {
			prev := series[i-1]
			m[series[i].DateKey()] = prev.Price.InexactFloat64() >= rule.value(prev)
		}
		pre.wasAboveSMA[rule.window] = m
	}

	// Maximum VIX observed since the previous scheduled date, inclusive of
	// the current one. A spike between two DCA dates is caught even when
	// VIX has receded by the next check.
	pre.maxVIXSincePrev = make([]float64, len(schedule))
	prevIdx := -1
	for k, idx := range schedule {
		maxVIX := 0.0
		for i := prevIdx + 1; i <= idx; i++ {
			if series[i].VIX > maxVIX {
				maxVIX = series[i].VIX
			}
		}
		pre.maxVIXSincePrev[k] = maxVIX
		prevIdx = idx
	}

	// Money skipped over the summer is spread evenly across the remaining
	// winter dates.
	if cfg.SellInMay {
		summer, winter := 0, 0
		for _, idx := range schedule {
			if isSummerMonth(series[idx].Date) {
				summer++
			} else {
				winter++
			}
		}
		if winter > 0 && summer > 0 {
			pre.sellInMayBonus = cfg.BaseAmount.
				Mul(decimal.NewFromInt(int64(summer))).
				Div(decimal.NewFromInt(int64(winter)))
		} else {
			pre.sellInMayBonus = decimal.Zero
		}
	} else {
		pre.sellInMayBonus = decimal.Zero
	}

	return pre
}

// isSummerMonth reports whether the date falls in the May-August window the
// Sell in May rule skips.
func isSummerMonth(date time.Time) bool {
	month := date.Month()
	return month >= time.May && month <= time.August
}
