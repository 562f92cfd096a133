package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/quantfeed/dcalab-go/internal/charts"
	"github.com/quantfeed/dcalab-go/internal/config"
	"github.com/quantfeed/dcalab-go/internal/database"
	"github.com/quantfeed/dcalab-go/internal/models"
	"github.com/quantfeed/dcalab-go/internal/services"
)

// BacktestRequest is the JSON body accepted by the backtest endpoints.
type BacktestRequest struct {
	Symbol     string  `json:"symbol" binding:"required"`
	StartDate  string  `json:"start_date" binding:"required"`
	EndDate    string  `json:"end_date"`
	Frequency  string  `json:"frequency"`
	BaseAmount float64 `json:"base_amount" binding:"required,gt=0"`

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

	IndicatorTimeframe string `json:"indicator_timeframe"`
}

// BacktestResponse carries one finished run.
type BacktestResponse struct {
	RunID        string                  `json:"run_id"`
	Symbol       string                  `json:"symbol"`
	Summary      *models.ExtendedSummary `json:"summary"`
	Transactions []models.DCATransaction `json:"transactions"`
	Drawdowns    []models.DrawdownPoint  `json:"drawdowns"`
	Overlays     *services.ChartOverlays `json:"overlays,omitempty"`
	CompletedAt  time.Time               `json:"completed_at"`
}

// BacktestHandler wires the engine and its collaborators to the HTTP API.
type BacktestHandler struct {
	market    *services.MarketDataService
	builder   *services.MarketDataBuilder
	simulator *services.Simulator
	overlays  *services.OverlayService
	portfolio *database.PortfolioRepository
	cfg       *config.Config
	logger    *logrus.Logger
}

func NewBacktestHandler(
	market *services.MarketDataService,
	builder *services.MarketDataBuilder,
	simulator *services.Simulator,
	overlays *services.OverlayService,
	portfolio *database.PortfolioRepository,
	cfg *config.Config,
	logger *logrus.Logger,
) *BacktestHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &BacktestHandler{
		market:    market,
		builder:   builder,
		simulator: simulator,
		overlays:  overlays,
		portfolio: portfolio,
		cfg:       cfg,
		logger:    logger,
	}
}

// RunBacktest handles POST /api/v1/backtest.
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.runSimulation(c, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RenderBacktestChart handles POST /api/v1/backtest/chart. The optional
// ?type=drawdown query switches from the equity chart to the drawdown chart.
func (h *BacktestHandler) RenderBacktestChart(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.runSimulation(c, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var img []byte
	if c.Query("type") == "drawdown" {
		img, err = charts.RenderDrawdown(resp.Drawdowns, req.Symbol+" drawdown")
	} else {
		img, err = charts.RenderBacktest(resp.Transactions, req.Symbol+" DCA backtest")
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

// RunPortfolioBacktest handles POST /api/v1/portfolio/:id/backtest: the
// stored brokerage ledger is replayed against market prices instead of
// simulating a schedule.
func (h *BacktestHandler) RunPortfolioBacktest(c *gin.Context) {
	portfolioID := c.Param("id")

	var req struct {
		Symbol string `json:"symbol" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := h.portfolio.GetEntries(c.Request.Context(), portfolioID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(entries) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "portfolio has no transactions"})
		return
	}

	from := entries[0].Date
	to := time.Now()
	prices, err := h.market.DailyCloses(c.Request.Context(), req.Symbol, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}

	series, err := h.builder.Build(prices, nil, from, models.TimeframeDaily)
	if err != nil {
		h.respondError(c, err)
		return
	}

	transactions, err := h.simulator.Replay(entries, series)
	if err != nil {
		h.respondError(c, err)
		return
	}

	summary, drawdowns, err := services.BuildSummary(transactions, h.cfg.Backtest.RiskFreeRate)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, BacktestResponse{
		RunID:        uuid.New().String(),
		Symbol:       req.Symbol,
		Summary:      summary,
		Transactions: transactions,
		Drawdowns:    drawdowns,
		CompletedAt:  time.Now(),
	})
}

// ImportPortfolio handles POST /api/v1/portfolio/:id, storing a brokerage
// ledger for later import-mode backtests.
func (h *BacktestHandler) ImportPortfolio(c *gin.Context) {
	portfolioID := c.Param("id")

	var req struct {
		Entries []struct {
			Date           string  `json:"date" binding:"required"`
			Quantity       float64 `json:"quantity" binding:"required,gt=0"`
			UnitPrice      float64 `json:"unit_price" binding:"required,gt=0"`
			InvestedAmount float64 `json:"invested_amount" binding:"required,gt=0"`
		} `json:"entries" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := make([]models.PortfolioEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		date, err := time.Parse(models.DateLayout, e.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date: " + e.Date})
			return
		}
		entries = append(entries, models.PortfolioEntry{
			Date:           date,
			Quantity:       decimal.NewFromFloat(e.Quantity),
			UnitPrice:      decimal.NewFromFloat(e.UnitPrice),
			InvestedAmount: decimal.NewFromFloat(e.InvestedAmount),
		})
	}

	if err := h.portfolio.SaveEntries(c.Request.Context(), portfolioID, entries); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"portfolio_id": portfolioID, "entries": len(entries)})
}

// DeletePortfolio handles DELETE /api/v1/portfolio/:id, removing the stored
// ledger so the id can be re-imported from scratch.
func (h *BacktestHandler) DeletePortfolio(c *gin.Context) {
	portfolioID := c.Param("id")
	if err := h.portfolio.DeleteEntries(c.Request.Context(), portfolioID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolio_id": portfolioID, "deleted": true})
}

// runSimulation resolves market data, runs the engine and aggregates the
// summary for one request.
func (h *BacktestHandler) runSimulation(c *gin.Context, req *BacktestRequest) (*BacktestResponse, error) {
	cfg, startDate, endDate, err := h.ruleConfig(req)
	if err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	lookbackStart := services.LookbackStart(startDate, cfg.IndicatorTimeframe, h.cfg.Backtest.MaxLookbackYears)

	prices, err := h.market.DailyCloses(ctx, req.Symbol, lookbackStart, endDate)
	if err != nil {
		return nil, err
	}

	var vix map[string]float64
	if cfg.VIX {
		vix, err = h.market.VIXSeries(ctx, startDate, endDate)
		if err != nil {
			return nil, err
		}
	}

	series, err := h.builder.Build(prices, vix, startDate, cfg.IndicatorTimeframe)
	if err != nil {
		return nil, err
	}

	// Trim to the requested end date; the enrichment only bounds the start.
	for len(series) > 0 && series[len(series)-1].Date.After(endDate) {
		series = series[:len(series)-1]
	}

	transactions, err := h.simulator.Run(series, cfg)
	if err != nil {
		return nil, err
	}

	summary, drawdowns, err := services.BuildSummary(transactions, h.cfg.Backtest.RiskFreeRate)
	if err != nil {
		return nil, err
	}

	return &BacktestResponse{
		RunID:        uuid.New().String(),
		Symbol:       req.Symbol,
		Summary:      summary,
		Transactions: transactions,
		Drawdowns:    drawdowns,
		Overlays:     h.overlays.Compute(series),
		CompletedAt:  time.Now(),
	}, nil
}

var errBadRequest = errors.New("bad request")

// ruleConfig validates the request and translates it into an engine
// configuration.
func (h *BacktestHandler) ruleConfig(req *BacktestRequest) (models.RuleConfig, time.Time, time.Time, error) {
	var zero models.RuleConfig

	startDate, err := time.Parse(models.DateLayout, req.StartDate)
	if err != nil {
		return zero, time.Time{}, time.Time{}, errors.Join(errBadRequest, errors.New("invalid start_date"))
	}
	endDate := time.Now()
	if req.EndDate != "" {
		endDate, err = time.Parse(models.DateLayout, req.EndDate)
		if err != nil {
			return zero, time.Time{}, time.Time{}, errors.Join(errBadRequest, errors.New("invalid end_date"))
		}
	}
	if !startDate.Before(endDate) {
		return zero, time.Time{}, time.Time{}, errors.Join(errBadRequest, errors.New("start_date must be before end_date"))
	}

	frequency := models.Frequency(req.Frequency)
	switch frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyQuarterly:
	case "":
		frequency = models.FrequencyMonthly
	default:
		return zero, time.Time{}, time.Time{}, errors.Join(errBadRequest, errors.New("invalid frequency"))
	}

	timeframe := models.Timeframe(req.IndicatorTimeframe)
	switch timeframe {
	case models.TimeframeDaily, models.TimeframeWeekly, models.TimeframeMonthly:
	case "":
		timeframe = models.TimeframeDaily
	default:
		return zero, time.Time{}, time.Time{}, errors.Join(errBadRequest, errors.New("invalid indicator_timeframe"))
	}

	cfg := models.RuleConfig{
		Frequency:          frequency,
		BaseAmount:         decimal.NewFromFloat(req.BaseAmount),
		Strict:             req.Strict,
		SMA20:              req.SMA20,
		SMA50:              req.SMA50,
		SMA100:             req.SMA100,
		SMA200:             req.SMA200,
		RSI:                req.RSI,
		VIX:                req.VIX,
		SellInMay:          req.SellInMay,
		SMA20Multiplier:    defaultMultiplier(req.SMA20Multiplier),
		SMA50Multiplier:    defaultMultiplier(req.SMA50Multiplier),
		SMA100Multiplier:   defaultMultiplier(req.SMA100Multiplier),
		SMA200Multiplier:   defaultMultiplier(req.SMA200Multiplier),
		VIXMultiplier:      defaultMultiplier(req.VIXMultiplier),
		VIXThreshold:       req.VIXThreshold,
		IndicatorTimeframe: timeframe,
	}
	return cfg, startDate, endDate, nil
}

// defaultMultiplier clamps rule multipliers to the >= 1 contract.
func defaultMultiplier(m float64) float64 {
	if m < 1 {
		return 1
	}
	return m
}

func (h *BacktestHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoPriceData), errors.Is(err, services.ErrNoTransactions):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("Backtest failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
