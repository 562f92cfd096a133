package services

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/sirupsen/logrus"

	"github.com/quantfeed/dcalab-go/internal/models"
)

// ChartOverlays carries auxiliary indicator series rendered alongside the
// backtest results. Series lengths can be shorter than the input because the
// indicators need a full window before emitting values.
type ChartOverlays struct {
	MACD           []float64 `json:"macd"`
	MACDSignal     []float64 `json:"macd_signal"`
	BollingerUpper []float64 `json:"bollinger_upper"`
	BollingerMid   []float64 `json:"bollinger_mid"`
	BollingerLower []float64 `json:"bollinger_lower"`
}

const (
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	bollingerPeriod  = 20
	bollingerStdDev  = 2.0
)

// OverlayService computes chart overlay indicators over the daily closes of
// a backtest window.
type OverlayService struct {
	logger *logrus.Logger
}

func NewOverlayService(logger *logrus.Logger) *OverlayService {
	if logger == nil {
		logger = logrus.New()
	}
	return &OverlayService{logger: logger}
}

// Compute derives MACD(12,26,9) and Bollinger(20,2) overlays. Series shorter
// than the slow MACD window yield empty overlays rather than an error, since
// overlays are decoration, not results.
func (o *OverlayService) Compute(points []models.MarketDataPoint) *ChartOverlays {
	overlays := &ChartOverlays{}
	if len(points) < macdSlowPeriod+macdSignalPeriod {
		return overlays
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price.InexactFloat64()
	}

	macdIndicator := trend.NewMacdWithPeriod[float64](macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	macdLine, macdSignal := macdIndicator.Compute(helper.SliceToChan(prices))
	overlays.MACD = helper.ChanToSlice(macdLine)
	overlays.MACDSignal = helper.ChanToSlice(macdSignal)

	if len(prices) >= bollingerPeriod {
		overlays.BollingerUpper, overlays.BollingerMid, overlays.BollingerLower = bollingerBands(prices)
	}

	o.logger.WithFields(logrus.Fields{
		"points":      len(points),
		"macd_points": len(overlays.MACD),
	}).Debug("Chart overlays computed")

	return overlays
}

// bollingerBands builds the three bands from the rolling SMA plus/minus two
// rolling standard deviations.
func bollingerBands(prices []float64) (upper, mid, lower []float64) {
	smaIndicator := trend.NewSmaWithPeriod[float64](bollingerPeriod)
	mid = helper.ChanToSlice(smaIndicator.Compute(helper.SliceToChan(prices)))

	upper = make([]float64, len(mid))
	lower = make([]float64, len(mid))
	for i := range mid {
		window := prices[i : i+bollingerPeriod]
		sd := windowStdDev(window, mid[i])
		upper[i] = mid[i] + bollingerStdDev*sd
		lower[i] = mid[i] - bollingerStdDev*sd
	}
	return upper, mid, lower
}

func windowStdDev(window []float64, mean float64) float64 {
	if len(window) == 0 {
		return 0
	}
	variance := 0.0
	for _, price := range window {
		diff := price - mean
		variance += diff * diff
	}
	variance /= float64(len(window))
	return math.Sqrt(variance)
}
