// Package charts renders backtest results as PNG line charts for the export
// endpoints. Rendering consumes the engine's outputs only; nothing here
// feeds back into a simulation.
package charts

import (
	"errors"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/quantfeed/dcalab-go/internal/models"
)

// maxAxisLabels keeps the x-axis readable on long backtests.
const maxAxisLabels = 12

// RenderBacktest draws the portfolio value against the cumulative invested
// amount over the life of the ledger.
func RenderBacktest(transactions []models.DCATransaction, title string) ([]byte, error) {
	if len(transactions) == 0 {
		return nil, errors.New("no transactions to chart")
	}

	labels := make([]string, len(transactions))
	values := make([]float64, len(transactions))
	invested := make([]float64, len(transactions))
	cumulative := 0.0
	for i, tx := range transactions {
		labels[i] = tx.Date.Format(models.DateLayout)
		values[i] = tx.PortfolioValue.InexactFloat64()
		cumulative += tx.InvestedAmount.InexactFloat64()
		invested[i] = cumulative
	}

	painter, err := charts.LineRender([][]float64{values, invested},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: splitNumber(len(labels)),
		}),
		charts.LegendOptionFunc(charts.LegendOption{Data: []string{"Portfolio value", "Invested"}}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// RenderDrawdown draws the drawdown percentage series.
func RenderDrawdown(series []models.DrawdownPoint, title string) ([]byte, error) {
	if len(series) == 0 {
		return nil, errors.New("no drawdown series to chart")
	}

	labels := make([]string, len(series))
	values := make([]float64, len(series))
	for i, p := range series {
		labels[i] = p.Date.Format(models.DateLayout)
		values[i] = -p.Drawdown
	}

	painter, err := charts.LineRender([][]float64{values},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: splitNumber(len(labels)),
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

func splitNumber(n int) int {
	if n <= maxAxisLabels {
		return 1
	}
	return n / maxAxisLabels
}
