package analytics

import (
	"math"
	"time"
)

// CashFlow is a dated amount: negative for money invested, positive for the
// terminal portfolio value.
type CashFlow struct {
	Date   time.Time
	Amount float64
}

const (
	xirrMaxIterations = 100
	xirrTolerance     = 1e-7
	xirrDerivativeMin = 1e-10
	xirrRateFloor     = -0.99
	xirrRateCeil      = 10.0
	daysPerYear       = 365.25
	xirrDefaultGuess  = 0.10
)

// XIRR solves the extended internal rate of return of irregularly dated cash
// flows with Newton-Raphson, returning a percentage. Year fractions are
// Actual/365.25 from the earliest flow. Non-convergence within the iteration
// budget returns the last estimate rather than an error; fewer than two
// flows return 0.
func XIRR(flows []CashFlow, guess float64) float64 {
	if len(flows) < 2 {
		return 0
	}
	if guess == 0 {
		guess = xirrDefaultGuess
	}

	t0 := flows[0].Date
	for _, f := range flows {
		if f.Date.Before(t0) {
			t0 = f.Date
		}
	}

	years := make([]float64, len(flows))
	for i, f := range flows {
		years[i] = f.Date.Sub(t0).Hours() / 24 / daysPerYear
	}

	rate := guess
	for i := 0; i < xirrMaxIterations; i++ {
		var value, derivative float64
		for j, f := range flows {
			denom := math.Pow(1+rate, years[j])
			value += f.Amount / denom
			derivative -= years[j] * f.Amount / (denom * (1 + rate))
		}

		if math.Abs(derivative) < xirrDerivativeMin {
			break
		}

		next := rate - value/derivative
		next = math.Max(xirrRateFloor, math.Min(xirrRateCeil, next))
		if math.Abs(next-rate) < xirrTolerance {
			rate = next
			break
		}
		rate = next
	}
	return rate * 100
}
