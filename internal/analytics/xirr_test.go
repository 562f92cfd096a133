package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func flow(day string, amount float64) CashFlow {
	date, _ := time.Parse("2006-01-02", day)
	return CashFlow{Date: date, Amount: amount}
}

func TestXIRRSingleYearGain(t *testing.T) {
	flows := []CashFlow{
		flow("2023-01-01", -1000),
		flow("2024-01-01", 1100),
	}
	// A -1000/+1100 round trip over one year is a ~10% rate. The year
	// fraction is 365/365.25 so the solved rate lands slightly above 10.
	rate := XIRR(flows, 0)
	assert.InDelta(t, 10.0, rate, 0.05)
}

func TestXIRRLoss(t *testing.T) {
	flows := []CashFlow{
		flow("2023-01-01", -1000),
		flow("2024-01-01", 900),
	}
	rate := XIRR(flows, 0)
	assert.InDelta(t, -10.0, rate, 0.05)
}

func TestXIRRMonthlyContributions(t *testing.T) {
	flows := []CashFlow{
		flow("2024-01-01", -100),
		flow("2024-02-01", -100),
		flow("2024-03-01", -100),
		flow("2024-04-01", 330),
	}
	rate := XIRR(flows, 0)
	// 300 invested, 330 back within three months: strongly positive.
	assert.Greater(t, rate, 50.0)
	assert.Less(t, rate, xirrRateCeil*100+1)
}

func TestXIRRFlat(t *testing.T) {
	flows := []CashFlow{
		flow("2023-01-01", -1000),
		flow("2024-01-01", 1000),
	}
	rate := XIRR(flows, 0)
	assert.InDelta(t, 0.0, rate, 0.05)
}

func TestXIRRTooFewFlows(t *testing.T) {
	assert.Zero(t, XIRR(nil, 0))
	assert.Zero(t, XIRR([]CashFlow{flow("2024-01-01", -1000)}, 0))
}

func TestXIRRRespectsGuess(t *testing.T) {
	flows := []CashFlow{
		flow("2023-01-01", -1000),
		flow("2024-01-01", 1100),
	}
	// Different starting guesses converge to the same root.
	fromDefault := XIRR(flows, 0)
	fromHigh := XIRR(flows, 1.5)
	assert.InDelta(t, fromDefault, fromHigh, 0.01)
}

func TestXIRRClampsToFloor(t *testing.T) {
	// Near-total loss pushes the rate against the lower clamp.
	flows := []CashFlow{
		flow("2023-01-01", -1000),
		flow("2024-01-01", 1),
	}
	rate := XIRR(flows, 0)
	assert.GreaterOrEqual(t, rate, xirrRateFloor*100-1e-6)
	assert.Less(t, rate, -90.0)
}
