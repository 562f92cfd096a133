// Package timeseries converts daily price series into coarser granularities
// using period-close semantics: each weekly or monthly bucket keeps the last
// daily observation of that period. No interpolation of missing days occurs.
package timeseries

import (
	"time"

	"github.com/quantfeed/dcalab-go/internal/models"
)

// Granularity identifies the resampling bucket size.
type Granularity string

const (
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Resample converts an ascending daily series into one point per calendar
// week (Monday-anchored) or per calendar month, retaining the last daily
// price observed in each period. An empty input yields an empty output.
func Resample(series []models.PricePoint, granularity Granularity) []models.PricePoint {
	if len(series) == 0 {
		return nil
	}

	out := make([]models.PricePoint, 0, len(series))
	currentKey := ""
	for _, p := range series {
		key := periodKey(p.Date, granularity)
		if key != currentKey {
			out = append(out, p)
			currentKey = key
		} else {
			// Same period: keep the latest observation.
			out[len(out)-1] = p
		}
	}
	return out
}

// periodKey buckets a date into its Monday-anchored week or calendar month.
func periodKey(date time.Time, granularity Granularity) string {
	if granularity == Monthly {
		return date.Format("2006-01")
	}
	return weekStart(date).Format(models.DateLayout)
}

// weekStart returns the Monday of the week containing date.
func weekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	return date.AddDate(0, 0, -offset)
}
