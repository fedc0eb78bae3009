// Package timeseries averages the engagement curves of matched videos into a prediction.
package timeseries

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hyperjump/chimera/internal/models"
	"github.com/hyperjump/chimera/pkg/utils"
)

// CTRPrecision is the number of decimal places kept on averaged CTR fractions.
const CTRPrecision = 4

// ErrEmptyAggregation is returned when Aggregate receives no records.
var ErrEmptyAggregation = errors.New("cannot aggregate empty time-series data")

// Aggregate averages records per metric and offset.
// Views and likes are rounded to integers, CTR to CTRPrecision decimals.
// Headline metrics are derived from the 24h points.
func Aggregate(records []models.TimeSeriesRecord) (*models.AggregatedMetrics, error) {
	if len(records) == 0 {
		return nil, ErrEmptyAggregation
	}

	out := &models.AggregatedMetrics{}
	for _, metric := range models.Metrics {
		points := make([]models.Point, 0, len(models.Offsets))
		for _, offset := range models.Offsets {
			points = append(points, models.Point{
				Time:  string(offset),
				Value: round(metric, mean(records, metric, offset)),
			})
		}
		switch metric {
		case models.MetricViews:
			out.Views = points
		case models.MetricCTR:
			out.CTR = points
		case models.MetricLikes:
			out.Likes = points
		}
	}

	last := len(models.Offsets) - 1
	out.Metrics = models.HeadlineMetrics{
		Views24h: FormatCount(out.Views[last].Value),
		CTR24h:   FormatCTR(out.CTR[last].Value),
		Likes24h: FormatCount(out.Likes[last].Value),
	}
	return out, nil
}

func mean(records []models.TimeSeriesRecord, metric models.Metric, offset models.Offset) float64 {
	values := make([]float64, len(records))
	for i := range records {
		values[i] = records[i].Value(metric, offset)
	}
	return utils.Mean(values)
}

func round(metric models.Metric, v float64) float64 {
	if metric == models.MetricCTR {
		return utils.RoundTo(v, CTRPrecision)
	}
	return utils.RoundTo(v, 0)
}

// FormatCTR renders a CTR fraction as a percentage with two decimals, e.g. 0.069 -> "6.90%".
func FormatCTR(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}

// FormatCount renders a count as a plain integer string without separators.
func FormatCount(v float64) string {
	return strconv.FormatFloat(utils.RoundTo(v, 0), 'f', 0, 64)
}
