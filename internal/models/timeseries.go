package models

// Metric is an engagement metric family sampled over time.
type Metric string

const (
	MetricViews Metric = "views"
	MetricCTR   Metric = "ctr"
	MetricLikes Metric = "likes"
)

// Offset is a sampling point measured from the posting time.
type Offset string

const (
	Offset1h  Offset = "1h"
	Offset3h  Offset = "3h"
	Offset6h  Offset = "6h"
	Offset12h Offset = "12h"
	Offset24h Offset = "24h"
)

// Offsets lists the sampling points in chronological order.
var Offsets = []Offset{Offset1h, Offset3h, Offset6h, Offset12h, Offset24h}

// Metrics lists the metric families in output order.
var Metrics = []Metric{MetricViews, MetricCTR, MetricLikes}

// TimeSeriesRecord holds the engagement samples of one historical video.
// CTR values are fractions in [0, 1], not percentages.
type TimeSeriesRecord struct {
	VideoID string `json:"videoId" db:"video_id"`

	Views1h  float64 `json:"views_1h" db:"views_1h"`
	Views3h  float64 `json:"views_3h" db:"views_3h"`
	Views6h  float64 `json:"views_6h" db:"views_6h"`
	Views12h float64 `json:"views_12h" db:"views_12h"`
	Views24h float64 `json:"views_24h" db:"views_24h"`

	CTR1h  float64 `json:"ctr_1h" db:"ctr_1h"`
	CTR3h  float64 `json:"ctr_3h" db:"ctr_3h"`
	CTR6h  float64 `json:"ctr_6h" db:"ctr_6h"`
	CTR12h float64 `json:"ctr_12h" db:"ctr_12h"`
	CTR24h float64 `json:"ctr_24h" db:"ctr_24h"`

	Likes1h  float64 `json:"likes_1h" db:"likes_1h"`
	Likes3h  float64 `json:"likes_3h" db:"likes_3h"`
	Likes6h  float64 `json:"likes_6h" db:"likes_6h"`
	Likes12h float64 `json:"likes_12h" db:"likes_12h"`
	Likes24h float64 `json:"likes_24h" db:"likes_24h"`
}

// Value returns the sample for metric at offset, or 0 for an unknown pair.
func (r *TimeSeriesRecord) Value(metric Metric, offset Offset) float64 {
	if p := r.field(metric, offset); p != nil {
		return *p
	}
	return 0
}

// SetValue sets the sample for metric at offset. Unknown pairs are ignored.
func (r *TimeSeriesRecord) SetValue(metric Metric, offset Offset, v float64) {
	if p := r.field(metric, offset); p != nil {
		*p = v
	}
}

func (r *TimeSeriesRecord) field(metric Metric, offset Offset) *float64 {
	switch metric {
	case MetricViews:
		switch offset {
		case Offset1h:
			return &r.Views1h
		case Offset3h:
			return &r.Views3h
		case Offset6h:
			return &r.Views6h
		case Offset12h:
			return &r.Views12h
		case Offset24h:
			return &r.Views24h
		}
	case MetricCTR:
		switch offset {
		case Offset1h:
			return &r.CTR1h
		case Offset3h:
			return &r.CTR3h
		case Offset6h:
			return &r.CTR6h
		case Offset12h:
			return &r.CTR12h
		case Offset24h:
			return &r.CTR24h
		}
	case MetricLikes:
		switch offset {
		case Offset1h:
			return &r.Likes1h
		case Offset3h:
			return &r.Likes3h
		case Offset6h:
			return &r.Likes6h
		case Offset12h:
			return &r.Likes12h
		case Offset24h:
			return &r.Likes24h
		}
	}
	return nil
}

// ColumnName returns the dataset column for metric at offset, e.g. "views_24h".
func ColumnName(metric Metric, offset Offset) string {
	return string(metric) + "_" + string(offset)
}

// Point is one sample of an aggregated curve.
type Point struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// HeadlineMetrics is the human-formatted 24h summary.
type HeadlineMetrics struct {
	Views24h string `json:"views24h"`
	CTR24h   string `json:"ctr24h"`
	Likes24h string `json:"likes24h"`
}

// AggregatedMetrics holds the averaged curves of the matched videos.
// Each curve has exactly one point per entry of Offsets, in order.
type AggregatedMetrics struct {
	Views   []Point         `json:"views"`
	CTR     []Point         `json:"ctr"`
	Likes   []Point         `json:"likes"`
	Metrics HeadlineMetrics `json:"metrics"`
}
