package backtest

import (
	"github.com/hyperjump/chimera/internal/dataset"
	"github.com/hyperjump/chimera/internal/models"
	"github.com/hyperjump/chimera/internal/timeseries"
)

// Enrich attaches each match's own 24h CTR and views, looked up by video ID.
// Matches without a time-series record report "0.00%" and "0".
func Enrich(matches []models.ScoredMatch, ds *dataset.Dataset) []models.MatchedVideo {
	out := make([]models.MatchedVideo, 0, len(matches))
	for _, m := range matches {
		var rec models.TimeSeriesRecord
		if ds != nil {
			rec, _ = ds.Record(m.VideoID)
		}
		out = append(out, models.MatchedVideo{
			VideoID:    m.VideoID,
			Title:      m.Title,
			Similarity: m.Similarity,
			CTR:        timeseries.FormatCTR(rec.CTR24h),
			Views24h:   timeseries.FormatCount(rec.Views24h),
		})
	}
	return out
}
