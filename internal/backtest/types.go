package backtest

import (
	"time"

	"github.com/hyperjump/chimera/internal/models"
	"github.com/hyperjump/chimera/internal/similarity"
)

// SimilarResponse is the result of a bare similarity query.
type SimilarResponse struct {
	Matches       []models.ScoredMatch                  `json:"matches"`
	Breakdowns    map[string]*similarity.ScoreBreakdown `json:"breakdowns,omitempty"`
	CorpusVersion uint64                                `json:"corpusVersion"`
}

// SearchHit is a keyword search result joined with its video.
type SearchHit struct {
	Video models.HistoricalVideo `json:"video"`
	Score float64                `json:"score"`
}

// CorpusStats describes the loaded corpus snapshot.
type CorpusStats struct {
	models.DatasetStats
	Source        string    `json:"source"`
	CorpusVersion uint64    `json:"corpusVersion"`
	LoadedAt      time.Time `json:"loadedAt"`
}

// VideoDetail is a corpus video with its engagement samples.
type VideoDetail struct {
	Video      models.HistoricalVideo  `json:"video"`
	TimeSeries models.TimeSeriesRecord `json:"timeSeries"`
}
