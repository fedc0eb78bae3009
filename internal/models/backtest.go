package models

import "time"

// Strategy is a proposed posting strategy for a video.
type Strategy struct {
	Cover       string `json:"cover"`
	Title       string `json:"title" validate:"required"`
	Hashtags    string `json:"hashtags"`
	PostingTime string `json:"postingTime,omitempty"`
}

// VideoFeatures are the descriptive features extracted from the uploaded video.
// Only Category takes part in matching; the rest is carried for reports.
type VideoFeatures struct {
	Category    string   `json:"category" validate:"required"`
	Emotion     string   `json:"emotion,omitempty"`
	VisualStyle string   `json:"visualStyle,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Audience    string   `json:"audience,omitempty"`
	HookType    string   `json:"hookType,omitempty"`
}

// BacktestRequest asks for a 24h performance prediction of a strategy.
type BacktestRequest struct {
	Strategy Strategy      `json:"strategy"`
	Features VideoFeatures `json:"features"`
	Platform string        `json:"platform" validate:"required,platform"`
	// Save persists the result as a report when true.
	Save bool `json:"save,omitempty"`
}

// Query builds the similarity query for the request.
func (r *BacktestRequest) Query() QueryDescriptor {
	return QueryDescriptor{
		CoverDescription: r.Strategy.Cover,
		Title:            r.Strategy.Title,
		Hashtags:         r.Strategy.Hashtags,
		Category:         r.Features.Category,
		Platform:         r.Platform,
	}
}

// MatchedVideo is a scored match enriched with its own 24h engagement.
type MatchedVideo struct {
	VideoID    string  `json:"videoId"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
	CTR        string  `json:"ctr"`
	Views24h   string  `json:"views24h"`
}

// BacktestResponse is the result of a backtest.
type BacktestResponse struct {
	Predictions   *AggregatedMetrics `json:"predictions"`
	MatchedVideos []MatchedVideo     `json:"matchedVideos"`
	ReportID      string             `json:"reportId,omitempty"`
	// CorpusVersion identifies the corpus snapshot the prediction was computed on.
	CorpusVersion uint64 `json:"corpusVersion"`
	QueryTime     int64  `json:"query_time_ms"`
}

// Report is a saved backtest result.
type Report struct {
	ID        string            `json:"id" db:"id"`
	Platform  string            `json:"platform" db:"platform"`
	Strategy  Strategy          `json:"strategy" db:"strategy"`
	Features  VideoFeatures     `json:"features" db:"features"`
	Result    *BacktestResponse `json:"result" db:"result"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}
