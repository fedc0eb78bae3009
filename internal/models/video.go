// Package models defines core data structures for historical videos, backtest queries, and results.
package models

import "time"

// HistoricalVideo is one entry of the historical corpus.
// Values are constructed once at the load boundary and never mutated afterwards.
type HistoricalVideo struct {
	VideoID          string `json:"videoId" db:"video_id"`
	Platform         string `json:"platform" db:"platform"`
	Category         string `json:"category" db:"category"`
	Title            string `json:"title" db:"title"`
	CoverDescription string `json:"coverDescription" db:"cover_description"`
	Hashtags         string `json:"hashtags" db:"hashtags"`
	// PostingHour is the hour of day (0-23) the video was posted. Not used for scoring.
	PostingHour int `json:"postingHour" db:"posting_hour"`
}

// QueryDescriptor is the candidate strategy being evaluated against the corpus.
// Empty fields are allowed and contribute nothing to the similarity score.
type QueryDescriptor struct {
	CoverDescription string `json:"coverDescription"`
	Title            string `json:"title"`
	Hashtags         string `json:"hashtags"`
	Category         string `json:"category"`
	Platform         string `json:"platform" validate:"omitempty,platform"`
}

// ScoredMatch is a historical video selected by the similarity scorer.
type ScoredMatch struct {
	VideoID    string  `json:"videoId"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// DatasetStats summarises a loaded corpus.
type DatasetStats struct {
	TotalVideos int      `json:"totalVideos"`
	Platforms   []string `json:"platforms"`
	Categories  []string `json:"categories"`
}

// ImportInfo describes one import of a dataset into storage.
type ImportInfo struct {
	ID         int64     `json:"id" db:"id"`
	Source     string    `json:"source" db:"source"`
	Videos     int       `json:"videos" db:"videos"`
	ImportedAt time.Time `json:"imported_at" db:"imported_at"`
}
