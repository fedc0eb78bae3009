// Package keyword provides full-text search over the historical video corpus.
package keyword

import (
	"context"

	"github.com/hyperjump/chimera/internal/models"
)

// Indexed field names.
const (
	FieldTitle    = "title"
	FieldCover    = "cover_description"
	FieldHashtags = "hashtags"
	FieldCategory = "category"
	FieldPlatform = "platform"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// Platform restricts hits to one platform when non-empty.
	Platform string
	// TitleBoost multiplies the score contribution from title matches. Default 2.0.
	TitleBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2). Default 1.
	Fuzziness int
}

// KeywordIndex defines keyword search operations over videos.
type KeywordIndex interface {
	Index(ctx context.Context, video *models.HistoricalVideo) error
	// Replace drops every indexed video and indexes videos in one batch.
	Replace(ctx context.Context, videos []models.HistoricalVideo) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	// DocCount returns the total number of videos in the index.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string  `json:"videoId"`
	Score float64 `json:"score"`
}
