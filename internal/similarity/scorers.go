package similarity

import (
	"strings"

	"github.com/hyperjump/chimera/internal/models"
)

// Scorer names, also used as keys of ScoreBreakdown.Components.
const (
	ScorerCategory = "category"
	ScorerPlatform = "platform"
	ScorerHashtags = "hashtags"
	ScorerTitle    = "title"
	ScorerCover    = "cover"
)

// PreparedQuery is a query with its token sets computed once for a whole corpus pass.
type PreparedQuery struct {
	Query models.QueryDescriptor

	category      string
	categoryFirst string
	hashtags      TokenSet
	title         TokenSet
	cover         TokenSet
}

// Prepare normalizes and tokenizes the query fields.
func Prepare(q models.QueryDescriptor) *PreparedQuery {
	category := strings.ToLower(q.Category)
	return &PreparedQuery{
		Query:         q,
		category:      category,
		categoryFirst: firstWord(category),
		hashtags:      NewTokenSet(ExtractHashtags(q.Hashtags)),
		title:         NewTokenSet(Tokenize(q.Title)),
		cover:         NewTokenSet(Tokenize(q.CoverDescription)),
	}
}

// Scorer computes the raw similarity of one field in [0, 1].
type Scorer interface {
	// Score returns the raw field similarity between the query and a candidate.
	Score(q *PreparedQuery, v *models.HistoricalVideo) float64
	// Name returns the name of the scorer for debugging/logging.
	Name() string
}

// CategoryScorer matches categories case-insensitively.
type CategoryScorer struct {
	// Partial is the score when only the first word of either category occurs in the other.
	Partial float64
}

// Name returns the scorer name.
func (s *CategoryScorer) Name() string { return ScorerCategory }

// Score returns 1 on an exact match, Partial on a first-word substring match, else 0.
func (s *CategoryScorer) Score(q *PreparedQuery, v *models.HistoricalVideo) float64 {
	vc := strings.ToLower(v.Category)
	if q.category == "" || vc == "" {
		return 0
	}
	if q.category == vc {
		return 1
	}
	if q.categoryFirst != "" && strings.Contains(vc, q.categoryFirst) {
		return s.Partial
	}
	if w := firstWord(vc); w != "" && strings.Contains(q.category, w) {
		return s.Partial
	}
	return 0
}

// PlatformScorer matches platform identifiers exactly. Values are normalized upstream.
type PlatformScorer struct{}

// Name returns the scorer name.
func (s *PlatformScorer) Name() string { return ScorerPlatform }

// Score returns 1 when both platforms are set and equal.
func (s *PlatformScorer) Score(q *PreparedQuery, v *models.HistoricalVideo) float64 {
	if q.Query.Platform == "" || q.Query.Platform != v.Platform {
		return 0
	}
	return 1
}

// HashtagScorer scores the overlap of #tags.
type HashtagScorer struct{}

// Name returns the scorer name.
func (s *HashtagScorer) Name() string { return ScorerHashtags }

// Score returns the hashtag set overlap.
func (s *HashtagScorer) Score(q *PreparedQuery, v *models.HistoricalVideo) float64 {
	if len(q.hashtags) == 0 {
		return 0
	}
	return Overlap(q.hashtags, NewTokenSet(ExtractHashtags(v.Hashtags)))
}

// TextScorer scores the token overlap of a free-text field.
type TextScorer struct {
	name  string
	query func(q *PreparedQuery) TokenSet
	field func(v *models.HistoricalVideo) string
}

// NewTitleScorer returns a TextScorer over titles.
func NewTitleScorer() *TextScorer {
	return &TextScorer{
		name:  ScorerTitle,
		query: func(q *PreparedQuery) TokenSet { return q.title },
		field: func(v *models.HistoricalVideo) string { return v.Title },
	}
}

// NewCoverScorer returns a TextScorer over cover descriptions.
func NewCoverScorer() *TextScorer {
	return &TextScorer{
		name:  ScorerCover,
		query: func(q *PreparedQuery) TokenSet { return q.cover },
		field: func(v *models.HistoricalVideo) string { return v.CoverDescription },
	}
}

// Name returns the scorer name.
func (s *TextScorer) Name() string { return s.name }

// Score returns the token overlap between the query field and the candidate field.
func (s *TextScorer) Score(q *PreparedQuery, v *models.HistoricalVideo) float64 {
	qs := s.query(q)
	if len(qs) == 0 {
		return 0
	}
	return Overlap(qs, NewTokenSet(Tokenize(s.field(v))))
}
