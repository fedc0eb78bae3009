// Package similarity scores historical videos against a candidate strategy and selects the closest matches.
package similarity

import (
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/chimera/internal/models"
)

// MatchCount is the number of matches FindSimilarVideos always returns.
const MatchCount = 5

// SimilarityMatcher selects the MatchCount corpus entries closest to a query.
// Implementations must return exactly MatchCount distinct videos or an error.
type SimilarityMatcher interface {
	FindSimilarVideos(query models.QueryDescriptor, corpus []models.HistoricalVideo) ([]models.ScoredMatch, error)
	Name() string
}

type weightedScorer struct {
	scorer Scorer
	weight float64
}

// Matcher is the deterministic weighted-sum SimilarityMatcher.
type Matcher struct {
	config  *Config
	scorers []weightedScorer
}

// NewMatcher creates a Matcher with the given configuration.
func NewMatcher(config *Config) *Matcher {
	if config == nil {
		config = DefaultConfig()
	}
	config.ApplyDefaults()

	return &Matcher{
		config: config,
		scorers: []weightedScorer{
			{&CategoryScorer{Partial: config.PartialCategoryScore}, config.CategoryWeight},
			{&PlatformScorer{}, config.PlatformWeight},
			{&HashtagScorer{}, config.HashtagWeight},
			{NewTitleScorer(), config.TitleWeight},
			{NewCoverScorer(), config.CoverWeight},
		},
	}
}

// Name returns the matcher name.
func (m *Matcher) Name() string {
	return "weighted"
}

// GetConfig returns the matcher configuration.
func (m *Matcher) GetConfig() *Config {
	return m.config
}

// ScoreBreakdown provides detailed scoring information for debugging.
type ScoreBreakdown struct {
	// Components maps scorer name to its raw (unweighted) score.
	Components map[string]float64 `json:"components"`
	// Score is the clamped weighted sum.
	Score float64 `json:"score"`
}

// Score calculates the similarity of one candidate in [0, 1].
func (m *Matcher) Score(q *PreparedQuery, v *models.HistoricalVideo) float64 {
	score := 0.0
	for _, ws := range m.scorers {
		if ws.weight == 0 {
			continue
		}
		score += ws.weight * ws.scorer.Score(q, v)
	}
	return clamp01(score)
}

// ScoreWithBreakdown returns the per-field raw scores along with the final score.
func (m *Matcher) ScoreWithBreakdown(q *PreparedQuery, v *models.HistoricalVideo) *ScoreBreakdown {
	b := &ScoreBreakdown{Components: make(map[string]float64, len(m.scorers))}
	score := 0.0
	for _, ws := range m.scorers {
		raw := ws.scorer.Score(q, v)
		b.Components[ws.scorer.Name()] = raw
		score += ws.weight * raw
	}
	b.Score = clamp01(score)
	return b
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// RankedVideo is a corpus entry with its computed score.
type RankedVideo struct {
	Video *models.HistoricalVideo
	Score float64
	// Index is the position of the video in the input corpus; it breaks score ties.
	Index int
}

// Rank scores every corpus entry and returns them by descending score.
// Equal scores keep corpus input order. Entries repeating an earlier video ID are dropped.
func (m *Matcher) Rank(query models.QueryDescriptor, corpus []models.HistoricalVideo) []*RankedVideo {
	q := Prepare(query)
	scores := m.scoreAll(q, corpus)

	seen := make(map[string]bool, len(corpus))
	results := make([]*RankedVideo, 0, len(corpus))
	for i := range corpus {
		id := corpus[i].VideoID
		if seen[id] {
			continue
		}
		seen[id] = true
		results = append(results, &RankedVideo{Video: &corpus[i], Score: scores[i], Index: i})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// scoreAll scores corpus[i] into scores[i], in parallel when the corpus is large enough.
func (m *Matcher) scoreAll(q *PreparedQuery, corpus []models.HistoricalVideo) []float64 {
	scores := make([]float64, len(corpus))
	workers := m.config.Workers
	if workers <= 1 || len(corpus) < m.config.ParallelThreshold {
		for i := range corpus {
			scores[i] = m.Score(q, &corpus[i])
		}
		return scores
	}

	chunk := (len(corpus) + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < len(corpus); start += chunk {
		start, end := start, start+chunk
		if end > len(corpus) {
			end = len(corpus)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				scores[i] = m.Score(q, &corpus[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return scores
}

// FindSimilarVideos returns the MatchCount highest scoring videos of corpus.
// It returns an *InsufficientDataError when corpus holds fewer than MatchCount distinct videos.
func (m *Matcher) FindSimilarVideos(query models.QueryDescriptor, corpus []models.HistoricalVideo) ([]models.ScoredMatch, error) {
	if len(corpus) < MatchCount {
		return nil, &InsufficientDataError{Have: len(corpus), Need: MatchCount}
	}
	ranked := m.Rank(query, corpus)
	if len(ranked) < MatchCount {
		return nil, &InsufficientDataError{Have: len(ranked), Need: MatchCount}
	}

	matches := make([]models.ScoredMatch, 0, MatchCount)
	for _, r := range TopN(ranked, MatchCount) {
		matches = append(matches, models.ScoredMatch{
			VideoID:    r.Video.VideoID,
			Title:      r.Video.Title,
			Similarity: r.Score,
		})
	}
	return matches, nil
}

// TopN returns the top n results.
func TopN(results []*RankedVideo, n int) []*RankedVideo {
	if n >= len(results) {
		return results
	}
	return results[:n]
}

var defaultMatcher = NewMatcher(nil)

// FindSimilarVideos runs the default-weighted matcher.
func FindSimilarVideos(query models.QueryDescriptor, corpus []models.HistoricalVideo) ([]models.ScoredMatch, error) {
	return defaultMatcher.FindSimilarVideos(query, corpus)
}
