// Package backtest runs the strategy backtest pipeline: match, fetch time series, aggregate, enrich.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/chimera/internal/dataset"
	"github.com/hyperjump/chimera/internal/keyword"
	"github.com/hyperjump/chimera/internal/metrics"
	"github.com/hyperjump/chimera/internal/models"
	"github.com/hyperjump/chimera/internal/similarity"
	"github.com/hyperjump/chimera/internal/storage"
	"github.com/hyperjump/chimera/internal/timeseries"
)

// DefaultCacheSize is the number of backtest responses kept when no size is configured.
const DefaultCacheSize = 256

var (
	// ErrNoCorpus is returned when a backtest runs before any dataset was loaded.
	ErrNoCorpus = errors.New("no historical corpus loaded")
	// ErrReportsDisabled is returned by report operations on an engine without storage.
	ErrReportsDisabled = errors.New("report storage is not configured")
	// ErrSearchDisabled is returned by Search on an engine without a keyword index.
	ErrSearchDisabled = errors.New("keyword search is not configured")
)

// Corpus is an immutable snapshot of the loaded dataset.
type Corpus struct {
	Dataset  *dataset.Dataset
	Version  uint64
	LoadedAt time.Time
}

// Engine runs backtests against the current corpus snapshot.
// A snapshot is swapped atomically, so concurrent backtests never see a partial reload.
type Engine struct {
	matcher      *similarity.Matcher
	store        storage.Storage
	keywordIndex keyword.KeywordIndex
	logger       *zap.Logger

	cacheSize int
	cache     *lru.Cache[string, *models.BacktestResponse]

	corpus  atomic.Pointer[Corpus]
	version atomic.Uint64
	mu      sync.Mutex // serializes SetCorpus
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStorage enables saved reports.
func WithStorage(s storage.Storage) Option {
	return func(e *Engine) { e.store = s }
}

// WithKeywordIndex enables corpus keyword search.
func WithKeywordIndex(k keyword.KeywordIndex) Option {
	return func(e *Engine) { e.keywordIndex = k }
}

// WithCacheSize sets the response cache size. A size <= 0 disables caching.
func WithCacheSize(n int) Option {
	return func(e *Engine) { e.cacheSize = n }
}

// NewEngine creates an engine with the given matcher configuration.
func NewEngine(cfg *similarity.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = similarity.DefaultConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching config: %w", err)
	}

	e := &Engine{
		matcher:   similarity.NewMatcher(cfg),
		logger:    zap.NewNop(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cacheSize > 0 {
		cache, err := lru.New[string, *models.BacktestResponse](e.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Matcher returns the similarity matcher used by the engine.
func (e *Engine) Matcher() *similarity.Matcher {
	return e.matcher
}

// SetCorpus replaces the corpus snapshot and drops cached responses. It returns the new version.
func (e *Engine) SetCorpus(ds *dataset.Dataset) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &Corpus{
		Dataset:  ds,
		Version:  e.version.Add(1),
		LoadedAt: time.Now().UTC(),
	}
	e.corpus.Store(snap)
	if e.cache != nil {
		e.cache.Purge()
	}
	metrics.RecordCorpusReload(nil, ds.Len())
	e.logger.Info("corpus loaded",
		zap.String("source", ds.Source()),
		zap.Int("videos", ds.Len()),
		zap.Uint64("version", snap.Version),
	)
	return snap.Version
}

// Corpus returns the current snapshot, or nil before the first SetCorpus.
func (e *Engine) Corpus() *Corpus {
	return e.corpus.Load()
}

func (e *Engine) snapshot() (*Corpus, error) {
	snap := e.corpus.Load()
	if snap == nil || snap.Dataset == nil {
		return nil, ErrNoCorpus
	}
	return snap, nil
}

// Run backtests a strategy: it selects the closest historical videos, averages their
// time series into a 24h prediction and enriches each match with its own engagement.
func (e *Engine) Run(ctx context.Context, req *models.BacktestRequest) (*models.BacktestResponse, error) {
	start := time.Now()
	resp, err := e.run(ctx, req, start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordBacktest(status, time.Since(start).Seconds())
	return resp, err
}

func (e *Engine) run(ctx context.Context, req *models.BacktestRequest, start time.Time) (*models.BacktestResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	snap, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	query := req.Query()
	key := cacheKey(query, snap.Version)
	resp, hit := e.lookup(key)
	if !hit {
		resp, err = e.compute(query, snap)
		if err != nil {
			return nil, err
		}
		e.remember(key, resp)
	}
	resp.QueryTime = time.Since(start).Milliseconds()

	if req.Save {
		if _, err := e.saveReport(ctx, req, resp); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("backtest completed",
		zap.String("platform", req.Platform),
		zap.String("category", req.Features.Category),
		zap.Bool("cached", hit),
		zap.Uint64("corpus_version", snap.Version),
		zap.Int64("query_time_ms", resp.QueryTime),
	)
	return resp, nil
}

func (e *Engine) compute(query models.QueryDescriptor, snap *Corpus) (*models.BacktestResponse, error) {
	ds := snap.Dataset
	matches, err := e.matcher.FindSimilarVideos(query, ds.Videos())
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.VideoID
	}
	records, err := ds.TimeSeries(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch time series: %w", err)
	}
	predictions, err := timeseries.Aggregate(records)
	if err != nil {
		return nil, err
	}

	return &models.BacktestResponse{
		Predictions:   predictions,
		MatchedVideos: Enrich(matches, ds),
		CorpusVersion: snap.Version,
	}, nil
}

// lookup returns a private copy of a cached response.
func (e *Engine) lookup(key string) (*models.BacktestResponse, bool) {
	if e.cache == nil {
		return nil, false
	}
	cached, ok := e.cache.Get(key)
	metrics.RecordCacheLookup(ok)
	if !ok {
		return nil, false
	}
	return cloneResponse(cached), true
}

func (e *Engine) remember(key string, resp *models.BacktestResponse) {
	if e.cache == nil {
		return
	}
	e.cache.Add(key, cloneResponse(resp))
}

// Similar returns the MatchCount closest videos for a bare query. With breakdown set,
// the per-field raw scores of every match are included.
func (e *Engine) Similar(ctx context.Context, query models.QueryDescriptor, breakdown bool) (*SimilarResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	snap, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	matches, err := e.matcher.FindSimilarVideos(query, snap.Dataset.Videos())
	if err != nil {
		return nil, err
	}
	resp := &SimilarResponse{Matches: matches, CorpusVersion: snap.Version}
	if breakdown {
		prepared := similarity.Prepare(query)
		resp.Breakdowns = make(map[string]*similarity.ScoreBreakdown, len(matches))
		for _, m := range matches {
			v, ok := snap.Dataset.Lookup(m.VideoID)
			if !ok {
				continue
			}
			resp.Breakdowns[m.VideoID] = e.matcher.ScoreWithBreakdown(prepared, &v)
		}
	}
	return resp, nil
}

// Search runs a keyword search over the corpus and joins hits with their video metadata.
// Hits for videos missing from the current snapshot are dropped.
func (e *Engine) Search(ctx context.Context, q string, limit int, opts *keyword.SearchOptions) ([]SearchHit, error) {
	if e.keywordIndex == nil {
		return nil, ErrSearchDisabled
	}
	snap, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	results, err := e.keywordIndex.Search(ctx, q, limit, opts)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		v, ok := snap.Dataset.Lookup(r.ID)
		if !ok {
			continue
		}
		hits = append(hits, SearchHit{Video: v, Score: r.Score})
	}
	return hits, nil
}

// Stats summarizes the current corpus snapshot.
func (e *Engine) Stats() (*CorpusStats, error) {
	snap, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return &CorpusStats{
		DatasetStats:  snap.Dataset.Stats(),
		Source:        snap.Dataset.Source(),
		CorpusVersion: snap.Version,
		LoadedAt:      snap.LoadedAt,
	}, nil
}

// Video returns a corpus video with its time series.
func (e *Engine) Video(id string) (*VideoDetail, error) {
	snap, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	v, ok := snap.Dataset.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrVideoNotFound, id)
	}
	rec, _ := snap.Dataset.Record(id)
	return &VideoDetail{Video: v, TimeSeries: rec}, nil
}
