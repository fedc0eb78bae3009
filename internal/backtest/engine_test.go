package backtest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/chimera/internal/dataset"
	"github.com/hyperjump/chimera/internal/keyword"
	"github.com/hyperjump/chimera/internal/models"
	"github.com/hyperjump/chimera/internal/similarity"
	"github.com/hyperjump/chimera/internal/storage"
)

// fiveVideos is a corpus of exactly MatchCount videos, so every backtest matches all of them.
func fiveVideos() *dataset.Dataset {
	videos := make([]models.HistoricalVideo, 0, 5)
	records := make([]models.TimeSeriesRecord, 0, 5)
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("v%d", i)
		videos = append(videos, models.HistoricalVideo{
			VideoID:          id,
			Platform:         "youtube",
			Category:         "Food & Cooking",
			Title:            fmt.Sprintf("Spicy noodle challenge part %d", i),
			CoverDescription: "red bowl of noodles",
			Hashtags:         "#spicy #noodles",
		})
		rec := models.TimeSeriesRecord{VideoID: id}
		for _, off := range models.Offsets {
			rec.SetValue(models.MetricViews, off, float64(i*100))
			rec.SetValue(models.MetricLikes, off, float64(i*10))
			rec.SetValue(models.MetricCTR, off, 0.05+0.01*float64(i))
		}
		records = append(records, rec)
	}
	return dataset.New(videos, records, dataset.WithSource("test"))
}

func mixedCorpus() *dataset.Dataset {
	ds := fiveVideos()
	videos := append([]models.HistoricalVideo(nil), ds.Videos()...)
	records := append([]models.TimeSeriesRecord(nil), ds.Records()...)
	videos = append(videos,
		models.HistoricalVideo{VideoID: "g1", Platform: "tiktok", Category: "Gaming", Title: "Boss rush speedrun", Hashtags: "#gaming"},
		models.HistoricalVideo{VideoID: "t1", Platform: "shorts", Category: "Tech Reviews", Title: "Phone unboxing", Hashtags: "#tech"},
	)
	records = append(records,
		models.TimeSeriesRecord{VideoID: "g1", Views24h: 9000, CTR24h: 0.2},
		models.TimeSeriesRecord{VideoID: "t1", Views24h: 7000, CTR24h: 0.1},
	)
	return dataset.New(videos, records, dataset.WithSource("mixed"))
}

func foodRequest() *models.BacktestRequest {
	return &models.BacktestRequest{
		Strategy: models.Strategy{
			Title:    "Spicy noodle challenge",
			Cover:    "red bowl of noodles",
			Hashtags: "#spicy #noodles",
		},
		Features: models.VideoFeatures{Category: "Food & Cooking"},
		Platform: "youtube",
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(nil, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := similarity.DefaultConfig()
	cfg.TitleWeight = -1
	if _, err := NewEngine(cfg); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestEngine_RunWithoutCorpus(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Run(context.Background(), foodRequest())
	if !errors.Is(err, ErrNoCorpus) {
		t.Fatalf("expected ErrNoCorpus, got %v", err)
	}
	if _, err := e.Stats(); !errors.Is(err, ErrNoCorpus) {
		t.Errorf("Stats: expected ErrNoCorpus, got %v", err)
	}
}

func TestEngine_RunValidation(t *testing.T) {
	e := newTestEngine(t)
	e.SetCorpus(fiveVideos())

	req := foodRequest()
	req.Platform = "myspace"
	req.Strategy.Title = ""
	_, err := e.Run(context.Background(), req)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *models.ValidationError, got %v", err)
	}
	for _, field := range []string{"platform", "strategy.title"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("missing validation error for %q in %v", field, verr.Fields)
		}
	}
}

func TestEngine_RunPredictions(t *testing.T) {
	e := newTestEngine(t)
	version := e.SetCorpus(fiveVideos())

	resp, err := e.Run(context.Background(), foodRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.CorpusVersion != version {
		t.Errorf("CorpusVersion = %d, want %d", resp.CorpusVersion, version)
	}
	if len(resp.MatchedVideos) != similarity.MatchCount {
		t.Fatalf("expected %d matched videos, got %d", similarity.MatchCount, len(resp.MatchedVideos))
	}

	p := resp.Predictions
	if len(p.Views) != len(models.Offsets) || len(p.CTR) != len(models.Offsets) || len(p.Likes) != len(models.Offsets) {
		t.Fatalf("unexpected curve lengths: %d/%d/%d", len(p.Views), len(p.CTR), len(p.Likes))
	}
	for i, off := range models.Offsets {
		if p.Views[i].Time != string(off) || p.Views[i].Value != 300 {
			t.Errorf("views[%d] = %+v, want {%s 300}", i, p.Views[i], off)
		}
		if p.Likes[i].Value != 30 {
			t.Errorf("likes[%d] = %v, want 30", i, p.Likes[i].Value)
		}
		if p.CTR[i].Value != 0.08 {
			t.Errorf("ctr[%d] = %v, want 0.08", i, p.CTR[i].Value)
		}
	}
	want := models.HeadlineMetrics{Views24h: "300", CTR24h: "8.00%", Likes24h: "30"}
	if p.Metrics != want {
		t.Errorf("headline = %+v, want %+v", p.Metrics, want)
	}
}

func TestEngine_RunEnrichesByID(t *testing.T) {
	e := newTestEngine(t)
	ds := mixedCorpus()
	e.SetCorpus(ds)

	resp, err := e.Run(context.Background(), foodRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.MatchedVideos) != similarity.MatchCount {
		t.Fatalf("expected %d matches, got %d", similarity.MatchCount, len(resp.MatchedVideos))
	}
	for i, m := range resp.MatchedVideos {
		if m.VideoID == "g1" || m.VideoID == "t1" {
			t.Errorf("unrelated video %s matched", m.VideoID)
		}
		rec, ok := ds.Record(m.VideoID)
		if !ok {
			t.Fatalf("no record for %s", m.VideoID)
		}
		if wantViews := fmt.Sprintf("%.0f", rec.Views24h); m.Views24h != wantViews {
			t.Errorf("%s views24h = %q, want %q", m.VideoID, m.Views24h, wantViews)
		}
		if wantCTR := fmt.Sprintf("%.2f%%", rec.CTR24h*100); m.CTR != wantCTR {
			t.Errorf("%s ctr = %q, want %q", m.VideoID, m.CTR, wantCTR)
		}
		if i > 0 && m.Similarity > resp.MatchedVideos[i-1].Similarity {
			t.Errorf("matches not sorted by descending similarity at %d", i)
		}
	}
}

func TestEngine_RunInsufficientData(t *testing.T) {
	e := newTestEngine(t)
	ds := fiveVideos()
	e.SetCorpus(dataset.New(ds.Videos()[:3], ds.Records()[:3]))

	_, err := e.Run(context.Background(), foodRequest())
	if !errors.Is(err, similarity.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestEngine_RunCanceledContext(t *testing.T) {
	e := newTestEngine(t)
	e.SetCorpus(fiveVideos())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Run(ctx, foodRequest()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEngine_CacheReturnsCopies(t *testing.T) {
	e := newTestEngine(t)
	e.SetCorpus(fiveVideos())
	ctx := context.Background()

	first, err := e.Run(ctx, foodRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	first.MatchedVideos[0].Title = "mutated"
	first.Predictions.Views[0].Value = -1

	second, err := e.Run(ctx, foodRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if second.MatchedVideos[0].Title == "mutated" || second.Predictions.Views[0].Value == -1 {
		t.Error("cached response shares memory with a returned response")
	}
	if e.cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", e.cache.Len())
	}
}

func TestEngine_SetCorpusInvalidatesCache(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	v1 := e.SetCorpus(fiveVideos())
	first, err := e.Run(ctx, foodRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Same videos, doubled views.
	ds := fiveVideos()
	records := append([]models.TimeSeriesRecord(nil), ds.Records()...)
	for i := range records {
		records[i].Views24h *= 2
	}
	v2 := e.SetCorpus(dataset.New(ds.Videos(), records))
	if v2 != v1+1 {
		t.Errorf("version = %d, want %d", v2, v1+1)
	}

	second, err := e.Run(ctx, foodRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if second.CorpusVersion != v2 {
		t.Errorf("CorpusVersion = %d, want %d", second.CorpusVersion, v2)
	}
	if first.Predictions.Metrics.Views24h != "300" || second.Predictions.Metrics.Views24h != "600" {
		t.Errorf("views24h = %q then %q, want 300 then 600",
			first.Predictions.Metrics.Views24h, second.Predictions.Metrics.Views24h)
	}
}

func TestEngine_CacheDisabled(t *testing.T) {
	e := newTestEngine(t, WithCacheSize(0))
	e.SetCorpus(fiveVideos())
	if e.cache != nil {
		t.Fatal("expected no cache")
	}
	if _, err := e.Run(context.Background(), foodRequest()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestEngine_SaveWithoutStorage(t *testing.T) {
	e := newTestEngine(t)
	e.SetCorpus(fiveVideos())
	req := foodRequest()
	req.Save = true
	if _, err := e.Run(context.Background(), req); !errors.Is(err, ErrReportsDisabled) {
		t.Fatalf("expected ErrReportsDisabled, got %v", err)
	}
	if _, err := e.ListReports(context.Background(), 0, 10); !errors.Is(err, ErrReportsDisabled) {
		t.Errorf("ListReports: expected ErrReportsDisabled, got %v", err)
	}
}

func TestEngine_Reports(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	e := newTestEngine(t, WithStorage(store))
	e.SetCorpus(fiveVideos())
	ctx := context.Background()

	req := foodRequest()
	req.Save = true
	resp, err := e.Run(ctx, req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.ReportID == "" {
		t.Fatal("expected a report ID")
	}

	report, err := e.GetReport(ctx, resp.ReportID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if report.Strategy.Title != req.Strategy.Title || report.Platform != "youtube" {
		t.Errorf("unexpected report %+v", report)
	}
	if report.Result == nil || report.Result.Predictions.Metrics != resp.Predictions.Metrics {
		t.Errorf("stored result does not match response")
	}

	// A cached rerun must not carry the earlier report ID.
	again, err := e.Run(ctx, foodRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if again.ReportID != "" {
		t.Errorf("unsaved run has ReportID %q", again.ReportID)
	}

	saved, err := e.SaveReport(ctx, foodRequest())
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	reports, err := e.ListReports(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}

	if err := e.DeleteReport(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteReport: %v", err)
	}
	if _, err := e.GetReport(ctx, saved.ID); !errors.Is(err, storage.ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound after delete, got %v", err)
	}
}

func TestEngine_Similar(t *testing.T) {
	e := newTestEngine(t)
	e.SetCorpus(mixedCorpus())

	q := models.QueryDescriptor{Category: "Gaming", Platform: "tiktok", Title: "boss rush"}
	resp, err := e.Similar(context.Background(), q, true)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(resp.Matches) != similarity.MatchCount {
		t.Fatalf("expected %d matches, got %d", similarity.MatchCount, len(resp.Matches))
	}
	if resp.Matches[0].VideoID != "g1" {
		t.Errorf("top match = %s, want g1", resp.Matches[0].VideoID)
	}
	b, ok := resp.Breakdowns["g1"]
	if !ok {
		t.Fatal("missing breakdown for g1")
	}
	if b.Components[similarity.ScorerCategory] != 1 || b.Components[similarity.ScorerPlatform] != 1 {
		t.Errorf("unexpected components %v", b.Components)
	}
	if b.Score != resp.Matches[0].Similarity {
		t.Errorf("breakdown score %v != similarity %v", b.Score, resp.Matches[0].Similarity)
	}

	if _, err := e.Similar(context.Background(), models.QueryDescriptor{Platform: "vine"}, false); err == nil {
		t.Error("expected validation error for unknown platform")
	}
}

func TestEngine_Search(t *testing.T) {
	e := newTestEngine(t)
	e.SetCorpus(mixedCorpus())
	if _, err := e.Search(context.Background(), "noodle", 10, nil); !errors.Is(err, ErrSearchDisabled) {
		t.Fatalf("expected ErrSearchDisabled, got %v", err)
	}

	idx, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	ds := mixedCorpus()
	if err := idx.Replace(context.Background(), ds.Videos()); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	e = newTestEngine(t, WithKeywordIndex(idx))
	e.SetCorpus(ds)
	hits, err := e.Search(context.Background(), "speedrun", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Video.VideoID != "g1" || hits[0].Video.Category != "Gaming" {
		t.Errorf("unexpected hits %+v", hits)
	}
}

func TestEngine_Stats(t *testing.T) {
	e := newTestEngine(t)
	version := e.SetCorpus(mixedCorpus())
	stats, err := e.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalVideos != 7 || stats.Source != "mixed" || stats.CorpusVersion != version {
		t.Errorf("unexpected stats %+v", stats)
	}
	if len(stats.Platforms) != 3 || stats.Platforms[0] != "youtube" {
		t.Errorf("platforms = %v", stats.Platforms)
	}
	if stats.LoadedAt.IsZero() {
		t.Error("LoadedAt not set")
	}
}

func TestEngine_Video(t *testing.T) {
	e := newTestEngine(t)
	e.SetCorpus(mixedCorpus())

	detail, err := e.Video("g1")
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	if detail.Video.Title != "Boss rush speedrun" || detail.TimeSeries.Views24h != 9000 {
		t.Errorf("unexpected detail %+v", detail)
	}
	if _, err := e.Video("nope"); !errors.Is(err, storage.ErrVideoNotFound) {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
}
