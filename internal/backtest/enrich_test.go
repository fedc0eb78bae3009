package backtest

import (
	"testing"

	"github.com/hyperjump/chimera/internal/dataset"
	"github.com/hyperjump/chimera/internal/models"
)

func TestEnrich(t *testing.T) {
	ds := dataset.New(
		[]models.HistoricalVideo{{VideoID: "a"}, {VideoID: "b"}},
		[]models.TimeSeriesRecord{
			{VideoID: "b", Views24h: 2500.5, CTR24h: 0.12346},
			{VideoID: "a", Views24h: 100, CTR24h: 0.069},
		},
	)
	matches := []models.ScoredMatch{
		{VideoID: "b", Title: "B", Similarity: 0.9},
		{VideoID: "a", Title: "A", Similarity: 0.5},
		{VideoID: "missing", Title: "?", Similarity: 0.1},
	}

	got := Enrich(matches, ds)
	want := []models.MatchedVideo{
		{VideoID: "b", Title: "B", Similarity: 0.9, CTR: "12.35%", Views24h: "2501"},
		{VideoID: "a", Title: "A", Similarity: 0.5, CTR: "6.90%", Views24h: "100"},
		{VideoID: "missing", Title: "?", Similarity: 0.1, CTR: "0.00%", Views24h: "0"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d videos, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("video %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCacheKey(t *testing.T) {
	base := models.QueryDescriptor{Title: "ab", CoverDescription: "c", Platform: "youtube"}
	shifted := models.QueryDescriptor{Title: "a", CoverDescription: "bc", Platform: "youtube"}

	if cacheKey(base, 1) == cacheKey(shifted, 1) {
		t.Error("field boundaries must be part of the key")
	}
	if cacheKey(base, 1) == cacheKey(base, 2) {
		t.Error("corpus version must be part of the key")
	}
	if cacheKey(base, 1) != cacheKey(base, 1) {
		t.Error("key must be deterministic")
	}
}
