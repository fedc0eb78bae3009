package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBacktest(t *testing.T) {
	before := testutil.ToFloat64(BacktestTotal.WithLabelValues("ok"))
	RecordBacktest("ok", 0.002)
	if got := testutil.ToFloat64(BacktestTotal.WithLabelValues("ok")); got != before+1 {
		t.Errorf("backtest_total{ok} = %v, want %v", got, before+1)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(CacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(CacheLookups.WithLabelValues("miss"))
	RecordCacheLookup(true)
	RecordCacheLookup(false)
	RecordCacheLookup(false)
	if got := testutil.ToFloat64(CacheLookups.WithLabelValues("hit")); got != hits+1 {
		t.Errorf("hits = %v", got)
	}
	if got := testutil.ToFloat64(CacheLookups.WithLabelValues("miss")); got != misses+2 {
		t.Errorf("misses = %v", got)
	}
}

func TestRecordCorpusReload(t *testing.T) {
	RecordCorpusReload(nil, 42)
	if got := testutil.ToFloat64(CorpusVideos); got != 42 {
		t.Errorf("corpus_videos = %v, want 42", got)
	}
	failed := testutil.ToFloat64(CorpusReloads.WithLabelValues("error"))
	RecordCorpusReload(errors.New("boom"), 0)
	if got := testutil.ToFloat64(CorpusVideos); got != 42 {
		t.Errorf("failed reload changed corpus_videos to %v", got)
	}
	if got := testutil.ToFloat64(CorpusReloads.WithLabelValues("error")); got != failed+1 {
		t.Errorf("reloads{error} = %v", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	RecordHTTPRequest("GET", "/health", "200", 0.001)
	if got := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/health", "200")); got < 1 {
		t.Errorf("http_requests_total = %v", got)
	}
}
