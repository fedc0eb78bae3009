package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/chimera/internal/backtest"
	"github.com/hyperjump/chimera/internal/models"
)

func sampleResponse() *models.BacktestResponse {
	curve := func(base float64) []models.Point {
		out := make([]models.Point, 0, len(models.Offsets))
		for i, off := range models.Offsets {
			out = append(out, models.Point{Time: string(off), Value: base * float64(i+1)})
		}
		return out
	}
	return &models.BacktestResponse{
		Predictions: &models.AggregatedMetrics{
			Views:   curve(100),
			CTR:     curve(0.01),
			Likes:   curve(10),
			Metrics: models.HeadlineMetrics{Views24h: "500", CTR24h: "5.00%", Likes24h: "50"},
		},
		MatchedVideos: []models.MatchedVideo{
			{VideoID: "v1", Title: "Spicy noodle challenge", Similarity: 0.95, CTR: "6.90%", Views24h: "1200"},
			{VideoID: "v2", Title: "Ramen at midnight", Similarity: 0.5, CTR: "3.10%", Views24h: "800"},
		},
		CorpusVersion: 3,
		QueryTime:     7,
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, s := range []string{"text", "compact", "json"} {
		if f, err := ParseOutputFormat(s); err != nil || string(f) != s {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", s, f, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteBacktest_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBacktest(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteBacktest(json): %v", err)
	}
	var decoded models.BacktestResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.MatchedVideos) != 2 || decoded.Predictions.Metrics.CTR24h != "5.00%" {
		t.Errorf("unexpected decoded response %+v", decoded)
	}
}

func TestWriteBacktest_text(t *testing.T) {
	resp := sampleResponse()
	resp.ReportID = "rep-1"
	var buf bytes.Buffer
	if err := WriteBacktest(&buf, resp, OutputText); err != nil {
		t.Fatalf("WriteBacktest(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"2 matched videos", "corpus v3", "7ms", "views:  500", "ctr:    5.00%",
		"24h", "[1] 0.9500  v1  Spicy noodle challenge", "ctr 6.90% | views 1200", "Saved as report rep-1"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteBacktest_compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBacktest(&buf, sampleResponse(), OutputCompact); err != nil {
		t.Fatalf("WriteBacktest(compact): %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "views24h=500\tctr24h=5.00%\tlikes24h=50" {
		t.Errorf("headline line = %q", lines[0])
	}
	if lines[1] != "v1\t0.9500\t6.90%\t1200\tSpicy noodle challenge" {
		t.Errorf("match line = %q", lines[1])
	}
}

func TestWriteSearchHits(t *testing.T) {
	hits := []backtest.SearchHit{
		{Video: models.HistoricalVideo{VideoID: "v1", Platform: "youtube", Category: "Food", Title: "Spicy", Hashtags: "#spicy"}, Score: 1.5},
	}
	var buf bytes.Buffer
	if err := WriteSearchHits(&buf, "spicy", hits, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"Found 1 videos", "Rank: 1", "ID: v1 (youtube, Food)", "Hashtags: #spicy"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("text output missing %q:\n%s", sub, buf.String())
		}
	}

	buf.Reset()
	if err := WriteSearchHits(&buf, "spicy", hits, OutputCompact); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "v1\t1.5000\tyoutube\tFood\tSpicy" {
		t.Errorf("compact = %q", got)
	}
}

func TestWriteReports(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	reports := []*models.Report{
		{ID: "r1", Platform: "tiktok", Strategy: models.Strategy{Title: "Wings"}, Result: sampleResponse(), CreatedAt: created},
		{ID: "r2", Platform: "youtube", Strategy: models.Strategy{Title: "Empty"}, CreatedAt: created},
	}
	var buf bytes.Buffer
	if err := WriteReports(&buf, reports, OutputText); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if lines[0] != "r1\t2024-05-01 12:30\ttiktok\t500\t5.00%\tWings" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "\t-\t-\t") {
		t.Errorf("report without result should print dashes: %q", lines[1])
	}

	buf.Reset()
	if err := WriteReports(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No saved reports") {
		t.Errorf("empty listing = %q", buf.String())
	}
}

func TestWriteReport_text(t *testing.T) {
	r := &models.Report{
		ID:        "r1",
		Platform:  "tiktok",
		Strategy:  models.Strategy{Title: "Wings", Hashtags: "#wings"},
		Features:  models.VideoFeatures{Category: "Food & Cooking"},
		Result:    sampleResponse(),
		CreatedAt: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}
	var buf bytes.Buffer
	if err := WriteReport(&buf, r, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"Report r1 (tiktok", "Title:    Wings", "Category: Food & Cooking", "Matched videos"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("output missing %q:\n%s", sub, buf.String())
		}
	}
}
