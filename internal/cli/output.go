// Package cli provides output formatting for the chimera CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/chimera/internal/backtest"
	"github.com/hyperjump/chimera/internal/models"
	"github.com/hyperjump/chimera/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one tab-separated record per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteBacktest writes a backtest result to w in the given format.
func WriteBacktest(w io.Writer, resp *models.BacktestResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, resp)
	case OutputCompact:
		m := resp.Predictions.Metrics
		fmt.Fprintf(w, "views24h=%s\tctr24h=%s\tlikes24h=%s\n", m.Views24h, m.CTR24h, m.Likes24h)
		for _, v := range resp.MatchedVideos {
			fmt.Fprintf(w, "%s\t%.4f\t%s\t%s\t%s\n", v.VideoID, v.Similarity, v.CTR, v.Views24h, v.Title)
		}
		return nil
	default:
		writeBacktestText(w, resp)
		return nil
	}
}

func writeBacktestText(w io.Writer, resp *models.BacktestResponse) {
	p := resp.Predictions
	fmt.Fprintf(w, "\nPredicted 24h performance (%d matched videos, corpus v%d, %dms)\n\n",
		len(resp.MatchedVideos), resp.CorpusVersion, resp.QueryTime)
	fmt.Fprintf(w, "  views:  %s\n", p.Metrics.Views24h)
	fmt.Fprintf(w, "  ctr:    %s\n", p.Metrics.CTR24h)
	fmt.Fprintf(w, "  likes:  %s\n\n", p.Metrics.Likes24h)

	fmt.Fprintf(w, "  %-6s %12s %10s %10s\n", "time", "views", "ctr", "likes")
	for i := range p.Views {
		fmt.Fprintf(w, "  %-6s %12.0f %9.2f%% %10.0f\n",
			p.Views[i].Time, p.Views[i].Value, p.CTR[i].Value*100, p.Likes[i].Value)
	}

	fmt.Fprintln(w, "\n--- Matched videos ---")
	for i, v := range resp.MatchedVideos {
		fmt.Fprintf(w, "[%d] %.4f  %s  %s\n", i+1, v.Similarity, v.VideoID, utils.Truncate(v.Title, 60))
		fmt.Fprintf(w, "    ctr %s | views %s\n", v.CTR, v.Views24h)
	}
	if resp.ReportID != "" {
		fmt.Fprintf(w, "\nSaved as report %s\n", resp.ReportID)
	}
}

// WriteSearchHits writes keyword search hits to w in the given format.
func WriteSearchHits(w io.Writer, query string, hits []backtest.SearchHit, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, map[string]interface{}{"query": query, "results": hits, "total": len(hits)})
	case OutputCompact:
		for _, h := range hits {
			fmt.Fprintf(w, "%s\t%.4f\t%s\t%s\t%s\n", h.Video.VideoID, h.Score, h.Video.Platform, h.Video.Category, h.Video.Title)
		}
		return nil
	default:
		fmt.Fprintf(w, "\nFound %d videos for %q\n\n", len(hits), query)
		for i, h := range hits {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, h.Score)
			fmt.Fprintf(w, "ID: %s (%s, %s)\n", h.Video.VideoID, h.Video.Platform, h.Video.Category)
			fmt.Fprintf(w, "Title: %s\n", h.Video.Title)
			if h.Video.Hashtags != "" {
				fmt.Fprintf(w, "Hashtags: %s\n", h.Video.Hashtags)
			}
			fmt.Fprintln(w)
		}
		return nil
	}
}

// WriteReports writes a report listing to w in the given format.
func WriteReports(w io.Writer, reports []*models.Report, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, map[string]interface{}{"reports": reports})
	default:
		if len(reports) == 0 && format == OutputText {
			fmt.Fprintln(w, "No saved reports")
			return nil
		}
		for _, r := range reports {
			views, ctr := "-", "-"
			if r.Result != nil && r.Result.Predictions != nil {
				views = r.Result.Predictions.Metrics.Views24h
				ctr = r.Result.Predictions.Metrics.CTR24h
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Platform, views, ctr, utils.Truncate(r.Strategy.Title, 50))
		}
		return nil
	}
}

// WriteReport writes one report to w in the given format.
func WriteReport(w io.Writer, r *models.Report, format OutputFormat) error {
	if format == OutputJSON || r.Result == nil {
		return writeJSON(w, r)
	}
	if format == OutputText {
		fmt.Fprintf(w, "Report %s (%s, %s)\n", r.ID, r.Platform, r.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Title:    %s\n", r.Strategy.Title)
		if r.Strategy.Hashtags != "" {
			fmt.Fprintf(w, "Hashtags: %s\n", r.Strategy.Hashtags)
		}
		fmt.Fprintf(w, "Category: %s\n", r.Features.Category)
	}
	return WriteBacktest(w, r.Result, format)
}
