// Package e2e provides end-to-end tests; this file builds a historical corpus and
// backtest cases with known nearest neighbours.
package e2e

import (
	"fmt"

	"github.com/hyperjump/chimera/internal/models"
)

// Offsets of a curve as fractions of the 24h value.
var (
	countShape = []float64{0.1, 0.25, 0.45, 0.7, 1}
	ctrShape   = []float64{0.8, 0.9, 0.95, 1, 1}
)

// BacktestCase is a strategy with the corpus videos it must be matched against.
type BacktestCase struct {
	Description string
	Request     models.BacktestRequest
	// ExpectedIDs must all be among the matched videos.
	ExpectedIDs []string
	// ExpectedTop, when set, must be the best match.
	ExpectedTop string
	// ExpectedHeadline, when set, is the exact 24h headline.
	ExpectedHeadline *models.HeadlineMetrics
}

// Corpus holds the videos, their time series and the backtest cases.
type Corpus struct {
	Videos      []models.HistoricalVideo
	Records     []models.TimeSeriesRecord
	TestCases   []BacktestCase
	TotalVideos int
}

type seed struct {
	id, platform, category, title, cover, hashtags string
	hour                                           int
	views, ctr, likes                              float64
}

// Four clusters: six Food & Cooking videos on youtube, five Gaming on tiktok,
// five Tech on shorts and four Travel on youtube.
var seeds = []seed{
	{"food1", "youtube", "Food & Cooking", "Spicy noodle challenge", "red bowl of noodles", "#spicy #noodles", 18, 1000, 0.05, 100},
	{"food2", "youtube", "Food & Cooking", "Spicy noodles at midnight", "steaming noodles in a bowl", "#spicy #noodles #latenight", 23, 2000, 0.06, 200},
	{"food3", "youtube", "Food & Cooking", "Street food tour", "market stalls at night", "#streetfood", 12, 3000, 0.07, 300},
	{"food4", "youtube", "Food & Cooking", "Knife skills basics", "chef hands and cutting board", "#cooking #basics", 9, 4000, 0.08, 400},
	{"food5", "youtube", "Food & Cooking", "Five minute breakfast", "eggs on toast", "#breakfast", 7, 5000, 0.09, 500},
	{"food6", "youtube", "Food & Cooking", "Sourdough from scratch", "crusty loaf", "#baking", 10, 6000, 0.10, 600},

	{"game1", "tiktok", "Gaming", "Boss rush speedrun", "controller closeup", "#gaming #speedrun", 20, 1000, 0.05, 100},
	{"game2", "tiktok", "Gaming", "Any percent world record", "timer overlay", "#gaming #speedrun #wr", 21, 2000, 0.06, 200},
	{"game3", "tiktok", "Gaming", "Rage quit compilation", "shouting streamer", "#gaming #funny", 22, 3000, 0.07, 300},
	{"game4", "tiktok", "Gaming", "Hidden level secrets", "glowing portal", "#gaming #secrets", 19, 4000, 0.08, 400},
	{"game5", "tiktok", "Gaming", "Retro console unboxing", "dusty cartridge box", "#gaming #retro", 17, 5000, 0.09, 500},

	{"tech1", "shorts", "Tech", "Phone camera shootout", "two phones side by side", "#gadgets #review", 14, 8000, 0.11, 800},
	{"tech2", "shorts", "Tech", "Budget laptop review", "laptop on a desk", "#gadgets #review #laptop", 15, 7000, 0.12, 700},
	{"tech3", "shorts", "Tech", "Mechanical keyboard sounds", "keyboard macro shot", "#keyboard", 16, 6000, 0.13, 600},
	{"tech4", "shorts", "Tech", "Smart home in one minute", "lights turning on", "#smarthome", 13, 5000, 0.14, 500},
	{"tech5", "shorts", "Tech", "Earbuds battery test", "charging case", "#audio #review", 11, 4000, 0.15, 400},

	{"travel1", "youtube", "Travel", "Hiking the Alps", "snowy ridge at sunrise", "#travel #alps #hiking", 6, 2500, 0.04, 250},
	{"travel2", "youtube", "Travel", "Alps hut to hut", "wooden mountain hut", "#travel #alps", 8, 3500, 0.05, 350},
	{"travel3", "youtube", "Travel", "Tokyo night walk", "neon alley", "#travel #tokyo", 21, 4500, 0.06, 450},
	{"travel4", "youtube", "Travel", "Lisbon tram ride", "yellow tram", "#travel #lisbon", 15, 5500, 0.07, 550},
}

// BuildCorpus returns the e2e corpus with its backtest cases.
func BuildCorpus() *Corpus {
	c := &Corpus{
		Videos:  make([]models.HistoricalVideo, 0, len(seeds)),
		Records: make([]models.TimeSeriesRecord, 0, len(seeds)),
	}
	for _, s := range seeds {
		c.Videos = append(c.Videos, models.HistoricalVideo{
			VideoID:          s.id,
			Platform:         s.platform,
			Category:         s.category,
			Title:            s.title,
			CoverDescription: s.cover,
			Hashtags:         s.hashtags,
			PostingHour:      s.hour,
		})
		c.Records = append(c.Records, series(s))
	}
	c.TotalVideos = len(c.Videos)
	c.TestCases = testCases()
	return c
}

func series(s seed) models.TimeSeriesRecord {
	rec := models.TimeSeriesRecord{VideoID: s.id}
	for i, o := range models.Offsets {
		rec.SetValue(models.MetricViews, o, s.views*countShape[i])
		rec.SetValue(models.MetricLikes, o, s.likes*countShape[i])
		rec.SetValue(models.MetricCTR, o, s.ctr*ctrShape[i])
	}
	return rec
}

func request(title, cover, hashtags, category, platform string) models.BacktestRequest {
	return models.BacktestRequest{
		Strategy: models.Strategy{Title: title, Cover: cover, Hashtags: hashtags},
		Features: models.VideoFeatures{Category: category},
		Platform: platform,
	}
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}

func testCases() []BacktestCase {
	return []BacktestCase{
		{
			Description: "food strategy matches its exact twin first",
			Request:     request("Spicy noodle challenge", "red bowl of noodles", "#spicy #noodles", "Food & Cooking", "youtube"),
			ExpectedIDs: []string{"food1", "food2"},
			ExpectedTop: "food1",
		},
		{
			// food3..food6 tie on category and platform alone; corpus order keeps food3..food5.
			Description: "spiciest noodles strategy keeps the five earliest food rows",
			Request:     request("Spiciest Noodles Challenge", "spicy noodles closeup", "#spicy #noodles #foodchallenge", "Food & Cooking", "youtube"),
			ExpectedIDs: ids("food", 5),
			ExpectedTop: "food1",
		},
		{
			Description: "gaming strategy on tiktok selects the whole gaming cluster",
			Request:     request("Speedrun any percent", "controller", "#gaming #speedrun", "Gaming", "tiktok"),
			ExpectedIDs: ids("game", 5),
			ExpectedHeadline: &models.HeadlineMetrics{
				Views24h: "3000",
				CTR24h:   "7.00%",
				Likes24h: "300",
			},
		},
		{
			Description: "tech strategy on shorts selects the tech cluster",
			Request:     request("Gadget review in sixty seconds", "phone on a desk", "#gadgets #review", "Tech", "shorts"),
			ExpectedIDs: ids("tech", 5),
			ExpectedHeadline: &models.HeadlineMetrics{
				Views24h: "6000",
				CTR24h:   "13.00%",
				Likes24h: "600",
			},
		},
		{
			Description: "travel strategy keeps all four travel videos",
			Request:     request("Alps hiking diary", "mountain ridge", "#travel #alps", "Travel", "youtube"),
			ExpectedIDs: ids("travel", 4),
		},
		{
			Description: "hashtags are case-insensitive",
			Request:     request("Retro games", "", "#GAMING #RETRO", "gaming", "tiktok"),
			ExpectedIDs: ids("game", 5),
			ExpectedTop: "game5",
		},
	}
}
