package similarity

import (
	"fmt"
	"math"
)

// Config holds the field weights and execution settings of the matcher.
type Config struct {
	// Field weights; the defaults sum to 1.0
	CategoryWeight float64 `yaml:"category_weight"` // default: 0.40
	PlatformWeight float64 `yaml:"platform_weight"` // default: 0.10
	HashtagWeight  float64 `yaml:"hashtag_weight"`  // default: 0.25
	TitleWeight    float64 `yaml:"title_weight"`    // default: 0.15
	CoverWeight    float64 `yaml:"cover_weight"`    // default: 0.10

	// PartialCategoryScore is the raw category score when only the first word matches.
	PartialCategoryScore float64 `yaml:"partial_category_score"` // default: 0.5

	// Workers is the number of goroutines scoring candidates. 1 scores sequentially.
	Workers int `yaml:"workers"` // default: 1
	// ParallelThreshold is the corpus size from which Workers > 1 takes effect.
	ParallelThreshold int `yaml:"parallel_threshold"` // default: 2000
}

// DefaultConfig returns the default matcher configuration.
func DefaultConfig() *Config {
	return &Config{
		CategoryWeight: 0.40,
		PlatformWeight: 0.10,
		HashtagWeight:  0.25,
		TitleWeight:    0.15,
		CoverWeight:    0.10,

		PartialCategoryScore: 0.5,

		Workers:           1,
		ParallelThreshold: 2000,
	}
}

// ApplyDefaults fills in zero values with defaults.
// Weights are filled only when all five are zero, so a config may disable a single field.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.CategoryWeight == 0 && c.PlatformWeight == 0 && c.HashtagWeight == 0 &&
		c.TitleWeight == 0 && c.CoverWeight == 0 {
		c.CategoryWeight = defaults.CategoryWeight
		c.PlatformWeight = defaults.PlatformWeight
		c.HashtagWeight = defaults.HashtagWeight
		c.TitleWeight = defaults.TitleWeight
		c.CoverWeight = defaults.CoverWeight
	}
	if c.PartialCategoryScore == 0 {
		c.PartialCategoryScore = defaults.PartialCategoryScore
	}
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.ParallelThreshold <= 0 {
		c.ParallelThreshold = defaults.ParallelThreshold
	}
}

// Validate returns an error when a weight is negative or not finite.
func (c *Config) Validate() error {
	weights := []struct {
		name  string
		value float64
	}{
		{"category_weight", c.CategoryWeight},
		{"platform_weight", c.PlatformWeight},
		{"hashtag_weight", c.HashtagWeight},
		{"title_weight", c.TitleWeight},
		{"cover_weight", c.CoverWeight},
		{"partial_category_score", c.PartialCategoryScore},
	}
	for _, w := range weights {
		if w.value < 0 || math.IsNaN(w.value) || math.IsInf(w.value, 0) {
			return fmt.Errorf("invalid %s: %v", w.name, w.value)
		}
	}
	if c.PartialCategoryScore > 1 {
		return fmt.Errorf("invalid partial_category_score: %v (must be <= 1)", c.PartialCategoryScore)
	}
	return nil
}
