package config

import "github.com/hyperjump/chimera/internal/backtest"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/chimera/data/db/chimera.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/chimera/data/indices/bleve"
	}
	cfg.Matching.Config.ApplyDefaults()
	if cfg.Matching.CacheSize == 0 {
		cfg.Matching.CacheSize = backtest.DefaultCacheSize
	}
}
