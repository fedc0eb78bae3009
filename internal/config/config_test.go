package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

func TestLoad(t *testing.T) {
	_, path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("Addr() = %s", cfg.Server.Addr())
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Matching.CategoryWeight != 0.40 {
		t.Errorf("category_weight default: got %v", cfg.Matching.CategoryWeight)
	}
}

func TestLoad_debugTrue(t *testing.T) {
	_, path := writeConfig(t, `
debug: true
storage:
  database_path: "test.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_matchingWeights(t *testing.T) {
	_, path := writeConfig(t, `
matching:
  category_weight: 0.5
  platform_weight: 0.0
  hashtag_weight: 0.2
  title_weight: 0.2
  cover_weight: 0.1
  workers: 4
  cache_size: -1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	m := cfg.Matching
	if m.CategoryWeight != 0.5 || m.PlatformWeight != 0 || m.HashtagWeight != 0.2 {
		t.Errorf("weights not loaded: %+v", m.Config)
	}
	if m.Workers != 4 {
		t.Errorf("workers = %d, want 4", m.Workers)
	}
	if m.CacheSize != -1 {
		t.Errorf("cache_size = %d, want -1", m.CacheSize)
	}
	if m.ParallelThreshold != 2000 {
		t.Errorf("parallel_threshold default: got %d", m.ParallelThreshold)
	}
}

func TestLoad_invalidWeight(t *testing.T) {
	_, path := writeConfig(t, `
matching:
  title_weight: -0.5
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir, path := writeConfig(t, `
storage:
  database_path: "./data/db/chimera.db"
  bleve_index_path: ":memory:"
dataset:
  path: "./data/videos.csv"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "chimera.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if cfg.Storage.BleveIndexPath != ":memory:" {
		t.Errorf("bleve_index_path = %s, want :memory:", cfg.Storage.BleveIndexPath)
	}
	wantDataset := filepath.Join(dir, "data", "videos.csv")
	if cfg.Dataset.Path != wantDataset {
		t.Errorf("dataset path = %s, want %s", cfg.Dataset.Path, wantDataset)
	}
	if !cfg.Dataset.WatchOrDefault() {
		t.Error("watch should default to true when a dataset path is set")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Matching.CacheSize != 256 {
		t.Errorf("default cache_size: got %d", cfg.Matching.CacheSize)
	}
	if cfg.Matching.Workers != 1 {
		t.Errorf("default workers: got %d", cfg.Matching.Workers)
	}
	if cfg.Dataset.WatchOrDefault() {
		t.Error("watch should be off without a dataset path")
	}
}

func TestDatasetConfig_WatchOrDefault(t *testing.T) {
	f := false
	d := &DatasetConfig{Path: "/tmp/videos.csv", Watch: &f}
	if d.WatchOrDefault() {
		t.Error("explicit watch: false must win")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	cfg.Matching.TitleWeight = 0.3
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Matching.TitleWeight != 0.3 {
		t.Errorf("loaded title_weight: got %v", loaded.Matching.TitleWeight)
	}
}
