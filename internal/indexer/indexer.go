// Package indexer imports historical datasets into storage and the keyword index.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/chimera/internal/dataset"
	"github.com/hyperjump/chimera/internal/keyword"
	"github.com/hyperjump/chimera/internal/models"
	"github.com/hyperjump/chimera/internal/storage"
)

// Indexer imports datasets into storage and the keyword index.
type Indexer struct {
	storage      storage.Storage
	keywordIndex keyword.KeywordIndex
	logger       *zap.Logger // optional; when set, logs debug events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for import progress and dataset warnings.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer. keywordIndex may be nil to skip full-text indexing.
func NewIndexer(store storage.Storage, keywordIndex keyword.KeywordIndex, opts ...IndexerOption) *Indexer {
	idx := &Indexer{storage: store, keywordIndex: keywordIndex}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = zap.NewNop()
	}
	return idx
}

// ImportFile loads the dataset at path and imports it, replacing the stored corpus.
func (idx *Indexer) ImportFile(ctx context.Context, path string) (*models.ImportInfo, error) {
	idx.logger.Debug("indexer importing file", zap.String("path", path))
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if !extensionAllowed(filepath.Ext(absPath), dataset.Extensions) {
		return nil, fmt.Errorf("extension %q not in allowed list %v", filepath.Ext(absPath), dataset.Extensions)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	ds, err := dataset.Load(absPath, dataset.WithLogger(idx.logger))
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return idx.Import(ctx, ds)
}

// Import replaces the stored corpus with ds and rebuilds the keyword index.
// Text fields are whitespace-normalized before they are stored.
func (idx *Indexer) Import(ctx context.Context, ds *dataset.Dataset) (*models.ImportInfo, error) {
	videos := make([]models.HistoricalVideo, ds.Len())
	for i, v := range ds.Videos() {
		v.Platform = strings.ToLower(Preprocess(v.Platform))
		v.Category = Preprocess(v.Category)
		v.Title = Preprocess(v.Title)
		v.CoverDescription = Preprocess(v.CoverDescription)
		v.Hashtags = Preprocess(v.Hashtags)
		videos[i] = v
	}

	info, err := idx.storage.ReplaceCorpus(ctx, ds.Source(), videos, ds.Records())
	if err != nil {
		return nil, fmt.Errorf("failed to store corpus: %w", err)
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Replace(ctx, videos); err != nil {
			return nil, fmt.Errorf("failed to index keywords: %w", err)
		}
	}
	idx.logger.Info("dataset imported",
		zap.String("source", info.Source), zap.Int("videos", info.Videos), zap.Int64("import_id", info.ID))
	return info, nil
}

// Load reads the stored corpus back as a Dataset.
func (idx *Indexer) Load(ctx context.Context) (*dataset.Dataset, error) {
	videos, err := idx.storage.ListVideos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	records, err := idx.storage.ListTimeSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list time series: %w", err)
	}
	source := "storage"
	if latest, err := idx.storage.LatestImport(ctx); err == nil && latest != nil {
		source = latest.Source
	}
	return dataset.New(videos, records, dataset.WithSource(source), dataset.WithLogger(idx.logger)), nil
}

// Reindex rebuilds the keyword index from storage, e.g. after the index directory was removed.
func (idx *Indexer) Reindex(ctx context.Context) (int, error) {
	if idx.keywordIndex == nil {
		return 0, nil
	}
	videos, err := idx.storage.ListVideos(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list videos: %w", err)
	}
	if err := idx.keywordIndex.Replace(ctx, videos); err != nil {
		return 0, fmt.Errorf("failed to index keywords: %w", err)
	}
	idx.logger.Debug("keyword index rebuilt", zap.Int("videos", len(videos)))
	return len(videos), nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
