// Package server provides the HTTP API for chimera.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/chimera/internal/backtest"
	"github.com/hyperjump/chimera/internal/config"
	"github.com/hyperjump/chimera/internal/indexer"
	"github.com/hyperjump/chimera/internal/metrics"
	"github.com/hyperjump/chimera/internal/models"
	"github.com/hyperjump/chimera/internal/storage"
)

// Server is the HTTP server for the chimera API.
type Server struct {
	engine  *backtest.Engine
	indexer *indexer.Indexer
	storage storage.Storage
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server

	reloadMu sync.Mutex
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *backtest.Engine,
	idx *indexer.Indexer,
	storage storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:  engine,
		indexer: idx,
		storage: storage,
		config:  cfg,
		logger:  logger,
	}
}

// Router builds the HTTP handler with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(instrument)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/backtest", s.handleBacktest)
		r.Post("/similar", s.handleSimilar)
		r.Get("/videos/search", s.handleVideoSearch)
		r.Get("/videos/{id}", s.handleGetVideo)
		r.Get("/stats", s.handleStats)
		r.Post("/corpus/reload", s.handleReload)

		r.Get("/reports", s.handleListReports)
		r.Post("/reports", s.handleCreateReport)
		r.Get("/reports/{id}", s.handleGetReport)
		r.Delete("/reports/{id}", s.handleDeleteReport)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ReloadCorpus imports the configured dataset file, if any, and swaps the engine
// onto the stored corpus. Without a dataset path the corpus is read from storage and
// the keyword index is rebuilt from it.
func (s *Server) ReloadCorpus(ctx context.Context) (*models.ImportInfo, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	info, err := s.reloadCorpus(ctx)
	if err != nil {
		metrics.RecordCorpusReload(err, 0)
		s.logger.Error("corpus reload failed", zap.Error(err))
		return nil, err
	}
	return info, nil
}

func (s *Server) reloadCorpus(ctx context.Context) (*models.ImportInfo, error) {
	var info *models.ImportInfo
	if path := s.config.Dataset.Path; path != "" {
		imported, err := s.indexer.ImportFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to import dataset: %w", err)
		}
		info = imported
	}
	ds, err := s.indexer.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	if info == nil {
		if _, err := s.indexer.Reindex(ctx); err != nil {
			return nil, fmt.Errorf("failed to rebuild keyword index: %w", err)
		}
		info = &models.ImportInfo{Source: ds.Source(), Videos: ds.Len()}
	}
	s.engine.SetCorpus(ds)
	return info, nil
}
