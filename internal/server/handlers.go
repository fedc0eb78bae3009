package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/chimera/internal/keyword"
	"github.com/hyperjump/chimera/internal/models"
	"github.com/hyperjump/chimera/internal/storage"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

type endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var endpoints = []endpoint{
	{"GET", "/health", "service health and corpus status"},
	{"POST", "/api/v1/backtest", "predict 24h performance of a strategy"},
	{"POST", "/api/v1/similar", "find the closest historical videos"},
	{"GET", "/api/v1/videos/search", "keyword search over the corpus"},
	{"GET", "/api/v1/videos/{id}", "corpus video with its time series"},
	{"GET", "/api/v1/stats", "corpus and storage statistics"},
	{"POST", "/api/v1/corpus/reload", "re-import the dataset file"},
	{"GET", "/api/v1/reports", "list saved reports"},
	{"POST", "/api/v1/reports", "run a backtest and save it"},
	{"GET", "/api/v1/reports/{id}", "get a saved report"},
	{"DELETE", "/api/v1/reports/{id}", "delete a saved report"},
	{"GET", "/metrics", "prometheus metrics"},
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":      "chimera",
		"endpoints": endpoints,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok", "corpus_loaded": false}
	if snap := s.engine.Corpus(); snap != nil {
		resp["corpus_loaded"] = true
		resp["corpus_version"] = snap.Version
		resp["videos"] = snap.Dataset.Len()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req models.BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body")
		return
	}
	s.logger.Debug("backtest request",
		zap.String("platform", req.Platform),
		zap.String("category", req.Features.Category),
		zap.String("title", req.Strategy.Title),
	)
	resp, err := s.engine.Run(r.Context(), &req)
	if err != nil {
		s.logger.Error("backtest failed", zap.Error(err))
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type similarRequest struct {
	models.QueryDescriptor
	Breakdown bool `json:"breakdown"`
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	var req similarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body")
		return
	}
	resp, err := s.engine.Similar(r.Context(), req.QueryDescriptor, req.Breakdown)
	if err != nil {
		s.logger.Error("similar failed", zap.Error(err))
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVideoSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, CodeInvalidRequest, "query parameter q is required")
		return
	}
	limit, err := intParam(r, "limit", defaultSearchLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, CodeInvalidRequest, "limit must be a positive integer")
		return
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	opts := &keyword.SearchOptions{
		Platform:     strings.ToLower(r.URL.Query().Get("platform")),
		FuzzyEnabled: r.URL.Query().Get("fuzzy") == "true",
	}
	hits, err := s.engine.Search(r.Context(), q, limit, opts)
	if err != nil {
		s.logger.Error("video search failed", zap.Error(err))
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   q,
		"results": hits,
		"total":   len(hits),
	})
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	detail, err := s.engine.Video(chi.URLParam(r, "id"))
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats()
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	resp := map[string]interface{}{"corpus": stats}
	if s.storage != nil {
		ctx := r.Context()
		reports, err := s.storage.CountReports(ctx)
		if err != nil {
			s.logger.Error("stats: count reports failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, CodeInternal, err.Error())
			return
		}
		resp["reports"] = reports
		stored, err := s.storage.CountVideos(ctx)
		if err != nil {
			s.logger.Error("stats: count videos failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, CodeInternal, err.Error())
			return
		}
		resp["stored_videos"] = stored
		if latest, err := s.storage.LatestImport(ctx); err == nil && latest != nil {
			resp["last_import"] = latest
		}
	}
	if s.config != nil {
		diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.BleveIndexPath)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		s.respondError(w, http.StatusNotImplemented, CodeNotConfigured, "corpus import is not configured")
		return
	}
	info, err := s.ReloadCorpus(r.Context())
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "reloaded",
		"import":         info,
		"corpus_version": s.engine.Corpus().Version,
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, CodeInvalidRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil || limit < 0 {
		s.respondError(w, http.StatusBadRequest, CodeInvalidRequest, "limit must be a non-negative integer")
		return
	}
	reports, err := s.engine.ListReports(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list reports failed", zap.Error(err))
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req models.BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body")
		return
	}
	report, err := s.engine.SaveReport(r.Context(), &req)
	if err != nil {
		s.logger.Error("save report failed", zap.Error(err))
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete report request", zap.String("id", id))
	if err := s.engine.DeleteReport(r.Context(), id); err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
