package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hyperjump/chimera/internal/backtest"
	"github.com/hyperjump/chimera/internal/dataset"
	"github.com/hyperjump/chimera/internal/models"
	"github.com/hyperjump/chimera/internal/similarity"
	"github.com/hyperjump/chimera/internal/storage"
	"github.com/hyperjump/chimera/internal/timeseries"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeNoCorpus         = "NO_CORPUS"
	CodeNotConfigured    = "NOT_CONFIGURED"
	CodeInternal         = "INTERNAL"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// errorStatus maps an engine error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, storage.ErrReportNotFound),
		errors.Is(err, storage.ErrVideoNotFound),
		errors.Is(err, dataset.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, similarity.ErrInsufficientData),
		errors.Is(err, timeseries.ErrEmptyAggregation):
		return http.StatusUnprocessableEntity, CodeInsufficientData
	case errors.Is(err, backtest.ErrNoCorpus):
		return http.StatusServiceUnavailable, CodeNoCorpus
	case errors.Is(err, backtest.ErrReportsDisabled),
		errors.Is(err, backtest.ErrSearchDisabled):
		return http.StatusNotImplemented, CodeNotConfigured
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondEngineError writes err with the status errorStatus assigns to it.
func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	body := errorResponse{Error: err.Error(), Code: code}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	s.respondJSON(w, status, body)
}
