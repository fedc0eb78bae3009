// Package storage defines the persistence interface for the historical corpus and saved reports.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/chimera/internal/models"
)

var (
	// ErrReportNotFound is returned when no report has the requested ID.
	ErrReportNotFound = errors.New("report not found")
	// ErrVideoNotFound is returned when no video has the requested ID.
	ErrVideoNotFound = errors.New("video not found")
)

// Storage defines corpus and report persistence operations.
type Storage interface {
	// Corpus operations
	ReplaceCorpus(ctx context.Context, source string, videos []models.HistoricalVideo, records []models.TimeSeriesRecord) (*models.ImportInfo, error)
	ListVideos(ctx context.Context) ([]models.HistoricalVideo, error)
	GetVideo(ctx context.Context, id string) (*models.HistoricalVideo, error)
	GetVideos(ctx context.Context, ids []string) ([]models.HistoricalVideo, error)
	ListTimeSeries(ctx context.Context) ([]models.TimeSeriesRecord, error)
	GetTimeSeries(ctx context.Context, ids []string) ([]models.TimeSeriesRecord, error)
	LatestImport(ctx context.Context) (*models.ImportInfo, error)

	// Report operations
	SaveReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context, offset, limit int) ([]*models.Report, error)
	DeleteReport(ctx context.Context, id string) error

	// Stats
	CountVideos(ctx context.Context) (int64, error)
	CountReports(ctx context.Context) (int64, error)

	Close() error
}
