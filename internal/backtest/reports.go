package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/chimera/internal/models"
)

// DefaultReportLimit is the page size of ListReports when limit <= 0.
const DefaultReportLimit = 20

func (e *Engine) saveReport(ctx context.Context, req *models.BacktestRequest, resp *models.BacktestResponse) (*models.Report, error) {
	if e.store == nil {
		return nil, ErrReportsDisabled
	}
	report := &models.Report{
		Platform: req.Platform,
		Strategy: req.Strategy,
		Features: req.Features,
		Result:   resp,
	}
	if err := e.store.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	e.logger.Debug("report saved", zap.String("id", report.ID))
	return report, nil
}

// SaveReport runs a backtest for req and stores the result as a report.
func (e *Engine) SaveReport(ctx context.Context, req *models.BacktestRequest) (*models.Report, error) {
	if e.store == nil {
		return nil, ErrReportsDisabled
	}
	run := *req
	run.Save = false
	resp, err := e.Run(ctx, &run)
	if err != nil {
		return nil, err
	}
	return e.saveReport(ctx, req, resp)
}

// GetReport returns a saved report.
func (e *Engine) GetReport(ctx context.Context, id string) (*models.Report, error) {
	if e.store == nil {
		return nil, ErrReportsDisabled
	}
	return e.store.GetReport(ctx, id)
}

// ListReports returns saved reports, newest first.
func (e *Engine) ListReports(ctx context.Context, offset, limit int) ([]*models.Report, error) {
	if e.store == nil {
		return nil, ErrReportsDisabled
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultReportLimit
	}
	return e.store.ListReports(ctx, offset, limit)
}

// DeleteReport removes a saved report.
func (e *Engine) DeleteReport(ctx context.Context, id string) error {
	if e.store == nil {
		return ErrReportsDisabled
	}
	return e.store.DeleteReport(ctx, id)
}
