package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/chimera/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// seriesColumns are the time_series metric columns in models.Metrics x models.Offsets order.
var seriesColumns = func() []string {
	cols := make([]string, 0, len(models.Metrics)*len(models.Offsets))
	for _, m := range models.Metrics {
		for _, o := range models.Offsets {
			cols = append(cols, models.ColumnName(m, o))
		}
	}
	return cols
}()

const videoColumns = "video_id, platform, category, title, cover_description, hashtags, posting_hour"

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	metricDefs := make([]string, len(seriesColumns))
	for i, c := range seriesColumns {
		metricDefs[i] = c + " REAL NOT NULL DEFAULT 0"
	}

	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		video_id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		platform TEXT,
		category TEXT,
		title TEXT,
		cover_description TEXT,
		hashtags TEXT,
		posting_hour INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_videos_position ON videos(position);

	CREATE TABLE IF NOT EXISTS time_series (
		video_id TEXT PRIMARY KEY,
		` + strings.Join(metricDefs, ",\n\t\t") + `,
		FOREIGN KEY (video_id) REFERENCES videos(video_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS imports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT,
		videos INTEGER NOT NULL,
		imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		platform TEXT,
		strategy TEXT NOT NULL,
		features TEXT NOT NULL,
		result TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceCorpus swaps the stored corpus for videos and records in one transaction.
// Videos keep their slice order; records whose video is absent are skipped.
func (s *SQLiteStorage) ReplaceCorpus(ctx context.Context, source string, videos []models.HistoricalVideo, records []models.TimeSeriesRecord) (*models.ImportInfo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM time_series`); err != nil {
		return nil, fmt.Errorf("failed to clear time series: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM videos`); err != nil {
		return nil, fmt.Errorf("failed to clear videos: %w", err)
	}

	videoStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO videos (`+videoColumns+`, position) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer videoStmt.Close()

	known := make(map[string]bool, len(videos))
	for i, v := range videos {
		if _, err := videoStmt.ExecContext(ctx,
			v.VideoID, v.Platform, v.Category, v.Title, v.CoverDescription, v.Hashtags, v.PostingHour, i,
		); err != nil {
			return nil, fmt.Errorf("failed to insert video %s: %w", v.VideoID, err)
		}
		known[v.VideoID] = true
	}

	seriesStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO time_series (video_id, `+strings.Join(seriesColumns, ", ")+`)
		 VALUES (?`+strings.Repeat(", ?", len(seriesColumns))+`)`)
	if err != nil {
		return nil, err
	}
	defer seriesStmt.Close()

	for i := range records {
		r := &records[i]
		if !known[r.VideoID] {
			continue
		}
		args := make([]interface{}, 0, len(seriesColumns)+1)
		args = append(args, r.VideoID)
		for _, m := range models.Metrics {
			for _, o := range models.Offsets {
				args = append(args, r.Value(m, o))
			}
		}
		if _, err := seriesStmt.ExecContext(ctx, args...); err != nil {
			return nil, fmt.Errorf("failed to insert time series %s: %w", r.VideoID, err)
		}
	}

	info := &models.ImportInfo{Source: source, Videos: len(known), ImportedAt: time.Now().UTC()}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO imports (source, videos, imported_at) VALUES (?, ?, ?)`,
		info.Source, info.Videos, info.ImportedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}
	info.ID, _ = res.LastInsertId()

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return info, nil
}

// ListVideos returns the stored corpus in import order.
func (s *SQLiteStorage) ListVideos(ctx context.Context) ([]models.HistoricalVideo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVideos(rows)
}

// GetVideo returns a video by ID.
func (s *SQLiteStorage) GetVideo(ctx context.Context, id string) (*models.HistoricalVideo, error) {
	var v models.HistoricalVideo
	err := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE video_id = ?`, id).
		Scan(&v.VideoID, &v.Platform, &v.Category, &v.Title, &v.CoverDescription, &v.Hashtags, &v.PostingHour)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVideos returns the videos of ids in the order requested. Unknown IDs are skipped.
func (s *SQLiteStorage) GetVideos(ctx context.Context, ids []string) ([]models.HistoricalVideo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE video_id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	videos, err := scanVideos(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.HistoricalVideo, len(videos))
	for _, v := range videos {
		byID[v.VideoID] = v
	}
	out := make([]models.HistoricalVideo, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func scanVideos(rows *sql.Rows) ([]models.HistoricalVideo, error) {
	var videos []models.HistoricalVideo
	for rows.Next() {
		var v models.HistoricalVideo
		if err := rows.Scan(&v.VideoID, &v.Platform, &v.Category, &v.Title, &v.CoverDescription, &v.Hashtags, &v.PostingHour); err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// ListTimeSeries returns every stored time series in corpus order.
func (s *SQLiteStorage) ListTimeSeries(ctx context.Context) ([]models.TimeSeriesRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.video_id, `+prefixed("t.", seriesColumns)+`
		 FROM time_series t JOIN videos v ON v.video_id = t.video_id
		 ORDER BY v.position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeries(rows)
}

// GetTimeSeries returns the time series of ids in the order requested. Unknown IDs are skipped.
func (s *SQLiteStorage) GetTimeSeries(ctx context.Context, ids []string) ([]models.TimeSeriesRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, `+strings.Join(seriesColumns, ", ")+`
		 FROM time_series WHERE video_id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanSeries(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.TimeSeriesRecord, len(records))
	for _, r := range records {
		byID[r.VideoID] = r
	}
	out := make([]models.TimeSeriesRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func scanSeries(rows *sql.Rows) ([]models.TimeSeriesRecord, error) {
	var records []models.TimeSeriesRecord
	values := make([]float64, len(seriesColumns))
	dest := make([]interface{}, len(seriesColumns)+1)
	for i := range values {
		dest[i+1] = &values[i]
	}
	for rows.Next() {
		var r models.TimeSeriesRecord
		dest[0] = &r.VideoID
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		i := 0
		for _, m := range models.Metrics {
			for _, o := range models.Offsets {
				r.SetValue(m, o, values[i])
				i++
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// LatestImport returns the most recent import, or nil when nothing was imported yet.
func (s *SQLiteStorage) LatestImport(ctx context.Context) (*models.ImportInfo, error) {
	var info models.ImportInfo
	var source sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, videos, imported_at FROM imports ORDER BY id DESC LIMIT 1`,
	).Scan(&info.ID, &source, &info.Videos, &info.ImportedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info.Source = source.String
	return &info, nil
}

// SaveReport inserts a report. An empty ID is replaced by a new UUID and CreatedAt is set.
func (s *SQLiteStorage) SaveReport(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.Result != nil {
		report.Result.ReportID = report.ID
	}
	strategyJSON, err := json.Marshal(report.Strategy)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy: %w", err)
	}
	featuresJSON, err := json.Marshal(report.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}
	resultJSON, err := json.Marshal(report.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	report.CreatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, platform, strategy, features, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID, report.Platform, string(strategyJSON), string(featuresJSON), string(resultJSON), report.CreatedAt,
	)
	return err
}

// GetReport returns a report by ID.
func (s *SQLiteStorage) GetReport(ctx context.Context, id string) (*models.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, platform, strategy, features, result, created_at FROM reports WHERE id = ?`, id)
	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return report, err
}

// ListReports returns reports newest first with offset and limit.
func (s *SQLiteStorage) ListReports(ctx context.Context, offset, limit int) ([]*models.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, platform, strategy, features, result, created_at
		 FROM reports ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var r models.Report
	var platform sql.NullString
	var strategyJSON, featuresJSON, resultJSON string
	if err := row.Scan(&r.ID, &platform, &strategyJSON, &featuresJSON, &resultJSON, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Platform = platform.String
	if err := json.Unmarshal([]byte(strategyJSON), &r.Strategy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal strategy: %w", err)
	}
	if err := json.Unmarshal([]byte(featuresJSON), &r.Features); err != nil {
		return nil, fmt.Errorf("failed to unmarshal features: %w", err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &r.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &r, nil
}

// DeleteReport removes a report by ID.
func (s *SQLiteStorage) DeleteReport(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return nil
}

// CountVideos returns the number of stored videos.
func (s *SQLiteStorage) CountVideos(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&count)
	return count, err
}

// CountReports returns the number of saved reports.
func (s *SQLiteStorage) CountReports(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func prefixed(prefix string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return strings.Join(out, ", ")
}
