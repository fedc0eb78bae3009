// Package dataset loads historical video datasets into typed corpus and time-series records.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/chimera/internal/models"
)

var (
	// ErrNotFound is returned when none of the requested videos has time-series data.
	ErrNotFound = errors.New("no videos found with provided IDs")
	// ErrMalformed is returned when a dataset lacks a required column.
	ErrMalformed = errors.New("malformed dataset")
)

// Column names of the historical dataset.
const (
	ColVideoID          = "video_id"
	ColPlatform         = "platform"
	ColCategory         = "category"
	ColTitle            = "title"
	ColCoverDescription = "cover_description"
	ColHashtags         = "hashtags"
	ColPostingHour      = "posting_hour"
)

var requiredColumns = []string{ColVideoID}

// Dataset is an immutable, typed view of a historical dataset.
// Video IDs are unique; the first row of a repeated ID wins.
type Dataset struct {
	source  string
	videos  []models.HistoricalVideo
	records []models.TimeSeriesRecord
	index   map[string]int
	logger  *zap.Logger
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithLogger sets a logger for warnings about skipped rows and missing IDs.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dataset) { d.logger = l }
}

// WithSource records where the dataset came from.
func WithSource(source string) Option {
	return func(d *Dataset) { d.source = source }
}

// Load reads the dataset file at path. The format follows the file extension.
func Load(path string, opts ...Option) (*Dataset, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Parse(content, format, append([]Option{WithSource(path)}, opts...)...)
}

// Parse decodes content in the given format.
func Parse(content []byte, format Format, opts ...Option) (*Dataset, error) {
	rows, err := readRows(content, format)
	if err != nil {
		return nil, err
	}
	d := newDataset(opts)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformed)
	}

	header := indexHeader(rows[0])
	for _, col := range requiredColumns {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, col)
		}
	}

	for i, row := range rows[1:] {
		line := i + 2
		if isBlank(row) {
			continue
		}
		p := rowParser{header: header, row: row}
		v := models.HistoricalVideo{
			VideoID:          p.str(ColVideoID),
			Platform:         p.str(ColPlatform),
			Category:         p.str(ColCategory),
			Title:            p.str(ColTitle),
			CoverDescription: p.str(ColCoverDescription),
			Hashtags:         p.str(ColHashtags),
			PostingHour:      p.int(ColPostingHour),
		}
		if v.VideoID == "" {
			d.logger.Warn("skipping row without video_id", zap.Int("line", line))
			continue
		}
		rec := models.TimeSeriesRecord{VideoID: v.VideoID}
		for _, m := range models.Metrics {
			for _, o := range models.Offsets {
				rec.SetValue(m, o, p.float(models.ColumnName(m, o)))
			}
		}
		if len(p.invalid) > 0 {
			d.logger.Warn("unparseable numbers defaulted to 0",
				zap.Int("line", line), zap.String("video_id", v.VideoID), zap.Strings("columns", p.invalid))
		}
		if !d.add(v, rec) {
			d.logger.Warn("duplicate video_id ignored", zap.Int("line", line), zap.String("video_id", v.VideoID))
		}
	}

	d.logger.Info("dataset loaded", zap.String("source", d.source), zap.Int("videos", len(d.videos)))
	return d, nil
}

// New builds a Dataset from already typed records, e.g. rows read back from storage.
// Videos without a record get a zero-valued time series.
func New(videos []models.HistoricalVideo, records []models.TimeSeriesRecord, opts ...Option) *Dataset {
	d := newDataset(opts)
	byID := make(map[string]models.TimeSeriesRecord, len(records))
	for _, r := range records {
		if _, ok := byID[r.VideoID]; !ok {
			byID[r.VideoID] = r
		}
	}
	for _, v := range videos {
		rec, ok := byID[v.VideoID]
		if !ok {
			rec = models.TimeSeriesRecord{VideoID: v.VideoID}
		}
		d.add(v, rec)
	}
	return d
}

func newDataset(opts []Option) *Dataset {
	d := &Dataset{index: make(map[string]int)}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

func (d *Dataset) add(v models.HistoricalVideo, rec models.TimeSeriesRecord) bool {
	if _, ok := d.index[v.VideoID]; ok {
		return false
	}
	d.index[v.VideoID] = len(d.videos)
	d.videos = append(d.videos, v)
	d.records = append(d.records, rec)
	return true
}

// Source returns the path or label the dataset was loaded from.
func (d *Dataset) Source() string { return d.source }

// Len returns the number of videos.
func (d *Dataset) Len() int { return len(d.videos) }

// Videos returns the corpus in file order. Callers must not modify it.
func (d *Dataset) Videos() []models.HistoricalVideo { return d.videos }

// Lookup returns the video with the given ID.
func (d *Dataset) Lookup(id string) (models.HistoricalVideo, bool) {
	i, ok := d.index[id]
	if !ok {
		return models.HistoricalVideo{}, false
	}
	return d.videos[i], true
}

// Record returns the time series of one video.
func (d *Dataset) Record(id string) (models.TimeSeriesRecord, bool) {
	i, ok := d.index[id]
	if !ok {
		return models.TimeSeriesRecord{}, false
	}
	return d.records[i], true
}

// Records returns all time series in corpus order. Callers must not modify it.
func (d *Dataset) Records() []models.TimeSeriesRecord { return d.records }

// TimeSeries returns the records of ids in the order requested.
// Unknown IDs are logged and skipped; ErrNotFound is returned when none match.
func (d *Dataset) TimeSeries(ids []string) ([]models.TimeSeriesRecord, error) {
	out := make([]models.TimeSeriesRecord, 0, len(ids))
	var missing []string
	for _, id := range ids {
		i, ok := d.index[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, d.records[i])
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(ids, ", "))
	}
	if len(missing) > 0 {
		d.logger.Warn("some video IDs not found", zap.Strings("missing_ids", missing))
	}
	return out, nil
}

// Stats summarizes the dataset. Platforms and categories keep first-seen order.
func (d *Dataset) Stats() models.DatasetStats {
	stats := models.DatasetStats{
		TotalVideos: len(d.videos),
		Platforms:   []string{},
		Categories:  []string{},
	}
	seenPlatform := map[string]bool{}
	seenCategory := map[string]bool{}
	for _, v := range d.videos {
		if v.Platform != "" && !seenPlatform[v.Platform] {
			seenPlatform[v.Platform] = true
			stats.Platforms = append(stats.Platforms, v.Platform)
		}
		if v.Category != "" && !seenCategory[v.Category] {
			seenCategory[v.Category] = true
			stats.Categories = append(stats.Categories, v.Category)
		}
	}
	return stats
}

func indexHeader(row []string) map[string]int {
	header := make(map[string]int, len(row))
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := header[name]; !dup && name != "" {
			header[name] = i
		}
	}
	return header
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// rowParser reads typed cells by column name and collects the columns that failed to parse.
type rowParser struct {
	header  map[string]int
	row     []string
	invalid []string
}

func (p *rowParser) str(col string) string {
	i, ok := p.header[col]
	if !ok || i >= len(p.row) {
		return ""
	}
	return strings.TrimSpace(p.row[i])
}

func (p *rowParser) float(col string) float64 {
	s := p.str(col)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		p.invalid = append(p.invalid, col)
		return 0
	}
	return f
}

func (p *rowParser) int(col string) int {
	s := p.str(col)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.invalid = append(p.invalid, col)
		return 0
	}
	return n
}
