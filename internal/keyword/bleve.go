package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/chimera/internal/models"
)

const (
	defaultTitleBoost = 2.0
	defaultFuzziness  = 1
	batchSize         = 500
)

var textFields = []string{FieldTitle, FieldCover, FieldHashtags, FieldCategory}

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase + tokenize, no stemming, drops the leading '#' of hashtags
	textFieldMapping.Analyzer = standard.Name
	for _, f := range textFields {
		docMapping.AddFieldMappingsAt(f, textFieldMapping)
	}
	docMapping.AddFieldMappingsAt(FieldPlatform, bleve.NewKeywordFieldMapping())

	im.AddDocumentMapping("video", docMapping)
	im.DefaultType = "video"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates an in-memory index.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func videoDoc(v *models.HistoricalVideo) map[string]interface{} {
	return map[string]interface{}{
		FieldTitle:    v.Title,
		FieldCover:    v.CoverDescription,
		FieldHashtags: v.Hashtags,
		FieldCategory: v.Category,
		FieldPlatform: v.Platform,
	}
}

// Index indexes one video by its ID.
func (b *BleveIndex) Index(ctx context.Context, video *models.HistoricalVideo) error {
	return b.index.Index(video.VideoID, videoDoc(video))
}

// Replace removes all indexed videos and indexes videos in batches.
func (b *BleveIndex) Replace(ctx context.Context, videos []models.HistoricalVideo) error {
	ids, err := b.allIDs(ctx)
	if err != nil {
		return err
	}

	batch := b.index.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("Bleve batch failed: %w", err)
		}
		batch.Reset()
		return nil
	}

	for _, id := range ids {
		batch.Delete(id)
		if batch.Size() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	for i := range videos {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(videos[i].VideoID, videoDoc(&videos[i])); err != nil {
			return fmt.Errorf("failed to index video %s: %w", videos[i].VideoID, err)
		}
		if batch.Size() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (b *BleveIndex) allIDs(ctx context.Context) ([]string, error) {
	count, err := b.index.DocCount()
	if err != nil || count == 0 {
		return nil, err
	}
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	ids := make([]string, len(results.Hits))
	for i, hit := range results.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Search runs a match query over title, cover, hashtags and category and returns up to limit results.
// Title matches are boosted by opts.TitleBoost; opts.Platform filters hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	terms := tokenizeQuery(query)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	titleBoost := defaultTitleBoost
	fuzziness := defaultFuzziness
	fuzzyEnabled := false
	platform := ""
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
		fuzzyEnabled = opts.FuzzyEnabled
		platform = opts.Platform
	}

	fieldQueries := make([]blevequery.Query, 0, len(textFields))
	for _, field := range textFields {
		boost := 1.0
		if field == FieldTitle {
			boost = titleBoost
		}
		if fuzzyEnabled {
			fieldQueries = append(fieldQueries, buildFuzzyQuery(terms, fuzziness, field, boost))
			continue
		}
		mq := bleve.NewMatchQuery(strings.Join(terms, " "))
		mq.SetField(field)
		mq.SetBoost(boost)
		fieldQueries = append(fieldQueries, mq)
	}

	var q blevequery.Query = bleve.NewDisjunctionQuery(fieldQueries...)
	if platform != "" {
		pq := bleve.NewTermQuery(platform)
		pq.SetField(FieldPlatform)
		q = bleve.NewConjunctionQuery(q, pq)
	}

	search := bleve.NewSearchRequest(q)
	search.Size = limit
	results, err := b.index.SearchInContext(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms without hashtag markers.
func tokenizeQuery(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimLeft(w, "#")
		if w != "" {
			terms = append(terms, w)
		}
	}
	return terms
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per term, restricted to field.
func buildFuzzyQuery(terms []string, fuzziness int, field string, boost float64) blevequery.Query {
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		fq.SetBoost(boost)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a video from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of videos in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
