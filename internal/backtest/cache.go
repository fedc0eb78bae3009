package backtest

import (
	"strconv"
	"strings"

	"github.com/hyperjump/chimera/internal/models"
)

// cacheKey identifies a query against one corpus version. Fields are length-prefixed
// so that no two distinct queries share a key.
func cacheKey(q models.QueryDescriptor, version uint64) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(version, 10))
	for _, field := range []string{q.Platform, q.Category, q.Title, q.CoverDescription, q.Hashtags} {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(len(field)))
		b.WriteByte(':')
		b.WriteString(field)
	}
	return b.String()
}

func cloneResponse(r *models.BacktestResponse) *models.BacktestResponse {
	if r == nil {
		return nil
	}
	out := *r
	if r.Predictions != nil {
		p := *r.Predictions
		p.Views = append([]models.Point(nil), r.Predictions.Views...)
		p.CTR = append([]models.Point(nil), r.Predictions.CTR...)
		p.Likes = append([]models.Point(nil), r.Predictions.Likes...)
		out.Predictions = &p
	}
	out.MatchedVideos = append([]models.MatchedVideo(nil), r.MatchedVideos...)
	return &out
}
