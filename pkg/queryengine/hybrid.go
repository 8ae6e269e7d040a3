package queryengine

import (
	"sort"

	"github.com/agenticmemory/amem/pkg/event"
)

// HybridSearchParams configures HybridSearch.
type HybridSearchParams struct {
	Text       TextSearchParams
	Vector     SimilarityParams
	RRFk       int // Reciprocal Rank Fusion constant, default 60
	TextWeight float64
	VectorWeight float64
	MaxResults int
}

// HybridSearch runs TextSearch and Similarity independently, then fuses
// their ranked lists via weighted Reciprocal Rank Fusion: each list
// contributes weight / (k + rank) to a candidate's fused score, rank
// counted from 1.
func (e *Engine) HybridSearch(p HybridSearchParams) []Scored {
	k := p.RRFk
	if k <= 0 {
		k = 60
	}

	textRanked := e.TextSearch(p.Text)
	vectorRanked := e.Similarity(p.Vector)

	fused := make(map[event.NodeID]float64)
	for i, s := range textRanked {
		fused[s.ID] += p.TextWeight / float64(k+i+1)
	}
	for i, s := range vectorRanked {
		fused[s.ID] += p.VectorWeight / float64(k+i+1)
	}

	out := make([]Scored, 0, len(fused))
	for id, score := range fused {
		out = append(out, Scored{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})

	if p.MaxResults > 0 && len(out) > p.MaxResults {
		out = out[:p.MaxResults]
	}
	return out
}
