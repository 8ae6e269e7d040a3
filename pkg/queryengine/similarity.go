package queryengine

import (
	"sort"

	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/math/vector"
)

// SimilarityParams configures Similarity.
type SimilarityParams struct {
	Query         []float32
	EventTypes    []event.EventType // empty means no filter
	SkipZeroVecs  bool
	TopK          int
	MinSimilarity float64
}

// Scored pairs a node id with a ranking score.
type Scored struct {
	ID    event.NodeID
	Score float64
}

// Similarity ranks nodes by cosine similarity to Query. When the graph
// carries a ClusterMap, candidates are prefiltered to the nearest cluster to
// bound the scan, but if that doesn't produce TopK results above
// MinSimilarity the engine falls back to a full scan, per spec §5's
// fallback requirement.
func (e *Engine) Similarity(p SimilarityParams) []Scored {
	if cm := e.g.ClusterMap(); cm != nil {
		nearest := cm.GetCluster(cm.NearestCluster(p.Query))
		scored := e.scoreCandidates(nearest, p)
		if len(scored) >= p.TopK {
			return scored
		}
	}
	return e.scoreCandidates(nil, p)
}

// scoreCandidates scores every node in ids (or every live node, if ids is
// nil) and returns the top-k by similarity, ties broken by ascending id.
func (e *Engine) scoreCandidates(ids []event.NodeID, p SimilarityParams) []Scored {
	var nodes []event.CognitiveEvent
	if ids == nil {
		nodes = e.g.Nodes()
	} else {
		for _, id := range ids {
			if n, err := e.g.GetNode(id); err == nil {
				nodes = append(nodes, n)
			}
		}
	}

	var scored []Scored
	for _, n := range nodes {
		if !containsEventType(p.EventTypes, n.EventType) {
			continue
		}
		if p.SkipZeroVecs && isZeroVec(n.FeatureVec) {
			continue
		}
		sim := vector.CosineSimilarity(p.Query, n.FeatureVec)
		if sim < p.MinSimilarity {
			continue
		}
		scored = append(scored, Scored{ID: n.ID, Score: sim})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if p.TopK > 0 && len(scored) > p.TopK {
		scored = scored[:p.TopK]
	}
	return scored
}

func isZeroVec(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
