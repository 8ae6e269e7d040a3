package queryengine

import (
	"sort"

	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/math/vector"
)

// DriftDetectionParams configures DriftDetection.
type DriftDetectionParams struct {
	TopicVec            []float32
	RelevanceThreshold  float64
	ConfidenceShiftThreshold float32
	MaxResults          int
}

// TimelineEntry is one point along a drift timeline.
type TimelineEntry struct {
	ID         event.NodeID
	CreatedAt  uint64
	Confidence float32
	Snippet    string
}

// DriftEvent flags a point in the timeline where belief about the topic
// changed materially.
type DriftEvent struct {
	At              TimelineEntry
	ConfidenceDelta float32
	Superseded      bool
}

// DriftDetectionResult is the ordered timeline for a topic plus the drift
// events detected within it.
type DriftDetectionResult struct {
	Timeline []TimelineEntry
	Drifts   []DriftEvent
}

const snippetLength = 80

func snippet(content string) string {
	if len(content) <= snippetLength {
		return content
	}
	return content[:snippetLength]
}

// DriftDetection gathers nodes relevant to TopicVec, orders them by
// created_at, and walks the sequence looking for confidence swings beyond
// ConfidenceShiftThreshold and Supersedes transitions between consecutive
// topic-relevant nodes.
func (e *Engine) DriftDetection(p DriftDetectionParams) DriftDetectionResult {
	var relevant []event.CognitiveEvent
	for _, n := range e.g.Nodes() {
		if vector.CosineSimilarity(p.TopicVec, n.FeatureVec) >= p.RelevanceThreshold {
			relevant = append(relevant, n)
		}
	}
	sort.Slice(relevant, func(i, j int) bool {
		if relevant[i].CreatedAt != relevant[j].CreatedAt {
			return relevant[i].CreatedAt < relevant[j].CreatedAt
		}
		return relevant[i].ID < relevant[j].ID
	})

	var result DriftDetectionResult
	for _, n := range relevant {
		result.Timeline = append(result.Timeline, TimelineEntry{
			ID:         n.ID,
			CreatedAt:  n.CreatedAt,
			Confidence: n.Confidence,
			Snippet:    snippet(n.Content),
		})
	}

	supersedes := make(map[[2]event.NodeID]bool)
	for _, ed := range e.g.Edges() {
		if ed.EdgeType == event.Supersedes {
			supersedes[[2]event.NodeID{ed.SourceID, ed.TargetID}] = true
		}
	}

	for i := 1; i < len(result.Timeline); i++ {
		prev, cur := result.Timeline[i-1], result.Timeline[i]
		delta := cur.Confidence - prev.Confidence
		superseded := supersedes[[2]event.NodeID{cur.ID, prev.ID}]
		if abs32(delta) < p.ConfidenceShiftThreshold && !superseded {
			continue
		}
		result.Drifts = append(result.Drifts, DriftEvent{
			At:              cur,
			ConfidenceDelta: delta,
			Superseded:      superseded,
		})
	}

	if p.MaxResults > 0 && len(result.Drifts) > p.MaxResults {
		result.Drifts = result.Drifts[:p.MaxResults]
	}
	return result
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
