package queryengine

import (
	"sort"

	"github.com/agenticmemory/amem/pkg/event"
)

// PatternParams filters and sorts the live node set.
type PatternParams struct {
	EventTypes    []event.EventType
	SessionIDs    []uint32
	MinConfidence float32
	MaxConfidence float32 // 0 means "no upper bound", treated as +inf
	MinCreatedAt  uint64
	MaxCreatedAt  uint64 // 0 means "no upper bound"
	MinDecayScore *float32
	Sort          SortOrder
	MaxResults    int
}

// Pattern filters nodes by any-of event types, any-of sessions, a
// confidence band, a time band (both inclusive), and an optional minimum
// decay score, then sorts by the requested order and truncates to
// MaxResults. Ties break by ascending id.
func (e *Engine) Pattern(p PatternParams) []event.NodeID {
	maxConf := p.MaxConfidence
	if maxConf == 0 {
		maxConf = 1
	}

	var matched []event.CognitiveEvent
	for _, n := range e.g.Nodes() {
		if !containsEventType(p.EventTypes, n.EventType) {
			continue
		}
		if !containsSession(p.SessionIDs, n.SessionID) {
			continue
		}
		if n.Confidence < p.MinConfidence || n.Confidence > maxConf {
			continue
		}
		if n.CreatedAt < p.MinCreatedAt {
			continue
		}
		if p.MaxCreatedAt != 0 && n.CreatedAt > p.MaxCreatedAt {
			continue
		}
		if p.MinDecayScore != nil && n.DecayScore < *p.MinDecayScore {
			continue
		}
		matched = append(matched, n)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch p.Sort {
		case HighestConfidence:
			if a.Confidence != b.Confidence {
				return a.Confidence > b.Confidence
			}
		case MostAccessed:
			if a.AccessCount != b.AccessCount {
				return a.AccessCount > b.AccessCount
			}
		case MostImportant:
			if a.DecayScore != b.DecayScore {
				return a.DecayScore > b.DecayScore
			}
		default: // MostRecent
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt > b.CreatedAt
			}
		}
		return a.ID < b.ID
	})

	if p.MaxResults > 0 && len(matched) > p.MaxResults {
		matched = matched[:p.MaxResults]
	}

	out := make([]event.NodeID, len(matched))
	for i, n := range matched {
		out[i] = n.ID
	}
	return out
}
