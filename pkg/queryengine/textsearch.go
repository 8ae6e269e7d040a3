package queryengine

import (
	"sort"

	"github.com/agenticmemory/amem/pkg/bm25"
	"github.com/agenticmemory/amem/pkg/event"
)

// TextSearchParams configures TextSearch.
type TextSearchParams struct {
	Query      string
	EventTypes []event.EventType
	SessionIDs []uint32
	MinScore   float64
	MaxResults int
}

// TextSearch tokenizes Query and scores every candidate node with BM25. If
// the graph carries both a TermIndex and DocLengths, the fast path scores
// via postings lists; otherwise the slow path retokenizes every candidate's
// content. Both paths filter by event type and session, drop matches below
// MinScore, and return results ordered by score desc, id asc.
func (e *Engine) TextSearch(p TextSearchParams) []Scored {
	terms := bm25.Tokenize(p.Query)
	if len(terms) == 0 {
		return nil
	}

	ti, dl := e.termIndexOf(), e.docLengthsOf()
	nodes := e.g.Nodes()

	var scores map[event.NodeID]float64
	if ti != nil && dl != nil {
		scores = bm25.ScoreFast(terms, ti, dl, len(nodes))
	} else {
		scores = e.scoreSlowPath(terms, nodes)
	}

	filtered := make(map[event.NodeID]bool, len(nodes))
	for _, n := range nodes {
		if containsEventType(p.EventTypes, n.EventType) && containsSession(p.SessionIDs, n.SessionID) {
			filtered[n.ID] = true
		}
	}

	var out []Scored
	for id, score := range scores {
		if !filtered[id] || score < p.MinScore {
			continue
		}
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

func (e *Engine) scoreSlowPath(terms []string, nodes []event.CognitiveEvent) map[event.NodeID]float64 {
	tokenized := make([][]string, len(nodes))
	var totalLen float64
	for i, n := range nodes {
		tokenized[i] = bm25.Tokenize(n.Content)
		totalLen += float64(len(tokenized[i]))
	}
	avgLen := 0.0
	if len(nodes) > 0 {
		avgLen = totalLen / float64(len(nodes))
	}

	df := bm25.DocumentFrequency(terms, tokenized)

	scores := make(map[event.NodeID]float64, len(nodes))
	for i, n := range nodes {
		s := bm25.ScoreSlow(terms, tokenized[i], len(nodes), avgLen, df)
		if s > 0 {
			scores[n.ID] = s
		}
	}
	return scores
}
