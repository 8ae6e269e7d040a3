// Package queryengine implements every query operation AgenticMemory
// answers over a graph.MemoryGraph: traversal, pattern filtering, vector
// similarity, causal impact, belief resolution, BM25 text search, hybrid
// search, centrality, shortest paths, belief revision, reasoning-gap
// detection, analogy, consolidation, and drift detection.
//
// Grounded on the teacher's apoc/algo/algo.go (PageRank, betweenness,
// degree centrality), pkg/cypher/traversal.go and shortest_path.go (BFS/
// Dijkstra over the property graph), pkg/linkpredict/topology.go
// (structural-similarity link scoring, reused here for analogy), and
// pkg/inference/inference.go (contradiction/support heuristics, reused for
// belief_revision and consolidation).
package queryengine

import (
	"github.com/agenticmemory/amem/pkg/bm25"
	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/graph"
)

// Engine answers queries against a single graph.MemoryGraph. Only
// Consolidation with Confirm set mutates the graph; every other operation
// is read-only.
type Engine struct {
	g *graph.MemoryGraph
}

// New wraps g in a query Engine.
func New(g *graph.MemoryGraph) *Engine { return &Engine{g: g} }

// Direction constrains which edges a traversal follows relative to the
// current node.
type Direction uint8

const (
	Forward Direction = iota
	Backward
	Both
)

// SortOrder picks how pattern results are ordered before truncation.
type SortOrder uint8

const (
	MostRecent SortOrder = iota
	HighestConfidence
	MostAccessed
	MostImportant // by decay_score
)

// containsEdgeType reports whether t is in types, or whether types is empty
// (meaning "no filter, allow everything").
func containsEdgeType(types []event.EdgeType, t event.EdgeType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

func containsEventType(types []event.EventType, t event.EventType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

func containsSession(sessions []uint32, s uint32) bool {
	if len(sessions) == 0 {
		return true
	}
	for _, want := range sessions {
		if want == s {
			return true
		}
	}
	return false
}

// termIndexOf returns the graph's TermIndex cast to its concrete bm25 type,
// or nil if absent or of an unexpected concrete type.
func (e *Engine) termIndexOf() *bm25.TermIndex {
	ti, _ := e.g.TermIndex().(*bm25.TermIndex)
	return ti
}

func (e *Engine) docLengthsOf() *bm25.DocLengths {
	dl, _ := e.g.DocLengths().(*bm25.DocLengths)
	return dl
}
