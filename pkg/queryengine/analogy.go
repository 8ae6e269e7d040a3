package queryengine

import (
	"sort"

	"github.com/agenticmemory/amem/pkg/event"
)

// AnalogyParams configures Analogy.
type AnalogyParams struct {
	DescriptionVec []float32
	ExcludeSessions []uint32
	ContextDepth   uint32 // how many hops of outgoing edges form a node's structural signature
	TopCandidates  int    // how many vector-similar nodes to consider before structural scoring
	MaxResults     int
}

// Analogy is a node whose surrounding edge structure resembles the query's
// implied context, ranked by a blend of vector similarity and structural
// overlap. CommonNeighborJaccard is an auxiliary signal, not part of the
// ranking score: it reports how much of the candidate's undirected
// neighborhood overlaps with the union of every pool candidate's
// neighborhood (the candidate's own included), independent of edge type.
type Analogy struct {
	ID                    event.NodeID
	VectorSimilarity      float64
	StructuralOverlap     float64
	CommonNeighborJaccard float64
}

// undirectedNeighbors returns the set of nodes reachable by one hop in
// either direction, grounded on the teacher's linkpredict.Graph.Neighbors.
func (e *Engine) undirectedNeighbors(id event.NodeID) map[event.NodeID]struct{} {
	out := make(map[event.NodeID]struct{})
	for _, ed := range e.g.EdgesFrom(id) {
		out[ed.TargetID] = struct{}{}
	}
	for _, ed := range e.g.EdgesTo(id) {
		out[ed.SourceID] = struct{}{}
	}
	return out
}

// jaccard computes |a ∩ b| / |a ∪ b|, the teacher's linkpredict.Jaccard
// formula applied to two explicit neighbor sets.
func jaccard(a, b map[event.NodeID]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for n := range a {
		if _, ok := b[n]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// edgeTypeSignature walks outgoing edges up to depth hops and returns a
// multiset (counted map) of edge types encountered, the structural
// fingerprint compared between candidates.
//
// Grounded on the teacher's pkg/linkpredict/topology.go structural-
// similarity scoring, adapted from common-neighbor counting to an
// edge-type-multiset comparison since this graph's edges are typed.
func (e *Engine) edgeTypeSignature(id event.NodeID, depth uint32) map[event.EdgeType]int {
	sig := make(map[event.EdgeType]int)
	visited := map[event.NodeID]bool{id: true}
	frontier := []event.NodeID{id}

	for d := uint32(0); d < depth; d++ {
		var next []event.NodeID
		for _, cur := range frontier {
			for _, ed := range e.g.EdgesFrom(cur) {
				sig[ed.EdgeType]++
				if !visited[ed.TargetID] {
					visited[ed.TargetID] = true
					next = append(next, ed.TargetID)
				}
			}
		}
		frontier = next
	}
	return sig
}

// multisetOverlap returns the Jaccard-like overlap between two edge-type
// multisets: sum of per-type min counts divided by sum of per-type max
// counts. Two empty signatures overlap fully (both contextless).
func multisetOverlap(a, b map[event.EdgeType]int) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	seen := make(map[event.EdgeType]bool, len(a)+len(b))
	var minSum, maxSum float64
	for t := range a {
		seen[t] = true
	}
	for t := range b {
		seen[t] = true
	}
	for t := range seen {
		av, bv := a[t], b[t]
		if av < bv {
			minSum += float64(av)
			maxSum += float64(bv)
		} else {
			minSum += float64(bv)
			maxSum += float64(av)
		}
	}
	if maxSum == 0 {
		return 1.0
	}
	return minSum / maxSum
}

// Analogy retrieves the top vector-similar nodes to DescriptionVec, then
// re-ranks them by how closely their outgoing edge-type signature (within
// ContextDepth hops) matches the signature implied by the query context —
// itself taken as the union signature of the candidate pool before
// re-ranking, so candidates structurally typical of the pool surface first.
func (e *Engine) Analogy(p AnalogyParams) []Analogy {
	pool := e.scoreCandidates(nil, SimilarityParams{
		Query: p.DescriptionVec,
		TopK:  p.TopCandidates,
	})

	// containsSession treats an empty filter as "match everything", which is
	// the wrong default for exclusion, so exclusion uses isExcludedSession.
	var filtered []Scored
	for _, s := range pool {
		n, err := e.g.GetNode(s.ID)
		if err != nil {
			continue
		}
		if isExcludedSession(p.ExcludeSessions, n.SessionID) {
			continue
		}
		filtered = append(filtered, s)
	}

	referenceSig := make(map[event.EdgeType]int)
	for _, s := range filtered {
		for t, c := range e.edgeTypeSignature(s.ID, p.ContextDepth) {
			referenceSig[t] += c
		}
	}

	poolNeighbors := make(map[event.NodeID]struct{})
	for _, s := range filtered {
		for n := range e.undirectedNeighbors(s.ID) {
			poolNeighbors[n] = struct{}{}
		}
	}

	out := make([]Analogy, 0, len(filtered))
	for _, s := range filtered {
		overlap := multisetOverlap(referenceSig, e.edgeTypeSignature(s.ID, p.ContextDepth))
		out = append(out, Analogy{
			ID:                    s.ID,
			VectorSimilarity:      s.Score,
			StructuralOverlap:     overlap,
			CommonNeighborJaccard: jaccard(e.undirectedNeighbors(s.ID), poolNeighbors),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		si := out[i].VectorSimilarity + out[i].StructuralOverlap
		sj := out[j].VectorSimilarity + out[j].StructuralOverlap
		if si != sj {
			return si > sj
		}
		return out[i].ID < out[j].ID
	})

	if p.MaxResults > 0 && len(out) > p.MaxResults {
		out = out[:p.MaxResults]
	}
	return out
}

func isExcludedSession(excluded []uint32, s uint32) bool {
	for _, e := range excluded {
		if e == s {
			return true
		}
	}
	return false
}
