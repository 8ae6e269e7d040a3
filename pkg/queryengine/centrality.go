package queryengine

import (
	"math"
	"sort"

	"github.com/agenticmemory/amem/pkg/event"
)

// CentralityAlgorithm selects which centrality measure Centrality computes.
type CentralityAlgorithm uint8

const (
	PageRank CentralityAlgorithm = iota
	Degree
	Betweenness
)

// CentralityParams configures Centrality.
type CentralityParams struct {
	Algorithm     CentralityAlgorithm
	EdgeTypes     []event.EdgeType // restricts the subgraph for Betweenness
	EventTypes    []event.EventType
	Damping       float64 // PageRank only, default 0.85
	MaxIterations int     // PageRank only, default 100
	Tolerance     float64 // PageRank only, default 1e-6
	TopK          int
}

// Centrality returns nodes ranked by the requested centrality measure,
// restricted to nodes matching EventTypes, highest score first, ties broken
// by ascending id.
func (e *Engine) Centrality(p CentralityParams) []Scored {
	switch p.Algorithm {
	case Degree:
		return e.topK(e.degreeCentrality(), p)
	case Betweenness:
		return e.topK(e.betweennessCentrality(p.EdgeTypes), p)
	default:
		return e.topK(e.pageRank(p), p)
	}
}

func (e *Engine) topK(scores map[event.NodeID]float64, p CentralityParams) []Scored {
	out := make([]Scored, 0, len(scores))
	for _, n := range e.g.Nodes() {
		if !containsEventType(p.EventTypes, n.EventType) {
			continue
		}
		out = append(out, Scored{ID: n.ID, Score: scores[n.ID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if p.TopK > 0 && len(out) > p.TopK {
		out = out[:p.TopK]
	}
	return out
}

func (e *Engine) degreeCentrality() map[event.NodeID]float64 {
	scores := make(map[event.NodeID]float64)
	for _, n := range e.g.Nodes() {
		scores[n.ID] = float64(len(e.g.EdgesFrom(n.ID)) + len(e.g.EdgesTo(n.ID)))
	}
	return scores
}

func (e *Engine) pageRank(p CentralityParams) map[event.NodeID]float64 {
	damping := p.Damping
	if damping == 0 {
		damping = 0.85
	}
	maxIter := p.MaxIterations
	if maxIter == 0 {
		maxIter = 100
	}
	tolerance := p.Tolerance
	if tolerance == 0 {
		tolerance = 1e-6
	}

	nodes := e.g.Nodes()
	n := len(nodes)
	if n == 0 {
		return nil
	}

	scores := make(map[event.NodeID]float64, n)
	for _, node := range nodes {
		scores[node.ID] = 1.0 / float64(n)
	}

	outDegree := make(map[event.NodeID]int, n)
	for _, node := range nodes {
		outDegree[node.ID] = len(e.g.EdgesFrom(node.ID))
	}

	for iter := 0; iter < maxIter; iter++ {
		next := make(map[event.NodeID]float64, n)
		base := (1 - damping) / float64(n)
		for _, node := range nodes {
			sum := 0.0
			for _, in := range e.g.EdgesTo(node.ID) {
				if d := outDegree[in.SourceID]; d > 0 {
					sum += scores[in.SourceID] / float64(d)
				}
			}
			next[node.ID] = base + damping*sum
		}

		var delta float64
		for id, s := range next {
			delta += math.Abs(s - scores[id])
		}
		scores = next
		if delta < tolerance {
			break
		}
	}
	return scores
}

// betweennessCentrality computes unweighted Brandes betweenness restricted
// to edgeTypes, normalized by 1/((n-1)(n-2)) as in the teacher's
// apoc/algo/algo.go.
func (e *Engine) betweennessCentrality(edgeTypes []event.EdgeType) map[event.NodeID]float64 {
	nodes := e.g.Nodes()
	n := len(nodes)
	betweenness := make(map[event.NodeID]float64, n)
	for _, node := range nodes {
		betweenness[node.ID] = 0
	}

	neighborsOf := func(id event.NodeID) []event.NodeID {
		var out []event.NodeID
		for _, ed := range e.g.EdgesFrom(id) {
			if containsEdgeType(edgeTypes, ed.EdgeType) {
				out = append(out, ed.TargetID)
			}
		}
		return out
	}

	for _, source := range nodes {
		stack := []event.NodeID{}
		pred := make(map[event.NodeID][]event.NodeID)
		sigma := make(map[event.NodeID]float64)
		dist := make(map[event.NodeID]int)
		for _, node := range nodes {
			dist[node.ID] = -1
		}
		sigma[source.ID] = 1
		dist[source.ID] = 0
		queue := []event.NodeID{source.ID}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			stack = append(stack, cur)
			for _, nb := range neighborsOf(cur) {
				if dist[nb] < 0 {
					dist[nb] = dist[cur] + 1
					queue = append(queue, nb)
				}
				if dist[nb] == dist[cur]+1 {
					sigma[nb] += sigma[cur]
					pred[nb] = append(pred[nb], cur)
				}
			}
		}

		delta := make(map[event.NodeID]float64)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				if sigma[w] != 0 {
					delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
				}
			}
			if w != source.ID {
				betweenness[w] += delta[w]
			}
		}
	}

	if n > 2 {
		norm := 1.0 / float64((n-1)*(n-2))
		for id := range betweenness {
			betweenness[id] *= norm
		}
	}
	return betweenness
}
