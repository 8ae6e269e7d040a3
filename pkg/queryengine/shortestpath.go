package queryengine

import (
	"container/heap"

	"github.com/agenticmemory/amem/pkg/event"
)

// ShortestPathParams configures ShortestPath.
type ShortestPathParams struct {
	StartID   event.NodeID
	EndID     event.NodeID
	EdgeTypes []event.EdgeType
	Direction Direction
	Weighted  bool
	MaxDepth  uint32
}

// ShortestPathResult reports whether a path was found, the path itself
// (inclusive of both endpoints), and its total cost.
type ShortestPathResult struct {
	Found bool
	Path  []event.NodeID
	Cost  float32
}

const minEdgeCost = 1e-4

// ShortestPath finds the shortest path from StartID to EndID restricted to
// EdgeTypes and Direction, bounded by MaxDepth hops. Unweighted graphs use
// BFS; weighted graphs use Dijkstra with edge cost = 1 - weight, clamped to
// at least minEdgeCost so a weight of 1.0 never produces a zero-cost edge
// that Dijkstra could loop on.
//
// Grounded on the teacher's apoc/algo/algo.go Dijkstra (container/heap
// priority queue, prev-map path reconstruction).
func (e *Engine) ShortestPath(p ShortestPathParams) ShortestPathResult {
	if p.Weighted {
		return e.dijkstra(p)
	}
	return e.bfsPath(p)
}

func (e *Engine) bfsPath(p ShortestPathParams) ShortestPathResult {
	if p.StartID == p.EndID {
		return ShortestPathResult{Found: true, Path: []event.NodeID{p.StartID}}
	}

	prev := map[event.NodeID]event.NodeID{p.StartID: p.StartID}
	depth := map[event.NodeID]uint32{p.StartID: 0}
	queue := []event.NodeID{p.StartID}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth[cur] >= p.MaxDepth {
			continue
		}
		for _, n := range e.neighborEdges(cur, p.Direction) {
			if !containsEdgeType(p.EdgeTypes, n.edgeType) {
				continue
			}
			if _, seen := prev[n.id]; seen {
				continue
			}
			prev[n.id] = cur
			depth[n.id] = depth[cur] + 1
			if n.id == p.EndID {
				return ShortestPathResult{Found: true, Path: reconstructPath(prev, p.StartID, p.EndID), Cost: float32(depth[n.id])}
			}
			queue = append(queue, n.id)
		}
	}
	return ShortestPathResult{}
}

type heapEntry struct {
	id   event.NodeID
	cost float32
}

type costHeap []heapEntry

func (h costHeap) Len() int            { return len(h) }
func (h costHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h costHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *costHeap) Push(x interface{}) { *h = append(*h, x.(heapEntry)) }
func (h *costHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (e *Engine) dijkstra(p ShortestPathParams) ShortestPathResult {
	dist := map[event.NodeID]float32{p.StartID: 0}
	depth := map[event.NodeID]uint32{p.StartID: 0}
	prev := map[event.NodeID]event.NodeID{p.StartID: p.StartID}

	pq := &costHeap{{id: p.StartID, cost: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(heapEntry)
		if cur.cost > dist[cur.id] {
			continue
		}
		if cur.id == p.EndID {
			return ShortestPathResult{Found: true, Path: reconstructPath(prev, p.StartID, p.EndID), Cost: dist[cur.id]}
		}
		if depth[cur.id] >= p.MaxDepth {
			continue
		}

		for _, ed := range e.weightedNeighbors(cur.id, p.Direction) {
			if !containsEdgeType(p.EdgeTypes, ed.edgeType) {
				continue
			}
			cost := 1 - ed.weight
			if cost < minEdgeCost {
				cost = minEdgeCost
			}
			newDist := cur.cost + cost
			if old, ok := dist[ed.id]; !ok || newDist < old {
				dist[ed.id] = newDist
				depth[ed.id] = depth[cur.id] + 1
				prev[ed.id] = cur.id
				heap.Push(pq, heapEntry{id: ed.id, cost: newDist})
			}
		}
	}
	return ShortestPathResult{}
}

type weightedNeighbor struct {
	id       event.NodeID
	edgeType event.EdgeType
	weight   float32
}

func (e *Engine) weightedNeighbors(id event.NodeID, dir Direction) []weightedNeighbor {
	var out []weightedNeighbor
	if dir == Forward || dir == Both {
		for _, ed := range e.g.EdgesFrom(id) {
			out = append(out, weightedNeighbor{ed.TargetID, ed.EdgeType, ed.Weight})
		}
	}
	if dir == Backward || dir == Both {
		for _, ed := range e.g.EdgesTo(id) {
			out = append(out, weightedNeighbor{ed.SourceID, ed.EdgeType, ed.Weight})
		}
	}
	return out
}

func reconstructPath(prev map[event.NodeID]event.NodeID, start, end event.NodeID) []event.NodeID {
	var path []event.NodeID
	cur := end
	for {
		path = append([]event.NodeID{cur}, path...)
		if cur == start {
			break
		}
		cur = prev[cur]
	}
	return path
}
