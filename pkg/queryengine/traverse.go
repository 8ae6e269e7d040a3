package queryengine

import "github.com/agenticmemory/amem/pkg/event"

// TraverseParams configures Traverse.
type TraverseParams struct {
	StartID      event.NodeID
	EdgeTypes    []event.EdgeType // empty means all types
	Direction    Direction
	MaxDepth     uint32
	MinConfidence float32
	MaxResults   int
}

// TraverseResult is the BFS frontier Traverse discovered.
type TraverseResult struct {
	Visited []event.NodeID
	Depths  map[event.NodeID]uint32
}

// Traverse runs a breadth-first search from StartID, following edges of the
// permitted types in the requested direction, bounded by MaxDepth (the
// start node is depth 0), skipping nodes below MinConfidence, capped at
// MaxResults. The visited set makes cycles impossible to revisit.
func (e *Engine) Traverse(p TraverseParams) TraverseResult {
	result := TraverseResult{Depths: make(map[event.NodeID]uint32)}

	start, err := e.g.GetNode(p.StartID)
	if err != nil {
		return result
	}
	if start.Confidence < p.MinConfidence {
		return result
	}

	result.Visited = append(result.Visited, p.StartID)
	result.Depths[p.StartID] = 0

	type frontierEntry struct {
		id    event.NodeID
		depth uint32
	}
	queue := []frontierEntry{{p.StartID, 0}}

	for len(queue) > 0 {
		if p.MaxResults > 0 && len(result.Visited) >= p.MaxResults {
			break
		}
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= p.MaxDepth {
			continue
		}

		neighbors := e.neighborEdges(cur.id, p.Direction)
		for _, n := range neighbors {
			if !containsEdgeType(p.EdgeTypes, n.edgeType) {
				continue
			}
			if _, seen := result.Depths[n.id]; seen {
				continue
			}
			node, err := e.g.GetNode(n.id)
			if err != nil || node.Confidence < p.MinConfidence {
				continue
			}
			depth := cur.depth + 1
			result.Depths[n.id] = depth
			result.Visited = append(result.Visited, n.id)
			queue = append(queue, frontierEntry{n.id, depth})
			if p.MaxResults > 0 && len(result.Visited) >= p.MaxResults {
				break
			}
		}
	}

	return result
}

type neighbor struct {
	id       event.NodeID
	edgeType event.EdgeType
}

// neighborEdges returns the neighbors of id reachable in dir, each tagged
// with the edge type that connects them.
func (e *Engine) neighborEdges(id event.NodeID, dir Direction) []neighbor {
	var out []neighbor
	if dir == Forward || dir == Both {
		for _, ed := range e.g.EdgesFrom(id) {
			out = append(out, neighbor{ed.TargetID, ed.EdgeType})
		}
	}
	if dir == Backward || dir == Both {
		for _, ed := range e.g.EdgesTo(id) {
			out = append(out, neighbor{ed.SourceID, ed.EdgeType})
		}
	}
	return out
}
