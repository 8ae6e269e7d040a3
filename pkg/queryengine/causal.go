package queryengine

import "github.com/agenticmemory/amem/pkg/event"

// CausalParams configures Causal.
type CausalParams struct {
	NodeID          event.NodeID
	DependencyTypes []event.EdgeType // typically {CausedBy, Supports}
	MaxDepth        uint32
}

// CausalResult is the set of nodes that causally depend on NodeID, and a
// breakdown of how many are Decisions vs Inferences.
type CausalResult struct {
	Dependents         []event.NodeID
	AffectedDecisions  int
	AffectedInferences int
}

// Causal performs a reverse traversal from NodeID along the edges whose
// source depends on a target of one of DependencyTypes: if A --CausedBy-->
// B, then A depends on B, so Causal(B) must walk from B to A, i.e. along
// EdgesTo(B) restricted to DependencyTypes. Bounded by MaxDepth.
func (e *Engine) Causal(p CausalParams) CausalResult {
	var result CausalResult
	visited := map[event.NodeID]bool{p.NodeID: true}

	type frontierEntry struct {
		id    event.NodeID
		depth uint32
	}
	queue := []frontierEntry{{p.NodeID, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= p.MaxDepth {
			continue
		}
		for _, ed := range e.g.EdgesTo(cur.id) {
			if !containsEdgeType(p.DependencyTypes, ed.EdgeType) {
				continue
			}
			if visited[ed.SourceID] {
				continue
			}
			visited[ed.SourceID] = true
			result.Dependents = append(result.Dependents, ed.SourceID)
			if n, err := e.g.GetNode(ed.SourceID); err == nil {
				switch n.EventType {
				case event.Decision:
					result.AffectedDecisions++
				case event.Inference:
					result.AffectedInferences++
				}
			}
			queue = append(queue, frontierEntry{ed.SourceID, cur.depth + 1})
		}
	}

	return result
}
