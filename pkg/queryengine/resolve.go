package queryengine

import "github.com/agenticmemory/amem/pkg/event"

// Resolve follows the chain of corrections starting at id and returns the
// terminal node's id — the current belief about whatever id originally
// asserted. A SUPERSEDES edge points from the correcting node to the node
// it corrects (new -> old), so resolving forward in time means walking
// against edge direction: at each hop, find the first incoming SUPERSEDES
// edge and move to its source. Terminates when a node has none or a cycle
// is detected.
func (e *Engine) Resolve(id event.NodeID) event.NodeID {
	visited := map[event.NodeID]bool{id: true}
	cur := id
	for {
		next, ok := e.firstSupersededBy(cur)
		if !ok || visited[next] {
			return cur
		}
		visited[next] = true
		cur = next
	}
}

func (e *Engine) firstSupersededBy(id event.NodeID) (event.NodeID, bool) {
	for _, ed := range e.g.EdgesTo(id) {
		if ed.EdgeType == event.Supersedes {
			return ed.SourceID, true
		}
	}
	return 0, false
}
