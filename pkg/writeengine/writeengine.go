// Package writeengine implements every mutating operation AgenticMemory
// exposes on top of a graph.MemoryGraph: ingest, touch, correct,
// compress_session, and run_decay.
//
// Grounded on the teacher's pkg/nornicdb/db.go Store/Forget narrative
// (validate under lock, mutate storage, surface typed errors unchanged) and
// pkg/decay/decay.go's scoring model, ported to the EventType-derived tiers
// decided in the design ledger.
package writeengine

import (
	"sort"

	"github.com/agenticmemory/amem/pkg/decay"
	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/graph"
)

// Engine wraps a graph.MemoryGraph with the mutating operations spec'd for
// the write path. It holds no state of its own beyond the graph reference.
type Engine struct {
	g *graph.MemoryGraph
}

// New wraps g in an Engine.
func New(g *graph.MemoryGraph) *Engine { return &Engine{g: g} }

// Ingest adds every event then every edge, in order. A failure on any event
// or edge aborts the whole batch and returns the error unchanged — ingest
// never performs a partial write by design, but since MemoryGraph.AddNode
// mutates on success, a batch that fails partway has already committed the
// events before the failing one. Callers that need atomicity should ingest
// into a fresh graph and only merge it in on success.
func (e *Engine) Ingest(events []event.CognitiveEvent, edges []event.Edge) ([]event.NodeID, error) {
	ids := make([]event.NodeID, 0, len(events))
	for _, ev := range events {
		id, err := e.g.AddNode(ev)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	for _, ed := range edges {
		if err := e.g.AddEdge(ed); err != nil {
			return ids, err
		}
	}
	return ids, nil
}

// Touch increments a node's access_count (saturating at uint32 max) and
// sets last_accessed to nowMicros.
func (e *Engine) Touch(id event.NodeID, nowMicros uint64) error {
	return e.g.MutateNode(id, func(n *event.CognitiveEvent) {
		if n.AccessCount < ^uint32(0) {
			n.AccessCount++
		}
		n.LastAccessed = nowMicros
	})
}

// Correct sets oldID's confidence to 0, inserts a new Correction node
// carrying newContent in the given session, and links new -> old with a
// SUPERSEDES edge. Returns the new node's id. On any error (oldID missing)
// neither the old node nor the graph is mutated.
func (e *Engine) Correct(oldID event.NodeID, newContent string, session uint32, nowMicros uint64) (event.NodeID, error) {
	if _, err := e.g.GetNode(oldID); err != nil {
		return 0, err
	}

	newID, err := e.g.AddNode(event.CognitiveEvent{
		EventType:  event.Correction,
		CreatedAt:  nowMicros,
		SessionID:  session,
		Confidence: 1.0,
		Content:    newContent,
	})
	if err != nil {
		return 0, err
	}

	if err := e.g.AddEdge(event.Edge{
		SourceID:  newID,
		TargetID:  oldID,
		EdgeType:  event.Supersedes,
		Weight:    1.0,
		CreatedAt: nowMicros,
	}); err != nil {
		return newID, err
	}

	_ = e.g.MutateNode(oldID, func(n *event.CognitiveEvent) { n.Confidence = 0 })

	return newID, nil
}

// CompressSession inserts an Episode node carrying summary, then adds a
// PART_OF edge from every node in sessionID to the new episode. Original
// nodes are left untouched. Returns the episode's id.
func (e *Engine) CompressSession(sessionID uint32, summary string, nowMicros uint64) (event.NodeID, error) {
	episodeID, err := e.g.AddNode(event.CognitiveEvent{
		EventType:  event.Episode,
		CreatedAt:  nowMicros,
		SessionID:  sessionID,
		Confidence: 1.0,
		Content:    summary,
	})
	if err != nil {
		return 0, err
	}

	for _, id := range e.g.SessionIndex().Get(sessionID) {
		if id == episodeID {
			continue
		}
		if err := e.g.AddEdge(event.Edge{
			SourceID:  id,
			TargetID:  episodeID,
			EdgeType:  event.PartOf,
			Weight:    1.0,
			CreatedAt: nowMicros,
		}); err != nil {
			return episodeID, err
		}
	}

	return episodeID, nil
}

// DecayReport summarizes one run_decay pass.
type DecayReport struct {
	NodesScored  int
	ArchiveCount int // nodes that dropped below decay.ArchiveThreshold
}

const microsPerHour = 1_000_000 * 60 * 60

// RunDecay recomputes decay_score for every node given the current time.
// The scoring function is monotone in age and access recency/frequency by
// construction (decay.Score), satisfying the spec's decay-monotonicity
// property: never deletes nodes, only updates their score.
func (e *Engine) RunDecay(nowMicros uint64, w decay.Weights) DecayReport {
	var report DecayReport
	for _, n := range e.g.Nodes() {
		id := n.ID
		hoursSinceAccess := float64(0)
		if nowMicros > n.LastAccessed {
			hoursSinceAccess = float64(nowMicros-n.LastAccessed) / microsPerHour
		}
		score := decay.Score(n.EventType, hoursSinceAccess, n.AccessCount, n.Confidence, w)
		_ = e.g.MutateNode(id, func(node *event.CognitiveEvent) { node.DecayScore = score })
		report.NodesScored++
		if decay.ShouldArchive(score) {
			report.ArchiveCount++
		}
	}
	return report
}

// ArchivalCandidates returns node ids whose current decay_score is below
// decay.ArchiveThreshold, sorted ascending by score, for a caller to act on.
// Nothing in this module calls it; consolidation does not read decay scores.
func (e *Engine) ArchivalCandidates() []event.NodeID {
	nodes := e.g.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].DecayScore < nodes[j].DecayScore })
	var out []event.NodeID
	for _, n := range nodes {
		if !decay.ShouldArchive(n.DecayScore) {
			break
		}
		out = append(out, n.ID)
	}
	return out
}
