// Package graph implements MemoryGraph: the in-memory owner of every
// CognitiveEvent, Edge, and secondary index AgenticMemory maintains. It is
// the sole mutable state the write engine and query engine operate on.
package graph

import (
	"sort"
	"sync"

	"github.com/agenticmemory/amem/pkg/event"
)

// adjRange is a contiguous slice bound into the sorted edge list for one
// source node: edges[start:start+count].
type adjRange struct {
	start, count int
}

// MemoryGraph owns all nodes, edges, adjacency, and secondary indexes for
// one AgenticMemory graph. Node and edge accessors and mutators take the
// internal RWMutex for the duration of each call; a sequence of calls is not
// atomic, and the index accessors (TypeIndex, SessionIndex, ...) return the
// live index without taking the lock.
type MemoryGraph struct {
	mu sync.RWMutex

	dimension int
	nextID    event.NodeID

	nodes []event.CognitiveEvent // ordered by id; index i holds id i only while dense
	dense bool                   // true until the first remove_node

	edges []event.Edge // sorted by (source_id, target_id)

	adjacency     map[event.NodeID]adjRange
	reverseAdj    map[event.NodeID][]event.NodeID // sorted, deduped source ids

	typeIndex     *TypeIndex
	temporalIndex *TemporalIndex
	sessionIndex  *SessionIndex

	clusterMap *ClusterMap // optional
	termIndex  TermIndexer // optional, set by bm25 package via SetTermIndex
	docLengths DocLengthIndexer
}

// TermIndexer is the minimal surface pkg/bm25's TermIndex exposes to the
// graph so MemoryGraph can carry it without importing pkg/bm25.
type TermIndexer interface {
	Postings(term string) []struct {
		NodeID event.NodeID
		Freq   uint32
	}
	VocabSize() int
}

// DocLengthIndexer is the minimal surface pkg/bm25's DocLengths exposes.
type DocLengthIndexer interface {
	Length(id event.NodeID) (uint32, bool)
	AvgLength() float32
	Count() int
}

// New creates an empty graph with the given feature-vector dimension.
func New(dimension int) *MemoryGraph {
	if dimension <= 0 {
		dimension = event.DefaultDimension
	}
	return &MemoryGraph{
		dimension:     dimension,
		dense:         true,
		adjacency:     make(map[event.NodeID]adjRange),
		reverseAdj:    make(map[event.NodeID][]event.NodeID),
		typeIndex:     newTypeIndex(),
		temporalIndex: newTemporalIndex(),
		sessionIndex:  newSessionIndex(),
	}
}

// FromParts rebuilds a graph from a node set and edge set already decoded
// from a file (Reader uses this). Nodes must be ordered by id;
// edges need not be pre-sorted — FromParts sorts them.
func FromParts(nodes []event.CognitiveEvent, edges []event.Edge, dimension int) *MemoryGraph {
	g := New(dimension)
	g.nodes = nodes
	g.edges = append([]event.Edge(nil), edges...)

	maxID := event.NodeID(0)
	dense := true
	for i, n := range g.nodes {
		if event.NodeID(i) != n.ID {
			dense = false
		}
		if n.ID > maxID || i == 0 {
			if n.ID >= maxID {
				maxID = n.ID
			}
		}
		g.typeIndex.add(n.EventType, n.ID)
		g.temporalIndex.add(n.CreatedAt, n.ID)
		g.sessionIndex.add(n.SessionID, n.ID)
	}
	g.dense = dense
	if len(g.nodes) > 0 {
		g.nextID = maxID + 1
	}

	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].SourceID != g.edges[j].SourceID {
			return g.edges[i].SourceID < g.edges[j].SourceID
		}
		return g.edges[i].TargetID < g.edges[j].TargetID
	})
	g.rebuildAdjacency()

	return g
}

// Dimension returns the feature-vector width every node's FeatureVec must
// have.
func (g *MemoryGraph) Dimension() int { return g.dimension }

// NodeCount returns the number of live nodes.
func (g *MemoryGraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of live edges.
func (g *MemoryGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// TypeIndex, TemporalIndex, SessionIndex, ClusterMap expose the graph's
// always-on and optional indexes to the query engine.
func (g *MemoryGraph) TypeIndex() *TypeIndex         { return g.typeIndex }
func (g *MemoryGraph) TemporalIndex() *TemporalIndex { return g.temporalIndex }
func (g *MemoryGraph) SessionIndex() *SessionIndex   { return g.sessionIndex }
func (g *MemoryGraph) ClusterMap() *ClusterMap       { return g.clusterMap }
func (g *MemoryGraph) SetClusterMap(cm *ClusterMap)  { g.clusterMap = cm }
func (g *MemoryGraph) TermIndex() TermIndexer        { return g.termIndex }
func (g *MemoryGraph) SetTermIndex(ti TermIndexer)   { g.termIndex = ti }
func (g *MemoryGraph) DocLengths() DocLengthIndexer  { return g.docLengths }
func (g *MemoryGraph) SetDocLengths(dl DocLengthIndexer) { g.docLengths = dl }

// AddNode validates, clamps, and inserts a new CognitiveEvent, assigning it
// the next sequential id. The passed-in event's ID field is ignored.
func (g *MemoryGraph) AddNode(n event.CognitiveEvent) (event.NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(n.Content) > event.MaxContentSize {
		return 0, event.NewContentTooLargeError(len(n.Content), event.MaxContentSize)
	}
	if len(n.FeatureVec) != 0 && len(n.FeatureVec) != g.dimension {
		return 0, event.NewDimensionMismatchError(g.dimension, len(n.FeatureVec))
	}

	n.Confidence = event.ClampFloat(n.Confidence)
	n.DecayScore = event.ClampFloat(n.DecayScore)
	if len(n.FeatureVec) == 0 {
		n.FeatureVec = make([]float32, g.dimension)
	}

	n.ID = g.nextID
	g.nextID++
	g.nodes = append(g.nodes, n)

	g.typeIndex.add(n.EventType, n.ID)
	g.temporalIndex.add(n.CreatedAt, n.ID)
	g.sessionIndex.add(n.SessionID, n.ID)

	return n.ID, nil
}

// AddEdge validates and appends a new Edge, rejecting self-edges, edges to
// missing nodes, and edges that would exceed MaxEdgesPerNode outgoing edges
// from the source. Adjacency is rebuilt after the append (spec §9 notes
// this may be batched behind an explicit finalize in bulk-load paths; this
// graph keeps the simple per-call rebuild since it is never the hot path in
// a single-writer model).
func (g *MemoryGraph) AddEdge(e event.Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e.SourceID == e.TargetID {
		return event.NewSelfEdgeError(e.SourceID)
	}
	if _, err := g.getNodeLocked(e.SourceID); err != nil {
		return err
	}
	if _, err := g.getNodeLocked(e.TargetID); err != nil {
		return event.NewInvalidEdgeTargetError(e.TargetID)
	}
	if g.outDegreeLocked(e.SourceID) >= event.MaxEdgesPerNode {
		return event.NewTooManyEdgesError(event.MaxEdgesPerNode)
	}

	e.Weight = event.ClampFloat(e.Weight)

	idx := sort.Search(len(g.edges), func(i int) bool {
		if g.edges[i].SourceID != e.SourceID {
			return g.edges[i].SourceID >= e.SourceID
		}
		return g.edges[i].TargetID >= e.TargetID
	})
	g.edges = append(g.edges, event.Edge{})
	copy(g.edges[idx+1:], g.edges[idx:])
	g.edges[idx] = e

	g.rebuildAdjacency()
	return nil
}

func (g *MemoryGraph) outDegreeLocked(id event.NodeID) int {
	if r, ok := g.adjacency[id]; ok {
		return r.count
	}
	return 0
}

// RemoveNode deletes a node, every edge touching it, and removes it from
// every always-on index. Optional indexes (ClusterMap, TermIndex,
// DocLengths) are invalidated since they become stale.
func (g *MemoryGraph) RemoveNode(id event.NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, err := g.getNodeLocked(id)
	if err != nil {
		return err
	}

	idx := g.nodeSliceIndexLocked(id)
	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)
	g.dense = false

	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.SourceID != id && e.TargetID != id {
			kept = append(kept, e)
		}
	}
	g.edges = kept

	g.typeIndex.remove(n.EventType, id)
	g.temporalIndex.remove(n.CreatedAt, id)
	g.sessionIndex.remove(n.SessionID, id)

	g.clusterMap = nil
	g.termIndex = nil
	g.docLengths = nil

	g.rebuildAdjacency()
	return nil
}

// RemoveEdge deletes every edge matching (sourceID, targetID, edgeType).
func (g *MemoryGraph) RemoveEdge(sourceID, targetID event.NodeID, edgeType event.EdgeType) {
	g.mu.Lock()
	defer g.mu.Unlock()

	kept := g.edges[:0]
	for _, e := range g.edges {
		if !(e.SourceID == sourceID && e.TargetID == targetID && e.EdgeType == edgeType) {
			kept = append(kept, e)
		}
	}
	g.edges = kept
	g.rebuildAdjacency()
}

// GetNode returns a copy of the node with the given id.
func (g *MemoryGraph) GetNode(id event.NodeID) (event.CognitiveEvent, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.getNodeLocked(id)
}

func (g *MemoryGraph) getNodeLocked(id event.NodeID) (event.CognitiveEvent, error) {
	if g.dense {
		if int(id) < len(g.nodes) && g.nodes[id].ID == id {
			return g.nodes[id], nil
		}
	}
	idx := g.nodeSliceIndexLocked(id)
	if idx < 0 {
		return event.CognitiveEvent{}, &event.NotFoundError{Kind: "node", ID: id}
	}
	return g.nodes[idx], nil
}

func (g *MemoryGraph) nodeSliceIndexLocked(id event.NodeID) int {
	if g.dense && int(id) < len(g.nodes) && g.nodes[id].ID == id {
		return int(id)
	}
	for i, n := range g.nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// MutateNode applies fn to the stored copy of id's node in place. Used by
// the write engine for touch/correct/decay updates.
func (g *MemoryGraph) MutateNode(id event.NodeID, fn func(*event.CognitiveEvent)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.nodeSliceIndexLocked(id)
	if idx < 0 {
		return &event.NotFoundError{Kind: "node", ID: id}
	}
	fn(&g.nodes[idx])
	g.nodes[idx].Confidence = event.ClampFloat(g.nodes[idx].Confidence)
	g.nodes[idx].DecayScore = event.ClampFloat(g.nodes[idx].DecayScore)
	return nil
}

// EdgesFrom returns the outgoing edges of id, in (source,target) sort order.
func (g *MemoryGraph) EdgesFrom(id event.NodeID) []event.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.adjacency[id]
	if !ok {
		return nil
	}
	out := make([]event.Edge, r.count)
	copy(out, g.edges[r.start:r.start+r.count])
	return out
}

// EdgesTo returns every edge whose target is id, via the reverse-adjacency
// index.
func (g *MemoryGraph) EdgesTo(id event.NodeID) []event.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	sources := g.reverseAdj[id]
	var out []event.Edge
	for _, src := range sources {
		r, ok := g.adjacency[src]
		if !ok {
			continue
		}
		for _, e := range g.edges[r.start : r.start+r.count] {
			if e.TargetID == id {
				out = append(out, e)
			}
		}
	}
	return out
}

// Nodes returns a copy of every live node, ordered by id.
func (g *MemoryGraph) Nodes() []event.CognitiveEvent {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]event.CognitiveEvent, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of every live edge, in sorted order.
func (g *MemoryGraph) Edges() []event.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]event.Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

func (g *MemoryGraph) rebuildAdjacency() {
	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].SourceID != g.edges[j].SourceID {
			return g.edges[i].SourceID < g.edges[j].SourceID
		}
		return g.edges[i].TargetID < g.edges[j].TargetID
	})

	g.adjacency = make(map[event.NodeID]adjRange)
	reverse := make(map[event.NodeID]map[event.NodeID]struct{})

	i := 0
	for i < len(g.edges) {
		src := g.edges[i].SourceID
		start := i
		for i < len(g.edges) && g.edges[i].SourceID == src {
			tgt := g.edges[i].TargetID
			if reverse[tgt] == nil {
				reverse[tgt] = make(map[event.NodeID]struct{})
			}
			reverse[tgt][src] = struct{}{}
			i++
		}
		g.adjacency[src] = adjRange{start: start, count: i - start}
	}

	g.reverseAdj = make(map[event.NodeID][]event.NodeID, len(reverse))
	for tgt, set := range reverse {
		ids := make([]event.NodeID, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		g.reverseAdj[tgt] = ids
	}
}
