package graph

import (
	"math"
	"sort"

	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/math/vector"
)

// TypeIndex maps an EventType to the sorted list of node ids carrying it.
// Always-on: kept in lock-step with every node insert/remove.
type TypeIndex struct {
	byType map[event.EventType][]event.NodeID
}

func newTypeIndex() *TypeIndex {
	return &TypeIndex{byType: make(map[event.EventType][]event.NodeID)}
}

func (t *TypeIndex) add(et event.EventType, id event.NodeID) {
	ids := t.byType[et]
	idx := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, 0)
	copy(ids[idx+1:], ids[idx:])
	ids[idx] = id
	t.byType[et] = ids
}

func (t *TypeIndex) remove(et event.EventType, id event.NodeID) {
	ids := t.byType[et]
	idx := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if idx < len(ids) && ids[idx] == id {
		t.byType[et] = append(ids[:idx], ids[idx+1:]...)
	}
}

// Get returns the sorted ids of nodes with the given event type.
func (t *TypeIndex) Get(et event.EventType) []event.NodeID {
	return t.byType[et]
}

// GetAny returns the sorted union of ids across all of the given types.
func (t *TypeIndex) GetAny(types []event.EventType) []event.NodeID {
	set := make(map[event.NodeID]struct{})
	for _, et := range types {
		for _, id := range t.byType[et] {
			set[id] = struct{}{}
		}
	}
	out := make([]event.NodeID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// temporalEntry pairs a creation timestamp with its node id for sorted
// range queries.
type temporalEntry struct {
	createdAt uint64
	id        event.NodeID
}

// TemporalIndex keeps (created_at, id) pairs sorted by timestamp so range
// and most-recent queries are binary-search partitions rather than scans.
type TemporalIndex struct {
	entries []temporalEntry
}

func newTemporalIndex() *TemporalIndex { return &TemporalIndex{} }

func (t *TemporalIndex) add(createdAt uint64, id event.NodeID) {
	e := temporalEntry{createdAt, id}
	idx := sort.Search(len(t.entries), func(i int) bool {
		if t.entries[i].createdAt != e.createdAt {
			return t.entries[i].createdAt >= e.createdAt
		}
		return t.entries[i].id >= e.id
	})
	t.entries = append(t.entries, temporalEntry{})
	copy(t.entries[idx+1:], t.entries[idx:])
	t.entries[idx] = e
}

func (t *TemporalIndex) remove(createdAt uint64, id event.NodeID) {
	idx := sort.Search(len(t.entries), func(i int) bool {
		if t.entries[i].createdAt != createdAt {
			return t.entries[i].createdAt >= createdAt
		}
		return t.entries[i].id >= id
	})
	if idx < len(t.entries) && t.entries[idx].id == id && t.entries[idx].createdAt == createdAt {
		t.entries = append(t.entries[:idx], t.entries[idx+1:]...)
	}
}

// Range returns ids created within [from, to] inclusive, ordered by time.
func (t *TemporalIndex) Range(from, to uint64) []event.NodeID {
	lo := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].createdAt >= from })
	hi := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].createdAt > to })
	out := make([]event.NodeID, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, t.entries[i].id)
	}
	return out
}

// MostRecent returns up to n ids, most recently created first.
func (t *TemporalIndex) MostRecent(n int) []event.NodeID {
	if n > len(t.entries) {
		n = len(t.entries)
	}
	out := make([]event.NodeID, 0, n)
	for i := len(t.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, t.entries[i].id)
	}
	return out
}

// SessionIndex maps a session id to the sorted list of node ids belonging
// to it. Always-on.
type SessionIndex struct {
	bySession map[uint32][]event.NodeID
}

func newSessionIndex() *SessionIndex {
	return &SessionIndex{bySession: make(map[uint32][]event.NodeID)}
}

func (s *SessionIndex) add(session uint32, id event.NodeID) {
	ids := s.bySession[session]
	idx := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, 0)
	copy(ids[idx+1:], ids[idx:])
	ids[idx] = id
	s.bySession[session] = ids
}

func (s *SessionIndex) remove(session uint32, id event.NodeID) {
	ids := s.bySession[session]
	idx := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if idx < len(ids) && ids[idx] == id {
		s.bySession[session] = append(ids[:idx], ids[idx+1:]...)
	}
}

// Get returns the sorted ids of nodes belonging to the given session.
func (s *SessionIndex) Get(session uint32) []event.NodeID {
	return s.bySession[session]
}

// Sessions returns every session id currently tracked.
func (s *SessionIndex) Sessions() []uint32 {
	out := make([]uint32, 0, len(s.bySession))
	for sid := range s.bySession {
		out = append(out, sid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ClusterMap is an optional, rebuildable k-means clustering of node feature
// vectors using cosine distance. k = min(ceil(sqrt(N)), 256). All-zero
// vectors ("no vector") are ignored entirely.
type ClusterMap struct {
	k         int
	dim       int
	centroids [][]float32
	members   [][]event.NodeID  // members[c] = ids assigned to cluster c
	assigned  map[event.NodeID]int
}

const (
	maxClusters     = 256
	maxKMeansRounds = 50
)

// BuildClusterMap clusters the given (id, vec) pairs. Zero-length vecs or
// all-zero vecs are skipped. Returns nil if there is nothing to cluster.
func BuildClusterMap(dim int, pairs []struct {
	ID  event.NodeID
	Vec []float32
}) *ClusterMap {
	usable := make([]struct {
		ID  event.NodeID
		Vec []float32
	}, 0, len(pairs))
	for _, p := range pairs {
		if !isZero(p.Vec) {
			usable = append(usable, p)
		}
	}
	if len(usable) == 0 {
		return nil
	}

	k := int(math.Ceil(math.Sqrt(float64(len(usable)))))
	if k < 1 {
		k = 1
	}
	if k > maxClusters {
		k = maxClusters
	}
	if k > len(usable) {
		k = len(usable)
	}

	cm := &ClusterMap{k: k, dim: dim}
	cm.centroids = make([][]float32, k)
	// Evenly spaced initialization, per spec §9's open-question decision.
	step := float64(len(usable)) / float64(k)
	for c := 0; c < k; c++ {
		src := usable[int(float64(c)*step)]
		cm.centroids[c] = append([]float32(nil), src.Vec...)
	}

	cm.assigned = make(map[event.NodeID]int, len(usable))
	assignment := make([]int, len(usable))

	for round := 0; round < maxKMeansRounds; round++ {
		changed := false
		for i, p := range usable {
			best, bestSim := 0, -2.0
			for c := 0; c < k; c++ {
				sim := vector.CosineSimilarity(p.Vec, cm.centroids[c])
				if sim > bestSim {
					bestSim, best = sim, c
				}
			}
			if assignment[i] != best {
				changed = true
			}
			assignment[i] = best
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range usable {
			c := assignment[i]
			counts[c]++
			for d := 0; d < dim && d < len(p.Vec); d++ {
				sums[c][d] += float64(p.Vec[d])
			}
		}

		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Reassign empty clusters to the point farthest from its
				// own centroid, per spec §9's open-question decision.
				far, farDist := -1, -1.0
				for i, p := range usable {
					d := 1 - vector.CosineSimilarity(p.Vec, cm.centroids[assignment[i]])
					if d > farDist {
						farDist, far = d, i
					}
				}
				if far >= 0 {
					cm.centroids[c] = append([]float32(nil), usable[far].Vec...)
					assignment[far] = c
					changed = true
				}
				continue
			}
			newCentroid := make([]float32, dim)
			for d := 0; d < dim; d++ {
				newCentroid[d] = float32(sums[c][d] / float64(counts[c]))
			}
			cm.centroids[c] = newCentroid
		}

		if !changed {
			break
		}
	}

	cm.members = make([][]event.NodeID, k)
	for i, p := range usable {
		c := assignment[i]
		cm.members[c] = append(cm.members[c], p.ID)
		cm.assigned[p.ID] = c
	}
	for c := range cm.members {
		sort.Slice(cm.members[c], func(i, j int) bool { return cm.members[c][i] < cm.members[c][j] })
	}

	return cm
}

// NewClusterMapFromParts rebuilds a ClusterMap from previously serialized
// centroids and member lists, used by the Reader when index-block tag 0x04
// is present and no k-means re-run is needed.
func NewClusterMapFromParts(k, dim int, centroids [][]float32, members [][]event.NodeID) *ClusterMap {
	cm := &ClusterMap{k: k, dim: dim, centroids: centroids, members: members, assigned: make(map[event.NodeID]int)}
	for c, ids := range members {
		for _, id := range ids {
			cm.assigned[id] = c
		}
	}
	return cm
}

// NearestCluster returns the index of the centroid closest to query by
// cosine similarity.
func (c *ClusterMap) NearestCluster(query []float32) int {
	best, bestSim := 0, -2.0
	for i, centroid := range c.centroids {
		sim := vector.CosineSimilarity(query, centroid)
		if sim > bestSim {
			bestSim, best = sim, i
		}
	}
	return best
}

// GetCluster returns the member ids of cluster i.
func (c *ClusterMap) GetCluster(i int) []event.NodeID {
	if i < 0 || i >= len(c.members) {
		return nil
	}
	return c.members[i]
}

// Centroid returns the centroid vector of cluster i.
func (c *ClusterMap) Centroid(i int) []float32 {
	if i < 0 || i >= len(c.centroids) {
		return nil
	}
	return c.centroids[i]
}

// K returns the number of clusters.
func (c *ClusterMap) K() int { return c.k }

// AssignNode incrementally assigns id/vec to its nearest cluster without
// re-running k-means.
func (c *ClusterMap) AssignNode(id event.NodeID, vec []float32) {
	if isZero(vec) {
		return
	}
	if old, ok := c.assigned[id]; ok {
		c.members[old] = removeID(c.members[old], id)
	}
	nc := c.NearestCluster(vec)
	c.assigned[id] = nc
	ids := c.members[nc]
	idx := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, 0)
	copy(ids[idx+1:], ids[idx:])
	ids[idx] = id
	c.members[nc] = ids
}

func removeID(ids []event.NodeID, id event.NodeID) []event.NodeID {
	idx := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if idx < len(ids) && ids[idx] == id {
		return append(ids[:idx], ids[idx+1:]...)
	}
	return ids
}

func isZero(v []float32) bool {
	if len(v) == 0 {
		return true
	}
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
