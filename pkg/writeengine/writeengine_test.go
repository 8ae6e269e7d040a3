package writeengine

import (
	"testing"

	"github.com/agenticmemory/amem/pkg/decay"
	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/graph"
	"github.com/stretchr/testify/require"
)

func TestIngestAssignsSequentialIDs(t *testing.T) {
	g := graph.New(4)
	e := New(g)

	ids, err := e.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "a", SessionID: 1},
		{EventType: event.Fact, Content: "b", SessionID: 1},
	}, []event.Edge{
		{SourceID: 0, TargetID: 1, EdgeType: event.RelatedTo},
	})
	require.NoError(t, err)
	require.Equal(t, []event.NodeID{0, 1}, ids)
	require.Equal(t, 1, g.EdgeCount())
}

func TestIngestAbortsOnInvalidEdge(t *testing.T) {
	g := graph.New(4)
	e := New(g)

	_, err := e.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "a"},
	}, []event.Edge{
		{SourceID: 0, TargetID: 99, EdgeType: event.RelatedTo},
	})
	require.Error(t, err)
}

func TestTouchUpdatesAccessMetadata(t *testing.T) {
	g := graph.New(4)
	e := New(g)
	id, err := g.AddNode(event.CognitiveEvent{EventType: event.Fact, Content: "x"})
	require.NoError(t, err)

	require.NoError(t, e.Touch(id, 5000))
	n, err := g.GetNode(id)
	require.NoError(t, err)
	require.Equal(t, uint32(1), n.AccessCount)
	require.Equal(t, uint64(5000), n.LastAccessed)
}

func TestCorrectionChain(t *testing.T) {
	g := graph.New(4)
	e := New(g)

	id0, err := g.AddNode(event.CognitiveEvent{EventType: event.Fact, Content: "Earth is flat", SessionID: 1, Confidence: 1.0})
	require.NoError(t, err)

	newID, err := e.Correct(id0, "Earth is spherical", 2, 1000)
	require.NoError(t, err)

	old, err := g.GetNode(id0)
	require.NoError(t, err)
	require.Equal(t, float32(0), old.Confidence)

	n, err := g.GetNode(newID)
	require.NoError(t, err)
	require.Equal(t, event.Correction, n.EventType)

	edges := g.EdgesFrom(newID)
	require.Len(t, edges, 1)
	require.Equal(t, event.Supersedes, edges[0].EdgeType)
	require.Equal(t, id0, edges[0].TargetID)
}

func TestCorrectOnMissingNodeReturnsNotFound(t *testing.T) {
	g := graph.New(4)
	e := New(g)
	_, err := e.Correct(42, "x", 1, 0)
	require.Error(t, err)
	var nf *event.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestCompressSessionLinksAllSessionMembers(t *testing.T) {
	g := graph.New(4)
	e := New(g)

	id0, _ := g.AddNode(event.CognitiveEvent{EventType: event.Fact, Content: "a", SessionID: 9})
	id1, _ := g.AddNode(event.CognitiveEvent{EventType: event.Fact, Content: "b", SessionID: 9})

	episodeID, err := e.CompressSession(9, "summary of session 9", 1000)
	require.NoError(t, err)

	require.Contains(t, edgeTargets(g.EdgesFrom(id0)), episodeID)
	require.Contains(t, edgeTargets(g.EdgesFrom(id1)), episodeID)

	n0, _ := g.GetNode(id0)
	require.Equal(t, "a", n0.Content) // original untouched
}

func edgeTargets(edges []event.Edge) []event.NodeID {
	out := make([]event.NodeID, len(edges))
	for i, e := range edges {
		out[i] = e.TargetID
	}
	return out
}

func TestRunDecayMonotonicity(t *testing.T) {
	g := graph.New(4)
	e := New(g)

	frequent, _ := g.AddNode(event.CognitiveEvent{EventType: event.Fact, CreatedAt: 0, LastAccessed: 0, AccessCount: 10})
	rare, _ := g.AddNode(event.CognitiveEvent{EventType: event.Fact, CreatedAt: 0, LastAccessed: 0, AccessCount: 1})

	now := uint64(1_000_000) * 60 * 60 * 24 * 30 // 30 days later
	report := e.RunDecay(now, decay.DefaultWeights())
	require.Equal(t, 2, report.NodesScored)

	a, _ := g.GetNode(frequent)
	b, _ := g.GetNode(rare)
	require.GreaterOrEqual(t, a.DecayScore, b.DecayScore)
}

func TestArchivalCandidatesSortedAscending(t *testing.T) {
	g := graph.New(4)
	e := New(g)
	id0, _ := g.AddNode(event.CognitiveEvent{EventType: event.Fact, DecayScore: 0.01})
	id1, _ := g.AddNode(event.CognitiveEvent{EventType: event.Fact, DecayScore: 0.6})
	_ = id1

	candidates := e.ArchivalCandidates()
	require.Equal(t, []event.NodeID{id0}, candidates)
}
