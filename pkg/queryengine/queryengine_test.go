package queryengine

import (
	"testing"

	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/graph"
	"github.com/agenticmemory/amem/pkg/writeengine"
	"github.com/stretchr/testify/require"
)

func vec(dim int, nonzero ...int) []float32 {
	v := make([]float32, dim)
	for _, i := range nonzero {
		v[i] = 1
	}
	return v
}

func TestTraverseRespectsMaxDepthAndEdgeTypes(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	ids, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "a"},
		{EventType: event.Fact, Content: "b"},
		{EventType: event.Fact, Content: "c"},
	}, []event.Edge{
		{SourceID: 0, TargetID: 1, EdgeType: event.RelatedTo, Weight: 0.5},
		{SourceID: 1, TargetID: 2, EdgeType: event.CausedBy, Weight: 0.5},
	})
	require.NoError(t, err)

	eng := New(g)
	res := eng.Traverse(TraverseParams{
		StartID:   ids[0],
		Direction: Forward,
		MaxDepth:  1,
	})
	require.Contains(t, res.Visited, ids[1])
	require.NotContains(t, res.Visited, ids[2])

	filtered := eng.Traverse(TraverseParams{
		StartID:   ids[0],
		Direction: Forward,
		MaxDepth:  2,
		EdgeTypes: []event.EdgeType{event.CausedBy},
	})
	require.NotContains(t, filtered.Visited, ids[1])
}

func TestPatternFiltersAndSorts(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	ids, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Decision, Content: "low", Confidence: 0.2},
		{EventType: event.Decision, Content: "high", Confidence: 0.9},
		{EventType: event.Fact, Content: "other", Confidence: 0.9},
	}, nil)
	require.NoError(t, err)

	eng := New(g)
	out := eng.Pattern(PatternParams{
		EventTypes: []event.EventType{event.Decision},
		Sort:       HighestConfidence,
	})
	require.Len(t, out, 2)
	require.Equal(t, ids[1], out[0])
}

func TestSimilarityReturnsClosestVector(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	ids, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "x", FeatureVec: vec(4, 0)},
		{EventType: event.Fact, Content: "y", FeatureVec: vec(4, 1)},
	}, nil)
	require.NoError(t, err)

	eng := New(g)
	out := eng.Similarity(SimilarityParams{Query: vec(4, 0), TopK: 1})
	require.Len(t, out, 1)
	require.Equal(t, ids[0], out[0].ID)
}

func TestCausalImpactExample(t *testing.T) {
	// decision caused_by inference caused_by fact; Causal(fact) should find
	// both upstream dependents.
	g := graph.New(4)
	we := writeengine.New(g)
	ids, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "fact"},
		{EventType: event.Inference, Content: "inference"},
		{EventType: event.Decision, Content: "decision"},
	}, []event.Edge{
		{SourceID: 1, TargetID: 0, EdgeType: event.CausedBy, Weight: 1},
		{SourceID: 2, TargetID: 1, EdgeType: event.CausedBy, Weight: 1},
	})
	require.NoError(t, err)

	eng := New(g)
	res := eng.Causal(CausalParams{NodeID: ids[0], DependencyTypes: []event.EdgeType{event.CausedBy}, MaxDepth: 5})
	require.ElementsMatch(t, []event.NodeID{ids[1], ids[2]}, res.Dependents)
	require.Equal(t, 1, res.AffectedDecisions)
	require.Equal(t, 1, res.AffectedInferences)
}

func TestResolveFollowsSupersedesToNewest(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	id0, err := g.AddNode(event.CognitiveEvent{EventType: event.Fact, Content: "old", Confidence: 1})
	require.NoError(t, err)

	newID, err := we.Correct(id0, "new", 1, 1000)
	require.NoError(t, err)

	eng := New(g)
	require.Equal(t, newID, eng.Resolve(id0))
	require.Equal(t, newID, eng.Resolve(newID))
}

func TestTextSearchSlowPathFindsKeyword(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	ids, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "the quick brown fox"},
		{EventType: event.Fact, Content: "lazy dog sleeps"},
	}, nil)
	require.NoError(t, err)

	eng := New(g)
	out := eng.TextSearch(TextSearchParams{Query: "fox", MaxResults: 5})
	require.Len(t, out, 1)
	require.Equal(t, ids[0], out[0].ID)
}

func TestHybridSearchFusesBothRankings(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	_, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "fox jumps", FeatureVec: vec(4, 0)},
		{EventType: event.Fact, Content: "dog sleeps", FeatureVec: vec(4, 1)},
	}, nil)
	require.NoError(t, err)

	eng := New(g)
	out := eng.HybridSearch(HybridSearchParams{
		Text:         TextSearchParams{Query: "fox"},
		Vector:       SimilarityParams{Query: vec(4, 0)},
		TextWeight:   1,
		VectorWeight: 1,
	})
	require.NotEmpty(t, out)
}

func TestCentralityDegreeRanksHubHighest(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	ids, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "hub"},
		{EventType: event.Fact, Content: "a"},
		{EventType: event.Fact, Content: "b"},
	}, []event.Edge{
		{SourceID: 0, TargetID: 1, EdgeType: event.RelatedTo, Weight: 1},
		{SourceID: 0, TargetID: 2, EdgeType: event.RelatedTo, Weight: 1},
	})
	require.NoError(t, err)

	eng := New(g)
	out := eng.Centrality(CentralityParams{Algorithm: Degree, TopK: 1})
	require.Len(t, out, 1)
	require.Equal(t, ids[0], out[0].ID)
}

func TestShortestPathUnweightedBFS(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	ids, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "a"},
		{EventType: event.Fact, Content: "b"},
		{EventType: event.Fact, Content: "c"},
	}, []event.Edge{
		{SourceID: 0, TargetID: 1, EdgeType: event.RelatedTo, Weight: 1},
		{SourceID: 1, TargetID: 2, EdgeType: event.RelatedTo, Weight: 1},
	})
	require.NoError(t, err)

	eng := New(g)
	res := eng.ShortestPath(ShortestPathParams{StartID: ids[0], EndID: ids[2], Direction: Forward, MaxDepth: 5})
	require.True(t, res.Found)
	require.Equal(t, []event.NodeID{ids[0], ids[1], ids[2]}, res.Path)
}

func TestBeliefRevisionFindsOpposingNode(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	ids, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "the sky is blue", FeatureVec: vec(4, 0), Confidence: 0.9},
		{EventType: event.Fact, Content: "the sky is not blue", FeatureVec: vec(4, 0), Confidence: 0.9},
	}, nil)
	require.NoError(t, err)

	eng := New(g)
	res := eng.BeliefRevision(BeliefRevisionParams{
		Hypothesis:             "the sky is blue",
		HypothesisVec:          vec(4, 0),
		ContradictionThreshold: 0.5,
		MaxDepth:               3,
	})
	require.Len(t, res.Contradictions, 1)
	require.Equal(t, ids[1], res.Contradictions[0].ID)
}

func TestGapDetectionFlagsLowSupportDecision(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	_, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Decision, Content: "risky call", Confidence: 0.9},
	}, nil)
	require.NoError(t, err)

	eng := New(g)
	gaps := eng.GapDetection(GapDetectionParams{
		ConfidenceThreshold: 0.95,
		MinSupportCount:     1,
	})
	require.Len(t, gaps, 1)
}

func TestAnalogyExcludesGivenSessions(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	ids, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "a", SessionID: 1, FeatureVec: vec(4, 0)},
		{EventType: event.Fact, Content: "b", SessionID: 2, FeatureVec: vec(4, 0)},
	}, nil)
	require.NoError(t, err)

	eng := New(g)
	out := eng.Analogy(AnalogyParams{
		DescriptionVec:  vec(4, 0),
		ExcludeSessions: []uint32{1},
		ContextDepth:    1,
		TopCandidates:   10,
	})
	for _, a := range out {
		require.NotEqual(t, ids[0], a.ID)
	}
}

func TestConsolidationDryRunDoesNotMutate(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	_, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "dup one", FeatureVec: vec(4, 0), Confidence: 0.5},
		{EventType: event.Fact, Content: "dup two", FeatureVec: vec(4, 0), Confidence: 0.9},
	}, nil)
	require.NoError(t, err)

	eng := New(g)
	before := g.NodeCount()
	report := eng.Consolidation(ConsolidationParams{Deduplicate: true, DuplicateThreshold: 0.99})
	require.False(t, report.Applied)
	require.Len(t, report.DuplicateGroups, 1)
	require.Equal(t, before, g.NodeCount())
}

func TestConsolidationConfirmRemovesDuplicates(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	_, err := we.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "dup one", FeatureVec: vec(4, 0), Confidence: 0.5},
		{EventType: event.Fact, Content: "dup two", FeatureVec: vec(4, 0), Confidence: 0.9},
	}, nil)
	require.NoError(t, err)

	eng := New(g)
	report := eng.Consolidation(ConsolidationParams{Deduplicate: true, DuplicateThreshold: 0.99, Confirm: true})
	require.True(t, report.Applied)
	require.Equal(t, 1, g.NodeCount())
}

func TestDriftDetectionReportsSupersedesTransition(t *testing.T) {
	g := graph.New(4)
	we := writeengine.New(g)
	id0, err := g.AddNode(event.CognitiveEvent{EventType: event.Fact, Content: "v1", FeatureVec: vec(4, 0), Confidence: 0.9, CreatedAt: 1000})
	require.NoError(t, err)
	newID, err := we.Correct(id0, "v2", 1, 2000)
	require.NoError(t, err)
	require.NoError(t, g.MutateNode(newID, func(n *event.CognitiveEvent) { n.FeatureVec = vec(4, 0) }))

	eng := New(g)
	res := eng.DriftDetection(DriftDetectionParams{
		TopicVec:                 vec(4, 0),
		RelevanceThreshold:       0.5,
		ConfidenceShiftThreshold: 0.1,
	})
	require.Len(t, res.Timeline, 2)
	require.Len(t, res.Drifts, 1)
	require.True(t, res.Drifts[0].Superseded)
}
