package amemfile

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/agenticmemory/amem/pkg/bm25"
	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/graph"
	"github.com/stretchr/testify/require"
)

func buildTestGraph(t *testing.T) *graph.MemoryGraph {
	t.Helper()
	g := graph.New(4)

	id0, err := g.AddNode(event.CognitiveEvent{
		EventType:  event.Fact,
		CreatedAt:  1000,
		SessionID:  7,
		Confidence: 0.9,
		Content:    "the quick brown fox jumps over the lazy dog",
		FeatureVec: []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)

	id1, err := g.AddNode(event.CognitiveEvent{
		EventType:  event.Inference,
		CreatedAt:  2000,
		SessionID:  7,
		Confidence: 0.5,
		Content:    "foxes are quick and clever",
		FeatureVec: []float32{0.9, 0.1, 0, 0},
	})
	require.NoError(t, err)

	require.NoError(t, g.AddEdge(event.Edge{SourceID: id0, TargetID: id1, EdgeType: event.RelatedTo, Weight: 0.8, CreatedAt: 2000}))

	docs := []struct {
		ID      event.NodeID
		Content string
	}{
		{ID: id0, Content: "the quick brown fox jumps over the lazy dog"},
		{ID: id1, Content: "foxes are quick and clever"},
	}
	ti, dl := bm25.BuildTermIndex(docs)
	g.SetTermIndex(ti)
	g.SetDocLengths(dl)

	return g
}

func TestWriteReadRoundTrip(t *testing.T) {
	g := buildTestGraph(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g))

	g2, err := Read(buf.Bytes())
	require.NoError(t, err)

	require.Equal(t, g.NodeCount(), g2.NodeCount())
	require.Equal(t, g.EdgeCount(), g2.EdgeCount())

	n0, err := g2.GetNode(0)
	require.NoError(t, err)
	require.Equal(t, "the quick brown fox jumps over the lazy dog", n0.Content)
	require.Equal(t, event.Fact, n0.EventType)
	require.Equal(t, []float32{1, 0, 0, 0}, n0.FeatureVec)

	edges := g2.EdgesFrom(0)
	require.Len(t, edges, 1)
	require.Equal(t, event.RelatedTo, edges[0].EdgeType)

	require.NotNil(t, g2.TermIndex())
	require.NotNil(t, g2.DocLengths())
}

func TestWriteFileReadFileRoundTrip(t *testing.T) {
	g := buildTestGraph(t)
	path := filepath.Join(t.TempDir(), "graph.amem")

	require.NoError(t, WriteFile(path, g))

	g2, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, g.NodeCount(), g2.NodeCount())
}

func TestOpenMmapRandomAccess(t *testing.T) {
	g := buildTestGraph(t)
	path := filepath.Join(t.TempDir(), "graph.amem")
	require.NoError(t, WriteFile(path, g))

	mr, err := OpenMmap(path)
	require.NoError(t, err)
	defer mr.Close()

	n0, err := mr.ReadNode(0)
	require.NoError(t, err)
	require.Equal(t, event.Fact, n0.EventType)

	content, err := mr.ReadContent(0)
	require.NoError(t, err)
	require.Equal(t, "the quick brown fox jumps over the lazy dog", content)

	vec, err := mr.ReadFeatureVec(1)
	require.NoError(t, err)
	require.Equal(t, []float32{0.9, 0.1, 0, 0}, vec)

	edges, err := mr.ReadEdges(0)
	require.NoError(t, err)
	require.Len(t, edges, 1)

	sims, err := mr.BatchSimilarity([]float32{1, 0, 0, 0})
	require.NoError(t, err)
	require.Len(t, sims, 2)
	require.Greater(t, sims[0], sims[1])
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, HeaderSize)
	copy(buf, "XXXX")
	_, err := DecodeHeader(buf)
	require.Error(t, err)
	var magicErr *InvalidMagicError
	require.ErrorAs(t, err, &magicErr)
}

func TestReadRejectsTruncatedFile(t *testing.T) {
	g := buildTestGraph(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g))

	truncated := buf.Bytes()[:HeaderSize+10]
	_, err := Read(truncated)
	require.Error(t, err)
}
