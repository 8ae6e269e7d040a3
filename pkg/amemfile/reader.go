package amemfile

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/agenticmemory/amem/pkg/bm25"
	"github.com/agenticmemory/amem/pkg/codec"
	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/graph"
)

// Read parses a complete .amem file out of buf and rebuilds a MemoryGraph.
// The always-on indexes (type, temporal, session) are always rebuilt fresh
// from the decoded nodes rather than trusted from the index block, since
// rebuilding them is cheap and guards against an index block that drifted
// from the node table. Optional indexes (cluster map, term index, doc
// lengths) are installed from the index block when present and left absent
// otherwise — the write engine and query engine both tolerate absence.
func Read(buf []byte) (*graph.MemoryGraph, error) {
	header, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}

	nodeTableEnd := header.NodeTableOffset + header.NodeCount*NodeRecordSize
	if uint64(len(buf)) < nodeTableEnd {
		return nil, &TruncatedError{Region: "node table"}
	}
	edgeTableEnd := header.EdgeTableOffset + header.EdgeCount*EdgeRecordSize
	if uint64(len(buf)) < edgeTableEnd {
		return nil, &TruncatedError{Region: "edge table"}
	}

	nodeRecs := make([]nodeRecord, header.NodeCount)
	for i := uint64(0); i < header.NodeCount; i++ {
		off := header.NodeTableOffset + i*NodeRecordSize
		nodeRecs[i] = decodeNodeRecord(buf[off : off+NodeRecordSize])
	}

	edges := make([]event.Edge, header.EdgeCount)
	for i := uint64(0); i < header.EdgeCount; i++ {
		off := header.EdgeTableOffset + i*EdgeRecordSize
		edges[i] = toEdge(decodeEdgeRecord(buf[off : off+EdgeRecordSize]))
	}

	nodes := make([]event.CognitiveEvent, header.NodeCount)
	dim := int(header.Dimension)
	featureVecEnd := header.FeatureVecOffset + header.NodeCount*uint64(dim)*4
	if uint64(len(buf)) < featureVecEnd {
		return nil, &TruncatedError{Region: "feature vector block"}
	}

	for i, r := range nodeRecs {
		if r.ContentLength > 0 {
			if uint64(len(buf)) < r.ContentOffset+uint64(r.ContentLength) {
				return nil, &TruncatedError{Region: "content block"}
			}
			frame := buf[r.ContentOffset : r.ContentOffset+uint64(r.ContentLength)]
			content, err := codec.Decompress(frame)
			if err != nil {
				return nil, err
			}
			nodes[i].Content = string(content)
		}

		fvOff := header.FeatureVecOffset + uint64(i)*uint64(dim)*4
		vec := make([]float32, dim)
		for d := 0; d < dim; d++ {
			vec[d] = math.Float32frombits(binary.LittleEndian.Uint32(buf[fvOff+uint64(d)*4 : fvOff+uint64(d)*4+4]))
		}

		nodes[i].ID = r.ID
		nodes[i].EventType = event.EventType(r.EventType)
		nodes[i].CreatedAt = r.CreatedAt
		nodes[i].SessionID = r.SessionID
		nodes[i].Confidence = r.Confidence
		nodes[i].AccessCount = r.AccessCount
		nodes[i].LastAccessed = r.LastAccessed
		nodes[i].DecayScore = r.DecayScore
		nodes[i].FeatureVec = vec
	}

	g := graph.FromParts(nodes, edges, dim)

	indexBlockOffset := header.IndexBlockOffset()
	if uint64(len(buf)) > indexBlockOffset {
		di := decodeIndexBlock(buf[indexBlockOffset:])

		if di.hasClusterMap {
			g.SetClusterMap(graph.NewClusterMapFromParts(di.clusterK, di.clusterDim, di.clusterCentroids, di.clusterMembers))
		}
		if di.hasTermIndex && header.HasTermIndex() {
			ti := bm25.ImportTermIndex(di.termPostings)
			g.SetTermIndex(ti)
		}
		if di.hasDocLengths && header.HasDocLengths() {
			g.SetDocLengths(bm25.NewDocLengths(di.docLengths, di.docLengthsAvg))
		}
	}

	return g, nil
}

// ReadFile reads and parses the .amem file at path in full.
func ReadFile(path string) (*graph.MemoryGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return Read(buf)
}
