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

// Write serializes g to w as a complete .amem file: header, node table, edge
// table, compressed content block, feature-vector block, then the optional
// index block. Every node's content is compressed independently (rather than
// once for the whole block) so MmapReader can decompress a single node's
// content without touching any other node's bytes.
//
// Grounded on the teacher's pkg/storage/wal.go single-pass writer: compute
// every section's size up front, then stream sections out in one sequential
// write with no backpatching.
func Write(w io.Writer, g *graph.MemoryGraph) error {
	nodes := g.Nodes()
	edges := g.Edges()
	dim := g.Dimension()

	frames := make([][]byte, len(nodes))
	for i, n := range nodes {
		f, err := codec.Compress([]byte(n.Content))
		if err != nil {
			return err
		}
		frames[i] = f
	}

	idIndex := make(map[event.NodeID]int, len(nodes))
	for i, n := range nodes {
		idIndex[n.ID] = i
	}

	edgeOffsets := make([]uint64, len(nodes))
	edgeCounts := make([]uint16, len(nodes))
	i := 0
	for i < len(edges) {
		src := edges[i].SourceID
		start := i
		for i < len(edges) && edges[i].SourceID == src {
			i++
		}
		if idx, ok := idIndex[src]; ok {
			edgeOffsets[idx] = uint64(start)
			edgeCounts[idx] = uint16(i - start)
		}
	}

	nodeTableOffset := uint64(HeaderSize)
	nodeTableSize := uint64(len(nodes)) * NodeRecordSize
	edgeTableOffset := nodeTableOffset + nodeTableSize
	edgeTableSize := uint64(len(edges)) * EdgeRecordSize
	contentBlockOffset := edgeTableOffset + edgeTableSize

	contentOffsets := make([]uint64, len(nodes))
	var cur uint64
	for i, f := range frames {
		contentOffsets[i] = cur
		cur += uint64(len(f))
	}
	featureVecOffset := contentBlockOffset + cur

	var flags uint32
	if ti, ok := g.TermIndex().(*bm25.TermIndex); ok && ti != nil {
		flags |= FlagHasTermIndex
	}
	if dl, ok := g.DocLengths().(*bm25.DocLengths); ok && dl != nil {
		flags |= FlagHasDocLengths
	}

	header := Header{
		Version:            CurrentVersion,
		Dimension:          uint32(dim),
		Flags:              flags,
		NodeCount:          uint64(len(nodes)),
		EdgeCount:          uint64(len(edges)),
		NodeTableOffset:    nodeTableOffset,
		EdgeTableOffset:    edgeTableOffset,
		ContentBlockOffset: contentBlockOffset,
		FeatureVecOffset:   featureVecOffset,
	}

	if _, err := w.Write(header.Encode()); err != nil {
		return err
	}

	nodeBuf := make([]byte, NodeRecordSize)
	for i, n := range nodes {
		encodeNodeRecord(nodeBuf, nodeRecord{
			ID:            n.ID,
			EventType:     uint8(n.EventType),
			CreatedAt:     n.CreatedAt,
			SessionID:     n.SessionID,
			Confidence:    n.Confidence,
			AccessCount:   n.AccessCount,
			LastAccessed:  n.LastAccessed,
			DecayScore:    n.DecayScore,
			ContentOffset: contentBlockOffset + contentOffsets[i],
			ContentLength: uint32(len(frames[i])),
			EdgeOffset:    edgeOffsets[i],
			EdgeCount:     edgeCounts[i],
		})
		if _, err := w.Write(nodeBuf); err != nil {
			return err
		}
	}

	edgeBuf := make([]byte, EdgeRecordSize)
	for _, e := range edges {
		encodeEdgeRecord(edgeBuf, edgeRecord{
			SourceID:  e.SourceID,
			TargetID:  e.TargetID,
			EdgeType:  uint8(e.EdgeType),
			Weight:    e.Weight,
			CreatedAt: e.CreatedAt,
		})
		if _, err := w.Write(edgeBuf); err != nil {
			return err
		}
	}

	for _, f := range frames {
		if len(f) == 0 {
			continue
		}
		if _, err := w.Write(f); err != nil {
			return err
		}
	}

	fvBuf := make([]byte, dim*4)
	for _, n := range nodes {
		for d := 0; d < dim; d++ {
			var v float32
			if d < len(n.FeatureVec) {
				v = n.FeatureVec[d]
			}
			binary.LittleEndian.PutUint32(fvBuf[d*4:d*4+4], math.Float32bits(v))
		}
		if _, err := w.Write(fvBuf); err != nil {
			return err
		}
	}

	if idx := encodeIndexBlock(g); len(idx) > 0 {
		if _, err := w.Write(idx); err != nil {
			return err
		}
	}

	return nil
}

// WriteFile writes g to a new or truncated file at path and fsyncs it before
// returning, matching the flush discipline of the teacher's WAL writer: a
// caller that gets a nil error has durable bytes on disk, not just a
// buffered write.
func WriteFile(path string, g *graph.MemoryGraph) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Write(f, g); err != nil {
		return err
	}
	return f.Sync()
}
